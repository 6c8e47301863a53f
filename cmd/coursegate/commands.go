package main

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/coursemaster/coursegate"
	"github.com/coursemaster/coursegate/api"
	"github.com/coursemaster/coursegate/course"
	"github.com/coursemaster/coursegate/credential"
	"github.com/coursemaster/coursegate/validation"
)

// PasswordEnv supplies the password when --password is not given.
const PasswordEnv = "COURSEGATE_PASSWORD"

// clientCommand wraps run with engine setup and teardown.
func clientCommand(opts *globalOptions, run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(opts, cmd.ErrOrStderr(), true)
		if err != nil {
			return err
		}
		defer a.Close()
		cmd.SetContext(a.clientContext(cmd.Context(), opts))
		return run(cmd, a, args)
	}
}

func password(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if v := os.Getenv(PasswordEnv); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("password required: use --password or %s", PasswordEnv)
}

// describe turns an engine error into the message a user sees.
func describe(err error, fallback string) error {
	if fields, ok := validation.AsErrors(err); ok {
		return fields
	}
	var rejected *coursegate.PasskeyRejectedError
	if errors.As(err, &rejected) {
		return errors.New(rejected.Message)
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return errors.New(api.Message(err, fallback))
	}
	return err
}

func loginCmd(opts *globalOptions) *cobra.Command {
	var form validation.Login
	var pass string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the credential in the profile",
		RunE: clientCommand(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			var err error
			if form.Password, err = password(pass); err != nil {
				return err
			}
			res, err := a.engine.Login(cmd.Context(), form)
			if err != nil {
				return describe(err, coursegate.LoginFailedMessage)
			}
			printUser(cmd.OutOrStdout(), &res.User)
			fmt.Fprintf(cmd.OutOrStdout(), "dashboard: %s\n", res.Location)
			return nil
		}),
	}
	cmd.Flags().StringVar(&form.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&pass, "password", "", "Account password (or "+PasswordEnv+")")
	return cmd
}

func registerCmd(opts *globalOptions) *cobra.Command {
	var form validation.Register
	var pass, role string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: clientCommand(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			var err error
			if form.Password, err = password(pass); err != nil {
				return err
			}
			form.ConfirmPassword = form.Password
			form.Role = credential.Role(role)
			res, err := a.engine.Register(cmd.Context(), form)
			if err != nil {
				return describe(err, coursegate.RegistrationFailedMessage)
			}
			printUser(cmd.OutOrStdout(), &res.User)
			return nil
		}),
	}
	cmd.Flags().StringVar(&form.FullName, "name", "", "Full name")
	cmd.Flags().StringVar(&form.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&pass, "password", "", "Account password (or "+PasswordEnv+")")
	cmd.Flags().StringVar(&role, "role", string(credential.RoleStudent), "student or instructor")
	cmd.Flags().StringVar(&form.PhoneNumber, "phone", "", "Phone number, 10-15 digits")
	return cmd
}

func logoutCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear every credential of the profile",
		RunE: clientCommand(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			if _, err := a.engine.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		}),
	}
}

func verifyCmd(opts *globalOptions) *cobra.Command {
	var form validation.Passkey

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Answer the admin passkey challenge",
		RunE: clientCommand(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			res, err := a.engine.VerifyPasskey(cmd.Context(), form)
			if err != nil {
				return describe(err, coursegate.DefaultPasskeyMessage)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin access granted: %s\n", res.Location)
			return nil
		}),
	}
	cmd.Flags().StringVar(&form.Passkey, "passkey", "", "Admin passkey")
	return cmd
}

func exitAdminCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "exit-admin",
		Short: "Drop admin access but stay signed in",
		RunE: clientCommand(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			if _, err := a.engine.ExitAdmin(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "admin access dropped")
			return nil
		}),
	}
}

func whoamiCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user of the profile",
		RunE: clientCommand(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			user, err := a.engine.CurrentUser(cmd.Context())
			if err != nil {
				return err
			}
			if user == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "not logged in")
				return nil
			}
			printUser(cmd.OutOrStdout(), user)
			if payload, err := a.engine.AdminSession(cmd.Context()); err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "admin until: %s\n", payload.ExpiresAt().Format("2006-01-02 15:04:05"))
			}
			return nil
		}),
	}
}

func checkCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <path>",
		Short: "Follow the gate from path and print every decision",
		Args:  cobra.ExactArgs(1),
		RunE: clientCommand(opts, func(cmd *cobra.Command, a *app, args []string) error {
			trail, err := a.engine.Navigate(cmd.Context(), args[0])
			w := cmd.OutOrStdout()
			path := args[0]
			for _, res := range trail {
				line := fmt.Sprintf("%s %s", path, res.Decision)
				if res.Reason != "" {
					line += " (" + string(res.Reason) + ")"
				}
				if res.Location != "" {
					line += " -> " + res.Location
					path = res.Location
				}
				fmt.Fprintln(w, line)
			}
			return err
		}),
	}
}

func coursesCmd(opts *globalOptions) *cobra.Command {
	values := map[string]*string{}
	var admin bool

	cmd := &cobra.Command{
		Use:   "courses",
		Short: "List courses",
		RunE: clientCommand(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			params := url.Values{}
			for k, v := range values {
				if *v != "" {
					params.Set(k, *v)
				}
			}
			q := course.ParseQuery(params)

			var listing course.Listing
			if admin {
				var err error
				if listing, err = a.engine.AdminCourses(cmd.Context(), q); err != nil {
					return describe(err, coursegate.FetchCoursesFailedMessage)
				}
			} else {
				listing = a.engine.ListCourses(cmd.Context(), q)
			}
			printListing(cmd.OutOrStdout(), listing)
			return nil
		}),
	}
	for _, p := range []struct{ name, usage string }{
		{course.ParamPage, "Page number"},
		{course.ParamLimit, "Page size"},
		{course.ParamSearch, "Search text"},
		{course.ParamCategory, "Category id"},
		{course.ParamSortBy, "Sort order (price-asc, price-desc, title-asc, title-desc)"},
		{course.ParamMinPrice, "Minimum price"},
		{course.ParamMaxPrice, "Maximum price"},
		{course.ParamActive, "Only active (true) or inactive (false) courses"},
	} {
		values[p.name] = cmd.Flags().String(flagName(p.name), "", p.usage)
	}
	cmd.Flags().BoolVar(&admin, "admin", false, "Use the admin listing (requires admin access)")
	return cmd
}

// flagName turns a query parameter such as minPrice into min-price.
func flagName(param string) string {
	var b strings.Builder
	for _, r := range param {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte('-')
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func courseCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "course <id>",
		Short: "Show one course",
		Args:  cobra.ExactArgs(1),
		RunE: clientCommand(opts, func(cmd *cobra.Command, a *app, args []string) error {
			view, err := a.engine.CoursePage(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s\n", view.Course.Title)
			if view.Course.Subtitle != "" {
				fmt.Fprintf(w, "%s\n", view.Course.Subtitle)
			}
			fmt.Fprintf(w, "price: %s\n", formatPrice(view.Course.Price))
			fmt.Fprintf(w, "enrollments: %d (%d active)\n", view.Stats.Total, view.Stats.Active)
			return nil
		}),
	}
}

func categoriesCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List active categories",
		RunE: clientCommand(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			for _, c := range a.engine.Categories(cmd.Context()) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", c.ID, c.Name)
			}
			return nil
		}),
	}
}

func printUser(w io.Writer, u *credential.User) {
	name := u.FullName
	if name == "" {
		name = u.Email
	}
	fmt.Fprintf(w, "%s <%s> role=%s\n", name, u.Email, u.Role)
}

func printListing(w io.Writer, l course.Listing) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tPRICE\tACTIVE")
	for _, c := range l.Courses {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", c.ID, c.Title, formatPrice(c.Price), c.Active)
	}
	_ = tw.Flush()

	p := l.Pagination
	fmt.Fprintf(w, "page %d of %d, %d shown, %d total\n", p.Page, p.Pages, l.Shown, p.Total)
	if l.Filtered {
		fmt.Fprintln(w, "price filter applied to this page only")
	}
	if l.Degraded {
		fmt.Fprintln(w, "courses unavailable")
	}
}

func formatPrice(p float64) string {
	if p == 0 {
		return "free"
	}
	return strconv.FormatFloat(p, 'f', 2, 64)
}

// Package main provides the coursegate binary: the HTTP server and a command-line client
// sharing one engine configuration.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
	appName = "coursegate"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	envFile    string
	logLevel   string
	profile    string
}

func rootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Course marketplace gateway",
		Long: `coursegate fronts the course marketplace REST API.

It serves the public catalogue, guards the admin area behind a passkey
challenge and exposes the admin course operations, either over HTTP
(serve) or directly from the command line.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Config file path (YAML)")
	flags.StringVar(&opts.envFile, "env-file", "", "Env file path (default ./.env if present)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVarP(&opts.profile, "profile", "p", "default", "Credential profile used by client commands")

	cmd.AddCommand(
		serveCmd(opts),
		loginCmd(opts),
		registerCmd(opts),
		logoutCmd(opts),
		verifyCmd(opts),
		exitAdminCmd(opts),
		whoamiCmd(opts),
		checkCmd(opts),
		coursesCmd(opts),
		courseCmd(opts),
		categoriesCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)

	return cmd
}

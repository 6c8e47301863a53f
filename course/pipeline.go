package course

import (
	"context"
	"log/slog"
	"net/url"

	"golang.org/x/text/language"
)

// Source is the backend the pipeline reads from.
type Source interface {
	ListCourses(ctx context.Context, params url.Values) (Page, error)
	ActiveCategories(ctx context.Context) ([]Category, error)
}

// DegradeFunc is called with the operation name and cause whenever the pipeline substitutes
// an empty result for a backend failure.
type DegradeFunc func(op string, err error)

// Pipeline produces course listings. It is safe for concurrent use.
type Pipeline struct {
	source    Source
	limits    Limits
	lang      language.Tag
	logger    *slog.Logger
	onDegrade DegradeFunc
}

// PipelineOption customizes a Pipeline.
type PipelineOption func(*Pipeline)

// WithLimits sets the page size bounds.
func WithLimits(l Limits) PipelineOption {
	return func(p *Pipeline) { p.limits = l }
}

// WithLanguage sets the collation used for title ordering.
func WithLanguage(tag language.Tag) PipelineOption {
	return func(p *Pipeline) { p.lang = tag }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithDegradeHook registers fn to observe degraded results.
func WithDegradeHook(fn DegradeFunc) PipelineOption {
	return func(p *Pipeline) { p.onDegrade = fn }
}

// NewPipeline returns a Pipeline reading from source.
func NewPipeline(source Source, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		source: source,
		limits: DefaultLimits(),
		lang:   language.English,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Limits returns the configured page size bounds.
func (p *Pipeline) Limits() Limits {
	return p.limits
}

// List fetches one page for q and applies the local price filter and ordering. A backend
// failure yields EmptyListing, never an error.
func (p *Pipeline) List(ctx context.Context, q Query) Listing {
	q = q.Normalize(p.limits)

	page, err := p.source.ListCourses(ctx, q.ServerValues())
	if err != nil {
		p.degrade(ctx, "list", err)
		return EmptyListing(q.Limit)
	}

	courses := FilterByPrice(page.Courses, q.MinPrice, q.MaxPrice)
	filtered := len(courses) != len(page.Courses)
	courses = Sort(courses, q.SortBy, p.lang)

	return Listing{
		Courses:    courses,
		Pagination: page.Pagination,
		Shown:      len(courses),
		Filtered:   filtered,
	}
}

// Categories returns the active categories, or an empty slice when the backend fails.
func (p *Pipeline) Categories(ctx context.Context) []Category {
	cats, err := p.source.ActiveCategories(ctx)
	if err != nil {
		p.degrade(ctx, "categories", err)
		return []Category{}
	}
	if cats == nil {
		cats = []Category{}
	}
	return cats
}

func (p *Pipeline) degrade(ctx context.Context, op string, err error) {
	p.logger.WarnContext(ctx, "coursegate: course "+op+" degraded to empty result", "error", err)
	if p.onDegrade != nil {
		p.onDegrade(op, err)
	}
}

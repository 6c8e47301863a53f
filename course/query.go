package course

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// SortBy selects the local ordering of a listing page.
type SortBy string

const (
	SortNone      SortBy = ""
	SortPriceAsc  SortBy = "price-asc"
	SortPriceDesc SortBy = "price-desc"
	SortTitleAsc  SortBy = "title-asc"
	SortTitleDesc SortBy = "title-desc"
)

// Known reports whether s is one of the supported orderings.
func (s SortBy) Known() bool {
	switch s {
	case SortPriceAsc, SortPriceDesc, SortTitleAsc, SortTitleDesc:
		return true
	default:
		return false
	}
}

// Query parameter names.
const (
	ParamPage     = "page"
	ParamLimit    = "limit"
	ParamSearch   = "search"
	ParamCategory = "category"
	ParamActive   = "active"
	ParamSortBy   = "sortBy"
	ParamMinPrice = "minPrice"
	ParamMaxPrice = "maxPrice"
)

// Limits bounds the page size of a query.
type Limits struct {
	DefaultLimit int
	MaxLimit     int
}

// DefaultLimits returns a default page size of 10 and a maximum of 100.
func DefaultLimits() Limits {
	return Limits{DefaultLimit: 10, MaxLimit: 100}
}

// Query is a course listing query. Zero Page and Limit mean "use the default"; nil pointers
// mean "unset".
type Query struct {
	Page     int
	Limit    int
	Search   string
	Category string
	Active   *bool
	SortBy   SortBy
	MinPrice *float64
	MaxPrice *float64
}

// ParseQuery reads a Query from URL parameters. Malformed numbers and booleans are treated as
// unset.
func ParseQuery(v url.Values) Query {
	q := Query{
		Page:     positiveInt(v.Get(ParamPage)),
		Limit:    positiveInt(v.Get(ParamLimit)),
		Search:   strings.TrimSpace(v.Get(ParamSearch)),
		Category: strings.TrimSpace(v.Get(ParamCategory)),
		SortBy:   SortBy(strings.TrimSpace(v.Get(ParamSortBy))),
		MinPrice: parsePrice(v.Get(ParamMinPrice)),
		MaxPrice: parsePrice(v.Get(ParamMaxPrice)),
	}
	if b, err := strconv.ParseBool(strings.TrimSpace(v.Get(ParamActive))); err == nil {
		q.Active = &b
	}
	return q
}

func positiveInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0
	}
	return n
}

func parsePrice(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// Normalize applies the page and limit defaults of l.
func (q Query) Normalize(l Limits) Query {
	if l.DefaultLimit < 1 {
		l.DefaultLimit = DefaultLimits().DefaultLimit
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = l.DefaultLimit
	}
	if l.MaxLimit > 0 && q.Limit > l.MaxLimit {
		q.Limit = l.MaxLimit
	}
	q.Search = strings.TrimSpace(q.Search)
	q.Category = strings.TrimSpace(q.Category)
	return q
}

// ServerValues returns the parameters the backend understands. Empty optional fields are
// omitted. Price bounds and ordering are never sent.
func (q Query) ServerValues() url.Values {
	v := url.Values{}
	v.Set(ParamPage, strconv.Itoa(q.Page))
	v.Set(ParamLimit, strconv.Itoa(q.Limit))
	if q.Search != "" {
		v.Set(ParamSearch, q.Search)
	}
	if q.Category != "" {
		v.Set(ParamCategory, q.Category)
	}
	if q.Active != nil {
		v.Set(ParamActive, strconv.FormatBool(*q.Active))
	}
	return v
}

// Values returns every set field as URL parameters, for building links back to the listing.
// Page 1 and the default limit are left out.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Page > 1 {
		v.Set(ParamPage, strconv.Itoa(q.Page))
	}
	if q.Limit > 0 && q.Limit != DefaultLimits().DefaultLimit {
		v.Set(ParamLimit, strconv.Itoa(q.Limit))
	}
	if q.Search != "" {
		v.Set(ParamSearch, q.Search)
	}
	if q.Category != "" {
		v.Set(ParamCategory, q.Category)
	}
	if q.Active != nil {
		v.Set(ParamActive, strconv.FormatBool(*q.Active))
	}
	if q.SortBy != SortNone {
		v.Set(ParamSortBy, string(q.SortBy))
	}
	if q.MinPrice != nil {
		v.Set(ParamMinPrice, strconv.FormatFloat(*q.MinPrice, 'f', -1, 64))
	}
	if q.MaxPrice != nil {
		v.Set(ParamMaxPrice, strconv.FormatFloat(*q.MaxPrice, 'f', -1, 64))
	}
	return v
}

// PageURL returns base with q's parameters and the given page.
func (q Query) PageURL(base string, page int) string {
	q.Page = page
	return withQuery(base, q.Values())
}

// WithFilter returns q with one filter parameter replaced and the page reset, the way a
// filter control change behaves. An empty value removes the filter.
func (q Query) WithFilter(name, value string) Query {
	v := q.Values()
	if value == "" {
		v.Del(name)
	} else {
		v.Set(name, value)
	}
	v.Del(ParamPage)
	return ParseQuery(v)
}

// HasActiveFilters reports whether any user-facing filter or ordering is set.
func (q Query) HasActiveFilters() bool {
	return q.Search != "" || q.Category != "" || q.SortBy != SortNone || q.MinPrice != nil || q.MaxPrice != nil
}

// ClearFilters returns the unfiltered first page, keeping the page size.
func (q Query) ClearFilters() Query {
	return Query{Limit: q.Limit}
}

func withQuery(base string, v url.Values) string {
	enc := v.Encode()
	if enc == "" {
		return base
	}
	return base + "?" + enc
}

package course

import (
	"encoding/json"
	"net/url"
	"testing"
)

func TestParseQueryIgnoresMalformedInput(t *testing.T) {
	v, _ := url.ParseQuery("page=abc&limit=-3&minPrice=cheap&maxPrice=NaN&active=maybe&search=%20go%20&sortBy=price-asc")
	q := ParseQuery(v)

	if q.Page != 0 || q.Limit != 0 {
		t.Fatalf("expected malformed page/limit to be unset, got %d/%d", q.Page, q.Limit)
	}
	if q.MinPrice != nil || q.MaxPrice != nil {
		t.Fatalf("expected non-numeric prices to be unset, got %v/%v", q.MinPrice, q.MaxPrice)
	}
	if q.Active != nil {
		t.Fatal("expected malformed active to be unset")
	}
	if q.Search != "go" || q.SortBy != SortPriceAsc {
		t.Fatalf("unexpected query %+v", q)
	}
}

func TestNormalizeAndServerValues(t *testing.T) {
	active := false
	q := Query{
		Search:   "",
		Category: "cat-1",
		Active:   &active,
		SortBy:   SortTitleAsc,
		MinPrice: f64(5),
	}.Normalize(DefaultLimits())

	if q.Page != 1 || q.Limit != 10 {
		t.Fatalf("defaults not applied: %+v", q)
	}

	got := q.ServerValues()
	want := url.Values{"page": {"1"}, "limit": {"10"}, "category": {"cat-1"}, "active": {"false"}}
	if got.Encode() != want.Encode() {
		t.Fatalf("server values %q, want %q", got.Encode(), want.Encode())
	}

	if capped := (Query{Limit: 500}).Normalize(Limits{DefaultLimit: 10, MaxLimit: 50}); capped.Limit != 50 {
		t.Fatalf("limit not capped: %d", capped.Limit)
	}
}

func TestPageURLAndFilters(t *testing.T) {
	v, _ := url.ParseQuery("page=3&category=design&minPrice=10&sortBy=price-desc")
	q := ParseQuery(v)

	if got := q.PageURL("/courses", 4); got != "/courses?category=design&minPrice=10&page=4&sortBy=price-desc" {
		t.Fatalf("unexpected page url %s", got)
	}
	if got := q.PageURL("/courses", 1); got != "/courses?category=design&minPrice=10&sortBy=price-desc" {
		t.Fatalf("page 1 should be implicit: %s", got)
	}

	changed := q.WithFilter(ParamCategory, "code")
	if changed.Page != 0 || changed.Category != "code" || changed.SortBy != SortPriceDesc {
		t.Fatalf("filter change must reset page and keep others: %+v", changed)
	}
	removed := q.WithFilter(ParamMinPrice, "")
	if removed.MinPrice != nil {
		t.Fatal("empty value must remove the filter")
	}

	if !q.HasActiveFilters() {
		t.Fatal("expected active filters")
	}
	if cleared := q.ClearFilters(); cleared.HasActiveFilters() || cleared.PageURL("/courses", 1) != "/courses" {
		t.Fatalf("clear filters left %+v", cleared)
	}
}

func TestRefAcceptsIDOrObject(t *testing.T) {
	var c Course
	if err := json.Unmarshal([]byte(`{"_id":"c1","title":"Go","price":10,"active":true,"category":"cat-9","instructor":{"_id":"i1","fullName":"Ada"}}`), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c.Category == nil || c.Category.ID != "cat-9" {
		t.Fatalf("bare id category not read: %+v", c.Category)
	}
	if c.Instructor == nil || c.Instructor.FullName != "Ada" {
		t.Fatalf("object instructor not read: %+v", c.Instructor)
	}
}

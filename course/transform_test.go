package course

import (
	"math/rand"
	"testing"

	"golang.org/x/text/language"
)

func f64(v float64) *float64 { return &v }

func randomCourses(r *rand.Rand, n int) []Course {
	out := make([]Course, n)
	for i := range out {
		out[i] = Course{ID: string(rune('a' + i%26)), Title: string(rune('A' + r.Intn(26))), Price: float64(r.Intn(50))}
	}
	return out
}

func TestSortByPriceIsMonotonic(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for round := 0; round < 50; round++ {
		batch := randomCourses(r, r.Intn(30))

		asc := Sort(batch, SortPriceAsc, language.English)
		for i := 1; i < len(asc); i++ {
			if asc[i-1].Price > asc[i].Price {
				t.Fatalf("price-asc not non-decreasing at %d: %v > %v", i, asc[i-1].Price, asc[i].Price)
			}
		}
		desc := Sort(batch, SortPriceDesc, language.English)
		for i := 1; i < len(desc); i++ {
			if desc[i-1].Price < desc[i].Price {
				t.Fatalf("price-desc not non-increasing at %d", i)
			}
		}
	}
}

func TestSortIsStableAndDoesNotMutate(t *testing.T) {
	in := []Course{
		{ID: "1", Price: 5},
		{ID: "2", Price: 1},
		{ID: "3", Price: 5},
		{ID: "4", Price: 1},
	}
	out := Sort(in, SortPriceAsc, language.English)

	want := []string{"2", "4", "1", "3"}
	for i, id := range want {
		if out[i].ID != id {
			t.Fatalf("position %d: got %s want %s", i, out[i].ID, id)
		}
	}
	if in[0].ID != "1" || in[1].ID != "2" {
		t.Fatal("input slice was reordered")
	}
}

func TestSortByTitleUsesCollation(t *testing.T) {
	in := []Course{
		{Title: "zebra"},
		{Title: "Éclair"},
		{Title: "apple"},
		{Title: "Banana"},
	}

	asc := Sort(in, SortTitleAsc, language.English)
	want := []string{"apple", "Banana", "Éclair", "zebra"}
	for i, title := range want {
		if asc[i].Title != title {
			t.Fatalf("title-asc position %d: got %q want %q", i, asc[i].Title, title)
		}
	}

	desc := Sort(in, SortTitleDesc, language.English)
	for i, title := range want {
		if desc[len(desc)-1-i].Title != title {
			t.Fatalf("title-desc position %d: got %q", len(desc)-1-i, desc[len(desc)-1-i].Title)
		}
	}
}

func TestSortUnknownKeepsOrder(t *testing.T) {
	in := []Course{{ID: "b", Price: 2}, {ID: "a", Price: 1}}
	for _, by := range []SortBy{SortNone, "newest", "PRICE-ASC"} {
		out := Sort(in, by, language.English)
		if out[0].ID != "b" || out[1].ID != "a" {
			t.Fatalf("sort %q reordered the batch", by)
		}
	}
	if out := Sort(nil, SortPriceAsc, language.English); out == nil || len(out) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", out)
	}
}

func TestFilterByPrice(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	batch := randomCourses(r, 40)

	for _, m := range []float64{0, 10, 25, 49, 60} {
		for _, c := range FilterByPrice(batch, f64(m), nil) {
			if c.Price < m {
				t.Fatalf("minPrice=%v kept price %v", m, c.Price)
			}
		}
	}

	if got := FilterByPrice(batch, f64(30), f64(10)); len(got) != 0 {
		t.Fatalf("minPrice > maxPrice must be empty, got %d", len(got))
	}
	if got := FilterByPrice(batch, nil, nil); len(got) != len(batch) {
		t.Fatalf("no bounds must keep everything, got %d of %d", len(got), len(batch))
	}

	exact := FilterByPrice([]Course{{Price: 10}, {Price: 10.5}, {Price: 20}}, f64(10), f64(20))
	if len(exact) != 3 {
		t.Fatalf("bounds are inclusive, got %d", len(exact))
	}
}

package course

import (
	"cmp"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// FilterByPrice returns the courses with lo <= price <= hi. A nil bound is not applied.
// When lo > hi the result is empty. courses is not modified.
func FilterByPrice(courses []Course, lo, hi *float64) []Course {
	out := make([]Course, 0, len(courses))
	for _, c := range courses {
		if lo != nil && c.Price < *lo {
			continue
		}
		if hi != nil && c.Price > *hi {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Sort returns a copy of courses ordered by by. Titles are compared with the collation rules
// of tag. Unknown orderings return the input order. The sort is stable.
func Sort(courses []Course, by SortBy, tag language.Tag) []Course {
	out := slices.Clone(courses)
	if out == nil {
		out = []Course{}
	}

	switch by {
	case SortPriceAsc:
		slices.SortStableFunc(out, func(a, b Course) int { return cmp.Compare(a.Price, b.Price) })
	case SortPriceDesc:
		slices.SortStableFunc(out, func(a, b Course) int { return cmp.Compare(b.Price, a.Price) })
	case SortTitleAsc, SortTitleDesc:
		// A Collator keeps scratch buffers and must not be shared between goroutines.
		col := collate.New(tag)
		if by == SortTitleAsc {
			slices.SortStableFunc(out, func(a, b Course) int { return col.CompareString(a.Title, b.Title) })
		} else {
			slices.SortStableFunc(out, func(a, b Course) int { return col.CompareString(b.Title, a.Title) })
		}
	}
	return out
}

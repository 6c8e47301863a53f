package course

import "strconv"

// maxVisiblePages is the page count up to which every page gets a marker.
const maxVisiblePages = 7

// Marker is one element of a pagination control: a page number or a gap.
type Marker struct {
	Page     int  `json:"page,omitempty"`
	Ellipsis bool `json:"ellipsis,omitempty"`
}

func (m Marker) String() string {
	if m.Ellipsis {
		return "..."
	}
	return strconv.Itoa(m.Page)
}

func page(n int) Marker { return Marker{Page: n} }

var gap = Marker{Ellipsis: true}

// PageMarkers returns the markers for a control showing current of total pages. With more
// than seven pages it keeps the first and last page and three pages around current,
// collapsing each gap into one ellipsis; near either end five pages are shown on that side.
func PageMarkers(current, total int) []Marker {
	if total < 1 {
		return nil
	}
	current = max(1, min(current, total))

	if total <= maxVisiblePages {
		out := make([]Marker, 0, total)
		for i := 1; i <= total; i++ {
			out = append(out, page(i))
		}
		return out
	}

	out := []Marker{page(1)}
	switch {
	case current <= 3:
		for i := 2; i <= 5; i++ {
			out = append(out, page(i))
		}
		out = append(out, gap, page(total))
	case current >= total-2:
		out = append(out, gap)
		for i := total - 4; i <= total; i++ {
			out = append(out, page(i))
		}
	default:
		out = append(out, gap, page(current-1), page(current), page(current+1), gap, page(total))
	}
	return out
}

// HasPrev reports whether a previous page exists.
func HasPrev(current int) bool {
	return current > 1
}

// HasNext reports whether a next page exists.
func HasNext(current, total int) bool {
	return current < total
}

// Step moves from current by delta pages. Moves past either end return current unchanged.
func Step(current, total, delta int) int {
	next := current + delta
	if next < 1 || next > total {
		return current
	}
	return next
}

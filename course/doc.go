// Package course turns catalogue query parameters into a listing: one backend request for the
// server-supported subset, then a local price filter and sort, then page markers for the
// pagination control.
//
// The backend's pagination block is passed through unchanged. Local filtering only narrows
// the current page, so Listing also reports how many courses are shown and whether the local
// filter removed any; callers should present "shown" rather than the backend total when
// Filtered is set.
package course

// Package pagination computes page slicing parameters and page metadata
// shared by every list operation.
package pagination

// DefaultLimit is the page size used when the caller supplies none.
const DefaultLimit = 10

// MaxLimit caps the page size a caller may request.
const MaxLimit = 50

// Params holds sanitized page/limit values.
type Params struct {
	Page  int
	Limit int
}

// NewParams coerces page to >= 1 and clamps limit to [1, MaxLimit].
// Zero or negative limit falls back to DefaultLimit.
func NewParams(page, limit int) Params {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Params{Page: page, Limit: limit}
}

// Offset returns the row offset of the first item on the page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Page is a bounded slice of an ordered result set plus metadata describing
// its position within the whole. JSON field names follow the public API.
type Page[T any] struct {
	Items           []T   `json:"items"`
	TotalItems      int64 `json:"totalItems"`
	TotalPages      int   `json:"totalPages"`
	CurrentPage     int   `json:"currentPage"`
	ItemsPerPage    int   `json:"itemsPerPage"`
	HasNextPage     bool  `json:"hasNextPage"`
	HasPreviousPage bool  `json:"hasPreviousPage"`
}

// New assembles a Page from the fetched items and the total match count.
// A page past the end yields an empty (non-nil) items slice with valid
// metadata; that is not an error.
func New[T any](items []T, total int64, p Params) Page[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return Page[T]{
		Items:           items,
		TotalItems:      total,
		TotalPages:      totalPages,
		CurrentPage:     p.Page,
		ItemsPerPage:    p.Limit,
		HasNextPage:     int64(p.Page)*int64(p.Limit) < total,
		HasPreviousPage: p.Page > 1,
	}
}

package models

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
	// MaxPage bounds the offset far below any integer overflow.
	MaxPage        = 1_000_000
)

type Page struct {
	Page    int `form:"page"`
	PerPage int `form:"per_page"`
}

// Normalize clamps the page into a valid window, falling back to
// defaultPerPage when the client did not ask for a size.
func (p Page) Normalize(defaultPerPage int) Page {
	if defaultPerPage <= 0 {
		defaultPerPage = DefaultPerPage
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.PerPage <= 0 {
		p.PerPage = defaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

func (p Page) Offset() uint {
	if p.Page <= 1 || p.PerPage <= 0 {
		return 0
	}
	return uint(min(p.Page, MaxPage)-1) * uint(min(p.PerPage, MaxPerPage))
}

type PagedResult[T any] struct {
	Items   []T   `json:"items"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
}

package model

// Pagination represents common pagination parameters
type Pagination struct {
	Page     int `json:"page" form:"page"`
	PageSize int `json:"page_size" form:"page_size"`
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Normalize clamps p to a zero-based page and a page size in [1, MaxPageSize].
func (p Pagination) Normalize() Pagination {
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	if p.Page < 0 {
		p.Page = 0
	}
	return p
}

// PageOf returns the p-th page of items together with its metadata.
func PageOf[T any](items []T, p Pagination) ([]T, PageInfo) {
	p = p.Normalize()
	total := len(items)
	pages := (total + p.PageSize - 1) / p.PageSize

	start := p.Page * p.PageSize
	if start > total {
		start = total
	}
	end := start + p.PageSize
	if end > total {
		end = total
	}

	return items[start:end], PageInfo{
		Page:     p.Page,
		PageSize: p.PageSize,
		Total:    total,
		Pages:    pages,
	}
}

// PageInfo describes one page of a larger result
type PageInfo struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
	Pages    int `json:"total_pages"`
}

package util

import "strconv"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type PageMeta struct {
	Page       int  `json:"page"`
	Size       int  `json:"size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasPrev    bool `json:"has_prev"`
	HasNext    bool `json:"has_next"`
}

func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func Calculate(page, size int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return (page - 1) * size, size
}

// Paginate returns one page of items. Pages past the end are empty.
func Paginate[T any](items []T, page, size int) ([]T, PageMeta) {
	offset, limit := Calculate(page, size)
	if page < 1 {
		page = 1
	}
	total := len(items)

	meta := PageMeta{
		Page:       page,
		Size:       limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
		HasPrev:    page > 1,
		HasNext:    offset+limit < total,
	}
	if offset >= total {
		return []T{}, meta
	}
	end := min(offset+limit, total)
	return items[offset:end], meta
}

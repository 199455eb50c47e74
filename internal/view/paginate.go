package view

// DefaultPageSize is the fixed list page size.
const DefaultPageSize = 10

// PageInfo describes one page of a client side list.
type PageInfo struct {
	Page       int
	PageSize   int
	TotalCount int
	TotalPages int
	HasNext    bool
	HasPrev    bool
}

// PageCount returns ceil(n/size). A non-positive size uses DefaultPageSize.
func PageCount(n, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	if n <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// Paginate returns the contiguous slice [(page-1)*size, page*size) of items.
// Pages before the first are treated as page 1; pages past the end are empty.
func Paginate[T any](items []T, page, size int) []T {
	if size <= 0 {
		size = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	out := make([]T, end-start)
	copy(out, items[start:end])
	return out
}

// NewPageInfo computes page metadata for total items.
func NewPageInfo(page, size, total int) PageInfo {
	if size <= 0 {
		size = DefaultPageSize
	}
	pages := PageCount(total, size)
	return PageInfo{
		Page:       page,
		PageSize:   size,
		TotalCount: total,
		TotalPages: pages,
		HasNext:    page < pages,
		HasPrev:    page > 1,
	}
}

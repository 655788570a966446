package models

// Page is a window over the cloud song collection.
//
// Total is authoritative from the most recent fetch response.
type Page struct {
	Number int `json:"number"` // 1-based
	Size   int `json:"size"`
	Total  int `json:"total"`
}

// TotalPages returns max(1, ceil(Total/Size)).
func (p Page) TotalPages() int {
	if p.Size <= 0 || p.Total <= 0 {
		return 1
	}
	return max(1, (p.Total+p.Size-1)/p.Size)
}

// Clamp bounds n to [1, TotalPages()].
func (p Page) Clamp(n int) int {
	return min(max(n, 1), p.TotalPages())
}

// Range returns the page numbers shown by a pagination control that displays at most maxVisible pages around the current one.
func (p Page) Range(maxVisible int) []int {
	total := p.TotalPages()
	if maxVisible <= 0 {
		maxVisible = 1
	}

	current := p.Clamp(p.Number)
	start, end := 1, total
	if total > maxVisible {
		half := maxVisible / 2
		start = current - half
		end = start + maxVisible - 1
		if start < 1 {
			start, end = 1, maxVisible
		} else if end > total {
			start, end = total-maxVisible+1, total
		}
	}

	pages := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		pages = append(pages, i)
	}
	return pages
}

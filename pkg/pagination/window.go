// Package pagination builds the page anchors shown under the task list
package pagination

const windowSize = 5

// Window is everything a template needs to draw the pager
type Window struct {
	Pages        []int `json:"pages"`
	FirstPage    int   `json:"first_page"`
	PreviousPage int   `json:"previous_page"`
	NextPage     int   `json:"next_page"`
	LastPage     int   `json:"last_page"`
	PageCount    int   `json:"page_count"`
	Current      int   `json:"current"`
	Total        int   `json:"total"`
}

// Render returns a sliding window of at most five page numbers around
// current together with the first/previous/next/last anchors.
//
// When current is the last page of the window, NextPage stays on current
// and LastPage points back to 1. Templates rely on that to wrap around.
func Render(total, current int) Window {
	if total < 1 {
		total = 1
	}

	current = max(1, min(current, total))

	var from, to int
	switch {
	case total <= windowSize || current <= 3:
		from, to = 1, min(total+1, windowSize)-1
	case current > total-3:
		from, to = total-4, total
	default:
		from, to = current-2, current+2
	}

	pages := make([]int, 0, to-from+1)
	for p := from; p <= to; p++ {
		pages = append(pages, p)
	}

	w := Window{
		Pages:        pages,
		FirstPage:    pages[0],
		PreviousPage: current - 1,
		PageCount:    len(pages),
		Current:      current,
		Total:        total,
	}

	if current == 1 {
		w.FirstPage = 1
		w.PreviousPage = 1
	}

	last := pages[len(pages)-1]
	if current == last {
		w.NextPage = current
		w.LastPage = 1
	} else {
		w.NextPage = min(current+1, total)
		w.LastPage = last
	}

	return w
}

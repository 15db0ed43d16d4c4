package search

// totalPages 向上取整的总页数；没有命中时为 0
func totalPages(total, perPage int) int {
	if total <= 0 || perPage < 1 {
		return 0
	}
	pages := total / perPage
	if total%perPage != 0 {
		pages++
	}
	return pages
}

// pageWindow 当前页前后各 10 页的窗口，首尾页始终在内
func pageWindow(cur, total int) []int {
	if total < 1 {
		return nil
	}
	lo := cur - 10
	if lo < 1 {
		lo = 1
	}
	hi := cur + 10
	if hi > total {
		hi = total
	}
	var window []int
	if lo > 1 {
		window = append(window, 1)
	}
	for p := lo; p <= hi; p++ {
		window = append(window, p)
	}
	if hi < total {
		window = append(window, total)
	}
	return window
}

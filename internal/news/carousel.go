// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package news

// Carousel is the position of a wrap-around slider over n items showing
// window items at a time.
type Carousel struct {
	n      int
	window int
	index  int
}

// NewCarousel creates a Carousel at index 0. window is clamped to [1, n].
func NewCarousel(n, window int) *Carousel {
	if window < 1 {
		window = 1
	}
	if n > 0 && window > n {
		window = n
	}
	return &Carousel{n: n, window: window}
}

// Len returns the number of items.
func (c *Carousel) Len() int { return c.n }

// Index returns the first visible item.
func (c *Carousel) Index() int { return c.index }

// Next advances one item, wrapping to the start.
func (c *Carousel) Next() {
	if c.n > 0 {
		c.index = (c.index + 1) % c.n
	}
}

// Prev moves back one item, wrapping to the end.
func (c *Carousel) Prev() {
	if c.n > 0 {
		c.index = (c.index - 1 + c.n) % c.n
	}
}

// GoTo jumps to i. Out-of-range positions are ignored and GoTo reports
// false.
func (c *Carousel) GoTo(i int) bool {
	if i < 0 || i >= c.n {
		return false
	}
	c.index = i
	return true
}

// NextIndex is the index Next would move to.
func (c *Carousel) NextIndex() int {
	if c.n == 0 {
		return 0
	}
	return (c.index + 1) % c.n
}

// PrevIndex is the index Prev would move to.
func (c *Carousel) PrevIndex() int {
	if c.n == 0 {
		return 0
	}
	return (c.index - 1 + c.n) % c.n
}

// Visible returns the indices currently on screen, wrapping past the end.
func (c *Carousel) Visible() []int {
	if c.n == 0 {
		return nil
	}
	out := make([]int, c.window)
	for i := range out {
		out[i] = (c.index + i) % c.n
	}
	return out
}

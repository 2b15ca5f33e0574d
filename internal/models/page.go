package models

import "strconv"

// ItemsPerPage is the ranking page size.
const ItemsPerPage = 10

// Page describes one page of a paginated result.
type Page struct {
	Number     int   `json:"number"`
	PerPage    int   `json:"per_page"`
	TotalItems int64 `json:"total_items"`
	NumPages   int   `json:"num_pages"`
}

// NewPage resolves a requested page number against a result size.
// Non-numeric or non-positive requests fall back to the first page and
// requests past the end land on the last page. An empty result still has
// one (empty) page.
func NewPage(requested string, total int64, perPage int) Page {
	if perPage <= 0 {
		perPage = ItemsPerPage
	}
	numPages := int((total + int64(perPage) - 1) / int64(perPage))
	if numPages < 1 {
		numPages = 1
	}

	number, err := strconv.Atoi(requested)
	switch {
	case err != nil || number < 1:
		number = 1
	case number > numPages:
		number = numPages
	}

	return Page{Number: number, PerPage: perPage, TotalItems: total, NumPages: numPages}
}

// Offset is the index of the first item on the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.PerPage
}

func (p Page) HasPrevious() bool { return p.Number > 1 }
func (p Page) HasNext() bool     { return p.Number < p.NumPages }
func (p Page) PreviousNumber() int {
	return p.Number - 1
}
func (p Page) NextNumber() int {
	return p.Number + 1
}

// Numbers lists every page number, for rendering page links.
func (p Page) Numbers() []int {
	out := make([]int, p.NumPages)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

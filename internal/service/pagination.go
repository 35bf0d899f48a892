package service

const (
	defaultPageSize = 20
	maxPageSize     = 100
	// MaxPageNumber keeps the offset product far from integer overflow.
	MaxPageNumber = 10000
)

// Page is a 1-based page request.
type Page struct {
	Number int
	Size   int
}

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	switch {
	case p.Number < 1:
		p.Number = 1
	case p.Number > MaxPageNumber:
		p.Number = MaxPageNumber
	}
	switch {
	case p.Size <= 0:
		p.Size = defaultPageSize
	case p.Size > maxPageSize:
		p.Size = maxPageSize
	}
	return p
}

// Limit returns the row limit.
func (p Page) Limit() int { return p.Normalize().Size }

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	n := p.Normalize()
	return (n.Number - 1) * n.Size
}

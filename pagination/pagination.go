package pagination

import (
	"math"
	"net/url"
	"strconv"

	"github.com/samber/lo"
)

// Query parameter names.
const (
	ParamOffset = "pagination_offset"
	ParamLimit  = "pagination_limit"
)

// Params selects one page. Offset is a page index, not an item count.
type Params struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// Start returns the index of the first item of the page. Pages beyond
// the int range start at math.MaxInt.
func (p Params) Start() int {
	if p.Offset <= 0 || p.Limit <= 0 {
		return 0
	}
	if p.Offset > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return p.Offset * p.Limit
}

// Normalize clamps the values to the bounds of cfg.
func (p *Params) Normalize(cfg Config) {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit < 1 {
		p.Limit = cfg.DefaultLimit
	}
	if cfg.MaxLimit > 0 && p.Limit > cfg.MaxLimit {
		p.Limit = cfg.MaxLimit
	}
}

// FromQuery reads pagination_offset and pagination_limit. Missing or
// malformed values fall back to the first page of cfg.DefaultLimit items.
func FromQuery(values url.Values, cfg Config) Params {
	offset, _ := strconv.Atoi(values.Get(ParamOffset))
	limit, _ := strconv.Atoi(values.Get(ParamLimit))

	p := Params{Offset: offset, Limit: limit}
	p.Normalize(cfg)
	return p
}

// Paginate returns the page of items selected by p. Pages past the end
// are empty.
func Paginate[T any](items []T, p Params) []T {
	start := p.Start()
	if p.Limit < 1 || start >= len(items) {
		return []T{}
	}
	return lo.Subset(items, start, uint(p.Limit))
}

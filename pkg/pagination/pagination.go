// Package pagination provides limit/offset handling for list endpoints.
// Clamping happens here at the route boundary; repositories receive values
// that are already normalized.
package pagination

import (
	"net/url"
	"strconv"
)

// LimitOffset represents a normalized window over an ordered collection.
type LimitOffset struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Normalize clamps the window to the configured bounds: limit to
// [1, MaxLimit] with DefaultLimit when unset, offset to >= 0.
func (p *LimitOffset) Normalize(cfg Config) {
	if p.Limit < 1 {
		p.Limit = cfg.DefaultLimit
	}
	if p.Limit > cfg.MaxLimit {
		p.Limit = cfg.MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// FromQuery parses limit and offset from URL query values and normalizes
// the result according to the provided config.
func FromQuery(values url.Values, cfg Config) LimitOffset {
	limit, _ := strconv.Atoi(values.Get("limit"))
	offset, _ := strconv.Atoi(values.Get("offset"))

	p := LimitOffset{Limit: limit, Offset: offset}
	p.Normalize(cfg)
	return p
}

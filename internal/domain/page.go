package domain

import (
	"encoding/json"
	"errors"
)

// Search result types reported in the "type" field of a listing page.
const (
	PageTypeSearchResult  = "search_result"
	PageTypeCorrectedTerm = "corrected_term"
	PageTypeNoHit         = "no_hit"
)

// RawPage is a single undecoded API response page. Only the handful of
// fields the crawler relies on get accessors, everything else stays opaque.
type RawPage json.RawMessage

func (p RawPage) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}
	return p, nil
}

func (p *RawPage) UnmarshalJSON(data []byte) error {
	if p == nil {
		return errors.New("domain.RawPage: UnmarshalJSON on nil pointer")
	}
	*p = append((*p)[0:0], data...)
	return nil
}

// Type returns the page "type" field, empty when absent.
func (p RawPage) Type() string {
	var page struct {
		Type string `json:"type"`
	}
	_ = json.Unmarshal(p, &page)
	return page.Type
}

// TotalPages returns pagination.totalPages and whether it was present.
func (p RawPage) TotalPages() (int, bool) {
	var page struct {
		Pagination struct {
			TotalPages *int `json:"totalPages"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(p, &page); err != nil || page.Pagination.TotalPages == nil {
		return 0, false
	}
	return *page.Pagination.TotalPages, true
}

// Facets returns the filter groups shipped with a listing page.
func (p RawPage) Facets() []Facet {
	var page struct {
		Facets []Facet `json:"facets"`
	}
	_ = json.Unmarshal(p, &page)
	return page.Facets
}

// List returns the top level array stored under key.
func (p RawPage) List(key string) []json.RawMessage {
	var page map[string]json.RawMessage
	if err := json.Unmarshal(p, &page); err != nil {
		return nil
	}
	var list []json.RawMessage
	_ = json.Unmarshal(page[key], &list)
	return list
}

// Embedded returns the array stored under _embedded.<key>.
func (p RawPage) Embedded(key string) []json.RawMessage {
	return Embedded(json.RawMessage(p), key)
}

// Embedded returns the array stored under _embedded.<key> of any HAL style
// object, nil when either level is missing.
func Embedded(obj json.RawMessage, key string) []json.RawMessage {
	var holder struct {
		Embedded map[string]json.RawMessage `json:"_embedded"`
	}
	if err := json.Unmarshal(obj, &holder); err != nil {
		return nil
	}
	var list []json.RawMessage
	_ = json.Unmarshal(holder.Embedded[key], &list)
	return list
}

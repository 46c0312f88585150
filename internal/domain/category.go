package domain

import (
	"encoding/json"
	"fmt"
)

// Facet is a filter group of a listing page, e.g. "category" or "brand".
type Facet struct {
	Name        string            `json:"name"`
	Constraints []FacetConstraint `json:"facetConstraints"`
}

// FacetConstraint is one selectable value of a facet. Constraints of the
// category facet nest into a tree through SubConstraints.
type FacetConstraint struct {
	Name           string             `json:"name"`
	Slug           string             `json:"slug"`
	Count          int                `json:"count"`
	Selected       bool               `json:"selected"`
	SubConstraints *[]FacetConstraint `json:"subFacetConstraints,omitempty"`

	// Extra holds every other upstream key as sorted compact JSON, "" when
	// there are none.
	Extra string `json:"-"`
}

var constraintKeys = []string{"name", "slug", "count", "selected", "subFacetConstraints"}

func (c *FacetConstraint) UnmarshalJSON(data []byte) error {
	type plain FacetConstraint
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for _, key := range constraintKeys {
		delete(fields, key)
	}
	if len(fields) > 0 {
		// maps marshal with sorted keys at every level
		extra, err := json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("failed to encode constraint fields: %w", err)
		}
		p.Extra = string(extra)
	}

	*c = FacetConstraint(p)
	return nil
}

// HasChildren reports whether the constraint carries a subFacetConstraints key.
func (c FacetConstraint) HasChildren() bool {
	return c.SubConstraints != nil
}

// Category is a flattened leaf of the category tree. Two categories are the
// same iff all fields, Extra included, are equal, so the struct must stay
// comparable.
type Category struct {
	Name     string
	Slug     string
	Count    int
	Selected bool
	Extra    string
}

func (c FacetConstraint) Category() Category {
	return Category{
		Name:     c.Name,
		Slug:     c.Slug,
		Count:    c.Count,
		Selected: c.Selected,
		Extra:    c.Extra,
	}
}

// MarshalJSON writes the category as one flat object, extra keys included.
func (c Category) MarshalJSON() ([]byte, error) {
	fields := map[string]any{}
	if c.Extra != "" {
		if err := json.Unmarshal([]byte(c.Extra), &fields); err != nil {
			return nil, fmt.Errorf("invalid extra fields: %w", err)
		}
	}
	fields["name"] = c.Name
	fields["slug"] = c.Slug
	fields["count"] = c.Count
	fields["selected"] = c.Selected
	return json.Marshal(fields)
}

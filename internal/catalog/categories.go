// Package catalog flattens the category facet tree of listing pages.
package catalog

import (
	"iter"
	"strings"

	"rewe/crawler/internal/domain"
)

const categoryFacet = "category"

// Categories collects every category leaf found in pages, de-duplicated by
// full field identity in first seen order. A page error aborts the walk; the
// categories gathered so far are returned with it.
func Categories(pages iter.Seq2[domain.RawPage, error]) ([]domain.Category, error) {
	var flat []domain.Category
	for page, err := range pages {
		if err != nil {
			return unique(flat), err
		}
		flat = append(flat, PageCategories(page)...)
	}
	return unique(flat), nil
}

// PageCategories flattens the category facet of a single page.
func PageCategories(page domain.RawPage) []domain.Category {
	var out []domain.Category
	for _, constraint := range categoryConstraints(page) {
		out = collect(out, constraint)
	}
	return out
}

func categoryConstraints(page domain.RawPage) []domain.FacetConstraint {
	for _, facet := range page.Facets() {
		if strings.EqualFold(facet.Name, categoryFacet) {
			return facet.Constraints
		}
	}
	return nil
}

// collect appends c when it is a leaf, otherwise descends into its children.
func collect(out []domain.Category, c domain.FacetConstraint) []domain.Category {
	if !c.HasChildren() {
		return append(out, c.Category())
	}
	for _, sub := range *c.SubConstraints {
		out = collect(out, sub)
	}
	return out
}

func unique(categories []domain.Category) []domain.Category {
	seen := make(map[domain.Category]struct{}, len(categories))
	out := make([]domain.Category, 0, len(categories))
	for _, c := range categories {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Names returns the unique category names.
func Names(categories []domain.Category) []string {
	return uniqueStrings(categories, func(c domain.Category) string { return c.Name })
}

// Slugs returns the unique category slugs, e.g. "kochen-backen".
func Slugs(categories []domain.Category) []string {
	return uniqueStrings(categories, func(c domain.Category) string { return c.Slug })
}

func uniqueStrings(categories []domain.Category, field func(domain.Category) string) []string {
	seen := make(map[string]struct{}, len(categories))
	var out []string
	for _, c := range categories {
		v := field(c)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

package catalog

import (
	"errors"
	"iter"
	"testing"

	"rewe/crawler/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const facetPage = `{
	"facets": [
		{"name": "brand", "facetConstraints": [{"name": "REWE", "slug": "rewe", "count": 9}]},
		{"name": "Category", "facetConstraints": [
			{"name": "Käse", "slug": "kaese", "count": 3, "subFacetConstraints": [
				{"name": "Gouda", "slug": "gouda", "count": 2},
				{"name": "Feta", "slug": "feta", "count": 1, "subFacetConstraints": [
					{"name": "Schafskäse", "slug": "schafskaese", "count": 1}
				]}
			]},
			{"name": "Brot", "slug": "brot", "count": 4}
		]}
	]
}`

func seq(pages ...domain.RawPage) iter.Seq2[domain.RawPage, error] {
	return func(yield func(domain.RawPage, error) bool) {
		for _, p := range pages {
			if !yield(p, nil) {
				return
			}
		}
	}
}

func TestCategoriesCollectsLeavesAtAnyDepth(t *testing.T) {
	categories, err := Categories(seq(domain.RawPage(facetPage)))
	require.NoError(t, err)

	assert.Equal(t, []domain.Category{
		{Name: "Gouda", Slug: "gouda", Count: 2},
		{Name: "Schafskäse", Slug: "schafskaese", Count: 1},
		{Name: "Brot", Slug: "brot", Count: 4},
	}, categories)
}

func TestCategoriesDeduplicatesAcrossPages(t *testing.T) {
	categories, err := Categories(seq(domain.RawPage(facetPage), domain.RawPage(facetPage)))
	require.NoError(t, err)
	assert.Len(t, categories, 3)

	assert.Equal(t, []string{"Gouda", "Schafskäse", "Brot"}, Names(categories))
	assert.Equal(t, []string{"gouda", "schafskaese", "brot"}, Slugs(categories))
}

func TestCategoriesKeepsDifferingCounts(t *testing.T) {
	other := `{"facets":[{"name":"category","facetConstraints":[{"name":"Brot","slug":"brot","count":5}]}]}`

	categories, err := Categories(seq(domain.RawPage(facetPage), domain.RawPage(other)))
	require.NoError(t, err)

	assert.Len(t, categories, 4)
	assert.Equal(t, []string{"Gouda", "Schafskäse", "Brot"}, Names(categories))
}

func TestCategoriesKeepsRecordsDifferingInExtraFields(t *testing.T) {
	page := `{"facets":[{"name":"category","facetConstraints":[
		{"name":"Kaese","slug":"kaese","count":3,"id":"1"},
		{"name":"Kaese","slug":"kaese","count":3,"id":"2"},
		{"name":"Kaese","slug":"kaese","count":3,"id":"1"}
	]}]}`

	categories, err := Categories(seq(domain.RawPage(page)))
	require.NoError(t, err)

	assert.Equal(t, []domain.Category{
		{Name: "Kaese", Slug: "kaese", Count: 3, Extra: `{"id":"1"}`},
		{Name: "Kaese", Slug: "kaese", Count: 3, Extra: `{"id":"2"}`},
	}, categories)
	assert.Equal(t, []string{"Kaese"}, Names(categories))
}

func TestCategoriesWithoutFacets(t *testing.T) {
	categories, err := Categories(seq(domain.RawPage(`{"_embedded":{"products":[]}}`)))
	require.NoError(t, err)
	assert.Empty(t, categories)
}

func TestCategoriesStopsAtPageError(t *testing.T) {
	boom := errors.New("boom")
	pages := func(yield func(domain.RawPage, error) bool) {
		if !yield(domain.RawPage(facetPage), nil) {
			return
		}
		yield(nil, boom)
	}

	categories, err := Categories(pages)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, categories, 3)
}

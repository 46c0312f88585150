package store

import (
	"context"
	"fmt"
	"io"
	"iter"
	"slices"

	"rewe/crawler/internal/domain"
	"rewe/crawler/internal/resolver"

	log "github.com/sirupsen/logrus"
)

// FromLinks resolves product urls to products with a single product-tiles
// lookup. Urls without a product id are ignored.
func (s *Store) FromLinks(ctx context.Context, urls []string) ([]domain.Product, error) {
	var ids []string
	for _, u := range urls {
		if !resolver.IsProductURL(u) {
			log.Debugf("Ignoring non product url %s", u)
			continue
		}
		if id := resolver.IDFromURL(u); id != "" && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: %w", domain.ErrPrecondition, domain.ErrMissingIDs)
	}

	records, err := s.ProductInfos(ctx, IDSet{ProductIDs: ids})
	if err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(records))
	for product := range s.parser.ParseProductInfos(records) {
		products = append(products, product)
	}
	return products, nil
}

// FromLinksOfCategories yields the products of every category url, one
// category listing after the other.
func (s *Store) FromLinksOfCategories(ctx context.Context, urls []string, maxPage int) iter.Seq2[domain.Product, error] {
	slugs := make([]string, 0, len(urls))
	for _, u := range urls {
		if slug := resolver.IDFromURL(u); slug != "" && resolver.IsCategoryURL(u) {
			slugs = append(slugs, slug)
		}
	}
	return s.FromCategorySlugs(ctx, slugs, maxPage)
}

// FromCategorySlugs yields the products of every category slug.
func (s *Store) FromCategorySlugs(ctx context.Context, slugs []string, maxPage int) iter.Seq2[domain.Product, error] {
	return func(yield func(domain.Product, error) bool) {
		for _, slug := range slugs {
			pages, err := s.SearchCategory(ctx, slug, maxPage)
			if err != nil {
				yield(domain.Product{}, err)
				return
			}
			for product, err := range s.parser.ParseSearchCategory(pages) {
				if !yield(product, err) || err != nil {
					return
				}
			}
		}
	}
}

// FromLinkFile reads a link file and resolves its product and category links.
func (s *Store) FromLinkFile(ctx context.Context, path string, maxPage int) ([]domain.Product, error) {
	links, err := resolver.ReadLinkFile(path)
	if err != nil {
		return nil, err
	}

	var products []domain.Product
	if len(links.ProductURLs) > 0 {
		found, err := s.FromLinks(ctx, links.ProductURLs)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve product links of %s: %w", path, err)
		}
		products = append(products, found...)
	}

	for product, err := range s.FromCategorySlugs(ctx, links.CategorySlugs, maxPage) {
		if err != nil {
			return products, fmt.Errorf("failed to resolve category links of %s: %w", path, err)
		}
		products = append(products, product)
	}

	log.Infof("📄 %s: %d products from %d product and %d category links",
		path, len(products), len(links.ProductURLs), len(links.CategorySlugs))

	return products, nil
}

// ParseWebsiteLinks resolves the product links found in an html document.
func (s *Store) ParseWebsiteLinks(ctx context.Context, html io.Reader) ([]domain.Product, error) {
	urls, err := resolver.ExtractProductLinks(html, s.gateway.BaseURL())
	if err != nil {
		return nil, err
	}
	return s.FromLinks(ctx, urls)
}

// Package parser normalizes the upstream product shapes into domain.Product.
package parser

import (
	"encoding/json"
	"iter"
	"slices"

	"rewe/crawler/internal/domain"

	log "github.com/sirupsen/logrus"
)

const DefaultLinkBase = "https://rewe.de/produkte/"

type Parser struct {
	store    string
	linkBase string
}

func NewParser() *Parser {
	return &Parser{
		store:    domain.StoreName,
		linkBase: DefaultLinkBase,
	}
}

type productFields struct {
	title    string
	id       string
	alias    string
	brand    string
	picture  string
	price    Cents
	oldPrice Cents
}

// newProduct is where both shapes converge. A missing or zero regular price
// means there is no discount; a regular price below the current one is
// treated the same so Saved is never negative.
func (p *Parser) newProduct(f productFields) domain.Product {
	price := PriceCentToNumeric(f.price)
	oldPrice := PriceCentToNumeric(f.oldPrice)
	if oldPrice.IsZero() || oldPrice.LessThan(price) {
		oldPrice = price
	}

	linkID := f.alias
	if linkID == "" {
		linkID = f.id
	}

	return domain.Product{
		Store:     p.store,
		Title:     f.title,
		Link:      p.linkBase + linkID,
		ProductID: f.id,
		Price:     price,
		OldPrice:  oldPrice,
		Saved:     CalculateSavings(oldPrice, price),
		Brand:     f.brand,
		Picture:   f.picture,
	}
}

// Product converts an already decoded record.
func (p *Parser) Product(r Record) domain.Product {
	return r.toProduct(p)
}

// Normalize decodes raw in whatever shape it is and converts it.
func (p *Parser) Normalize(raw json.RawMessage) (domain.Product, error) {
	r, err := DecodeRecord(raw)
	if err != nil {
		return domain.Product{}, err
	}
	return p.Product(r), nil
}

// ProductFromEmbedded converts one product of an offers or alternatives list.
func (p *Parser) ProductFromEmbedded(raw json.RawMessage) (domain.Product, error) {
	e, err := DecodeEmbedded(raw)
	if err != nil {
		return domain.Product{}, err
	}
	return p.Product(e), nil
}

// ProductFromInfo converts one product-tiles record.
func (p *Parser) ProductFromInfo(raw json.RawMessage) (domain.Product, error) {
	f, err := DecodeFlat(raw)
	if err != nil {
		return domain.Product{}, err
	}
	return p.Product(f), nil
}

// ParseProductInfos converts product-tiles records, skipping undecodable ones.
func (p *Parser) ParseProductInfos(records []json.RawMessage) iter.Seq[domain.Product] {
	return p.parseAll(records, p.ProductFromInfo)
}

// ParseProductFromOffers converts embedded products, skipping undecodable ones.
func (p *Parser) ParseProductFromOffers(records []json.RawMessage) iter.Seq[domain.Product] {
	return p.parseAll(records, p.ProductFromEmbedded)
}

func (p *Parser) parseAll(records []json.RawMessage, convert func(json.RawMessage) (domain.Product, error)) iter.Seq[domain.Product] {
	return func(yield func(domain.Product) bool) {
		for _, raw := range records {
			product, err := convert(raw)
			if err != nil {
				log.Warnf("Skipping product record: %v", err)
				continue
			}
			if !yield(product) {
				return
			}
		}
	}
}

// SearchResultsProducts returns the _embedded.products list of a page.
func (p *Parser) SearchResultsProducts(page domain.RawPage) []json.RawMessage {
	return page.Embedded("products")
}

// PageProducts normalizes one listing page, highest saving first. Products
// with equal savings keep their upstream order.
func (p *Parser) PageProducts(page domain.RawPage) []domain.Product {
	products := slices.Collect(p.ParseProductFromOffers(p.SearchResultsProducts(page)))
	SortBySaved(products)
	return products
}

// ParseSearchResultsProducts normalizes every page of pages in order. A page
// error is yielded and ends the sequence.
func (p *Parser) ParseSearchResultsProducts(pages iter.Seq2[domain.RawPage, error]) iter.Seq2[domain.Product, error] {
	return func(yield func(domain.Product, error) bool) {
		for page, err := range pages {
			if err != nil {
				yield(domain.Product{}, err)
				return
			}
			for _, product := range p.PageProducts(page) {
				if !yield(product, nil) {
					return
				}
			}
		}
	}
}

// ParseSearchCategory is ParseSearchResultsProducts for category listings.
func (p *Parser) ParseSearchCategory(pages iter.Seq2[domain.RawPage, error]) iter.Seq2[domain.Product, error] {
	return p.ParseSearchResultsProducts(pages)
}

// SortBySaved orders products by Saved descending, stable.
func SortBySaved(products []domain.Product) {
	slices.SortStableFunc(products, func(a, b domain.Product) int {
		return b.Saved.Cmp(a.Saved)
	})
}

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strings"

	"rewe/crawler/internal/catalog"
	"rewe/crawler/internal/client"
	"rewe/crawler/internal/domain"
	"rewe/crawler/internal/parser"

	log "github.com/sirupsen/logrus"
)

const recommendationContext = "product-details-recommendations"

// Categories collects the leaf categories of all pages.
func (s *Store) Categories(pages iter.Seq2[domain.RawPage, error]) ([]domain.Category, error) {
	return catalog.Categories(pages)
}

func (s *Store) CategoryNames(pages iter.Seq2[domain.RawPage, error]) ([]string, error) {
	categories, err := catalog.Categories(pages)
	if err != nil {
		return nil, err
	}
	return catalog.Names(categories), nil
}

func (s *Store) CategorySlugs(pages iter.Seq2[domain.RawPage, error]) ([]string, error) {
	categories, err := catalog.Categories(pages)
	if err != nil {
		return nil, err
	}
	return catalog.Slugs(categories), nil
}

type idRecord struct {
	ID domain.ID `json:"id"`
}

func recordIDs(records []json.RawMessage) []string {
	ids := make([]string, 0, len(records))
	for _, raw := range records {
		var r idRecord
		if err := json.Unmarshal(raw, &r); err != nil {
			log.Warnf("Skipping record without id: %v", err)
			continue
		}
		ids = append(ids, r.ID.String())
	}
	return ids
}

// PageProductIDs returns the product ids of one page: the ids of its offers
// when the page has an offers list, else those of the embedded products.
func PageProductIDs(page domain.RawPage) []string {
	if offers := page.List("offers"); offers != nil {
		return recordIDs(offers)
	}
	return recordIDs(page.Embedded("products"))
}

// ProductIDs returns the product ids of all pages in page order.
func (s *Store) ProductIDs(pages iter.Seq2[domain.RawPage, error]) ([]string, error) {
	var ids []string
	for page, err := range pages {
		if err != nil {
			return ids, err
		}
		ids = append(ids, PageProductIDs(page)...)
	}
	return ids, nil
}

// ProductURLs maps product ids to their shop urls.
func (s *Store) ProductURLs(pages iter.Seq2[domain.RawPage, error]) ([]string, error) {
	ids, err := s.ProductIDs(pages)
	if err != nil {
		return nil, err
	}
	urls := make([]string, len(ids))
	for i, id := range ids {
		urls[i] = parser.DefaultLinkBase + id
	}
	return urls, nil
}

// Recommendations returns the recommendation payload for productIDs. Its
// listingIds feed ProductInfos.
func (s *Store) Recommendations(ctx context.Context, productIDs []string) (json.RawMessage, error) {
	if len(productIDs) == 0 {
		return nil, fmt.Errorf("%w: %w", domain.ErrPrecondition, domain.ErrMissingIDs)
	}

	params := client.NewParams().
		With("context", recommendationContext).
		With("productIds", strings.Join(productIDs, ","))

	body, err := s.gateway.Call(ctx, client.Call{
		APIPrefix: "shop/",
		Endpoint:  "reco/recommendations",
		Params:    params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recommendations: %w", err)
	}
	return body, nil
}

// Suggestions returns the autocomplete payload for term. Results are cached.
func (s *Store) Suggestions(ctx context.Context, term string) (json.RawMessage, error) {
	if body, ok := s.suggestions.Get(term); ok {
		return body, nil
	}

	body, err := s.gateway.Call(ctx, client.Call{
		APIPrefix: s.opts.APIPrefix,
		Endpoint:  "suggestions",
		Params:    client.NewParams().With("q", term),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch suggestions: %w", err)
	}

	s.suggestions.Add(term, body)
	return body, nil
}

// CurrentUserdata returns the market information of the session. The first
// successful answer is cached.
func (s *Store) CurrentUserdata(ctx context.Context) (json.RawMessage, error) {
	const key = "userdata"
	if body, ok := s.userdata.Get(key); ok {
		return body, nil
	}

	body, err := s.gateway.Call(ctx, client.Call{Endpoint: "content-homepage-backend/userdata"})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch userdata: %w", err)
	}

	s.userdata.Add(key, body)
	return body, nil
}

type suggestionsPayload struct {
	Products []struct {
		ListingID string `json:"listingId"`
	} `json:"products"`
}

type recommendationsPayload struct {
	ListingIDs []string `json:"listingIds"`
}

type listingRecord struct {
	Embedded struct {
		Articles []struct {
			Embedded struct {
				Listing struct {
					ID string `json:"id"`
				} `json:"listing"`
			} `json:"_embedded"`
		} `json:"articles"`
	} `json:"_embedded"`
}

// ListingIDs collects listing ids from a suggestions payload, a
// recommendations payload and search pages. Any input may be nil.
func ListingIDs(suggestions, recommendations json.RawMessage, pages []domain.RawPage) ([]string, error) {
	var ids []string

	if len(suggestions) > 0 {
		var p suggestionsPayload
		if err := json.Unmarshal(suggestions, &p); err != nil {
			return nil, fmt.Errorf("%w: suggestions: %w", domain.ErrDecode, err)
		}
		for _, product := range p.Products {
			ids = append(ids, product.ListingID)
		}
	}

	if len(recommendations) > 0 {
		var p recommendationsPayload
		if err := json.Unmarshal(recommendations, &p); err != nil {
			return nil, fmt.Errorf("%w: recommendations: %w", domain.ErrDecode, err)
		}
		ids = append(ids, p.ListingIDs...)
	}

	for _, page := range pages {
		for _, raw := range page.Embedded("products") {
			var r listingRecord
			if err := json.Unmarshal(raw, &r); err != nil {
				log.Warnf("Skipping product without listing: %v", err)
				continue
			}
			for _, article := range r.Embedded.Articles {
				ids = append(ids, article.Embedded.Listing.ID)
			}
		}
	}

	return ids, nil
}

// Alternatives returns the alternative blocks of all pages. Every block has
// a products list of its own.
func Alternatives(pages []domain.RawPage) []json.RawMessage {
	var out []json.RawMessage
	for _, page := range pages {
		out = append(out, page.List("alternatives")...)
	}
	return out
}

// AlternativeProducts normalizes the products of every alternative block,
// whichever shape they come in.
func (s *Store) AlternativeProducts(pages []domain.RawPage) []domain.Product {
	var records []json.RawMessage
	for _, alternative := range Alternatives(pages) {
		records = append(records, domain.RawPage(alternative).List("products")...)
	}

	products := make([]domain.Product, 0, len(records))
	for _, raw := range records {
		product, err := s.parser.Normalize(raw)
		if err != nil {
			log.Warnf("Skipping alternative product: %v", err)
			continue
		}
		products = append(products, product)
	}
	return products
}

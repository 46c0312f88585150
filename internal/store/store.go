// Package store exposes the shop catalog queries on top of the gateway,
// the pagination engine and the parser.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strconv"
	"strings"

	"rewe/crawler/internal/client"
	"rewe/crawler/internal/domain"
	"rewe/crawler/internal/pagination"
	"rewe/crawler/internal/parser"

	lru "github.com/hashicorp/golang-lru/v2"
	log "github.com/sirupsen/logrus"
)

// Listing attributes understood by the products endpoint.
const (
	AttributeDiscounted  = "discounted"
	AttributeNew         = "new"
	AttributeVegan       = "vegan"
	AttributeVegetarian  = "vegetarian"
	AttributeLactoseFree = "lactosefree"
	AttributeGlutenFree  = "glutenfree"
	AttributeOrganic     = "organic"
	AttributeRegional    = "regional"
)

const (
	DefaultObjectsPerPage = 250 // 10, 20, 40, 80 or 250
	DefaultCacheSize      = 128
)

type Options struct {
	StoreID        string
	APIPrefix      string // "shop/api/"
	ObjectsPerPage int
	CacheSize      int // entries per memoized lookup
}

// Store is the catalog of one market. Memoized lookups live in size bounded
// LRU caches owned by the Store; create a new Store for fresh data.
type Store struct {
	gateway *client.Gateway
	engine  *pagination.Engine
	parser  *parser.Parser
	opts    Options

	searches    *lru.Cache[string, []domain.RawPage]
	suggestions *lru.Cache[string, json.RawMessage]
	userdata    *lru.Cache[string, json.RawMessage]
}

func New(gateway *client.Gateway, p *parser.Parser, opts Options) (*Store, error) {
	if opts.StoreID == "" {
		return nil, fmt.Errorf("%w: store id must be set", domain.ErrConfiguration)
	}
	if opts.APIPrefix == "" {
		opts.APIPrefix = "shop/api/"
	}
	if opts.ObjectsPerPage <= 0 {
		opts.ObjectsPerPage = DefaultObjectsPerPage
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}

	searches, err := lru.New[string, []domain.RawPage](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create search cache: %w", err)
	}
	suggestions, err := lru.New[string, json.RawMessage](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create suggestion cache: %w", err)
	}
	userdata, err := lru.New[string, json.RawMessage](1)
	if err != nil {
		return nil, fmt.Errorf("failed to create userdata cache: %w", err)
	}

	return &Store{
		gateway:     gateway,
		engine:      pagination.NewEngine(gateway),
		parser:      p,
		opts:        opts,
		searches:    searches,
		suggestions: suggestions,
		userdata:    userdata,
	}, nil
}

// StoreID returns the market id the store queries.
func (s *Store) StoreID() string {
	return s.opts.StoreID
}

// Parser returns the parser the store normalizes with.
func (s *Store) Parser() *parser.Parser {
	return s.parser
}

func (s *Store) apiURL(endpoint string) string {
	return s.gateway.URL(client.Call{APIPrefix: s.opts.APIPrefix, Endpoint: endpoint})
}

// IDSet selects products for ProductInfos. Exactly one field is used: product
// ids win over listing ids, listing ids over article ids.
type IDSet struct {
	ProductIDs []string
	ListingIDs []string
	ArticleIDs []string
}

func (ids IDSet) param() (string, string, bool) {
	switch {
	case len(ids.ProductIDs) > 0:
		return "productIds", strings.Join(ids.ProductIDs, ","), true
	case len(ids.ListingIDs) > 0:
		return "listingIds", strings.Join(ids.ListingIDs, ","), true
	case len(ids.ArticleIDs) > 0:
		return "articleIds", strings.Join(ids.ArticleIDs, ","), true
	default:
		return "", "", false
	}
}

// ProductInfos fetches the product-tiles records of all ids in one request.
func (s *Store) ProductInfos(ctx context.Context, ids IDSet) ([]json.RawMessage, error) {
	key, value, ok := ids.param()
	if !ok {
		return nil, fmt.Errorf("%w: %w", domain.ErrPrecondition, domain.ErrMissingIDs)
	}

	params := client.NewParams().
		With("serviceTypes", "PICKUP").
		With("market", s.opts.StoreID).
		With(key, value)

	body, err := s.gateway.Call(ctx, client.Call{
		APIPrefix: s.opts.APIPrefix,
		Endpoint:  "product-tiles",
		Params:    params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product infos: %w", err)
	}

	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("%w: product-tiles is not a list: %w", domain.ErrDecode, err)
	}
	return records, nil
}

// Search paginates the results for term. A search that was consumed to the
// end is remembered and replayed for the same term and maxPage.
func (s *Store) Search(ctx context.Context, term string, maxPage int) (iter.Seq2[domain.RawPage, error], error) {
	if term == "" {
		return nil, fmt.Errorf("%w: search term must not be empty", domain.ErrPrecondition)
	}

	key := term + "\x00" + strconv.Itoa(maxPage)
	if pages, ok := s.searches.Get(key); ok {
		log.Debugf("Search %q served from cache", term)
		return replay(pages), nil
	}

	params := client.NewParams().
		With("search", term).
		With("market", s.opts.StoreID).
		WithInt(pagination.DefaultPageKey, 1)

	pages, err := s.engine.Paginate(ctx, pagination.Request{
		URL:     s.apiURL("products"),
		Params:  params,
		MaxPage: maxPage,
	})
	if err != nil {
		return nil, err
	}

	return s.remember(key, pages), nil
}

func (s *Store) remember(key string, pages iter.Seq2[domain.RawPage, error]) iter.Seq2[domain.RawPage, error] {
	return func(yield func(domain.RawPage, error) bool) {
		var seen []domain.RawPage
		for page, err := range pages {
			if err != nil {
				yield(nil, err)
				return
			}
			seen = append(seen, page)
			if !yield(page, nil) {
				return
			}
		}
		s.searches.Add(key, seen)
	}
}

func replay(pages []domain.RawPage) iter.Seq2[domain.RawPage, error] {
	return func(yield func(domain.RawPage, error) bool) {
		for _, page := range pages {
			if !yield(page, nil) {
				return
			}
		}
	}
}

// AttributeQuery is a products listing filtered by attributes and/or one
// extra key=value filter.
type AttributeQuery struct {
	Attributes []string
	Key        string
	Value      string
	MaxPage    int
	StartPage  int // 1 when zero
}

// Params returns the query parameters of q for a market.
func (q AttributeQuery) Params(storeID string, objectsPerPage int) client.Params {
	start := q.StartPage
	if start < 1 {
		start = 1
	}

	params := client.NewParams().
		WithInt("objectsPerPage", objectsPerPage).
		WithInt(pagination.DefaultPageKey, start).
		With("search", "*").
		With("sorting", "RELEVANCE_DESC").
		With("serviceTypes", "PICKUP").
		With("market", storeID).
		With("wwIdent", storeID).
		With("debug", "false").
		With("autocorrect", "true")

	if q.Key != "" && q.Value != "" {
		params = params.With(q.Key, q.Value)
	}
	for _, attribute := range q.Attributes {
		if attribute != "" {
			params = params.Add("attribute", attribute)
		}
	}
	return params
}

// ProgressKey identifies q in crawl progress bookkeeping.
func (q AttributeQuery) ProgressKey() string {
	key := "attribute=" + strings.Join(q.Attributes, ",")
	if q.Key != "" {
		key += ";" + q.Key + "=" + q.Value
	}
	return key
}

// ProductsByAttribute paginates a filtered products listing.
func (s *Store) ProductsByAttribute(ctx context.Context, q AttributeQuery) (iter.Seq2[domain.RawPage, error], error) {
	return s.engine.Paginate(ctx, pagination.Request{
		URL:     s.apiURL("products"),
		Params:  q.Params(s.opts.StoreID, s.opts.ObjectsPerPage),
		MaxPage: q.MaxPage,
	})
}

func (s *Store) byAttribute(ctx context.Context, attribute string, maxPage int) (iter.Seq2[domain.RawPage, error], error) {
	return s.ProductsByAttribute(ctx, AttributeQuery{Attributes: []string{attribute}, MaxPage: maxPage})
}

func (s *Store) DiscountedProducts(ctx context.Context, maxPage int) (iter.Seq2[domain.RawPage, error], error) {
	return s.byAttribute(ctx, AttributeDiscounted, maxPage)
}

func (s *Store) NewProducts(ctx context.Context, maxPage int) (iter.Seq2[domain.RawPage, error], error) {
	return s.byAttribute(ctx, AttributeNew, maxPage)
}

func (s *Store) VeganProducts(ctx context.Context, maxPage int) (iter.Seq2[domain.RawPage, error], error) {
	return s.byAttribute(ctx, AttributeVegan, maxPage)
}

func (s *Store) VegetarianProducts(ctx context.Context, maxPage int) (iter.Seq2[domain.RawPage, error], error) {
	return s.byAttribute(ctx, AttributeVegetarian, maxPage)
}

func (s *Store) LactoseFreeProducts(ctx context.Context, maxPage int) (iter.Seq2[domain.RawPage, error], error) {
	return s.byAttribute(ctx, AttributeLactoseFree, maxPage)
}

func (s *Store) GlutenFreeProducts(ctx context.Context, maxPage int) (iter.Seq2[domain.RawPage, error], error) {
	return s.byAttribute(ctx, AttributeGlutenFree, maxPage)
}

func (s *Store) OrganicProducts(ctx context.Context, maxPage int) (iter.Seq2[domain.RawPage, error], error) {
	return s.byAttribute(ctx, AttributeOrganic, maxPage)
}

func (s *Store) RegionalProducts(ctx context.Context, maxPage int) (iter.Seq2[domain.RawPage, error], error) {
	return s.byAttribute(ctx, AttributeRegional, maxPage)
}

// SearchCategory paginates the listing of a category slug.
func (s *Store) SearchCategory(ctx context.Context, slug string, maxPage int) (iter.Seq2[domain.RawPage, error], error) {
	if slug == "" {
		return nil, fmt.Errorf("%w: category slug must not be empty", domain.ErrPrecondition)
	}
	return s.ProductsByAttribute(ctx, AttributeQuery{Key: "categorySlug", Value: slug, MaxPage: maxPage})
}

// SearchBrand paginates the listing of a brand. Combining it with an
// attribute returns no products upstream, so none is sent.
func (s *Store) SearchBrand(ctx context.Context, brand string, maxPage int) (iter.Seq2[domain.RawPage, error], error) {
	if brand == "" {
		return nil, fmt.Errorf("%w: brand must not be empty", domain.ErrPrecondition)
	}
	return s.ProductsByAttribute(ctx, AttributeQuery{Key: "brand", Value: brand, MaxPage: maxPage})
}

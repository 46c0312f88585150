package pagination

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"net/url"

	"rewe/crawler/internal/client"
	"rewe/crawler/internal/domain"

	log "github.com/sirupsen/logrus"
	"resty.dev/v3"
)

const (
	DefaultPageKey = "page"
	DefaultMaxPage = 2
)

// Request describes one paginated catalog query.
type Request struct {
	URL     string
	Params  client.Params // must contain PageKey with an integer start page
	PageKey string        // DefaultPageKey when empty
	MaxPage int           // last page that may be fetched
	Method  client.Method
}

// Doer dispatches a request against a resolved URL.
type Doer interface {
	DoURL(ctx context.Context, method client.Method, target string, c client.Call) (*resty.Response, error)
}

// Engine drives a Request page by page through the gateway.
type Engine struct {
	gateway Doer
}

func NewEngine(gateway Doer) *Engine {
	return &Engine{gateway: gateway}
}

// Paginate validates req and returns a lazy sequence of pages. Pages are
// fetched one at a time as the consumer pulls them; breaking out of the
// range loop stops fetching.
//
// A non 200/206 status ends the sequence silently after logging it. Upstream
// running out of pages and a failing upstream look the same to the consumer.
// Transport and decode errors are yielded once and end the sequence.
func (e *Engine) Paginate(ctx context.Context, req Request) (iter.Seq2[domain.RawPage, error], error) {
	start, err := validate(&req)
	if err != nil {
		return nil, err
	}

	return func(yield func(domain.RawPage, error) bool) {
		for cur := start; cur.state == StateIdle || cur.state == StateYielded; {
			cur.state = StateFetching

			resp, err := e.gateway.DoURL(ctx, req.Method, req.URL, client.Call{Params: cur.params})
			if err != nil {
				cur.state = StateFailed
				yield(nil, err)
				return
			}

			if status := resp.StatusCode(); status != http.StatusOK && status != http.StatusPartialContent {
				log.Warnf("⚠️ Pagination of %s stopped at %s=%d: status %d",
					req.URL, req.PageKey, cur.page, status)
				return
			}

			body, err := client.Decode(resp)
			if err != nil {
				cur.state = StateFailed
				yield(nil, err)
				return
			}

			page := domain.RawPage(body)
			cur.state = StateYielded
			if !yield(page, nil) {
				return
			}

			totalPages, ok := page.TotalPages()
			cur = cur.advance(totalPages, ok)
			log.Debugf("Pagination of %s: %s=%d state=%s", req.URL, req.PageKey, cur.page, cur.state)
		}
	}, nil
}

func validate(req *Request) (cursor, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return cursor{}, fmt.Errorf("%w: invalid url %q: %w", domain.ErrPrecondition, req.URL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return cursor{}, fmt.Errorf("%w: url %q must start with http(s)://", domain.ErrPrecondition, req.URL)
	}

	if !req.Method.Valid() {
		return cursor{}, fmt.Errorf("%w: unsupported HTTP method %s", domain.ErrPrecondition, req.Method)
	}

	if req.PageKey == "" {
		req.PageKey = DefaultPageKey
	}

	if req.Params.Len() == 0 {
		return cursor{}, fmt.Errorf("%w: params must contain %q", domain.ErrPrecondition, req.PageKey)
	}
	page, err := req.Params.Int(req.PageKey)
	if err != nil {
		return cursor{}, fmt.Errorf("%w: %w", domain.ErrPrecondition, err)
	}

	if req.MaxPage < 1 {
		return cursor{}, fmt.Errorf("%w: max page must be at least 1, got %d", domain.ErrPrecondition, req.MaxPage)
	}

	return newCursor(req.Params, req.PageKey, page, req.MaxPage), nil
}

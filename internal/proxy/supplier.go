package proxy

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"resty.dev/v3"
)

// ProxySupplier hands out proxies for the shop session
type ProxySupplier interface {
	Get() string
}

type roundRobin struct {
	proxies []string
	current int
	mutex   sync.Mutex
}

// NewRoundRobin returns a supplier cycling through proxies without probing them
func NewRoundRobin(proxies []string) ProxySupplier {
	return &roundRobin{proxies: append([]string(nil), proxies...)}
}

// NewProxySupplier probes every proxy against testURL and keeps the working ones
func NewProxySupplier(ctx context.Context, proxies []string, testURL string) (ProxySupplier, error) {
	if len(proxies) == 0 {
		return NewRoundRobin(nil), nil
	}

	log.Infof("🔄 Probing %d proxies against %s", len(proxies), testURL)

	working := make([]bool, len(proxies))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(16)
	for i, proxyURL := range proxies {
		g.Go(func() error {
			working[i] = probe(gctx, proxyURL, testURL)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	valid := make([]string, 0, len(proxies))
	for i, ok := range working {
		if ok {
			valid = append(valid, proxies[i])
		}
	}

	log.Infof("✅ %d of %d proxies usable", len(valid), len(proxies))

	return NewRoundRobin(valid), nil
}

// Get returns the next proxy, empty when the pool is empty
func (p *roundRobin) Get() string {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if len(p.proxies) == 0 {
		return ""
	}

	proxy := p.proxies[p.current]
	p.current = (p.current + 1) % len(p.proxies)

	return proxy
}

func probe(ctx context.Context, proxyURL, testURL string) bool {
	client := resty.New().
		SetTimeout(5 * time.Second).
		SetProxy(proxyURL)
	defer client.Close()

	resp, err := client.R().
		SetContext(ctx).
		Head(testURL)
	if err != nil {
		log.Debugf("❌ Proxy %s unreachable: %v", proxyURL, err)
		return false
	}
	if resp.IsError() {
		log.Debugf("❌ Proxy %s answered %s", proxyURL, resp.Status())
		return false
	}

	return true
}

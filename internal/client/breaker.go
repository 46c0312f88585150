package client

import (
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const DefaultQuotaCooldown = 30 * time.Minute

// Breaker blocks all requests for a cooldown once the shop answered with
// 429 Too Many Requests.
type Breaker struct {
	mu       sync.RWMutex
	until    time.Time
	cooldown time.Duration
	now      func() time.Time
}

func NewBreaker(cooldown time.Duration) *Breaker {
	if cooldown <= 0 {
		cooldown = DefaultQuotaCooldown
	}
	return &Breaker{cooldown: cooldown, now: time.Now}
}

// Remaining returns how long the breaker stays open, 0 when closed.
func (b *Breaker) Remaining() time.Duration {
	b.mu.RLock()
	until := b.until
	b.mu.RUnlock()

	if until.IsZero() {
		return 0
	}

	remaining := until.Sub(b.now())
	if remaining > 0 {
		return remaining
	}

	b.mu.Lock()
	if !b.until.IsZero() && !b.now().Before(b.until) {
		b.until = time.Time{}
		log.Infof("✅ Quota breaker closed, requests are allowed again")
	}
	b.mu.Unlock()
	return 0
}

func (b *Breaker) Trip() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.until = b.now().Add(b.cooldown)
	log.Warnf("🚫 Quota exceeded, requests disabled until %s", b.until.Format("15:04:05"))
}

func quotaExceeded(status int) bool {
	return status == http.StatusTooManyRequests
}

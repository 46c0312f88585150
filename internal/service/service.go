package service

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"time"

	"rewe/crawler/internal/domain"
	"rewe/crawler/internal/domain/task"
	"rewe/crawler/internal/parser"
	"rewe/crawler/internal/queue"
	"rewe/crawler/internal/repository"
	"rewe/crawler/internal/state"
	"rewe/crawler/internal/store"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// MaxRetries bounds how often a failing page goes back to the retry stream.
const MaxRetries = 5

// Catalog is the part of the store the crawler pages through.
type Catalog interface {
	ProductsByAttribute(ctx context.Context, q store.AttributeQuery) (iter.Seq2[domain.RawPage, error], error)
}

type Options struct {
	Attributes   []string // one crawl query per attribute
	MaxPage      int
	SaveInterval int // pages between progress saves
	Group        string
	MinIdleTime  time.Duration
}

type Service struct {
	catalog      Catalog
	parser       *parser.Parser
	repository   repository.ProductRepository
	queue        queue.Queue
	stateManager state.StateManager
	opts         Options
}

func NewService(
	catalog Catalog,
	p *parser.Parser,
	repository repository.ProductRepository,
	q queue.Queue,
	stateManager state.StateManager,
	opts Options,
) *Service {
	if opts.SaveInterval < 1 {
		opts.SaveInterval = 1
	}
	if opts.MinIdleTime <= 0 {
		opts.MinIdleTime = 2 * time.Minute
	}
	return &Service{
		catalog:      catalog,
		parser:       p,
		repository:   repository,
		queue:        q,
		stateManager: stateManager,
		opts:         opts,
	}
}

// Queries returns the crawl queries built from the configured attributes.
func (s *Service) Queries() []store.AttributeQuery {
	queries := make([]store.AttributeQuery, 0, len(s.opts.Attributes))
	for _, attribute := range s.opts.Attributes {
		queries = append(queries, store.AttributeQuery{
			Attributes: []string{attribute},
			MaxPage:    s.opts.MaxPage,
		})
	}
	return queries
}

// Crawl pages through every query one after the other on the single shop
// session and hands the raw pages to the workers.
func (s *Service) Crawl(ctx context.Context) error {
	for _, q := range s.Queries() {
		if err := s.crawlQuery(ctx, q); err != nil {
			return err
		}
	}

	log.Infof("✅ Completed all %d crawl queries", len(s.opts.Attributes))
	return nil
}

func (s *Service) crawlQuery(ctx context.Context, q store.AttributeQuery) error {
	key := q.ProgressKey()

	last, err := s.stateManager.LastProcessedPage(ctx, key)
	if err != nil {
		log.Errorf("Failed to get last processed page: %v", err)
		return err
	}
	q.StartPage = last + 1
	if last > 0 {
		log.Infof("🔄 Continue from page %d for %s", q.StartPage, key)
	}

	log.Infof("🔄 Processing query: %s", key)

	pages, err := s.catalog.ProductsByAttribute(ctx, q)
	if err != nil {
		return fmt.Errorf("failed to start %s: %w", key, err)
	}

	pageNumber := q.StartPage
	count := 0
	for page, err := range pages {
		if err != nil {
			log.Errorf("❌ Failed to fetch page %d of %s: %v", pageNumber, key, err)
			return fmt.Errorf("failed to fetch page %d of %s: %w", pageNumber, key, err)
		}

		if _, err := s.queue.AddTask(ctx, &task.ProductPageTask{
			Query:      key,
			PageNumber: pageNumber,
			Page:       page,
		}); err != nil {
			log.Errorf("❌ Failed to add task for %s: %v", key, err)
			return err
		}

		count++
		if count%s.opts.SaveInterval == 0 {
			if err := s.stateManager.SetLastProcessedPage(ctx, key, pageNumber); err != nil {
				log.Warnf("⚠️ %v", err)
			}
		}
		pageNumber++
	}

	// a finished query starts from the first page next time
	if err := s.stateManager.Reset(ctx, key); err != nil {
		log.Warnf("⚠️ %v", err)
	}

	log.Infof("✅ Completed %s: %d pages", key, count)
	return nil
}

// RunWorkers normalizes and stores queued pages until ctx is done.
func (s *Service) RunWorkers(ctx context.Context, numWorkers int) error {
	var wg sync.WaitGroup

	s.runWorkersForStream(ctx, &wg, max(1, numWorkers), queue.StreamName((&task.ProductPageTask{}).TaskType()), "main")
	s.runWorkersForStream(ctx, &wg, max(1, numWorkers/2), queue.StreamName((&task.PageRetryTask{}).TaskType()), "retry")

	wg.Wait()
	return nil
}

func (s *Service) runWorkersForStream(ctx context.Context, wg *sync.WaitGroup, numWorkers int, stream, workerType string) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.autoClaim(ctx, stream, workerType)
	}()

	for i := range numWorkers {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.work(ctx, stream, fmt.Sprintf("%s-worker-%d", workerType, workerID))
		}(i + 1)
	}
}

func (s *Service) autoClaim(ctx context.Context, stream, workerType string) {
	ticker := time.NewTicker(s.opts.MinIdleTime)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			consumer := fmt.Sprintf("autoclaimer-%s-%d", workerType, time.Now().UnixNano())
			messages, err := s.queue.AutoClaim(ctx, s.opts.Group, consumer, stream, s.opts.MinIdleTime)
			if err != nil {
				log.Errorf("❌ Failed to auto-claim messages for %s: %v", stream, err)
				continue
			}
			if len(messages) > 0 {
				log.Infof("🔄 Auto-claimed %d messages from %s stream", len(messages), workerType)
			}
			for _, msg := range messages {
				if err := s.processMessage(ctx, &msg); err != nil {
					log.Errorf("❌ Failed to process auto-claimed message %s: %v", msg.ID, err)
				}
			}
		}
	}
}

func (s *Service) work(ctx context.Context, stream, consumer string) {
	log.Infof("🚀 Starting worker %s on %s", consumer, stream)
	for {
		select {
		case <-ctx.Done():
			log.Infof("🛑 Worker %s stopping", consumer)
			return
		default:
		}

		msg, err := s.queue.GetTask(ctx, s.opts.Group, consumer, stream)
		if err != nil {
			if ctx.Err() == nil {
				log.Errorf("❌ Failed to get task from %s: %v", stream, err)
			}
			continue
		}
		if msg == nil {
			continue
		}
		if err := s.processMessage(ctx, msg); err != nil {
			log.Errorf("❌ Failed to process message %s: %v", msg.ID, err)
		}
	}
}

func (s *Service) processMessage(ctx context.Context, msg *redis.XMessage) error {
	taskType, data, err := queue.Decode(msg)
	if err != nil {
		return err
	}

	switch taskType {
	case (&task.ProductPageTask{}).TaskType():
		pageTask, err := task.UnmarshalTask[*task.ProductPageTask](data)
		if err != nil {
			return fmt.Errorf("failed to unmarshal product page task: %w", err)
		}
		if err := s.savePage(ctx, pageTask.Query, pageTask.Page); err != nil {
			s.retry(ctx, &task.PageRetryTask{
				Query:      pageTask.Query,
				PageNumber: pageTask.PageNumber,
				Page:       pageTask.Page,
				Error:      err.Error(),
			})
		}

	case (&task.PageRetryTask{}).TaskType():
		retryTask, err := task.UnmarshalTask[*task.PageRetryTask](data)
		if err != nil {
			return fmt.Errorf("failed to unmarshal retry task: %w", err)
		}
		retryTask.RetryCount++
		log.Infof("🔄 Retrying page %d of %s (attempt %d)", retryTask.PageNumber, retryTask.Query, retryTask.RetryCount)

		if err := s.savePage(ctx, retryTask.Query, retryTask.Page); err != nil {
			retryTask.Error = err.Error()
			s.retry(ctx, retryTask)
		} else {
			log.Infof("✅ Recovered page %d of %s after %d attempts", retryTask.PageNumber, retryTask.Query, retryTask.RetryCount)
		}

	default:
		return fmt.Errorf("unknown task type: %s", taskType)
	}

	if err := s.queue.AckTask(ctx, queue.StreamName(taskType), s.opts.Group, msg.ID); err != nil {
		return err
	}
	return nil
}

// savePage normalizes one raw listing page and stores its products.
func (s *Service) savePage(ctx context.Context, query string, page domain.RawPage) error {
	products := s.parser.PageProducts(page)
	if len(products) == 0 {
		log.Debugf("Page of %s has no products", query)
		return nil
	}

	if err := s.repository.SaveProducts(ctx, query, products); err != nil {
		return fmt.Errorf("failed to save products of %s: %w", query, err)
	}

	log.Debugf("Saved %d products of %s", len(products), query)
	return nil
}

func (s *Service) retry(ctx context.Context, t *task.PageRetryTask) {
	if t.RetryCount >= MaxRetries {
		log.Errorf("❌ Giving up on page %d of %s after %d attempts: %s", t.PageNumber, t.Query, t.RetryCount, t.Error)
		return
	}
	if _, err := s.queue.AddTask(ctx, t); err != nil {
		log.Errorf("❌ Failed to add retry task for page %d: %v", t.PageNumber, err)
		return
	}
	log.Warnf("🔄 Added page %d of %s to retry queue: %s", t.PageNumber, t.Query, t.Error)
}

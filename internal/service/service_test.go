package service

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"
	"time"

	"rewe/crawler/internal/domain"
	"rewe/crawler/internal/domain/task"
	"rewe/crawler/internal/parser"
	"rewe/crawler/internal/queue"
	"rewe/crawler/internal/store"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingPage = `{
	"pagination": {"totalPages": 2},
	"_embedded": {"products": [{
		"id": "2621809",
		"productName": "Gouda jung 80g",
		"brand": {"name": "REWE"},
		"_embedded": {"articles": [{"_embedded": {"listing": {
			"id": "13-2621809-x",
			"pricing": {"currentRetailPrice": 105, "discount": {"regularPrice": 199}}
		}}}]}
	}]}
}`

type fakeCatalog struct {
	pages   []domain.RawPage
	err     error
	queries []store.AttributeQuery
}

func (c *fakeCatalog) ProductsByAttribute(_ context.Context, q store.AttributeQuery) (iter.Seq2[domain.RawPage, error], error) {
	c.queries = append(c.queries, q)
	return func(yield func(domain.RawPage, error) bool) {
		for _, page := range c.pages {
			if !yield(page, nil) {
				return
			}
		}
		if c.err != nil {
			yield(nil, c.err)
		}
	}, nil
}

type fakeQueue struct {
	mu    sync.Mutex
	tasks []task.Task
	acked []string
}

func (q *fakeQueue) AddTask(_ context.Context, t task.Task) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, t)
	return "1-0", nil
}

func (q *fakeQueue) GetTask(context.Context, string, string, string) (*redis.XMessage, error) {
	return nil, nil
}

func (q *fakeQueue) AckTask(_ context.Context, stream, _, msgID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acked = append(q.acked, stream+"/"+msgID)
	return nil
}

func (q *fakeQueue) AutoClaim(context.Context, string, string, string, time.Duration) ([]redis.XMessage, error) {
	return nil, nil
}

type fakeState struct {
	pages  map[string]int
	resets []string
}

func (s *fakeState) LastProcessedPage(_ context.Context, query string) (int, error) {
	return s.pages[query], nil
}

func (s *fakeState) SetLastProcessedPage(_ context.Context, query string, page int) error {
	s.pages[query] = page
	return nil
}

func (s *fakeState) Reset(_ context.Context, query string) error {
	delete(s.pages, query)
	s.resets = append(s.resets, query)
	return nil
}

type fakeRepository struct {
	saved []domain.Product
	err   error
}

func (r *fakeRepository) SaveProducts(_ context.Context, _ string, products []domain.Product) error {
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, products...)
	return nil
}

func newTestService(c Catalog, repo *fakeRepository, q *fakeQueue, st *fakeState) *Service {
	return NewService(c, parser.NewParser(), repo, q, st, Options{
		Attributes: []string{store.AttributeDiscounted},
		MaxPage:    2,
		Group:      "rewe_consumer",
	})
}

func message(t *testing.T, tk task.Task) *redis.XMessage {
	t.Helper()
	data, err := tk.TaskValue()
	require.NoError(t, err)
	return &redis.XMessage{ID: "7-0", Values: map[string]any{
		"task_type": tk.TaskType(),
		"task_data": string(data),
	}}
}

func TestCrawlEnqueuesPagesAndResetsProgress(t *testing.T) {
	c := &fakeCatalog{pages: []domain.RawPage{domain.RawPage(listingPage), domain.RawPage(listingPage)}}
	q := &fakeQueue{}
	st := &fakeState{pages: map[string]int{}}

	require.NoError(t, newTestService(c, &fakeRepository{}, q, st).Crawl(context.Background()))

	require.Len(t, q.tasks, 2)
	first := q.tasks[0].(*task.ProductPageTask)
	second := q.tasks[1].(*task.ProductPageTask)
	assert.Equal(t, "attribute=discounted", first.Query)
	assert.Equal(t, 1, first.PageNumber)
	assert.Equal(t, 2, second.PageNumber)
	assert.Equal(t, []string{"attribute=discounted"}, st.resets)
	assert.Empty(t, st.pages)
}

func TestCrawlResumesFromSavedPage(t *testing.T) {
	c := &fakeCatalog{pages: []domain.RawPage{domain.RawPage(listingPage)}}
	q := &fakeQueue{}
	st := &fakeState{pages: map[string]int{"attribute=discounted": 1}}

	require.NoError(t, newTestService(c, &fakeRepository{}, q, st).Crawl(context.Background()))

	require.Len(t, c.queries, 1)
	assert.Equal(t, 2, c.queries[0].StartPage)
	require.Len(t, q.tasks, 1)
	assert.Equal(t, 2, q.tasks[0].(*task.ProductPageTask).PageNumber)
}

func TestCrawlKeepsProgressOnFetchError(t *testing.T) {
	c := &fakeCatalog{pages: []domain.RawPage{domain.RawPage(listingPage)}, err: errors.New("connection reset")}
	q := &fakeQueue{}
	st := &fakeState{pages: map[string]int{}}

	err := newTestService(c, &fakeRepository{}, q, st).Crawl(context.Background())

	require.Error(t, err)
	assert.Equal(t, 1, st.pages["attribute=discounted"])
	assert.Empty(t, st.resets)
}

func TestProcessMessageSavesProducts(t *testing.T) {
	repo := &fakeRepository{}
	q := &fakeQueue{}
	s := newTestService(&fakeCatalog{}, repo, q, &fakeState{pages: map[string]int{}})

	msg := message(t, &task.ProductPageTask{Query: "attribute=discounted", PageNumber: 1, Page: domain.RawPage(listingPage)})
	require.NoError(t, s.processMessage(context.Background(), msg))

	require.Len(t, repo.saved, 1)
	assert.Equal(t, "2621809", repo.saved[0].ProductID)
	assert.Equal(t, "1.5", repo.saved[0].Price.String())
	assert.Equal(t, "0.49", repo.saved[0].Saved.String())
	assert.Equal(t, []string{queue.StreamName("ProductPageTask") + "/7-0"}, q.acked)
	assert.Empty(t, q.tasks)
}

func TestProcessMessageQueuesRetryOnSaveError(t *testing.T) {
	repo := &fakeRepository{err: errors.New("database down")}
	q := &fakeQueue{}
	s := newTestService(&fakeCatalog{}, repo, q, &fakeState{pages: map[string]int{}})

	msg := message(t, &task.ProductPageTask{Query: "attribute=discounted", PageNumber: 3, Page: domain.RawPage(listingPage)})
	require.NoError(t, s.processMessage(context.Background(), msg))

	require.Len(t, q.tasks, 1)
	retry := q.tasks[0].(*task.PageRetryTask)
	assert.Equal(t, 3, retry.PageNumber)
	assert.Equal(t, 0, retry.RetryCount)
	assert.Contains(t, retry.Error, "database down")
	assert.Len(t, q.acked, 1)
}

func TestRetryGivesUpAfterMaxRetries(t *testing.T) {
	repo := &fakeRepository{err: errors.New("database down")}
	q := &fakeQueue{}
	s := newTestService(&fakeCatalog{}, repo, q, &fakeState{pages: map[string]int{}})

	msg := message(t, &task.PageRetryTask{Query: "q", PageNumber: 1, Page: domain.RawPage(listingPage), RetryCount: MaxRetries - 1})
	require.NoError(t, s.processMessage(context.Background(), msg))

	assert.Empty(t, q.tasks)
	assert.Equal(t, []string{queue.StreamName("PageRetryTask") + "/7-0"}, q.acked)
}

func TestProcessMessageRejectsUnknownTask(t *testing.T) {
	s := newTestService(&fakeCatalog{}, &fakeRepository{}, &fakeQueue{}, &fakeState{pages: map[string]int{}})

	err := s.processMessage(context.Background(), &redis.XMessage{ID: "1-0", Values: map[string]any{
		"task_type": "Other",
		"task_data": "{}",
	}})
	assert.Error(t, err)
}

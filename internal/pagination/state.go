package pagination

import "rewe/crawler/internal/client"

// State of a pagination run.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateYielded
	StateTerminated
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateYielded:
		return "yielded"
	case StateTerminated:
		return "terminated"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// cursor is the pagination state of a single run. It is a value: advance
// returns the next cursor and never touches the params of the current one.
type cursor struct {
	params  client.Params
	pageKey string
	page    int
	maxPage int
	state   State
}

func newCursor(params client.Params, pageKey string, page, maxPage int) cursor {
	c := cursor{
		params:  params,
		pageKey: pageKey,
		page:    page,
		maxPage: maxPage,
		state:   StateIdle,
	}
	if page > maxPage {
		c.state = StateTerminated
	}
	return c
}

// advance applies the termination rules after a page was yielded.
func (c cursor) advance(totalPages int, known bool) cursor {
	if known && (totalPages == 0 || totalPages == c.maxPage) {
		c.state = StateTerminated
		return c
	}

	c.page++
	c.params = c.params.WithInt(c.pageKey, c.page)
	if c.page > c.maxPage {
		c.state = StateTerminated
		return c
	}

	c.state = StateYielded
	return c
}

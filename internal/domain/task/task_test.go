package task

import (
	"testing"

	"rewe/crawler/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskTypes(t *testing.T) {
	assert.Equal(t, []string{"ProductPageTask", "PageRetryTask"}, TaskTypes)
}

func TestUnmarshalTaskKeepsRawPage(t *testing.T) {
	in := &PageRetryTask{
		Query:      "attribute=discounted",
		PageNumber: 2,
		Page:       domain.RawPage(`{"pagination":{"totalPages":3}}`),
		RetryCount: 1,
		Error:      "database down",
	}

	data, err := in.TaskValue()
	require.NoError(t, err)

	out, err := UnmarshalTask[*PageRetryTask](data)
	require.NoError(t, err)
	assert.Equal(t, in.Query, out.Query)
	assert.Equal(t, in.RetryCount, out.RetryCount)

	total, ok := out.Page.TotalPages()
	assert.True(t, ok)
	assert.Equal(t, 3, total)
}

func TestUnmarshalTaskError(t *testing.T) {
	_, err := UnmarshalTask[*ProductPageTask]([]byte(`{"page_number": "two"}`))
	assert.Error(t, err)
}

package queue

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamName(t *testing.T) {
	assert.Equal(t, "rewe:stream:ProductPageTask", StreamName("ProductPageTask"))
}

func TestDecode(t *testing.T) {
	msg := &redis.XMessage{ID: "1-0", Values: map[string]any{
		"task_type": "PageRetryTask",
		"task_data": `{"query":"q"}`,
	}}

	taskType, data, err := Decode(msg)
	require.NoError(t, err)
	assert.Equal(t, "PageRetryTask", taskType)
	assert.JSONEq(t, `{"query":"q"}`, string(data))
}

func TestDecodeRejectsMalformedMessages(t *testing.T) {
	_, _, err := Decode(&redis.XMessage{ID: "1-0", Values: map[string]any{"task_data": "{}"}})
	assert.Error(t, err)

	_, _, err = Decode(&redis.XMessage{ID: "2-0", Values: map[string]any{"task_type": "ProductPageTask"}})
	assert.Error(t, err)
}

package task

import "rewe/crawler/internal/domain"

type PageRetryTask struct {
	Query      string         `json:"query"`       // Progress key of the catalog query
	PageNumber int            `json:"page_number"` // Page that failed to process
	Page       domain.RawPage `json:"page"`        // Payload kept so the retry needs no request
	RetryCount int            `json:"retry_count"` // Attempts so far
	Error      string         `json:"error"`       // Error message from the last failure
}

func (t *PageRetryTask) TaskType() string {
	return "PageRetryTask"
}

func (t *PageRetryTask) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}

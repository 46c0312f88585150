package task

import "rewe/crawler/internal/domain"

type ProductPageTask struct {
	Query      string         `json:"query"`       // Progress key of the catalog query
	PageNumber int            `json:"page_number"` // Page the raw payload belongs to
	Page       domain.RawPage `json:"page"`        // Undecoded listing page
}

func (t *ProductPageTask) TaskType() string {
	return "ProductPageTask"
}

func (t *ProductPageTask) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}

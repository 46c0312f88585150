package task

import (
	"encoding/json"
	"fmt"
)

type Task interface {
	TaskType() string
	TaskValue() ([]byte, error)
}

// TaskTypes lists every task kind that gets its own stream.
var TaskTypes = []string{
	(&ProductPageTask{}).TaskType(),
	(&PageRetryTask{}).TaskType(),
}

// DefaultTaskValue provides a common implementation for TaskValue
func DefaultTaskValue(task interface{}) ([]byte, error) {
	return json.Marshal(task)
}

func UnmarshalTask[T Task](data []byte) (T, error) {
	var t T
	if err := json.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	return t, nil
}

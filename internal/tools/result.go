package tools

import (
	"encoding/json"
	"fmt"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the single shape tool outcomes are normalized into before
// being fed back to the model as a tool-role message.
type Result struct {
	Status   string                 `json:"status"`
	Tool     string                 `json:"tool"`
	Message  string                 `json:"message,omitempty"`
	Data     map[string]interface{} `json:"data,omitempty"`
	Metadata Metadata               `json:"metadata"`
}

type Metadata struct {
	CallerID      string  `json:"caller_id,omitempty"`
	Timestamp     string  `json:"timestamp"`
	ExecutionTime float64 `json:"execution_time"`
	IsMock        bool    `json:"is_mock,omitempty"`
	IsAsync       bool    `json:"is_async,omitempty"`
	TaskID        string  `json:"task_id,omitempty"`
	Elapsed       float64 `json:"elapsed,omitempty"`
}

// Serialize renders the result as the JSON body of a tool-role message.
func (r Result) Serialize() (string, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("serialize tool result: %w", err)
	}
	return string(payload), nil
}

func ParseResult(payload string) (Result, error) {
	var result Result
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return Result{}, fmt.Errorf("parse tool result: %w", err)
	}
	return result, nil
}

// ErrorResult wraps a tool failure as an error-status result so the model
// can explain the failure instead of the run aborting.
func ErrorResult(toolName string, err error) Result {
	return Result{
		Status:  StatusError,
		Tool:    toolName,
		Message: err.Error(),
	}
}

package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/leixiaohui-1974/HydroResources/pkg/logging"
)

var (
	ErrToolExecution = errors.New("tool execution failed")
	ErrToolTimeout   = errors.New("tool execution timed out")
)

// ExecutionError carries the remote backend's response alongside the
// failure so callers can log status and body.
type ExecutionError struct {
	Tool       string
	StatusCode int
	Body       string
	Err        error
}

func (e *ExecutionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("tool %s: backend returned %d: %s", e.Tool, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("tool %s: %v", e.Tool, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrToolExecution
}

type InvokerConfig struct {
	RequestTimeout time.Duration
	PollInterval   time.Duration
	MaxWait        time.Duration
}

// Invoker executes registered tools. Mock tools resolve locally, remote
// tools go through the backend's /execute endpoint, and long-running
// tools use the submit/poll task protocol.
type Invoker struct {
	registry *Registry
	client   *http.Client
	logger   logging.Logger
	cfg      InvokerConfig
}

func NewInvoker(registry *Registry, logger logging.Logger, cfg InvokerConfig) *Invoker {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = 10 * time.Minute
	}
	return &Invoker{
		registry: registry,
		client:   &http.Client{},
		logger:   logger,
		cfg:      cfg,
	}
}

// Invoke runs one tool call to completion. Unknown names fail before any
// network I/O happens.
func (i *Invoker) Invoke(ctx context.Context, toolName string, arguments map[string]interface{}, callerID string) (Result, error) {
	spec, err := i.registry.Lookup(toolName)
	if err != nil {
		return Result{}, err
	}

	i.logger.WithFields(logging.Fields{
		"tool":      spec.Name,
		"mode":      spec.Mode,
		"caller_id": callerID,
	}).Info("Invoking tool")

	switch spec.Mode {
	case ModeRemoteSync:
		return i.invokeRemote(ctx, spec, arguments, callerID)
	case ModeRemoteAsync:
		return i.invokeAsync(ctx, spec, arguments, callerID)
	default:
		return MockResult(spec.Name, arguments, callerID), nil
	}
}

type executeRequest struct {
	ToolName  string                 `json:"tool_name"`
	Arguments map[string]interface{} `json:"arguments"`
	CallerID  string                 `json:"caller_id,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

func (i *Invoker) invokeRemote(ctx context.Context, spec Spec, arguments map[string]interface{}, callerID string) (Result, error) {
	started := time.Now()
	ctx, cancel := context.WithTimeout(ctx, i.cfg.RequestTimeout)
	defer cancel()

	var result Result
	if err := i.postJSON(ctx, spec.Endpoint+"/execute", executeRequest{
		ToolName:  spec.Name,
		Arguments: arguments,
		CallerID:  callerID,
		Timestamp: started.Format(time.RFC3339),
	}, &result); err != nil {
		return Result{}, i.classify(ctx, spec.Name, err)
	}

	if result.Tool == "" {
		result.Tool = spec.Name
	}
	if result.Status == "" {
		result.Status = StatusSuccess
	}
	result.Metadata.CallerID = callerID
	result.Metadata.Timestamp = started.Format(time.RFC3339)
	result.Metadata.ExecutionTime = time.Since(started).Seconds()
	return result, nil
}

type submitResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

type taskStatus struct {
	TaskID   string  `json:"task_id"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Result   *Result `json:"result,omitempty"`
}

func terminal(status string) bool {
	switch status {
	case "completed", "failed", "cancelled":
		return true
	}
	return false
}

func (i *Invoker) invokeAsync(ctx context.Context, spec Spec, arguments map[string]interface{}, callerID string) (Result, error) {
	started := time.Now()

	submitCtx, cancel := context.WithTimeout(ctx, i.cfg.RequestTimeout)
	defer cancel()
	var submitted submitResponse
	if err := i.postJSON(submitCtx, spec.Endpoint+"/tasks/submit", executeRequest{
		ToolName:  spec.Name,
		Arguments: arguments,
		CallerID:  callerID,
		Timestamp: started.Format(time.RFC3339),
	}, &submitted); err != nil {
		return Result{}, i.classify(submitCtx, spec.Name, err)
	}
	if submitted.TaskID == "" {
		return Result{}, &ExecutionError{Tool: spec.Name, Err: errors.New("task submission returned no task_id")}
	}

	i.logger.WithFields(logging.Fields{
		"tool":    spec.Name,
		"task_id": submitted.TaskID,
	}).Info("Async task submitted")

	deadline := started.Add(i.cfg.MaxWait)
	ticker := time.NewTicker(i.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-ticker.C:
		}
		if time.Now().After(deadline) {
			return Result{}, fmt.Errorf("%w: task %s exceeded max wait %s", ErrToolTimeout, submitted.TaskID, i.cfg.MaxWait)
		}

		status, err := i.pollTask(ctx, spec, submitted.TaskID)
		if err != nil {
			return Result{}, i.classify(ctx, spec.Name, err)
		}
		i.logger.WithFields(logging.Fields{
			"tool":     spec.Name,
			"task_id":  submitted.TaskID,
			"status":   status.Status,
			"progress": status.Progress,
		}).Debug("Async task polled")

		if !terminal(status.Status) {
			continue
		}
		if status.Status != "completed" {
			return Result{}, &ExecutionError{
				Tool: spec.Name,
				Err:  fmt.Errorf("task %s ended with status %s", submitted.TaskID, status.Status),
			}
		}

		result := Result{Status: StatusSuccess, Tool: spec.Name}
		if status.Result != nil {
			result = *status.Result
			if result.Tool == "" {
				result.Tool = spec.Name
			}
		}
		result.Metadata.CallerID = callerID
		result.Metadata.Timestamp = started.Format(time.RFC3339)
		result.Metadata.IsAsync = true
		result.Metadata.TaskID = submitted.TaskID
		result.Metadata.Elapsed = time.Since(started).Seconds()
		result.Metadata.ExecutionTime = result.Metadata.Elapsed
		return result, nil
	}
}

func (i *Invoker) pollTask(ctx context.Context, spec Spec, taskID string) (taskStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, i.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, spec.Endpoint+"/tasks/"+taskID, nil)
	if err != nil {
		return taskStatus{}, err
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return taskStatus{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return taskStatus{}, &ExecutionError{
			Tool:       spec.Name,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	var status taskStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return taskStatus{}, fmt.Errorf("decode task status: %w", err)
	}
	return status, nil
}

func (i *Invoker) postJSON(ctx context.Context, url string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		responseBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &ExecutionError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(responseBody)),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// classify maps transport failures onto the invoker's error taxonomy. A
// deadline hit inside the invoker is a tool timeout; a cancelled parent
// context propagates as-is.
func (i *Invoker) classify(ctx context.Context, toolName string, err error) error {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		if execErr.Tool == "" {
			execErr.Tool = toolName
		}
		return execErr
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%w: %s", ErrToolTimeout, toolName)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &ExecutionError{Tool: toolName, Err: err}
}

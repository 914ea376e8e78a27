package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/leixiaohui-1974/HydroResources/internal/conversation"
	"github.com/leixiaohui-1974/HydroResources/internal/tools"
	"github.com/leixiaohui-1974/HydroResources/pkg/llm"
	"github.com/leixiaohui-1974/HydroResources/pkg/logging"
)

const (
	defaultMaxHistory         = 30
	defaultMaxConcurrentTools = 3
	defaultProviderTimeout    = 2 * time.Minute
)

// ToolInvoker executes one tool call to completion.
type ToolInvoker interface {
	Invoke(ctx context.Context, toolName string, arguments map[string]interface{}, callerID string) (tools.Result, error)
}

type Config struct {
	Provider llm.Provider
	Registry *tools.Registry
	Invoker  ToolInvoker
	Store    *conversation.Store
	Logger   logging.Logger

	SystemPrompt       string
	MaxHistory         int
	MaxConcurrentTools int
	ProviderTimeout    time.Duration
}

// Orchestrator drives one conversation turn: user message in, streamed
// provider pass, optional tool dispatch, one continuation pass, final
// answer out. Runs on the same conversation serialize through the
// store's per-conversation lock; the second caller waits.
type Orchestrator struct {
	provider llm.Provider
	registry *tools.Registry
	invoker  ToolInvoker
	store    *conversation.Store
	logger   logging.Logger

	systemPrompt       string
	maxHistory         int
	maxConcurrentTools int
	providerTimeout    time.Duration
}

func NewOrchestrator(cfg Config) *Orchestrator {
	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	maxHistory := cfg.MaxHistory
	if maxHistory <= 0 {
		maxHistory = defaultMaxHistory
	}
	maxConcurrent := cfg.MaxConcurrentTools
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrentTools
	}
	providerTimeout := cfg.ProviderTimeout
	if providerTimeout <= 0 {
		providerTimeout = defaultProviderTimeout
	}
	return &Orchestrator{
		provider:           cfg.Provider,
		registry:           cfg.Registry,
		invoker:            cfg.Invoker,
		store:              cfg.Store,
		logger:             cfg.Logger,
		systemPrompt:       systemPrompt,
		maxHistory:         maxHistory,
		maxConcurrentTools: maxConcurrent,
		providerTimeout:    providerTimeout,
	}
}

type RunRequest struct {
	ConversationID string
	Message        string
	CallerID       string
	SystemPrompt   string
}

// Run executes one turn and returns the event stream. The channel is
// closed after the terminal Completed or Failed event.
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) <-chan Event {
	events := make(chan Event, 64)
	go func() {
		defer close(events)
		runsActive.Inc()
		defer runsActive.Dec()

		o.store.Acquire(req.ConversationID)
		defer o.store.Release(req.ConversationID)

		if err := o.run(ctx, req, events); err != nil {
			runsTotal.WithLabelValues("failed").Inc()
			o.logger.WithFields(logging.Fields{
				"conversation_id": req.ConversationID,
				"caller_id":       req.CallerID,
				"error_kind":      string(classifyError(err)),
				"error":           err.Error(),
			}).Error("Chat run failed")
			events <- failed(err)
			return
		}
		runsTotal.WithLabelValues("completed").Inc()
		events <- completed(req.ConversationID)
	}()
	return events
}

func (o *Orchestrator) run(ctx context.Context, req RunRequest, events chan<- Event) error {
	systemPrompt := req.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = o.systemPrompt
	}
	o.store.GetOrCreate(req.ConversationID, systemPrompt)

	if err := o.store.Append(req.ConversationID, llm.Message{Role: "user", Content: req.Message}); err != nil {
		return err
	}
	history, err := o.store.History(req.ConversationID)
	if err != nil {
		return err
	}

	content, calls, err := o.streamPass(ctx, history, o.registry.ProviderTools(), "initial", events)
	if err != nil {
		return err
	}

	if len(calls) == 0 {
		if err := o.store.Append(req.ConversationID, llm.Message{Role: "assistant", Content: content}); err != nil {
			return err
		}
		return o.store.Trim(req.ConversationID, o.maxHistory)
	}

	for i := range calls {
		if calls[i].ID == "" {
			calls[i].ID = uuid.NewString()
		}
	}

	// The assistant turn and its tool results are buffered and appended
	// together once every call has resolved. A cancellation mid-execution
	// must not leave tool_calls in the history without their results:
	// such a history is rejected by the provider on the next run.
	results, err := o.executeTools(ctx, calls, req.CallerID, events)
	if err != nil {
		return err
	}
	turns := []llm.Message{{
		Role:      "assistant",
		Content:   content,
		ToolCalls: calls,
	}}
	for i, call := range calls {
		payload, err := results[i].Serialize()
		if err != nil {
			return err
		}
		turns = append(turns, llm.Message{
			Role:       "tool",
			Content:    payload,
			Name:       call.Name,
			ToolCallID: call.ID,
		})
	}
	for _, turn := range turns {
		if err := o.store.Append(req.ConversationID, turn); err != nil {
			return err
		}
	}

	// Exactly one continuation pass. The catalog is not re-advertised,
	// and a tool call coming back anyway is a protocol violation.
	history, err = o.store.History(req.ConversationID)
	if err != nil {
		return err
	}
	finalContent, extraCalls, err := o.streamPass(ctx, history, nil, "continuation", events)
	if err != nil {
		return err
	}
	if len(extraCalls) > 0 {
		return fmt.Errorf("%w: tool call %q requested during continuation pass", ErrProviderProtocol, extraCalls[0].Name)
	}

	if err := o.store.Append(req.ConversationID, llm.Message{Role: "assistant", Content: finalContent}); err != nil {
		return err
	}
	return o.store.Trim(req.ConversationID, o.maxHistory)
}

// streamPass drains one provider stream, re-emitting text deltas to the
// caller as they arrive and accumulating tool call fragments.
func (o *Orchestrator) streamPass(ctx context.Context, messages []llm.Message, providerTools []llm.Tool, phase string, events chan<- Event) (string, []llm.ToolCall, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.providerTimeout)
	defer cancel()

	started := time.Now()
	stream, err := o.provider.Complete(callCtx, messages, providerTools)
	if err != nil {
		providerCallsTotal.WithLabelValues(phase, "error").Inc()
		return "", nil, err
	}
	defer stream.Close()

	var content strings.Builder
	var pending []llm.ToolCall
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			providerCallsTotal.WithLabelValues(phase, "error").Inc()
			return "", nil, err
		}
		if chunk.Content != "" {
			content.WriteString(chunk.Content)
			events <- textDelta(chunk.Content)
		}
		if len(chunk.ToolCalls) > 0 {
			pending = mergeToolCalls(pending, chunk.ToolCalls)
		}
	}
	providerCallsTotal.WithLabelValues(phase, "success").Inc()
	providerCallDuration.Observe(time.Since(started).Seconds())
	return content.String(), pending, nil
}

// executeTools runs the turn's tool calls with bounded concurrency.
// A failing tool does not fail the run: the failure is emitted to the
// caller and converted into an error-status result for the model.
// Only context cancellation aborts.
func (o *Orchestrator) executeTools(ctx context.Context, calls []llm.ToolCall, callerID string, events chan<- Event) ([]tools.Result, error) {
	for _, call := range calls {
		events <- Event{
			Type:       EventToolCallStarted,
			ToolCallID: call.ID,
			ToolName:   call.Name,
		}
	}

	results := make([]tools.Result, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.maxConcurrentTools)
	for idx, call := range calls {
		g.Go(func() error {
			arguments, argErr := parseArguments(call.Arguments)
			var result tools.Result
			var err error
			if argErr != nil {
				err = &tools.ExecutionError{Tool: call.Name, Err: argErr}
			} else {
				started := time.Now()
				result, err = o.invoker.Invoke(gctx, call.Name, arguments, callerID)
				toolCallDuration.WithLabelValues(call.Name).Observe(time.Since(started).Seconds())
			}
			if err != nil {
				if errors.Is(err, context.Canceled) || gctx.Err() != nil {
					return err
				}
				toolCallsTotal.WithLabelValues(call.Name, "error").Inc()
				o.logger.WithFields(logging.Fields{
					"tool":  call.Name,
					"error": err.Error(),
				}).Warn("Tool call failed")
				events <- Event{
					Type:       EventToolCallFailed,
					ToolCallID: call.ID,
					ToolName:   call.Name,
					ErrorKind:  classifyError(err),
					Error:      err.Error(),
				}
				results[idx] = tools.ErrorResult(call.Name, err)
				return nil
			}
			toolCallsTotal.WithLabelValues(call.Name, "success").Inc()
			resultCopy := result
			events <- Event{
				Type:       EventToolCallCompleted,
				ToolCallID: call.ID,
				ToolName:   call.Name,
				Result:     &resultCopy,
			}
			results[idx] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func parseArguments(raw string) (map[string]interface{}, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]interface{}{}, nil
	}
	var arguments map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &arguments); err != nil {
		return nil, fmt.Errorf("malformed tool arguments: %w", err)
	}
	return arguments, nil
}

// mergeToolCalls accumulates tool calls across streaming chunks. A
// fragment with an empty ID continues the most recent call; a known ID
// extends that call's arguments; a new ID starts a new call.
func mergeToolCalls(existing, incoming []llm.ToolCall) []llm.ToolCall {
	for _, inc := range incoming {
		if inc.ID == "" && len(existing) > 0 {
			existing[len(existing)-1].Arguments += inc.Arguments
			if inc.Name != "" {
				existing[len(existing)-1].Name = inc.Name
			}
			continue
		}
		found := false
		for i := range existing {
			if existing[i].ID == inc.ID {
				existing[i].Arguments += inc.Arguments
				if inc.Name != "" {
					existing[i].Name = inc.Name
				}
				found = true
				break
			}
		}
		if !found {
			existing = append(existing, inc)
		}
	}
	return existing
}

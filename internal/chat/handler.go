package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/leixiaohui-1974/HydroResources/internal/conversation"
	"github.com/leixiaohui-1974/HydroResources/internal/tools"
	"github.com/leixiaohui-1974/HydroResources/pkg/ctxkeys"
	"github.com/leixiaohui-1974/HydroResources/pkg/logging"
)

const maxMessageRunes = 10000

type Handler struct {
	Orchestrator *Orchestrator
	Store        *conversation.Store
	Registry     *tools.Registry
	Logger       logging.Logger
}

func NewHandler(orchestrator *Orchestrator, store *conversation.Store, registry *tools.Registry, logger logging.Logger) *Handler {
	return &Handler{
		Orchestrator: orchestrator,
		Store:        store,
		Registry:     registry,
		Logger:       logger,
	}
}

func RegisterRoutes(router gin.IRoutes, handler *Handler) {
	router.POST("/chat", handler.HandleChat)
	router.GET("/tools", handler.HandleListTools)
	router.GET("/conversations/:id", handler.HandleGetConversation)
	router.DELETE("/conversations/:id", handler.HandleDeleteConversation)
}

type ChatRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
	SystemPrompt   string `json:"system_prompt,omitempty"`
}

// HandleChat runs one conversation turn and streams orchestrator events
// to the client as SSE frames.
func (h *Handler) HandleChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}
	if len([]rune(req.Message)) > maxMessageRunes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message too long"})
		return
	}
	if strings.TrimSpace(req.ConversationID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "conversation_id is required"})
		return
	}

	callerID := ctxkeys.GetUserID(c.Request.Context())
	if callerID == "" {
		callerID = "anonymous"
	}

	streamer, err := newSSEStreamer(c.Writer)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unavailable"})
		return
	}
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Header("X-Conversation-ID", req.ConversationID)
	c.Status(http.StatusOK)

	events := h.Orchestrator.Run(c.Request.Context(), RunRequest{
		ConversationID: req.ConversationID,
		Message:        req.Message,
		CallerID:       callerID,
		SystemPrompt:   req.SystemPrompt,
	})
	for event := range events {
		if event.Type == EventFailed {
			// The structured error is logged by the orchestrator; the
			// client gets a generic failure plus the error kind.
			event.Error = "处理请求时发生错误，请稍后重试"
		}
		if err := streamer.SendEvent(event); err != nil {
			h.Logger.WithFields(logging.Fields{
				"conversation_id": req.ConversationID,
				"error":           err.Error(),
			}).Warn("Client disconnected during SSE stream")
			// Drain so the run finishes and the store stays consistent.
			for range events {
			}
			return
		}
	}
	_ = streamer.SendDone()
}

func (h *Handler) HandleListTools(c *gin.Context) {
	specs := h.Registry.List()
	type toolInfo struct {
		Name        string                 `json:"name"`
		Description string                 `json:"description"`
		Mode        string                 `json:"mode"`
		Parameters  map[string]interface{} `json:"parameters"`
	}
	infos := make([]toolInfo, 0, len(specs))
	for _, spec := range specs {
		infos = append(infos, toolInfo{
			Name:        spec.Name,
			Description: spec.Description,
			Mode:        string(spec.Mode),
			Parameters:  spec.Parameters,
		})
	}
	c.JSON(http.StatusOK, gin.H{"tools": infos})
}

func (h *Handler) HandleGetConversation(c *gin.Context) {
	history, err := h.Store.History(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"conversation_id": c.Param("id"),
		"messages":        history,
	})
}

func (h *Handler) HandleDeleteConversation(c *gin.Context) {
	if err := h.Store.Clear(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

type sseStreamer struct {
	writer  http.ResponseWriter
	flusher http.Flusher
}

func newSSEStreamer(writer http.ResponseWriter) (*sseStreamer, error) {
	flusher, ok := writer.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not support streaming")
	}
	return &sseStreamer{writer: writer, flusher: flusher}, nil
}

func (s *sseStreamer) SendEvent(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.writer, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseStreamer) SendDone() error {
	if _, err := fmt.Fprint(s.writer, "data: [DONE]\n\n"); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

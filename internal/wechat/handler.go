package wechat

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/leixiaohui-1974/HydroResources/internal/chat"
	"github.com/leixiaohui-1974/HydroResources/pkg/logging"
)

// WeChat truncates long replies; around 2048 characters is the platform
// ceiling for a single text message.
const maxReplyRunes = 2000

const truncationNotice = "\n\n[回复内容较长已截断，建议访问Web系统获得完整回复]"

const welcomeMessage = `欢迎关注HydroNet水网智能体系统！

我是您的智能水网助手。我可以帮您：
- 水网仿真与预测
- 系统参数辨识
- 智能调度优化
- 控制策略设计
- 性能测试评估

直接发送消息开始对话吧，例如："帮我做一个水网仿真"`

const fallbackReply = "抱歉，处理您的消息时遇到了问题，请稍后再试。"

const unsupportedReply = "抱歉，我暂时只能处理文字消息。请发送文字和我对话！"

type Handler struct {
	Orchestrator *chat.Orchestrator
	Logger       logging.Logger
	Token        string
}

func NewHandler(orchestrator *chat.Orchestrator, logger logging.Logger, token string) *Handler {
	return &Handler{Orchestrator: orchestrator, Logger: logger, Token: token}
}

func RegisterRoutes(router gin.IRoutes, handler *Handler) {
	router.GET("/wechat", handler.HandleVerify)
	router.POST("/wechat", handler.HandleMessage)
}

// HandleVerify answers the WeChat server's URL ownership challenge.
func (h *Handler) HandleVerify(c *gin.Context) {
	if !VerifySignature(h.Token, c.Query("signature"), c.Query("timestamp"), c.Query("nonce")) {
		c.String(http.StatusForbidden, "invalid signature")
		return
	}
	c.String(http.StatusOK, c.Query("echostr"))
}

// HandleMessage drains one full orchestrator run into a single XML text
// reply, since WeChat expects exactly one synchronous response.
func (h *Handler) HandleMessage(c *gin.Context) {
	if !VerifySignature(h.Token, c.Query("signature"), c.Query("timestamp"), c.Query("nonce")) {
		c.String(http.StatusForbidden, "invalid signature")
		return
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.String(http.StatusBadRequest, "unreadable body")
		return
	}
	inbound, err := ParseMessage(payload)
	if err != nil {
		h.Logger.WithFields(logging.Fields{"error": err.Error()}).Warn("Malformed WeChat message")
		c.String(http.StatusBadRequest, "malformed message")
		return
	}

	switch inbound.MsgType {
	case "text":
		h.replyText(c, inbound, h.answer(c, inbound))
	case "event":
		if inbound.Event == "subscribe" {
			h.replyText(c, inbound, welcomeMessage)
			return
		}
		// Unsubscribe and other events need no reply.
		c.String(http.StatusOK, "success")
	default:
		h.replyText(c, inbound, unsupportedReply)
	}
}

// answer runs the orchestrator and concatenates every text delta.
func (h *Handler) answer(c *gin.Context, inbound InboundMessage) string {
	conversationID := "wechat:" + inbound.FromUserName

	var reply strings.Builder
	events := h.Orchestrator.Run(c.Request.Context(), chat.RunRequest{
		ConversationID: conversationID,
		Message:        inbound.Content,
		CallerID:       inbound.FromUserName,
	})
	failed := false
	for event := range events {
		switch event.Type {
		case chat.EventTextDelta:
			reply.WriteString(event.Content)
		case chat.EventFailed:
			failed = true
		}
	}
	if failed || reply.Len() == 0 {
		return fallbackReply
	}
	return truncate(reply.String(), maxReplyRunes)
}

func (h *Handler) replyText(c *gin.Context, inbound InboundMessage, content string) {
	response, err := TextReply(inbound, content)
	if err != nil {
		h.Logger.WithFields(logging.Fields{"error": err.Error()}).Error("Failed to render WeChat reply")
		c.String(http.StatusOK, "success")
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", response)
}

func truncate(content string, maxRunes int) string {
	runes := []rune(content)
	if len(runes) <= maxRunes {
		return content
	}
	return string(runes[:maxRunes]) + truncationNotice
}

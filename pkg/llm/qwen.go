package llm

const (
	qwenDefaultURL   = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	qwenDefaultModel = "qwen-plus"
)

// QwenProvider talks to Alibaba DashScope's OpenAI-compatible endpoint.
type QwenProvider struct {
	*chatProvider
}

func NewQwenProvider(cfg Config) *QwenProvider {
	return &QwenProvider{newChatProvider("qwen", cfg, qwenDefaultURL, qwenDefaultModel)}
}

package llm

const (
	hunyuanDefaultURL   = "https://api.hunyuan.cloud.tencent.com/v1"
	hunyuanDefaultModel = "hunyuan-turbos-latest"
)

// HunyuanProvider talks to Tencent Hunyuan's OpenAI-compatible endpoint.
type HunyuanProvider struct {
	*chatProvider
}

func NewHunyuanProvider(cfg Config) *HunyuanProvider {
	return &HunyuanProvider{newChatProvider("hunyuan", cfg, hunyuanDefaultURL, hunyuanDefaultModel)}
}

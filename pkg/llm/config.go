package llm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/leixiaohui-1974/HydroResources/pkg/config"
)

var ErrMissingAPIKey = errors.New("llm: api key is required")

type Config struct {
	Provider    string
	Model       string
	APIKey      string
	APIURL      string
	MaxTokens   int
	Temperature float64
}

func LoadConfig() Config {
	temperature := 0.0
	if raw := config.GetEnv("LLM_TEMPERATURE", ""); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
			temperature = parsed
		}
	}
	return Config{
		Provider:    config.GetEnv("LLM_PROVIDER", "qwen"),
		Model:       config.GetEnv("LLM_MODEL", ""),
		APIKey:      config.GetEnv("LLM_API_KEY", ""),
		APIURL:      config.GetEnv("LLM_API_URL", ""),
		MaxTokens:   config.GetEnvInt("LLM_MAX_TOKENS", 0),
		Temperature: temperature,
	}
}

// NewProvider builds the configured vendor adapter. Credential problems
// surface here rather than mid-stream on the first completion.
func NewProvider(cfg Config) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	switch strings.ToLower(cfg.Provider) {
	case "qwen":
		return NewQwenProvider(cfg), nil
	case "hunyuan":
		return NewHunyuanProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/leixiaohui-1974/HydroResources/internal/tools"
	"github.com/leixiaohui-1974/HydroResources/pkg/config"
	"github.com/leixiaohui-1974/HydroResources/pkg/llm"
)

// Config stores environment configuration for the HydroNet service.
type Config struct {
	Port               string
	LLM                llm.Config
	JWTSecret          string
	WeChatToken        string
	ArchiveDBPath      string
	MaxHistoryMessages int
	MaxConcurrentTools int
	ProviderTimeout    time.Duration
	ChatRateLimit      int
	RateLimitWindow    time.Duration
	RateLimitOverrides map[string]int
	ToolRequestTimeout time.Duration
	ToolPollInterval   time.Duration
	ToolMaxWait        time.Duration
	ToolEndpoints      map[string]tools.Endpoint
}

// catalogTools are the tool names that accept per-tool endpoint
// configuration via <NAME>_SERVICE_URL / <NAME>_SERVICE_ASYNC.
var catalogTools = []string{"simulation", "identification", "scheduling", "control", "testing"}

// LoadConfig loads the HydroNet configuration from environment variables.
func LoadConfig() Config {
	return Config{
		Port:               config.GetEnv("PORT", "18080"),
		LLM:                llm.LoadConfig(),
		JWTSecret:          config.GetEnv("JWT_SECRET", ""),
		WeChatToken:        config.GetEnv("WECHAT_TOKEN", ""),
		ArchiveDBPath:      config.GetEnv("ARCHIVE_DB_PATH", ""),
		MaxHistoryMessages: config.GetEnvInt("HYDRONET_MAX_HISTORY_MESSAGES", 30),
		MaxConcurrentTools: config.GetEnvInt("HYDRONET_MAX_CONCURRENT_TOOLS", 3),
		ProviderTimeout:    config.GetEnvDuration("HYDRONET_PROVIDER_TIMEOUT", 2*time.Minute),
		ChatRateLimit:      config.GetEnvInt("HYDRONET_CHAT_RATE_LIMIT", 0),
		RateLimitWindow:    config.GetEnvDuration("HYDRONET_CHAT_RATE_WINDOW", time.Minute),
		RateLimitOverrides: parseRateLimitOverrides(config.GetEnv("HYDRONET_CHAT_RATE_LIMIT_OVERRIDES", "")),
		ToolRequestTimeout: config.GetEnvDuration("TOOL_REQUEST_TIMEOUT", 30*time.Second),
		ToolPollInterval:   config.GetEnvDuration("TOOL_POLL_INTERVAL", 2*time.Second),
		ToolMaxWait:        config.GetEnvDuration("TOOL_MAX_WAIT", 10*time.Minute),
		ToolEndpoints:      loadToolEndpoints(),
	}
}

// loadToolEndpoints reads per-tool executor endpoints. A tool without a
// configured URL runs in mock mode.
func loadToolEndpoints() map[string]tools.Endpoint {
	endpoints := map[string]tools.Endpoint{}
	for _, name := range catalogTools {
		prefix := strings.ToUpper(name) + "_SERVICE"
		url := strings.TrimSpace(config.GetEnv(prefix+"_URL", ""))
		if url == "" {
			continue
		}
		endpoints[name] = tools.Endpoint{
			URL:   strings.TrimRight(url, "/"),
			Async: config.GetEnvBool(prefix+"_ASYNC", false),
		}
	}
	return endpoints
}

func parseRateLimitOverrides(raw string) map[string]int {
	overrides := map[string]int{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return overrides
	}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 2 {
			continue
		}
		callerID := strings.TrimSpace(parts[0])
		if callerID == "" {
			continue
		}
		limit, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || limit < 0 {
			continue
		}
		overrides[callerID] = limit
	}
	return overrides
}

package main

import (
	"context"
	"net/http"

	"github.com/leixiaohui-1974/HydroResources/internal/chat"
	hydroconfig "github.com/leixiaohui-1974/HydroResources/internal/config"
	"github.com/leixiaohui-1974/HydroResources/internal/conversation"
	"github.com/leixiaohui-1974/HydroResources/internal/mcpspoke"
	"github.com/leixiaohui-1974/HydroResources/internal/quota"
	"github.com/leixiaohui-1974/HydroResources/internal/tools"
	"github.com/leixiaohui-1974/HydroResources/internal/wechat"
	"github.com/leixiaohui-1974/HydroResources/pkg/auth"
	"github.com/leixiaohui-1974/HydroResources/pkg/config"
	"github.com/leixiaohui-1974/HydroResources/pkg/llm"
	"github.com/leixiaohui-1974/HydroResources/pkg/logging"
	"github.com/leixiaohui-1974/HydroResources/pkg/monitoring"
	"github.com/leixiaohui-1974/HydroResources/pkg/server"
	"github.com/leixiaohui-1974/HydroResources/pkg/version"

	"github.com/gin-gonic/gin"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService("hydronet")

	// Load environment variables
	config.LoadEnv(logger)

	logger.Info("Starting HydroNet (water resources AI assistant)")

	cfg := hydroconfig.LoadConfig()

	// Setup monitoring
	healthChecker := monitoring.NewHealthChecker("hydronet", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("hydronet", version.Version, version.GitCommit)

	healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{
		"LLM_API_KEY": cfg.LLM.APIKey,
	}))
	for name, endpoint := range cfg.ToolEndpoints {
		healthChecker.AddCheck("tool_"+name, monitoring.HTTPHealthCheck(endpoint.URL+"/health"))
	}

	llmProvider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize LLM provider")
	}

	registry := tools.NewRegistry()
	if err := tools.RegisterCatalog(registry, cfg.ToolEndpoints); err != nil {
		logger.WithError(err).Fatal("Failed to register tool catalog")
	}
	invoker := tools.NewInvoker(registry, logger, tools.InvokerConfig{
		RequestTimeout: cfg.ToolRequestTimeout,
		PollInterval:   cfg.ToolPollInterval,
		MaxWait:        cfg.ToolMaxWait,
	})

	store := conversation.NewStore()

	// Optional SQLite archive: mirrors every conversation to disk so
	// history survives restarts.
	if cfg.ArchiveDBPath != "" {
		db, err := conversation.OpenArchiveDB(cfg.ArchiveDBPath)
		if err != nil {
			logger.WithError(err).Fatal("Failed to open archive database")
		}
		defer func() { _ = db.Close() }()
		archiver, err := conversation.NewArchiver(db, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize conversation archiver")
		}
		defer archiver.Close()
		if err := archiver.Rehydrate(store); err != nil {
			logger.WithError(err).Fatal("Failed to rehydrate conversations from archive")
		}
		store.Subscribe(archiver)
		healthChecker.AddCheck("archive", monitoring.DatabaseHealthCheck(db))
		logger.WithField("path", cfg.ArchiveDBPath).Info("Conversation archive enabled")
	}

	orchestrator := chat.NewOrchestrator(chat.Config{
		Provider:           llmProvider,
		Registry:           registry,
		Invoker:            invoker,
		Store:              store,
		Logger:             logger,
		MaxHistory:         cfg.MaxHistoryMessages,
		MaxConcurrentTools: cfg.MaxConcurrentTools,
		ProviderTimeout:    cfg.ProviderTimeout,
	})

	rateLimiter := quota.NewLimiter(cfg.ChatRateLimit, cfg.RateLimitOverrides, cfg.RateLimitWindow)
	rateLimiter.StartCleanup(context.Background())

	// Setup router with unified monitoring (health/metrics only)
	router := server.SetupServiceRouter(logger, "hydronet", healthChecker, metricsCollector)

	apiGroup := router.Group("/api/hydronet")
	if cfg.JWTSecret != "" {
		apiGroup.Use(auth.JWTAuthMiddleware([]byte(cfg.JWTSecret)))
	} else {
		logger.Warn("JWT_SECRET not set - chat API is unauthenticated")
	}
	apiGroup.Use(quota.Middleware(rateLimiter))
	chatHandler := chat.NewHandler(orchestrator, store, registry, logger)
	chat.RegisterRoutes(apiGroup, chatHandler)

	// WeChat webhook authenticates per request via signature, not JWT.
	if cfg.WeChatToken != "" {
		wechatHandler := wechat.NewHandler(orchestrator, logger, cfg.WeChatToken)
		wechat.RegisterRoutes(router, wechatHandler)
	} else {
		logger.Warn("WECHAT_TOKEN not set - WeChat webhook disabled")
	}

	// MCP endpoint exposes the tool catalog to external MCP clients.
	mcpServer, err := mcpspoke.NewServer(mcpspoke.Config{
		Registry: registry,
		Invoker:  invoker,
		Logger:   logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize MCP server")
	}
	mcpHandler := mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return mcpServer },
		&mcp.StreamableHTTPOptions{Stateless: true},
	)
	router.Any("/mcp/*path", gin.WrapH(http.Handler(mcpHandler)))

	// Start HTTP server with graceful shutdown
	serverConfig := server.DefaultConfig("hydronet", cfg.Port)
	if err := server.Start(serverConfig, router, logger); err != nil {
		logger.WithError(err).Fatal("Server startup failed")
	}
}

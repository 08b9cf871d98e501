package main

import (
	"context"
	"errors"
	"net/http"

	rawiconfig "rawi/internal/config"
	"rawi/internal/mcpspoke"
	"rawi/internal/pipeline"
	"rawi/pkg/config"
	"rawi/pkg/llm"
	"rawi/pkg/logging"
	"rawi/pkg/monitoring"
	"rawi/pkg/retrieval"
	"rawi/pkg/search"
	"rawi/pkg/server"
	"rawi/pkg/version"

	"github.com/gin-gonic/gin"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService("rawi")

	// Load environment variables
	config.LoadEnv(logger)
	// The logger was built before the .env overlay, so re-apply LOG_LEVEL.
	logging.SetLevel(logger, config.GetLogLevel())

	logger.WithFields(logging.Fields{
		"version": version.Version,
		"commit":  version.GetShortCommit(),
		"built":   version.BuildDate,
	}).Info("Starting Rawi (Islamic Topics Q&A API)")

	cfg := rawiconfig.LoadConfig()

	// Setup monitoring
	healthChecker := monitoring.NewHealthChecker("rawi", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("rawi", version.Version, version.GitCommit)

	// Generation is required; without it no stage can run.
	generation, err := llm.NewProvider(context.Background(), cfg.LLM, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize generation provider")
	}

	corpus := retrieval.NewFanarRAG(cfg.Retrieval, logger)

	// Web search is optional. The pipeline degrades web-dependent questions
	// instead of failing them.
	webSearch, err := search.NewProvider(cfg.Search, logger)
	if err != nil {
		if errors.Is(err, search.ErrNotConfigured) {
			logger.Warn("Web search not configured - answers will use corpus retrieval only")
		} else {
			logger.WithError(err).Warn("Failed to initialize web search provider - continuing without web search")
		}
		webSearch = nil
	}

	// Add health checks
	if pinger, ok := generation.(llm.Pinger); ok {
		healthChecker.AddCheck("generation", monitoring.PingerHealthCheck("generation provider", pinger))
	} else {
		healthChecker.AddCheck("generation", monitoring.ConfigurationHealthCheck(map[string]string{
			"LLM_PROVIDER": cfg.LLM.Provider,
		}))
	}
	healthChecker.AddCheck("retrieval", monitoring.PingerHealthCheck("retrieval corpus", corpus))
	healthChecker.AddCheck("web_search", func() monitoring.CheckResult {
		if webSearch == nil {
			return monitoring.CheckResult{
				Status:  monitoring.StatusDegraded,
				Message: "web search not configured; web-dependent questions degrade",
			}
		}
		return monitoring.CheckResult{
			Status:  monitoring.StatusHealthy,
			Message: "provider: " + cfg.Search.Provider,
		}
	})

	pipelineMetrics := pipeline.NewMetrics(metricsCollector)
	orchestrator, err := pipeline.New(pipeline.Config{
		LLM:               generation,
		Retrieval:         corpus,
		WebSearch:         webSearch,
		SearchLimit:       cfg.SearchLimit,
		SearchDepth:       cfg.SearchDepth,
		RequestTimeout:    cfg.RequestTimeout,
		PromptTokenBudget: cfg.PromptTokenBudget,
		Strictness:        pipeline.Strictness(cfg.CitationStrictness),
		Metrics:           pipelineMetrics,
		Logger:            logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to assemble pipeline")
	}

	askHandler := pipeline.NewHandler(orchestrator, pipelineMetrics, logger)

	// Setup router with unified monitoring (health/metrics only)
	router := server.SetupServiceRouter(logger, "rawi", healthChecker, metricsCollector)
	v1 := router.Group("/v1")
	pipeline.RegisterRoutes(v1, askHandler)

	// MCP surface: the same pipeline and ports exposed as tools.
	spoke := mcpspoke.NewServer(mcpspoke.Config{
		Pipeline:    orchestrator,
		Corpus:      corpus,
		WebSearch:   webSearch,
		Logger:      logger,
		SearchLimit: cfg.SearchLimit,
		SearchDepth: cfg.SearchDepth,
	})
	mcpHandler := mcp.NewStreamableHTTPHandler(
		func(*http.Request) *mcp.Server { return spoke },
		&mcp.StreamableHTTPOptions{Stateless: true},
	)
	router.Any("/mcp/*path", gin.WrapH(http.Handler(mcpHandler)))

	// Start HTTP server with graceful shutdown
	serverConfig := server.DefaultConfig("rawi", cfg.Port)
	if err := server.Start(serverConfig, router, logger); err != nil {
		logger.WithError(err).Fatal("Server startup failed")
	}
}

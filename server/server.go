package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/a2a-go/runtime/server/config"
	"github.com/a2a-go/runtime/server/middlewares"
	"github.com/a2a-go/runtime/server/otel"
	"github.com/a2a-go/runtime/types"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server is the mountable A2A runtime: a gin engine serving the JSON-RPC
// endpoint, the REST mirror, and agent card discovery, with an optional
// telemetry server on a second port.
type Server struct {
	cfg         *config.Config
	logger      *zap.Logger
	taskManager TaskManager
	otel        otel.OpenTelemetry

	jsonRPCHandler *JSONRPCHandler
	restHandler    *RESTHandler
	cardService    *AgentCardService

	httpServer    *http.Server
	metricsServer *http.Server
}

// New builds a Server over the given task manager and capability set.
func New(cfg *config.Config, logger *zap.Logger, taskManager TaskManager, capabilities AgentCapabilities, telemetry otel.OpenTelemetry) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	responseSender := NewDefaultResponseSender(logger)

	return &Server{
		cfg:            cfg,
		logger:         logger,
		taskManager:    taskManager,
		otel:           telemetry,
		jsonRPCHandler: NewJSONRPCHandler(logger, taskManager, responseSender),
		restHandler:    NewRESTHandler(logger, taskManager),
		cardService:    NewAgentCardService(logger, cfg.AgentURL, capabilities),
	}
}

func (s *Server) setupRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if s.cfg.Debug {
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.LoggingMiddleware(s.cfg.ServerConfig.DisableHealthcheckLog))
	if s.cfg.TelemetryConfig.Enable && s.otel != nil {
		r.Use(middlewares.NewTelemetryMiddleware(s.otel, s.logger).Middleware())
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/.well-known/agent.json", s.cardService.Handle)
	r.GET("/v1/card", s.cardService.Handle)

	agentPath := s.cfg.ServerConfig.AgentPath
	if agentPath == "" {
		agentPath = "/a2a"
	}
	r.POST(agentPath, s.jsonRPCHandler.Handle)

	s.restHandler.Register(r)

	return r
}

// Start runs the HTTP server (and, if telemetry is enabled, a second
// metrics server) until ctx is canceled or an unrecoverable error occurs.
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRouter()

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%s", s.cfg.ServerConfig.Port),
		Handler: router,
	}

	s.logger.Info("starting a2a server", zap.String("port", s.cfg.ServerConfig.Port))

	go func() {
		<-ctx.Done()
		_ = s.Stop(context.Background())
	}()

	if s.cfg.TelemetryConfig.Enable && s.otel != nil {
		go func() {
			metricsRouter := gin.New()
			metricsRouter.Use(gin.Recovery())
			metricsRouter.GET("/metrics", gin.WrapH(promhttp.Handler()))

			metricsAddr := s.cfg.TelemetryConfig.MetricsConfig.Host + ":" + s.cfg.TelemetryConfig.MetricsConfig.Port
			s.metricsServer = &http.Server{Addr: metricsAddr, Handler: metricsRouter}

			s.logger.Info("starting metrics server", zap.String("port", s.cfg.TelemetryConfig.MetricsConfig.Port))
			if err := s.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.logger.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts down the HTTP and metrics servers.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping a2a server")

	var firstErr error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("error stopping http server", zap.Error(err))
			firstErr = err
		}
	}
	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(ctx); err != nil {
			s.logger.Error("error stopping metrics server", zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// GetAgentCard resolves the current AgentCard with the caller's ctx, for
// hosts that need it outside a request.
func (s *Server) GetAgentCard(ctx context.Context) (types.AgentCard, error) {
	return s.cardService.capabilities.OnAgentCardQuery(ctx, s.cfg.AgentURL)
}

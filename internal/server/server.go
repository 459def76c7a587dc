// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/ThinkInAIXYZ/go-mcp/server"
	"github.com/go-chi/httprate"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"food-analyzer/internal/analyzer"
	"food-analyzer/internal/config"
	"food-analyzer/internal/upstream"
)

const Version = "1.0.0"

type FoodAnalyzerServer struct {
	server     *server.Server
	httpServer *http.Server
	analyzer   *analyzer.Service
	tools      map[string]toolHandler
	config     *config.Config
	logger     *zap.Logger
}

func NewFoodAnalyzerServer(cfg *config.Config, svc *analyzer.Service, logger *zap.Logger) (*FoodAnalyzerServer, error) {
	foodServer := &FoodAnalyzerServer{
		analyzer: svc,
		config:   cfg,
		logger:   logger,
	}

	// MCP server without transport, tool calls arrive over plain HTTP
	mcpServer, err := server.NewServer(
		nil,
		server.WithServerInfo(protocol.Implementation{
			Name:    "food-analyzer",
			Version: Version,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP server: %w", err)
	}
	foodServer.server = mcpServer
	foodServer.registerTools()

	foodServer.httpServer = &http.Server{
		Addr:    cfg.Addr(),
		Handler: foodServer.Handler(),
	}

	return foodServer, nil
}

// NewAnalyzer wires the OpenAI client into an analysis service.
func NewAnalyzer(cfg *config.Config, logger *zap.Logger) *analyzer.Service {
	client := upstream.NewClient(upstream.Config{
		APIKey:      cfg.OpenAI.APIKey,
		BaseURL:     cfg.OpenAI.BaseURL,
		Model:       cfg.OpenAI.Model,
		MaxTokens:   cfg.OpenAI.MaxTokens,
		Temperature: cfg.OpenAI.Temperature,
		Timeout:     cfg.OpenAI.Timeout,
	}, logger.Named("upstream"))
	return analyzer.NewService(client, cfg.HasAPIKey(), logger.Named("analyzer"))
}

// Handler is the full middleware stack around every route.
func (s *FoodAnalyzerServer) Handler() http.Handler {
	limit := httprate.Limit(
		s.config.RateLimit,
		s.config.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(rateLimited),
	)
	analyze := &analyzeHandler{
		service:      s.analyzer,
		maxBodyBytes: s.config.MaxBodyBytes,
		logger:       s.logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", handleStatus)
	mux.HandleFunc("GET /health", handleHealth)
	mux.Handle("POST /api/analyze-food", limit(analyze))
	mux.Handle("POST /mcp", limit(http.HandlerFunc(s.handleMCP)))

	corsOptions := cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{http.MethodPost},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: true,
	}
	if s.config.Debug {
		corsOptions.Logger = zap.NewStdLog(s.logger.Named("cors"))
	}

	return chain(mux,
		withRequestID(s.logger),
		accessLog(s.logger),
		recoverer(s.logger),
		cors.New(corsOptions).Handler,
	)
}

// NewFunctionHandler serves the analysis on any path for a managed function
// runtime: permissive CORS, no rate limit.
func NewFunctionHandler(svc *analyzer.Service, maxBodyBytes int64, logger *zap.Logger) http.Handler {
	analyze := &analyzeHandler{service: svc, maxBodyBytes: maxBodyBytes, logger: logger}
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeFailure(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		analyze.ServeHTTP(w, r)
	})
	return chain(h,
		withRequestID(logger),
		accessLog(logger),
		recoverer(logger),
		cors.AllowAll().Handler,
	)
}

func (s *FoodAnalyzerServer) handleMCP(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r.Context(), s.logger)

	var request protocol.CallToolRequest
	body := http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&request); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, MessageBodyTooLarge, http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	handler, ok := s.tools[request.Name]
	if !ok {
		http.Error(w, fmt.Sprintf("Unknown tool: %s", request.Name), http.StatusNotFound)
		return
	}

	result, err := handler(r.Context(), &request)
	if err != nil {
		logger.Warn("tool call failed", zap.String("tool", request.Name), zap.Error(err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *FoodAnalyzerServer) Start(ctx context.Context) error {
	s.logger.Info("starting food analyzer server",
		zap.String("addr", s.httpServer.Addr),
		zap.Bool("api_key_set", s.config.HasAPIKey()),
		zap.Strings("allowed_origins", s.config.AllowedOrigins),
		zap.Int("rate_limit", s.config.RateLimit),
		zap.Duration("rate_limit_window", s.config.RateLimitWindow),
	)
	if !s.config.HasAPIKey() {
		s.logger.Warn("OPENAI_API_KEY is not set, analyses will fail until it is configured")
	}

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests until ctx is done.
func (s *FoodAnalyzerServer) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

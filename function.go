// function.go
package foodanalyzer

import (
	"net/http"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"go.uber.org/zap"

	"food-analyzer/internal/analyzer"
	"food-analyzer/internal/config"
	"food-analyzer/internal/logging"
	"food-analyzer/internal/server"
)

var (
	once    sync.Once
	handler http.Handler
)

func init() {
	functions.HTTP("AnalyzeFood", AnalyzeFood)
}

// AnalyzeFood is the Cloud Functions entry point. Configuration is read on
// the first invocation.
func AnalyzeFood(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		handler = newHandler()
	})
	handler.ServeHTTP(w, r)
}

func newHandler() http.Handler {
	cfg, cfgErr := config.Load()
	logger, err := logging.New(cfgErr == nil && cfg.Debug)
	if err != nil {
		logger = zap.NewNop()
	}
	if cfgErr != nil {
		logger.Error("invalid configuration, serving errors", zap.Error(cfgErr))
		return misconfigured(logger)
	}
	if !cfg.HasAPIKey() {
		logger.Warn("OPENAI_API_KEY is not set, only simulated analyses will succeed")
	}
	return server.NewFunctionHandler(server.NewAnalyzer(cfg, logger), cfg.MaxBodyBytes, logger)
}

// misconfigured keeps simulation available and fails every real analysis
// with the configuration error.
func misconfigured(logger *zap.Logger) http.Handler {
	const maxBodyBytes = 10 << 20
	return server.NewFunctionHandler(analyzer.NewService(nil, false, logger), maxBodyBytes, logger)
}

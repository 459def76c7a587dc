// internal/server/handlers.go
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"food-analyzer/internal/analyzer"
	"food-analyzer/internal/models"
)

const (
	MessageInvalidBody  = "Invalid request body"
	MessageBodyTooLarge = "Request body too large"
	MessageRateLimited  = "Too many requests, please try again later."
)

// analyzeHandler serves POST /api/analyze-food. The same value backs the
// standalone server and the Cloud Functions entry point.
type analyzeHandler struct {
	service      *analyzer.Service
	maxBodyBytes int64
	logger       *zap.Logger
}

func (h *analyzeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r.Context(), h.logger)

	req, err := h.decode(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.Warn("request body too large", zap.Int64("limit", tooLarge.Limit))
			writeFailure(w, http.StatusRequestEntityTooLarge, MessageBodyTooLarge)
			return
		}
		logger.Warn("invalid request body", zap.Error(err))
		writeFailure(w, http.StatusBadRequest, MessageInvalidBody)
		return
	}

	result, err := h.service.Analyze(r.Context(), req)
	if err != nil {
		writeAnalyzeError(w, logger, err)
		return
	}
	writeJSON(w, http.StatusOK, successEnvelope(result))
}

// decode reads the JSON body. An empty body is an empty request so that it
// is reported as a missing image. ?simulate=true overrides the body flag.
func (h *analyzeHandler) decode(w http.ResponseWriter, r *http.Request) (models.AnalysisRequest, error) {
	var req models.AnalysisRequest
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return req, err
	}
	if simulate, err := strconv.ParseBool(r.URL.Query().Get("simulate")); err == nil && simulate {
		req.Simulate = true
	}
	return req, nil
}

func successEnvelope(result *analyzer.Result) models.Envelope {
	return models.Envelope{
		Success:     true,
		Data:        result.Extraction.Data,
		RawAnalysis: result.Extraction.Raw,
		Simulation:  result.Simulated,
	}
}

// failureFor maps err onto a status and a client-safe message. Anything that
// is not an *analyzer.Error is reported as a generic server error.
func failureFor(err error) (int, string) {
	var e *analyzer.Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError, analyzer.MessageServerError
	}
	return e.HTTPStatus(), e.PublicMessage()
}

func writeAnalyzeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status, message := failureFor(err)
	fields := []zap.Field{
		zap.String("kind", analyzer.KindOf(err).String()),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("analysis failed", fields...)
	} else {
		logger.Warn("analysis rejected", fields...)
	}
	writeFailure(w, status, message)
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.Envelope{Success: false, Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func rateLimited(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusTooManyRequests, models.RateLimitBody{
		Status:  http.StatusTooManyRequests,
		Message: MessageRateLimited,
	})
}

func handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.StatusBody{
		Message: "Food Analyzer API Server",
		Status:  "operational",
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "OK")
}

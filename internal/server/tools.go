// internal/server/tools.go
package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"go.uber.org/zap"

	"food-analyzer/internal/models"
)

const ToolAnalyzeFood = "analyze_food"

type AnalyzeFoodParams struct {
	Image    string `json:"image" description:"Base64 food photo, optionally as a data:image/<type>;base64, URI"`
	Simulate bool   `json:"simulate,omitempty" description:"Return a canned analysis without calling the vision model"`
}

type toolHandler func(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error)

// extractParams safely extracts parameters from the request arguments
func extractParams(req *protocol.CallToolRequest, target interface{}) error {
	jsonBytes, err := json.Marshal(req.Arguments)
	if err != nil {
		return fmt.Errorf("failed to marshal arguments: %w", err)
	}

	if err := json.Unmarshal(jsonBytes, target); err != nil {
		return fmt.Errorf("failed to unmarshal parameters: %w", err)
	}

	return nil
}

// handleAnalyzeFood runs one analysis. Analysis failures are reported inside
// the envelope, the same body the HTTP endpoint would send; only malformed
// arguments fail the call itself.
func (s *FoodAnalyzerServer) handleAnalyzeFood(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params AnalyzeFoodParams
	if err := extractParams(req, &params); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}

	result, err := s.analyzer.Analyze(ctx, models.AnalysisRequest{
		Image:    params.Image,
		Simulate: params.Simulate,
	})
	if err != nil {
		status, message := failureFor(err)
		requestLogger(ctx, s.logger).Warn("analyze_food failed",
			zap.Int("status", status),
			zap.Error(err),
		)
		return s.createJSONResponse(models.Envelope{Success: false, Error: message})
	}

	return s.createJSONResponse(successEnvelope(result))
}

func (s *FoodAnalyzerServer) createJSONResponse(data interface{}) (*protocol.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}

	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: string(jsonBytes),
			},
		},
	}, nil
}

func (s *FoodAnalyzerServer) registerTools() {
	s.tools = map[string]toolHandler{
		ToolAnalyzeFood: s.handleAnalyzeFood,
	}
	for name := range s.tools {
		s.logger.Debug("registered tool", zap.String("tool", name))
	}
}

// internal/analyzer/analyzer.go
package analyzer

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"food-analyzer/internal/extract"
	"food-analyzer/internal/models"
)

// Reply is what the vision model answered.
type Reply struct {
	Content          string
	Model            string
	PromptTokens     int64
	CompletionTokens int64
}

// Vision sends one image to the upstream model. Implementations return *Error
// values for every failure.
type Vision interface {
	Complete(ctx context.Context, image Image) (*Reply, error)
}

// Result is one finished analysis.
type Result struct {
	Extraction models.Extraction
	Simulated  bool
}

type Service struct {
	vision     Vision
	configured bool
	logger     *zap.Logger
}

// NewService builds the analysis core. configured is false when no API key is
// available; real analyses then fail with ErrMissingAPIKey while simulation
// keeps working.
func NewService(vision Vision, configured bool, logger *zap.Logger) *Service {
	return &Service{
		vision:     vision,
		configured: configured,
		logger:     logger,
	}
}

func (s *Service) Analyze(ctx context.Context, req models.AnalysisRequest) (*Result, error) {
	if req.Simulate {
		s.logger.Info("simulation mode, returning canned analysis")
		return Simulated(), nil
	}
	if !s.configured {
		s.logger.Error("OpenAI API key not configured")
		return nil, ErrMissingAPIKey
	}

	image, err := NormalizeImage(req.Image)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("image received",
		zap.Int("length", len(req.Image)),
		zap.String("media_type", image.MediaType),
		zap.Bool("data_uri", len(req.Image) != len(image.Base64)),
	)

	start := time.Now()
	reply, err := s.vision.Complete(ctx, image)
	if err != nil {
		return nil, err
	}

	extraction := extract.Extract(reply.Content)
	s.logger.Info("analysis complete",
		zap.String("model", reply.Model),
		zap.String("strategy", extraction.Strategy),
		zap.Int64("prompt_tokens", reply.PromptTokens),
		zap.Int64("completion_tokens", reply.CompletionTokens),
		zap.Duration("took", time.Since(start)),
	)
	return &Result{Extraction: extraction}, nil
}

// SimulatedResult is the fixed nutrition object served in simulation mode.
var SimulatedResult = models.NutritionResult{
	Meal: []models.Dish{
		{
			Dish:     "Creamy pasta with herbs",
			Calories: "420",
			Macronutrients: models.Macronutrients{
				Protein:       "12",
				Carbohydrates: "65",
				Fat:           "11",
			},
			Ingredients: []string{
				"Pasta",
				"Cream sauce",
				"Herbs (likely parsley or basil)",
				"Olive oil",
				"Black pepper",
			},
		},
	},
}

func Simulated() *Result {
	data, _ := json.Marshal(SimulatedResult)
	return &Result{
		Extraction: models.Extraction{Data: data, Strategy: extract.StrategyDirect},
		Simulated:  true,
	}
}

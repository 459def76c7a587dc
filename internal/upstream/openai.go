// internal/upstream/openai.go
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"food-analyzer/internal/analyzer"
)

const (
	SystemPrompt = `You are a nutrition expert analyzing food images. Return detailed nutritional information in JSON format with this structure: { "meal": [{ "dish": "Name of dish", "calories": "Total calories (number only)", "macronutrients": { "protein": "grams (number only)", "carbohydrates": "grams (number only)", "fat": "grams (number only)" }, "ingredients": ["ingredient1", "ingredient2", ...] }] }`

	UserPrompt = "What's in this meal? Please analyze the nutritional content and ingredients, providing calories and macronutrient breakdown."

	// longest upstream error body kept for logs
	snippetLimit = 512
)

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int64
	Temperature float64
	// Timeout bounds one upstream call. Zero leaves only the caller's context.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client calls a chat-completions endpoint with one image and the nutrition
// prompts. It is safe for concurrent use.
type Client struct {
	api    openai.Client
	config Config
	logger *zap.Logger
}

func NewClient(config Config, logger *zap.Logger) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	if config.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(config.HTTPClient))
	}
	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(config.Timeout))
	}
	if config.Model == "" {
		config.Model = openai.ChatModelGPT4o
	}

	return &Client{
		api:    openai.NewClient(opts...),
		config: config,
		logger: logger,
	}
}

// Complete sends the image and returns the model's first reply. Every error is
// an *analyzer.Error.
func (c *Client) Complete(ctx context.Context, image analyzer.Image) (*analyzer.Reply, error) {
	params := openai.ChatCompletionNewParams{
		Model: c.config.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemPrompt),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(UserPrompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: image.DataURI(),
				}),
			}),
		},
	}
	if c.config.MaxTokens > 0 {
		params.MaxTokens = openai.Int(c.config.MaxTokens)
	}
	params.Temperature = openai.Float(c.config.Temperature)

	c.logger.Debug("vision request",
		zap.String("model", c.config.Model),
		zap.Int64("max_tokens", c.config.MaxTokens),
		zap.String("image_sample", redact(image)),
	)

	var httpResp *http.Response
	resp, err := c.api.Chat.Completions.New(ctx, params, option.WithResponseInto(&httpResp))
	if err != nil {
		return nil, c.classify(err, httpResp)
	}

	if len(resp.Choices) == 0 {
		return nil, analyzer.Malformed("response has no choices", nil)
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return nil, analyzer.Malformed("first choice has no content", nil)
	}

	c.logger.Debug("vision reply", zap.String("content", content))
	return &analyzer.Reply{
		Content:          content,
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// classify maps a failed call onto the analyzer error kinds. A missing
// response means the transport failed before any status arrived.
func (c *Client) classify(err error, resp *http.Response) error {
	if resp == nil {
		c.logger.Warn("vision API unreachable", zap.Error(err))
		return analyzer.Unavailable(err)
	}
	if resp.StatusCode >= 400 {
		snippet := errorSnippet(err, resp)
		c.logger.Warn("vision API rejected request",
			zap.Int("status", resp.StatusCode),
			zap.String("body", snippet),
		)
		return analyzer.Rejected(resp.StatusCode, snippet)
	}
	c.logger.Warn("vision API response not decodable",
		zap.Int("status", resp.StatusCode),
		zap.Error(err),
	)
	return analyzer.Malformed("response body is not a completion", err)
}

func errorSnippet(err error, resp *http.Response) string {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if raw := apiErr.RawJSON(); raw != "" {
			return truncate(raw)
		}
	}
	if resp.Body == nil {
		return ""
	}
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, snippetLimit))
	if readErr != nil {
		return fmt.Sprintf("unreadable body: %v", readErr)
	}
	return truncate(strings.TrimSpace(string(body)))
}

// redact keeps only the head of the payload so logs never hold the image.
func redact(image analyzer.Image) string {
	const keep = 20
	if len(image.Base64) <= keep {
		return "data:" + image.MediaType + ";base64," + image.Base64
	}
	return "data:" + image.MediaType + ";base64," + image.Base64[:keep] + "..."
}

func truncate(s string) string {
	if len(s) > snippetLimit {
		return s[:snippetLimit]
	}
	return s
}

package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/classification"
	"github.com/DevHassanMehdi/ImageUpLift/internal/metrics"
)

const defaultMaxSide = 512

const systemPrompt = "You are an image classifier. For every candidate description you are given, " +
	"score how well it describes the image with a number between 0 and 1. " +
	`Reply with a JSON object of the form {"scores": {"<description>": <score>}} ` +
	"containing every description verbatim and nothing else."

// Classifier scores an image against the fixed category descriptions using a
// multimodal chat model behind an OpenAI-compatible API.
type Classifier struct {
	client   *openai.Client
	model    string
	provider string
	maxSide  int
	logger   *zap.Logger
}

// Config holds the vision provider settings.
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Provider string
	// MaxSide bounds the longest side of the image sent to the model.
	MaxSide int
	// Timeout bounds each HTTP call. Zero keeps the client default.
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewClassifier creates an OpenAI-compatible vision classifier.
func NewClassifier(cfg *Config) *Classifier {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	maxSide := cfg.MaxSide
	if maxSide <= 0 {
		maxSide = defaultMaxSide
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Classifier{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		provider: cfg.Provider,
		maxSide:  maxSide,
		logger:   logger,
	}
}

// Name identifies the provider and model, e.g. for cache keys.
func (c *Classifier) Name() string { return c.provider + "/" + c.model }

// Classify implements classification.Classifier.
func (c *Classifier) Classify(ctx context.Context, img domain.Image) (classification.Classification, error) {
	dataURL, err := c.encode(img)
	if err != nil {
		return classification.Classification{}, err
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: userPrompt()},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailLow,
						},
					},
				},
			},
		},
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		c.recordError("api_error")
		return classification.Classification{}, parseAPIError(err)
	}
	if len(resp.Choices) == 0 {
		c.recordError("empty_response")
		return classification.Classification{}, fmt.Errorf("empty classifier response: %w", domain.ErrClassifierFailure)
	}

	result, err := parseScores(resp.Choices[0].Message.Content)
	if err != nil {
		c.recordError("bad_response")
		c.logger.Debug("Unparseable classifier reply",
			zap.String("model", c.model),
			zap.String("content", resp.Choices[0].Message.Content),
		)
		return classification.Classification{}, err
	}

	metrics.ClassifierRequestsTotal.WithLabelValues(c.provider, c.model, "success").Inc()
	metrics.ClassifierRequestDuration.WithLabelValues(c.provider, c.model).Observe(duration.Seconds())
	return result, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Classifier) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (c *Classifier) recordError(kind string) {
	metrics.ClassifierRequestsTotal.WithLabelValues(c.provider, c.model, "error").Inc()
	metrics.ClassifierErrorsTotal.WithLabelValues(c.provider, c.model, kind).Inc()
}

// encode downsizes the image and returns it as a JPEG data URL.
func (c *Classifier) encode(img domain.Image) (string, error) {
	fitted := imaging.Fit(img.Pixels, c.maxSide, c.maxSide, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, fitted, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return "", fmt.Errorf("encode image for classifier: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func userPrompt() string {
	var b strings.Builder
	b.WriteString("Candidate descriptions:\n")
	for _, p := range classification.Prompts() {
		b.WriteString("- ")
		b.WriteString(p)
		b.WriteByte('\n')
	}
	return b.String()
}

func parseScores(content string) (classification.Classification, error) {
	var reply struct {
		Scores map[string]float64 `json:"scores"`
	}
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		return classification.Classification{}, fmt.Errorf("decode classifier reply: %v: %w", err, domain.ErrClassifierFailure)
	}
	return classification.FromScores(reply.Scores)
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrClassifierFailure for correct 502 mapping.
func parseAPIError(err error) error {
	wrap := domain.ErrClassifierFailure

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("classifier API error %d: %s: %w", reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("classifier API error %d: %s: %w", reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("classifier API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("classifier request: %w: %w", err, wrap)
	}
	return fmt.Errorf("classifier request failed: %v: %w", err, wrap)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}

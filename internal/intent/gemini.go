package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"google.golang.org/genai"
)

const geminiSystemInstruction = `You extract event-search intents from chat messages.
Respond with a single JSON object:
{"action": string, "speech": string, "parameters": {"genre": string, "category": string, "geo-city": string, "date": [string]}}
Rules: action is "where-is-party" for a search request, "where-is-party-next" when the user asks for the next occurrence of something already discussed, or "" when the message is not about finding events. speech is a short conversational reply. Omitted details become empty strings or an empty date list. Dates are ISO formatted (YYYY-MM-DD), at most two: a single day or a range.`

// GeminiConfig holds the Gemini intent provider settings.
type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxRetries  int
	RetryDelay  time.Duration
}

// GeminiClient implements Service on the Gemini API using structured JSON
// output, for deployments without an api.ai agent.
type GeminiClient struct {
	genaiClient   *genai.Client
	log           *slog.Logger
	contentConfig *genai.GenerateContentConfig
	model         string
	maxRetries    int
	retryDelay    time.Duration
}

// NewGeminiClient creates a Gemini-backed intent client.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig, log *slog.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	temperature := cfg.Temperature
	contentConfig := &genai.GenerateContentConfig{
		Temperature:       &temperature,
		ResponseMIMEType:  "application/json",
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: geminiSystemInstruction}}},
	}

	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}

	logger := log.With("component", "gemini_intent")
	logger.Info("Gemini intent client initialized", "model", cfg.Model)
	return &GeminiClient{
		genaiClient:   gi,
		log:           logger,
		contentConfig: contentConfig,
		model:         cfg.Model,
		maxRetries:    cfg.MaxRetries,
		retryDelay:    cfg.RetryDelay,
	}, nil
}

// Interpret asks the model for a structured intent and maps it into a Result.
func (c *GeminiClient) Interpret(ctx context.Context, userID int64, text string) (*Result, error) {
	contents := []*genai.Content{
		{Role: genai.RoleUser, Parts: []*genai.Part{{Text: "UID " + strconv.FormatInt(userID, 10) + ": " + text}}},
	}

	resp, err := c.generateWithRetries(ctx, contents)
	if err != nil {
		return nil, err
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		return nil, fmt.Errorf("gemini intent generation blocked: %v", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	raw := strings.TrimSpace(resp.Text())
	var parsed struct {
		Action     string         `json:"action"`
		Speech     string         `json:"speech"`
		Parameters map[string]any `json:"parameters"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("decode gemini intent: %w", err)
	}

	c.log.Debug("intent interpreted", "user_id", userID, "action", parsed.Action)
	return &Result{
		ReplyText:  parsed.Speech,
		Action:     parsed.Action,
		Parameters: parsed.Parameters,
	}, nil
}

func (c *GeminiClient) generateWithRetries(ctx context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
	var resp *genai.GenerateContentResponse
	var err error

	for i := 0; i <= c.maxRetries; i++ {
		resp, err = c.genaiClient.Models.GenerateContent(ctx, c.model, contents, c.contentConfig)
		if err == nil {
			return resp, nil
		}

		var apiErr *genai.APIError
		if errors.As(err, &apiErr) && (apiErr.Code == 500 || apiErr.Code == 503) && i < c.maxRetries {
			c.log.WarnContext(ctx, "Gemini call failed, retrying", "attempt", i+1, "code", apiErr.Code)
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		}
		return nil, fmt.Errorf("gemini call failed: %w", err)
	}
	return nil, fmt.Errorf("gemini call failed after %d retries: %w", c.maxRetries, err)
}

package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

const (
	defaultAPIAIBaseURL = "https://api.api.ai/v1"
	apiaiProtocolDate   = "20150910"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIAIConfig holds the api.ai client settings.
type APIAIConfig struct {
	Token   string
	BaseURL string
	Lang    string
	Timeout time.Duration
}

// APIAIClient implements Service against the api.ai query protocol. The
// user ID doubles as the conversation session ID so follow-up contexts stick
// to the user.
type APIAIClient struct {
	httpClient HTTPClient
	log        *slog.Logger
	cfg        APIAIConfig
}

// NewAPIAIClient creates an api.ai intent client.
func NewAPIAIClient(httpClient HTTPClient, cfg APIAIConfig, log *slog.Logger) *APIAIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultAPIAIBaseURL
	}
	if cfg.Lang == "" {
		cfg.Lang = "en"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &APIAIClient{
		httpClient: httpClient,
		log:        log.With("component", "apiai_client"),
		cfg:        cfg,
	}
}

// Interpret sends the message text to the NLU service and maps the response
// into a Result.
func (c *APIAIClient) Interpret(ctx context.Context, userID int64, text string) (*Result, error) {
	payload, err := json.Marshal(map[string]string{
		"query":     text,
		"lang":      c.cfg.Lang,
		"sessionId": strconv.FormatInt(userID, 10),
	})
	if err != nil {
		return nil, fmt.Errorf("interpret: encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/query?v="+apiaiProtocolDate, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("interpret: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("interpret: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("interpret: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("interpret: read response: %w", err)
	}

	var envelope struct {
		Result struct {
			Action     string         `json:"action"`
			Parameters map[string]any `json:"parameters"`
			Contexts   []struct {
				Name       string         `json:"name"`
				Parameters map[string]any `json:"parameters"`
			} `json:"contexts"`
			Fulfillment struct {
				Speech string `json:"speech"`
			} `json:"fulfillment"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("interpret: decode response: %w", err)
	}

	result := &Result{
		ReplyText:  envelope.Result.Fulfillment.Speech,
		Action:     envelope.Result.Action,
		Parameters: envelope.Result.Parameters,
	}
	for _, c := range envelope.Result.Contexts {
		result.Contexts = append(result.Contexts, Context{Name: c.Name, Parameters: c.Parameters})
	}

	c.log.Debug("intent interpreted", "user_id", userID, "action", result.Action)
	return result, nil
}

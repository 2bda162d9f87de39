package vk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.vk.com/method"

// ErrSessionExpired signals that the current long-poll session has been
// invalidated by the server and a fresh one must be opened. This is the
// expected end-of-session outcome, not a transport failure.
var ErrSessionExpired = errors.New("vk: long-poll session expired")

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIError is an error response returned by a VK API method.
type APIError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vk: api error %d: %s", e.Code, e.Message)
}

// Session is a long-poll feed session handle. TS advances as updates are
// consumed; the loop owns the session exclusively.
type Session struct {
	Server string `json:"server"`
	Key    string `json:"key"`
	TS     int64  `json:"ts"`
}

// OutboundMessage is one unit of reply delivered to a user. Attachment and
// the coordinates are optional.
type OutboundMessage struct {
	UserID     int64
	Text       string
	Attachment string
	Lat        *float64
	Lng        *float64
}

// Config holds the VK client settings.
type Config struct {
	Token          string
	APIVersion     string
	BaseURL        string
	PollWait       int
	PollMode       int
	RequestTimeout time.Duration
}

// Client talks to the VK API and long-poll servers.
type Client struct {
	httpClient HTTPClient
	log        *slog.Logger
	cfg        Config
}

// NewClient creates a VK client with the given HTTP client and settings.
func NewClient(httpClient HTTPClient, cfg Config, log *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		log:        log.With("component", "vk_client"),
		cfg:        cfg,
	}
}

// OpenSession attaches to the long-poll feed and returns a fresh session.
func (c *Client) OpenSession(ctx context.Context) (*Session, error) {
	var session Session
	if err := c.callMethod(ctx, "messages.getLongPollServer", url.Values{}, &session); err != nil {
		return nil, fmt.Errorf("open long-poll session: %w", err)
	}
	c.log.Info("long-poll session opened", "server", session.Server, "ts", session.TS)
	return &session, nil
}

// Poll blocks for the next batch of raw updates from the feed, advancing the
// session cursor on success. It returns ErrSessionExpired when the server
// invalidates the session (the caller re-opens one), and a plain error for
// transport failures.
func (c *Client) Poll(ctx context.Context, session *Session) ([]RawUpdate, error) {
	wait := c.cfg.PollWait
	if wait <= 0 {
		wait = 25
	}

	q := url.Values{}
	q.Set("act", "a_check")
	q.Set("key", session.Key)
	q.Set("ts", strconv.FormatInt(session.TS, 10))
	q.Set("wait", strconv.Itoa(wait))
	q.Set("mode", strconv.Itoa(c.cfg.PollMode))

	server := session.Server
	if !strings.Contains(server, "://") {
		server = "https://" + server
	}

	// The request must outlive the server-side wait, with headroom.
	ctx, cancel := context.WithTimeout(ctx, time.Duration(wait)*time.Second+10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("poll request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("poll: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Failed  int         `json:"failed"`
		TS      int64       `json:"ts"`
		Updates []RawUpdate `json:"updates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("poll: decode response: %w", err)
	}

	switch payload.Failed {
	case 0:
		session.TS = payload.TS
		return payload.Updates, nil
	case 1:
		// Event history is out of sync; catch up from the returned cursor.
		session.TS = payload.TS
		return nil, nil
	default:
		return nil, ErrSessionExpired
	}
}

// SendMessage delivers one outbound message to a user.
func (c *Client) SendMessage(ctx context.Context, msg OutboundMessage) error {
	params := url.Values{}
	params.Set("user_id", strconv.FormatInt(msg.UserID, 10))
	params.Set("message", msg.Text)
	if msg.Attachment != "" {
		params.Set("attachment", msg.Attachment)
	}
	if msg.Lat != nil && msg.Lng != nil {
		params.Set("lat", strconv.FormatFloat(*msg.Lat, 'f', -1, 64))
		params.Set("long", strconv.FormatFloat(*msg.Lng, 'f', -1, 64))
	}

	var messageID json.Number
	if err := c.callMethod(ctx, "messages.send", params, &messageID); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// callMethod invokes a VK API method and decodes its response payload.
func (c *Client) callMethod(ctx context.Context, method string, params url.Values, out any) error {
	params.Set("access_token", c.cfg.Token)
	params.Set("v", c.cfg.APIVersion)

	timeout := c.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/"+method, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("%s: create request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", method, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", method, err)
	}

	var envelope struct {
		Error    *APIError       `json:"error"`
		Response json.RawMessage `json:"response"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	if envelope.Error != nil {
		return fmt.Errorf("%s: %w", method, envelope.Error)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Response, out); err != nil {
			return fmt.Errorf("%s: decode payload: %w", method, err)
		}
	}
	return nil
}

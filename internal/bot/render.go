package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/whatwhere/eventbot/internal/config"
	"github.com/whatwhere/eventbot/internal/search"
	"github.com/whatwhere/eventbot/internal/vk"
)

const (
	descriptionSnippetLen = 100
	scheduleTimeFormat    = "02.01.2006 15:04"
	maxImageBytes         = 10 << 20
)

// Transport is the outbound side of the chat platform: message delivery and
// the media upload handshake.
type Transport interface {
	SendMessage(ctx context.Context, msg vk.OutboundMessage) error
	GetUploadTarget(ctx context.Context, userID int64) (string, error)
	UploadMedia(ctx context.Context, uploadURL string, photo []byte) (*vk.UploadResult, error)
	FinalizeMediaUpload(ctx context.Context, upload *vk.UploadResult) (string, error)
}

// AttachmentSaver persists an attachment token back onto an indexed event.
type AttachmentSaver interface {
	SaveAttachment(ctx context.Context, eventID, token string) error
}

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Renderer turns a result set plus an optional conversational preamble into
// outbound messages, handling the media-attachment side effect.
type Renderer struct {
	transport  Transport
	index      AttachmentSaver
	httpClient HTTPClient
	msgs       config.Messages
	log        *slog.Logger
}

// NewRenderer creates a Renderer.
func NewRenderer(transport Transport, index AttachmentSaver, httpClient HTTPClient, msgs config.Messages, log *slog.Logger) *Renderer {
	return &Renderer{
		transport:  transport,
		index:      index,
		httpClient: httpClient,
		msgs:       msgs,
		log:        log.With("component", "renderer"),
	}
}

// SendText delivers a bare text message with no attachment or coordinates.
func (r *Renderer) SendText(ctx context.Context, userID int64, text string) {
	if err := r.transport.SendMessage(ctx, vk.OutboundMessage{UserID: userID, Text: text}); err != nil {
		r.log.ErrorContext(ctx, "failed to send message", "user_id", userID, "error", err)
	}
}

// Render emits the reply sequence for one search: the preamble when present,
// then either a nothing-found message or up to window result messages. A
// failure on one result never suppresses the remaining results.
func (r *Renderer) Render(ctx context.Context, replyText string, events []search.Event, userID int64, window int) {
	if replyText != "" {
		r.SendText(ctx, userID, replyText)
	}

	if len(events) == 0 {
		r.SendText(ctx, userID, r.msgs.NothingFound)
		return
	}

	if window <= 0 {
		window = 1
	}
	if window > len(events) {
		window = len(events)
	}

	for i := range events[:window] {
		r.renderEvent(ctx, &events[i], userID)
	}
}

func (r *Renderer) renderEvent(ctx context.Context, event *search.Event, userID int64) {
	token := event.Attach
	if event.Image != "" && token == "" {
		uploaded, err := r.uploadImage(ctx, userID, event.Image)
		if err != nil {
			// Degrade to a text-only message, never drop the reply.
			r.log.WarnContext(ctx, "attachment upload failed",
				"event_id", event.ID, "image", event.Image, "error", err)
		} else {
			token = uploaded
			event.Attach = uploaded
			if err := r.index.SaveAttachment(ctx, event.ID, uploaded); err != nil {
				r.log.WarnContext(ctx, "failed to persist attachment token",
					"event_id", event.ID, "error", err)
			}
		}
	}

	msg := vk.OutboundMessage{
		UserID:     userID,
		Text:       r.composeText(event),
		Attachment: token,
	}
	if event.Place.Lat != nil && event.Place.Lng != nil {
		msg.Lat = event.Place.Lat
		msg.Lng = event.Place.Lng
	}

	if err := r.transport.SendMessage(ctx, msg); err != nil {
		r.log.ErrorContext(ctx, "failed to send event message",
			"event_id", event.ID, "user_id", userID, "error", err)
	}
}

// composeText builds the reply body from title, place, schedule, and a
// truncated description snippet. Absent fields are omitted, not rendered as
// empty placeholders.
func (r *Renderer) composeText(event *search.Event) string {
	lines := make([]string, 0, 5)
	if event.Title != "" {
		lines = append(lines, event.Title)
	}
	if event.Place.Title != "" {
		lines = append(lines, fmt.Sprintf(r.msgs.PlaceLine, event.Place.Title))
	}

	schedule := firstSchedule(event)
	if start, ok := schedule.Start(); ok {
		lines = append(lines, fmt.Sprintf(r.msgs.StartLine, start.Format(scheduleTimeFormat)))
	}
	if end, ok := schedule.End(); ok {
		lines = append(lines, fmt.Sprintf(r.msgs.EndLine, end.Format(scheduleTimeFormat)))
	}

	if snippet := truncateRunes(event.Description, descriptionSnippetLen); snippet != "" {
		lines = append(lines, snippet)
	}
	return strings.Join(lines, "\n")
}

// uploadImage performs the media-attachment side effect: fetch the image
// bytes, obtain an upload target, upload, and finalize into a token.
func (r *Renderer) uploadImage(ctx context.Context, userID int64, imageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("fetch image: create request: %w", err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch image: unexpected status %d", resp.StatusCode)
	}
	photo, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return "", fmt.Errorf("fetch image: read body: %w", err)
	}

	uploadURL, err := r.transport.GetUploadTarget(ctx, userID)
	if err != nil {
		return "", err
	}
	uploaded, err := r.transport.UploadMedia(ctx, uploadURL, photo)
	if err != nil {
		return "", err
	}
	return r.transport.FinalizeMediaUpload(ctx, uploaded)
}

func firstSchedule(event *search.Event) search.Schedule {
	if len(event.Dates) > 0 {
		return event.Dates[0]
	}
	if len(event.Schedules) > 0 {
		return event.Schedules[0]
	}
	return search.Schedule{}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

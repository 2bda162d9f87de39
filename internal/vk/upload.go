package vk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// UploadResult holds the server acknowledgement of an uploaded photo, needed
// to finalize the upload into a reusable attachment.
type UploadResult struct {
	Server int    `json:"server"`
	Photo  string `json:"photo"`
	Hash   string `json:"hash"`
}

// GetUploadTarget requests an upload URL for sending a photo to a user.
func (c *Client) GetUploadTarget(ctx context.Context, userID int64) (string, error) {
	params := url.Values{}
	params.Set("peer_id", strconv.FormatInt(userID, 10))

	var target struct {
		UploadURL string `json:"upload_url"`
	}
	if err := c.callMethod(ctx, "photos.getMessagesUploadServer", params, &target); err != nil {
		return "", fmt.Errorf("get upload target: %w", err)
	}
	if target.UploadURL == "" {
		return "", fmt.Errorf("get upload target: empty upload url")
	}
	return target.UploadURL, nil
}

// UploadMedia posts the photo bytes to an upload URL obtained from
// GetUploadTarget and returns the server acknowledgement.
func (c *Client) UploadMedia(ctx context.Context, uploadURL string, photo []byte) (*UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("photo", "photo.jpg")
	if err != nil {
		return nil, fmt.Errorf("upload media: create form: %w", err)
	}
	if _, err := part.Write(photo); err != nil {
		return nil, fmt.Errorf("upload media: write form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("upload media: close form: %w", err)
	}

	timeout := c.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, &buf)
	if err != nil {
		return nil, fmt.Errorf("upload media: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload media: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upload media: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("upload media: read response: %w", err)
	}

	var result UploadResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("upload media: decode response: %w", err)
	}
	if result.Photo == "" || result.Hash == "" {
		return nil, fmt.Errorf("upload media: incomplete server acknowledgement")
	}
	return &result, nil
}

// FinalizeMediaUpload saves an uploaded photo on the platform and returns the
// persistent attachment token reusable across messages.
func (c *Client) FinalizeMediaUpload(ctx context.Context, upload *UploadResult) (string, error) {
	params := url.Values{}
	params.Set("server", strconv.Itoa(upload.Server))
	params.Set("photo", upload.Photo)
	params.Set("hash", upload.Hash)

	var photos []struct {
		ID      int64 `json:"id"`
		OwnerID int64 `json:"owner_id"`
	}
	if err := c.callMethod(ctx, "photos.saveMessagesPhoto", params, &photos); err != nil {
		return "", fmt.Errorf("finalize media upload: %w", err)
	}
	if len(photos) == 0 {
		return "", fmt.Errorf("finalize media upload: empty photo list")
	}
	return fmt.Sprintf("photo%d_%d", photos[0].OwnerID, photos[0].ID), nil
}

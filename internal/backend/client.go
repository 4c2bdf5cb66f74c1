// Package backend is the HTTP client for the remote document-processing
// service. The service owns parsing and extraction; this client only submits
// work and reads status.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
		log:     logger,
	}
}

// Submit uploads the documents as one multipart request. The caller supplies
// the correlation id; the backend answers state="error" for a rejected
// submission.
func (c *Client) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	pages := make([]string, 0, len(req.Files))
	for _, f := range req.Files {
		fw, err := mw.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, fmt.Errorf("create file part: %w", err)
		}
		if _, err := fw.Write(f.Content); err != nil {
			return nil, fmt.Errorf("write file part: %w", err)
		}
		pages = append(pages, f.Pages)
	}

	pagesJSON, err := json.Marshal(pages)
	if err != nil {
		return nil, fmt.Errorf("encode pages: %w", err)
	}
	sourceJSON, err := json.Marshal(req.Source)
	if err != nil {
		return nil, fmt.Errorf("encode source: %w", err)
	}

	fields := map[string]string{
		"pages":          string(pagesJSON),
		"extract_images": strconv.FormatBool(req.ExtractImages),
		"uuid":           req.RequestID,
		"source":         string(sourceJSON),
	}
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("write field %s: %w", name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/process/", &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.log.Error("backend.submit.send_error", "request_id", req.RequestID, "error", err)
		return nil, fmt.Errorf("submit: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	c.log.Info("backend.submit.response",
		"request_id", req.RequestID,
		"status", resp.StatusCode,
		"files", len(req.Files),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("submit: non-2xx status: %d", resp.StatusCode)
	}

	var sr SubmitResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return nil, fmt.Errorf("decode submit response: %w", err)
	}
	return &sr, nil
}

// Status fetches the pipeline state for one correlation id. The response
// envelope is schema-checked so a garbled body surfaces as a transport-level
// error rather than a bogus update.
func (c *Client) Status(ctx context.Context, requestID string) (*StatusResponse, error) {
	u := c.baseURL + "/process/?id=" + url.QueryEscape(requestID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("poll: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("poll: non-2xx status: %d", resp.StatusCode)
	}

	if err := ValidateStatus(raw); err != nil {
		return nil, fmt.Errorf("poll: %w", err)
	}

	var sr StatusResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}
	return &sr, nil
}

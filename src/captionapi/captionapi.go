package captionapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	fieldFile     = "file"
	fieldDetailed = "detailed"

	maxErrorBody = 512
)

var ErrMissingCaption = errors.New("response has no caption")

// StatusError reports a non-2xx answer from the captioning backend.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("caption backend returned status %d", e.Code)
	}
	return fmt.Sprintf("caption backend returned status %d: %s", e.Code, e.Body)
}

// Request is one caption attempt: the image as uploaded plus the detailed flag.
type Request struct {
	FileName  string
	MediaType string
	Image     []byte
	Detailed  bool
}

// Result is a parsed caption. Alternatives is never nil.
type Result struct {
	Caption      string
	Alternatives []string
}

type response struct {
	Caption             *string  `json:"caption"`
	AlternativeCaptions []string `json:"alternative_captions"`
}

type Client struct {
	url    string
	client *http.Client
}

func New(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		url:    endpoint,
		client: &http.Client{Timeout: timeout},
	}
}

// URL returns the endpoint the client posts to.
func (c *Client) URL() string { return c.url }

// Caption posts the image as multipart/form-data and parses the JSON answer.
func (c *Client) Caption(ctx context.Context, req Request) (Result, error) {
	if len(req.Image) == 0 {
		return Result{}, errors.New("image is empty")
	}

	body, contentType, err := encodeForm(req)
	if err != nil {
		return Result{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("caption request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, &StatusError{Code: resp.StatusCode, Body: truncate(strings.TrimSpace(string(data)), maxErrorBody)}
	}

	return decodeResult(data)
}

// Ping checks that something answers HTTP at the backend's host. Any response,
// including 404 or 405, counts as reachable; only transport errors fail.
func (c *Client) Ping(ctx context.Context) error {
	u, err := url.Parse(c.url)
	if err != nil {
		return fmt.Errorf("parse backend url: %w", err)
	}
	probe := url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probe.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
	return nil
}

func encodeForm(req Request) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	name := req.FileName
	if name == "" {
		name = "image"
	}
	mediaType := req.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, fieldFile, escapeQuotes(name)))
	h.Set("Content-Type", mediaType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(req.Image); err != nil {
		return nil, "", fmt.Errorf("copy image data: %w", err)
	}

	if err := w.WriteField(fieldDetailed, strconv.FormatBool(req.Detailed)); err != nil {
		return nil, "", fmt.Errorf("write detailed field: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func decodeResult(data []byte) (Result, error) {
	var parsed response
	if err := json.Unmarshal(data, &parsed); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}
	if parsed.Caption == nil {
		return Result{}, ErrMissingCaption
	}

	alternatives := parsed.AlternativeCaptions
	if alternatives == nil {
		alternatives = []string{}
	}
	return Result{Caption: *parsed.Caption, Alternatives: alternatives}, nil
}

func escapeQuotes(s string) string {
	return strings.NewReplacer("\\", "\\\\", `"`, "\\\"").Replace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

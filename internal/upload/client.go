// Package upload builds authenticated requests against the recognition service
// and reports transport and HTTP outcomes.
package upload

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
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/viewlulu/internal/auth"
	"github.com/example/viewlulu/internal/cosmetic"
	"github.com/example/viewlulu/internal/logging"
	"github.com/example/viewlulu/internal/platform"
)

const (
	// DefaultTimeout bounds every request unless the caller sets a tighter context deadline.
	DefaultTimeout = 20 * time.Second

	FieldName   = "name"
	FieldPhoto  = "photo"
	FieldPhotos = "photos"

	DetectPath    = "/cosmetics/detect"
	CosmeticsPath = "/cosmetics"
	BulkPath      = "/cosmetics/bulk"

	RequestIDHeader = "X-Request-ID"
)

// Request describes one call. A request with photos or a name is sent as
// multipart; otherwise JSON is encoded when set.
type Request struct {
	Method string
	Path   string
	// Operation names the call in logs and errors.
	Operation string

	Name   string
	Field  string
	Photos []cosmetic.PhotoRef

	JSON any

	// Token overrides the stored credential when non-empty.
	Token string
}

func (r Request) multipart() bool {
	return len(r.Photos) > 0 || strings.TrimSpace(r.Name) != ""
}

// Response is a 2xx reply. Body is returned verbatim.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	RequestID  string
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Client is the single transport every remote call goes through.
type Client struct {
	baseURL    string
	tokens     auth.TokenStore
	capability platform.Capability
	httpClient *http.Client
	timeout    time.Duration
	opener     FileOpener
	headers    http.Header
	bulkField  string
	logger     *zap.Logger
	now        func() time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying transport.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.httpClient = hc } }

// WithTimeout sets the transport timeout.
func WithTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }

// WithLogger injects the structured logger.
func WithLogger(logger *zap.Logger) Option { return func(c *Client) { c.logger = logger } }

// WithFileOpener replaces how photo references are read.
func WithFileOpener(opener FileOpener) Option { return func(c *Client) { c.opener = opener } }

// WithHeader adds a default header sent on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers.Add(key, value) }
}

// WithBulkField selects the repeated part name used for bulk registration.
func WithBulkField(field string) Option { return func(c *Client) { c.bulkField = field } }

// NewClient constructs a client for baseURL. tokens may be nil, in which case
// every request is sent unauthenticated unless it carries its own token.
func NewClient(baseURL string, tokens auth.TokenStore, capability platform.Capability, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		tokens:     tokens,
		capability: capability,
		opener:     LocalFileOpener{},
		headers:    make(http.Header),
		bulkField:  FieldPhoto,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.capability == nil {
		c.capability = platform.Android{}
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	} else {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	c.logger = logging.OrNop(c.logger).Named("upload_client")
	return c
}

// BaseURL returns the normalized service root.
func (c *Client) BaseURL() string { return c.baseURL }

// Detect sends one photo to the detect endpoint.
func (c *Client) Detect(ctx context.Context, photo cosmetic.PhotoRef) (*Response, error) {
	return c.Do(ctx, Request{
		Method:    http.MethodPost,
		Path:      DetectPath,
		Operation: "upload.detect",
		Field:     FieldPhoto,
		Photos:    []cosmetic.PhotoRef{photo},
	})
}

// RegisterSingle stores one photo without a name.
func (c *Client) RegisterSingle(ctx context.Context, photo cosmetic.PhotoRef) (*Response, error) {
	return c.Do(ctx, Request{
		Method:    http.MethodPost,
		Path:      CosmeticsPath,
		Operation: "upload.register_single",
		Field:     FieldPhoto,
		Photos:    []cosmetic.PhotoRef{photo},
	})
}

// RegisterBulk sends a named multi-photo registration with the given token.
func (c *Client) RegisterBulk(ctx context.Context, name string, photos []cosmetic.PhotoRef, token string) (*Response, error) {
	return c.Do(ctx, Request{
		Method:    http.MethodPost,
		Path:      BulkPath,
		Operation: "upload.register_bulk",
		Name:      name,
		Field:     c.bulkField,
		Photos:    photos,
		Token:     token,
	})
}

// GetJSON issues a GET and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path, Operation: "upload.get"})
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

// PostJSON sends in as a JSON body and decodes the reply into out when out is non-nil.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	resp, err := c.Do(ctx, Request{Method: http.MethodPost, Path: path, Operation: "upload.post", JSON: in})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return resp.Decode(out)
}

// Do sends req exactly once. Non-2xx replies fail with *HTTPError and transport
// failures with *NetworkError. No call is retried.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	operation := req.Operation
	if operation == "" {
		operation = "upload.request"
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	requestID := uuid.NewString()
	logger := logging.WithOperation(c.logger, operation, requestID)

	body, contentType, err := c.encode(req)
	if err != nil {
		logger.Error("failed to encode request", zap.Error(err))
		return nil, logging.NewOperationError(operation, requestID, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.url(req.Path), body)
	if err != nil {
		return nil, logging.NewOperationError(operation, requestID, err)
	}
	for key, values := range c.headers {
		httpReq.Header[key] = append([]string(nil), values...)
	}
	httpReq.Header.Del("Content-Type")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(RequestIDHeader, requestID)
	hasToken := c.authorize(ctx, httpReq, req.Token, logger)

	logger.Info("request dispatched",
		zap.String("method", method),
		zap.String("path", req.Path),
		zap.Int("photos", len(req.Photos)),
		zap.Bool("has_token", hasToken),
	)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		netErr := &NetworkError{Op: operation, Err: err}
		logger.Error("request failed", zap.Bool("timeout", netErr.Timeout()), zap.Error(err))
		return nil, netErr
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		netErr := &NetworkError{Op: operation, Err: fmt.Errorf("read response body: %w", err)}
		logger.Error("request failed", zap.Error(netErr))
		return nil, netErr
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		logger.Warn("request rejected", zap.Int("status", resp.StatusCode))
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	logger.Info("request completed", zap.Int("status", resp.StatusCode), zap.Int("bytes", len(data)))
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data, RequestID: requestID}, nil
}

func (c *Client) url(path string) string {
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

func (c *Client) authorize(ctx context.Context, r *http.Request, override string, logger *zap.Logger) bool {
	token := strings.TrimSpace(override)
	if token == "" && c.tokens != nil {
		stored, err := c.tokens.Token(ctx)
		switch {
		case errors.Is(err, auth.ErrTokenMissing):
		case err != nil:
			logger.Warn("failed to read auth token", zap.Error(err))
		default:
			token = stored
		}
	}
	if token == "" {
		logger.Info("auth token missing")
		return false
	}
	if claims, err := auth.Inspect(token); err == nil && claims.Expired(c.now()) {
		logger.Warn("auth token expired", zap.Time("expires_at", claims.ExpiresAt))
	}
	r.Header.Set("Authorization", "Bearer "+token)
	return true
}

func (c *Client) encode(req Request) (io.Reader, string, error) {
	if req.multipart() {
		return c.encodeMultipart(req)
	}
	if req.JSON != nil {
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, "", fmt.Errorf("marshal request: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	}
	return nil, "", nil
}

func (c *Client) encodeMultipart(req Request) (io.Reader, string, error) {
	field := req.Field
	if field == "" {
		field = FieldPhoto
	}

	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	if name := strings.TrimSpace(req.Name); name != "" {
		if err := writer.WriteField(FieldName, name); err != nil {
			return nil, "", fmt.Errorf("write name field: %w", err)
		}
	}
	for i, photo := range req.Photos {
		if err := c.writePhoto(writer, field, i, photo); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return buf, writer.FormDataContentType(), nil
}

func (c *Client) writePhoto(writer *multipart.Writer, field string, index int, photo cosmetic.PhotoRef) error {
	ref := c.capability.NormalizeFileRef(photo.URI)
	name := photo.Name
	if name == "" {
		name = fmt.Sprintf("cosmetic_%d.jpg", index+1)
	}
	mimeType := photo.MIMEType
	if mimeType == "" {
		mimeType = cosmetic.DefaultMIMEType
	}

	src, err := c.opener.Open(ref)
	if err != nil {
		return fmt.Errorf("open photo %d (%s): %w", index+1, name, err)
	}
	defer src.Close()

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(field), escapeQuotes(name)))
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create part %d: %w", index+1, err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("copy photo %d: %w", index+1, err)
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string { return quoteEscaper.Replace(s) }

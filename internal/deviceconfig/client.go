package deviceconfig

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/espcfg/internal/logging"
	"github.com/muurk/espcfg/internal/protocol"
	"github.com/muurk/espcfg/internal/transport"
	"github.com/muurk/espcfg/internal/version"
)

const (
	// DefaultUsername is the web panel user of ESPurna firmware
	DefaultUsername = "admin"

	// DefaultPassword is the factory admin password
	DefaultPassword = "fibonacci"

	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// DefaultUploadTimeout bounds a firmware upload, which flashes while
	// the request is open
	DefaultUploadTimeout = 3 * time.Minute

	// DefaultMaxRetries is the default number of retry attempts for failed requests
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 30 * time.Second

	// UploadField is the multipart field the device reads the image from
	UploadField = "upgrade"

	// UploadSuccessToken is the body of a successful upload response
	UploadSuccessToken = "OK"
)

// Progress reports bytes sent out of total. total is zero when unknown.
type Progress func(sent, total int64)

// Client talks to the plain HTTP endpoints of a device panel: the backup
// download and the firmware upload. Everything else goes over the
// WebSocket.
type Client struct {
	// BaseURL is the panel base URL, ending in a slash (e.g. "http://192.168.4.1/")
	BaseURL string

	// Username for HTTP Basic Auth (default: "admin")
	Username string

	// Password for HTTP Basic Auth (default: "fibonacci")
	Password string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// UploadTimeout bounds UploadFirmware independently of HTTPClient.Timeout
	UploadTimeout time.Duration

	// MaxRetries is the maximum number of retry attempts for idempotent requests
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// UseExponentialBackoff enables exponential backoff for retries
	UseExponentialBackoff bool
}

// NewClient creates a client for host, which may be a bare host, host:port
// or an http URL.
func NewClient(host string) (*Client, error) {
	ep, err := transport.ResolveEndpoints(host)
	if err != nil {
		return nil, NewValidationError(err.Error())
	}
	return NewClientWithURL(ep.HTTP), nil
}

// NewClientWithURL creates a new client with a full base URL
func NewClientWithURL(baseURL string) *Client {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Client{
		BaseURL:               baseURL,
		Username:              DefaultUsername,
		Password:              DefaultPassword,
		HTTPClient:            &http.Client{},
		UploadTimeout:         DefaultUploadTimeout,
		MaxRetries:            DefaultMaxRetries,
		RetryDelay:            DefaultRetryDelay,
		MaxRetryDelay:         DefaultMaxRetryDelay,
		UseExponentialBackoff: true,
	}
}

// SetAuth sets custom HTTP Basic Auth credentials
func (c *Client) SetAuth(username, password string) {
	c.Username = username
	c.Password = password
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// Ping checks that the panel answers and accepts the credentials.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	resp, err := c.do(ctx, http.MethodGet, "", nil, "")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// DownloadBackup fetches the configuration backup from GET /config. The
// body must be a JSON object.
func (c *Client) DownloadBackup(ctx context.Context) ([]byte, error) {
	var body []byte
	err := c.retry(ctx, func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()

		resp, err := c.do(attemptCtx, http.MethodGet, "config", nil, "")
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return NewNetworkError("failed to read backup", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if _, err := protocol.DecodeBackup(body); err != nil {
		return nil, NewParseError("device returned an invalid backup", err)
	}
	return body, nil
}

// UploadFirmware posts image as multipart field "upgrade" to /upgrade and
// returns the trimmed response body. A body other than "OK" is returned
// together with an upload error. Uploads are never retried.
func (c *Client) UploadFirmware(ctx context.Context, filename string, image io.Reader, size int64, progress Progress) (string, error) {
	if c.UploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.UploadTimeout)
		defer cancel()
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile(UploadField, filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		src := image
		if progress != nil {
			src = &countingReader{r: image, total: size, progress: progress}
		}
		if _, err := io.Copy(part, src); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	logging.Info("Uploading firmware",
		zap.String("url", c.BaseURL+"upgrade"),
		zap.String("filename", filename),
		zap.Int64("size", size),
	)

	resp, err := c.do(ctx, http.MethodPost, "upgrade", pr, mw.FormDataContentType())
	if err != nil {
		_ = pr.CloseWithError(err)
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", NewNetworkError("failed to read upload response", err)
	}
	body := strings.TrimSpace(string(raw))
	if body != UploadSuccessToken {
		return body, NewUploadError(body)
	}
	return body, nil
}

// do sends one request with basic auth and maps transport failures and
// non-2xx statuses to DeviceErrors.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, NewNetworkError(fmt.Sprintf("failed to create %s request", method), err)
	}
	req.SetBasicAuth(c.Username, c.Password)
	req.Header.Set("User-Agent", version.UserAgent())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	logging.LogHTTPRequest(req.URL.Host, method, req.URL.Path)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		devErr := ClassifyNetworkError(err, req.URL.Host)
		devErr.Message = fmt.Sprintf("%s %s failed: %s", method, req.URL.Path, devErr.Message)
		return nil, devErr
	}

	if resp.StatusCode == http.StatusUnauthorized {
		_ = resp.Body.Close()
		return nil, NewAuthError("authentication failed (check credentials)")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		return nil, NewHTTPError(resp.StatusCode,
			fmt.Sprintf("%s %s returned %d: %s", method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(msg))))
	}
	return resp, nil
}

// retry runs fn until it succeeds, returns a non-retryable error or the
// attempts are exhausted.
func (c *Client) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	currentDelay := c.RetryDelay

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(currentDelay):
			}

			if c.UseExponentialBackoff {
				currentDelay *= 2
				if currentDelay > c.MaxRetryDelay {
					currentDelay = c.MaxRetryDelay
				}
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
		logging.Debug("Retrying device request", zap.Int("attempt", attempt+1), zap.Error(err))
	}

	return lastErr
}

type countingReader struct {
	r        io.Reader
	sent     int64
	total    int64
	progress Progress
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.sent += int64(n)
		cr.progress(cr.sent, cr.total)
	}
	return n, err
}

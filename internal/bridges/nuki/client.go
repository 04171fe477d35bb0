package nuki

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"syscall"
	"time"
)

// Client defaults.
const (
	// DefaultStateTimeout bounds a lockState poll.
	DefaultStateTimeout = 10 * time.Second

	// DefaultActionTimeout bounds a lockAction call. Physical actuation is
	// slower than a status read.
	DefaultActionTimeout = 20 * time.Second

	// maxBodyBytes caps how much of a bridge response is read.
	maxBodyBytes = 1 << 20

	pathLockState  = "/lockState"
	pathLockAction = "/lockAction"
)

// Logger is the interface for structured logging.
// Satisfied by *logging.Logger.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// ClientOptions holds configuration for creating a Client.
type ClientOptions struct {
	// Identity is the lock to talk to. Required.
	Identity Identity

	// HTTPClient performs the requests. Defaults to a client with its own
	// transport. Its Timeout field is ignored in favour of the per-call
	// timeouts below.
	HTTPClient *http.Client

	// StateTimeout defaults to DefaultStateTimeout.
	StateTimeout time.Duration

	// ActionTimeout defaults to DefaultActionTimeout.
	ActionTimeout time.Duration

	// Logger is optional.
	Logger Logger
}

// Client issues lockState and lockAction calls against one bridge.
//
// A Client holds no per-call state: every call is one fresh GET with its
// own deadline, and failures are returned immediately without retry.
//
// Thread Safety: All methods are safe for concurrent use.
type Client struct {
	identity      Identity
	http          *http.Client
	stateTimeout  time.Duration
	actionTimeout time.Duration
	logger        Logger
}

// NewClient creates a bridge client.
func NewClient(opts ClientOptions) *Client {
	c := &Client{
		identity:      opts.Identity,
		http:          opts.HTTPClient,
		stateTimeout:  opts.StateTimeout,
		actionTimeout: opts.ActionTimeout,
		logger:        opts.Logger,
	}
	if c.http == nil {
		c.http = &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:    2,
				IdleConnTimeout: 90 * time.Second,
			},
		}
	}
	if c.stateTimeout <= 0 {
		c.stateTimeout = DefaultStateTimeout
	}
	if c.actionTimeout <= 0 {
		c.actionTimeout = DefaultActionTimeout
	}
	return c
}

// Identity returns the lock this client talks to.
func (c *Client) Identity() Identity {
	return c.identity
}

// QueryState fetches the current lock state. The body is returned as-is;
// interpret it with Normalize.
func (c *Client) QueryState(ctx context.Context) (RawResponse, error) {
	return c.call(ctx, EndpointLockState, pathLockState, c.stateTimeout, nil)
}

// SendAction asks the bridge to perform code. Every call is a new physical
// command; repeated calls are not deduplicated. Interpret the body with
// ParseActionResult.
func (c *Client) SendAction(ctx context.Context, code ActionCode) (RawResponse, error) {
	extra := url.Values{"action": {strconv.Itoa(int(code))}}
	return c.call(ctx, EndpointLockAction, pathLockAction, c.actionTimeout, extra)
}

// call performs one GET and classifies its outcome.
//
// Transport errors are reduced to a kind here and then dropped. Nothing
// below this function sees the request URL.
func (c *Client) call(ctx context.Context, ep Endpoint, path string, timeout time.Duration, extra url.Values) (RawResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpointURL(path, extra), http.NoBody)
	if err != nil {
		return nil, c.fail(ep, KindUnexpected, 0, start)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.fail(ep, classifyTransportError(err), 0, start)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, c.fail(ep, KindUpstreamHTTP, resp.StatusCode, start)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, c.fail(ep, classifyTransportError(err), 0, start)
	}
	if !json.Valid(body) {
		return nil, c.fail(ep, KindUnexpected, 0, start)
	}

	c.logDebug("bridge call succeeded",
		"endpoint", ep,
		"duration_ms", time.Since(start).Milliseconds())

	return RawResponse(body), nil
}

// endpointURL builds the request URL. The result carries the token and
// must never be logged or stored.
func (c *Client) endpointURL(path string, extra url.Values) string {
	q := url.Values{}
	q.Set("nukiId", c.identity.DeviceID)
	q.Set("deviceType", strconv.Itoa(c.identity.DeviceType))
	for k, vs := range extra {
		q[k] = vs
	}
	q.Set("token", c.identity.token)

	u := url.URL{
		Scheme:   "http",
		Host:     c.identity.Addr(),
		Path:     path,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// fail builds the BridgeError for a call and logs it.
func (c *Client) fail(ep Endpoint, kind ErrorKind, status int, start time.Time) error {
	be := &BridgeError{Kind: kind, Endpoint: ep, Status: status}
	if c.logger != nil {
		c.logger.Warn("bridge call failed",
			"endpoint", ep,
			"kind", kind,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds())
	}
	return be
}

func (c *Client) logDebug(msg string, keysAndValues ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, keysAndValues...)
	}
}

// classifyTransportError maps an error from http.Client.Do or a body read
// onto the closed kind set. Order matters: DNS failures are dial errors
// too, and some of them also report Timeout().
func classifyTransportError(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindUnexpected
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return KindUnreachable
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return KindUnreachable
	}

	return KindUnexpected
}

// ActionResult is the interpreted body of a lockAction response.
type ActionResult struct {
	Success bool `json:"success"`
	// BatteryCritical is nil when the bridge did not report it.
	BatteryCritical *bool `json:"batteryCritical"`
}

// ParseActionResult reads success and batteryCritical from a lockAction
// body. Missing or mistyped fields read as false / absent.
func ParseActionResult(raw RawResponse) ActionResult {
	var res ActionResult
	if b, ok := lookupBool(raw, opSuccess); ok {
		res.Success = b
	}
	if b, ok := lookupBool(raw, opBatteryCritical); ok {
		res.BatteryCritical = &b
	}
	return res
}

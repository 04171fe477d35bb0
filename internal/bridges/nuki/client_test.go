package nuki

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testToken = "s3cr3t-bridge-token"

// recordingLogger captures everything logged, for leak checks.
type recordingLogger struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *recordingLogger) log(level, msg string, kv ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(&l.buf, "%s %s %v\n", level, msg, kv)
}

func (l *recordingLogger) Debug(msg string, kv ...any) { l.log("DEBUG", msg, kv...) }
func (l *recordingLogger) Info(msg string, kv ...any)  { l.log("INFO", msg, kv...) }
func (l *recordingLogger) Warn(msg string, kv ...any)  { l.log("WARN", msg, kv...) }
func (l *recordingLogger) Error(msg string, kv ...any) { l.log("ERROR", msg, kv...) }

func (l *recordingLogger) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.String()
}

// identityFor points an Identity at an httptest server.
func identityFor(t *testing.T, serverURL string) Identity {
	t.Helper()
	u, err := url.Parse(serverURL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return NewIdentity(host, port, "4711", 0, testToken)
}

// assertNoLeak checks that neither the token nor a request URL appears in s.
func assertNoLeak(t *testing.T, s string) {
	t.Helper()
	assert.NotContains(t, s, testToken)
	assert.NotContains(t, s, "token=")
	assert.NotContains(t, s, "http://")
	assert.NotContains(t, s, "/lockState")
	assert.NotContains(t, s, "/lockAction")
}

func TestClient_QueryState_Success(t *testing.T) {
	var gotQuery url.Values
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"state":1,"stateName":"locked","batteryCritical":false}`)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{Identity: identityFor(t, srv.URL)})
	raw, err := c.QueryState(context.Background())
	require.NoError(t, err)

	assert.JSONEq(t, `{"state":1,"stateName":"locked","batteryCritical":false}`, string(raw))
	assert.Equal(t, "/lockState", gotPath)
	assert.Equal(t, "4711", gotQuery.Get("nukiId"))
	assert.Equal(t, "0", gotQuery.Get("deviceType"))
	assert.Equal(t, testToken, gotQuery.Get("token"))
	assert.Empty(t, gotQuery.Get("action"))
}

func TestClient_SendAction_Success(t *testing.T) {
	var gotQuery url.Values
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		_, _ = io.WriteString(w, `{"success":true,"batteryCritical":false}`)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{Identity: identityFor(t, srv.URL)})
	raw, err := c.SendAction(context.Background(), ActionUnlatch)
	require.NoError(t, err)

	assert.Equal(t, "/lockAction", gotPath)
	assert.Equal(t, "3", gotQuery.Get("action"))
	assert.Equal(t, testToken, gotQuery.Get("token"))

	res := ParseActionResult(raw)
	assert.True(t, res.Success)
	require.NotNil(t, res.BatteryCritical)
	assert.False(t, *res.BatteryCritical)
}

func TestClient_SendAction_UpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "token "+r.URL.Query().Get("token")+" rejected", http.StatusInternalServerError)
	}))
	defer srv.Close()

	logger := &recordingLogger{}
	c := NewClient(ClientOptions{Identity: identityFor(t, srv.URL), Logger: logger})
	raw, err := c.SendAction(context.Background(), ActionLock)
	require.Error(t, err)
	assert.Nil(t, raw)

	var be *BridgeError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, KindUpstreamHTTP, be.Kind)
	assert.Equal(t, http.StatusInternalServerError, be.Status)
	assert.Equal(t, EndpointLockAction, be.Endpoint)
	assert.ErrorIs(t, err, ErrUpstreamStatus)

	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "lock-action")
	assertNoLeak(t, err.Error())
	assertNoLeak(t, fmt.Sprintf("%+v %#v", err, err))
	assertNoLeak(t, logger.String())
}

func TestClient_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	id := identityFor(t, srv.URL)
	srv.Close()

	logger := &recordingLogger{}
	c := NewClient(ClientOptions{Identity: id, Logger: logger})

	_, err := c.SendAction(context.Background(), ActionUnlock)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnreachable)
	assert.Equal(t, KindUnreachable, KindOf(err))
	assert.Equal(t, "bridge unreachable while calling lock-action", err.Error())

	_, err = c.QueryState(context.Background())
	assert.ErrorIs(t, err, ErrUnreachable)
	assert.Equal(t, "bridge unreachable while calling lock-state", err.Error())

	assertNoLeak(t, logger.String())
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{
		Identity:      identityFor(t, srv.URL),
		StateTimeout:  50 * time.Millisecond,
		ActionTimeout: 50 * time.Millisecond,
	})

	start := time.Now()
	_, err := c.QueryState(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, "bridge timeout while calling lock-state", err.Error())
	assert.Less(t, time.Since(start), time.Second)
}

func TestClient_InvalidJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html>not json</html>`)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{Identity: identityFor(t, srv.URL)})
	_, err := c.QueryState(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpected)
	assert.Equal(t, "unexpected bridge failure while calling lock-state", err.Error())
}

func TestClient_Defaults(t *testing.T) {
	c := NewClient(ClientOptions{Identity: NewIdentity("h", 1, "d", 0, "t")})
	assert.Equal(t, DefaultStateTimeout, c.stateTimeout)
	assert.Equal(t, DefaultActionTimeout, c.actionTimeout)
	assert.Equal(t, 10*time.Second, DefaultStateTimeout)
	assert.Equal(t, 20*time.Second, DefaultActionTimeout)
	assert.NotNil(t, c.http)
}

func TestClient_NoRetry(t *testing.T) {
	var calls int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{Identity: identityFor(t, srv.URL)})
	_, err := c.SendAction(context.Background(), ActionUnlock)
	require.Error(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestClassifyTransportError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), KindTimeout},
		{"dns", &net.OpError{Op: "dial", Err: &net.DNSError{Err: "no such host", Name: "bridge.local"}}, KindUnexpected},
		{"dns timeout", &net.DNSError{Err: "timeout", IsTimeout: true}, KindUnexpected},
		{"dial refused", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, KindUnreachable},
		{"read reset", &net.OpError{Op: "read", Err: errors.New("connection reset by peer")}, KindUnexpected},
		{"canceled", context.Canceled, KindUnexpected},
		{"eof", io.ErrUnexpectedEOF, KindUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyTransportError(tt.err))
		})
	}
}

// mockTransport is a testify mock http.RoundTripper.
type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	resp, _ := args.Get(0).(*http.Response)
	return resp, args.Error(1)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestClient_TransportErrorTextNeverSurfaces(t *testing.T) {
	transport := &mockTransport{}
	transport.On("RoundTrip", mock.Anything).
		Return(nil, errors.New("boom at http://10.0.0.5:8080/lockState?token="+testToken))

	logger := &recordingLogger{}
	c := NewClient(ClientOptions{
		Identity:   NewIdentity("10.0.0.5", 8080, "1", 0, testToken),
		HTTPClient: &http.Client{Transport: transport},
		Logger:     logger,
	})

	_, err := c.QueryState(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpected)
	assertNoLeak(t, err.Error())
	assertNoLeak(t, logger.String())
	transport.AssertNumberOfCalls(t, "RoundTrip", 1)
}

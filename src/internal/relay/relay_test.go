// FILE: logrelay/src/internal/relay/relay_test.go
package relay

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"logrelay/src/internal/core"
	"logrelay/src/internal/format"

	"github.com/klauspost/compress/zstd"
	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

// upstream is the collector the relay forwards to
type upstream struct {
	mu     sync.Mutex
	bodies []string
	types  []string
	status atomic.Int32
}

func (u *upstream) handle(ctx *fasthttp.RequestCtx) {
	u.mu.Lock()
	u.bodies = append(u.bodies, string(ctx.PostBody()))
	u.types = append(u.types, string(ctx.Request.Header.ContentType()))
	u.mu.Unlock()

	status := int(u.status.Load())
	if status == 0 {
		status = fasthttp.StatusOK
	}
	ctx.SetStatusCode(status)
}

func (u *upstream) received() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.bodies...)
}

func (u *upstream) contentTypes() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.types...)
}

func startUpstream(t *testing.T) (*upstream, string) {
	t.Helper()
	u := &upstream{}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &fasthttp.Server{Handler: u.handle}
	go srv.Serve(ln)
	t.Cleanup(func() { srv.Shutdown() })
	return u, "http://" + ln.Addr().String() + "/ingest"
}

// recordLogger captures the relay's records
type recordLogger struct {
	mu      sync.Mutex
	records []core.LogRecord
}

func (l *recordLogger) Log(level core.Level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, core.LogRecord{Level: level, Message: msg})
}

func (l *recordLogger) logged() []core.LogRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]core.LogRecord(nil), l.records...)
}

type testRelay struct {
	*Relay
	base   string
	logger *recordLogger
	cancel context.CancelFunc
	done   chan error
}

func startRelay(t *testing.T, settings Settings) *testRelay {
	t.Helper()
	if settings.ListenAddress == "" {
		settings.ListenAddress = "127.0.0.1:0"
	}
	if settings.OutputFormat == nil {
		settings.OutputFormat = format.PlainText{}
	}
	if settings.Workers == 0 {
		settings.Workers = 2
	}

	logger := &recordLogger{}
	r, err := New(settings, logger, log.NewLogger())
	require.NoError(t, err)
	require.NoError(t, r.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Serve(ctx) }()

	tr := &testRelay{Relay: r, base: "http://" + r.Addr().String(), logger: logger, cancel: cancel, done: done}
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
		}
	})
	return tr
}

type response struct {
	status  int
	body    map[string]any
	headers *fasthttp.ResponseHeader
}

func send(t *testing.T, method, url string, body []byte, headers map[string]string) response {
	t.Helper()
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.SetBody(body)

	require.NoError(t, fasthttp.DoTimeout(req, resp, 5*time.Second))

	out := response{status: resp.StatusCode(), headers: &fasthttp.ResponseHeader{}}
	resp.Header.CopyTo(out.headers)
	if len(resp.Body()) > 0 {
		_ = json.Unmarshal(resp.Body(), &out.body)
	}
	return out
}

func TestRelay_CORS(t *testing.T) {
	up, upURL := startUpstream(t)
	r := startRelay(t, Settings{
		OutputURL:          upURL,
		CORSAllowedOrigins: []string{"https://good.example"},
	})

	t.Run("unlisted origin rejected", func(t *testing.T) {
		resp := send(t, "POST", r.base+"/", []byte("hello"), map[string]string{"Origin": "https://evil.example"})
		assert.Equal(t, fasthttp.StatusForbidden, resp.status)
		assert.Equal(t, "rejected", resp.body["status"])
		assert.Equal(t, "cors", resp.body["reason"])
		assert.Empty(t, up.received())
	})

	t.Run("listed origin accepted", func(t *testing.T) {
		resp := send(t, "POST", r.base+"/", []byte("hello"), map[string]string{"Origin": "https://good.example"})
		assert.Equal(t, fasthttp.StatusAccepted, resp.status)
		assert.Equal(t, "https://good.example", string(resp.headers.Peek("Access-Control-Allow-Origin")))
		assert.Equal(t, "Origin", string(resp.headers.Peek("Vary")))
		assert.Len(t, up.received(), 1)
	})

	t.Run("no origin accepted", func(t *testing.T) {
		resp := send(t, "POST", r.base+"/", []byte("hello"), nil)
		assert.Equal(t, fasthttp.StatusAccepted, resp.status)
		assert.Empty(t, resp.headers.Peek("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		resp := send(t, "OPTIONS", r.base+"/", nil, map[string]string{
			"Origin":                         "https://good.example",
			"Access-Control-Request-Method":  "POST",
			"Access-Control-Request-Headers": "Content-Type",
		})
		assert.Equal(t, fasthttp.StatusNoContent, resp.status)
		assert.Equal(t, "POST, OPTIONS", string(resp.headers.Peek("Access-Control-Allow-Methods")))
		assert.Equal(t, "Content-Type", string(resp.headers.Peek("Access-Control-Allow-Headers")))

		resp = send(t, "OPTIONS", r.base+"/", nil, map[string]string{"Origin": "https://evil.example"})
		assert.Equal(t, fasthttp.StatusForbidden, resp.status)
	})
}

func TestRelay_CORSEmptyListAllowsSameOrigin(t *testing.T) {
	_, upURL := startUpstream(t)
	r := startRelay(t, Settings{OutputURL: upURL})

	resp := send(t, "POST", r.base+"/", []byte("hello"), map[string]string{"Origin": r.base})
	assert.Equal(t, fasthttp.StatusAccepted, resp.status)

	resp = send(t, "POST", r.base+"/", []byte("hello"), map[string]string{"Origin": "https://other.example"})
	assert.Equal(t, fasthttp.StatusForbidden, resp.status)
}

func TestRelay_CORSWildcard(t *testing.T) {
	_, upURL := startUpstream(t)
	r := startRelay(t, Settings{OutputURL: upURL, CORSAllowedOrigins: []string{"*"}})

	resp := send(t, "POST", r.base+"/", []byte("hello"), map[string]string{"Origin": "https://anything.example"})
	assert.Equal(t, fasthttp.StatusAccepted, resp.status)
}

func TestRelay_Malformed(t *testing.T) {
	up, upURL := startUpstream(t)
	r := startRelay(t, Settings{OutputURL: upURL})

	tests := []struct {
		name    string
		body    string
		headers map[string]string
	}{
		{name: "empty body", body: ""},
		{name: "whitespace only", body: " \n\n "},
		{name: "missing message", body: `{"level":"info"}`},
		{name: "broken json", body: `{"message": "x"`},
		{name: "bad level", body: `{"message":"x","level":"loud"}`},
		{name: "bad timestamp", body: `{"message":"x","timestamp":"yesterday"}`},
		{name: "empty array", body: `[]`},
		{name: "array of scalars", body: `[1,2]`},
		{name: "truncated array", body: `[{"message":"x"`},
		{name: "truncated array with lines", body: "[{\"message\":\"x\"}\n{\"message\":\"y\"}"},
		{name: "bad gzip", body: "not gzip", headers: map[string]string{"Content-Encoding": "gzip"}},
		{name: "unknown encoding", body: "hello", headers: map[string]string{"Content-Encoding": "br"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := send(t, "POST", r.base+"/", []byte(tt.body), tt.headers)
			assert.Equal(t, fasthttp.StatusBadRequest, resp.status)
			assert.Equal(t, "rejected", resp.body["status"])
			assert.Equal(t, "malformed", resp.body["reason"])
			assert.NotEmpty(t, resp.body["error"])
		})
	}
	assert.Empty(t, up.received())
}

func TestRelay_ForwardPlainText(t *testing.T) {
	up, upURL := startUpstream(t)
	r := startRelay(t, Settings{OutputURL: upURL, OutputFormat: format.PlainText{}})

	payload := `{"message":"hello","level":"warn","timestamp":"2023-01-01T12:00:00Z","machine":"m","container":"c"}`
	resp := send(t, "POST", r.base+"/", []byte(payload), map[string]string{"Content-Type": "application/json"})

	require.Equal(t, fasthttp.StatusAccepted, resp.status)
	assert.Equal(t, "accepted", resp.body["status"])
	assert.Equal(t, float64(1), resp.body["records"])
	assert.Equal(t, true, resp.body["forwarded"])
	assert.NotEmpty(t, resp.body["id"])

	want, err := format.Render(core.LogRecord{
		Time:    time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC),
		Level:   core.LevelWarn,
		Message: "hello",
		Source:  core.Source{Machine: "m", Container: "c"},
	}, format.PlainText{})
	require.NoError(t, err)

	bodies := up.received()
	require.Len(t, bodies, 1)
	assert.Equal(t, string(want), bodies[0])
	assert.Equal(t, []string{"text/plain; charset=utf-8"}, up.contentTypes())
}

func TestRelay_ForwardJSONBatch(t *testing.T) {
	up, upURL := startUpstream(t)
	r := startRelay(t, Settings{OutputURL: upURL, OutputFormat: format.JSONText{Field: "msg"}})

	payload := `[{"message":"first"},{"msg":"second","level":"error"}]`
	resp := send(t, "POST", r.base+"/", []byte(payload), nil)
	require.Equal(t, fasthttp.StatusAccepted, resp.status)
	assert.Equal(t, float64(2), resp.body["records"])

	bodies := up.received()
	require.Len(t, bodies, 1)

	var forwarded []map[string]string
	require.NoError(t, json.Unmarshal([]byte(bodies[0]), &forwarded))
	require.Len(t, forwarded, 2)
	assert.Equal(t, "first", forwarded[0]["msg"])
	assert.Equal(t, "INFO", forwarded[0]["level"])
	assert.Equal(t, "second", forwarded[1]["msg"])
	assert.Equal(t, "ERROR", forwarded[1]["level"])
}

func TestRelay_ForwardPlainLines(t *testing.T) {
	up, upURL := startUpstream(t)
	r := startRelay(t, Settings{OutputURL: upURL})

	resp := send(t, "POST", r.base+"/", []byte("first line\nsecond line\n"), map[string]string{"Content-Type": "text/plain"})
	require.Equal(t, fasthttp.StatusAccepted, resp.status)
	assert.Equal(t, float64(2), resp.body["records"])

	bodies := up.received()
	require.Len(t, bodies, 1)
	lines := strings.Split(strings.TrimSuffix(bodies[0], "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], " INFO [/] first line")
	assert.Contains(t, lines[1], " INFO [/] second line")
}

func TestRelay_CompressedBodies(t *testing.T) {
	up, upURL := startUpstream(t)
	r := startRelay(t, Settings{OutputURL: upURL})
	payload := []byte(`{"message":"compressed"}`)

	t.Run("gzip", func(t *testing.T) {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, err := zw.Write(payload)
		require.NoError(t, err)
		require.NoError(t, zw.Close())

		resp := send(t, "POST", r.base+"/", buf.Bytes(), map[string]string{"Content-Encoding": "gzip"})
		assert.Equal(t, fasthttp.StatusAccepted, resp.status)
	})

	t.Run("zstd", func(t *testing.T) {
		enc, err := zstd.NewWriter(nil)
		require.NoError(t, err)
		compressed := enc.EncodeAll(payload, nil)
		require.NoError(t, enc.Close())

		resp := send(t, "POST", r.base+"/", compressed, map[string]string{"Content-Encoding": "zstd"})
		assert.Equal(t, fasthttp.StatusAccepted, resp.status)
	})

	bodies := up.received()
	require.Len(t, bodies, 2)
	for _, b := range bodies {
		assert.Contains(t, b, "compressed")
	}
}

func TestRelay_OversizedCompressedBody(t *testing.T) {
	up, upURL := startUpstream(t)
	r := startRelay(t, Settings{OutputURL: upURL, MaxBodyBytes: 4096})

	// Compresses to well under the limit, expands far past it
	plain := bytes.Repeat([]byte("a"), 1<<20)

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, err := zw.Write(plain)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.Less(t, gz.Len(), 4096)

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	zs := enc.EncodeAll(plain, nil)
	require.NoError(t, enc.Close())
	require.Less(t, len(zs), 4096)

	tests := []struct {
		name     string
		body     []byte
		encoding string
	}{
		{name: "gzip", body: gz.Bytes(), encoding: "gzip"},
		{name: "zstd", body: zs, encoding: "zstd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := send(t, "POST", r.base+"/", tt.body, map[string]string{"Content-Encoding": tt.encoding})
			assert.Equal(t, fasthttp.StatusRequestEntityTooLarge, resp.status)
			assert.Equal(t, "rejected", resp.body["status"])
			assert.Equal(t, "too_large", resp.body["reason"])
		})
	}

	assert.Empty(t, up.received())
	assert.Equal(t, uint64(2), r.GetStats()["rejected_oversized"])
}

func TestRelay_ForwardFailureStillAccepted(t *testing.T) {
	up, upURL := startUpstream(t)
	up.status.Store(fasthttp.StatusInternalServerError)
	r := startRelay(t, Settings{OutputURL: upURL})

	resp := send(t, "POST", r.base+"/", []byte("hello"), nil)
	assert.Equal(t, fasthttp.StatusAccepted, resp.status)
	assert.Equal(t, false, resp.body["forwarded"])

	logged := r.logger.logged()
	require.Len(t, logged, 1)
	assert.Equal(t, core.LevelWarn, logged[0].Level)
	assert.Contains(t, logged[0].Message, "failed")
	assert.Contains(t, logged[0].Message, "500")

	assert.Equal(t, uint64(1), r.GetStats()["forward_failures"])
}

func TestRelay_UpstreamUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	deadURL := "http://" + ln.Addr().String() + "/"
	ln.Close()

	r := startRelay(t, Settings{OutputURL: deadURL, ForwardTimeout: time.Second})

	resp := send(t, "POST", r.base+"/", []byte("hello"), nil)
	assert.Equal(t, fasthttp.StatusAccepted, resp.status)
	assert.Equal(t, false, resp.body["forwarded"])
	assert.Len(t, r.logger.logged(), 1)
}

func TestRelay_Routes(t *testing.T) {
	_, upURL := startUpstream(t)
	r := startRelay(t, Settings{OutputURL: upURL, IngestPath: "/logs"})

	resp := send(t, "GET", r.base+"/health", nil, nil)
	assert.Equal(t, fasthttp.StatusOK, resp.status)
	assert.Equal(t, "listening", resp.body["state"])
	assert.Contains(t, resp.body, "pool")

	resp = send(t, "GET", r.base+"/logs", nil, nil)
	assert.Equal(t, fasthttp.StatusMethodNotAllowed, resp.status)

	resp = send(t, "POST", r.base+"/elsewhere", []byte("x"), nil)
	assert.Equal(t, fasthttp.StatusNotFound, resp.status)

	resp = send(t, "POST", r.base+"/logs", []byte("x"), nil)
	assert.Equal(t, fasthttp.StatusAccepted, resp.status)
}

func TestRelay_Lifecycle(t *testing.T) {
	_, upURL := startUpstream(t)

	t.Run("clean stop", func(t *testing.T) {
		r, err := New(Settings{
			ListenAddress: "127.0.0.1:0",
			OutputURL:     upURL,
			OutputFormat:  format.PlainText{},
			Workers:       1,
		}, &recordLogger{}, log.NewLogger())
		require.NoError(t, err)
		assert.Equal(t, StateStarting, r.State())
		assert.Nil(t, r.Addr())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- r.Run(ctx) }()

		require.Eventually(t, func() bool { return r.State() == StateListening }, time.Second, 5*time.Millisecond)
		require.NotNil(t, r.Addr())
		cancel()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("relay did not stop")
		}
		assert.Equal(t, StateStopped, r.State())
	})

	t.Run("bind failure", func(t *testing.T) {
		occupied, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer occupied.Close()

		r, err := New(Settings{
			ListenAddress: occupied.Addr().String(),
			OutputURL:     upURL,
			OutputFormat:  format.PlainText{},
			Workers:       1,
		}, &recordLogger{}, log.NewLogger())
		require.NoError(t, err)

		err = r.Run(context.Background())
		require.Error(t, err)

		var relayErr *Error
		require.ErrorAs(t, err, &relayErr)
		assert.Equal(t, "listen", relayErr.Op)
		assert.Equal(t, StateFailed, r.State())
	})

	t.Run("serve before listen", func(t *testing.T) {
		r, err := New(Settings{
			ListenAddress: "127.0.0.1:0",
			OutputURL:     upURL,
			OutputFormat:  format.PlainText{},
			Workers:       1,
		}, &recordLogger{}, log.NewLogger())
		require.NoError(t, err)

		var relayErr *Error
		require.ErrorAs(t, r.Serve(context.Background()), &relayErr)
		assert.Equal(t, "serve", relayErr.Op)
	})
}

func TestRelay_TCPIngest(t *testing.T) {
	up, upURL := startUpstream(t)

	scratch, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	tcpAddr := scratch.Addr().String()
	scratch.Close()

	r := startRelay(t, Settings{OutputURL: upURL, TCPListenAddress: tcpAddr})

	conn, err := net.Dial("tcp", tcpAddr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(`{"message":"over tcp","level":"error"}` + "\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(up.received()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, up.received()[0], " ERROR [/] over tcp")
	assert.Contains(t, r.GetStats(), "tcp")
}

func TestNew_InvalidSettings(t *testing.T) {
	base := Settings{
		ListenAddress: "127.0.0.1:0",
		OutputURL:     "http://127.0.0.1:9/",
		OutputFormat:  format.PlainText{},
		Workers:       1,
	}

	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"no listen address", func(s *Settings) { s.ListenAddress = "" }},
		{"bad output url", func(s *Settings) { s.OutputURL = "ftp://example.com" }},
		{"no output format", func(s *Settings) { s.OutputFormat = nil }},
		{"reserved json field", func(s *Settings) { s.OutputFormat = format.JSONText{Field: "timestamp"} }},
		{"zero workers", func(s *Settings) { s.Workers = 0 }},
		{"relative ingest path", func(s *Settings) { s.IngestPath = "logs" }},
		{"same paths", func(s *Settings) { s.IngestPath = "/x"; s.HealthPath = "/x" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base
			tt.mutate(&s)
			_, err := New(s, &recordLogger{}, log.NewLogger())
			assert.Error(t, err)
		})
	}

	_, err := New(base, &recordLogger{}, log.NewLogger())
	assert.NoError(t, err)
}

func TestError(t *testing.T) {
	inner := errors.New("address in use")
	err := &Error{Op: "listen", Addr: ":8080", Err: inner}
	assert.Equal(t, "relay listen on :8080 failed: address in use", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "failed", StateFailed.String())
}

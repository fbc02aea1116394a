// FILE: logrelay/src/internal/relay/handler.go
package relay

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/valyala/fasthttp"
)

var errBodyTooLarge = errors.New("request body too large")

func (r *Relay) requestHandler(ctx *fasthttp.RequestCtx) {
	r.totalRequests.Add(1)

	path := string(ctx.Path())
	origin := string(ctx.Request.Header.Peek("Origin"))

	r.diag.Debug("msg", "Relay request",
		"component", "relay",
		"method", string(ctx.Method()),
		"path", path,
		"origin", origin,
		"remote_addr", ctx.RemoteAddr().String())

	if !r.cors.allows(origin, string(ctx.Host())) {
		r.rejectedCORS.Add(1)
		r.diag.Debug("msg", "Rejected cross-origin request",
			"component", "relay",
			"origin", origin,
			"remote_addr", ctx.RemoteAddr().String())
		writeJSON(ctx, fasthttp.StatusForbidden, map[string]string{
			"status": "rejected",
			"reason": "cors",
		})
		return
	}
	r.cors.decorate(ctx, origin)

	switch {
	case ctx.IsOptions():
		r.cors.preflight(ctx)
	case path == r.settings.HealthPath && ctx.IsGet():
		writeJSON(ctx, fasthttp.StatusOK, r.GetStats())
	case path == r.settings.IngestPath && ctx.IsPost():
		r.handleIngest(ctx)
	case path == r.settings.IngestPath || path == r.settings.HealthPath:
		writeJSON(ctx, fasthttp.StatusMethodNotAllowed, map[string]string{
			"error": "Method Not Allowed",
		})
	default:
		writeJSON(ctx, fasthttp.StatusNotFound, map[string]string{
			"error": "Not Found",
			"hint":  fmt.Sprintf("POST logs to %s", r.settings.IngestPath),
		})
	}
}

func (r *Relay) handleIngest(ctx *fasthttp.RequestCtx) {
	body, err := r.decodeBody(ctx)
	if errors.Is(err, errBodyTooLarge) {
		r.rejectedOversized.Add(1)
		writeJSON(ctx, fasthttp.StatusRequestEntityTooLarge, map[string]string{
			"status": "rejected",
			"reason": "too_large",
			"error":  err.Error(),
		})
		return
	}
	if err != nil {
		r.rejectMalformed(ctx, err)
		return
	}

	records, err := r.parser.parse(body)
	if err != nil {
		r.rejectMalformed(ctx, err)
		return
	}

	id := uuid.NewString()
	r.submissions.Add(1)
	r.recordsReceived.Add(uint64(len(records)))

	// RequestCtx is done once the server shuts down
	forwarded, err := r.forward(ctx, id, records)
	if err != nil {
		writeJSON(ctx, fasthttp.StatusServiceUnavailable, map[string]string{
			"status": "rejected",
			"reason": "shutting_down",
		})
		return
	}

	writeJSON(ctx, fasthttp.StatusAccepted, map[string]any{
		"status":    "accepted",
		"id":        id,
		"records":   len(records),
		"forwarded": forwarded,
	})
}

func (r *Relay) rejectMalformed(ctx *fasthttp.RequestCtx, err error) {
	r.rejectedMalformed.Add(1)
	r.diag.Debug("msg", "Rejected malformed submission",
		"component", "relay",
		"remote_addr", ctx.RemoteAddr().String(),
		"error", err)
	writeJSON(ctx, fasthttp.StatusBadRequest, map[string]string{
		"status": "rejected",
		"reason": "malformed",
		"error":  err.Error(),
	})
}

// decodeBody returns the request body with any Content-Encoding removed
func (r *Relay) decodeBody(ctx *fasthttp.RequestCtx) ([]byte, error) {
	encoding := strings.ToLower(strings.TrimSpace(string(ctx.Request.Header.Peek(fasthttp.HeaderContentEncoding))))

	switch encoding {
	case "", "identity":
		return ctx.PostBody(), nil
	case "gzip":
		zr, err := gzip.NewReader(bytes.NewReader(ctx.PostBody()))
		if err != nil {
			return nil, fmt.Errorf("invalid gzip body: %w", err)
		}
		defer zr.Close()

		// Read one byte past the limit to detect oversized bodies
		body, err := io.ReadAll(io.LimitReader(zr, int64(r.settings.MaxBodyBytes)+1))
		if err != nil {
			return nil, fmt.Errorf("invalid gzip body: %w", err)
		}
		if len(body) > r.settings.MaxBodyBytes {
			return nil, fmt.Errorf("%w: decoded gzip body exceeds %d bytes", errBodyTooLarge, r.settings.MaxBodyBytes)
		}
		return body, nil
	case "zstd":
		body, err := r.zstd.DecodeAll(ctx.PostBody(), nil)
		if errors.Is(err, zstd.ErrDecoderSizeExceeded) || errors.Is(err, zstd.ErrWindowSizeExceeded) ||
			len(body) > r.settings.MaxBodyBytes {
			return nil, fmt.Errorf("%w: decoded zstd body exceeds %d bytes", errBodyTooLarge, r.settings.MaxBodyBytes)
		}
		if err != nil {
			return nil, fmt.Errorf("invalid zstd body: %w", err)
		}
		return body, nil
	default:
		return nil, fmt.Errorf("unsupported content encoding: %s", encoding)
	}
}

// handleLines forwards lines read by the TCP listener. It runs on the event
// loop, so waiting for a worker slot here slows reads on that loop.
func (r *Relay) handleLines(remoteAddr string, lines [][]byte) {
	records, err := r.parser.parse(bytes.Join(lines, []byte{'\n'}))
	if err != nil {
		r.rejectedMalformed.Add(1)
		r.diag.Warn("msg", "Discarded malformed TCP lines",
			"component", "relay",
			"remote_addr", remoteAddr,
			"lines", len(lines),
			"error", err)
		return
	}

	id := uuid.NewString()
	r.submissions.Add(1)
	r.recordsReceived.Add(uint64(len(records)))

	if _, err := r.forward(r.lifetime, id, records); err != nil {
		r.diag.Warn("msg", "Relay stopped before TCP lines were forwarded",
			"component", "relay",
			"remote_addr", remoteAddr,
			"id", id,
			"records", len(records))
	}
}

// FILE: logrelay/src/internal/relay/cors.go
package relay

import (
	"strings"

	"github.com/valyala/fasthttp"
)

const (
	corsAllowMethods = "POST, OPTIONS"
	corsAllowHeaders = "Content-Type, Content-Encoding"
	corsMaxAge       = "600"
)

// corsPolicy decides which browser origins may submit logs
type corsPolicy struct {
	allowAll bool
	origins  map[string]struct{}
}

func newCORSPolicy(allowed []string) *corsPolicy {
	p := &corsPolicy{origins: make(map[string]struct{}, len(allowed))}
	for _, origin := range allowed {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			p.allowAll = true
			continue
		}
		if origin != "" {
			p.origins[strings.TrimSuffix(origin, "/")] = struct{}{}
		}
	}
	return p
}

// allows reports whether a request from origin to host is permitted.
// Requests without an Origin and same-origin requests are always allowed.
func (p *corsPolicy) allows(origin, host string) bool {
	if origin == "" {
		return true
	}
	if origin == "http://"+host || origin == "https://"+host {
		return true
	}
	if p.allowAll {
		return true
	}
	_, ok := p.origins[origin]
	return ok
}

// decorate adds the response headers for an allowed cross-origin request
func (p *corsPolicy) decorate(ctx *fasthttp.RequestCtx, origin string) {
	if origin == "" {
		return
	}
	ctx.Response.Header.Set("Access-Control-Allow-Origin", origin)
	ctx.Response.Header.Add("Vary", "Origin")
}

// preflight answers an OPTIONS request that already passed allows
func (p *corsPolicy) preflight(ctx *fasthttp.RequestCtx) {
	headers := string(ctx.Request.Header.Peek("Access-Control-Request-Headers"))
	if headers == "" {
		headers = corsAllowHeaders
	}
	ctx.Response.Header.Set("Access-Control-Allow-Methods", corsAllowMethods)
	ctx.Response.Header.Set("Access-Control-Allow-Headers", headers)
	ctx.Response.Header.Set("Access-Control-Max-Age", corsMaxAge)
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

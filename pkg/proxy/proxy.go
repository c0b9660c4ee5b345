package proxy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// hopByHopHeaders are connection-scoped per RFC 7230 section 6.1 and
// must not survive either leg of the proxy hop.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"TE",
	"Trailers",
	"Transfer-Encoding",
	"Upgrade",
}

const defaultUpstreamTimeout = 30 * time.Second

// Handler forwards requests under a mount prefix to a single upstream,
// rewriting HTML responses so the upstream's dashboard works when
// served from the prefix.
type Handler struct {
	upstream *url.URL
	prefix   string
	rewriter *Rewriter
	client   *http.Client
	metrics  *Metrics
	logger   *slog.Logger
}

// Config carries the proxy settings.
type Config struct {
	// UpstreamBaseURL is the origin to forward to, e.g. "http://127.0.0.1:19999".
	UpstreamBaseURL string
	// MountPrefix is the path prefix the handler is mounted at, e.g. "/netdata".
	MountPrefix string
	// Timeout bounds a full upstream exchange. Zero means 30s.
	Timeout time.Duration
	// Metrics is optional; nil disables instrumentation.
	Metrics *Metrics
	Logger  *slog.Logger
}

// New creates a proxy handler. Redirects from the upstream are followed
// rather than passed through, so the client only ever sees final
// responses addressed under the mount prefix.
func New(cfg Config) (*Handler, error) {
	base, err := url.Parse(cfg.UpstreamBaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("upstream base url %q: scheme must be http or https", cfg.UpstreamBaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultUpstreamTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		upstream: base,
		prefix:   strings.TrimSuffix(cfg.MountPrefix, "/"),
		rewriter: NewRewriter(strings.TrimSuffix(cfg.MountPrefix, "/"), nil),
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				// The transport would otherwise re-add Accept-Encoding
				// and hand back gzip the rewriter cannot read.
				DisableCompression:  true,
				MaxIdleConns:        32,
				MaxIdleConnsPerHost: 32,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		metrics: cfg.Metrics,
		logger:  logger.With(slog.String("component", "proxy")),
	}, nil
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upstreamPath := h.upstreamPath(r.URL.Path)

	target := *h.upstream
	target.Path = joinPath(target.Path, upstreamPath)
	target.RawQuery = r.URL.RawQuery

	var body io.Reader
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		body = r.Body
	}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), body)
	if err != nil {
		h.logger.Error("build upstream request", slog.String("error", err.Error()))
		h.metrics.recordUpstreamError()
		h.writeBadGateway(w)
		return
	}

	copyHeaders(req.Header, r.Header)
	stripHopByHop(req.Header)
	// The upstream must not compress: rewriting needs plain bytes.
	req.Header.Del("Accept-Encoding")

	resp, err := h.client.Do(req)
	if err != nil {
		if ctxErr := r.Context().Err(); ctxErr != nil {
			// Client went away; nothing useful to write.
			return
		}
		h.logger.Warn("upstream unreachable",
			slog.String("upstream", h.upstream.String()),
			slog.String("path", upstreamPath),
			slog.String("error", err.Error()))
		h.metrics.recordUpstreamError()
		h.writeBadGateway(w)
		return
	}
	defer resp.Body.Close()

	h.metrics.recordUpstream(resp.StatusCode)
	h.writeResponse(w, resp)
}

// upstreamPath maps the mounted request path onto the upstream's path
// space. The bare prefix serves the dashboard entry page.
func (h *Handler) upstreamPath(reqPath string) string {
	trimmed := strings.TrimPrefix(reqPath, h.prefix)
	if trimmed == "" || trimmed == "/" {
		return "/index.html"
	}
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	return trimmed
}

func (h *Handler) writeResponse(w http.ResponseWriter, resp *http.Response) {
	headers := w.Header()
	copyHeaders(headers, resp.Header)
	stripHopByHop(headers)

	if isHTML(resp.Header.Get("Content-Type")) {
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			h.logger.Warn("read upstream body", slog.String("error", err.Error()))
			h.writeBadGateway(w)
			return
		}
		out, changed := h.rewriter.Rewrite(string(raw))
		if changed {
			// Length changed with the content.
			headers.Del("Content-Length")
		}
		headers.Set("Content-Length", strconv.Itoa(len(out)))
		w.WriteHeader(resp.StatusCode)
		io.WriteString(w, out)
		return
	}

	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil && !isContextError(err) {
		h.logger.Warn("stream upstream body", slog.String("error", err.Error()))
	}
}

func (h *Handler) writeBadGateway(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusBadGateway)
	fmt.Fprintf(w, badGatewayPage, h.upstream.Host)
}

// badGatewayPage is the diagnostic shown when the upstream cannot be
// reached. It names the upstream host so an operator can tell at a
// glance which backing service is down. The underlying error goes to
// the log only; transport errors can name internal addresses.
const badGatewayPage = `<!DOCTYPE html>
<html>
<head><title>502 Bad Gateway</title></head>
<body>
<h1>Upstream unavailable</h1>
<p>The monitoring backend at <code>%s</code> did not respond.</p>
<p>Check that the service is running and reachable from this host.</p>
</body>
</html>
`

func copyHeaders(dst, src http.Header) {
	for name, values := range src {
		for _, v := range values {
			dst.Add(name, v)
		}
	}
}

func stripHopByHop(h http.Header) {
	// Also drop anything the Connection header itself names.
	for _, v := range h.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				h.Del(name)
			}
		}
	}
	for _, name := range hopByHopHeaders {
		h.Del(name)
	}
}

func isHTML(contentType string) bool {
	mediaType := contentType
	if i := strings.Index(mediaType, ";"); i >= 0 {
		mediaType = mediaType[:i]
	}
	return strings.EqualFold(strings.TrimSpace(mediaType), "text/html")
}

func joinPath(base, rest string) string {
	base = strings.TrimSuffix(base, "/")
	if !strings.HasPrefix(rest, "/") {
		rest = "/" + rest
	}
	return base + rest
}

func isContextError(err error) bool {
	return err == context.Canceled || err == context.DeadlineExceeded ||
		strings.Contains(err.Error(), "context canceled")
}

// Package httplog implements the optional HTTP request/response logger of
// spec.md §7: when enabled, every outbound HTTP request this process
// makes (uploads, retrieval searches, enhancer calls) is appended to a
// single log file, with sensitive headers masked and bodies pretty-printed
// and truncated, writes serialized through one mutex so concurrent
// requests never interleave their records.
package httplog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

const (
	maxBodyBytes = 10000
	logFileName  = "http_requests.log"
)

var sensitiveHeaders = map[string]bool{
	"authorization":       true,
	"set-cookie":          true,
	"cookie":              true,
	"x-api-key":           true,
	"x-auth-token":        true,
	"proxy-authorization": true,
}

// Logger appends redacted HTTP request/response records to a single file.
type Logger struct {
	path string
	mu   sync.Mutex
}

// New builds a Logger writing to dir/http_requests.log, creating dir if it
// does not already exist.
func New(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create http log directory: %w", err)
	}
	return &Logger{path: filepath.Join(dir, logFileName)}, nil
}

// Transport wraps base (http.DefaultTransport when nil) so every round
// trip is recorded. A nil logger returns base unchanged, so callers can
// wrap unconditionally regardless of whether logging is enabled.
func Transport(logger *Logger, base http.RoundTripper) http.RoundTripper {
	if logger == nil {
		if base == nil {
			return http.DefaultTransport
		}
		return base
	}
	if base == nil {
		base = http.DefaultTransport
	}
	return &loggingTransport{logger: logger, base: base}
}

type loggingTransport struct {
	logger *Logger
	base   http.RoundTripper
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	reqBody := drainBody(&req.Body)

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		t.logger.record(req, reqBody, nil, "", duration, err)
		return resp, err
	}

	respBody := drainBody(&resp.Body)
	t.logger.record(req, reqBody, resp, respBody, duration, nil)
	return resp, nil
}

// drainBody reads *body fully (if non-nil) and replaces it with a fresh
// reader over the same bytes, so logging never consumes the body the real
// caller still needs to read.
func drainBody(body *io.ReadCloser) string {
	if *body == nil {
		return ""
	}
	data, err := io.ReadAll(*body)
	(*body).Close()
	if err != nil {
		*body = io.NopCloser(bytes.NewReader(nil))
		return ""
	}
	*body = io.NopCloser(bytes.NewReader(data))
	return string(data)
}

func (l *Logger) record(req *http.Request, reqBody string, resp *http.Response, respBody string, duration time.Duration, transportErr error) {
	var b strings.Builder
	sep := strings.Repeat("=", 80)

	fmt.Fprintf(&b, "\n%s\n[%s] %s %s\n%s\n", sep, time.Now().Format("2006-01-02 15:04:05.000"), req.Method, req.URL.String(), sep)

	b.WriteString("\n--- Request Headers ---\n")
	writeHeaders(&b, req.Header)

	if reqBody != "" {
		b.WriteString("\n--- Request Body ---\n")
		b.WriteString(formatBody(reqBody))
		b.WriteByte('\n')
	}

	if resp != nil {
		fmt.Fprintf(&b, "\n--- Response (%dms) ---\n", duration.Milliseconds())
		fmt.Fprintf(&b, "Status: %d\n", resp.StatusCode)

		b.WriteString("\n--- Response Headers ---\n")
		writeHeaders(&b, resp.Header)

		if respBody != "" {
			b.WriteString("\n--- Response Body ---\n")
			b.WriteString(formatBody(respBody))
			b.WriteByte('\n')
		}
	}

	if transportErr != nil {
		fmt.Fprintf(&b, "\n--- Error (%dms) ---\n", duration.Milliseconds())
		b.WriteString(transportErr.Error())
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "\n%s\n", sep)

	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	f.WriteString(b.String())
}

func writeHeaders(b *strings.Builder, h http.Header) {
	for name, values := range h {
		for _, v := range values {
			fmt.Fprintf(b, "%s: %s\n", name, maskHeader(name, v))
		}
	}
}

func maskHeader(name, value string) string {
	if !sensitiveHeaders[strings.ToLower(name)] {
		return value
	}
	return maskToken(value)
}

// maskToken masks a bearer or generic token, keeping a 4-character prefix
// and suffix for correlation without exposing the secret itself.
func maskToken(value string) string {
	if rest, ok := strings.CutPrefix(value, "Bearer "); ok {
		return "Bearer " + maskValue(rest)
	}
	return maskValue(value)
}

func maskValue(value string) string {
	runes := []rune(value)
	if len(runes) <= 8 {
		return "****"
	}
	return string(runes[:4]) + "..." + string(runes[len(runes)-4:])
}

// formatBody pretty-prints a JSON body, then truncates at a UTF-8 safe
// boundary to maxBodyBytes.
func formatBody(body string) string {
	formatted := body
	var v any
	if json.Unmarshal([]byte(body), &v) == nil {
		if pretty, err := json.MarshalIndent(v, "", "  "); err == nil {
			formatted = string(pretty)
		}
	}
	return truncateUTF8Safe(formatted, maxBodyBytes)
}

// truncateUTF8Safe never splits a multi-byte rune, backing off to the
// nearest earlier rune boundary before max.
func truncateUTF8Safe(s string, max int) string {
	if len(s) <= max {
		return s
	}
	end := max
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	return fmt.Sprintf("%s...\n[truncated, total %d bytes]", s[:end], len(s))
}

package deviantart

import (
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"storynav/config"
)

// loggingTransport logs every request at debug level. Headers and bodies
// are never logged, tokens in query are redacted.
type loggingTransport struct {
	base      http.RoundTripper
	userAgent string
	log       *zap.Logger
}

// NewLoggingTransport wraps base (http.DefaultTransport when nil). When
// userAgent is not empty it is set on requests which do not have one.
func NewLoggingTransport(base http.RoundTripper, userAgent string, log *zap.Logger) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &loggingTransport{base: base, userAgent: userAgent, log: log.Named("http")}
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}
	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("url", redactURL(req.URL)),
		zap.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		t.log.Debug("Request failed", append(fields, zap.Error(err))...)
		return nil, err
	}
	t.log.Debug("Request completed", append(fields, zap.Int("status", resp.StatusCode))...)
	return resp, nil
}

var secretParams = []string{"access_token", "refresh_token", "client_secret", "code"}

func redactURL(u *url.URL) string {
	cu := *u
	q := cu.Query()
	changed := false
	for _, name := range secretParams {
		if q.Has(name) {
			q.Set(name, config.SecretStringValue)
			changed = true
		}
	}
	if changed {
		cu.RawQuery = q.Encode()
	}
	return cu.Redacted()
}

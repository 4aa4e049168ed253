package pulse

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/HerbHall/uptimewatch/internal/assertion"
	"github.com/HerbHall/uptimewatch/internal/certinfo"
	"go.uber.org/zap"
)

// Compile-time interface guard.
var _ Checker = (*HTTPChecker)(nil)

const (
	maxBodyBytes = 10 << 20
	certTimeout  = 5 * time.Second
)

// TokenSource supplies OAuth2 client-credentials access tokens.
type TokenSource interface {
	Token(ctx context.Context, clientID, clientSecret, tokenURL string) (string, error)
}

// CertInspector reads the certificate a TLS server presents.
type CertInspector interface {
	Inspect(ctx context.Context, host string, port int) (*certinfo.Info, error)
}

// HTTPChecker sends one request per probe and judges the response by
// status code, an optional body pattern and assertions.
type HTTPChecker struct {
	verifying *http.Client
	insecure  *http.Client
	tokens    TokenSource
	certs     CertInspector
	logger    *zap.Logger
}

// NewHTTPChecker creates an HTTP checker. tokens may be nil when no target
// uses OAuth2; certs may be nil to skip certificate inspection.
func NewHTTPChecker(tokens TokenSource, certs CertInspector, logger *zap.Logger) *HTTPChecker {
	return &HTTPChecker{
		verifying: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig:   &tls.Config{MinVersion: tls.VersionTLS12},
				DisableKeepAlives: true,
			},
		},
		insecure: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig:   &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: true}, //nolint:gosec // G402: reachability checks may ignore certificate errors
				DisableKeepAlives: true,
			},
		},
		tokens: tokens,
		certs:  certs,
		logger: logger,
	}
}

// Check performs the request described by the target's HTTPSpec.
// Certificate inspection runs alongside the request and only fills the
// certificate fields; it never changes the classification.
func (c *HTTPChecker) Check(ctx context.Context, t Target) Outcome {
	spec, err := specOf[HTTPSpec](t)
	if err != nil {
		return HTTPOutcome{Result: Unhealthy("%v", err)}
	}

	var cert *certFuture
	if spec.Scheme == "https" && c.certs != nil {
		cert = c.inspect(ctx, t)
	}

	out := c.probe(ctx, t, spec, cert)

	if cert != nil {
		valid := false
		if info := cert.wait(ctx); info != nil {
			days := info.DaysRemaining
			valid = info.Valid
			out.CertDaysRemaining = &days
		}
		out.CertIsValid = &valid
	}
	return out
}

func (c *HTTPChecker) probe(ctx context.Context, t Target, spec HTTPSpec, cert *certFuture) HTTPOutcome {
	method := spec.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, spec.URL(t.Host, t.Port), http.NoBody)
	if err != nil {
		return HTTPOutcome{Result: Unhealthy("invalid request: %v", err)}
	}
	for k, v := range spec.Headers {
		req.Header.Set(k, v)
	}
	if status, ok := c.authenticate(ctx, req, spec.Auth); !ok {
		return HTTPOutcome{Result: status}
	}

	client := c.insecure
	if spec.CheckCertificate {
		client = c.verifying
	}

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return HTTPOutcome{Result: errorReason("request failed", err)}
	}
	defer resp.Body.Close()

	out := HTTPOutcome{StatusCode: resp.StatusCode, Latency: elapsed}

	if resp.StatusCode != spec.ExpectedStatus {
		out.Result = Unhealthy("unexpected status code: %d (expected %d)", resp.StatusCode, spec.ExpectedStatus)
		return out
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		out.Result = errorReason("read body", err)
		return out
	}

	if spec.BodyRegex != "" {
		re, err := regexp.Compile(spec.BodyRegex)
		if err != nil {
			out.Result = Unhealthy("invalid body regex %q: %v", spec.BodyRegex, err)
			return out
		}
		if !re.Match(body) {
			out.Result = Unhealthy("body does not match pattern %q", spec.BodyRegex)
			return out
		}
	}

	if len(spec.Assertions) > 0 {
		snapshot := &assertion.Response{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       body,
			Duration:   elapsed,
		}
		if cert != nil {
			if info := cert.wait(ctx); info != nil {
				snapshot.Certificate = info
			}
		}
		out.Assertions = assertion.EvaluateAll(spec.Assertions, snapshot)
		if failed := assertion.Failures(out.Assertions); len(failed) > 0 {
			out.Result = Unhealthy("assertion failures: %s", strings.Join(failed, "; "))
			return out
		}
	}

	out.Result = Healthy()
	return out
}

// authenticate applies credentials to req. It returns false with an
// unhealthy status when credentials cannot be obtained.
func (c *HTTPChecker) authenticate(ctx context.Context, req *http.Request, auth *Auth) (Status, bool) {
	if auth == nil {
		return Status{}, true
	}
	switch auth.Kind {
	case AuthBasic:
		req.SetBasicAuth(auth.Username, auth.Password)
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+auth.Token)
	case AuthOAuth2:
		if c.tokens == nil {
			return Unhealthy("authentication failed: no token source configured"), false
		}
		token, err := c.tokens.Token(ctx, auth.ClientID, auth.ClientSecret, auth.TokenURL)
		if err != nil {
			return Unhealthy("authentication failed: %v", err), false
		}
		req.Header.Set("Authorization", "Bearer "+token)
	default:
		return Unhealthy("authentication failed: unsupported auth type %q", auth.Kind), false
	}
	return Status{}, true
}

// certFuture is the pending result of a certificate inspection.
type certFuture struct {
	done chan struct{}
	info *certinfo.Info
}

func (f *certFuture) wait(ctx context.Context) *certinfo.Info {
	select {
	case <-f.done:
		return f.info
	case <-ctx.Done():
		return nil
	}
}

func (c *HTTPChecker) inspect(ctx context.Context, t Target) *certFuture {
	f := &certFuture{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		ictx, cancel := context.WithTimeout(ctx, certTimeout)
		defer cancel()
		info, err := c.certs.Inspect(ictx, t.Host, t.Port)
		if err != nil {
			c.logger.Debug("certificate inspection failed",
				zap.String("target", t.Alias),
				zap.Error(err),
			)
			return
		}
		f.info = info
	}()
	return f
}

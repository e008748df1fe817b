package hltv

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"hltvstats-backend/internal/components/assert"
	"hltvstats-backend/internal/components/telemetry"
	"hltvstats-backend/lib/configutil"
	"math/rand/v2"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_session_fetch = "session.fetch"
	report_session_new   = "session.new"
)

var (
	// ErrNotReady means the page loaded but its readiness landmark never showed up.
	ErrNotReady = errors.New("page not ready")
	// ErrSessionClosed is returned by Fetch after Close.
	ErrSessionClosed = errors.New("session closed")
)

const defaultReadySelector = "h1, div[data-marker='item-view/item']"

type SessionOptions struct {
	UserAgent string
	// PageLoadTimeout bounds a whole navigation, body included.
	PageLoadTimeout time.Duration
	// ImplicitWait bounds how long the server may take to start answering.
	ImplicitWait time.Duration
	// ReadyWait bounds the lookup of the readiness landmark once the page loaded.
	ReadyWait     time.Duration
	ReadySelector string

	// Proxy is used for every request when set, ex. socks5://127.0.0.1:9050
	Proxy string
	// SSLVerify only applies when going through a proxy.
	SSLVerify bool

	// Output receives every fetched page when set (visible mode).
	Output telemetry.PageOutput
}

// SessionOptionsFromSettings reads the `browser` subtree. When more than one proxy
// is configured, one of them is picked for the lifetime of the session.
func SessionOptionsFromSettings(settings *configutil.Settings, tel telemetry.API) (SessionOptions, error) {
	opts := SessionOptions{
		UserAgent:       settings.String("browser.user_agent", ""),
		PageLoadTimeout: settings.Seconds("browser.page_load_timeout", 20*time.Second),
		ImplicitWait:    settings.Seconds("browser.implicitly_wait", 7*time.Second),
		ReadyWait:       settings.Seconds("browser.ready_wait", 5*time.Second),
		ReadySelector:   settings.String("browser.ready_selector", defaultReadySelector),
		SSLVerify:       settings.Bool("browser.proxy.ssl_verify", false),
	}

	if settings.Bool("browser.proxy.enabled", false) {
		proxies := settings.Strings("browser.proxy.proxies")
		if len(proxies) == 0 {
			return SessionOptions{}, fmt.Errorf("proxy enabled but browser.proxy.proxies is empty")
		}
		opts.Proxy = proxies[rand.IntN(len(proxies))]
	}

	if !settings.Bool("browser.headless", false) {
		output, err := telemetry.NewFilesystemOutput(settings.String("browser.dump_dir", ".dev/pages"), tel)
		if err != nil {
			return SessionOptions{}, err
		}
		opts.Output = output
	}

	return opts, nil
}

// Session is a cookie-keeping browsing session reused across every fetch of a run.
type Session struct {
	http          *resty.Client
	transport     *http.Transport
	readyWait     time.Duration
	readySelector string
	tel           telemetry.API

	mutex  sync.Mutex
	closed bool
}

func NewSession(opts SessionOptions, tel telemetry.API) (*Session, error) {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("hltv", tel)

	if opts.ReadySelector == "" {
		opts.ReadySelector = defaultReadySelector
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		TLSHandshakeTimeout:   opts.ImplicitWait,
		ResponseHeaderTimeout: opts.ImplicitWait,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
	}
	if opts.Proxy != "" {
		proxyUrl, err := url.Parse(opts.Proxy)
		if err != nil {
			tel.ReportBroken(report_session_new, fmt.Errorf("parse proxy: %w", err))
			return nil, err
		}
		transport.Proxy = http.ProxyURL(proxyUrl)
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: !opts.SSLVerify,
		}
		tel.ReportDebug("session: using proxy", proxyUrl.Host)
	}

	httpClient := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	httpClient.SetTransport(cloudflarebp.AddCloudFlareByPass(transport))

	if opts.UserAgent != "" {
		httpClient.SetHeader("user-agent", opts.UserAgent)
	}
	httpClient.SetHeader("accept-language", "en-US,en;q=0.9")
	httpClient.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	if opts.PageLoadTimeout > 0 {
		httpClient.SetTimeout(opts.PageLoadTimeout)
	}

	telemetry.InstrumentResty(httpClient, tel, opts.Output)

	return &Session{
		http:          httpClient,
		transport:     transport,
		readyWait:     opts.ReadyWait,
		readySelector: opts.ReadySelector,
		tel:           tel,
	}, nil
}

// Fetch navigates to link and returns the page source once the readiness landmark
// is present. Any error means the page is absent, nothing is retried.
func (s *Session) Fetch(ctx context.Context, link string) (string, error) {
	ctx, span := tracer.Start(ctx, "Session.Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("url", link))

	s.mutex.Lock()
	closed := s.closed
	s.mutex.Unlock()
	if closed {
		return "", ErrSessionClosed
	}

	fail := func(err error) (string, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.tel.ReportWarning(report_session_fetch, link, err)
		return "", err
	}

	res, err := s.http.R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		return fail(fmt.Errorf("navigate: %w", err))
	}
	if res.IsError() {
		return fail(fmt.Errorf("navigate: unexpected status %s", res.Status()))
	}

	body := res.Body()
	err = s.waitReady(ctx, body)
	if err != nil {
		return fail(err)
	}

	return string(body), nil
}

func (s *Session) waitReady(ctx context.Context, body []byte) error {
	if s.readyWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.readyWait)
		defer cancel()
	}

	found := make(chan error, 1)
	go func() {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			found <- fmt.Errorf("%w: %w", ErrNotReady, err)
			return
		}
		if doc.Find(s.readySelector).Length() == 0 {
			found <- fmt.Errorf("%w: %q not found", ErrNotReady, s.readySelector)
			return
		}
		found <- nil
	}()

	select {
	case err := <-found:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrNotReady, ctx.Err())
	}
}

// Close releases the session's connections, it is safe to call more than once.
func (s *Session) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.transport.CloseIdleConnections()
	s.tel.ReportDebug("session: closed")
	return nil
}

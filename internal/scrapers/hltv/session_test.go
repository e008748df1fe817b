package hltv

import (
	"context"
	"fmt"
	"hltvstats-backend/lib/configutil"
	"hltvstats-backend/lib/testutil"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const readyPage = `<html><body><h1>Results</h1><div class="result-con"></div></body></html>`

type memoryOutput struct {
	mutex sync.Mutex
	pages map[string]string
}

func (o *memoryOutput) Write(id, contents string) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	if o.pages == nil {
		o.pages = map[string]string{}
	}
	o.pages[id] = contents
}

func newTestSession(t testing.TB, opts SessionOptions) *Session {
	if opts.PageLoadTimeout == 0 {
		opts.PageLoadTimeout = 2 * time.Second
	}
	if opts.ReadyWait == 0 {
		opts.ReadyWait = time.Second
	}
	session, err := NewSession(opts, testutil.NewTelemetry(t))
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

func TestSessionFetch(t *testing.T) {
	var seenAgent string
	mux := http.NewServeMux()
	mux.HandleFunc("/results", func(w http.ResponseWriter, r *http.Request) {
		seenAgent = r.Header.Get("User-Agent")
		fmt.Fprint(w, readyPage)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	output := &memoryOutput{}
	session := newTestSession(t, SessionOptions{
		UserAgent: "hltvstats-test",
		Output:    output,
	})

	html, err := session.Fetch(context.Background(), server.URL+"/results")
	require.NoError(t, err)
	require.Equal(t, readyPage, html)
	require.Equal(t, "hltvstats-test", seenAgent)

	output.mutex.Lock()
	require.Len(t, output.pages, 1)
	output.mutex.Unlock()
}

func TestSessionKeepsCookies(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/first", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
		fmt.Fprint(w, readyPage)
	})
	mux.HandleFunc("/second", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("session")
		if err != nil || cookie.Value != "abc" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		fmt.Fprint(w, readyPage)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	session := newTestSession(t, SessionOptions{})
	_, err := session.Fetch(context.Background(), server.URL+"/first")
	require.NoError(t, err)
	_, err = session.Fetch(context.Background(), server.URL+"/second")
	require.NoError(t, err)
}

func TestSessionAbsentPages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/not-ready", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div>Just a moment...</div></body></html>`)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
		fmt.Fprint(w, readyPage)
	})
	mux.HandleFunc("/item", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div data-marker="item-view/item">ok</div></body></html>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	session := newTestSession(t, SessionOptions{
		PageLoadTimeout: 300 * time.Millisecond,
	})

	_, err := session.Fetch(context.Background(), server.URL+"/not-ready")
	require.ErrorIs(t, err, ErrNotReady)

	_, err = session.Fetch(context.Background(), server.URL+"/broken")
	require.Error(t, err)

	_, err = session.Fetch(context.Background(), server.URL+"/slow")
	require.Error(t, err)

	// the alternative landmark counts as ready
	_, err = session.Fetch(context.Background(), server.URL+"/item")
	require.NoError(t, err)
}

func TestSessionProxy(t *testing.T) {
	var proxiedHost string
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxiedHost = r.URL.Host
		fmt.Fprint(w, readyPage)
	}))
	defer proxy.Close()

	session := newTestSession(t, SessionOptions{Proxy: proxy.URL})
	_, err := session.Fetch(context.Background(), "http://hltv.invalid/results")
	require.NoError(t, err)
	require.Equal(t, "hltv.invalid", proxiedHost)
}

func TestSessionClose(t *testing.T) {
	session := newTestSession(t, SessionOptions{})
	require.NoError(t, session.Close())
	require.NoError(t, session.Close())

	_, err := session.Fetch(context.Background(), "http://127.0.0.1:1/results")
	require.ErrorIs(t, err, ErrSessionClosed)
}

func TestSessionOptionsFromSettings(t *testing.T) {
	settings := configutil.Defaults()
	settings.Set("browser.headless", true)
	settings.Set("browser.proxy.enabled", true)
	settings.Set("browser.proxy.proxies", []any{"socks5://127.0.0.1:9050"})

	opts, err := SessionOptionsFromSettings(settings, testutil.NewTelemetry(t))
	require.NoError(t, err)
	require.Equal(t, "socks5://127.0.0.1:9050", opts.Proxy)
	require.Equal(t, 20*time.Second, opts.PageLoadTimeout)
	require.Equal(t, 7*time.Second, opts.ImplicitWait)
	require.Equal(t, 5*time.Second, opts.ReadyWait)
	require.False(t, opts.SSLVerify)
	require.Nil(t, opts.Output)

	settings.Set("browser.proxy.proxies", []any{})
	_, err = SessionOptionsFromSettings(settings, testutil.NewTelemetry(t))
	require.Error(t, err)

	settings.Set("browser.proxy.enabled", false)
	settings.Set("browser.headless", false)
	settings.Set("browser.dump_dir", t.TempDir())
	opts, err = SessionOptionsFromSettings(settings, testutil.NewTelemetry(t))
	require.NoError(t, err)
	require.Empty(t, opts.Proxy)
	require.NotNil(t, opts.Output)
}

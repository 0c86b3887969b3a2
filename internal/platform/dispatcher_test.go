package platform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markbot/orchestrator/internal/apperrors"
	"github.com/markbot/orchestrator/internal/config"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

// newTwitterServer fakes the tweet create endpoint and captures the
// posted text.
func newTwitterServer(t *testing.T, captured *[]string) *httptest.Server {
	var mu sync.Mutex
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		mu.Lock()
		*captured = append(*captured, body.Text)
		mu.Unlock()

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]string{"id": "tw-1", "text": body.Text},
		})
	}))
}

func TestPublishTruncatesPerTarget(t *testing.T) {
	var tweets []string
	twitterSrv := newTwitterServer(t, &tweets)
	defer twitterSrv.Close()

	var linkedinTexts []string
	linkedinSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		json.NewDecoder(r.Body).Decode(&payload)
		content := payload["specificContent"].(map[string]any)["com.linkedin.ugc.ShareContent"].(map[string]any)
		text := content["shareCommentary"].(map[string]any)["text"].(string)
		linkedinTexts = append(linkedinTexts, text)

		w.Header().Set("X-RestLi-Id", "urn:li:share:99")
		w.WriteHeader(http.StatusCreated)
	}))
	defer linkedinSrv.Close()

	d := &Dispatcher{
		Twitter:  &TwitterClient{BearerToken: "token", BaseURL: twitterSrv.URL, HTTPClient: twitterSrv.Client()},
		LinkedIn: &LinkedInClient{AccessToken: "token", PersonID: "p1", BaseURL: linkedinSrv.URL, HTTPClient: linkedinSrv.Client()},
		Timeout:  5 * time.Second,
		Log:      testLogger(),
	}

	content := strings.Repeat("a", 300)
	results := d.PublishMany(context.Background(), []Platform{Twitter, LinkedIn}, content, "")

	require.Len(t, results, 2)
	require.True(t, results[Twitter].Success)
	require.True(t, results[LinkedIn].Success)
	assert.Equal(t, "tw-1", results[Twitter].PostID)
	assert.Equal(t, "urn:li:share:99", results[LinkedIn].PostID)

	// twitter got a 280-char cut with the ellipsis, linkedin the full text
	require.Len(t, tweets, 1)
	assert.Len(t, tweets[0], 280)
	assert.True(t, strings.HasSuffix(tweets[0], "..."))
	require.Len(t, linkedinTexts, 1)
	assert.Equal(t, content, linkedinTexts[0])
}

func TestPublishUnconfiguredTarget(t *testing.T) {
	d := NewDispatcher(config.Platforms{}, time.Second, testLogger())

	res := d.Publish(context.Background(), Twitter, "hello", "")
	require.False(t, res.Success)

	var cfgErr *apperrors.ConfigurationError
	require.True(t, errors.As(res.Err, &cfgErr))
	assert.Equal(t, "twitter", cfgErr.Platform)
}

func TestPublishUnsupportedTarget(t *testing.T) {
	d := &Dispatcher{Timeout: time.Second, Log: testLogger()}

	res := d.Publish(context.Background(), Platform("myspace"), "hello", "")
	var unsupported *apperrors.UnsupportedPlatformError
	require.True(t, errors.As(res.Err, &unsupported))
}

func TestPublishManyIsolatesFailures(t *testing.T) {
	var tweets []string
	twitterSrv := newTwitterServer(t, &tweets)
	defer twitterSrv.Close()

	d := &Dispatcher{
		Twitter:   &TwitterClient{BearerToken: "token", BaseURL: twitterSrv.URL, HTTPClient: twitterSrv.Client()},
		LinkedIn:  NewLinkedInClient("", ""),
		Facebook:  NewFacebookClient("", ""),
		Instagram: NewInstagramClient("token", "acct"),
		Timeout:   5 * time.Second,
		Log:       testLogger(),
	}

	targets := []Platform{Twitter, LinkedIn, Facebook, Instagram}
	results := d.PublishMany(context.Background(), targets, "hello", "")
	require.Len(t, results, 4)

	assert.True(t, results[Twitter].Success)

	configFailures := 0
	for _, p := range []Platform{LinkedIn, Facebook} {
		var cfgErr *apperrors.ConfigurationError
		if errors.As(results[p].Err, &cfgErr) {
			configFailures++
		}
	}
	assert.Equal(t, 2, configFailures)

	// instagram is configured but rejects text-only posts
	var platErr *apperrors.PlatformError
	require.True(t, errors.As(results[Instagram].Err, &platErr))
}

func TestPublishTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	d := &Dispatcher{
		Twitter: &TwitterClient{BearerToken: "token", BaseURL: srv.URL, HTTPClient: srv.Client()},
		Timeout: 20 * time.Millisecond,
		Log:     testLogger(),
	}

	res := d.Publish(context.Background(), Twitter, "hello", "")
	require.False(t, res.Success)

	var timeoutErr *apperrors.TimeoutError
	require.True(t, errors.As(res.Err, &timeoutErr), "got %v", res.Err)
}

func TestPublishRemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	d := &Dispatcher{
		Facebook: &FacebookClient{AccessToken: "t", PageID: "p", BaseURL: srv.URL, HTTPClient: srv.Client()},
		Timeout:  5 * time.Second,
		Log:      testLogger(),
	}

	res := d.Publish(context.Background(), Facebook, "hello", "")
	require.False(t, res.Success)

	var platErr *apperrors.PlatformError
	require.True(t, errors.As(res.Err, &platErr))
	assert.Contains(t, platErr.Message, "429")
}

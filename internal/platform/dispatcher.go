package platform

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/markbot/orchestrator/internal/apperrors"
	"github.com/markbot/orchestrator/internal/config"
)

// Dispatcher routes publishes to the right target client, applying the
// per-target content limit on the way out. Each platform is an explicit
// field rather than a string-keyed map, so routing is checked at
// compile time.
type Dispatcher struct {
	Twitter   Client
	LinkedIn  Client
	Facebook  Client
	Instagram Client

	// Timeout bounds each remote publish so a stalled target cannot
	// hold a scheduler callback indefinitely.
	Timeout time.Duration
	Log     *logrus.Logger
}

func NewDispatcher(cfg config.Platforms, timeout time.Duration, log *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		Twitter:   NewTwitterClient(cfg.TwitterBearerToken),
		LinkedIn:  NewLinkedInClient(cfg.LinkedInAccessToken, cfg.LinkedInPersonID),
		Facebook:  NewFacebookClient(cfg.FacebookAccessToken, cfg.FacebookPageID),
		Instagram: NewInstagramClient(cfg.InstagramAccessToken, cfg.InstagramAccountID),
		Timeout:   timeout,
		Log:       log,
	}
}

func (d *Dispatcher) clientFor(p Platform) Client {
	switch p {
	case Twitter:
		return d.Twitter
	case LinkedIn:
		return d.LinkedIn
	case Facebook:
		return d.Facebook
	case Instagram:
		return d.Instagram
	}
	return nil
}

// Publish sends one piece of content to one target: truncate to the
// target limit, check credentials, call the client under a deadline.
// Failures come back inside the Result, never as a panic or a raw
// transport error.
func (d *Dispatcher) Publish(ctx context.Context, p Platform, content, link string) Result {
	client := d.clientFor(p)
	if client == nil {
		return Result{Err: &apperrors.UnsupportedPlatformError{Platform: string(p)}}
	}
	if !client.Configured() {
		return Result{Err: &apperrors.ConfigurationError{Platform: string(p)}}
	}

	content = Optimize(content, p)

	cctx := ctx
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	res := client.CreatePost(cctx, content, link)
	if d.Log != nil {
		d.Log.WithFields(logrus.Fields{
			"platform": p,
			"success":  res.Success,
			"post_id":  res.PostID,
			"error":    res.ErrorMessage(),
		}).Info("publish attempt")
	}
	return res
}

// PublishMany fans the same content out to several targets. Targets are
// attempted independently and concurrently; one target failing, lacking
// credentials, or timing out never suppresses the others. The map holds
// one result per requested target and is only returned once every
// attempt has completed.
func (d *Dispatcher) PublishMany(ctx context.Context, targets []Platform, content, link string) map[Platform]Result {
	results := make(map[Platform]Result, len(targets))

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, target := range targets {
		wg.Add(1)
		go func(p Platform) {
			defer wg.Done()
			res := d.Publish(ctx, p, content, link)
			mu.Lock()
			results[p] = res
			mu.Unlock()
		}(target)
	}
	wg.Wait()

	return results
}

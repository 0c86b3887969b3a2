package platform

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/markbot/orchestrator/internal/apperrors"
)

// Result is the uniform outcome of one publish attempt against one
// target. Exactly one of PostID and Err is meaningful.
type Result struct {
	Success bool
	PostID  string
	Err     error
}

// ErrorMessage flattens the failure for storage on a SocialPost.
func (r Result) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Client is the per-target publish contract. Implementations never
// panic or leak transport errors; everything comes back as a Result.
type Client interface {
	CreatePost(ctx context.Context, content, link string) Result
	Configured() bool
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

func failure(p Platform, err error) Result {
	if errors.Is(err, context.DeadlineExceeded) {
		return Result{Err: &apperrors.TimeoutError{Op: string(p) + " publish"}}
	}
	return Result{Err: &apperrors.PlatformError{Platform: string(p), Message: err.Error()}}
}

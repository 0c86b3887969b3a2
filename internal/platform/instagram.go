package platform

import (
	"context"

	"github.com/markbot/orchestrator/internal/apperrors"
)

// InstagramClient targets business accounts through the graph API.
// The API only accepts posts that carry media, so text-only publishes
// are reported as a platform failure rather than silently dropped.
type InstagramClient struct {
	AccessToken string
	AccountID   string
}

func NewInstagramClient(accessToken, accountID string) *InstagramClient {
	return &InstagramClient{AccessToken: accessToken, AccountID: accountID}
}

func (c *InstagramClient) Configured() bool {
	return c.AccessToken != "" && c.AccountID != ""
}

func (c *InstagramClient) CreatePost(ctx context.Context, content, link string) Result {
	return Result{Err: &apperrors.PlatformError{
		Platform: string(Instagram),
		Message:  "instagram requires media - text-only posts not supported by api",
	}}
}

package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/markbot/orchestrator/internal/apperrors"
)

// FacebookClient posts to a page feed through the graph API.
type FacebookClient struct {
	AccessToken string
	PageID      string
	BaseURL     string
	HTTPClient  *http.Client
}

func NewFacebookClient(accessToken, pageID string) *FacebookClient {
	return &FacebookClient{
		AccessToken: accessToken,
		PageID:      pageID,
		BaseURL:     "https://graph.facebook.com/v18.0",
		HTTPClient:  newHTTPClient(),
	}
}

func (c *FacebookClient) Configured() bool {
	return c.AccessToken != "" && c.PageID != ""
}

func (c *FacebookClient) CreatePost(ctx context.Context, content, link string) Result {
	params := url.Values{}
	params.Set("message", content)
	params.Set("access_token", c.AccessToken)
	if link != "" {
		params.Set("link", link)
	}

	endpoint := fmt.Sprintf("%s/%s/feed", c.BaseURL, c.PageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return failure(Facebook, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return failure(Facebook, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return Result{Err: &apperrors.PlatformError{
			Platform: string(Facebook),
			Message:  fmt.Sprintf("status %d: %s", resp.StatusCode, raw),
		}}
	}

	var payload struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return failure(Facebook, err)
	}
	return Result{Success: true, PostID: payload.ID}
}

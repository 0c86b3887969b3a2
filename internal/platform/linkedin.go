package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/markbot/orchestrator/internal/apperrors"
)

// LinkedInClient creates ugcPosts as the configured member. A non-empty
// link becomes an ARTICLE share with a preview card.
type LinkedInClient struct {
	AccessToken string
	PersonID    string
	BaseURL     string
	HTTPClient  *http.Client
}

func NewLinkedInClient(accessToken, personID string) *LinkedInClient {
	return &LinkedInClient{
		AccessToken: accessToken,
		PersonID:    personID,
		BaseURL:     "https://api.linkedin.com/v2",
		HTTPClient:  newHTTPClient(),
	}
}

func (c *LinkedInClient) Configured() bool {
	return c.AccessToken != "" && c.PersonID != ""
}

func (c *LinkedInClient) CreatePost(ctx context.Context, content, link string) Result {
	share := map[string]any{
		"shareCommentary":    map[string]string{"text": content},
		"shareMediaCategory": "NONE",
	}
	if link != "" {
		share["shareMediaCategory"] = "ARTICLE"
		share["media"] = []map[string]any{{
			"status":      "READY",
			"originalUrl": link,
			"title":       map[string]string{"text": link},
		}}
	}
	payload := map[string]any{
		"author":         "urn:li:person:" + c.PersonID,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": share,
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return failure(LinkedIn, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/ugcPosts", bytes.NewReader(body))
	if err != nil {
		return failure(LinkedIn, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return failure(LinkedIn, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		return Result{Err: &apperrors.PlatformError{
			Platform: string(LinkedIn),
			Message:  fmt.Sprintf("status %d: %s", resp.StatusCode, raw),
		}}
	}

	// linkedin returns the created urn in a response header
	return Result{Success: true, PostID: resp.Header.Get("X-RestLi-Id")}
}

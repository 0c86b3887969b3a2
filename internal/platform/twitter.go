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

// TwitterClient posts through the twitter/x v2 API using an OAuth 2.0
// bearer token.
type TwitterClient struct {
	BearerToken string
	BaseURL     string
	HTTPClient  *http.Client
}

func NewTwitterClient(bearerToken string) *TwitterClient {
	return &TwitterClient{
		BearerToken: bearerToken,
		BaseURL:     "https://api.twitter.com/2",
		HTTPClient:  newHTTPClient(),
	}
}

func (c *TwitterClient) Configured() bool { return c.BearerToken != "" }

func (c *TwitterClient) CreatePost(ctx context.Context, content, link string) Result {
	body, err := json.Marshal(map[string]string{"text": content})
	if err != nil {
		return failure(Twitter, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/tweets", bytes.NewReader(body))
	if err != nil {
		return failure(Twitter, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return failure(Twitter, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		return Result{Err: &apperrors.PlatformError{
			Platform: string(Twitter),
			Message:  fmt.Sprintf("status %d: %s", resp.StatusCode, raw),
		}}
	}

	var payload struct {
		Data struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return failure(Twitter, err)
	}
	return Result{Success: true, PostID: payload.Data.ID}
}

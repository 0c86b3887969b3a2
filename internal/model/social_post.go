package model

import "time"

type PostStatus string

const (
	PostScheduled PostStatus = "scheduled"
	PostPublished PostStatus = "published"
	PostFailed    PostStatus = "failed"
)

// SocialPost is one platform-targeted publish unit. Content is stored
// untruncated; per-platform truncation happens at dispatch time.
type SocialPost struct {
	ID             string     `db:"id" json:"id"`
	Platform       string     `db:"platform" json:"platform"`
	Content        string     `db:"content" json:"content"`
	Link           string     `db:"link" json:"link,omitempty"`
	MediaURLs      []string   `db:"media_urls" json:"media_urls,omitempty"`
	Tags           []string   `db:"tags" json:"tags,omitempty"`
	ScheduledAt    *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	Status         PostStatus `db:"status" json:"status"`
	PlatformPostID string     `db:"platform_post_id" json:"platform_post_id,omitempty"`
	Error          string     `db:"error" json:"error,omitempty"`
	PublishedAt    *time.Time `db:"published_at" json:"published_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

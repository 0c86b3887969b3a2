package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/markbot/orchestrator/internal/apperrors"
	"github.com/markbot/orchestrator/internal/model"
)

type SocialPostRepositoryInterface interface {
	Create(ctx context.Context, p *model.SocialPost) error
	GetByID(ctx context.Context, id string) (*model.SocialPost, error)
	// UpdateResult records the terminal outcome of a single dispatch
	// attempt. Exactly one of platformPostID and errMsg is set.
	UpdateResult(ctx context.Context, id string, status model.PostStatus, platformPostID, errMsg string) error
	ListScheduled(ctx context.Context, platform string) ([]*model.SocialPost, error)
}

type SocialPostRepository struct {
	DB *sql.DB
}

func (r *SocialPostRepository) Create(ctx context.Context, p *model.SocialPost) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.Status == "" {
		p.Status = model.PostScheduled
	}
	query := `
        INSERT INTO social_posts (id, platform, content, link, media_urls, tags, scheduled_at, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `
	_, err := r.DB.ExecContext(ctx, query,
		p.ID, p.Platform, p.Content, p.Link,
		pq.Array(p.MediaURLs), pq.Array(p.Tags),
		p.ScheduledAt, p.Status, p.CreatedAt)
	return err
}

func (r *SocialPostRepository) GetByID(ctx context.Context, id string) (*model.SocialPost, error) {
	query := `
        SELECT id, platform, content, link, media_urls, tags, scheduled_at, status,
               platform_post_id, error, published_at, created_at
        FROM social_posts WHERE id=$1
    `
	var p model.SocialPost
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Platform, &p.Content, &p.Link,
		pq.Array(&p.MediaURLs), pq.Array(&p.Tags),
		&p.ScheduledAt, &p.Status, &p.PlatformPostID, &p.Error,
		&p.PublishedAt, &p.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NewNotFound("post", id)
		}
		return nil, err
	}
	return &p, nil
}

func (r *SocialPostRepository) UpdateResult(ctx context.Context, id string, status model.PostStatus, platformPostID, errMsg string) error {
	query := `
        UPDATE social_posts
        SET status=$1, platform_post_id=$2, error=$3, published_at=NOW()
        WHERE id=$4
    `
	_, err := r.DB.ExecContext(ctx, query, status, platformPostID, errMsg, id)
	return err
}

func (r *SocialPostRepository) ListScheduled(ctx context.Context, platform string) ([]*model.SocialPost, error) {
	query := `
        SELECT id, platform, content, link, media_urls, tags, scheduled_at, status,
               platform_post_id, error, published_at, created_at
        FROM social_posts WHERE status='scheduled'
    `
	args := []interface{}{}
	if platform != "" {
		query += " AND platform=$1"
		args = append(args, platform)
	}
	query += " ORDER BY scheduled_at ASC"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []*model.SocialPost{}
	for rows.Next() {
		p := &model.SocialPost{}
		if err := rows.Scan(&p.ID, &p.Platform, &p.Content, &p.Link,
			pq.Array(&p.MediaURLs), pq.Array(&p.Tags),
			&p.ScheduledAt, &p.Status, &p.PlatformPostID, &p.Error,
			&p.PublishedAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

var _ SocialPostRepositoryInterface = (*SocialPostRepository)(nil)

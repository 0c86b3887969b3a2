package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/markbot/orchestrator/internal/apperrors"
	"github.com/markbot/orchestrator/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(ctx context.Context, c *model.Campaign) error
	GetByID(ctx context.Context, id string) (*model.Campaign, error)
	UpdateStatus(ctx context.Context, id string, status model.CampaignStatus, sentCount int) error
	List(ctx context.Context, offset, limit int, status string) ([]*model.Campaign, int, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	if c.Status == "" {
		c.Status = model.CampaignDraft
	}
	recipients, err := json.Marshal(c.Recipients)
	if err != nil {
		return err
	}
	query := `
        INSERT INTO campaigns (id, title, recipients, subject, body, scheduled_at, status, sent_count, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `
	_, err = r.DB.ExecContext(ctx, query,
		c.ID, c.Title, recipients, c.Subject, c.Body, c.ScheduledAt, c.Status, c.SentCount, c.CreatedAt)
	return err
}

func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*model.Campaign, error) {
	query := `
        SELECT id, title, recipients, subject, body, scheduled_at, status, sent_count, created_at, updated_at
        FROM campaigns WHERE id=$1
    `
	var (
		c          model.Campaign
		recipients []byte
	)
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Title, &recipients, &c.Subject, &c.Body,
		&c.ScheduledAt, &c.Status, &c.SentCount, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NewNotFound("campaign", id)
		}
		return nil, err
	}
	if err := json.Unmarshal(recipients, &c.Recipients); err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateStatus moves the campaign forward. sent_count only ever grows;
// a smaller value is ignored by the store.
func (r *CampaignRepository) UpdateStatus(ctx context.Context, id string, status model.CampaignStatus, sentCount int) error {
	query := `
        UPDATE campaigns
        SET status=$1, sent_count=GREATEST(sent_count, $2), updated_at=NOW()
        WHERE id=$3
    `
	_, err := r.DB.ExecContext(ctx, query, status, sentCount, id)
	return err
}

func (r *CampaignRepository) List(ctx context.Context, offset, limit int, status string) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	query := `SELECT id, title, recipients, subject, body, scheduled_at, status, sent_count, created_at, updated_at FROM campaigns WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		c := &model.Campaign{}
		var recipients []byte
		if err := rows.Scan(&c.ID, &c.Title, &recipients, &c.Subject, &c.Body,
			&c.ScheduledAt, &c.Status, &c.SentCount, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		if err := json.Unmarshal(recipients, &c.Recipients); err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	countQuery := `SELECT COUNT(*) FROM campaigns WHERE 1=1`
	countArgs := []interface{}{}
	if status != "" {
		countQuery += " AND status=$1"
		countArgs = append(countArgs, status)
	}
	var total int
	if err := r.DB.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)

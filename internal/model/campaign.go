package model

import "time"

type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignSent      CampaignStatus = "sent"
	CampaignFailed    CampaignStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s CampaignStatus) Terminal() bool {
	return s == CampaignSent || s == CampaignFailed
}

// Recipient is one addressable member of a campaign audience.
type Recipient struct {
	Email       string `json:"email"`
	Name        string `json:"name,omitempty"`
	CustomerID  string `json:"customer_id,omitempty"`
	TotalOrders int    `json:"total_orders,omitempty"`
}

// Campaign is a bulk outreach unit. Recipients are embedded in the
// campaign document so a firing job only needs the campaign id.
type Campaign struct {
	ID          string         `db:"id" json:"id"`
	Title       string         `db:"title" json:"title"`
	Recipients  []Recipient    `db:"recipients" json:"recipients"`
	Subject     string         `db:"subject" json:"subject"`
	Body        string         `db:"body" json:"body"`
	ScheduledAt *time.Time     `db:"scheduled_at" json:"scheduled_at,omitempty"`
	Status      CampaignStatus `db:"status" json:"status"`
	SentCount   int            `db:"sent_count" json:"sent_count"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}

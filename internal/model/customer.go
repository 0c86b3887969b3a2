package model

import "time"

type Customer struct {
	ID          string    `db:"id" json:"id"`
	Email       string    `db:"email" json:"email"`
	Name        string    `db:"name" json:"name"`
	TotalOrders int       `db:"total_orders" json:"total_orders"`
	Tags        []string  `db:"tags" json:"tags,omitempty"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// CustomerFilter narrows the audience collected for a campaign.
// Zero values mean "no constraint".
type CustomerFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	MinOrders int
	Tags      []string
	Status    string
}

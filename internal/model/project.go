package model

import "time"

// Project is a named container attachments hang off. Pure domain model with
// no database-specific dependencies or tags, usable across layers without
// coupling to persistence.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

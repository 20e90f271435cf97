package model

import "time"

// Attachment is a stored file belonging to a project. The object bytes live
// in object storage under StoragePath; this struct carries the metadata row.
type Attachment struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Filename    string    `json:"filename"`
	StoragePath string    `json:"storage_path"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}

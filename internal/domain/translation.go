package domain

import "time"

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
)

type TranslationKey struct {
	ID          int64     `json:"id"`
	ProjectID   int64     `json:"project_id"`
	Key         string    `json:"key"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Translation is the value of one key in one language. Key is filled by list
// queries that join translation_keys.
type Translation struct {
	ID           int64     `json:"id"`
	KeyID        int64     `json:"key_id"`
	Key          string    `json:"key"`
	LanguageID   int64     `json:"language_id"`
	Content      string    `json:"content"`
	Status       string    `json:"status"`
	EntryOrder   int       `json:"entry_order"`
	TranslatorID string    `json:"translator_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type VersionHistory struct {
	ID              int64     `json:"id"`
	TranslationID   int64     `json:"translation_id"`
	VersionNumber   int       `json:"version_number"`
	Content         string    `json:"content"`
	PreviousContent string    `json:"previous_content"`
	ChangedBy       string    `json:"changed_by"`
	VersionName     string    `json:"version_name"`
	CreatedAt       time.Time `json:"created_at"`
}

// TranslationChange is a single content mutation for a (key, language) pair.
type TranslationChange struct {
	ProjectID   int64
	KeyID       int64
	LanguageID  int64
	Content     string
	Status      string
	ChangedBy   string
	VersionName string
}

package domain

import "time"

type Project struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	SourceLang string    `json:"source_lang"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Language struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

type ProjectLanguage struct {
	ProjectID  int64     `json:"project_id"`
	LanguageID int64     `json:"language_id"`
	CreatedAt  time.Time `json:"created_at"`
}

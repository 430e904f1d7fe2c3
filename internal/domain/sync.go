package domain

import "time"

const (
	SyncKindImport = "import"
	SyncKindExport = "export"

	SyncStatusSuccess = "success"
	SyncStatusFailed  = "failed"
)

// Publish stages, recorded on failure so a retry can be diagnosed.
const (
	StageLoading   = "loading_translations"
	StageFinding   = "finding_files"
	StageFetching  = "fetching_files"
	StagePreparing = "preparing_changes"
	StageBranching = "creating_branch"
	StageCommit    = "committing"
	StageOpenPR    = "opening_pr"
	StageImporting = "importing"
)

const MessageNoChanges = "no changes"

type SyncFile struct {
	Path     string `json:"path"`
	BaseHash string `json:"base_hash,omitempty"`
	Hash     string `json:"hash"`
}

type SyncDetails struct {
	Repository        string     `json:"repository"`
	Branch            string     `json:"branch"`
	FileCount         int        `json:"file_count"`
	Files             []SyncFile `json:"files,omitempty"`
	HeadBranch        string     `json:"head_branch,omitempty"`
	PullRequestURL    string     `json:"pull_request_url,omitempty"`
	PullRequestNumber int        `json:"pull_request_number,omitempty"`
	Message           string     `json:"message,omitempty"`
	Stage             string     `json:"stage,omitempty"`
	Error             string     `json:"error,omitempty"`
}

// SyncHistory is an append-only record of one import or export attempt.
type SyncHistory struct {
	ID            int64       `json:"id"`
	ProjectID     int64       `json:"project_id"`
	IntegrationID int64       `json:"integration_id"`
	Kind          string      `json:"kind"`
	Status        string      `json:"status"`
	Details       SyncDetails `json:"details"`
	CreatedAt     time.Time   `json:"created_at"`
}

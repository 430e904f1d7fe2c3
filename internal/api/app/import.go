package app

import (
	"context"
	"encoding/base64"

	"linguaflow/internal/usecase/importer"
)

type ImportAPI struct {
	svc *importer.Service
}

func NewImportAPI(svc *importer.Service) *ImportAPI { return &ImportAPI{svc: svc} }

type ImportRequest struct {
	ProjectID int64  `json:"project_id"`
	Filename  string `json:"filename"`
	Format    string `json:"format"`
	Language  string `json:"language"`
	// Content is base64-encoded file bytes
	ContentB64 string `json:"content_b64"`
	Overwrite  bool   `json:"overwrite"`
	UserID     string `json:"user_id"`
}

func (a *ImportAPI) ImportBase64(ctx context.Context, req ImportRequest) (importer.ImportResult, error) {
	b, err := base64.StdEncoding.DecodeString(req.ContentB64)
	if err != nil {
		return importer.ImportResult{}, err
	}
	return a.Import(ctx, req, b)
}

func (a *ImportAPI) Import(ctx context.Context, req ImportRequest, content []byte) (importer.ImportResult, error) {
	return a.svc.Import(ctx, importer.ImportArgs{
		ProjectID: req.ProjectID,
		Language:  req.Language,
		Filename:  req.Filename,
		Format:    req.Format,
		Content:   content,
		UserID:    req.UserID,
		Overwrite: req.Overwrite,
	})
}

type RemoteImportRequest struct {
	ProjectID int64  `json:"project_id"`
	UserID    string `json:"user_id"`
	Overwrite bool   `json:"overwrite"`
}

// ImportRemote pulls every translation file of the project's repository.
func (a *ImportAPI) ImportRemote(ctx context.Context, req RemoteImportRequest) (importer.RemoteResult, error) {
	return a.svc.ImportRemote(ctx, importer.RemoteArgs{ProjectID: req.ProjectID, UserID: req.UserID, Overwrite: req.Overwrite})
}

package app

import (
	"context"
	"encoding/base64"

	"linguaflow/internal/usecase/exporter"
)

type ExportAPI struct{ svc *exporter.Service }

func NewExportAPI(s *exporter.Service) *ExportAPI { return &ExportAPI{svc: s} }

type ExportFileRequest struct {
	ProjectID      int64  `json:"project_id"`
	Language       string `json:"language"`
	Format         string `json:"format"`
	IncludePending bool   `json:"include_pending"`
}

type ExportFileResponse struct {
	Filename   string `json:"filename"`
	ContentB64 string `json:"content_b64"`
	Entries    int    `json:"entries"`
}

func (a *ExportAPI) ExportFile(ctx context.Context, req ExportFileRequest) (exporter.ExportResult, error) {
	return a.svc.ExportFile(ctx, exporter.ExportArgs{
		ProjectID:      req.ProjectID,
		Language:       req.Language,
		Format:         req.Format,
		IncludePending: req.IncludePending,
	})
}

func (a *ExportAPI) ExportFileBase64(ctx context.Context, req ExportFileRequest) (ExportFileResponse, error) {
	res, err := a.ExportFile(ctx, req)
	if err != nil {
		return ExportFileResponse{}, err
	}
	return ExportFileResponse{Filename: res.Filename, ContentB64: base64.StdEncoding.EncodeToString(res.Content), Entries: res.Entries}, nil
}

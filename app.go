package main

import (
	"database/sql"
	"log/slog"
	"time"

	dbsqlite "linguaflow/internal/adapters/db/sqlite"
	exportreg "linguaflow/internal/adapters/exporter/registry"
	parreg "linguaflow/internal/adapters/parser/registry"
	scmfactory "linguaflow/internal/adapters/scm/factory"
	"linguaflow/internal/adapters/scm/github"
	"linguaflow/internal/adapters/scm/localgit"
	apiapp "linguaflow/internal/api/app"
	"linguaflow/internal/config"
	"linguaflow/internal/usecase/conflicts"
	exporterusecase "linguaflow/internal/usecase/exporter"
	"linguaflow/internal/usecase/importer"
	"linguaflow/internal/usecase/integrations"
	"linguaflow/internal/usecase/locator"
	"linguaflow/internal/usecase/publisher"
	"linguaflow/internal/usecase/resolver"
	"linguaflow/internal/usecase/translations"
)

// App holds the wired API surface used by the commands.
type App struct {
	db  *sql.DB
	log *slog.Logger

	Projects     *apiapp.ProjectAPI
	Translations *apiapp.TranslationsAPI
	Integrations *apiapp.IntegrationAPI
	Import       *apiapp.ImportAPI
	Export       *apiapp.ExportAPI
	Sync         *apiapp.SyncAPI
}

// NewApp opens the database and wires repositories, adapters and services.
func NewApp(cfg config.Config, log *slog.Logger) (*App, error) {
	db, err := dbsqlite.Init(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	projectRepo := dbsqlite.NewProjectRepo(db)
	languageRepo := dbsqlite.NewLanguageRepo(db)
	keyRepo := dbsqlite.NewKeyRepo(db)
	translationRepo := dbsqlite.NewTranslationRepo(db)
	integrationRepo := dbsqlite.NewIntegrationRepo(db)
	historyRepo := dbsqlite.NewSyncHistoryRepo(db)

	parsers := parreg.Default()
	exporters := exportreg.Default()

	scm := scmfactory.Default(scmfactory.Options{
		GitHub: github.Options{
			BaseURL:     cfg.GitHub.APIURL,
			Token:       cfg.GitHub.Token,
			AuthorName:  cfg.Publish.AuthorName,
			AuthorEmail: cfg.Publish.AuthorEmail,
			Timeout:     time.Duration(cfg.GitHub.TimeoutSeconds) * time.Second,
		},
		Local: localgit.Options{AuthorName: cfg.Publish.AuthorName, AuthorEmail: cfg.Publish.AuthorEmail},
	})

	loc := locator.New(parsers, cfg.Sync.FetchConcurrency, log)
	writer := translations.NewWriter(keyRepo, translationRepo)

	conflictSvc := conflicts.New(conflicts.Deps{
		Projects:           projectRepo,
		Translations:       translationRepo,
		Integrations:       integrationRepo,
		Locator:            loc,
		BuildSourceControl: scm.FromIntegration,
		Log:                log,
	})
	resolverSvc := resolver.New(projectRepo, writer, cfg.Sync.ApplyConcurrency, log)
	publishSvc := publisher.New(publisher.Deps{
		Projects:           projectRepo,
		Translations:       translationRepo,
		Integrations:       integrationRepo,
		History:            historyRepo,
		Locator:            loc,
		Exporters:          exporters,
		BuildSourceControl: scm.FromIntegration,
		Options: publisher.Options{
			BranchPrefix:  cfg.Publish.BranchPrefix,
			PRTitle:       cfg.Publish.PRTitle,
			CommitMessage: cfg.Publish.CommitMessage,
		},
		Log: log,
	})
	importSvc := importer.New(importer.Deps{
		Projects:           projectRepo,
		Languages:          languageRepo,
		Translations:       translationRepo,
		Integrations:       integrationRepo,
		History:            historyRepo,
		Writer:             writer,
		Locator:            loc,
		Parsers:            parsers,
		BuildSourceControl: scm.FromIntegration,
		Log:                log,
	})
	integrationSvc := integrations.New(projectRepo, integrationRepo, historyRepo, scm.FromIntegration, log)
	exportSvc := exporterusecase.New(languageRepo, translationRepo, exporters)

	return &App{
		db:           db,
		log:          log,
		Projects:     apiapp.NewProjectAPI(projectRepo, languageRepo),
		Translations: apiapp.NewTranslationsAPI(projectRepo, keyRepo, translationRepo, writer),
		Integrations: apiapp.NewIntegrationAPI(integrationSvc),
		Import:       apiapp.NewImportAPI(importSvc),
		Export:       apiapp.NewExportAPI(exportSvc),
		Sync:         apiapp.NewSyncAPI(conflictSvc, resolverSvc, publishSvc),
	}, nil
}

func (a *App) Close() error {
	return a.db.Close()
}

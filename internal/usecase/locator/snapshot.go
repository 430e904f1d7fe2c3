package locator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
	parreg "linguaflow/internal/adapters/parser/registry"
	"linguaflow/internal/domain"
	"linguaflow/internal/ports"
)

// File is one located translation file with its content and parsed entries.
type File struct {
	domain.FileDescriptor
	Content []byte
	Entries []domain.Entry
}

// Snapshot is the parsed state of a repository's translation files. Files
// that failed to parse are left out of Files and reported in Errors.
type Snapshot struct {
	Files  []File
	Errors []*domain.ParseError
}

type Service struct {
	Parsers     *parreg.Registry
	Concurrency int
	Log         *slog.Logger
}

func New(parsers *parreg.Registry, concurrency int, log *slog.Logger) *Service {
	if concurrency <= 0 {
		concurrency = 4
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{Parsers: parsers, Concurrency: concurrency, Log: log}
}

// Snapshot locates the files cfg points at, fetches them concurrently and
// parses each one. Files are returned in locate order.
func (s *Service) Snapshot(ctx context.Context, sc ports.SourceControl, cfg domain.RepoConfig) (*Snapshot, error) {
	files, err := Locate(ctx, sc, cfg.Repository, cfg.Branch, cfg.TranslationPath, cfg.FilePattern)
	if err != nil {
		return nil, err
	}
	contents, err := s.Fetch(ctx, sc, cfg.Repository, cfg.Branch, files)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{}
	for i, fd := range files {
		if contents[i] == nil {
			continue
		}
		entries, err := s.Parse(fd, contents[i])
		if err != nil {
			var pe *domain.ParseError
			if errors.As(err, &pe) {
				s.Log.Warn("skipping translation file", "path", fd.Path, "error", pe.Err)
				snap.Errors = append(snap.Errors, pe)
				continue
			}
			return nil, err
		}
		snap.Files = append(snap.Files, File{FileDescriptor: fd, Content: contents[i], Entries: entries})
	}
	s.Log.Debug("repository snapshot", "repository", cfg.Repository, "branch", cfg.Branch,
		"files", len(snap.Files), "errors", len(snap.Errors))
	return snap, nil
}

// Fetch downloads every file with at most Concurrency requests in flight.
// A file that vanished since it was listed gets a nil slot.
func (s *Service) Fetch(ctx context.Context, sc ports.SourceControl, repo, branch string, files []domain.FileDescriptor) ([][]byte, error) {
	out := make([][]byte, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Concurrency)
	for i, fd := range files {
		g.Go(func() error {
			b, err := sc.GetFileContent(gctx, repo, fd.Path, branch)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return nil
				}
				return remoteErr("get "+fd.Path, err)
			}
			if b == nil {
				b = []byte{}
			}
			out[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Parse runs the parser registered for the file's type.
func (s *Service) Parse(fd domain.FileDescriptor, content []byte) ([]domain.Entry, error) {
	p, ok := s.Parsers.Get(fd.Type)
	if !ok {
		return nil, &domain.ParseError{Path: fd.Path, Format: fd.Type, Err: fmt.Errorf("unsupported format %q", fd.Type)}
	}
	res, err := p.Parse(content)
	if err != nil {
		return nil, &domain.ParseError{Path: fd.Path, Format: fd.Type, Err: err}
	}
	return res.Entries, nil
}

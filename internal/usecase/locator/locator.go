// Package locator finds translation files in a remote repository and loads
// them into parsed snapshots.
package locator

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"linguaflow/internal/domain"
	"linguaflow/internal/ports"
)

// Locate walks dir depth-first from rootPath and returns every file whose name
// matches namePattern. An empty pattern selects the default extensions. A
// rootPath that does not exist yields no files.
func Locate(ctx context.Context, sc ports.SourceControl, repo, branch, rootPath, namePattern string) ([]domain.FileDescriptor, error) {
	namePattern = strings.TrimSpace(namePattern)
	if namePattern != "" && !doublestar.ValidatePattern(namePattern) {
		v := &domain.ValidationError{}
		v.Add("filePattern", fmt.Sprintf("invalid pattern %q", namePattern))
		return nil, v
	}
	root := strings.Trim(rootPath, "/")
	out := []domain.FileDescriptor{}
	if err := walk(ctx, sc, repo, branch, root, root, namePattern, &out); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return []domain.FileDescriptor{}, nil
		}
		return nil, err
	}
	return out, nil
}

func walk(ctx context.Context, sc ports.SourceControl, repo, branch, root, dir, pattern string, out *[]domain.FileDescriptor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := sc.ListDirectory(ctx, repo, branch, dir)
	if err != nil {
		return remoteErr("list "+displayDir(dir), err)
	}
	entries = slices.Clone(entries)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	for _, e := range entries {
		p := e.Path
		if p == "" {
			p = path.Join(dir, e.Name)
		}
		if e.IsDir {
			err := walk(ctx, sc, repo, branch, root, p, pattern, out)
			// a directory removed while walking is not fatal
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			continue
		}
		if matches(pattern, root, p, e.Name) {
			*out = append(*out, domain.FileDescriptor{Path: p, Name: e.Name, Type: domain.FileTypeFromName(e.Name)})
		}
	}
	return nil
}

func matches(pattern, root, p, name string) bool {
	if pattern == "" {
		ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
		return slices.Contains(domain.DefaultExtensions, ext)
	}
	target := name
	if strings.Contains(pattern, "/") {
		target = strings.TrimPrefix(strings.TrimPrefix(p, root), "/")
	}
	ok, _ := doublestar.Match(pattern, target)
	return ok
}

// remoteErr keeps ErrNotFound and typed remote errors as they are and wraps
// anything else as a RemoteAccessError.
func remoteErr(op string, err error) error {
	var rae *domain.RemoteAccessError
	if errors.Is(err, domain.ErrNotFound) || errors.As(err, &rae) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &domain.RemoteAccessError{Op: op, Err: err}
}

func displayDir(dir string) string {
	if dir == "" {
		return "/"
	}
	return dir
}

// CodeFromName is the language code a file name announces: the part before
// the first dot ("de.json", "pt-BR.messages.yaml").
func CodeFromName(name string) string {
	base := path.Base(name)
	code, _, _ := strings.Cut(base, ".")
	return strings.TrimSpace(code)
}

// LanguageFor maps a file path onto one of codes. The name prefix is tried
// first, then the whole stem, then the parent directory. Matching ignores case
// and treats '_' like '-'.
func LanguageFor(p string, codes []string) (string, bool) {
	base := path.Base(p)
	stem := strings.TrimSuffix(base, path.Ext(base))
	candidates := []string{CodeFromName(base), stem}
	if dir := path.Dir(p); dir != "." && dir != "/" {
		candidates = append(candidates, path.Base(dir))
	}
	for _, c := range candidates {
		nc := normalizeCode(c)
		if nc == "" {
			continue
		}
		for _, code := range codes {
			if normalizeCode(code) == nc {
				return code, true
			}
		}
	}
	return "", false
}

func normalizeCode(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
}

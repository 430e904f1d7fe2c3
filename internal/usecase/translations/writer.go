// Package translations is the single write path for translation content.
package translations

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"linguaflow/internal/domain"
	"linguaflow/internal/ports"
)

// Writer saves translation changes. Saves for the same (key, language) are
// serialized so version numbers stay gapless and ordered.
type Writer struct {
	Keys         ports.KeyRepository
	Translations ports.TranslationRepository

	mu    sync.Mutex
	locks map[lockKey]*keyLock
}

type lockKey struct{ keyID, languageID int64 }

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewWriter(keys ports.KeyRepository, trans ports.TranslationRepository) *Writer {
	return &Writer{Keys: keys, Translations: trans, locks: map[lockKey]*keyLock{}}
}

type SaveArgs struct {
	ProjectID   int64
	LanguageID  int64
	Key         string
	Content     string
	Status      string
	ChangedBy   string
	VersionName string
}

// Save ensures the key exists and writes the content. It reports whether
// anything changed.
func (w *Writer) Save(ctx context.Context, a SaveArgs) (*domain.Translation, bool, error) {
	if strings.TrimSpace(a.Key) == "" {
		return nil, false, fmt.Errorf("save translation: empty key")
	}
	k, err := w.Keys.Ensure(ctx, a.ProjectID, a.Key)
	if err != nil {
		return nil, false, fmt.Errorf("ensure key %q: %w", a.Key, err)
	}
	unlock := w.lock(lockKey{k.ID, a.LanguageID})
	defer unlock()
	t, changed, err := w.Translations.Save(ctx, domain.TranslationChange{
		ProjectID:   a.ProjectID,
		KeyID:       k.ID,
		LanguageID:  a.LanguageID,
		Content:     a.Content,
		Status:      a.Status,
		ChangedBy:   a.ChangedBy,
		VersionName: a.VersionName,
	})
	if err != nil {
		return nil, false, fmt.Errorf("save %q: %w", a.Key, err)
	}
	return t, changed, nil
}

// lock takes the mutex for k and returns its release. Entries are dropped
// once nobody holds or waits for them.
func (w *Writer) lock(k lockKey) func() {
	w.mu.Lock()
	l, ok := w.locks[k]
	if !ok {
		l = &keyLock{}
		w.locks[k] = l
	}
	l.refs++
	w.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		w.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(w.locks, k)
		}
		w.mu.Unlock()
	}
}

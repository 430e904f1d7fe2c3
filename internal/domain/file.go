package domain

import (
	"path"
	"strings"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatPO   = "po"
	FormatCSV  = "csv"
	FormatVDF  = "vdf"
)

// DefaultExtensions are the file extensions located when no name pattern is configured.
var DefaultExtensions = []string{"json", "yaml", "yml", "po"}

// FileDescriptor points at one translation file in a remote repository.
type FileDescriptor struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Entry is one parsed (key, value) pair. Position is the entry's index in its file.
type Entry struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Position int    `json:"position"`
}

// FileTypeFromName infers the file format from the extension. Unknown
// extensions are returned lowercased so callers can report them.
func FileTypeFromName(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	switch ext {
	case "yml", "yaml":
		return FormatYAML
	case "json":
		return FormatJSON
	case "po", "pot":
		return FormatPO
	}
	return ext
}

// ExtensionFor returns the preferred file extension for a format.
func ExtensionFor(format string) string {
	if format == "" {
		return FormatJSON
	}
	return format
}

// DedupeEntries collapses repeated keys: the last value wins and the entry
// keeps the slot of its first occurrence. Blank keys are dropped since they
// cannot be stored. Positions are renumbered from 0.
func DedupeEntries(raw []Entry) []Entry {
	index := make(map[string]int, len(raw))
	out := make([]Entry, 0, len(raw))
	for _, e := range raw {
		if strings.TrimSpace(e.Key) == "" {
			continue
		}
		if i, ok := index[e.Key]; ok {
			out[i].Value = e.Value
			continue
		}
		index[e.Key] = len(out)
		out = append(out, Entry{Key: e.Key, Value: e.Value, Position: len(out)})
	}
	return out
}

package locator

import "linguaflow/internal/domain"

// GroupByLanguage assigns located files to project languages. Files keep
// their path order inside a group.
func GroupByLanguage(files []File, langs []*domain.Language) (map[string][]File, []domain.FileDescriptor) {
	codes := make([]string, 0, len(langs))
	for _, l := range langs {
		codes = append(codes, l.Code)
	}
	groups := map[string][]File{}
	var unmatched []domain.FileDescriptor
	for _, f := range files {
		code, ok := LanguageFor(f.Path, codes)
		if !ok {
			unmatched = append(unmatched, f.FileDescriptor)
			continue
		}
		groups[code] = append(groups[code], f)
	}
	return groups, unmatched
}

// ConcatEntries joins the entries of several files of one language with
// positions continuing across files. Repeated keys are collapsed the same way
// a single file's duplicates are.
func ConcatEntries(files []File) []domain.Entry {
	var all []domain.Entry
	for _, f := range files {
		all = append(all, f.Entries...)
	}
	return domain.DedupeEntries(all)
}

package conflicts

import (
	"fmt"
	"sort"

	"linguaflow/internal/domain"
)

// Decisions are the user's resolutions by language code, then key.
type Decisions map[string]map[string]domain.Resolution

// BuildResolutions turns decisions into the entries to write. The whole batch
// is validated first and nothing is returned when any decision is invalid.
// Decisions that match no conflict are returned as ConflictStateErrors and
// otherwise ignored. Keeping the local side of a remote-only key, or the
// remote side of a local-only key, leaves the key as it is.
func BuildResolutions(conflicts map[string][]domain.Conflict, decisions Decisions) (map[string][]domain.ResolvedEntry, []error, error) {
	var v domain.ValidationError
	for _, code := range sortedCodes(decisions) {
		for _, key := range sortedKeys(decisions[code]) {
			r := decisions[code][key]
			field := fmt.Sprintf("resolutions.%s.%s", code, key)
			switch {
			case key == "":
				v.Add(fmt.Sprintf("resolutions.%s", code), "key must not be empty")
			case !r.Type.Valid():
				v.Add(field, fmt.Sprintf("unknown resolution type %q", r.Type))
			case r.Unresolved():
				v.Add(field, "manual value must not be empty")
			}
		}
	}
	if err := v.ErrOrNil(); err != nil {
		return nil, nil, err
	}

	out := map[string][]domain.ResolvedEntry{}
	var skipped []error
	for _, code := range sortedCodes(decisions) {
		byKey := map[string]domain.Conflict{}
		for _, c := range conflicts[code] {
			byKey[c.Key()] = c
		}
		for _, key := range sortedKeys(decisions[code]) {
			if _, ok := byKey[key]; !ok {
				skipped = append(skipped, &domain.ConflictStateError{Language: code, Key: key})
			}
		}
		for _, c := range conflicts[code] {
			r, ok := decisions[code][c.Key()]
			if !ok {
				continue
			}
			if e, write := resolve(c, r); write {
				out[code] = append(out[code], e)
			}
		}
	}
	return out, skipped, nil
}

func resolve(c domain.Conflict, r domain.Resolution) (domain.ResolvedEntry, bool) {
	e := domain.ResolvedEntry{Key: c.Key(), Type: r.Type}
	switch r.Type {
	case domain.ResolveLocal:
		if c.LinguaFlowValue == nil {
			return e, false
		}
		e.Value = *c.LinguaFlowValue
	case domain.ResolveRemote:
		if c.GithubValue == nil {
			return e, false
		}
		e.Value = *c.GithubValue
	case domain.ResolveManual:
		e.Value = r.ManualValue
	}
	return e, true
}

func sortedCodes(d Decisions) []string {
	out := make([]string, 0, len(d))
	for k := range d {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedKeys(m map[string]domain.Resolution) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

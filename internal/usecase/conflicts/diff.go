// Package conflicts compares local translations with remote translation files.
package conflicts

import (
	"sort"

	"linguaflow/internal/domain"
)

// Diff returns one conflict per key whose local and remote values differ,
// including keys present on one side only. local is in entry order. An empty
// string is a value like any other; only a missing key is absent. Remote keys
// keep their file position and local-only keys are numbered after the last
// remote position.
// The result is ordered by position, then key.
func Diff(local, remote []domain.Entry) []domain.Conflict {
	localVals := make(map[string]string, len(local))
	for _, e := range local {
		localVals[e.Key] = e.Value
	}
	remoteVals := make(map[string]string, len(remote))
	last := -1
	for _, e := range remote {
		remoteVals[e.Key] = e.Value
		if e.Position > last {
			last = e.Position
		}
	}

	var out []domain.Conflict
	seen := make(map[string]bool, len(remote))
	for _, e := range remote {
		if seen[e.Key] {
			continue
		}
		seen[e.Key] = true
		rv := remoteVals[e.Key]
		lv, ok := localVals[e.Key]
		switch {
		case !ok:
			out = append(out, domain.Conflict{GithubKey: ptr(e.Key), GithubValue: ptr(rv), Position: e.Position})
		case lv != rv:
			out = append(out, domain.Conflict{
				LinguaFlowKey: ptr(e.Key), LinguaFlowValue: ptr(lv),
				GithubKey: ptr(e.Key), GithubValue: ptr(rv),
				Position: e.Position,
			})
		}
	}
	next := last + 1
	for _, e := range local {
		lv, ok := localVals[e.Key]
		if !ok || seen[e.Key] {
			continue
		}
		seen[e.Key] = true
		out = append(out, domain.Conflict{LinguaFlowKey: ptr(e.Key), LinguaFlowValue: ptr(lv), Position: next})
		next++
	}
	Sort(out)
	return out
}

// Sort orders conflicts by position, ties by key.
func Sort(cs []domain.Conflict) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Position != cs[j].Position {
			return cs[i].Position < cs[j].Position
		}
		return cs[i].Key() < cs[j].Key()
	})
}

func ptr(s string) *string { return &s }

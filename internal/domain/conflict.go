package domain

import "strings"

// Conflict is a disagreement between the local value of a key and the
// remote file's value. A nil side means the key is absent there.
type Conflict struct {
	LinguaFlowKey   *string `json:"linguaFlowKey,omitempty"`
	LinguaFlowValue *string `json:"linguaFlowValue,omitempty"`
	GithubKey       *string `json:"githubKey,omitempty"`
	GithubValue     *string `json:"githubValue,omitempty"`
	Position        int     `json:"position"`
}

// Key returns the key the conflict is about, whichever side has it.
func (c Conflict) Key() string {
	if c.LinguaFlowKey != nil {
		return *c.LinguaFlowKey
	}
	if c.GithubKey != nil {
		return *c.GithubKey
	}
	return ""
}

type ResolutionType string

const (
	ResolveLocal  ResolutionType = "local"
	ResolveRemote ResolutionType = "remote"
	ResolveManual ResolutionType = "manual"
)

func (t ResolutionType) Valid() bool {
	switch t {
	case ResolveLocal, ResolveRemote, ResolveManual:
		return true
	}
	return false
}

type Resolution struct {
	Type        ResolutionType `json:"type" yaml:"type"`
	ManualValue string         `json:"manualValue,omitempty" yaml:"manualValue,omitempty"`
}

// Unresolved reports a manual resolution without a usable value.
func (r Resolution) Unresolved() bool {
	return r.Type == ResolveManual && strings.TrimSpace(r.ManualValue) == ""
}

// ResolvedEntry is the value chosen for one key in one language.
type ResolvedEntry struct {
	Key   string         `json:"key"`
	Value string         `json:"resolvedValue"`
	Type  ResolutionType `json:"type,omitempty"`
}

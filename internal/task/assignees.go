package task

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Assignees is the normalized responsible-party list. Upstream payloads are
// messy: a bare name, a list of names, or a wrapped object. All three shapes
// are accepted here at the JSON boundary and collapse to a flat list, so
// nothing past decoding ever branches on the raw shape.
type Assignees []string

// Single reports the one-assignee case.
func (a Assignees) Single() (string, bool) {
	if len(a) == 1 {
		return a[0], true
	}
	return "", false
}

func (a *Assignees) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = normalizeNames([]string{s})
		return nil
	}

	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*a = normalizeNames(list)
		return nil
	}

	// Wrapped object form: {"name": "..."} or {"names": [...]}.
	var obj struct {
		Name  string   `json:"name"`
		Names []string `json:"names"`
	}
	if err := json.Unmarshal(b, &obj); err == nil {
		if obj.Name != "" {
			*a = normalizeNames(append([]string{obj.Name}, obj.Names...))
		} else {
			*a = normalizeNames(obj.Names)
		}
		return nil
	}

	return fmt.Errorf("assignees: unsupported shape %s", string(b))
}

func (a Assignees) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(a))
}

func normalizeNames(in []string) Assignees {
	seen := map[string]struct{}{}
	out := make(Assignees, 0, len(in))
	for _, n := range in {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		key := strings.ToLower(n)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, n)
	}
	return out
}

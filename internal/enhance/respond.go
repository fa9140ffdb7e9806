package enhance

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/jobsift/jobsift/internal/model"
)

// stripFences removes a surrounding markdown code fence from a model
// response, with or without a language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// parseProfile decodes a single enhancement object.
func parseProfile(raw string) (*model.EnhancedProfile, error) {
	cleaned := stripFences(raw)
	var p model.EnhancedProfile
	if err := json.Unmarshal([]byte(cleaned), &p); err != nil {
		return nil, eris.Wrap(err, "enhance: decoding profile")
	}
	return &p, nil
}

// parseProfileArray decodes a batch response. A truncated response
// missing its trailing "]" is repaired once before giving up. The
// returned slice is positionally aligned with the batch: when every
// object carries a valid, distinct idx the profiles are reordered by
// it, otherwise response order is trusted as-is.
func parseProfileArray(raw string, want int) ([]*model.EnhancedProfile, error) {
	cleaned := stripFences(raw)

	var parsed []*model.EnhancedProfile
	err := json.Unmarshal([]byte(cleaned), &parsed)
	if err != nil && !strings.HasSuffix(cleaned, "]") {
		err = json.Unmarshal([]byte(cleaned+"]"), &parsed)
	}
	if err != nil {
		return nil, eris.Wrap(err, "enhance: decoding batch response")
	}
	if len(parsed) != want {
		return nil, eris.Errorf("enhance: batch response has %d objects, want %d", len(parsed), want)
	}

	if byIdx, ok := reorderByIdx(parsed, want); ok {
		return byIdx, nil
	}
	return parsed, nil
}

func reorderByIdx(parsed []*model.EnhancedProfile, want int) ([]*model.EnhancedProfile, bool) {
	out := make([]*model.EnhancedProfile, want)
	for _, p := range parsed {
		if p == nil || p.Idx == nil {
			return nil, false
		}
		i := *p.Idx
		if i < 0 || i >= want || out[i] != nil {
			return nil, false
		}
		out[i] = p
	}
	return out, true
}

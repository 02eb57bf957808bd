package allowlist

import (
	"context"
	"sort"
	"strings"
)

// Checker reports whether a business identifier is allowed.
type Checker interface {
	IsValidBusiness(ctx context.Context, businessID string) (bool, error)
}

// Business is one allow-list entry.
type Business struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
}

// StaticList is an immutable in-memory set of business ids.
type StaticList struct {
	ids map[string]struct{}
}

var _ Checker = &StaticList{}

// NewStaticList builds a set from ids. Blank ids are dropped, surrounding whitespace is trimmed.
func NewStaticList(ids ...string) *StaticList {
	s := &StaticList{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		s.ids[id] = struct{}{}
	}
	return s
}

func (s *StaticList) IsValidBusiness(_ context.Context, businessID string) (bool, error) {
	if s == nil {
		return false, nil
	}
	_, ok := s.ids[businessID]
	return ok, nil
}

func (s *StaticList) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// IDs returns the members in sorted order.
func (s *StaticList) IDs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

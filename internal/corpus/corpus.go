// Package corpus provides read-only access to the session records owned by
// the external document store. Raw document shapes are normalized here once;
// downstream components only ever see models.Session.
package corpus

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/ashahq/sessionscout/internal/models"
)

// ErrUnavailable is returned when the document store cannot be reached.
var ErrUnavailable = errors.New("session corpus unavailable")

// Corpus is the read interface supplied by the document-store collaborator.
// Results are snapshots; callers never mutate them.
type Corpus interface {
	// AllSessions returns every session record.
	AllSessions(ctx context.Context) ([]models.Session, error)

	// RecentSessions returns up to limit sessions, most recent first by
	// schedule start (falling back to creation time).
	RecentSessions(ctx context.Context, limit int) ([]models.Session, error)
}

// HostNames extracts the sorted set of unique host names from sessions.
// It is the gazetteer source for the query interpreter.
func HostNames(sessions []models.Session) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, s := range sessions {
		for _, name := range s.HostNames() {
			key := strings.ToLower(name)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// sortRecent orders sessions most recent first. Sessions without any
// timestamp sort last; ties keep their corpus order.
func sortRecent(sessions []models.Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		ti, tj := sessions[i].SortTime(), sessions[j].SortTime()
		if tj.IsZero() {
			return !ti.IsZero()
		}
		if ti.IsZero() {
			return false
		}
		return ti.After(tj)
	})
}

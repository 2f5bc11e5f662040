package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ashahq/sessionscout/internal/models"
)

// Memory is an in-process corpus, used for tests and for running against a
// local JSON export instead of MongoDB.
type Memory struct {
	sessions []models.Session
}

var _ Corpus = (*Memory)(nil)

// NewMemory wraps already-normalized sessions.
func NewMemory(sessions []models.Session) *Memory {
	return &Memory{sessions: sessions}
}

// LoadFile reads a JSON array of raw session documents (the platform export
// format) and normalizes it.
func LoadFile(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sessions file: %w", err)
	}

	var raws []rawSession
	if err := json.Unmarshal(data, &raws); err != nil {
		// Some exports wrap a single document instead of an array.
		var single rawSession
		if err2 := json.Unmarshal(data, &single); err2 != nil {
			return nil, fmt.Errorf("parse sessions file: %w", err)
		}
		raws = []rawSession{single}
	}

	sessions := make([]models.Session, 0, len(raws))
	for _, raw := range raws {
		sessions = append(sessions, normalize(raw))
	}
	return NewMemory(sessions), nil
}

// AllSessions returns a copy of the session slice.
func (m *Memory) AllSessions(_ context.Context) ([]models.Session, error) {
	out := make([]models.Session, len(m.sessions))
	copy(out, m.sessions)
	return out, nil
}

// RecentSessions returns up to limit sessions, most recent first.
func (m *Memory) RecentSessions(ctx context.Context, limit int) ([]models.Session, error) {
	sessions, err := m.AllSessions(ctx)
	if err != nil {
		return nil, err
	}
	sortRecent(sessions)
	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

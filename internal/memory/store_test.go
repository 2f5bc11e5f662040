package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashahq/sessionscout/internal/models"
)

func session(id, title string) models.Session {
	return models.Session{ID: id, Title: title}
}

func TestRecordResultsDiminishingRelevance(t *testing.T) {
	s := NewStore()
	s.RecordResults("u1", "leadership sessions", []models.Session{
		session("a", "Leadership Fundamentals"),
		session("b", "Leadership in Practice"),
		session("c", "Career Planning"),
	})

	recent := s.Recent("u1")
	require.Len(t, recent, 3)
	assert.Equal(t, "a", recent[0].Session.ID)
	assert.InDelta(t, 1.0, recent[0].Relevance, 1e-9)
	assert.InDelta(t, 0.85, recent[1].Relevance, 1e-9)
	assert.InDelta(t, 0.70, recent[2].Relevance, 1e-9)
}

func TestRelevanceFloor(t *testing.T) {
	s := NewStore()
	sessions := make([]models.Session, 10)
	for i := range sessions {
		sessions[i] = session(string(rune('a'+i)), "Session")
	}
	s.RecordResults("u1", "q", sessions)

	recent := s.Recent("u1")
	require.Len(t, recent, 10)
	assert.InDelta(t, 0.2, recent[9].Relevance, 1e-9)
}

func TestRecordShownMovesToFrontAndCountsMentions(t *testing.T) {
	s := NewStore()
	s.RecordResults("u1", "q", []models.Session{
		session("a", "First Shown"),
		session("b", "Second Shown"),
	})
	s.RecordShown("u1", session("b", "Second Shown"))

	recent := s.Recent("u1")
	require.Len(t, recent, 2)
	assert.Equal(t, "b", recent[0].Session.ID)
	assert.Equal(t, 2, recent[0].Mentions)
	assert.InDelta(t, 1.0, recent[0].Relevance, 1e-9)
}

func TestContextCapEvictsOldest(t *testing.T) {
	s := NewStore()
	for i := 0; i < DefaultMaxSessions+5; i++ {
		s.RecordShown("u1", session(string(rune('a'+i)), "Session"))
	}

	recent := s.Recent("u1")
	require.Len(t, recent, DefaultMaxSessions)
	// The earliest shown sessions fell off the back.
	assert.Equal(t, string(rune('a'+DefaultMaxSessions+4)), recent[0].Session.ID)
}

func TestIsFollowup(t *testing.T) {
	s := NewStore()
	assert.False(t, s.IsFollowup("u1", "tell me more about that"), "empty context is never a followup")

	s.RecordResults("u1", "q", []models.Session{session("a", "Salary Negotiation Workshop")})

	tests := []struct {
		utterance string
		want      bool
	}{
		{"tell me more about that", true},
		{"when is it?", true},
		{"who is hosting?", true},
		{"how long is that one", true},
		{"the first one", true},
		{"when is the salary negotiation workshop?", true},
		{"find sessions about leadership", false},
		{"thanks!", false},
	}
	for _, tt := range tests {
		t.Run(tt.utterance, func(t *testing.T) {
			assert.Equal(t, tt.want, s.IsFollowup("u1", tt.utterance))
		})
	}
}

func TestResolveReferencePrecedence(t *testing.T) {
	s := NewStore()
	s.RecordResults("u1", "q", []models.Session{
		session("top", "Leadership Fundamentals"),
		session("mid", "Salary Negotiation Workshop"),
		session("old", "Career Planning"),
	})

	t.Run("title fragment wins over ordinals", func(t *testing.T) {
		got, ok := s.ResolveReference("u1", "when is the first career planning session?")
		require.True(t, ok)
		assert.Equal(t, "old", got.ID)
	})

	t.Run("last points at most recent", func(t *testing.T) {
		got, ok := s.ResolveReference("u1", "the last one")
		require.True(t, ok)
		assert.Equal(t, "top", got.ID)
	})

	t.Run("first points at earliest shown", func(t *testing.T) {
		got, ok := s.ResolveReference("u1", "who hosts the first one?")
		require.True(t, ok)
		assert.Equal(t, "old", got.ID)
	})

	t.Run("second points at second shown", func(t *testing.T) {
		got, ok := s.ResolveReference("u1", "the second one")
		require.True(t, ok)
		assert.Equal(t, "mid", got.ID)
	})

	t.Run("deictic points at most recent", func(t *testing.T) {
		got, ok := s.ResolveReference("u1", "when is it?")
		require.True(t, ok)
		assert.Equal(t, "top", got.ID)
	})

	t.Run("no reference", func(t *testing.T) {
		_, ok := s.ResolveReference("u1", "show me something new")
		assert.False(t, ok)
	})
}

func TestResolveReferenceEmptyContext(t *testing.T) {
	s := NewStore()
	_, ok := s.ResolveReference("nobody", "when is it?")
	assert.False(t, ok)
}

func TestTTLExpiry(t *testing.T) {
	now := time.Date(2023, time.June, 15, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	s := NewStore(WithClock(clock))

	s.RecordShown("u1", session("a", "Leadership Fundamentals"))
	assert.Len(t, s.Recent("u1"), 1)

	now = now.Add(DefaultTTL + time.Minute)
	assert.Empty(t, s.Recent("u1"))
	assert.False(t, s.IsFollowup("u1", "tell me more"))
}

func TestPurgeExpired(t *testing.T) {
	now := time.Date(2023, time.June, 15, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	s := NewStore(WithClock(clock))

	s.RecordShown("stale", session("a", "Old Session"))
	now = now.Add(30 * time.Minute)
	s.RecordShown("fresh", session("b", "New Session"))
	now = now.Add(45 * time.Minute)

	assert.Equal(t, 1, s.PurgeExpired())
	assert.Empty(t, s.Recent("stale"))
	assert.Len(t, s.Recent("fresh"), 1)
}

func TestQueriesHistoryBounded(t *testing.T) {
	s := NewStore()
	for i := 0; i < maxQueryHistory+3; i++ {
		s.RecordResults("u1", "query", []models.Session{session("a", "Session")})
	}
	assert.Len(t, s.Queries("u1"), maxQueryHistory)
}

func TestReset(t *testing.T) {
	s := NewStore()
	s.RecordShown("u1", session("a", "Session"))
	s.Reset("u1")
	assert.Empty(t, s.Recent("u1"))
}

// Package memory keeps short-lived per-user conversation context so that
// followup questions like "when is that one?" can be resolved against the
// sessions a user was just shown.
package memory

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/ashahq/sessionscout/internal/models"
)

const (
	// DefaultMaxSessions bounds how many sessions a user context remembers.
	DefaultMaxSessions = 20
	// DefaultTTL is how long an idle user context survives.
	DefaultTTL = time.Hour

	maxQueryHistory = 20

	topRelevance   = 1.0
	relevanceStep  = 0.15
	relevanceFloor = 0.2

	// minTitleFragment is the shortest title substring accepted as a
	// reference; shorter fragments produce too many false positives.
	minTitleFragment = 6
)

// followupPatterns recognize utterances that only make sense relative to
// sessions already shown.
var followupPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\btell me more\b`),
	regexp.MustCompile(`\bmore (?:about|details?|info(?:rmation)?)\b`),
	regexp.MustCompile(`\bwh(?:en|o|ere|at time)\b.*\b(?:it|that|this|one)\b`),
	regexp.MustCompile(`\bwho(?:'s| is| was)? (?:the )?host(?:ing)?\b`),
	regexp.MustCompile(`\bhow long\b`),
	regexp.MustCompile(`\b(?:the )?(?:first|second|last|latest) one\b`),
	regexp.MustCompile(`\bthat (?:session|workshop|event|one)\b`),
	regexp.MustCompile(`\bthis (?:session|workshop|event|one)\b`),
	regexp.MustCompile(`\b(?:link|url|recording) (?:for|to|of)\b`),
	regexp.MustCompile(`^(?:it|that|this)\b`),
}

// deicticPattern matches bare pointers at the most recent session.
var deicticPattern = regexp.MustCompile(`\b(?:it|that|this|that one|this one)\b`)

// Remembered is one session in a user's context window.
type Remembered struct {
	Session   models.Session
	Relevance float64
	Mentions  int
	LastSeen  time.Time
}

// userContext holds everything remembered for one user. sessions is ordered
// most recently shown first.
type userContext struct {
	sessions   []*Remembered
	queries    []string
	lastActive time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLimits overrides the per-user session cap and the idle TTL.
func WithLimits(maxSessions int, ttl time.Duration) Option {
	return func(s *Store) {
		s.maxSessions = maxSessions
		s.ttl = ttl
	}
}

// WithClock injects the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is a thread-safe in-memory conversation context store keyed by
// user ID. Contexts expire after the idle TTL and are dropped by
// PurgeExpired or the purge loop.
type Store struct {
	mu          sync.Mutex
	users       map[string]*userContext
	maxSessions int
	ttl         time.Duration
	now         func() time.Time
}

// NewStore creates an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		users:       make(map[string]*userContext),
		maxSessions: DefaultMaxSessions,
		ttl:         DefaultTTL,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// touch returns the user's context, creating it if needed, and refreshes
// its activity stamp. Callers must hold s.mu.
func (s *Store) touch(userID string) *userContext {
	uc, ok := s.users[userID]
	if !ok {
		uc = &userContext{}
		s.users[userID] = uc
	}
	uc.lastActive = s.now()
	return uc
}

// RecordShown notes that one session was surfaced to the user, moving it to
// the front of the context with full relevance.
func (s *Store) RecordShown(userID string, session models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uc := s.touch(userID)
	s.upsert(uc, session, topRelevance)
}

// RecordResults notes a result page shown for a query. Relevance diminishes
// down the page so later references prefer the top results.
func (s *Store) RecordResults(userID, query string, sessions []models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uc := s.touch(userID)

	if query = strings.TrimSpace(query); query != "" {
		uc.queries = append(uc.queries, query)
		if len(uc.queries) > maxQueryHistory {
			uc.queries = uc.queries[len(uc.queries)-maxQueryHistory:]
		}
	}

	// Walk backwards so the top result ends up at the front.
	for i := len(sessions) - 1; i >= 0; i-- {
		relevance := topRelevance - relevanceStep*float64(i)
		if relevance < relevanceFloor {
			relevance = relevanceFloor
		}
		s.upsert(uc, sessions[i], relevance)
	}
}

// upsert moves the session to the front. An already remembered session
// keeps its higher relevance and gains a mention. Callers must hold s.mu.
func (s *Store) upsert(uc *userContext, session models.Session, relevance float64) {
	for i, r := range uc.sessions {
		if r.Session.ID == session.ID {
			if relevance > r.Relevance {
				r.Relevance = relevance
			}
			r.Mentions++
			r.LastSeen = s.now()
			uc.sessions = append(uc.sessions[:i], uc.sessions[i+1:]...)
			uc.sessions = append([]*Remembered{r}, uc.sessions...)
			return
		}
	}

	r := &Remembered{Session: session, Relevance: relevance, Mentions: 1, LastSeen: s.now()}
	uc.sessions = append([]*Remembered{r}, uc.sessions...)
	if len(uc.sessions) > s.maxSessions {
		uc.sessions = uc.sessions[:s.maxSessions]
	}
}

// IsFollowup reports whether the utterance refers back to sessions already
// in the user's context. Always false for users with empty context.
func (s *Store) IsFollowup(userID, utterance string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	uc := s.live(userID)
	if uc == nil || len(uc.sessions) == 0 {
		return false
	}

	query := strings.ToLower(strings.TrimSpace(utterance))
	for _, p := range followupPatterns {
		if p.MatchString(query) {
			return true
		}
	}
	return s.byTitleFragment(uc, query) != nil
}

// ResolveReference maps a followup utterance to the session it points at.
// Precedence: title fragment, "last"/"latest", "first", "second", then a
// bare deictic pointer at the most recent session.
func (s *Store) ResolveReference(userID, utterance string) (models.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	uc := s.live(userID)
	if uc == nil || len(uc.sessions) == 0 {
		return models.Session{}, false
	}
	uc.lastActive = s.now()

	query := strings.ToLower(strings.TrimSpace(utterance))

	if r := s.byTitleFragment(uc, query); r != nil {
		return r.Session, true
	}

	n := len(uc.sessions)
	switch {
	case strings.Contains(query, "last") || strings.Contains(query, "latest"):
		return uc.sessions[0].Session, true
	case strings.Contains(query, "first"):
		return uc.sessions[n-1].Session, true
	case strings.Contains(query, "second") && n > 1:
		return uc.sessions[n-2].Session, true
	}

	if deicticPattern.MatchString(query) {
		return uc.sessions[0].Session, true
	}
	return models.Session{}, false
}

// byTitleFragment finds the remembered session whose title shares the
// longest usable fragment with the utterance. Callers must hold s.mu.
func (s *Store) byTitleFragment(uc *userContext, query string) *Remembered {
	var best *Remembered
	bestLen := 0
	for _, r := range uc.sessions {
		title := strings.ToLower(r.Session.Title)
		if title == "" {
			continue
		}
		if len(title) >= minTitleFragment && strings.Contains(query, title) {
			if len(title) > bestLen {
				best, bestLen = r, len(title)
			}
			continue
		}
		// Partial overlap: any run of words from the title appearing
		// verbatim in the utterance.
		if frag := longestWordRun(title, query); len(frag) >= minTitleFragment && len(frag) > bestLen {
			best, bestLen = r, len(frag)
		}
	}
	return best
}

// longestWordRun returns the longest contiguous word sequence of title that
// occurs in query.
func longestWordRun(title, query string) string {
	words := strings.Fields(title)
	best := ""
	for i := range words {
		for j := len(words); j > i; j-- {
			frag := strings.Join(words[i:j], " ")
			if len(frag) <= len(best) {
				break
			}
			if strings.Contains(query, frag) {
				if len(frag) > len(best) {
					best = frag
				}
				break
			}
		}
	}
	return best
}

// Recent returns the user's remembered sessions, most recent first.
func (s *Store) Recent(userID string) []Remembered {
	s.mu.Lock()
	defer s.mu.Unlock()

	uc := s.live(userID)
	if uc == nil {
		return nil
	}
	out := make([]Remembered, len(uc.sessions))
	for i, r := range uc.sessions {
		out[i] = *r
	}
	return out
}

// Queries returns the user's recorded query history, oldest first.
func (s *Store) Queries(userID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	uc := s.live(userID)
	if uc == nil {
		return nil
	}
	out := make([]string, len(uc.queries))
	copy(out, uc.queries)
	return out
}

// Reset forgets everything about one user.
func (s *Store) Reset(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, userID)
}

// live returns the user's context unless it has expired. Expired contexts
// are removed on sight. Callers must hold s.mu.
func (s *Store) live(userID string) *userContext {
	uc, ok := s.users[userID]
	if !ok {
		return nil
	}
	if s.now().Sub(uc.lastActive) > s.ttl {
		delete(s.users, userID)
		return nil
	}
	return uc
}

// PurgeExpired drops every context idle longer than the TTL and returns
// how many were removed.
func (s *Store) PurgeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	cutoff := s.now().Add(-s.ttl)
	for id, uc := range s.users {
		if uc.lastActive.Before(cutoff) {
			delete(s.users, id)
			removed++
		}
	}
	return removed
}

// StartPurgeLoop purges expired contexts every interval until ctx is done.
func (s *Store) StartPurgeLoop(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.PurgeExpired()
			}
		}
	}()
}

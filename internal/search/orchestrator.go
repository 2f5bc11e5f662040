// Package search combines structured filtering over the session corpus with
// semantic retrieval from the embedding index and ranks the merged results.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/ashahq/sessionscout/internal/corpus"
	"github.com/ashahq/sessionscout/internal/index"
	"github.com/ashahq/sessionscout/internal/models"
)

// DefaultMaxResults caps a result page when the caller does not say otherwise.
const DefaultMaxResults = 5

// Keyword weights by field. Title matches count most.
const (
	titleWeight       = 3
	descriptionWeight = 2
	topicWeight       = 1
)

// VectorSearcher is the slice of the embedding index the orchestrator needs.
type VectorSearcher interface {
	Search(ctx context.Context, query string, k int) ([]index.Hit, error)
	Available() bool
}

// Result is one page of ranked sessions plus the true match count before
// the page cap was applied.
type Result struct {
	Sessions []models.Session
	Total    int
}

// Orchestrator runs structured and semantic retrieval and merges them.
type Orchestrator struct {
	corpus corpus.Corpus
	index  VectorSearcher
	logger *slog.Logger
}

// New creates an Orchestrator. index may be nil when no embedding backend
// is configured; searches then run keyword-only.
func New(c corpus.Corpus, ix VectorSearcher, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{corpus: c, index: ix, logger: logger}
}

// Search applies the filter to the corpus, supplements with semantic hits
// for the free-text query when the index is available, and returns the top
// maxResults sessions with the total match count. An empty corpus yields an
// empty result, not an error.
func (o *Orchestrator) Search(ctx context.Context, filter models.SearchFilter, freeText string, maxResults int) (Result, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	// No criteria at all means nothing to match against; the caller asks
	// for clarification instead of dumping the corpus.
	if filter.IsEmpty() && strings.TrimSpace(freeText) == "" {
		return Result{}, nil
	}

	sessions, err := o.corpus.AllSessions(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load sessions: %w", err)
	}
	if len(sessions) == 0 {
		return Result{}, nil
	}

	if filter.ReturnAll {
		return o.allRecent(sessions, maxResults), nil
	}

	matched := make([]scored, 0, len(sessions))
	byID := make(map[string]int, len(sessions))
	for _, s := range sessions {
		if !matchesHard(s, filter) {
			continue
		}
		kw := keywordScore(s, filter)
		if hasKeywordTerms(filter) && kw == 0 {
			continue
		}
		byID[s.ID] = len(matched)
		matched = append(matched, scored{session: s, keyword: kw, distance: math.Inf(1)})
	}

	o.supplementSemantic(ctx, sessions, filter, freeText, maxResults, &matched, byID)

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.keyword != b.keyword {
			return a.keyword > b.keyword
		}
		if a.distance != b.distance {
			return a.distance < b.distance
		}
		return a.session.SortTime().After(b.session.SortTime())
	})

	result := Result{Total: len(matched)}
	for i, m := range matched {
		if i == maxResults {
			break
		}
		result.Sessions = append(result.Sessions, m.session)
	}
	return result, nil
}

type scored struct {
	session  models.Session
	keyword  int
	distance float64
}

// supplementSemantic folds index hits for the free-text query into matched,
// keeping only hits that satisfy the filter's hard constraints. Already
// matched sessions pick up their semantic distance; new ones join with a
// zero keyword score, and only when the keyword side came up sparse, so a
// fully-specified query is not padded with strays. Index failures degrade
// to keyword-only.
func (o *Orchestrator) supplementSemantic(ctx context.Context, sessions []models.Session, filter models.SearchFilter, freeText string, maxResults int, matched *[]scored, byID map[string]int) {
	if o.index == nil || !o.index.Available() || strings.TrimSpace(freeText) == "" {
		return
	}
	admitNew := !hasKeywordTerms(filter) || len(*matched) < maxResults

	hits, err := o.index.Search(ctx, freeText, maxResults*2)
	if err != nil {
		o.logger.Warn("semantic search unavailable, keyword results only", slog.Any("error", err))
		return
	}

	sessionByID := make(map[string]models.Session, len(sessions))
	for _, s := range sessions {
		sessionByID[s.ID] = s
	}

	for _, hit := range hits {
		if i, ok := byID[hit.SessionID]; ok {
			if d := float64(hit.Distance); d < (*matched)[i].distance {
				(*matched)[i].distance = d
			}
			continue
		}
		s, ok := sessionByID[hit.SessionID]
		if !ok || !admitNew || !matchesHard(s, filter) {
			continue
		}
		byID[s.ID] = len(*matched)
		*matched = append(*matched, scored{session: s, distance: float64(hit.Distance)})
	}
}

// allRecent serves ReturnAll filters: every session, most recent first.
func (o *Orchestrator) allRecent(sessions []models.Session, maxResults int) Result {
	ordered := make([]models.Session, len(sessions))
	copy(ordered, sessions)
	sort.SliceStable(ordered, func(i, j int) bool {
		ti, tj := ordered[i].SortTime(), ordered[j].SortTime()
		if ti.IsZero() != tj.IsZero() {
			return tj.IsZero()
		}
		return ti.After(tj)
	})
	result := Result{Total: len(ordered)}
	if len(ordered) > maxResults {
		ordered = ordered[:maxResults]
	}
	result.Sessions = ordered
	return result
}

// matchesHard checks the filter dimensions that semantic hits must also
// satisfy: host and date bounds. Date bounds are inclusive; sessions with
// no schedule never match a date-bounded filter.
func matchesHard(s models.Session, filter models.SearchFilter) bool {
	if filter.HostName != "" && !matchesHost(s, filter.HostName) {
		return false
	}
	if filter.HasDateBound() {
		if s.Schedule == nil || s.Schedule.StartTime.IsZero() {
			return false
		}
		start := s.Schedule.StartTime
		if filter.StartDate != nil && start.Before(*filter.StartDate) {
			return false
		}
		if filter.EndDate != nil && start.After(*filter.EndDate) {
			return false
		}
	}
	return true
}

func matchesHost(s models.Session, want string) bool {
	want = strings.ToLower(want)
	for _, name := range s.HostNames() {
		name = strings.ToLower(name)
		if strings.Contains(name, want) || strings.Contains(want, name) {
			return true
		}
	}
	return false
}

func hasKeywordTerms(filter models.SearchFilter) bool {
	return filter.TitleTerms != "" || filter.DescriptionTerms != ""
}

// keywordScore sums field-weighted term occurrences. Each term that appears
// in the title counts 3, in the description 2, in a topic tag 1.
func keywordScore(s models.Session, filter models.SearchFilter) int {
	title := strings.ToLower(s.Title)
	description := strings.ToLower(s.Description)

	score := 0
	for _, term := range splitTerms(filter.TitleTerms) {
		if strings.Contains(title, term) {
			score += titleWeight
		}
	}
	for _, term := range splitTerms(filter.DescriptionTerms) {
		if strings.Contains(description, term) {
			score += descriptionWeight
		}
		for _, topic := range s.Topics {
			if strings.Contains(strings.ToLower(topic), term) {
				score += topicWeight
				break
			}
		}
	}
	return score
}

func splitTerms(terms string) []string {
	return strings.Fields(strings.ToLower(terms))
}

package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashahq/sessionscout/internal/corpus"
	"github.com/ashahq/sessionscout/internal/index"
	"github.com/ashahq/sessionscout/internal/models"
)

type fakeIndex struct {
	hits      []index.Hit
	err       error
	available bool
}

func (f *fakeIndex) Search(_ context.Context, _ string, k int) ([]index.Hit, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.hits) > k {
		return f.hits[:k], nil
	}
	return f.hits, nil
}

func (f *fakeIndex) Available() bool { return f.available }

func day(d int) time.Time {
	return time.Date(2023, time.June, d, 9, 0, 0, 0, time.UTC)
}

func scheduled(id, title, host string, start time.Time) models.Session {
	return models.Session{
		ID:       id,
		Title:    title,
		Hosts:    []models.Host{{Name: host}},
		Schedule: &models.Schedule{StartTime: start, DurationMinutes: 60},
	}
}

func testSessions() []models.Session {
	return []models.Session{
		scheduled("s1", "Leadership Fundamentals", "Marissa Johnson", day(5)),
		scheduled("s2", "Salary Negotiation Workshop", "Priya Sharma", day(12)),
		scheduled("s3", "Leadership in Practice", "Marissa Johnson", day(20)),
		{
			ID:          "s4",
			Title:       "Career Planning",
			Description: "Covers leadership growth and planning your next role.",
			Hosts:       []models.Host{{Name: "David Chen"}},
			Topics:      []string{"leadership"},
		},
	}
}

func newOrchestrator(ix VectorSearcher) *Orchestrator {
	return New(corpus.NewMemory(testSessions()), ix, nil)
}

func TestSearchByHost(t *testing.T) {
	o := newOrchestrator(nil)

	res, err := o.Search(context.Background(), models.SearchFilter{HostName: "Marissa Johnson"}, "", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	ids := sessionIDs(res.Sessions)
	assert.ElementsMatch(t, []string{"s1", "s3"}, ids)
}

func TestSearchPartialHostMatches(t *testing.T) {
	o := newOrchestrator(nil)

	res, err := o.Search(context.Background(), models.SearchFilter{HostName: "marissa"}, "", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
}

func TestSearchDateBoundsExcludeUnscheduled(t *testing.T) {
	o := newOrchestrator(nil)
	start, end := day(1), day(15)

	res, err := o.Search(context.Background(), models.SearchFilter{StartDate: &start, EndDate: &end}, "", 5)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s1", "s2"}, sessionIDs(res.Sessions))
}

func TestSearchDateBoundsInclusive(t *testing.T) {
	o := newOrchestrator(nil)
	start := day(12)
	end := day(12)

	res, err := o.Search(context.Background(), models.SearchFilter{StartDate: &start, EndDate: &end}, "", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, sessionIDs(res.Sessions))
}

func TestSearchConjunction(t *testing.T) {
	o := newOrchestrator(nil)
	start, end := day(1), day(30)

	filter := models.SearchFilter{
		HostName:         "Marissa Johnson",
		StartDate:        &start,
		EndDate:          &end,
		TitleTerms:       "leadership",
		DescriptionTerms: "leadership",
	}
	res, err := o.Search(context.Background(), filter, "leadership", 5)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s1", "s3"}, sessionIDs(res.Sessions))
}

func TestSearchKeywordRankingPrefersTitle(t *testing.T) {
	o := newOrchestrator(nil)

	filter := models.SearchFilter{TitleTerms: "leadership", DescriptionTerms: "leadership"}
	res, err := o.Search(context.Background(), filter, "leadership", 5)
	require.NoError(t, err)
	require.Len(t, res.Sessions, 3)
	// The unscheduled session sorts behind the dated ones.
	assert.Equal(t, "s4", res.Sessions[2].ID)
}

func TestSearchSemanticSupplement(t *testing.T) {
	ix := &fakeIndex{
		available: true,
		hits:      []index.Hit{{SessionID: "s2", Distance: 0.1}, {SessionID: "s1", Distance: 0.4}},
	}
	o := newOrchestrator(ix)

	filter := models.SearchFilter{TitleTerms: "negotiation", DescriptionTerms: "negotiation"}
	res, err := o.Search(context.Background(), filter, "how to ask for a raise", 5)
	require.NoError(t, err)
	// s2 matches keywords, s1 arrives via the index; no duplicates.
	assert.Equal(t, []string{"s2", "s1"}, sessionIDs(res.Sessions))
	assert.Equal(t, 2, res.Total)
}

func TestSearchEmptyFilterReturnsNothing(t *testing.T) {
	o := newOrchestrator(nil)

	res, err := o.Search(context.Background(), models.SearchFilter{}, "", 5)
	require.NoError(t, err)
	assert.Empty(t, res.Sessions)
	assert.Zero(t, res.Total)
}

func TestSearchNoSemanticStraysWhenKeywordsSuffice(t *testing.T) {
	ix := &fakeIndex{
		available: true,
		hits:      []index.Hit{{SessionID: "s2", Distance: 0.1}},
	}
	o := newOrchestrator(ix)

	filter := models.SearchFilter{TitleTerms: "leadership", DescriptionTerms: "leadership"}
	res, err := o.Search(context.Background(), filter, "leadership sessions", 1)
	require.NoError(t, err)
	// Three keyword matches already exceed the cap, so the index hit for
	// s2 must not pad the total.
	assert.Equal(t, 3, res.Total)
	assert.NotContains(t, sessionIDs(res.Sessions), "s2")
}

func TestSearchIndexFailureDegradesToKeyword(t *testing.T) {
	ix := &fakeIndex{available: true, err: errors.New("embedder down")}
	o := newOrchestrator(ix)

	filter := models.SearchFilter{TitleTerms: "negotiation", DescriptionTerms: "negotiation"}
	res, err := o.Search(context.Background(), filter, "negotiation", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, sessionIDs(res.Sessions))
}

func TestSearchReturnAll(t *testing.T) {
	o := newOrchestrator(nil)

	res, err := o.Search(context.Background(), models.SearchFilter{ReturnAll: true}, "", 2)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Total)
	// Most recent scheduled sessions first, cap applied.
	assert.Equal(t, []string{"s3", "s2"}, sessionIDs(res.Sessions))
}

func TestSearchCapAndTotal(t *testing.T) {
	o := newOrchestrator(nil)

	filter := models.SearchFilter{TitleTerms: "leadership", DescriptionTerms: "leadership"}
	res, err := o.Search(context.Background(), filter, "", 2)
	require.NoError(t, err)
	assert.Len(t, res.Sessions, 2)
	assert.Equal(t, 3, res.Total)
}

func TestSearchEmptyCorpus(t *testing.T) {
	o := New(corpus.NewMemory(nil), nil, nil)

	res, err := o.Search(context.Background(), models.SearchFilter{ReturnAll: true}, "", 5)
	require.NoError(t, err)
	assert.Empty(t, res.Sessions)
	assert.Zero(t, res.Total)
}

func sessionIDs(sessions []models.Session) []string {
	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.ID
	}
	return ids
}

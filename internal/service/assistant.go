// Package service wires the corpus, index, interpreter, context store, and
// formatter into the conversational session discovery flow.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ashahq/sessionscout/internal/corpus"
	"github.com/ashahq/sessionscout/internal/format"
	"github.com/ashahq/sessionscout/internal/interpreter"
	"github.com/ashahq/sessionscout/internal/memory"
	"github.com/ashahq/sessionscout/internal/metrics"
	"github.com/ashahq/sessionscout/internal/models"
	"github.com/ashahq/sessionscout/internal/search"
)

// Kind classifies a Response for the caller.
type Kind string

const (
	// KindSearch is a result page for a fresh search.
	KindSearch Kind = "search"
	// KindFollowup answers a reference to an earlier result.
	KindFollowup Kind = "followup"
	// KindClarify asks the user for usable criteria.
	KindClarify Kind = "clarify"
	// KindEmpty reports a search that matched nothing.
	KindEmpty Kind = "empty"
)

// Response is the assistant's answer to one utterance.
type Response struct {
	Text     string
	Sessions []models.Session
	Kind     Kind
}

// Indexer is the slice of the embedding index the assistant drives.
type Indexer interface {
	search.VectorSearcher
	Build(ctx context.Context, sessions []models.Session) error
}

// Options configures an Assistant.
type Options struct {
	// MaxResults caps a result page. Zero means search.DefaultMaxResults.
	MaxResults int
	// RebuildInterval is how often the background loop refreshes the
	// index and the host gazetteer. Zero disables the loop.
	RebuildInterval time.Duration
	// ContextPurgeInterval is how often expired user contexts are
	// dropped. Zero disables the purge loop.
	ContextPurgeInterval time.Duration
	// Metrics collects query timings and outcome counts when set.
	Metrics *metrics.Collector
	Logger  *slog.Logger
}

// Assistant is the session discovery engine behind the chat surface.
type Assistant struct {
	corpus    corpus.Corpus
	index     Indexer
	store     *memory.Store
	formatter *format.Formatter
	searcher  *search.Orchestrator
	interp    atomic.Pointer[interpreter.Interpreter]
	opts      Options
	logger    *slog.Logger
	cancel    context.CancelFunc
}

// NewAssistant assembles an Assistant. index may be nil when no embedding
// backend is configured.
func NewAssistant(c corpus.Corpus, ix Indexer, store *memory.Store, opts Options) *Assistant {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	a := &Assistant{
		corpus:    c,
		index:     ix,
		store:     store,
		formatter: format.New(),
		opts:      opts,
		logger:    opts.Logger,
	}
	var vs search.VectorSearcher
	if ix != nil {
		vs = ix
	}
	a.searcher = search.New(c, vs, opts.Logger)
	a.interp.Store(interpreter.New(nil))
	return a
}

// Init loads the corpus, builds the host gazetteer, and starts the
// background index build and maintenance loops. The assistant answers
// keyword-only until the first index build lands.
func (a *Assistant) Init(ctx context.Context) error {
	start := time.Now()
	sessions, err := a.corpus.AllSessions(ctx)
	if err != nil {
		return fmt.Errorf("init corpus: %w", err)
	}
	a.recordTiming(metrics.OpCorpusLoad, start)
	a.interp.Store(interpreter.New(corpus.HostNames(sessions)))
	a.logger.Info("assistant initialized",
		slog.Int("sessions", len(sessions)),
		slog.Bool("semantic", a.index != nil))

	loopCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.index != nil {
		go a.buildIndex(loopCtx, sessions)
		if a.opts.RebuildInterval > 0 {
			go a.rebuildLoop(loopCtx)
		}
	}
	if a.opts.ContextPurgeInterval > 0 {
		a.store.StartPurgeLoop(loopCtx, a.opts.ContextPurgeInterval)
	}
	return nil
}

// Shutdown stops the background loops.
func (a *Assistant) Shutdown() {
	if a.cancel != nil {
		a.cancel()
	}
}

func (a *Assistant) buildIndex(ctx context.Context, sessions []models.Session) {
	start := time.Now()
	if err := a.index.Build(ctx, sessions); err != nil {
		a.logger.Warn("index build failed, semantic search disabled until next rebuild",
			slog.Any("error", err))
		return
	}
	a.recordTiming(metrics.OpIndexBuild, start)
}

func (a *Assistant) rebuildLoop(ctx context.Context) {
	ticker := time.NewTicker(a.opts.RebuildInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.Rebuild(ctx); err != nil {
				a.logger.Warn("scheduled rebuild failed", slog.Any("error", err))
			}
		}
	}
}

// Rebuild reloads the corpus, refreshes the host gazetteer, and rebuilds
// the index when one is configured.
func (a *Assistant) Rebuild(ctx context.Context) error {
	sessions, err := a.corpus.AllSessions(ctx)
	if err != nil {
		return fmt.Errorf("reload corpus: %w", err)
	}
	a.interp.Store(interpreter.New(corpus.HostNames(sessions)))
	if a.index == nil {
		return nil
	}
	return a.index.Build(ctx, sessions)
}

// IsSearchQuery reports whether the utterance should be routed to the
// assistant at all: either a fresh search or a followup for this user.
func (a *Assistant) IsSearchQuery(userID, utterance string) bool {
	return a.store.IsFollowup(userID, utterance) || a.interp.Load().IsSearchIntent(utterance)
}

// HandleQuery answers one utterance. Followups resolve against the user's
// context; everything else is interpreted and searched, and the shown
// results are recorded for later references.
func (a *Assistant) HandleQuery(ctx context.Context, userID, utterance string) (Response, error) {
	resp, err := a.handleQuery(ctx, userID, utterance)
	if err == nil && a.opts.Metrics != nil {
		a.opts.Metrics.RecordOutcome(string(resp.Kind))
	}
	return resp, err
}

func (a *Assistant) handleQuery(ctx context.Context, userID, utterance string) (Response, error) {
	if a.store.IsFollowup(userID, utterance) {
		if resp, ok := a.handleFollowup(userID, utterance); ok {
			return resp, nil
		}
	}

	filter := a.interp.Load().ExtractFilter(utterance)
	if filter.IsEmpty() {
		return Response{Text: a.formatter.Clarify(), Kind: KindClarify}, nil
	}

	start := time.Now()
	result, err := a.searcher.Search(ctx, filter, utterance, a.opts.MaxResults)
	if err != nil {
		return Response{}, fmt.Errorf("search: %w", err)
	}
	a.recordTiming(metrics.OpSearch, start)
	if len(result.Sessions) == 0 {
		return Response{Text: a.formatter.NoMatch(filter), Kind: KindEmpty}, nil
	}

	a.store.RecordResults(userID, utterance, result.Sessions)
	return Response{
		Text:     a.formatter.List(result.Sessions, result.Total),
		Sessions: result.Sessions,
		Kind:     KindSearch,
	}, nil
}

func (a *Assistant) recordTiming(op string, start time.Time) {
	if a.opts.Metrics != nil {
		a.opts.Metrics.RecordTiming(op, time.Since(start))
	}
}

// attributeProbes map followup phrasings to the single fact they ask for.
var attributeProbes = []struct {
	re   *regexp.Regexp
	attr format.Attribute
}{
	{regexp.MustCompile(`\bwho\b|\bhost`), format.AttrHost},
	{regexp.MustCompile(`\bhow long\b|\bduration\b`), format.AttrDuration},
	{regexp.MustCompile(`\bwhen\b|\bwhat time\b|\bschedule`), format.AttrWhen},
	{regexp.MustCompile(`\blink\b|\burl\b|\brecording\b`), format.AttrLink},
	{regexp.MustCompile(`\babout\b|\bdescri`), format.AttrAbout},
}

func (a *Assistant) handleFollowup(userID, utterance string) (Response, bool) {
	session, ok := a.store.ResolveReference(userID, utterance)
	if !ok {
		return Response{}, false
	}
	a.store.RecordShown(userID, session)

	query := strings.ToLower(utterance)
	text := ""
	for _, probe := range attributeProbes {
		if probe.re.MatchString(query) {
			text = a.formatter.AttributeAnswer(session, probe.attr)
			break
		}
	}
	if text == "" {
		text = a.formatter.Detail(session)
	}
	return Response{
		Text:     text,
		Sessions: []models.Session{session},
		Kind:     KindFollowup,
	}, true
}

// ResetContext forgets a user's conversation context.
func (a *Assistant) ResetContext(userID string) {
	a.store.Reset(userID)
}

// RememberedSessions exposes the user's current context window.
func (a *Assistant) RememberedSessions(userID string) []memory.Remembered {
	return a.store.Recent(userID)
}

// Package interpreter parses free-text utterances into structured session
// search filters. All rules are ordered and deterministic: host rules first,
// then time rules, then topic rules over whatever text remains.
package interpreter

import (
	"regexp"
	"strings"
	"time"

	"github.com/ashahq/sessionscout/internal/models"
)

// sessionWords are the nouns that make an utterance unambiguously a session
// search. The intent check must never reject an utterance containing one.
var sessionWords = []string{"session", "workshop", "event"}

// searchPatterns back up the keyword check for utterances that ask for
// sessions without naming them directly.
var searchPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(find|search for|looking for|show (?:me |us )?|list|display)\s*(sessions?|workshops?|events?)`),
	regexp.MustCompile(`\b(sessions?|workshops?|events?)\s+(about|on|with|by|related to|in|during)\b`),
	regexp.MustCompile(`\bhost(?:ed)?\s+by\b`),
	regexp.MustCompile(`\bare there (?:any )?(sessions?|workshops?|events?)\b`),
}

var hostPattern = regexp.MustCompile(`\b(?:hosted by|host(?:ed)?\s+by|host is|by|with|from)\s+([a-z][a-z\s.'-]*)`)

// hostCaptureStops terminate a captured host phrase; anything after them
// belongs to another filter.
var hostCaptureStops = map[string]struct{}{
	"in": {}, "on": {}, "at": {}, "about": {}, "during": {}, "from": {},
	"for": {}, "and": {}, "regarding": {}, "this": {}, "next": {}, "last": {},
	"upcoming": {}, "recent": {}, "past": {},
}

var topicPattern = regexp.MustCompile(`\b(?:about|on|regarding)\s+([a-z][a-z\s-]*)`)

// stopWords are dropped during fallback keyword extraction.
var stopWords = map[string]struct{}{
	"find": {}, "search": {}, "looking": {}, "session": {}, "sessions": {},
	"workshop": {}, "workshops": {}, "event": {}, "events": {}, "training": {},
	"for": {}, "about": {}, "on": {}, "the": {}, "a": {}, "an": {}, "by": {},
	"with": {}, "in": {}, "i": {}, "me": {}, "my": {}, "can": {}, "you": {},
	"please": {}, "help": {}, "need": {}, "want": {}, "show": {}, "list": {},
	"all": {}, "any": {}, "are": {}, "there": {}, "us": {}, "display": {},
	"host": {}, "hosted": {}, "hosting": {}, "some": {},
}

// returnAllWords mark a short criteria-free utterance as "show everything".
var returnAllWords = []string{"all", "everything", "available", "list"}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithClock injects the time source used to resolve relative expressions.
func WithClock(now func() time.Time) Option {
	return func(in *Interpreter) { in.now = now }
}

// Interpreter extracts structured search filters from utterances using an
// ordered rule table and a gazetteer of known host names.
type Interpreter struct {
	hosts      []string // original casing, for filter output
	hostsLower []string
	now        func() time.Time
}

// New creates an Interpreter over a gazetteer of known host names
// (typically corpus.HostNames of the current corpus).
func New(gazetteer []string, opts ...Option) *Interpreter {
	in := &Interpreter{
		hosts: gazetteer,
		now:   time.Now,
	}
	in.hostsLower = make([]string, len(gazetteer))
	for i, h := range gazetteer {
		in.hostsLower[i] = strings.ToLower(h)
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// IsSearchIntent is the cheap pre-check that decides whether full parsing is
// worth running. Pure function of the utterance and the gazetteer. It never
// returns false for utterances containing a session word.
func (in *Interpreter) IsSearchIntent(utterance string) bool {
	query := strings.ToLower(strings.TrimSpace(utterance))
	if query == "" {
		return false
	}

	for _, w := range sessionWords {
		if strings.Contains(query, w) {
			return true
		}
	}

	if isBareByQuery(query) {
		return true
	}

	for _, host := range in.hostsLower {
		if len(host) > 3 && strings.Contains(query, host) {
			return true
		}
	}

	for _, p := range searchPatterns {
		if p.MatchString(query) {
			return true
		}
	}
	return false
}

// isBareByQuery recognizes the "by <name>" short form: at most three words
// starting with "by".
func isBareByQuery(query string) bool {
	return strings.HasPrefix(query, "by ") && len(strings.Fields(query)) <= 3
}

// ExtractFilter parses the utterance into a structured filter. Rule order:
// host, then time, then topic over the remaining text. When nothing at all
// is recognized and the utterance is a short bare session request, the
// filter is ReturnAll instead of empty.
func (in *Interpreter) ExtractFilter(utterance string) models.SearchFilter {
	var filter models.SearchFilter
	query := strings.ToLower(strings.TrimSpace(utterance))
	if query == "" {
		return filter
	}

	remainder := query

	if host, span, ok := in.extractHost(query); ok {
		filter.HostName = host
		remainder = strings.Replace(remainder, span, " ", 1)
	}

	if tr, ok := extractTimeRange(query, in.now()); ok {
		start, end := tr.start, tr.end
		filter.StartDate = &start
		filter.EndDate = &end
		remainder = strings.Replace(remainder, tr.span, " ", 1)
	}

	if topic := in.extractTopic(remainder); topic != "" {
		filter.TitleTerms = topic
		filter.DescriptionTerms = topic
	}

	if filter.IsEmpty() && in.wantsEverything(query) {
		filter.ReturnAll = true
	}

	return filter
}

// wantsEverything recognizes short criteria-free session requests like
// "show all sessions" or "list sessions".
func (in *Interpreter) wantsEverything(query string) bool {
	if len(strings.Fields(query)) > 5 {
		return false
	}
	hasSessionWord := false
	for _, w := range sessionWords {
		if strings.Contains(query, w) {
			hasSessionWord = true
			break
		}
	}
	if !hasSessionWord {
		return false
	}
	for _, w := range returnAllWords {
		if strings.Contains(query, w) {
			return true
		}
	}
	// A bare "sessions?" style utterance also means everything.
	return len(strings.Fields(query)) <= 2
}

// extractHost resolves a host reference. Precedence: the bare "by <name>"
// short form, exact gazetteer containment, then the syntactic pattern with
// fuzzy gazetteer resolution, then the raw captured text.
func (in *Interpreter) extractHost(query string) (host, span string, ok bool) {
	if isBareByQuery(query) {
		name := strings.TrimSpace(query[3:])
		if match := in.bestHostMatch(name); match != "" {
			return match, query, true
		}
		if len(name) >= 2 {
			return name, query, true
		}
		return "", "", false
	}

	for i, hostLower := range in.hostsLower {
		if hostLower != "" && strings.Contains(query, hostLower) {
			return in.hosts[i], hostLower, true
		}
	}

	m := hostPattern.FindStringSubmatch(query)
	if m == nil {
		return "", "", false
	}
	captured := trimHostCapture(m[1])
	if captured == "" {
		return "", "", false
	}

	// Try progressively shorter word prefixes of the capture, longest
	// first, so "marissa johnson next week" still resolves the name.
	words := strings.Fields(captured)
	for n := min(len(words), 4); n >= 1; n-- {
		candidate := strings.Join(words[:n], " ")
		if match := in.bestHostMatch(candidate); match != "" {
			return match, candidate, true
		}
	}

	if len(captured) >= 2 {
		return captured, captured, true
	}
	return "", "", false
}

// trimHostCapture cuts the captured phrase at the first word that belongs
// to another filter expression.
func trimHostCapture(captured string) string {
	words := strings.Fields(captured)
	for i, w := range words {
		if _, stop := hostCaptureStops[w]; stop {
			words = words[:i]
			break
		}
	}
	return strings.TrimRight(strings.Join(words, " "), ".,?! ")
}

// bestHostMatch resolves a partial name against the gazetteer: exact match,
// then first-name/prefix match, then substring match where the candidate
// closest in length wins.
func (in *Interpreter) bestHostMatch(partial string) string {
	partial = strings.ToLower(strings.TrimSpace(partial))
	if len(partial) < 2 {
		return ""
	}

	for i, host := range in.hostsLower {
		if host == partial {
			return in.hosts[i]
		}
	}

	for i, host := range in.hostsLower {
		if strings.HasPrefix(host, partial+" ") || strings.HasPrefix(host, partial) {
			return in.hosts[i]
		}
	}

	best := ""
	bestIdx := -1
	bestScore := -1.0
	for i, host := range in.hostsLower {
		if !strings.Contains(host, partial) {
			continue
		}
		longer := max(len(host), len(partial))
		score := 1.0 - float64(abs(len(host)-len(partial)))/float64(longer)
		if score > bestScore {
			best, bestIdx, bestScore = host, i, score
		}
	}
	if best != "" {
		return in.hosts[bestIdx]
	}
	return ""
}

// extractTopic finds title/description terms in the remainder of the query
// after host and time spans were removed. A preposition pattern wins;
// otherwise stop-word-filtered keywords are the fallback.
func (in *Interpreter) extractTopic(remainder string) string {
	if m := topicPattern.FindStringSubmatch(remainder); m != nil {
		topic := strings.TrimRight(strings.TrimSpace(m[1]), ".,?! ")
		topic = dropStopWords(topic)
		if topic != "" {
			return topic
		}
	}
	return dropStopWords(remainder)
}

func dropStopWords(s string) string {
	var kept []string
	for _, w := range strings.Fields(s) {
		w = strings.Trim(w, ".,?!'\" ")
		if len(w) <= 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

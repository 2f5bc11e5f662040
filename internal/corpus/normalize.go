package corpus

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ashahq/sessionscout/internal/models"
)

// rawSession mirrors the document shape the platform stores. Dates arrive
// either as RFC3339 strings, as {"$date": ...} wrappers from Mongo exports,
// or as native Mongo dates; descriptions may be Lexical rich-text JSON.
type rawSession struct {
	SessionID   string         `bson:"session_id" json:"session_id"`
	Title       string         `bson:"session_title" json:"session_title"`
	Description string         `bson:"description" json:"description"`
	HostUser    []rawHost      `bson:"host_user" json:"host_user"`
	Schedule    *rawSchedule   `bson:"schedule" json:"schedule"`
	Duration    string         `bson:"duration" json:"duration"`
	ExternalURL string         `bson:"external_url" json:"external_url"`
	Categories  []string       `bson:"categories" json:"categories"`
	Tags        []string       `bson:"tags" json:"tags"`
	MetaData    map[string]any `bson:"meta_data" json:"meta_data"`
}

type rawHost struct {
	Username   string `bson:"username" json:"username"`
	ProfileURL string `bson:"profile_url" json:"profile_url"`
}

type rawSchedule struct {
	StartTime       any `bson:"start_time" json:"start_time"`
	EndTime         any `bson:"end_time" json:"end_time"`
	DurationMinutes int `bson:"duration_minutes" json:"duration_minutes"`
}

// normalize converts a raw document into the fixed Session shape.
func normalize(raw rawSession) models.Session {
	s := models.Session{
		ID:           raw.SessionID,
		Title:        raw.Title,
		Description:  FlattenDescription(raw.Description),
		ResourceLink: raw.ExternalURL,
	}

	if s.ID == "" {
		// Deterministic fallback so the same record always maps to the
		// same ID across corpus reloads.
		s.ID = "gen-" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(raw.Title)).String()
	}

	for _, h := range raw.HostUser {
		if h.Username == "" {
			continue
		}
		s.Hosts = append(s.Hosts, models.Host{Name: h.Username, ProfileRef: h.ProfileURL})
	}

	s.Topics = append(s.Topics, raw.Categories...)
	s.Topics = append(s.Topics, raw.Tags...)

	if raw.Schedule != nil {
		start, okStart := parseTimestamp(raw.Schedule.StartTime)
		end, _ := parseTimestamp(raw.Schedule.EndTime)
		if okStart {
			minutes := raw.Schedule.DurationMinutes
			if minutes == 0 {
				minutes = parseDurationMinutes(raw.Duration)
			}
			s.Schedule = &models.Schedule{
				StartTime:       start,
				EndTime:         end,
				DurationMinutes: minutes,
			}
		}
	}

	if raw.MetaData != nil {
		if created, ok := parseTimestamp(raw.MetaData["created_at"]); ok {
			s.CreatedAt = created
		}
	}

	return s
}

// timestampLayouts are tried in order when a date arrives as a string.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseTimestamp accepts the shapes dates take in the corpus: time.Time
// (native driver decoding), RFC3339-ish strings, and {"$date": ...} export
// wrappers.
func parseTimestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return t, true
	case string:
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
		return time.Time{}, false
	case primitive.DateTime:
		return t.Time().UTC(), true
	case map[string]any:
		if inner, ok := t["$date"]; ok {
			return parseTimestamp(inner)
		}
		return time.Time{}, false
	case primitive.M:
		if inner, ok := t["$date"]; ok {
			return parseTimestamp(inner)
		}
		return time.Time{}, false
	case primitive.D:
		for _, e := range t {
			if e.Key == "$date" {
				return parseTimestamp(e.Value)
			}
		}
		return time.Time{}, false
	case float64:
		// Epoch milliseconds from Mongo extended JSON.
		return time.UnixMilli(int64(t)).UTC(), true
	case int64:
		return time.UnixMilli(t).UTC(), true
	default:
		return time.Time{}, false
	}
}

var durationPart = regexp.MustCompile(`(\d+)\s*(hr|hour|min)`)

// parseDurationMinutes extracts minutes from display strings like
// "1hr 30min", "2hrs" or "45 mins". Returns 0 when nothing parses.
func parseDurationMinutes(s string) int {
	total := 0
	for _, m := range durationPart.FindAllStringSubmatch(strings.ToLower(s), -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if strings.HasPrefix(m[2], "hr") || strings.HasPrefix(m[2], "hour") {
			total += n * 60
		} else {
			total += n
		}
	}
	return total
}

// FlattenDescription reduces a description to plain text. Descriptions may
// arrive as Lexical rich-text JSON documents; those are walked depth-first
// and their text nodes joined. Anything else passes through unchanged.
// Pure function, no side effects.
func FlattenDescription(description string) string {
	trimmed := strings.TrimSpace(description)
	if !strings.HasPrefix(trimmed, "{") {
		return description
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		return description
	}

	root, ok := doc["root"]
	if !ok {
		return description
	}

	var parts []string
	collectText(root, &parts)
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, " ")
}

func collectText(node any, parts *[]string) {
	switch n := node.(type) {
	case map[string]any:
		if text, ok := n["text"].(string); ok {
			*parts = append(*parts, text)
		}
		if children, ok := n["children"]; ok {
			collectText(children, parts)
		}
	case []any:
		for _, child := range n {
			collectText(child, parts)
		}
	}
}

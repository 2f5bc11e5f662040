// Package models defines the data structures for session discovery.
package models

import (
	"strings"
	"time"
)

// Host is a single presenter of a session.
type Host struct {
	Name       string `json:"name"`
	ProfileRef string `json:"profile_ref,omitempty"`
}

// Schedule is the time window of a scheduled session.
type Schedule struct {
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
}

// Session is a normalized session record. The corpus adapter produces it
// once from the raw document shape; downstream components never re-interpret
// raw fields.
type Session struct {
	ID           string    `json:"session_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"` // flattened plain text
	Hosts        []Host    `json:"hosts,omitempty"`
	Schedule     *Schedule `json:"schedule,omitempty"`
	Topics       []string  `json:"topics,omitempty"`
	ResourceLink string    `json:"resource_link,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

// HostNames returns the names of all hosts in display order.
func (s Session) HostNames() []string {
	names := make([]string, 0, len(s.Hosts))
	for _, h := range s.Hosts {
		if h.Name != "" {
			names = append(names, h.Name)
		}
	}
	return names
}

// PrimaryHost returns the first host name, or "" if the session has none.
func (s Session) PrimaryHost() string {
	for _, h := range s.Hosts {
		if h.Name != "" {
			return h.Name
		}
	}
	return ""
}

// IndexText builds the text blob that gets embedded for similarity search:
// title, flattened description and host names concatenated.
func (s Session) IndexText() string {
	var b strings.Builder
	b.WriteString("Title: ")
	b.WriteString(s.Title)
	if s.Description != "" {
		b.WriteString(" Description: ")
		b.WriteString(s.Description)
	}
	if names := s.HostNames(); len(names) > 0 {
		b.WriteString(" Host: ")
		b.WriteString(strings.Join(names, ", "))
	}
	return b.String()
}

// SortTime is the timestamp used for recency ordering: schedule start when
// present, otherwise creation time. The zero time sorts last.
func (s Session) SortTime() time.Time {
	if s.Schedule != nil {
		return s.Schedule.StartTime
	}
	return s.CreatedAt
}

// Package format renders sessions and search outcomes as chat-ready text.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ashahq/sessionscout/internal/models"
)

// Attribute names the single facts a followup can ask about.
type Attribute string

const (
	AttrHost     Attribute = "host"
	AttrWhen     Attribute = "when"
	AttrDuration Attribute = "duration"
	AttrLink     Attribute = "link"
	AttrAbout    Attribute = "about"
)

// Formatter renders sessions for the chat surface. Styling degrades to
// plain text on non-terminal outputs.
type Formatter struct {
	title  lipgloss.Style
	label  lipgloss.Style
	faint  lipgloss.Style
	number lipgloss.Style
}

// New creates a Formatter with the default styles.
func New() *Formatter {
	return &Formatter{
		title:  lipgloss.NewStyle().Bold(true),
		label:  lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		faint:  lipgloss.NewStyle().Faint(true),
		number: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5")),
	}
}

// List renders a numbered page of sessions. total is the full match count;
// when it exceeds the page a trailing "more available" line is added.
func (f *Formatter) List(sessions []models.Session, total int) string {
	if len(sessions) == 0 {
		return "No sessions found."
	}

	var b strings.Builder
	if total == 1 {
		b.WriteString("Found 1 session:\n\n")
	} else {
		fmt.Fprintf(&b, "Found %d sessions:\n\n", total)
	}

	for i, s := range sessions {
		fmt.Fprintf(&b, "%s %s\n", f.number.Render(fmt.Sprintf("%d.", i+1)), f.title.Render(s.Title))
		if host := s.PrimaryHost(); host != "" {
			fmt.Fprintf(&b, "   %s %s\n", f.label.Render("Host:"), host)
		}
		if when := scheduleLine(s); when != "" {
			fmt.Fprintf(&b, "   %s %s\n", f.label.Render("When:"), when)
		}
		if d := durationLine(s); d != "" {
			fmt.Fprintf(&b, "   %s %s\n", f.label.Render("Duration:"), d)
		}
		if s.ResourceLink != "" {
			fmt.Fprintf(&b, "   %s %s\n", f.label.Render("Link:"), s.ResourceLink)
		}
		if i < len(sessions)-1 {
			b.WriteString("\n")
		}
	}

	if remaining := total - len(sessions); remaining > 0 {
		fmt.Fprintf(&b, "\n%s\n", f.faint.Render(fmt.Sprintf("%d more available. Ask me to narrow it down.", remaining)))
	}
	return b.String()
}

// Detail renders everything known about one session.
func (f *Formatter) Detail(s models.Session) string {
	var b strings.Builder
	b.WriteString(f.title.Render(s.Title))
	b.WriteString("\n")

	if host := strings.Join(s.HostNames(), ", "); host != "" {
		fmt.Fprintf(&b, "%s %s\n", f.label.Render("Host:"), host)
	}
	if when := scheduleLine(s); when != "" {
		fmt.Fprintf(&b, "%s %s\n", f.label.Render("When:"), when)
	}
	if d := durationLine(s); d != "" {
		fmt.Fprintf(&b, "%s %s\n", f.label.Render("Duration:"), d)
	}
	if len(s.Topics) > 0 {
		fmt.Fprintf(&b, "%s %s\n", f.label.Render("Topics:"), strings.Join(s.Topics, ", "))
	}
	if s.ResourceLink != "" {
		fmt.Fprintf(&b, "%s %s\n", f.label.Render("Link:"), s.ResourceLink)
	}
	if s.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", s.Description)
	}
	return b.String()
}

// AttributeAnswer answers a single-fact followup about one session.
func (f *Formatter) AttributeAnswer(s models.Session, attr Attribute) string {
	switch attr {
	case AttrHost:
		if host := strings.Join(s.HostNames(), ", "); host != "" {
			return fmt.Sprintf("%q is hosted by %s.", s.Title, host)
		}
		return fmt.Sprintf("No host is listed for %q.", s.Title)
	case AttrWhen:
		if when := scheduleLine(s); when != "" {
			return fmt.Sprintf("%q is scheduled for %s.", s.Title, when)
		}
		return fmt.Sprintf("%q has no scheduled time yet.", s.Title)
	case AttrDuration:
		if d := durationLine(s); d != "" {
			return fmt.Sprintf("%q runs for %s.", s.Title, d)
		}
		return fmt.Sprintf("No duration is listed for %q.", s.Title)
	case AttrLink:
		if s.ResourceLink != "" {
			return fmt.Sprintf("Here is the link for %q: %s", s.Title, s.ResourceLink)
		}
		return fmt.Sprintf("No link is available for %q.", s.Title)
	case AttrAbout:
		if s.Description != "" {
			return fmt.Sprintf("%q: %s", s.Title, s.Description)
		}
		return fmt.Sprintf("There is no description for %q yet.", s.Title)
	}
	return f.Detail(s)
}

// NoMatch explains an empty result in terms of what was asked for.
func (f *Formatter) NoMatch(filter models.SearchFilter) string {
	var criteria []string
	if filter.HostName != "" {
		criteria = append(criteria, fmt.Sprintf("hosted by %s", filter.HostName))
	}
	if filter.TitleTerms != "" {
		criteria = append(criteria, fmt.Sprintf("about %q", filter.TitleTerms))
	}
	if filter.StartDate != nil && filter.EndDate != nil {
		criteria = append(criteria, fmt.Sprintf("between %s and %s",
			filter.StartDate.Format("2 Jan 2006"), filter.EndDate.Format("2 Jan 2006")))
	}

	if len(criteria) == 0 {
		return "I couldn't find any sessions. Try a different search."
	}
	return fmt.Sprintf("I couldn't find any sessions %s. Try loosening the search.",
		strings.Join(criteria, " and "))
}

// Clarify asks for criteria when an utterance looked like a search but
// nothing usable could be extracted.
func (f *Formatter) Clarify() string {
	return "What kind of session are you looking for? You can search by topic, host, or time, for example \"sessions about interviewing\" or \"workshops by Marissa next month\"."
}

func scheduleLine(s models.Session) string {
	if s.Schedule == nil || s.Schedule.StartTime.IsZero() {
		return ""
	}
	return s.Schedule.StartTime.Format("Monday, 2 Jan 2006 at 3:04 PM")
}

func durationLine(s models.Session) string {
	if s.Schedule == nil || s.Schedule.DurationMinutes <= 0 {
		return ""
	}
	d := time.Duration(s.Schedule.DurationMinutes) * time.Minute
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	switch {
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%d hr %d min", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%d hr", hours)
	default:
		return fmt.Sprintf("%d min", minutes)
	}
}

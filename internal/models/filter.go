package models

import "time"

// SearchFilter holds the structured criteria extracted from an utterance.
// All fields are optional; the zero value is the empty filter.
type SearchFilter struct {
	TitleTerms       string
	DescriptionTerms string
	HostName         string
	StartDate        *time.Time
	EndDate          *time.Time

	// ReturnAll is set for "show me everything" style queries. It is a
	// distinct state from the empty filter, which means no criteria were
	// recognized at all.
	ReturnAll bool
}

// IsEmpty reports whether no criteria were extracted. A ReturnAll filter is
// not empty.
func (f SearchFilter) IsEmpty() bool {
	return !f.ReturnAll &&
		f.TitleTerms == "" &&
		f.DescriptionTerms == "" &&
		f.HostName == "" &&
		f.StartDate == nil &&
		f.EndDate == nil
}

// HasDateBound reports whether the filter restricts the schedule window.
func (f SearchFilter) HasDateBound() bool {
	return f.StartDate != nil || f.EndDate != nil
}

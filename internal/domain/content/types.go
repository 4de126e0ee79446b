package content

// Package content contains domain-level types for the tribute and funeral
// home records managed by the hosted CMS. The CMS owns these records; the
// web tier reads and forwards them.

import "time"

// Tribute is a memorial livestream page for one service.
type Tribute struct {
	ID            string
	Slug          string
	LovedOneName  string
	Headline      string
	Description   string
	StreamURL     string
	ScheduledAt   time.Time
	FuneralHomeID string
	// ContactSubjectID is the family contact who owns the tribute.
	ContactSubjectID string
	Published        bool
}

// FuneralHome is a partner funeral home profile.
type FuneralHome struct {
	ID      string
	Slug    string
	Name    string
	City    string
	Region  string
	Phone   string
	Website string
}

// ScheduleRequest carries the inputs of a new livestream scheduling request.
type ScheduleRequest struct {
	LovedOneName  string
	Headline      string
	Description   string
	ScheduledAt   time.Time
	FuneralHomeID string
	// ContactSubjectID is filled from the requesting identity, never the form.
	ContactSubjectID string
}

// Package model defines the records shared by the matcher, the lifecycle and
// the store.
package model

import "time"

// WorkType is the work-arrangement facet used for matching.
type WorkType string

const (
	WorkTypeAny    WorkType = "any"
	WorkTypeRemote WorkType = "remote"
	WorkTypeOnsite WorkType = "onsite"
	WorkTypeHybrid WorkType = "hybrid"
)

// JobStatus values match the CHECK constraint on job_posts.status.
type JobStatus string

const (
	JobStatusDraft     JobStatus = "draft"
	JobStatusActive    JobStatus = "active"
	JobStatusAssigned  JobStatus = "assigned"
	JobStatusCompleted JobStatus = "completed"
)

// Availability values match the CHECK constraint on talent_profiles.availability.
type Availability string

const (
	AvailabilityAvailable   Availability = "available"
	AvailabilityUnavailable Availability = "unavailable"
	AvailabilityPending     Availability = "pending"
)

// MatchStatus values match the CHECK constraint on matches.status.
type MatchStatus string

const (
	MatchStatusPending    MatchStatus = "pending"
	MatchStatusAccepted   MatchStatus = "accepted"
	MatchStatusRejected   MatchStatus = "rejected"
	MatchStatusContracted MatchStatus = "contracted"
)

// AssignmentStatus values match the CHECK constraint on assignments.status.
type AssignmentStatus string

const (
	AssignmentStatusActive    AssignmentStatus = "active"
	AssignmentStatusPaused    AssignmentStatus = "paused"
	AssignmentStatusCompleted AssignmentStatus = "completed"
)

// JobPost is a work opportunity. Amounts are whole currency units.
type JobPost struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Title       string    `json:"title"`
	Budget      int64     `json:"budget"`
	DailyRate   *int64    `json:"dailyRate,omitempty"`
	WorkDays    int       `json:"workDays"`
	SkillTags   []string  `json:"skillTags"`
	CarrierTags []string  `json:"carrierTags"`
	WorkType    WorkType  `json:"workType"`
	Status      JobStatus `json:"status"`
	IsHot       bool      `json:"isHot"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TalentProfile is a person's offering. A user owns at most one.
type TalentProfile struct {
	ID              string       `json:"id"`
	UserID          string       `json:"userId"`
	Name            string       `json:"name"`
	Rate            int64        `json:"rate"`
	ExperienceYears int          `json:"experienceYears"`
	Skills          []string     `json:"skills"`
	Carriers        []string     `json:"carriers"`
	WorkType        WorkType     `json:"workType"`
	Availability    Availability `json:"availability"`
	IsHot           bool         `json:"isHot"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// Match is a proposed pairing of one job and one talent profile.
type Match struct {
	ID             string      `json:"id"`
	JobID          string      `json:"jobId"`
	TalentID       string      `json:"talentId"`
	ProposerID     string      `json:"proposerId"`
	Message        string      `json:"message"`
	Status         MatchStatus `json:"status"`
	AssignmentType *string     `json:"assignmentType,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// Assignment is the contract created from an accepted match.
type Assignment struct {
	ID            string           `json:"id"`
	MatchID       string           `json:"matchId"`
	JobID         string           `json:"jobId"`
	TalentID      string           `json:"talentId"`
	ClientUserID  string           `json:"clientUserId"`
	TalentUserID  string           `json:"talentUserId"`
	Status        AssignmentStatus `json:"status"`
	MonthlyProfit int64            `json:"monthlyProfit"`
	TotalProfit   int64            `json:"totalProfit"`
	Notes         string           `json:"notes"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// IsParty reports whether userID is the client or talent side of a.
func (a *Assignment) IsParty(userID string) bool {
	return userID != "" && (a.ClientUserID == userID || a.TalentUserID == userID)
}

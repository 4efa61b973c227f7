// Package state holds the per-recipient, per-campaign execution record.
//
// A State must not be processed by more than one worker at a time for the
// same RecipientID+CampaignID pair; callers serialize access (see
// internal/lock). Nothing in this package synchronizes.
package state

import (
	"sort"
	"time"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusWaiting   Status = "waiting"
	StatusStopped   Status = "stopped"
	StatusCompleted Status = "completed"
)

// Terminal reports whether no further step or action may run.
func (s Status) Terminal() bool {
	return s == StatusStopped || s == StatusCompleted
}

type State struct {
	RecipientID   string         `json:"recipientId" bson:"recipient_id"`
	CampaignID    string         `json:"campaignId" bson:"campaign_id"`
	CurrentStepID *string        `json:"currentStepId" bson:"current_step_id"`
	Tags          []string       `json:"tags" bson:"tags"`
	Fields        map[string]any `json:"fields" bson:"fields"`
	ResumeAt      *time.Time     `json:"resumeAt" bson:"resume_at"`
	Status        Status         `json:"status" bson:"status"`
	LastEmailAt   *time.Time     `json:"lastEmailAt,omitempty" bson:"last_email_at,omitempty"`
	StartedAt     time.Time      `json:"startedAt" bson:"started_at"`
	UpdatedAt     time.Time      `json:"updatedAt" bson:"updated_at"`
	// Version increments on every checkpoint; stores use it for optimistic writes.
	Version int64 `json:"version" bson:"version"`
}

// New starts a recipient at step (nil for rule-driven states).
func New(recipientID, campaignID string, step *string, now time.Time) State {
	return State{
		RecipientID:   recipientID,
		CampaignID:    campaignID,
		CurrentStepID: cloneString(step),
		Tags:          []string{},
		Fields:        map[string]any{},
		Status:        StatusActive,
		StartedAt:     now,
		UpdatedAt:     now,
	}
}

// Clone returns a copy that shares nothing mutable with s. Field values
// are copied shallowly.
func (s State) Clone() State {
	out := s
	out.CurrentStepID = cloneString(s.CurrentStepID)
	out.ResumeAt = cloneTime(s.ResumeAt)
	out.LastEmailAt = cloneTime(s.LastEmailAt)
	out.Tags = append([]string{}, s.Tags...)
	out.Fields = make(map[string]any, len(s.Fields))
	for k, v := range s.Fields {
		out.Fields[k] = v
	}
	return out
}

// Key identifies the state in stores and locks.
func (s State) Key() string {
	return Key(s.RecipientID, s.CampaignID)
}

func Key(recipientID, campaignID string) string {
	return campaignID + "/" + recipientID
}

func (s State) Step() string {
	if s.CurrentStepID == nil {
		return ""
	}
	return *s.CurrentStepID
}

// Due reports whether a waiting state may resume at now.
func (s State) Due(now time.Time) bool {
	return s.Status == StatusWaiting && s.ResumeAt != nil && !now.Before(*s.ResumeAt)
}

// HasTag reports membership without relying on Tags being sorted, so
// caller-built states behave like stored ones.
func (s State) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// WithTag returns the state with tag added, and whether it changed. The
// result's tags are sorted and unique.
func (s State) WithTag(tag string) (State, bool) {
	if s.HasTag(tag) {
		return s, false
	}
	out := s.Normalize()
	out.Tags = append(out.Tags, tag)
	sort.Strings(out.Tags)
	return out, true
}

// WithoutTag returns the state with every copy of tag removed, and whether
// it changed.
func (s State) WithoutTag(tag string) (State, bool) {
	if !s.HasTag(tag) {
		return s, false
	}
	out := s.Normalize()
	kept := out.Tags[:0]
	for _, t := range out.Tags {
		if t != tag {
			kept = append(kept, t)
		}
	}
	out.Tags = kept
	return out, true
}

// Normalize sorts and de-duplicates tags and fills nil collections; stores
// call it after decoding.
func (s State) Normalize() State {
	out := s.Clone()
	sort.Strings(out.Tags)
	deduped := out.Tags[:0]
	for i, tag := range out.Tags {
		if i == 0 || tag != out.Tags[i-1] {
			deduped = append(deduped, tag)
		}
	}
	out.Tags = deduped
	return out
}

func StringPtr(s string) *string {
	return &s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// Resumed returns a waiting state reactivated at now.
func (s State) Resumed(now time.Time) State {
	out := s.Clone()
	out.Status = StatusActive
	out.ResumeAt = nil
	out.UpdatedAt = now
	return out
}

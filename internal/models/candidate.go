package models

import (
	"time"
)

// Candidate lifecycle labels. Any other non-empty status written together with a
// result is a disqualification reason.
const (
	StatusMailSent     = "Mail Sent"
	StatusPass         = "Pass"
	StatusFail         = "Fail"
	StatusNotQualified = "Not Qualified"
)

type Candidate struct {
	ID       uint   `json:"id" gorm:"primaryKey" bson:"_id"`
	Name     string `json:"name" gorm:"size:100" bson:"name"`
	Email    string `json:"email" gorm:"uniqueIndex;not null;size:255" bson:"email"`
	Username string `json:"username" gorm:"uniqueIndex;not null;size:255" bson:"username"`
	Password string `json:"-" gorm:"not null;size:255" bson:"password"`

	RecruiterName  string `json:"recruiterName" gorm:"size:100" bson:"recruiter_name"`
	RecruiterEmail string `json:"recruiterEmail" gorm:"size:255" bson:"recruiter_email"`

	Program string `json:"program" gorm:"not null;size:100;index:idx_candidate_bank" bson:"program"`
	Project string `json:"project" gorm:"size:100;index:idx_candidate_bank" bson:"project"`

	// Outcome. A non-empty Result closes the attempt for good.
	Status    string `json:"status" gorm:"size:500;default:'Mail Sent'" bson:"status"`
	Result    string `json:"result" gorm:"size:32;not null;default:''" bson:"result"`
	Score     string `json:"score" gorm:"size:16;not null;default:''" bson:"score"`
	VideoLink string `json:"videoLink" gorm:"size:500;not null;default:''" bson:"video_link"`

	CompletedAt *time.Time `json:"completedAt,omitempty" bson:"completed_at,omitempty"`
	CreatedBy   string     `json:"createdBy" gorm:"size:255" bson:"created_by"`
	CreatedAt   time.Time  `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" bson:"updated_at"`
}

func (Candidate) TableName() string {
	return "candidates"
}

// Verdict is the set of outcome fields written when an attempt closes.
type Verdict struct {
	Status      string
	Result      string
	Score       string
	VideoLink   string
	CompletedAt time.Time
}

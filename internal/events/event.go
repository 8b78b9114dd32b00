package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "hat-assessment"
	EventVersion = "1.0"

	TypeResultRecorded     = "candidate.result.recorded"
	TypeCandidateEnrolled  = "candidate.enrolled"
	TypeNotificationFailed = "notification.failed"
)

// Event is the envelope of every message the service publishes.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func NewEvent(eventType string, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// ResultRecordedEvent is published once per closed attempt.
type ResultRecordedEvent struct {
	CandidateID    uint      `json:"candidateId"`
	Email          string    `json:"email"`
	Program        string    `json:"program"`
	Project        string    `json:"project"`
	Status         string    `json:"status"`
	Result         string    `json:"result"`
	Score          string    `json:"score"`
	Disqualified   bool      `json:"disqualified"`
	RecruiterEmail string    `json:"recruiterEmail,omitempty"`
	MailDelivered  bool      `json:"mailDelivered"`
	CompletedAt    time.Time `json:"completedAt"`
}

type CandidateEnrolledEvent struct {
	CandidateID uint   `json:"candidateId"`
	Email       string `json:"email"`
	Bank        string `json:"bank"`
	EnrolledBy  string `json:"enrolledBy"`
}

// NotificationFailedEvent is published when a result mail exhausts its retries.
type NotificationFailedEvent struct {
	NotificationID uint   `json:"notificationId"`
	CandidateID    uint   `json:"candidateId"`
	Recipient      string `json:"recipient"`
	Attempts       int    `json:"attempts"`
	LastError      string `json:"lastError"`
}

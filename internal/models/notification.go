package models

import "time"

// NotificationFailure records a result mail that could not be delivered.
type NotificationFailure struct {
	ID          uint       `json:"id" gorm:"primaryKey" bson:"_id"`
	CandidateID uint       `json:"candidateId" gorm:"not null;index" bson:"candidate_id"`
	Recipient   string     `json:"recipient" gorm:"not null;size:255" bson:"recipient"`
	Subject     string     `json:"subject" gorm:"not null;size:255" bson:"subject"`
	Body        string     `json:"-" gorm:"type:text;not null" bson:"body"`
	Attempts    int        `json:"attempts" gorm:"not null;default:1" bson:"attempts"`
	LastError   string     `json:"lastError" gorm:"type:text" bson:"last_error"`
	Delivered   bool       `json:"delivered" gorm:"not null;default:false;index" bson:"delivered"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty" bson:"delivered_at,omitempty"`
	CreatedAt   time.Time  `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" bson:"updated_at"`
}

func (NotificationFailure) TableName() string {
	return "notification_failures"
}

// MaxNotificationAttempts bounds retries of a failed result mail.
const MaxNotificationAttempts = 5

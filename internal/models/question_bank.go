package models

import "time"

// BankSequence is the per-bank counter question identifiers are drawn from.
type BankSequence struct {
	Bank      string    `json:"bank" gorm:"primaryKey;size:200" bson:"_id"`
	Value     int64     `json:"value" gorm:"not null;default:0" bson:"value"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

func (BankSequence) TableName() string {
	return "bank_sequences"
}

type BankStats struct {
	Bank       string `json:"bank"`
	Total      int    `json:"total"`
	Easy       int    `json:"easy"`
	Moderate   int    `json:"moderate"`
	Hard       int    `json:"hard"`
	ExamLength int    `json:"examLength"`
}

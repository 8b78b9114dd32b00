package models

import (
	"time"

	"gorm.io/datatypes"
)

type DifficultyTier string

const (
	DifficultyEasy     DifficultyTier = "easy"
	DifficultyModerate DifficultyTier = "moderate"
	DifficultyHard     DifficultyTier = "hard"
)

// DifficultyTiers lists tiers in the order triplets are formed.
var DifficultyTiers = []DifficultyTier{DifficultyEasy, DifficultyModerate, DifficultyHard}

func (d DifficultyTier) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyModerate, DifficultyHard:
		return true
	}
	return false
}

// MaxQuestionLinks caps the optional reference links of a question.
const MaxQuestionLinks = 4

type Question struct {
	ID         uint           `json:"id" gorm:"primaryKey" bson:"_id"`
	QuestionID string         `json:"questionId" gorm:"uniqueIndex;not null;size:32" bson:"question_id"`
	Bank       string         `json:"bank" gorm:"not null;index;size:200" bson:"bank"`
	Question   string         `json:"question" gorm:"type:text;not null" bson:"question"`
	Difficulty DifficultyTier `json:"difficulty" gorm:"not null;index;size:16" bson:"difficulty"`
	Options    string         `json:"options" gorm:"type:text;not null" bson:"options"`
	Answer     string         `json:"answer" gorm:"type:text;not null" bson:"answer"`

	Links datatypes.JSONSlice[string] `json:"links" gorm:"type:jsonb" bson:"links"`

	CreatedBy string    `json:"createdBy" gorm:"size:255" bson:"created_by"`
	UpdatedBy string    `json:"updatedBy" gorm:"size:255" bson:"updated_by"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

func (Question) TableName() string {
	return "questions"
}

package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/highspring-tester/hat/internal/models"
)

const (
	// MinAttemptedQuestions is the floor below which a submission does not qualify.
	MinAttemptedQuestions = 15
	PassThreshold         = 0.75

	failedResult = "0 / 0"
	failedScore  = "0.0%"
)

// ComputeVerdict maps a submission to its status. The attempted floor wins over the score.
func ComputeVerdict(attempted int, fraction float64) string {
	switch {
	case attempted < MinAttemptedQuestions:
		return models.StatusNotQualified
	case fraction >= PassThreshold:
		return models.StatusPass
	default:
		return models.StatusFail
	}
}

// FormatScore renders a 0..1 fraction as a percentage with one decimal.
func FormatScore(fraction float64) string {
	return fmt.Sprintf("%.1f%%", fraction*100)
}

// ParseAttempted extracts X from an "X / Y" score label.
func ParseAttempted(label string) (int, error) {
	head, _, found := strings.Cut(label, "/")
	if !found {
		return 0, fmt.Errorf("score string %q is not of the form X / Y", label)
	}
	n, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("score string %q has no attempted count", label)
	}
	return n, nil
}

// IsAttemptClosed reports whether the candidate can no longer take the exam.
func IsAttemptClosed(c *models.Candidate) bool {
	if c.Result != "" {
		return true
	}
	switch c.Status {
	case models.StatusPass, models.StatusFail, models.StatusNotQualified:
		return true
	}
	return false
}

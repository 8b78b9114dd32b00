package mongodb

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/highspring-tester/hat/internal/models"
	"github.com/highspring-tester/hat/internal/repositories"
)

func TestCandidateFilter(t *testing.T) {
	finished := true
	open := false

	tests := []struct {
		name    string
		filters repositories.CandidateFilters
		want    bson.M
	}{
		{name: "empty", filters: repositories.CandidateFilters{}, want: bson.M{}},
		{
			name:    "program status",
			filters: repositories.CandidateFilters{Program: "Go", Status: "Pass"},
			want:    bson.M{"program": "Go", "status": "Pass"},
		},
		{
			name:    "finished",
			filters: repositories.CandidateFilters{Finished: &finished},
			want:    bson.M{"result": bson.M{"$ne": ""}},
		},
		{
			name:    "open",
			filters: repositories.CandidateFilters{Project: "Backend", Finished: &open},
			want:    bson.M{"project": "Backend", "result": ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := candidateFilter(tt.filters); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("candidateFilter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPagination(t *testing.T) {
	tests := []struct {
		limit, offset     int
		wantLimit, wantSk int64
	}{
		{0, 0, defaultListLimit, 0},
		{5000, -3, maxListLimit, 0},
		{10, 20, 10, 20},
	}
	for _, tt := range tests {
		opts := pagination(tt.limit, tt.offset)
		if *opts.Limit != tt.wantLimit || *opts.Skip != tt.wantSk {
			t.Errorf("pagination(%d, %d) = limit %d skip %d", tt.limit, tt.offset, *opts.Limit, *opts.Skip)
		}
	}
}

func TestCloseAttemptUpdate(t *testing.T) {
	completed := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	verdict := models.Verdict{Status: "Pass", Result: "16 / 20", Score: "80.0%", CompletedAt: completed}

	filter, update := closeAttemptUpdate(7, verdict)
	if want := (bson.M{"_id": uint(7), "result": ""}); !reflect.DeepEqual(filter, want) {
		t.Errorf("filter = %v, want %v", filter, want)
	}
	set, ok := update["$set"].(bson.M)
	if !ok {
		t.Fatalf("update = %v, want $set document", update)
	}
	if set["result"] != "16 / 20" || set["status"] != "Pass" || set["score"] != "80.0%" || set["video_link"] != "" {
		t.Errorf("$set = %v", set)
	}
	if set["completed_at"] != completed {
		t.Errorf("completed_at = %v", set["completed_at"])
	}
}

func TestCandidateMongo_CloseAttemptRefusesEmptyResult(t *testing.T) {
	repo := &CandidateMongo{}
	err := repo.CloseAttempt(context.Background(), 7, models.Verdict{Status: "Pass"})
	if !errors.Is(err, repositories.ErrEmptyVerdict) {
		t.Errorf("CloseAttempt() error = %v, want ErrEmptyVerdict", err)
	}
}

package services

import (
	"errors"
	"testing"

	"studybuddy-backend/internal/models"
)

func TestValidate_UsesJSONFieldNames(t *testing.T) {
	err := Validate(models.CourseRequest{CourseName: "   ", Progress: 120})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if _, ok := verr.Fields["course_name"]; !ok {
		t.Errorf("expected course_name error, got %v", verr.Fields)
	}
	if _, ok := verr.Fields["progress"]; !ok {
		t.Errorf("expected progress error, got %v", verr.Fields)
	}
}

func TestValidate_Passes(t *testing.T) {
	if err := Validate(models.CourseRequest{CourseName: "Algorithms", CourseCode: "CS201", Progress: 40}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_NestedHistory(t *testing.T) {
	err := Validate(models.ChatRequest{
		Message: "What is a heap?",
		History: []models.ChatMessage{{Role: "system", Content: "x"}},
	})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if _, ok := verr.Fields["history[0].role"]; !ok {
		t.Errorf("expected history[0].role error, got %v", verr.Fields)
	}
}

func TestValidate_GenerateMaterialsNeedsSource(t *testing.T) {
	if err := Validate(models.GenerateMaterialsRequest{}); err == nil {
		t.Fatal("expected error when neither document_id nor handoff_token is set")
	}
	if err := Validate(models.GenerateMaterialsRequest{HandoffToken: "abc"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Username(t *testing.T) {
	tests := []struct {
		username string
		ok       bool
	}{
		{"ada-abcdef", true},
		{"grace_hopper", true},
		{"ab", false},
		{"has space", false},
		{"dots.not.allowed", false},
	}

	for _, tc := range tests {
		t.Run(tc.username, func(t *testing.T) {
			name := tc.username
			err := Validate(models.UpdateProfileRequest{Username: &name})
			if (err == nil) != tc.ok {
				t.Fatalf("username %q: expected ok=%v, got %v", tc.username, tc.ok, err)
			}
		})
	}
}

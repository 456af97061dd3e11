package models

import "github.com/google/uuid"

type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type MCQ struct {
	Question   string   `json:"question"`
	Options    []string `json:"options"`
	Answer     string   `json:"answer"`
	UserAnswer string   `json:"user_answer,omitempty"`
}

// StudyMaterials is the complete output of one generation run. It is never
// partially populated.
type StudyMaterials struct {
	Summary    string      `json:"summary"`
	Flashcards []Flashcard `json:"flashcards"`
	MCQs       []MCQ       `json:"mcqs"`
}

type GenerateMaterialsRequest struct {
	DocumentID   *uuid.UUID `json:"document_id" validate:"required_without=HandoffToken"`
	HandoffToken string     `json:"handoff_token" validate:"required_without=DocumentID"`
}

// GenerationConfig is stored on the job row and tells the worker where the
// source text comes from.
type GenerationConfig struct {
	DocumentID *uuid.UUID `json:"document_id,omitempty"`
	Summary    string     `json:"summary,omitempty"`
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"studybuddy-backend/internal/logger"
	"studybuddy-backend/internal/models"
)

const (
	flashcardCount = 5
	mcqCount       = 5
	mcqOptionCount = 4
)

// Conversation is one stateful AI chat session. Each message sees the
// replies to earlier messages on the same conversation.
type Conversation interface {
	Send(ctx context.Context, message string) (string, error)
}

// ProgressFunc is told when the pipeline moves to a new step.
type ProgressFunc func(step int, name string)

type StudyMaterialPipeline struct {
	log *logger.Logger
}

func NewStudyMaterialPipeline(log *logger.Logger) *StudyMaterialPipeline {
	return &StudyMaterialPipeline{log: log.With("service", "StudyMaterialPipeline")}
}

func summaryPrompt(text string) string {
	return "Please provide a concise summary of this text: " + text
}

func flashcardPrompt(summary string) string {
	return fmt.Sprintf(`Create %d flashcards from this summary. Return ONLY a JSON array with this format: [{"question": "...", "answer": "..."}]. Summary: %s`,
		flashcardCount, summary)
}

func mcqPrompt(summary string) string {
	return fmt.Sprintf(`Create %d multiple choice questions from this summary. Return ONLY a JSON array with this format: [{"question": "...", "options": ["...", "...", "...", "..."], "answer": "..."}]. The answer must be exactly one of the options. Summary: %s`,
		mcqCount, summary)
}

// Summarize asks conv for a summary of text and returns it verbatim.
func (p *StudyMaterialPipeline) Summarize(ctx context.Context, conv Conversation, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrNoTextExtracted
	}
	summary, err := conv.Send(ctx, summaryPrompt(text))
	if err != nil {
		p.log.Warn("summary step failed", "error", err)
		return "", fmt.Errorf("%w: summary: %v", ErrGenerationFailed, err)
	}
	return summary, nil
}

// Generate runs summary, flashcards and MCQs in that order on conv. Any
// failure discards everything produced so far.
func (p *StudyMaterialPipeline) Generate(ctx context.Context, conv Conversation, text string, progress ProgressFunc) (*models.StudyMaterials, error) {
	notify(progress, 1, "Summarizing document")
	summary, err := p.Summarize(ctx, conv, text)
	if err != nil {
		return nil, err
	}
	return p.GenerateFromSummary(ctx, conv, summary, progress)
}

// GenerateFromSummary produces flashcards and MCQs for an existing summary.
func (p *StudyMaterialPipeline) GenerateFromSummary(ctx context.Context, conv Conversation, summary string, progress ProgressFunc) (*models.StudyMaterials, error) {
	if strings.TrimSpace(summary) == "" {
		return nil, fmt.Errorf("%w: empty summary", ErrGenerationFailed)
	}

	notify(progress, 2, "Creating flashcards")
	raw, err := conv.Send(ctx, flashcardPrompt(summary))
	if err != nil {
		p.log.Warn("flashcard step failed", "error", err)
		return nil, fmt.Errorf("%w: flashcards: %v", ErrGenerationFailed, err)
	}
	flashcards, err := parseFlashcards(raw)
	if err != nil {
		p.log.Warn("flashcard output rejected", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	notify(progress, 3, "Writing quiz questions")
	raw, err = conv.Send(ctx, mcqPrompt(summary))
	if err != nil {
		p.log.Warn("mcq step failed", "error", err)
		return nil, fmt.Errorf("%w: mcqs: %v", ErrGenerationFailed, err)
	}
	mcqs, err := parseMCQs(raw)
	if err != nil {
		p.log.Warn("mcq output rejected", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	return &models.StudyMaterials{
		Summary:    summary,
		Flashcards: flashcards,
		MCQs:       mcqs,
	}, nil
}

func notify(progress ProgressFunc, step int, name string) {
	if progress != nil {
		progress(step, name)
	}
}

// stripFences removes a surrounding ```json / ``` code fence. Clean JSON is
// returned unchanged, so applying it twice is the same as once.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func parseFlashcards(raw string) ([]models.Flashcard, error) {
	var cards []models.Flashcard
	if err := json.Unmarshal([]byte(stripFences(raw)), &cards); err != nil {
		return nil, fmt.Errorf("flashcards are not a JSON array: %w", err)
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("no flashcards returned")
	}
	for i, c := range cards {
		if strings.TrimSpace(c.Question) == "" || strings.TrimSpace(c.Answer) == "" {
			return nil, fmt.Errorf("flashcard %d is missing a question or answer", i)
		}
	}
	return cards, nil
}

func parseMCQs(raw string) ([]models.MCQ, error) {
	var mcqs []models.MCQ
	if err := json.Unmarshal([]byte(stripFences(raw)), &mcqs); err != nil {
		return nil, fmt.Errorf("questions are not a JSON array: %w", err)
	}
	if len(mcqs) == 0 {
		return nil, fmt.Errorf("no questions returned")
	}
	for i := range mcqs {
		q := &mcqs[i]
		if strings.TrimSpace(q.Question) == "" || strings.TrimSpace(q.Answer) == "" {
			return nil, fmt.Errorf("question %d is missing text or answer", i)
		}
		if len(q.Options) != mcqOptionCount {
			return nil, fmt.Errorf("question %d has %d options, want %d", i, len(q.Options), mcqOptionCount)
		}
		q.UserAnswer = ""
	}
	return mcqs, nil
}

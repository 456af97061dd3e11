package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"studybuddy-backend/internal/logger"
	"studybuddy-backend/internal/models"
)

const tutorPersona = "You are a professional and knowledgeable AI tutor. Explain concepts clearly and step by step, " +
	"check the student's understanding with short follow-up questions, and keep answers focused on the subject being studied."

type GeminiService struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	log      *logger.Logger
	rateChan chan struct{} // Token bucket
}

func NewGeminiService(ctx context.Context, log *logger.Logger, apiKey, modelName string, concurrentReqs int) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetMaxOutputTokens(2048)
	model.SetTemperature(0.7)
	model.SetTopP(0.8)
	model.SetTopK(40)
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockMediumAndAbove},
	}

	if concurrentReqs < 1 {
		concurrentReqs = 1
	}
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:   client,
		model:    model,
		log:      log.With("service", "GeminiService", "model", modelName),
		rateChan: rateChan,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

// NewConversation opens a fresh chat session. Sessions are never shared
// between pipeline invocations.
func (s *GeminiService) NewConversation() Conversation {
	return &geminiConversation{svc: s, session: s.model.StartChat()}
}

// NewTutorConversation opens a chat seeded with the tutor persona and the
// client-supplied history.
func (s *GeminiService) NewTutorConversation(history []models.ChatMessage) Conversation {
	cs := s.model.StartChat()
	cs.History = tutorHistory(history)
	return &geminiConversation{svc: s, session: cs}
}

func tutorHistory(history []models.ChatMessage) []*genai.Content {
	out := []*genai.Content{
		{Role: "user", Parts: []genai.Part{genai.Text(tutorPersona)}},
		{Role: "model", Parts: []genai.Part{genai.Text("Understood. I'm ready to help you study.")}},
	}
	for _, m := range history {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		out = append(out, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}
	return out
}

type geminiConversation struct {
	svc     *GeminiService
	session *genai.ChatSession
}

func (c *geminiConversation) Send(ctx context.Context, message string) (string, error) {
	if err := c.svc.acquireRate(ctx); err != nil {
		return "", err
	}
	defer c.svc.releaseRate()

	resp, err := c.session.SendMessage(ctx, genai.Text(message))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			c.svc.log.Warn("Gemini candidate stopped early", "candidate", i, "finish_reason", cand.FinishReason.String())
		}
	}

	text := extractText(resp)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("Gemini returned empty text")
	}
	return text, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

package models

// ChatMessage represents a single turn of a tutor conversation.
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required"`
}

// ChatRequest is the payload sent to the tutor endpoint.
type ChatRequest struct {
	Message string        `json:"message" validate:"required,notblank,max=4000"`
	History []ChatMessage `json:"history" validate:"max=50,dive"`
}

// ChatResponse is the reply from the AI tutor.
type ChatResponse struct {
	Reply string `json:"reply"`
}

package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// RecallService builds prompts for the "recall memory" conversational
// feature and calls the Gemini generateContent API. The model is a black
// box; this service only shapes requests and unwraps responses.
type RecallService struct {
	apiKey string
	model  string
	client *http.Client
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// RecallTurn is one prior turn of the conversation, oldest first.
type RecallTurn struct {
	Role    string // "user" or "assistant"
	Content string
}

// NewRecallService creates a new recall chat service
func NewRecallService() (*RecallService, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = "gemini-1.5-flash"
	}

	return &RecallService{
		apiKey: apiKey,
		model:  model,
		client: &http.Client{},
	}, nil
}

// Chat sends the patient's message with their registered memories and
// recent history as context, and returns the assistant's reply.
func (s *RecallService) Chat(ctx context.Context, patientName string, memories []string, history []RecallTurn, message string) (string, error) {
	system := &geminiContent{
		Parts: []geminiPart{{Text: buildRecallPrompt(patientName, memories)}},
	}

	contents := make([]geminiContent, 0, len(history)+1)
	for _, turn := range history {
		role := "user"
		if turn.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: turn.Content}},
		})
	}
	contents = append(contents, geminiContent{
		Role:  "user",
		Parts: []geminiPart{{Text: message}},
	})

	body, err := json.Marshal(geminiRequest{SystemInstruction: system, Contents: contents})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := fmt.Sprintf(
		"https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s",
		s.model, s.apiKey,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	var result geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if result.Error != nil {
			return "", fmt.Errorf("generative API error: %s", result.Error.Message)
		}
		return "", fmt.Errorf("generative API returned status code %d", resp.StatusCode)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("generative API returned no candidates")
	}

	return result.Candidates[0].Content.Parts[0].Text, nil
}

func buildRecallPrompt(patientName string, memories []string) string {
	var b strings.Builder
	b.WriteString("You are a gentle memory companion for ")
	b.WriteString(patientName)
	b.WriteString(", a person living with dementia. ")
	b.WriteString("Answer warmly, in short simple sentences, and never tell them they are wrong. ")
	b.WriteString("Use the family-provided memories below to help them recall people and events.\n")
	for _, m := range memories {
		b.WriteString("- ")
		b.WriteString(m)
		b.WriteString("\n")
	}
	return b.String()
}

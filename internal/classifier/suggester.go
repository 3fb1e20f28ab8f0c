package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spec-kit/approval-service/internal/config"
	"github.com/spec-kit/approval-service/internal/domain"
)

// Suggester is the narrow contract to an external text-classification model.
// Any failure means "no suggestion"; the caller falls through to the next
// tier.
type Suggester interface {
	Suggest(ctx context.Context, categories []domain.Category, description string) (string, error)
}

// NewSuggester returns a chat-completions backed suggester, or nil when the
// external model is not configured.
func NewSuggester(cfg config.ClassifierConfig) Suggester {
	if !cfg.Configured() {
		return nil
	}
	return &chatSuggester{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// chatSuggester calls an OpenAI-compatible chat completions endpoint and
// returns the raw single-label reply.
type chatSuggester struct {
	cfg    config.ClassifierConfig
	client *http.Client
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (s *chatSuggester) Suggest(ctx context.Context, categories []domain.Category, description string) (string, error) {
	var catalog strings.Builder
	for _, cat := range categories {
		fmt.Fprintf(&catalog, "- %s: %s (Keywords: %s)\n", cat.Name, cat.Description, cat.Keywords)
	}

	payload := chatRequest{
		Model: s.cfg.Model,
		Messages: []chatMessage{
			{
				Role:    "system",
				Content: "You are a ticket classification assistant. Based on the ticket description, classify it into one of the available categories. Respond with ONLY the category name, nothing else.",
			},
			{
				Role:    "user",
				Content: fmt.Sprintf("Available categories:\n%s\nTicket description: %s\n\nWhich category does this ticket belong to?", catalog.String(), description),
			},
		},
		Temperature: 0.3,
		MaxTokens:   50,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(s.cfg.BaseURL, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("model endpoint returned status %d", resp.StatusCode)
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("model endpoint returned no choices")
	}
	return strings.TrimSpace(decoded.Choices[0].Message.Content), nil
}

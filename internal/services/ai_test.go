package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

type fakeCompletionClient struct {
	content string
	err     error
	prompts []string
}

func (f *fakeCompletionClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if len(req.Messages) > 0 {
		f.prompts = append(f.prompts, req.Messages[0].Content)
	}
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.content}},
		},
	}, nil
}

func TestGenerateFlashcardsParsesAndValidates(t *testing.T) {
	client := &fakeCompletionClient{content: "```json\n" + `[
		{"question": "What is Go?", "answer": "A programming language", "tags": ["go"], "difficulty": "easy"},
		{"question": "", "answer": "missing question", "tags": [], "difficulty": "easy"},
		{"question": "No answer", "answer": "", "tags": [], "difficulty": "easy"},
		{"question": "Bad difficulty", "answer": "yes", "tags": [], "difficulty": "extreme"},
		{"question": "No tags", "answer": "yes", "difficulty": "medium"},
		{"question": "Valid", "answer": "also valid", "tags": ["a", "b"], "difficulty": "hard"}
	]` + "\n```"}
	svc := newAIServiceWithClient(client, "test-model")

	cards, err := svc.GenerateFlashcards(context.Background(), "segment text", 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("expected 2 valid cards after dropping invalid ones, got %d: %+v", len(cards), cards)
	}
	if cards[0].Question != "What is Go?" || cards[1].Difficulty != "hard" {
		t.Errorf("unexpected surviving cards: %+v", cards)
	}
}

func TestGenerateFlashcardsSubstitutesPrompt(t *testing.T) {
	client := &fakeCompletionClient{content: "[]"}
	svc := newAIServiceWithClient(client, "test-model")

	if _, err := svc.GenerateFlashcards(context.Background(), "THE SEGMENT", 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.prompts) != 1 {
		t.Fatalf("expected exactly one provider call, got %d", len(client.prompts))
	}
	prompt := client.prompts[0]
	if !strings.Contains(prompt, "exactly 7 flashcards") {
		t.Errorf("count not substituted into prompt: %q", prompt)
	}
	if !strings.Contains(prompt, "THE SEGMENT") {
		t.Errorf("segment not substituted into prompt")
	}
	if strings.Contains(prompt, "{count}") || strings.Contains(prompt, "{text}") {
		t.Errorf("template placeholders leaked into prompt")
	}
}

func TestGenerateFlashcardsFormatError(t *testing.T) {
	for _, content := range []string{"not json at all", `{"question": "top-level object"}`, `"a string"`} {
		client := &fakeCompletionClient{content: content}
		svc := newAIServiceWithClient(client, "test-model")

		_, err := svc.GenerateFlashcards(context.Background(), "text", 3)
		if !errors.Is(err, ErrGenerationFormat) {
			t.Errorf("content %q: expected ErrGenerationFormat, got %v", content, err)
		}
	}
}

func TestGenerateFlashcardsProviderError(t *testing.T) {
	client := &fakeCompletionClient{err: errors.New("rate limited")}
	svc := newAIServiceWithClient(client, "test-model")

	_, err := svc.GenerateFlashcards(context.Background(), "text", 3)
	if !errors.Is(err, ErrGenerationProvider) {
		t.Fatalf("expected ErrGenerationProvider, got %v", err)
	}
}

func TestGenerateFlashcardsUnconfigured(t *testing.T) {
	svc := NewAIService("", "", "")
	if _, err := svc.GenerateFlashcards(context.Background(), "text", 3); !errors.Is(err, ErrAIUnavailable) {
		t.Fatalf("expected ErrAIUnavailable, got %v", err)
	}
}

func TestGenerateQuizQuestionsValidation(t *testing.T) {
	client := &fakeCompletionClient{content: `[
		{"kind": "mcq", "prompt": "Pick one", "options": ["a", "b", "c", "d"], "correctAnswer": "a", "tags": ["t"], "difficulty": "easy"},
		{"kind": "true_false", "prompt": "Sky is blue", "options": ["ignored"], "correctAnswer": "true", "tags": [], "difficulty": "medium"},
		{"kind": "essay", "prompt": "Unsupported kind", "correctAnswer": "x", "tags": [], "difficulty": "easy"},
		{"kind": "fill_blank", "prompt": "Capital of France is ___", "correctAnswer": "Paris", "tags": ["geo"], "difficulty": "hard"},
		{"kind": "mcq", "prompt": "No answer", "options": ["a"], "correctAnswer": "", "tags": [], "difficulty": "easy"}
	]`}
	svc := newAIServiceWithClient(client, "test-model")

	questions, err := svc.GenerateQuizQuestions(context.Background(), "segment", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(questions) != 3 {
		t.Fatalf("expected 3 valid questions, got %d: %+v", len(questions), questions)
	}
	if questions[0].Kind != "mcq" || len(questions[0].Options) != 4 {
		t.Errorf("mcq options must be kept: %+v", questions[0])
	}
	// Options are only meaningful for mcq.
	if questions[1].Options != nil {
		t.Errorf("non-mcq options must be discarded: %+v", questions[1])
	}
}

func TestExtractJSONArray(t *testing.T) {
	cases := map[string]string{
		"[1,2]":                         "[1,2]",
		"```json\n[1,2]\n```":           "[1,2]",
		"```\n[1,2]\n```":               "[1,2]",
		"Here you go: [1,2] hope that helps": "[1,2]",
		"```json\n[1,2]":                "[1,2]",
	}
	for input, want := range cases {
		if got := extractJSONArray(input); got != want {
			t.Errorf("extractJSONArray(%q) = %q, want %q", input, got, want)
		}
	}
}

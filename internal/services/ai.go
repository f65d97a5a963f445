package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"quizly/internal/models"
)

var (
	// ErrAIUnavailable is returned when the generation provider is not configured.
	ErrAIUnavailable = errors.New("generation provider is not configured")
	// ErrGenerationProvider wraps failures of the external completion call.
	ErrGenerationProvider = errors.New("generation provider request failed")
	// ErrGenerationFormat is returned when the provider's response is not a
	// parseable JSON array.
	ErrGenerationFormat = errors.New("generation response is not a valid item list")
)

// completionClient is the slice of the OpenAI-compatible client the
// generator needs; *openai.Client satisfies it.
type completionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// AIService renders generation prompts, calls the completion provider and
// parses its structured output into validated study items. One invocation
// makes exactly one provider call; failures are surfaced, never retried.
type AIService struct {
	client completionClient
	model  string
}

func NewAIService(apiKey, model, endpoint string) *AIService {
	if apiKey == "" {
		return &AIService{}
	}
	cfg := openai.DefaultConfig(apiKey)
	if endpoint != "" {
		cfg.BaseURL = endpoint
	}
	return &AIService{client: openai.NewClientWithConfig(cfg), model: model}
}

func newAIServiceWithClient(client completionClient, model string) *AIService {
	return &AIService{client: client, model: model}
}

func (s *AIService) disabled() bool {
	return s.client == nil || s.model == ""
}

// FlashcardData is one flashcard as produced by the provider.
type FlashcardData struct {
	Question   string            `json:"question"`
	Answer     string            `json:"answer"`
	Tags       []string          `json:"tags"`
	Difficulty models.Difficulty `json:"difficulty"`
}

// QuizQuestionData is one quiz question as produced by the provider.
type QuizQuestionData struct {
	Kind          models.QuestionKind `json:"kind"`
	Prompt        string              `json:"prompt"`
	Options       []string            `json:"options,omitempty"`
	CorrectAnswer string              `json:"correctAnswer"`
	Explanation   string              `json:"explanation,omitempty"`
	Tags          []string            `json:"tags"`
	Difficulty    models.Difficulty   `json:"difficulty"`
}

const flashcardPrompt = `You are an AI assistant that creates educational flashcards from text content. Generate flashcards that help students learn and remember key concepts.

Instructions:
1. Create concise, clear questions and answers
2. Focus on important concepts, definitions, facts, and relationships
3. Make questions specific and answerable
4. Assign appropriate difficulty levels (easy, medium, hard)
5. Add relevant tags for categorization
6. Return ONLY valid JSON without any markdown formatting or explanations

Generate exactly {count} flashcards from the following text:

{text}

Return a JSON array of flashcards with this exact structure:
[
  {
    "question": "Clear, specific question",
    "answer": "Concise, accurate answer",
    "tags": ["relevant", "tags"],
    "difficulty": "easy|medium|hard"
  }
]`

const quizPrompt = `You are an AI assistant that creates educational quiz questions from text content. Generate a mix of multiple choice, true/false, and fill-in-the-blank questions.

Instructions:
1. Create clear, unambiguous questions
2. For MCQ: provide 4 options with only one correct answer
3. For True/False: create statements that are clearly true or false
4. For Fill-in-blank: use "___" to indicate the blank
5. Include explanations for answers
6. Assign appropriate difficulty levels
7. Add relevant tags for categorization
8. Return ONLY valid JSON without any markdown formatting or explanations

Generate exactly {count} quiz questions from the following text (mix the question types):

{text}

Return a JSON array of quiz questions with this exact structure:
[
  {
    "kind": "mcq|true_false|fill_blank",
    "prompt": "Question text (use ___ for fill-in-blank)",
    "options": ["option1", "option2", "option3", "option4"],
    "correctAnswer": "correct answer",
    "explanation": "Brief explanation of the answer",
    "tags": ["relevant", "tags"],
    "difficulty": "easy|medium|hard"
  }
]

Note: Only include "options" field for MCQ questions.`

func renderPrompt(template, segment string, count int) string {
	r := strings.NewReplacer("{count}", strconv.Itoa(count), "{text}", segment)
	return r.Replace(template)
}

// GenerateFlashcards asks the provider for count flashcards extracted from
// one text segment. Items that fail field validation are dropped silently;
// the returned slice may be shorter than count.
func (s *AIService) GenerateFlashcards(ctx context.Context, segment string, count int) ([]FlashcardData, error) {
	raw, err := s.complete(ctx, renderPrompt(flashcardPrompt, segment, count))
	if err != nil {
		return nil, err
	}

	var parsed []FlashcardData
	if err := json.Unmarshal([]byte(extractJSONArray(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFormat, err)
	}

	cards := make([]FlashcardData, 0, len(parsed))
	for _, card := range parsed {
		if card.Question == "" || card.Answer == "" {
			continue
		}
		if card.Tags == nil || !models.ValidDifficulty(card.Difficulty) {
			continue
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// GenerateQuizQuestions asks the provider for count quiz questions extracted
// from one text segment, with the same drop-on-invalid policy as
// GenerateFlashcards. Options are only meaningful for mcq items.
func (s *AIService) GenerateQuizQuestions(ctx context.Context, segment string, count int) ([]QuizQuestionData, error) {
	raw, err := s.complete(ctx, renderPrompt(quizPrompt, segment, count))
	if err != nil {
		return nil, err
	}

	var parsed []QuizQuestionData
	if err := json.Unmarshal([]byte(extractJSONArray(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFormat, err)
	}

	questions := make([]QuizQuestionData, 0, len(parsed))
	for _, q := range parsed {
		if q.Prompt == "" || q.CorrectAnswer == "" {
			continue
		}
		if q.Tags == nil || !models.ValidDifficulty(q.Difficulty) || !models.ValidQuestionKind(q.Kind) {
			continue
		}
		if q.Kind != models.KindMCQ {
			q.Options = nil
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func (s *AIService) complete(ctx context.Context, prompt string) (string, error) {
	if s.disabled() {
		return "", ErrAIUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.7,
		MaxTokens:   4096,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationProvider, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: provider returned no content", ErrGenerationProvider)
	}
	return resp.Choices[0].Message.Content, nil
}

// extractJSONArray removes markdown code fence formatting if present and
// narrows the content down to the outermost JSON array.
func extractJSONArray(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		// Skip past the opening ``` and optional language identifier (e.g., "json")
		start := 3
		if newlineIdx := strings.Index(content[start:], "\n"); newlineIdx != -1 {
			start += newlineIdx + 1
		}
		if endIdx := strings.Index(content[start:], "```"); endIdx != -1 {
			content = content[start : start+endIdx]
		} else {
			content = content[start:]
		}
	}

	content = strings.TrimSpace(content)

	if startIdx := strings.Index(content, "["); startIdx != -1 {
		if endIdx := strings.LastIndex(content, "]"); endIdx > startIdx {
			content = content[startIdx : endIdx+1]
		}
	}

	return strings.TrimSpace(content)
}

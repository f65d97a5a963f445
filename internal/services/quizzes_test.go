package services

import (
	"context"
	"errors"
	"testing"

	"quizly/internal/models"
)

func mcqItem(prompt, answer string) models.QuizItem {
	return models.QuizItem{
		Kind:          models.KindMCQ,
		Prompt:        prompt,
		Options:       []string{answer, "wrong 1", "wrong 2", "wrong 3"},
		CorrectAnswer: answer,
		Tags:          []string{"test"},
		Difficulty:    models.DifficultyMedium,
	}
}

func TestGradeItemsScoring(t *testing.T) {
	items := []models.QuizItem{
		mcqItem("q0", "a"),
		mcqItem("q1", "b"),
		mcqItem("q2", "c"),
		mcqItem("q3", "d"),
	}
	answers := []models.SubmittedAnswer{
		{QuestionIndex: 0, UserAnswer: "a"},
		{QuestionIndex: 1, UserAnswer: "b"},
		{QuestionIndex: 2, UserAnswer: "c"},
		{QuestionIndex: 3, UserAnswer: "nope"},
	}

	graded, score := GradeItems(items, answers)
	if score != 75 {
		t.Fatalf("expected score 75, got %d", score)
	}
	for i := 0; i < 3; i++ {
		if !graded[i].IsCorrect {
			t.Errorf("item %d should be correct", i)
		}
	}
	if graded[3].IsCorrect {
		t.Errorf("item 3 should be incorrect")
	}
	if graded[3].UserAnswer != "nope" {
		t.Errorf("user answer must be recorded even when wrong, got %q", graded[3].UserAnswer)
	}
}

func TestGradeItemsIsDeterministic(t *testing.T) {
	items := []models.QuizItem{mcqItem("q0", "a"), mcqItem("q1", "b")}
	answers := []models.SubmittedAnswer{
		{QuestionIndex: 1, UserAnswer: "b"},
		{QuestionIndex: 0, UserAnswer: "x"},
	}

	_, first := GradeItems(items, answers)
	for i := 0; i < 5; i++ {
		if _, score := GradeItems(items, answers); score != first {
			t.Fatalf("score changed between identical calls: %d vs %d", first, score)
		}
	}
}

func TestGradeItemsCaseSensitivity(t *testing.T) {
	items := []models.QuizItem{
		{Kind: models.KindFillBlank, Prompt: "Capital of France is ___", CorrectAnswer: "paris"},
		{Kind: models.KindMCQ, Prompt: "pick", CorrectAnswer: "Paris"},
		{Kind: models.KindTrueFalse, Prompt: "statement", CorrectAnswer: "true"},
	}
	answers := []models.SubmittedAnswer{
		{QuestionIndex: 0, UserAnswer: "Paris"},
		{QuestionIndex: 1, UserAnswer: "paris"},
		{QuestionIndex: 2, UserAnswer: "True"},
	}

	graded, _ := GradeItems(items, answers)
	if !graded[0].IsCorrect {
		t.Errorf("fill_blank grading must be case-insensitive")
	}
	if graded[1].IsCorrect {
		t.Errorf("mcq grading must be case-sensitive")
	}
	if graded[2].IsCorrect {
		t.Errorf("true_false grading must be case-sensitive")
	}
}

func TestGradeItemsMissingAnswerGradesAsEmpty(t *testing.T) {
	items := []models.QuizItem{mcqItem("q0", "a"), mcqItem("q1", "b")}
	answers := []models.SubmittedAnswer{{QuestionIndex: 0, UserAnswer: "a"}}

	graded, score := GradeItems(items, answers)
	if score != 50 {
		t.Fatalf("expected score 50, got %d", score)
	}
	if graded[1].UserAnswer != "" || graded[1].IsCorrect {
		t.Errorf("missing answer must grade as empty and incorrect: %+v", graded[1])
	}
}

func TestSubmitAttemptLifecycle(t *testing.T) {
	conn := newTestDB(t)
	svc := NewQuizService(conn)
	ctx := context.Background()

	owner := seedUser(t, conn, "quiz@example.com")
	docID := seedDocument(t, conn, owner, "body")
	quizID := seedQuiz(t, conn, owner, docID, []models.QuizItem{
		mcqItem("q0", "a"), mcqItem("q1", "b"), mcqItem("q2", "c"), mcqItem("q3", "d"),
	})

	answers := []models.SubmittedAnswer{
		{QuestionIndex: 0, UserAnswer: "a"},
		{QuestionIndex: 1, UserAnswer: "b"},
		{QuestionIndex: 2, UserAnswer: "c"},
		{QuestionIndex: 3, UserAnswer: "wrong"},
	}

	score, err := svc.SubmitAttempt(ctx, owner, quizID, answers, 120)
	if err != nil {
		t.Fatalf("submit attempt: %v", err)
	}
	if score != 75 {
		t.Fatalf("expected score 75, got %d", score)
	}

	// The quiz is now terminal: graded items visible via results, second
	// submission rejected, score untouched.
	quiz, err := svc.GetResults(ctx, owner, quizID)
	if err != nil {
		t.Fatalf("get results: %v", err)
	}
	if !quiz.Attempted || !quiz.AttemptedAt.Valid {
		t.Errorf("quiz must be attempted with a timestamp: %+v", quiz)
	}
	if quiz.Score != 75 || quiz.Duration != 120 {
		t.Errorf("expected score 75 duration 120, got %d/%d", quiz.Score, quiz.Duration)
	}
	if len(quiz.Items) != 4 || !quiz.Items[0].IsCorrect || quiz.Items[3].IsCorrect {
		t.Errorf("graded items not persisted correctly: %+v", quiz.Items)
	}

	if _, err := svc.SubmitAttempt(ctx, owner, quizID, answers, 60); !errors.Is(err, ErrQuizAlreadyAttempted) {
		t.Fatalf("expected ErrQuizAlreadyAttempted, got %v", err)
	}
	quiz, _ = svc.GetResults(ctx, owner, quizID)
	if quiz.Score != 75 {
		t.Errorf("second submission must leave score at 75, got %d", quiz.Score)
	}
}

func TestSubmitAttemptPreconditions(t *testing.T) {
	conn := newTestDB(t)
	svc := NewQuizService(conn)
	ctx := context.Background()

	owner := seedUser(t, conn, "pre@example.com")
	docID := seedDocument(t, conn, owner, "body")

	t.Run("NotFound", func(t *testing.T) {
		if _, err := svc.SubmitAttempt(ctx, owner, 9999, []models.SubmittedAnswer{{}}, 0); !errors.Is(err, ErrQuizNotFound) {
			t.Fatalf("expected ErrQuizNotFound, got %v", err)
		}
	})

	t.Run("OtherOwner", func(t *testing.T) {
		stranger := seedUser(t, conn, "stranger@example.com")
		quizID := seedQuiz(t, conn, owner, docID, []models.QuizItem{mcqItem("q", "a")})
		if _, err := svc.SubmitAttempt(ctx, stranger, quizID, []models.SubmittedAnswer{{}}, 0); !errors.Is(err, ErrQuizNotFound) {
			t.Fatalf("ownership miss must look like not found, got %v", err)
		}
	})

	t.Run("NoItems", func(t *testing.T) {
		quizID := seedQuiz(t, conn, owner, docID, nil)
		if _, err := svc.SubmitAttempt(ctx, owner, quizID, []models.SubmittedAnswer{{}}, 0); !errors.Is(err, ErrQuizNoItems) {
			t.Fatalf("expected ErrQuizNoItems, got %v", err)
		}
	})

	t.Run("AnswerCountMismatch", func(t *testing.T) {
		quizID := seedQuiz(t, conn, owner, docID, []models.QuizItem{mcqItem("q0", "a"), mcqItem("q1", "b")})
		answers := []models.SubmittedAnswer{{QuestionIndex: 0, UserAnswer: "a"}}
		if _, err := svc.SubmitAttempt(ctx, owner, quizID, answers, 0); !errors.Is(err, ErrAnswerCountMismatch) {
			t.Fatalf("expected ErrAnswerCountMismatch, got %v", err)
		}

		// Nothing was graded.
		quiz, err := svc.GetForAttempt(ctx, owner, quizID)
		if err != nil {
			t.Fatalf("quiz should still be attemptable: %v", err)
		}
		for _, item := range quiz.Items {
			if item.UserAnswer != "" || item.IsCorrect {
				t.Errorf("items must stay ungraded after a rejected submission: %+v", item)
			}
		}
	})
}

func TestGetQuizForAttemptWithholdsAnswers(t *testing.T) {
	conn := newTestDB(t)
	svc := NewQuizService(conn)
	ctx := context.Background()

	owner := seedUser(t, conn, "view@example.com")
	docID := seedDocument(t, conn, owner, "body")
	item := mcqItem("q0", "a")
	item.Explanation = "because a"
	quizID := seedQuiz(t, conn, owner, docID, []models.QuizItem{item})

	quiz, err := svc.GetForAttempt(ctx, owner, quizID)
	if err != nil {
		t.Fatalf("get for attempt: %v", err)
	}
	if quiz.Items[0].CorrectAnswer != "" || quiz.Items[0].Explanation != "" {
		t.Errorf("attempt view must withhold answers and explanations: %+v", quiz.Items[0])
	}
	if quiz.Items[0].Prompt != "q0" || len(quiz.Items[0].Options) != 4 {
		t.Errorf("prompt and options must survive: %+v", quiz.Items[0])
	}
}

func TestQuizViewStateRejections(t *testing.T) {
	conn := newTestDB(t)
	svc := NewQuizService(conn)
	ctx := context.Background()

	owner := seedUser(t, conn, "state@example.com")
	docID := seedDocument(t, conn, owner, "body")

	emptyID := seedQuiz(t, conn, owner, docID, nil)
	if _, err := svc.GetForAttempt(ctx, owner, emptyID); !errors.Is(err, ErrQuizNoItems) {
		t.Errorf("empty quiz: expected ErrQuizNoItems, got %v", err)
	}

	quizID := seedQuiz(t, conn, owner, docID, []models.QuizItem{mcqItem("q0", "a")})
	if _, err := svc.GetResults(ctx, owner, quizID); !errors.Is(err, ErrQuizNotAttempted) {
		t.Errorf("results before attempt: expected ErrQuizNotAttempted, got %v", err)
	}

	if _, err := svc.SubmitAttempt(ctx, owner, quizID, []models.SubmittedAnswer{{QuestionIndex: 0, UserAnswer: "a"}}, 0); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := svc.GetForAttempt(ctx, owner, quizID); !errors.Is(err, ErrQuizAlreadyAttempted) {
		t.Errorf("attempt view after grading: expected ErrQuizAlreadyAttempted, got %v", err)
	}
}

package services

import (
	"context"
	"testing"

	"quizly/internal/models"
)

func TestDashboardStats(t *testing.T) {
	conn := newTestDB(t)
	svc := NewDashboardService(conn)
	quizzes := NewQuizService(conn)
	ctx := context.Background()

	owner := seedUser(t, conn, "dash@example.com")
	docID := seedDocument(t, conn, owner, "body")
	seedFlashcard(t, conn, owner, docID, "q1", []string{"biology", "cells"}, models.DifficultyEasy)
	seedFlashcard(t, conn, owner, docID, "q2", []string{"biology"}, models.DifficultyMedium)

	quizID := seedQuiz(t, conn, owner, docID, []models.QuizItem{
		mcqItem("q0", "a"), mcqItem("q1", "b"),
	})
	if _, err := quizzes.SubmitAttempt(ctx, owner, quizID, []models.SubmittedAnswer{
		{QuestionIndex: 0, UserAnswer: "a"},
		{QuestionIndex: 1, UserAnswer: "wrong"},
	}, 300); err != nil {
		t.Fatalf("submit: %v", err)
	}
	// One more quiz that was never attempted.
	seedQuiz(t, conn, owner, docID, []models.QuizItem{mcqItem("q0", "a")})

	stats, err := svc.Stats(ctx, owner)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	if stats.TotalDoc != 1 || stats.TotalFlashcard != 2 || stats.TotalQuiz != 2 {
		t.Errorf("totals wrong: %+v", stats)
	}
	if stats.DocumentGenerated != 0 || stats.DocumentWaiting != 1 {
		t.Errorf("generation progress wrong: %+v", stats)
	}
	if stats.TotalQues != 3 || stats.MediumQuiz != 3 {
		t.Errorf("difficulty spread wrong: got total %d medium %d", stats.TotalQues, stats.MediumQuiz)
	}

	if len(stats.QuizList) != 1 {
		t.Fatalf("expected one attempted quiz in the recent list, got %d", len(stats.QuizList))
	}
	if stats.QuizList[0].TotalQues != 2 || stats.QuizList[0].CorrectAnswer != 1 {
		t.Errorf("recent quiz summary wrong: %+v", stats.QuizList[0])
	}

	// Averages over the single attempted quiz: score 50, duration 300.
	if stats.AvgScore != 50 {
		t.Errorf("expected avg score 50, got %v", stats.AvgScore)
	}
	if stats.AvgDuration != 300 {
		t.Errorf("expected avg duration 300, got %v", stats.AvgDuration)
	}
	if stats.PercentAvgDuration != 50 {
		t.Errorf("expected 50%% of the assumed max duration, got %v", stats.PercentAvgDuration)
	}

	if stats.TotalFlashcardTags != 2 {
		t.Errorf("expected 2 distinct tags, got %d", stats.TotalFlashcardTags)
	}
	if len(stats.FlashcardTags) == 0 || stats.FlashcardTags[0].Label != "biology" || stats.FlashcardTags[0].Value != 2 {
		t.Errorf("top tag wrong: %+v", stats.FlashcardTags)
	}
}

func TestDashboardStatsEmptyUser(t *testing.T) {
	conn := newTestDB(t)
	svc := NewDashboardService(conn)

	owner := seedUser(t, conn, "fresh@example.com")
	stats, err := svc.Stats(context.Background(), owner)
	if err != nil {
		t.Fatalf("stats on empty data: %v", err)
	}
	if stats.TotalDoc != 0 || stats.AvgScore != 0 || stats.AvgDuration != 0 {
		t.Errorf("empty user must produce zeroed stats: %+v", stats)
	}
	if stats.QuizList == nil || stats.FlashcardTags == nil {
		t.Errorf("lists must be non-nil for JSON encoding")
	}
}

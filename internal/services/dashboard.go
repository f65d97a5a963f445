package services

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"quizly/internal/models"
)

// DashboardService aggregates per-user study statistics for the dashboard
// view. Read-only.
type DashboardService struct {
	db *sql.DB
}

func NewDashboardService(db *sql.DB) *DashboardService {
	return &DashboardService{db: db}
}

// RecentQuiz is one of the latest attempted quizzes shown on the dashboard.
type RecentQuiz struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	TotalQues     int    `json:"totalQues"`
	CorrectAnswer int    `json:"correctAnswer"`
}

// TagCount is one label/value pair in the flashcard tag breakdown.
type TagCount struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// DashboardStats mirrors the dashboard payload: totals, recent attempted
// quizzes, generation progress, question difficulty spread and averages.
type DashboardStats struct {
	TotalDoc           int          `json:"totalDoc"`
	TotalFlashcard     int          `json:"totalFlashcard"`
	TotalQuiz          int          `json:"totalQuiz"`
	QuizList           []RecentQuiz `json:"quizList"`
	DocumentGenerated  int          `json:"documentGenerated"`
	DocumentWaiting    int          `json:"documentWaiting"`
	EasyQuiz           int          `json:"easyQuiz"`
	MediumQuiz         int          `json:"mediumQuiz"`
	HardQuiz           int          `json:"hardQuiz"`
	TotalQues          int          `json:"totalQues"`
	AvgDuration        float64      `json:"avgDuration"`
	PercentAvgDuration float64      `json:"percentAvgDuration"`
	AvgScore           float64      `json:"avgScore"`
	PercentAvgScore    float64      `json:"percentAvgScore"`
	TotalFlashcardTags int          `json:"totalFlashcardTags"`
	FlashcardTags      []TagCount   `json:"flashCardsTags"`
}

// maxQuizDuration is the assumed ceiling, in seconds, used to express the
// average attempt duration as a percentage.
const maxQuizDuration = 600

// Stats computes the owner's dashboard aggregates.
func (s *DashboardService) Stats(ctx context.Context, ownerID int64) (*DashboardStats, error) {
	stats := &DashboardStats{
		QuizList:      []RecentQuiz{},
		FlashcardTags: []TagCount{},
	}

	if err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM documents WHERE owner_id = ?),
			(SELECT COUNT(*) FROM documents WHERE owner_id = ? AND flashcards_generated = 1),
			(SELECT COUNT(*) FROM flashcards WHERE owner_id = ?),
			(SELECT COUNT(*) FROM quizzes WHERE owner_id = ?);
	`, ownerID, ownerID, ownerID, ownerID).Scan(
		&stats.TotalDoc, &stats.DocumentGenerated, &stats.TotalFlashcard, &stats.TotalQuiz); err != nil {
		return nil, fmt.Errorf("count totals: %w", err)
	}
	stats.DocumentWaiting = stats.TotalDoc - stats.DocumentGenerated

	// Latest attempted quizzes with their correct-answer counts.
	rows, err := s.db.QueryContext(ctx, `
		SELECT q.id, q.title,
			   (SELECT COUNT(*) FROM quiz_items i WHERE i.quiz_id = q.id),
			   (SELECT COUNT(*) FROM quiz_items i WHERE i.quiz_id = q.id AND i.is_correct = 1)
		FROM quizzes q
		WHERE q.owner_id = ? AND q.attempted = 1
		ORDER BY q.created_at DESC, q.id DESC
		LIMIT 4;
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("recent quizzes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var q RecentQuiz
		if err := rows.Scan(&q.ID, &q.Title, &q.TotalQues, &q.CorrectAnswer); err != nil {
			return nil, fmt.Errorf("scan recent quiz: %w", err)
		}
		stats.QuizList = append(stats.QuizList, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			   COALESCE(SUM(CASE WHEN i.difficulty = ? THEN 1 ELSE 0 END), 0),
			   COALESCE(SUM(CASE WHEN i.difficulty = ? THEN 1 ELSE 0 END), 0),
			   COALESCE(SUM(CASE WHEN i.difficulty = ? THEN 1 ELSE 0 END), 0)
		FROM quiz_items i
		JOIN quizzes q ON q.id = i.quiz_id
		WHERE q.owner_id = ?;
	`, models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard, ownerID).Scan(
		&stats.TotalQues, &stats.EasyQuiz, &stats.MediumQuiz, &stats.HardQuiz); err != nil {
		return nil, fmt.Errorf("difficulty spread: %w", err)
	}

	var attempted int
	var sumDuration, sumScore sql.NullFloat64
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), SUM(duration), SUM(score)
		FROM quizzes
		WHERE owner_id = ? AND attempted = 1;
	`, ownerID).Scan(&attempted, &sumDuration, &sumScore); err != nil {
		return nil, fmt.Errorf("attempt averages: %w", err)
	}
	divisor := float64(attempted)
	if attempted == 0 {
		divisor = 1
	}
	avgDuration := sumDuration.Float64 / divisor
	avgScore := sumScore.Float64 / divisor
	stats.AvgDuration = round2(avgDuration)
	stats.PercentAvgDuration = round2(avgDuration / maxQuizDuration * 100)
	stats.AvgScore = round2(avgScore)
	stats.PercentAvgScore = round2(avgScore)

	// Flashcard tag breakdown, most used first.
	tagRows, err := s.db.QueryContext(ctx, `
		SELECT je.value, COUNT(*) AS uses
		FROM flashcards f, json_each(f.tags) je
		WHERE f.owner_id = ?
		GROUP BY je.value
		ORDER BY uses DESC, je.value ASC;
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("tag breakdown: %w", err)
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var tc TagCount
		if err := tagRows.Scan(&tc.Label, &tc.Value); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		stats.TotalFlashcardTags++
		if len(stats.FlashcardTags) < 6 {
			stats.FlashcardTags = append(stats.FlashcardTags, tc)
		}
	}
	if err := tagRows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

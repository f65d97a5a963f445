package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"quizly/internal/models"
	"quizly/internal/services"
)

const maxMultipartMemory = 32 << 20 // 32 MB

// Server routes the HTTP API over the study services. Handlers validate
// request shape, delegate to services and translate sentinel errors into
// status codes; they hold no business logic of their own.
type Server struct {
	mux        *http.ServeMux
	users      *services.UserService
	documents  *services.DocumentService
	flashcards *services.FlashcardService
	quizzes    *services.QuizService
	generation *services.GenerationService
	dashboard  *services.DashboardService
	jwtSecret  string
}

func NewServer(
	users *services.UserService,
	documents *services.DocumentService,
	flashcards *services.FlashcardService,
	quizzes *services.QuizService,
	generation *services.GenerationService,
	dashboard *services.DashboardService,
	jwtSecret string,
) *Server {
	s := &Server{
		mux:        http.NewServeMux(),
		users:      users,
		documents:  documents,
		flashcards: flashcards,
		quizzes:    quizzes,
		generation: generation,
		dashboard:  dashboard,
		jwtSecret:  jwtSecret,
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/auth/register", s.handleRegister)
	s.mux.HandleFunc("/api/auth/login", s.handleLogin)
	s.mux.HandleFunc("/api/auth/profile", s.requireAuth(s.handleProfile))
	s.mux.HandleFunc("/api/documents", s.requireAuth(s.handleDocuments))
	s.mux.HandleFunc("/api/documents/", s.requireAuth(s.handleDocumentActions))
	s.mux.HandleFunc("/api/flashcards", s.requireAuth(s.handleListFlashcards))
	s.mux.HandleFunc("/api/flashcards/export/", s.requireAuth(s.handleExportFlashcards))
	s.mux.HandleFunc("/api/quizzes", s.requireAuth(s.handleListQuizzes))
	s.mux.HandleFunc("/api/quizzes/", s.requireAuth(s.handleQuizActions))
	s.mux.HandleFunc("/api/dashboard", s.requireAuth(s.handleDashboard))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || len(req.Password) < 6 {
		writeError(w, http.StatusBadRequest, "name, email and a password of at least 6 characters are required")
		return
	}

	user, err := s.users.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		serviceError(w, err)
		return
	}

	token, err := CreateToken(s.jwtSecret, user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"token": token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		serviceError(w, err)
		return
	}

	token, err := CreateToken(s.jwtSecret, user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	user, err := s.users.Get(r.Context(), userIDFrom(r))
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user": map[string]any{
			"id":        user.ID,
			"name":      user.Name,
			"email":     user.Email,
			"createdAt": user.CreatedAt,
		},
	})
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListDocuments(w, r)
	case http.MethodPost:
		s.handleUploadDocuments(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 10)

	docs, total, err := s.documents.List(r.Context(), userIDFrom(r), page, limit)
	if err != nil {
		serviceError(w, err)
		return
	}
	if docs == nil {
		docs = []services.DocumentSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents":  docs,
		"pagination": pagination(page, limit, total),
	})
}

func (s *Server) handleUploadDocuments(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	files := r.MultipartForm.File["document"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no document files uploaded")
		return
	}

	type fileResult struct {
		Name       string `json:"name"`
		Status     string `json:"status"`
		DocumentID int64  `json:"documentId,omitempty"`
		Error      string `json:"error,omitempty"`
	}

	ownerID := userIDFrom(r)
	results := make([]fileResult, 0, len(files))
	for _, header := range files {
		src, err := header.Open()
		if err != nil {
			results = append(results, fileResult{Name: header.Filename, Status: "skipped", Error: err.Error()})
			continue
		}
		doc, err := s.documents.CreateFromUpload(r.Context(), ownerID, header.Filename, header.Size, src)
		src.Close()
		if err != nil {
			// A bad file skips, the rest of the batch still uploads.
			results = append(results, fileResult{Name: header.Filename, Status: "skipped", Error: err.Error()})
			continue
		}
		results = append(results, fileResult{Name: header.Filename, Status: "created", DocumentID: doc.ID})
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"files": results})
}

// handleDocumentActions dispatches /api/documents/{id}/flashcards and
// /api/documents/{id}/quiz.
func (s *Server) handleDocumentActions(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/documents/"), "/")
	if len(parts) != 2 {
		http.NotFound(w, r)
		return
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document ID")
		return
	}

	switch parts[1] {
	case "flashcards":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		created, err := s.generation.GenerateFlashcards(r.Context(), userIDFrom(r), id, queryInt(r, "count", 10))
		if err != nil {
			serviceError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"createdCount": created})
	case "quiz":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		quizID, err := s.generation.GenerateQuiz(r.Context(), userIDFrom(r), id, queryInt(r, "count", 10))
		if err != nil {
			serviceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"quizId": quizID})
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleListFlashcards(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)
	filter := services.FlashcardFilter{
		DocumentIDs: queryIDList(r, "document"),
		Tags:        queryList(r, "tags"),
		Difficulty:  models.Difficulty(r.URL.Query().Get("difficulty")),
		Page:        page,
		Limit:       limit,
	}

	cards, total, err := s.flashcards.List(r.Context(), userIDFrom(r), filter)
	if err != nil {
		serviceError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(cards))
	for _, card := range cards {
		out = append(out, map[string]any{
			"id":         card.ID,
			"documentId": card.DocumentID,
			"question":   card.Question,
			"answer":     card.Answer,
			"tags":       card.Tags,
			"difficulty": card.Difficulty,
			"createdAt":  card.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"flashcards": out,
		"pagination": pagination(page, limit, total),
	})
}

func (s *Server) handleExportFlashcards(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/api/flashcards/export/")
	documentID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document ID")
		return
	}

	ownerID := userIDFrom(r)
	doc, err := s.documents.Get(r.Context(), ownerID, documentID)
	if err != nil {
		serviceError(w, err)
		return
	}

	cards, err := s.flashcards.ListByDocument(r.Context(), ownerID, documentID)
	if err != nil {
		serviceError(w, err)
		return
	}
	if len(cards) == 0 {
		serviceError(w, services.ErrNoFlashcards)
		return
	}

	title := doc.Title + " - Flashcards"
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sanitizeFilename(title)+".pdf"))
	if err := services.WriteFlashcardsPDF(w, title, cards); err != nil {
		// Headers are already out; nothing useful left to send.
		return
	}
}

func (s *Server) handleListQuizzes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)
	quizzes, total, err := s.quizzes.List(r.Context(), userIDFrom(r), queryIDList(r, "document"), page, limit)
	if err != nil {
		serviceError(w, err)
		return
	}
	if quizzes == nil {
		quizzes = []services.QuizSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"quizzes":    quizzes,
		"pagination": pagination(page, limit, total),
	})
}

// handleQuizActions dispatches /api/quizzes/{id}, /api/quizzes/{id}/submit
// and /api/quizzes/{id}/results.
func (s *Server) handleQuizActions(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/quizzes/"), "/")
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid quiz ID")
		return
	}

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	} else if len(parts) > 2 {
		http.NotFound(w, r)
		return
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		s.handleGetQuizForAttempt(w, r, id)
	case "submit":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		s.handleSubmitQuiz(w, r, id)
	case "results":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		s.handleQuizResults(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleGetQuizForAttempt(w http.ResponseWriter, r *http.Request, id int64) {
	quiz, err := s.quizzes.GetForAttempt(r.Context(), userIDFrom(r), id)
	if err != nil {
		serviceError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(quiz.Items))
	for _, item := range quiz.Items {
		entry := map[string]any{
			"kind":       item.Kind,
			"prompt":     item.Prompt,
			"tags":       item.Tags,
			"difficulty": item.Difficulty,
		}
		if item.Kind == models.KindMCQ {
			entry["options"] = item.Options
		}
		items = append(items, entry)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"quiz": map[string]any{
			"id":         quiz.ID,
			"documentId": quiz.DocumentID,
			"title":      quiz.Title,
			"items":      items,
			"createdAt":  quiz.CreatedAt,
		},
	})
}

func (s *Server) handleSubmitQuiz(w http.ResponseWriter, r *http.Request, id int64) {
	var req struct {
		Answers  []models.SubmittedAnswer `json:"answers"`
		Duration *int                     `json:"duration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Answers) == 0 {
		writeError(w, http.StatusBadRequest, "at least one answer is required")
		return
	}
	for _, ans := range req.Answers {
		if ans.QuestionIndex < 0 {
			writeError(w, http.StatusBadRequest, "questionIndex must be non-negative")
			return
		}
	}
	duration := 0
	if req.Duration != nil {
		if *req.Duration < 0 {
			writeError(w, http.StatusBadRequest, "duration must be non-negative")
			return
		}
		duration = *req.Duration
	}

	score, err := s.quizzes.SubmitAttempt(r.Context(), userIDFrom(r), id, req.Answers, duration)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"score": score, "duration": duration})
}

func (s *Server) handleQuizResults(w http.ResponseWriter, r *http.Request, id int64) {
	quiz, err := s.quizzes.GetResults(r.Context(), userIDFrom(r), id)
	if err != nil {
		serviceError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(quiz.Items))
	for _, item := range quiz.Items {
		entry := map[string]any{
			"kind":          item.Kind,
			"prompt":        item.Prompt,
			"correctAnswer": item.CorrectAnswer,
			"explanation":   item.Explanation,
			"tags":          item.Tags,
			"difficulty":    item.Difficulty,
			"userAnswer":    item.UserAnswer,
			"isCorrect":     item.IsCorrect,
		}
		if item.Kind == models.KindMCQ {
			entry["options"] = item.Options
		}
		items = append(items, entry)
	}

	var attemptedDate any
	if quiz.AttemptedAt.Valid {
		attemptedDate = quiz.AttemptedAt.Time
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"quiz": map[string]any{
			"id":            quiz.ID,
			"documentId":    quiz.DocumentID,
			"title":         quiz.Title,
			"items":         items,
			"attempted":     quiz.Attempted,
			"attemptedDate": attemptedDate,
			"score":         quiz.Score,
			"duration":      quiz.Duration,
			"createdAt":     quiz.CreatedAt,
		},
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	stats, err := s.dashboard.Stats(r.Context(), userIDFrom(r))
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// serviceError maps service sentinel errors onto HTTP status codes.
func serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrDocumentNotFound),
		errors.Is(err, services.ErrQuizNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrNoFlashcards):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrAlreadyGenerated),
		errors.Is(err, services.ErrQuizNoItems),
		errors.Is(err, services.ErrQuizAlreadyAttempted),
		errors.Is(err, services.ErrQuizNotAttempted),
		errors.Is(err, services.ErrAnswerCountMismatch),
		errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrEmptyDocument),
		errors.Is(err, services.ErrUnsupportedFileType):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrGenerationProvider),
		errors.Is(err, services.ErrGenerationFormat),
		errors.Is(err, services.ErrAIUnavailable):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 1 {
		return fallback
	}
	return val
}

func queryList(r *http.Request, key string) []string {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func queryIDList(r *http.Request, key string) []int64 {
	var ids []int64
	for _, part := range queryList(r, key) {
		if id, err := strconv.ParseInt(part, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func pagination(page, limit, total int) map[string]int {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return map[string]int{"current": page, "pages": pages, "total": total}
}

func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// Response is already committed; nothing to do.
		_ = err
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

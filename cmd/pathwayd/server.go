package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/lernio/pathway/internal/engine"
	"github.com/lernio/pathway/internal/notify"
	"github.com/lernio/pathway/internal/path"
	"github.com/lernio/pathway/internal/platform/cache"
	"github.com/lernio/pathway/internal/platform/config"
	"github.com/lernio/pathway/internal/platform/database"
	"github.com/lernio/pathway/internal/progress"
	"github.com/lernio/pathway/internal/quiz"
	"github.com/lernio/pathway/internal/remote"
	"github.com/lernio/pathway/internal/report"
)

type serverDeps struct {
	cfg       *config.Config
	loader    *path.Loader
	events    progress.EventLogger
	outbox    progress.Outbox
	quizzes   quiz.Provider
	notifier  engine.Notifier
	wsChannel *notify.WebSocketChannel
	db        *database.DB
	cache     *cache.Cache
}

// server holds one engine per (path, learner) pair, created lazily on the
// first request that names the pair.
type server struct {
	deps serverDeps

	mu      sync.Mutex
	engines map[string]*engine.Engine
}

func newServer(deps serverDeps) *server {
	return &server{
		deps:    deps,
		engines: make(map[string]*engine.Engine),
	}
}

func (s *server) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("GET /api/paths", s.handleListPaths)
	mux.HandleFunc("GET /api/progress/{pathID}", s.handleProgress)
	mux.HandleFunc("POST /api/topic/start/{pathID}/{topic}", s.handleStartTopic)
	mux.HandleFunc("POST /api/lesson/complete/{pathID}/{lessonID}", s.handleCompleteLesson)
	mux.HandleFunc("POST /api/quiz/begin/{pathID}/{topic}", s.handleBeginQuiz)
	mux.HandleFunc("POST /api/quiz/answer/{pathID}", s.handleAnswerQuiz)
	mux.HandleFunc("POST /api/quiz/submit/{pathID}", s.handleSubmitQuiz)
	mux.HandleFunc("GET /api/report/{pathID}", s.handleReport)

	if s.deps.wsChannel != nil {
		mux.Handle("GET /ws", s.deps.wsChannel)
	}
	return mux
}

// engineFor returns the started engine for a path/learner pair, creating
// it on first use.
func (s *server) engineFor(r *http.Request, pathID string) (*engine.Engine, error) {
	learnerID := r.URL.Query().Get("learner")
	if learnerID == "" {
		return nil, fmt.Errorf("learner query parameter is required")
	}

	key := pathID + "|" + learnerID

	s.mu.Lock()
	defer s.mu.Unlock()
	if eng, ok := s.engines[key]; ok {
		return eng, nil
	}

	p, ok := s.deps.loader.Get(pathID)
	if !ok {
		return nil, fmt.Errorf("unknown path: %s", pathID)
	}

	session := remote.Session{LearnerID: learnerID, Token: s.deps.cfg.Remote.Token}
	router := remote.NewRouter()
	for i, endpoint := range s.deps.cfg.Remote.Endpoints {
		name := fmt.Sprintf("backend-%d", i+1)
		router.Register(name, remote.NewClient(endpoint, session, remote.WithName(name)))
	}
	sync := remote.NewSynchronizer(router, s.deps.outbox, s.deps.events, session)

	eng, err := engine.New(engine.Config{
		Path:      p,
		LearnerID: learnerID,
		Sync:      sync,
		Quizzes:   s.deps.quizzes,
		Events:    s.deps.events,
		Notifier:  s.deps.notifier,
	})
	if err != nil {
		return nil, err
	}
	if err := eng.Start(r.Context()); err != nil {
		return nil, err
	}

	s.engines[key] = eng
	return eng, nil
}

func (s *server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.deps.db != nil {
		if err := s.deps.db.HealthCheck(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "database unavailable"})
			return
		}
	}
	if s.deps.cache != nil {
		if err := s.deps.cache.HealthCheck(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "cache unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type pathSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TopicCount int    `json:"topicCount"`
}

func (s *server) handleListPaths(w http.ResponseWriter, _ *http.Request) {
	paths := s.deps.loader.All()
	out := make([]pathSummary, 0, len(paths))
	for _, p := range paths {
		out = append(out, pathSummary{
			ID:         p.Key(),
			Name:       p.Name,
			TopicCount: p.TopicCount(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type progressResponse struct {
	PathID      string              `json:"pathId"`
	LearnerID   string              `json:"learnerId"`
	ResumeIndex int                 `json:"resumeIndex"`
	Percent     float64             `json:"percent"`
	Complete    bool                `json:"complete"`
	FinalScore  *float64            `json:"finalScore,omitempty"`
	Topics      []topicProgressView `json:"topics"`
}

type topicProgressView struct {
	Ordinal          int     `json:"ordinal"`
	Name             string  `json:"name"`
	State            string  `json:"state"`
	CompletedLessons int     `json:"completedLessons"`
	TotalLessons     int     `json:"totalLessons"`
	QuizScore        float64 `json:"quizScore,omitempty"`
}

func (s *server) handleProgress(w http.ResponseWriter, r *http.Request) {
	pathID := r.PathValue("pathID")
	eng, err := s.engineFor(r, pathID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rec, err := eng.Snapshot()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	states, err := eng.GateStates()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	resume, err := eng.ResumeIndex()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	p, _ := s.deps.loader.Get(pathID)
	resp := progressResponse{
		PathID:      pathID,
		LearnerID:   rec.LearnerID,
		ResumeIndex: resume,
		Percent:     progress.OverallPercent(rec, p.TopicCount()),
		Complete:    progress.IsPathComplete(rec, p.TopicCount()),
		Topics:      make([]topicProgressView, p.TopicCount()),
	}
	if resp.Complete {
		if final, ok := progress.FinalScore(rec); ok {
			resp.FinalScore = &final
		}
	}
	for i, topic := range p.Topics {
		tp := rec.Topic(i)
		resp.Topics[i] = topicProgressView{
			Ordinal:          i,
			Name:             topic.Name,
			State:            states[i].String(),
			CompletedLessons: tp.LessonCount(),
			TotalLessons:     len(topic.Lessons),
			QuizScore:        tp.QuizScore,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleStartTopic(w http.ResponseWriter, r *http.Request) {
	eng, err := s.engineFor(r, r.PathValue("pathID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ordinal, err := strconv.Atoi(r.PathValue("topic"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid topic ordinal"))
		return
	}
	if err := eng.StartTopic(ordinal); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleCompleteLesson(w http.ResponseWriter, r *http.Request) {
	eng, err := s.engineFor(r, r.PathValue("pathID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := eng.CompleteLesson(r.Context(), r.PathValue("lessonID")); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type quizView struct {
	ID        string          `json:"id"`
	TopicName string          `json:"topicName"`
	Questions []quiz.Question `json:"questions"`
	TimeLimit int             `json:"timeLimit"`
	State     string          `json:"state"`
}

func (s *server) handleBeginQuiz(w http.ResponseWriter, r *http.Request) {
	eng, err := s.engineFor(r, r.PathValue("pathID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ordinal, err := strconv.Atoi(r.PathValue("topic"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid topic ordinal"))
		return
	}

	session, err := eng.BeginQuiz(r.Context(), ordinal)
	if err != nil {
		status := http.StatusConflict
		if session != nil {
			// Quiz load failed; the session can be retried.
			status = http.StatusBadGateway
		}
		writeError(w, status, err)
		return
	}

	q, _ := session.Quiz()
	writeJSON(w, http.StatusOK, quizView{
		ID:        q.ID,
		TopicName: q.TopicName,
		Questions: q.Questions,
		TimeLimit: q.TimeLimit,
		State:     session.State().String(),
	})
}

type answerRequest struct {
	Index  int    `json:"index"`
	Answer string `json:"answer"`
}

func (s *server) handleAnswerQuiz(w http.ResponseWriter, r *http.Request) {
	eng, err := s.engineFor(r, r.PathValue("pathID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	session, _, ok := eng.Session()
	if !ok {
		writeError(w, http.StatusConflict, fmt.Errorf("no active quiz"))
		return
	}

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}
	if err := session.Answer(req.Index, req.Answer); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type submitResponse struct {
	Score   float64 `json:"score"`
	Correct int     `json:"correct"`
	Total   int     `json:"total"`
	Passed  bool    `json:"passed"`
}

func (s *server) handleSubmitQuiz(w http.ResponseWriter, r *http.Request) {
	eng, err := s.engineFor(r, r.PathValue("pathID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	session, _, ok := eng.Session()
	if !ok {
		writeError(w, http.StatusConflict, fmt.Errorf("no active quiz"))
		return
	}

	result, err := session.Submit(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{
		Score:   result.Score,
		Correct: result.Correct,
		Total:   result.Total,
		Passed:  result.Score >= progress.PassingScore,
	})
}

func (s *server) handleReport(w http.ResponseWriter, r *http.Request) {
	pathID := r.PathValue("pathID")
	eng, err := s.engineFor(r, pathID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rec, err := eng.Snapshot()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	p, _ := s.deps.loader.Get(pathID)

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pathID+"-progress.xlsx"))
	if err := report.WriteXLSX(w, p, rec); err != nil {
		slog.Error("report export failed", "path_id", pathID, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

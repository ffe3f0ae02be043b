package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"quizard-service/internal/app"
	"quizard-service/internal/domain"
)

// SnapshotReader serves public quiz views, usually through a cache.
type SnapshotReader interface {
	QuizSnapshot(ctx context.Context, ref string) (domain.QuizSnapshot, error)
}

// Handler exposes the quizard operations over JSON. The caller identity is
// taken from the X-Caller-Id header; authenticating it is the job of the
// surrounding infrastructure, not of this service.
type Handler struct {
	system    *app.System
	snapshots SnapshotReader
	logger    *zap.Logger
}

func NewHandler(system *app.System, snapshots SnapshotReader, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{system: system, snapshots: snapshots, logger: logger}
}

// Register mounts all routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /quizzes", h.createQuiz)
	mux.HandleFunc("GET /quizzes/{ref}", h.getQuiz)
	mux.HandleFunc("POST /quizzes/{ref}/attempts", h.attemptQuiz)
	mux.HandleFunc("GET /quizzes/{ref}/attempts/{student}", h.getAttempt)
	mux.HandleFunc("GET /quizzes/{ref}/eligibility", h.getEligibility)
	mux.HandleFunc("POST /quizzes/{ref}/credentials", h.mintCredential)
	mux.HandleFunc("GET /credentials/{tokenId}", h.getCredential)
	mux.HandleFunc("GET /teachers/{id}/quizzes", h.listTeacherQuizzes)
	mux.HandleFunc("GET /students/{id}/quizzes", h.listStudentQuizzes)
	mux.HandleFunc("GET /students/{id}/credentials", h.listStudentCredentials)
}

func caller(r *http.Request) domain.Identity {
	return domain.Identity(r.Header.Get("X-Caller-Id"))
}

type createQuizRequest struct {
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	PassingScore int               `json:"passingScore"`
	Duration     int64             `json:"duration"`
	StartTime    int64             `json:"startTime"` // unix seconds
	EndTime      int64             `json:"endTime"`   // unix seconds
	Questions    []domain.Question `json:"questions"`
}

type createQuizResponse struct {
	Ref     string          `json:"ref"`
	Teacher domain.Identity `json:"teacher"`
}

func (h *Handler) createQuiz(w http.ResponseWriter, r *http.Request) {
	var req createQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	quiz, err := h.system.Factory.CreateQuiz(r.Context(), caller(r), domain.QuizDefinition{
		Name:         req.Name,
		Description:  req.Description,
		PassingScore: req.PassingScore,
		Duration:     req.Duration,
		StartTime:    unixTime(req.StartTime),
		EndTime:      unixTime(req.EndTime),
		Questions:    req.Questions,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createQuizResponse{Ref: quiz.Ref(), Teacher: quiz.Teacher()})
}

func (h *Handler) getQuiz(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.snapshots.QuizSnapshot(r.Context(), r.PathValue("ref"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

type attemptRequest struct {
	Answers []int `json:"answers"`
}

func (h *Handler) attemptQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, ok := h.system.Factory.Quiz(r.PathValue("ref"))
	if !ok {
		h.writeDomainError(w, domain.ErrQuizNotFound)
		return
	}
	var req attemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	attempt, err := quiz.Attempt(caller(r), req.Answers)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, attempt)
}

func (h *Handler) getAttempt(w http.ResponseWriter, r *http.Request) {
	quiz, ok := h.system.Factory.Quiz(r.PathValue("ref"))
	if !ok {
		h.writeDomainError(w, domain.ErrQuizNotFound)
		return
	}
	attempt, ok := quiz.AttemptOf(domain.Identity(r.PathValue("student")))
	if !ok {
		writeError(w, http.StatusNotFound, "no attempt recorded")
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

func (h *Handler) getEligibility(w http.ResponseWriter, r *http.Request) {
	quiz, ok := h.system.Factory.Quiz(r.PathValue("ref"))
	if !ok {
		h.writeDomainError(w, domain.ErrQuizNotFound)
		return
	}
	student := domain.Identity(r.URL.Query().Get("student"))
	writeJSON(w, http.StatusOK, map[string]bool{"eligible": quiz.EligibleForCredential(student)})
}

type mintRequest struct {
	Student domain.Identity `json:"student"`
}

type mintResponse struct {
	TokenID uint64          `json:"tokenId"`
	QuizRef string          `json:"quizRef"`
	Student domain.Identity `json:"student"`
}

func (h *Handler) mintCredential(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ref := r.PathValue("ref")
	tokenID, err := h.system.Issuer.Mint(caller(r), ref, req.Student)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mintResponse{TokenID: tokenID, QuizRef: ref, Student: req.Student})
}

func (h *Handler) getCredential(w http.ResponseWriter, r *http.Request) {
	tokenID, err := strconv.ParseUint(r.PathValue("tokenId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid token id")
		return
	}
	credential, ok := h.system.Issuer.CredentialByToken(tokenID)
	if !ok {
		writeError(w, http.StatusNotFound, "credential not found")
		return
	}
	writeJSON(w, http.StatusOK, credential)
}

func (h *Handler) listTeacherQuizzes(w http.ResponseWriter, r *http.Request) {
	refs := h.system.Registry.QuizzesByTeacher(domain.Identity(r.PathValue("id")))
	writeJSON(w, http.StatusOK, refs)
}

func (h *Handler) listStudentQuizzes(w http.ResponseWriter, r *http.Request) {
	refs := h.system.Registry.QuizzesByStudent(domain.Identity(r.PathValue("id")))
	writeJSON(w, http.StatusOK, refs)
}

func (h *Handler) listStudentCredentials(w http.ResponseWriter, r *http.Request) {
	credentials := h.system.Registry.CredentialsByStudent(domain.Identity(r.PathValue("id")))
	writeJSON(w, http.StatusOK, credentials)
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidDefinition),
		errors.Is(err, domain.ErrMalformedAnswers),
		errors.Is(err, domain.ErrMissingIdentity):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrQuizNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrWindowClosed),
		errors.Is(err, domain.ErrAlreadyAttempted),
		errors.Is(err, domain.ErrAlreadyCredentialed),
		errors.Is(err, domain.ErrDuplicateRegistration),
		errors.Is(err, domain.ErrNotEligible):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func unixTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

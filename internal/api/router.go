// Package api exposes the study over HTTP: the consent gate, the chatbot
// interview, the static form, and the researcher export surface.
package api

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/elli-study/elli/internal/middleware"
	"github.com/elli-study/elli/internal/models"
	"github.com/elli-study/elli/internal/services"
	"github.com/elli-study/elli/internal/session"
	"github.com/elli-study/elli/internal/sheet"
)

type Router struct {
	intake   *services.IntakeService
	static   *services.StaticFormService
	assign   *services.AssignService
	auth     *services.AuthService
	sessions session.Store
	locks    *session.Locks
	sheet    sheet.Store
}

func NewRouter(
	intake *services.IntakeService,
	static *services.StaticFormService,
	assign *services.AssignService,
	auth *services.AuthService,
	sessions session.Store,
	sheetStore sheet.Store,
) *Router {
	return &Router{
		intake:   intake,
		static:   static,
		assign:   assign,
		auth:     auth,
		sessions: sessions,
		locks:    session.NewLocks(),
		sheet:    sheetStore,
	}
}

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/consent", rt.handleConsent)              // POST
	mux.HandleFunc("/api/sessions", rt.handleSessions)            // POST
	mux.HandleFunc("/api/sessions/", rt.handleSessionScoped)      // GET {id}, POST {id}/turns
	mux.HandleFunc("/api/static/submissions", rt.handleStatic)    // POST
	mux.HandleFunc("/api/auth/register", rt.handleRegister)       // POST
	mux.HandleFunc("/api/auth/login", rt.handleLogin)             // POST
	mux.Handle("/api/export", middleware.RequireAuth(http.HandlerFunc(rt.handleExport)))        // GET
	mux.Handle("/api/export/log", middleware.RequireAuth(http.HandlerFunc(rt.handleExportLog))) // GET
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	if se, ok := services.AsServiceError(err); ok {
		status := http.StatusInternalServerError
		switch se.Code {
		case services.ErrorInvalid:
			status = http.StatusBadRequest
		case services.ErrorNotFound:
			status = http.StatusNotFound
		case services.ErrorConflict:
			status = http.StatusConflict
		case services.ErrorUnauthorized:
			status = http.StatusUnauthorized
		case services.ErrorForbidden:
			status = http.StatusForbidden
		}
		writeJSON(w, status, map[string]string{"error": se.Message, "code": string(se.Code)})
		return
	}
	log.Printf("api: %v", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

// POST /api/consent — record consent, return the participant's arm.
func (rt *Router) handleConsent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ParticipantToken string `json:"participant_token"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req) // empty body means anonymous
	}
	a, err := rt.assign.Assign(req.ParticipantToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"assignment_id":     a.ID,
		"participant_token": a.Token,
		"condition":         a.Condition,
		"url":               a.URL,
	})
}

// POST /api/sessions — start a chatbot interview.
func (rt *Router) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess, res := rt.intake.NewSession(r.Context())
	if err := rt.sessions.Put(r.Context(), sess); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": sess.ID,
		"step":       sess.Step,
		"messages":   res.Messages,
	})
}

// GET /api/sessions/{id} and POST /api/sessions/{id}/turns.
func (rt *Router) handleSessionScoped(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 1 && parts[0] != "":
		rt.handleGetSession(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "turns":
		rt.handleTurn(w, r, parts[0])
	default:
		http.NotFound(w, r)
	}
}

func (rt *Router) handleGetSession(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess, err := rt.sessions.Get(r.Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, services.NewNotFoundError("session not found"))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sess.ID,
		"step":       sess.Step,
		"done":       sess.Step == models.StepDone,
		"transcript": sess.Transcript,
	})
}

func (rt *Router) handleTurn(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, services.NewInvalidError("invalid request body"))
		return
	}

	// One turn at a time per session.
	release := rt.locks.Acquire(id)
	defer release()

	sess, err := rt.sessions.Get(r.Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, services.NewNotFoundError("session not found"))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	res := rt.intake.HandleTurn(r.Context(), sess, req.Text)
	if err := rt.sessions.Put(r.Context(), sess); err != nil {
		res.Warnings = append(res.Warnings, "session save failed: "+err.Error())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"messages": res.Messages,
		"step":     sess.Step,
		"done":     sess.Step == models.StepDone,
		"warnings": res.Warnings,
	})
}

// POST /api/static/submissions — the static arm's one-shot questionnaire.
func (rt *Router) handleStatic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var sub services.StaticSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, services.NewInvalidError("invalid request body"))
		return
	}
	result, err := rt.static.Submit(r.Context(), sub)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) handleRegister(w http.ResponseWriter, r *http.Request) {
	rt.handleCredentials(w, r, rt.auth.Register)
}

func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	rt.handleCredentials(w, r, rt.auth.Login)
}

func (rt *Router) handleCredentials(w http.ResponseWriter, r *http.Request, fn func(email, password string) (*services.AuthResult, error)) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, services.NewInvalidError("invalid request body"))
		return
	}
	res, err := fn(req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": res.Token, "user_id": res.UserID})
}

// GET /api/export — the sheet as positional CSV, one row per participant.
func (rt *Router) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rows, err := rt.sheet.Rows(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if uid, ok := middleware.UserIDFromContext(r.Context()); ok {
		log.Printf("api: sheet export by %s (%d rows)", uid, len(rows))
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="elli-sheet.csv"`)
	cw := csv.NewWriter(w)
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			log.Printf("api: export write: %v", err)
			return
		}
	}
	cw.Flush()
}

// GET /api/export/log — the turn log as CSV.
func (rt *Router) handleExportLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	entries, err := rt.sheet.Log(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if uid, ok := middleware.UserIDFromContext(r.Context()); ok {
		log.Printf("api: turn log export by %s (%d entries)", uid, len(entries))
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="elli-log.csv"`)
	cw := csv.NewWriter(w)
	for _, e := range entries {
		if err := cw.Write([]string{e.SessionID, e.Role, e.Content, e.At.Format(time.RFC3339)}); err != nil {
			log.Printf("api: log export write: %v", err)
			return
		}
	}
	cw.Flush()
}

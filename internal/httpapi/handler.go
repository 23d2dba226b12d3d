// Package httpapi implements the HTTP API of the engagement service.
//
// Every route except /health expects an "Authorization: Bearer <jwt>" header.
//
// Routes:
//
//	GET  /health                                   → liveness
//	GET  /score?jobId=&talentId=                   → score and profit breakdown
//	GET  /recommendations                          → caller's recommendations
//	POST /jobs                                     → publish a job
//	POST /jobs/{id}/hot                            → flag a job (admin)
//	POST /talents                                  → create caller's talent profile
//	POST /talents/{id}/hot                         → flag a talent profile (admin)
//	GET  /matches[?status=]                        → caller's matches
//	POST /matches                                  → propose a match
//	GET  /matches/{id}                             → one match
//	POST /matches/{id}/accept|reject|contract      → match transitions
//	GET  /assignments[?status=]                    → caller's assignments
//	GET  /assignments/{id}                         → one assignment
//	POST /assignments/{id}/pause|resume|complete   → assignment transitions
//	POST /assignments/{id}/notes                   → replace notes
//	GET  /events                                   → Server-Sent Events feed
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"bizmatch/internal/catalog"
	"bizmatch/internal/events"
	"bizmatch/internal/identity"
	"bizmatch/internal/matcher"
	"bizmatch/internal/model"
)

// Engagement is the match and assignment lifecycle.
type Engagement interface {
	ProposeMatch(ctx context.Context, actor identity.Identity, jobID, talentID, message string) (*model.Match, error)
	AcceptMatch(ctx context.Context, actor identity.Identity, matchID string) (*model.Match, error)
	RejectMatch(ctx context.Context, actor identity.Identity, matchID string) (*model.Match, error)
	CreateContract(ctx context.Context, actor identity.Identity, matchID, assignmentType string) (*model.Match, *model.Assignment, error)
	GetMatch(ctx context.Context, actor identity.Identity, matchID string) (*model.Match, error)
	ListMatches(ctx context.Context, actor identity.Identity, status string) ([]model.Match, error)

	PauseAssignment(ctx context.Context, actor identity.Identity, id string) (*model.Assignment, error)
	ResumeAssignment(ctx context.Context, actor identity.Identity, id string) (*model.Assignment, error)
	CompleteAssignment(ctx context.Context, actor identity.Identity, id string) (*model.Assignment, error)
	UpdateAssignmentNotes(ctx context.Context, actor identity.Identity, id, notes string) (*model.Assignment, error)
	GetAssignment(ctx context.Context, actor identity.Identity, id string) (*model.Assignment, error)
	ListAssignments(ctx context.Context, actor identity.Identity, status string) ([]model.Assignment, error)
}

// Catalog maintains jobs and talent profiles.
type Catalog interface {
	CreateJob(ctx context.Context, actor identity.Identity, in catalog.JobInput) (*model.JobPost, error)
	CreateTalent(ctx context.Context, actor identity.Identity, in catalog.TalentInput) (*model.TalentProfile, error)
	SetJobHot(ctx context.Context, actor identity.Identity, id string, hot bool) (*model.JobPost, error)
	SetTalentHot(ctx context.Context, actor identity.Identity, id string, hot bool) (*model.TalentProfile, error)
	Score(ctx context.Context, jobID, talentID string) (*catalog.Breakdown, error)
	Recommendations(ctx context.Context, actor identity.Identity) ([]matcher.Recommendation, error)
}

// Feed streams the events concerning one user.
type Feed interface {
	Subscribe(ctx context.Context, userID string) (<-chan events.Event, error)
}

// ─── Handler ─────────────────────────────────────────────────────────────────

// Handler holds shared dependencies.
type Handler struct {
	engagement Engagement
	catalog    Catalog
	feed       Feed
	log        *zap.Logger
	validate   *validator.Validate
	version    string
}

// NewHandler returns a configured Handler. feed may be nil, in which case
// /events answers 503.
func NewHandler(eng Engagement, cat Catalog, feed Feed, log *zap.Logger, version string) *Handler {
	return &Handler{
		engagement: eng,
		catalog:    cat,
		feed:       feed,
		log:        log,
		validate:   validator.New(),
		version:    version,
	}
}

// Routes returns the service's HTTP handler. All routes but /health go
// through the bearer-token middleware.
func (h *Handler) Routes(v *identity.Verifier) http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/score", h.handleScore)
	api.HandleFunc("/recommendations", h.handleRecommendations)
	api.HandleFunc("/jobs", h.handleJobs)
	api.HandleFunc("/jobs/", h.handleJobAction)
	api.HandleFunc("/talents", h.handleTalents)
	api.HandleFunc("/talents/", h.handleTalentAction)
	api.HandleFunc("/matches", h.handleMatches)
	api.HandleFunc("/matches/", h.handleMatch)
	api.HandleFunc("/assignments", h.handleAssignments)
	api.HandleFunc("/assignments/", h.handleAssignment)
	api.HandleFunc("/events", h.handleEvents)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.Handle("/", identity.Middleware(v)(api))
	return mux
}

// ─── Route dispatch ───────────────────────────────────────────────────────────

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonOK(w, map[string]string{
		"status":  "ok",
		"service": "bizmatch",
		"version": h.version,
	})
}

// handleScore handles GET /score?jobId=&talentId=
func (h *Handler) handleScore(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	b, err := h.catalog.Score(r.Context(), q.Get("jobId"), q.Get("talentId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, b)
}

// handleRecommendations handles GET /recommendations
func (h *Handler) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	recs, err := h.catalog.Recommendations(r.Context(), actor(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, recs)
}

// handleJobs handles POST /jobs
func (h *Handler) handleJobs(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var in catalog.JobInput
	if !decode(w, r, &in) {
		return
	}
	j, err := h.catalog.CreateJob(r.Context(), actor(r), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonCreated(w, j)
}

// handleJobAction handles POST /jobs/{id}/hot
func (h *Handler) handleJobAction(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	id, action, ok := splitPath(r.URL.Path)
	if !ok || action != "hot" {
		jsonError(w, "invalid path", http.StatusNotFound)
		return
	}
	hot, ok := h.decodeHot(w, r)
	if !ok {
		return
	}
	j, err := h.catalog.SetJobHot(r.Context(), actor(r), id, hot)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, j)
}

// handleTalents handles POST /talents
func (h *Handler) handleTalents(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var in catalog.TalentInput
	if !decode(w, r, &in) {
		return
	}
	t, err := h.catalog.CreateTalent(r.Context(), actor(r), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonCreated(w, t)
}

// handleTalentAction handles POST /talents/{id}/hot
func (h *Handler) handleTalentAction(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	id, action, ok := splitPath(r.URL.Path)
	if !ok || action != "hot" {
		jsonError(w, "invalid path", http.StatusNotFound)
		return
	}
	hot, ok := h.decodeHot(w, r)
	if !ok {
		return
	}
	t, err := h.catalog.SetTalentHot(r.Context(), actor(r), id, hot)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, t)
}

type proposeBody struct {
	JobID    string `json:"jobId" validate:"required"`
	TalentID string `json:"talentId" validate:"required"`
	Message  string `json:"message" validate:"max=2000"`
}

// handleMatches handles GET|POST /matches
func (h *Handler) handleMatches(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ms, err := h.engagement.ListMatches(r.Context(), actor(r), r.URL.Query().Get("status"))
		if err != nil {
			h.fail(w, r, err)
			return
		}
		jsonOK(w, nonNil(ms))
	case http.MethodPost:
		var body proposeBody
		if !decode(w, r, &body) || !h.check(w, body) {
			return
		}
		m, err := h.engagement.ProposeMatch(r.Context(), actor(r), body.JobID, body.TalentID, body.Message)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		jsonCreated(w, m)
	default:
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// contractResponse is returned by POST /matches/{id}/contract.
type contractResponse struct {
	Match      *model.Match      `json:"match"`
	Assignment *model.Assignment `json:"assignment"`
}

// handleMatch handles GET /matches/{id} and POST /matches/{id}/accept|reject|contract
func (h *Handler) handleMatch(w http.ResponseWriter, r *http.Request) {
	id, action, ok := splitPath(r.URL.Path)
	if !ok {
		jsonError(w, "invalid path", http.StatusNotFound)
		return
	}
	if action == "" {
		if !allow(w, r, http.MethodGet) {
			return
		}
		m, err := h.engagement.GetMatch(r.Context(), actor(r), id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		jsonOK(w, m)
		return
	}
	if !allow(w, r, http.MethodPost) {
		return
	}

	var (
		m   *model.Match
		err error
	)
	switch action {
	case "accept":
		m, err = h.engagement.AcceptMatch(r.Context(), actor(r), id)
	case "reject":
		m, err = h.engagement.RejectMatch(r.Context(), actor(r), id)
	case "contract":
		h.createContract(w, r, id)
		return
	default:
		jsonError(w, fmt.Sprintf("unknown action %q", action), http.StatusNotFound)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, m)
}

func (h *Handler) createContract(w http.ResponseWriter, r *http.Request, matchID string) {
	var body struct {
		AssignmentType string `json:"assignmentType" validate:"max=64"`
	}
	// The body is optional: an empty one selects the default type.
	if !decodeOptional(w, r, &body) || !h.check(w, body) {
		return
	}
	m, a, err := h.engagement.CreateContract(r.Context(), actor(r), matchID, body.AssignmentType)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, contractResponse{Match: m, Assignment: a})
}

// handleAssignments handles GET /assignments[?status=]
func (h *Handler) handleAssignments(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	as, err := h.engagement.ListAssignments(r.Context(), actor(r), r.URL.Query().Get("status"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, nonNil(as))
}

// handleAssignment handles GET /assignments/{id} and
// POST /assignments/{id}/pause|resume|complete|notes
func (h *Handler) handleAssignment(w http.ResponseWriter, r *http.Request) {
	id, action, ok := splitPath(r.URL.Path)
	if !ok {
		jsonError(w, "invalid path", http.StatusNotFound)
		return
	}
	if action == "" {
		if !allow(w, r, http.MethodGet) {
			return
		}
		a, err := h.engagement.GetAssignment(r.Context(), actor(r), id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		jsonOK(w, a)
		return
	}
	if !allow(w, r, http.MethodPost) {
		return
	}

	var (
		a   *model.Assignment
		err error
	)
	switch action {
	case "pause":
		a, err = h.engagement.PauseAssignment(r.Context(), actor(r), id)
	case "resume":
		a, err = h.engagement.ResumeAssignment(r.Context(), actor(r), id)
	case "complete":
		a, err = h.engagement.CompleteAssignment(r.Context(), actor(r), id)
	case "notes":
		var body struct {
			Notes string `json:"notes" validate:"max=10000"`
		}
		if !decode(w, r, &body) || !h.check(w, body) {
			return
		}
		a, err = h.engagement.UpdateAssignmentNotes(r.Context(), actor(r), id, body.Notes)
	default:
		jsonError(w, fmt.Sprintf("unknown action %q", action), http.StatusNotFound)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, a)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func actor(r *http.Request) identity.Identity {
	id, _ := identity.FromContext(r.Context())
	return id
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// splitPath parses /{collection}/{id}[/{action}].
func splitPath(path string) (id, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case len(parts) == 2 && parts[1] != "":
		return parts[1], "", true
	case len(parts) == 3 && parts[1] != "" && parts[2] != "":
		return parts[1], parts[2], true
	default:
		return "", "", false
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

// decodeOptional is decode for bodies that may be empty, whatever the
// Content-Length says.
func decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) check(w http.ResponseWriter, v any) bool {
	if err := h.validate.Struct(v); err != nil {
		jsonError(w, validationMessage(err), http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) decodeHot(w http.ResponseWriter, r *http.Request) (bool, bool) {
	var body struct {
		Hot *bool `json:"hot" validate:"required"`
	}
	if !decode(w, r, &body) || !h.check(w, body) {
		return false, false
	}
	return *body.Hot, true
}

func validationMessage(err error) string {
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		return fmt.Sprintf("validation error: %s - %s", ves[0].Field(), ves[0].Tag())
	}
	return "validation error: invalid request"
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func jsonOK(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusOK, v)
}

func jsonCreated(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusCreated, v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/OpenBayHQ/openbay-mvp/engine/findings"
	"github.com/OpenBayHQ/openbay-mvp/engine/inspect"
	"github.com/OpenBayHQ/openbay-mvp/engine/vhc"
	"github.com/OpenBayHQ/openbay-mvp/pkg/fn"
	"github.com/OpenBayHQ/openbay-mvp/pkg/resilience"
)

// vehicleDirectory resolves a vehicle to its powertrain. Nil when no
// registry is configured.
type vehicleDirectory interface {
	Powertrain(ctx context.Context, vehicleID string) (vhc.Powertrain, error)
}

// similarSearcher answers similar-findings queries. Nil when no vector
// store is configured.
type similarSearcher interface {
	Similar(ctx context.Context, responseID, itemID string, topK int) ([]findings.ItemSimilar, error)
}

type server struct {
	svc      *inspect.Service
	vehicles vehicleDirectory
	similar  similarSearcher
	log      *slog.Logger
	validate *validator.Validate
}

func newServer(svc *inspect.Service, vehicles vehicleDirectory, similar similarSearcher, logger *slog.Logger) *server {
	return &server{
		svc:      svc,
		vehicles: vehicles,
		similar:  similar,
		log:      logger,
		validate: validator.New(),
	}
}

// routes builds the API mux. /metrics is attached by the caller.
func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/vhc/templates/active", s.handleActiveTemplate)
	mux.HandleFunc("GET /api/vhc/templates/{id}", s.handleGetTemplate)
	mux.HandleFunc("POST /api/vhc/responses", s.handleStart)
	mux.HandleFunc("GET /api/vhc/responses/{id}", s.handleGetResponse)
	mux.HandleFunc("PATCH /api/vhc/responses/{id}/answers", s.handleAnswers)
	mux.HandleFunc("POST /api/vhc/responses/{id}/submit", s.handleSubmit)
	mux.HandleFunc("POST /api/vhc/responses/{id}/approve", s.handleApprove)
	mux.HandleFunc("POST /api/vhc/responses/{id}/void", s.handleVoid)
	mux.HandleFunc("GET /api/vhc/responses/{id}/breakdown", s.handleBreakdown)
	mux.HandleFunc("GET /api/vhc/responses/{id}/similar", s.handleSimilar)
	return mux
}

// --- Request DTOs ---

type startRequest struct {
	TemplateID string     `json:"templateId"`
	VehicleID  string     `json:"vehicleId" validate:"required"`
	Powertrain string     `json:"powertrain" validate:"omitempty,oneof=ice ev hybrid"`
	BookingID  string     `json:"bookingId"`
	ServiceIDs []string   `json:"serviceIds"`
	AssignedTo string     `json:"assignedTo"`
	AssignedBy string     `json:"assignedBy"`
	DueAt      *time.Time `json:"dueAt"`
	CreatedBy  string     `json:"createdBy"`
}

type answerDTO struct {
	ItemID string     `json:"itemId" validate:"required"`
	Value  *vhc.Value `json:"value"`
	Notes  string     `json:"notes"`
	Photos []string   `json:"photos"`
}

type answersRequest struct {
	Answers []answerDTO `json:"answers" validate:"required,min=1,dive"`
}

type actorRequest struct {
	By string `json:"by"`
}

// --- Handlers ---

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.Template(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *server) handleActiveTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.ActiveTemplate(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !s.decode(w, r, &req) {
		return
	}

	pt := vhc.Powertrain(req.Powertrain)
	if pt == "" {
		if s.vehicles == nil {
			writeJSON(w, http.StatusBadRequest, errBody("powertrain is required when no vehicle registry is configured"))
			return
		}
		var err error
		pt, err = s.vehicles.Powertrain(r.Context(), req.VehicleID)
		if err != nil {
			s.writeError(w, err)
			return
		}
	}

	resp, err := s.svc.Start(r.Context(), inspect.StartParams{
		TemplateID: req.TemplateID,
		VehicleID:  req.VehicleID,
		Powertrain: pt,
		BookingID:  req.BookingID,
		ServiceIDs: req.ServiceIDs,
		AssignedTo: req.AssignedTo,
		AssignedBy: req.AssignedBy,
		DueAt:      req.DueAt,
		CreatedBy:  req.CreatedBy,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *server) handleGetResponse(w http.ResponseWriter, r *http.Request) {
	resp, err := s.svc.Response(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleAnswers(w http.ResponseWriter, r *http.Request) {
	var req answersRequest
	if !s.decode(w, r, &req) {
		return
	}

	answers := fn.Map(req.Answers, func(a answerDTO) vhc.Answer {
		return vhc.Answer{ItemID: a.ItemID, Value: a.Value, Notes: a.Notes, Photos: a.Photos}
	})
	resp, err := s.svc.RecordAnswers(r.Context(), r.PathValue("id"), answers)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.svc.Submit)
}

func (s *server) handleApprove(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.svc.Approve)
}

func (s *server) handleVoid(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.svc.Void)
}

func (s *server) transition(w http.ResponseWriter, r *http.Request, op func(context.Context, string, string) (vhc.Response, error)) {
	var req actorRequest
	// Transition bodies are optional; an empty body means an anonymous actor.
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}
	resp, err := op(r.Context(), r.PathValue("id"), req.By)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Breakdown(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	if s.similar == nil {
		writeJSON(w, http.StatusServiceUnavailable, errBody("findings search is not configured"))
		return
	}
	topK := 5
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			topK = n
		}
	}
	out, err := s.similar.Similar(r.Context(), r.PathValue("id"), r.URL.Query().Get("item"), topK)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": out})
}

// --- Helpers ---

func (s *server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody("invalid request body"))
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody(err.Error()))
		return false
	}
	return true
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	switch {
	case inspect.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, errBody(err.Error()))
	case errors.Is(err, vhc.ErrInvalidAnswer), errors.Is(err, vhc.ErrInvalidTemplate):
		writeJSON(w, http.StatusBadRequest, errBody(err.Error()))
	case errors.Is(err, vhc.ErrIncompleteSubmission), errors.Is(err, vhc.ErrIllegalTransition):
		writeJSON(w, http.StatusConflict, errBody(err.Error()))
	case errors.Is(err, resilience.ErrCircuitOpen):
		writeJSON(w, http.StatusServiceUnavailable, errBody("dependency unavailable"))
	default:
		s.log.Error("request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errBody("internal server error"))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func errBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/haventeam/haven/internal/api/respond"
	"github.com/haventeam/haven/internal/api/validate"
	"github.com/haventeam/haven/internal/auth"
	"github.com/haventeam/haven/internal/model"
	"github.com/haventeam/haven/internal/services"
)

// TeamHandler provides HTTP transport for team management.
type TeamHandler struct {
	svc *services.TeamService
}

func NewTeamHandler(svc *services.TeamService) *TeamHandler {
	return &TeamHandler{svc: svc}
}

// CreateTeam POST /api/teams
func (h *TeamHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		respond.WriteUnauthorized(w, "authentication required")
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.TeamName(req.Name); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	t, err := h.svc.Create(r.Context(), actor, req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, t)
}

// ListTeams GET /api/teams
func (h *TeamHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		respond.WriteUnauthorized(w, "authentication required")
		return
	}
	ts, err := h.svc.List(r.Context(), actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if ts == nil {
		ts = []*model.Team{}
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"teams": ts, "count": len(ts)})
}

// GetTeam GET /api/teams/{id}
func (h *TeamHandler) GetTeam(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		respond.WriteUnauthorized(w, "authentication required")
		return
	}
	t, err := h.svc.Get(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, t)
}

// UpdateTeam PUT /api/teams/{id}
func (h *TeamHandler) UpdateTeam(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		respond.WriteUnauthorized(w, "authentication required")
		return
	}
	var p services.TeamPatch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	t, err := h.svc.Update(r.Context(), actor, mux.Vars(r)["id"], &p)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, t)
}

// DeleteTeam DELETE /api/teams/{id}
func (h *TeamHandler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		respond.WriteUnauthorized(w, "authentication required")
		return
	}
	if err := h.svc.Delete(r.Context(), actor, mux.Vars(r)["id"]); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Package api provides the HTTP transport: thin handlers that decode
// requests, call the gateway and services, and map domain errors to status
// codes.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/haventeam/haven/internal/api/respond"
	"github.com/haventeam/haven/internal/api/validate"
	"github.com/haventeam/haven/internal/auth"
	"github.com/haventeam/haven/internal/gateway"
	"github.com/haventeam/haven/internal/model"
)

// ItemHandler provides HTTP transport for item operations across all kinds.
type ItemHandler struct {
	gw       *gateway.Gateway
	pageSize int
	maxPage  int
}

func NewItemHandler(gw *gateway.Gateway, defaultPageSize, maxPageSize int) *ItemHandler {
	if defaultPageSize <= 0 {
		defaultPageSize = 20
	}
	if maxPageSize <= 0 {
		maxPageSize = 100
	}
	return &ItemHandler{gw: gw, pageSize: defaultPageSize, maxPage: maxPageSize}
}

func kindFrom(r *http.Request) (model.Kind, bool) {
	k := model.Kind(mux.Vars(r)["kind"])
	return k, k.Valid()
}

// CreateItem POST /api/items/{kind}
func (h *ItemHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		respond.WriteUnauthorized(w, "authentication required")
		return
	}
	kind, ok := kindFrom(r)
	if !ok {
		respond.WriteBadRequest(w, "unknown item kind")
		return
	}
	var in gateway.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.Title(in.Title); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	in.Kind = kind
	it, err := h.gw.Create(r.Context(), actor, in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, it)
}

// ListItems GET /api/items/{kind}?page&limit&teamId&tag
func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		respond.WriteUnauthorized(w, "authentication required")
		return
	}
	kind, ok := kindFrom(r)
	if !ok {
		respond.WriteBadRequest(w, "unknown item kind")
		return
	}
	req := model.ListItemsRequest{
		Kind:  kind,
		Page:  positiveInt(r.URL.Query().Get("page"), 1),
		Limit: positiveInt(r.URL.Query().Get("limit"), h.pageSize),
	}
	if req.Limit > h.maxPage {
		req.Limit = h.maxPage
	}
	if v := r.URL.Query().Get("teamId"); v != "" {
		req.TeamID = &v
	}
	if v := r.URL.Query().Get("tag"); v != "" {
		req.Tag = &v
	}
	items, page, err := h.gw.List(r.Context(), actor, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if items == nil {
		items = []*model.Item{}
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items":      items,
		"pagination": page,
	})
}

// GetItem GET /api/items/{kind}/{id}
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		respond.WriteUnauthorized(w, "authentication required")
		return
	}
	kind, ok := kindFrom(r)
	if !ok {
		respond.WriteBadRequest(w, "unknown item kind")
		return
	}
	it, err := h.gw.Get(r.Context(), actor, kind, mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, it)
}

// UpdateItem PUT /api/items/{kind}/{id}
func (h *ItemHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		respond.WriteUnauthorized(w, "authentication required")
		return
	}
	kind, ok := kindFrom(r)
	if !ok {
		respond.WriteBadRequest(w, "unknown item kind")
		return
	}
	var p gateway.Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	it, _, err := h.gw.Mutate(r.Context(), actor, kind, mux.Vars(r)["id"], &p)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, it)
}

// DeleteItem DELETE /api/items/{kind}/{id}
func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		respond.WriteUnauthorized(w, "authentication required")
		return
	}
	kind, ok := kindFrom(r)
	if !ok {
		respond.WriteBadRequest(w, "unknown item kind")
		return
	}
	if err := h.gw.Delete(r.Context(), actor, kind, mux.Vars(r)["id"]); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fieldlens/fieldlens/internal/plan"
	"github.com/fieldlens/fieldlens/internal/render"
	"github.com/fieldlens/fieldlens/internal/retrieve"
	"github.com/fieldlens/fieldlens/internal/schema"
	"github.com/fieldlens/fieldlens/internal/selector"
	"github.com/fieldlens/fieldlens/internal/web/query"
	"github.com/fieldlens/fieldlens/internal/web/response"
)

// Resources serves projection-aware read endpoints for every registered
// node: GET /{resource} and GET /{resource}/{id}. The fields and omit query
// parameters narrow both the response shape and the eager-load plan.
type Resources struct {
	registry *schema.Registry
	narrower *plan.Narrower
	loader   *retrieve.Loader
	renderer *render.Renderer
	logger   *zap.Logger
}

// NewResources creates the resource handler set.
func NewResources(
	registry *schema.Registry,
	narrower *plan.Narrower,
	loader *retrieve.Loader,
	logger *zap.Logger,
) *Resources {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resources{
		registry: registry,
		narrower: narrower,
		loader:   loader,
		renderer: render.NewRenderer(narrower.Introspector()),
		logger:   logger,
	}
}

// Mount registers the resource routes on a chi router.
func (h *Resources) Mount(r chi.Router) {
	r.Get("/{resource}", h.List)
	r.Get("/{resource}/{id}", h.Get)
}

// List handles GET /{resource}.
func (h *Resources) List(w http.ResponseWriter, r *http.Request) {
	node, sel, p, ok := h.prepare(w, r)
	if !ok {
		return
	}

	records, err := h.loader.List(r.Context(), node)
	if err != nil {
		h.logger.Error("list failed", zap.String("resource", node.Name), zap.Error(err))
		response.RenderInternalError(w, err)
		return
	}

	if err := h.loader.Apply(r.Context(), records, node, p); err != nil {
		h.logger.Error("eager load failed", zap.String("resource", node.Name), zap.Error(err))
		response.RenderInternalError(w, err)
		return
	}

	response.RenderJSON(w, http.StatusOK, h.renderer.RenderList(node, records, sel))
}

// Get handles GET /{resource}/{id}.
func (h *Resources) Get(w http.ResponseWriter, r *http.Request) {
	node, sel, p, ok := h.prepare(w, r)
	if !ok {
		return
	}

	record, err := h.loader.Get(r.Context(), node, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, retrieve.ErrNotFound) {
			response.RenderNotFound(w, "")
			return
		}
		h.logger.Error("get failed", zap.String("resource", node.Name), zap.Error(err))
		response.RenderInternalError(w, err)
		return
	}

	if err := h.loader.Apply(r.Context(), []retrieve.Record{record}, node, p); err != nil {
		h.logger.Error("eager load failed", zap.String("resource", node.Name), zap.Error(err))
		response.RenderInternalError(w, err)
		return
	}

	response.RenderJSON(w, http.StatusOK, h.renderer.Render(node, record, sel))
}

// prepare resolves the node, the field selector, and the narrowed load plan
// for one request. It writes the error response itself and returns ok=false
// when the request cannot proceed.
func (h *Resources) prepare(w http.ResponseWriter, r *http.Request) (*schema.Node, *selector.Selector, *plan.Plan, bool) {
	node, ok := h.resolveNode(chi.URLParam(r, "resource"))
	if !ok {
		response.RenderNotFound(w, "")
		return nil, nil, nil, false
	}

	allow := query.ParseFields(r)
	omit := query.ParseOmit(r)

	sel, err := selector.New(allow, omit)
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return nil, nil, nil, false
	}

	p, err := h.narrower.Narrow(r.Context(), node, allow, omit)
	if err != nil {
		h.logger.Error("planning failed", zap.String("resource", node.Name), zap.Error(err))
		response.RenderInternalError(w, err)
		return nil, nil, nil, false
	}

	return node, sel, p, true
}

// resolveNode matches the URL segment against node names and table names,
// case-insensitively, so /teachers reaches the Teacher node.
func (h *Resources) resolveNode(resource string) (*schema.Node, bool) {
	if node, ok := h.registry.Get(resource); ok {
		return node, true
	}
	for _, node := range h.registry.All() {
		if strings.EqualFold(node.Name, resource) || strings.EqualFold(node.TableName, resource) {
			return node, true
		}
	}
	return nil, false
}

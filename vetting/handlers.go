package vetting

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"domain-reputation/blacklist"
	"domain-reputation/cache"
	"domain-reputation/reputation"
)

// Checker is the part of reputation.Aggregator the handlers use.
type Checker interface {
	Check(ctx context.Context, req reputation.Request) (*reputation.Report, error)
	CacheStats() map[string]cache.Stats
	ClearCache()
	Registry() *blacklist.Registry
}

// VetRequest is the body of POST /reputation. Domain is accepted as an alias
// of Target.
type VetRequest struct {
	Target    string                  `json:"target"`
	Domain    string                  `json:"domain,omitempty"`
	Auth      *reputation.AuthRecords `json:"auth,omitempty"`
	SkipCache bool                    `json:"skip_cache,omitempty"`
}

type CatalogResponse struct {
	Total      int               `json:"total"`
	Domain     int               `json:"domain_lists"`
	IP         int               `json:"ip_lists"`
	Blacklists []blacklist.Entry `json:"blacklists"`
}

type Handler struct {
	checker Checker
	log     zerolog.Logger
}

func NewHandler(c Checker, log zerolog.Logger) *Handler {
	return &Handler{checker: c, log: log.With().Str("component", "http").Logger()}
}

// VetHandler serves POST /reputation.
func (h *Handler) VetHandler(w http.ResponseWriter, r *http.Request) {
	var req VetRequest
	if err := DecodeJSON(r, &req); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	target := req.Target
	if target == "" {
		target = req.Domain
	}
	h.check(w, r, reputation.Request{Target: target, Auth: req.Auth, SkipCache: req.SkipCache})
}

// LookupHandler serves GET /reputation/{target}.
func (h *Handler) LookupHandler(w http.ResponseWriter, r *http.Request) {
	target, err := NormalizeTarget(chi.URLParam(r, "target"))
	if err != nil {
		ErrorResponse(w, http.StatusBadRequest, "invalid target", err)
		return
	}
	skip, _ := strconv.ParseBool(r.URL.Query().Get("skip_cache"))
	h.check(w, r, reputation.Request{Target: target, SkipCache: skip})
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request, req reputation.Request) {
	report, err := h.checker.Check(r.Context(), req)
	if err != nil {
		var inputErr *reputation.InputError
		if errors.As(err, &inputErr) {
			ErrorResponse(w, http.StatusBadRequest, "invalid target", err)
			return
		}
		h.log.Error().Err(err).Str("target", req.Target).Msg("reputation check failed")
		ErrorResponse(w, http.StatusInternalServerError, "reputation check failed", err)
		return
	}
	JSONResponse(w, http.StatusOK, report)
}

func (h *Handler) CacheStatsHandler(w http.ResponseWriter, r *http.Request) {
	JSONResponse(w, http.StatusOK, h.checker.CacheStats())
}

func (h *Handler) ClearCacheHandler(w http.ResponseWriter, r *http.Request) {
	h.checker.ClearCache()
	SuccessResponse(w, "caches cleared", nil)
}

func (h *Handler) CatalogHandler(w http.ResponseWriter, r *http.Request) {
	reg := h.checker.Registry()
	JSONResponse(w, http.StatusOK, CatalogResponse{
		Total:      reg.Len(),
		Domain:     len(reg.ForScope(blacklist.ScopeDomain)),
		IP:         len(reg.ForScope(blacklist.ScopeIP)),
		Blacklists: reg.Entries(),
	})
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	JSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

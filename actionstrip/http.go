package actionstrip

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/osintools/horosafe"
	"github.com/hazyhaar/osintools/shield"
)

// RemovedHeader carries the removal count of POST /v1/strip.
const RemovedHeader = "X-Actionstrip-Removed"

// RegisterHTTP mounts the API on r:
//
//	GET    /healthz
//	GET    /v1/selectors
//	POST   /v1/selectors/validate  JSON array of selectors
//	POST   /v1/strip               HTML body, ?inert=1
//	GET    /v1/pages
//	POST   /v1/pages               {"url": ..., "id": ..., "selectors": [...]}
//	DELETE /v1/pages/{id}
func (s *Stripper) RegisterHTTP(r chi.Router) {
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"pages":     len(s.Pages()),
			"suspended": s.Suspended(),
			"remote":    s.mgr.Remote(),
		})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/selectors", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"selectors": s.Selectors()})
		})

		r.Post("/selectors/validate", func(w http.ResponseWriter, r *http.Request) {
			var list []string
			if err := json.NewDecoder(r.Body).Decode(&list); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			writeJSON(w, http.StatusOK, validate(list))
		})

		r.Post("/strip", s.handleStrip)

		r.Get("/pages", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, s.Pages())
		})

		r.Post("/pages", func(w http.ResponseWriter, r *http.Request) {
			var page PageConfig
			if err := json.NewDecoder(r.Body).Decode(&page); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			st, err := s.OpenPage(r.Context(), page)
			if err != nil {
				writeError(w, statusFor(err), err)
				return
			}
			writeJSON(w, http.StatusCreated, st)
		})

		r.Delete("/pages/{id}", func(w http.ResponseWriter, r *http.Request) {
			if err := s.ClosePage(chi.URLParam(r, "id")); err != nil {
				writeError(w, statusFor(err), err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	})
}

func (s *Stripper) handleStrip(w http.ResponseWriter, r *http.Request) {
	log := shield.GetLogger(r.Context())
	inert, _ := strconv.ParseBool(r.URL.Query().Get("inert"))

	res, err := StripHTML(r.Context(), r.Body, StripOptions{
		Selectors: s.Selectors(),
		Inert:     inert,
		Logger:    log,
	})
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || errors.Is(err, horosafe.ErrTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}

	log.Info("actionstrip: stripped document",
		"removed", res.Report.Removed,
		"failed", res.Report.FailedCount,
		"inert", inert)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set(RemovedHeader, strconv.Itoa(res.Report.Removed))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(res.HTML))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotIncluded), errors.Is(err, ErrInvalidPageID):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrPageExists):
		return http.StatusConflict
	case errors.Is(err, ErrPageNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// Package httpadapter exposes the extraction pipeline over HTTP.
package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/hwelland/qcflow/internal/core/domain"
	"github.com/hwelland/qcflow/internal/core/ports"
)

// uploads carry the whole document in one multipart request; the form
// parser keeps this much in memory before spilling to disk.
const multipartMemoryLimit = 8 << 20

type Router struct {
	submissions ports.SubmissionService
	records     ports.RecordCreator
	templates   ports.TemplateBuilder
	logger      *slog.Logger
	limiter     *rate.Limiter
	metrics     httpMetrics
}

type RouterOptions struct {
	Limiter *rate.Limiter
	Metrics httpMetrics
}

func NewRouter(
	submissions ports.SubmissionService,
	records ports.RecordCreator,
	templates ports.TemplateBuilder,
	logger *slog.Logger,
	options RouterOptions,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		submissions: submissions,
		records:     records,
		templates:   templates,
		logger:      logger,
		limiter:     options.Limiter,
		metrics:     options.Metrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/submissions", rt.submitDocument)
	mux.HandleFunc("GET /v1/sessions/{id}", rt.getSession)
	mux.HandleFunc("DELETE /v1/sessions/{id}", rt.discardSession)
	mux.HandleFunc("POST /v1/sessions/{id}/record", rt.createRecord)
	mux.HandleFunc("GET /v1/templates/inspection", rt.downloadTemplate)

	handler := metricsMiddleware(rt.metrics, mux)
	handler = rateLimitMiddleware(rt.limiter, handler)
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) submitDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("multipart form expected"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("multipart field 'file' is required"))
		return
	}
	defer file.Close()

	snapshot, err := rt.submissions.Submit(r.Context(), ports.SubmitRequest{
		SessionID:      strings.TrimSpace(r.FormValue("sessionId")),
		Filename:       header.Filename,
		MimeType:       header.Header.Get("Content-Type"),
		InspectionType: domain.InspectionType(strings.TrimSpace(r.FormValue("inspectionType"))),
		Body:           file,
	})
	if err != nil {
		rt.writeError(w, r, "submit document", err)
		return
	}
	writeJSON(w, http.StatusAccepted, snapshot)
}

func (rt *Router) getSession(w http.ResponseWriter, r *http.Request) {
	cursor := 0
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("cursor must be a non-negative integer"))
			return
		}
		cursor = n
	}

	view, err := rt.submissions.Session(r.Context(), r.PathValue("id"), cursor)
	if err != nil {
		rt.writeError(w, r, "get session", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (rt *Router) discardSession(w http.ResponseWriter, r *http.Request) {
	if err := rt.submissions.Discard(r.Context(), r.PathValue("id")); err != nil {
		rt.writeError(w, r, "discard session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) createRecord(w http.ResponseWriter, r *http.Request) {
	ref, err := rt.records.CreateRecord(r.Context(), r.PathValue("id"))
	if err != nil {
		rt.writeError(w, r, "create record", err)
		return
	}
	writeJSON(w, http.StatusCreated, ref)
}

func (rt *Router) downloadTemplate(w http.ResponseWriter, r *http.Request) {
	data, err := rt.templates.BlankInspection()
	if err != nil {
		rt.writeError(w, r, "build template", err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="inspection-template.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= 500 {
		rt.logger.Error(operation,
			"request_id", requestIDFromContext(r.Context()),
			"status", status,
			"error", err.Error(),
		)
	}
	writeJSON(w, status, errorBody(err.Error()))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func errorBody(message string) map[string]string {
	return map[string]string{"error": message}
}

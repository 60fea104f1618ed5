package appraisalhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"appraisal/internal/domain/appraisal"
	"appraisal/internal/domain/audit"
	"appraisal/internal/domain/auth"
	"appraisal/internal/domain/notifications"
	"appraisal/internal/platform/jobs"
	"appraisal/internal/platform/metrics"
	"appraisal/internal/platform/pdf"
	"appraisal/internal/requestctx"
	"appraisal/internal/transport/http/api"
	"appraisal/internal/transport/http/middleware"
	"appraisal/internal/transport/http/shared"
)

type Handler struct {
	Service *appraisal.Service
	Perms   middleware.PermissionStore
	Notify  *notifications.Service
	Audit   *audit.Service
	Jobs    *jobs.Service
}

func NewHandler(service *appraisal.Service, perms middleware.PermissionStore, notify *notifications.Service, auditSvc *audit.Service, jobsSvc *jobs.Service) *Handler {
	return &Handler{Service: service, Perms: perms, Notify: notify, Audit: auditSvc, Jobs: jobsSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/appraisals", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermAppraisalWrite, h.Perms)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermAppraisalRead, h.Perms)).Get("/{appraisalID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermAppraisalWrite, h.Perms)).Put("/{appraisalID}/draft", h.handleUpdateDraft)
		r.With(middleware.RequirePermission(auth.PermAppraisalWrite, h.Perms)).Post("/{appraisalID}/submit", h.handleSubmit)
		r.With(middleware.RequirePermission(auth.PermAppraisalReview, h.Perms)).Post("/{appraisalID}/actions", h.handleRecordAction)
		r.With(middleware.RequirePermission(auth.PermAppraisalReview, h.Perms)).Put("/{appraisalID}/ratings", h.handleSaveRatings)
		r.With(middleware.RequirePermission(auth.PermAppraisalRead, h.Perms)).Get("/{appraisalID}/comments", h.handleListComments)
		r.With(middleware.RequirePermission(auth.PermAppraisalAdmin, h.Perms)).Post("/{appraisalID}/cancel", h.handleCancel)
		r.With(middleware.RequirePermission(auth.PermAppraisalRead, h.Perms)).Get("/{appraisalID}/export.pdf", h.handleExportPDF)
		r.With(middleware.RequirePermission(auth.PermAppraisalAdmin, h.Perms)).Get("/{appraisalID}/audit", h.handleListAudit)
	})
}

type periodPayload struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type mutationResponse struct {
	Appraisal      appraisal.Appraisal     `json:"appraisal"`
	PreviousStatus string                  `json:"previousStatus"`
	ActedRole      string                  `json:"actedRole"`
	ViaOverride    bool                    `json:"viaOverride"`
	Entry          *appraisal.CommentEntry `json:"entry,omitempty"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var payload struct {
		EmployeeID       string               `json:"employeeId"`
		Period           periodPayload        `json:"period"`
		SupervisorID     string               `json:"supervisorId"`
		ReviewerID       string               `json:"reviewerId"`
		Categories       []appraisal.Category `json:"categories"`
		EmployeeDetails  json.RawMessage      `json:"employeeDetails"`
		Achievements     json.RawMessage      `json:"achievements"`
		DevelopmentPlans json.RawMessage      `json:"developmentPlans"`
	}
	if !decode(w, r, &payload) {
		return
	}

	v := shared.NewValidator()
	start := v.OptionalDate("period.start", payload.Period.Start)
	end := v.OptionalDate("period.end", payload.Period.End)
	v.DateOrder("period.start", start, "period.end", end)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	created, err := h.Service.Create(r.Context(), actorOf(user), appraisal.NewAppraisal{
		EmployeeID:       payload.EmployeeID,
		Period:           appraisal.Period{Start: start, End: end},
		SupervisorID:     payload.SupervisorID,
		ReviewerID:       payload.ReviewerID,
		Categories:       payload.Categories,
		EmployeeDetails:  payload.EmployeeDetails,
		Achievements:     payload.Achievements,
		DevelopmentPlans: payload.DevelopmentPlans,
	})
	if err != nil {
		h.fail(w, r, appraisal.RoleEmployee, "create", err)
		return
	}

	metrics.WorkflowActions.WithLabelValues(appraisal.RoleEmployee, "create", "accepted").Inc()
	h.recordAudit(r, user, "appraisal.create", created.ID, nil, statusSnapshot(created))
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	view, err := h.Service.Get(r.Context(), chi.URLParam(r, "appraisalID"), actorOf(user))
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, view, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var payload struct {
		EmployeeDetails  json.RawMessage      `json:"employeeDetails"`
		Achievements     json.RawMessage      `json:"achievements"`
		DevelopmentPlans json.RawMessage      `json:"developmentPlans"`
		EmployeeComments *string              `json:"employeeComments"`
		Categories       []appraisal.Category `json:"categories"`
		ExpectedVersion  int64                `json:"expectedVersion"`
	}
	if !decode(w, r, &payload) {
		return
	}

	res, err := h.Service.UpdateDraft(r.Context(), chi.URLParam(r, "appraisalID"), actorOf(user), appraisal.DraftUpdate{
		EmployeeDetails:  payload.EmployeeDetails,
		Achievements:     payload.Achievements,
		DevelopmentPlans: payload.DevelopmentPlans,
		EmployeeComments: payload.EmployeeComments,
		Categories:       payload.Categories,
		ExpectedVersion:  payload.ExpectedVersion,
	})
	h.respond(w, r, user, appraisal.RoleEmployee, "update_draft", res, err)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var payload struct {
		ExpectedVersion int64 `json:"expectedVersion"`
	}
	if !decode(w, r, &payload) {
		return
	}

	res, err := h.Service.Submit(r.Context(), chi.URLParam(r, "appraisalID"), actorOf(user), payload.ExpectedVersion)
	h.respond(w, r, user, appraisal.RoleEmployee, "submit", res, err)
}

func (h *Handler) handleRecordAction(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var payload struct {
		Role            string `json:"role"`
		Action          string `json:"action"`
		Comment         string `json:"comment"`
		ExpectedVersion int64  `json:"expectedVersion"`
	}
	if !decode(w, r, &payload) {
		return
	}

	v := shared.NewValidator()
	v.Required("role", payload.Role, "is required")
	v.Required("action", payload.Action, "is required")
	v.Enum("role", payload.Role, []string{appraisal.RoleEmployee, appraisal.RoleSupervisor, appraisal.RoleReviewer}, "must be employee, supervisor or reviewer")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	res, err := h.Service.RecordAction(r.Context(), chi.URLParam(r, "appraisalID"), actorOf(user), appraisal.ActionRequest{
		Role:            payload.Role,
		Action:          payload.Action,
		Comment:         payload.Comment,
		ExpectedVersion: payload.ExpectedVersion,
	})
	h.respond(w, r, user, payload.Role, payload.Action, res, err)
}

func (h *Handler) handleSaveRatings(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var payload struct {
		Categories      []appraisal.Category `json:"categories"`
		ManagerComments *string              `json:"managerComments"`
		ExpectedVersion int64                `json:"expectedVersion"`
	}
	if !decode(w, r, &payload) {
		return
	}

	res, err := h.Service.SaveRatings(r.Context(), chi.URLParam(r, "appraisalID"), actorOf(user), appraisal.RatingsUpdate{
		Categories:      payload.Categories,
		ManagerComments: payload.ManagerComments,
		ExpectedVersion: payload.ExpectedVersion,
	})
	role := res.ActedRole
	if role == "" {
		role = "unknown"
	}
	h.respond(w, r, user, role, "save_ratings", res, err)
}

func (h *Handler) handleListComments(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	role := r.URL.Query().Get("role")
	v := shared.NewValidator()
	v.Required("role", role, "is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	entries, err := h.Service.Comments(r.Context(), chi.URLParam(r, "appraisalID"), actorOf(user), role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []appraisal.CommentEntry{}
	}
	api.Success(w, entries, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var payload struct {
		Reason          string `json:"reason"`
		ExpectedVersion int64  `json:"expectedVersion"`
	}
	if !decode(w, r, &payload) {
		return
	}

	res, err := h.Service.Cancel(r.Context(), chi.URLParam(r, "appraisalID"), actorOf(user), payload.Reason, payload.ExpectedVersion)
	h.respond(w, r, user, appraisal.RoleReviewer, appraisal.ActionCancel, res, err)
}

func (h *Handler) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	view, err := h.Service.Get(r.Context(), chi.URLParam(r, "appraisalID"), actorOf(user))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := pdf.Render(&buf, view.Appraisal); err != nil {
		slog.Error("appraisal pdf render failed", "appraisalId", view.Appraisal.ID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "export_failed", "failed to render appraisal", middleware.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="appraisal-`+view.Appraisal.ID+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Warn("appraisal pdf write failed", "appraisalId", view.Appraisal.ID, "err", err)
	}
}

func (h *Handler) handleListAudit(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "appraisalID")
	if _, err := h.Service.Get(r.Context(), id, actorOf(user)); err != nil {
		writeError(w, r, err)
		return
	}
	if h.Audit == nil {
		api.Success(w, []audit.Event{}, middleware.GetRequestID(r.Context()))
		return
	}

	page := shared.ParsePagination(r, 50, 200)
	events, err := h.Audit.List(r.Context(), audit.Filter{
		EntityType: audit.EntityAppraisal,
		EntityID:   id,
		Action:     r.URL.Query().Get("action"),
	}, page.Limit, page.Offset)
	if err != nil {
		slog.Error("audit list failed", "appraisalId", id, "err", err)
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to list audit events", middleware.GetRequestID(r.Context()))
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	api.Success(w, events, middleware.GetRequestID(r.Context()))
}

// respond writes the mutation outcome and, on success, schedules the audit record
// and the editor-of-record notification off the request path.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, user auth.UserContext, role, action string, res appraisal.Result, err error) {
	if err != nil {
		h.fail(w, r, role, action, err)
		return
	}
	metrics.WorkflowActions.WithLabelValues(role, action, "accepted").Inc()

	before := map[string]any{"status": res.PreviousStatus}
	after := statusSnapshot(res.Appraisal)
	after["actedRole"] = res.ActedRole
	after["viaOverride"] = res.ViaOverride
	h.recordAudit(r, user, "appraisal."+action, res.Appraisal.ID, before, after)

	if h.Notify != nil {
		h.background(jobs.JobNotify, res.Appraisal.ID, func(ctx context.Context) error {
			return h.Notify.Notify(ctx, res)
		})
	}

	api.Success(w, mutationResponse{
		Appraisal:      res.Appraisal,
		PreviousStatus: res.PreviousStatus,
		ActedRole:      res.ActedRole,
		ViaOverride:    res.ViaOverride,
		Entry:          res.Entry,
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, role, action string, err error) {
	_, code, _ := classify(err)
	metrics.WorkflowActions.WithLabelValues(role, action, code).Inc()
	writeError(w, r, err)
}

func (h *Handler) recordAudit(r *http.Request, user auth.UserContext, action, appraisalID string, before, after any) {
	if h.Audit == nil {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	ip := requestctx.GetClientIP(r.Context())
	h.background(jobs.JobAudit, appraisalID, func(ctx context.Context) error {
		return h.Audit.Record(ctx, user.UserID, action, audit.EntityAppraisal, appraisalID, requestID, ip, before, after)
	})
}

func (h *Handler) background(jobType, key string, run func(context.Context) error) {
	if h.Jobs != nil {
		h.Jobs.Enqueue(jobType, key, run)
		return
	}
	if err := run(context.Background()); err != nil {
		slog.Warn("post-commit job failed", "jobType", jobType, "key", key, "err", err)
	}
}

func statusSnapshot(a appraisal.Appraisal) map[string]any {
	return map[string]any{
		"status":             a.Status,
		"version":            a.Version,
		"supervisorApproval": a.SupervisorApproval,
		"reviewerApproval":   a.ReviewerApproval,
		"overallRating":      a.OverallRating,
	}
}

func actorOf(user auth.UserContext) appraisal.Actor {
	return appraisal.Actor{
		UserID:     user.UserID,
		EmployeeID: user.EmployeeID,
		Name:       user.Name,
		HROverride: user.HROverride,
	}
}

func requireUser(w http.ResponseWriter, r *http.Request) (auth.UserContext, bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
	}
	return user, ok
}

// decode reads an optional JSON body into dst. An empty body leaves dst untouched.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", middleware.GetRequestID(r.Context()))
		return false
	}
	api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
	return false
}

// classify maps workflow errors to status, code and a caller-safe message.
// Authorization failures never say which check failed.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, appraisal.ErrValidation):
		return http.StatusBadRequest, "validation_error", "payload validation failed"
	case errors.Is(err, appraisal.ErrUnauthorized):
		return http.StatusForbidden, "forbidden", "not permitted"
	case errors.Is(err, appraisal.ErrNotFound):
		return http.StatusNotFound, "not_found", "appraisal not found"
	case errors.Is(err, appraisal.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition", "action not allowed in the current state"
	case errors.Is(err, appraisal.ErrStaleVersion):
		return http.StatusConflict, "stale_version", "appraisal changed since it was loaded; reload and retry"
	}
	return http.StatusInternalServerError, "internal_error", "internal server error"
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	status, code, message := classify(err)
	switch {
	case code == "validation_error":
		issues := shared.IssuesFromError(err)
		if issues == nil {
			issues = []shared.ValidationIssue{}
		}
		shared.FailValidation(w, requestID, issues)
		return
	case errors.Is(err, appraisal.ErrDirectoryUnavailable):
		slog.Warn("request denied while directory unavailable", "path", r.URL.Path, "requestId", requestID)
	case status == http.StatusInternalServerError:
		slog.Error("appraisal request failed", "path", r.URL.Path, "requestId", requestID, "err", err)
	}
	api.Fail(w, status, code, message, requestID)
}

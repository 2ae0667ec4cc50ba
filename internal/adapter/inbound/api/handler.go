package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/jonny/kube-actions/internal/adapter/inbound/api/middleware"
	"github.com/jonny/kube-actions/internal/domain/model"
	"github.com/jonny/kube-actions/internal/domain/port/inbound"
	"github.com/jonny/kube-actions/internal/domain/port/outbound"
	"github.com/jonny/kube-actions/internal/domain/service"
	"github.com/jonny/kube-actions/pkg/apierror"
	"github.com/jonny/kube-actions/pkg/version"
)

const defaultNamespace = "default"

// Handler serves the portal-facing JSON endpoints.
type Handler struct {
	port   inbound.MutationPort
	logger *slog.Logger
}

func NewHandler(port inbound.MutationPort, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{port: port, logger: logger}
}

type executeRequest struct {
	Action     model.Action       `json:"action"`
	Parameters service.Parameters `json:"parameters"`
}

type executeResponse struct {
	Success     bool                `json:"success"`
	Message     string              `json:"message,omitempty"`
	Output      string              `json:"output,omitempty"`
	Command     string              `json:"command,omitempty"`
	Commands    []string            `json:"commands,omitempty"`
	Status      model.OutcomeStatus `json:"status,omitempty"`
	Error       string              `json:"error,omitempty"`
	ErrorKind   model.ErrorKind     `json:"errorKind,omitempty"`
	ExecutionID string              `json:"executionId,omitempty"`
	Action      model.Action        `json:"action"`
	Parameters  service.Parameters  `json:"parameters"`
}

// Execute handles POST /execute.
func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	var body executeRequest
	if err := decodeJSON(r, &body); err != nil {
		writeDecodeError(w, err)
		return
	}
	if body.Parameters == nil {
		body.Parameters = service.Parameters{}
	}

	resp := executeResponse{Action: body.Action, Parameters: body.Parameters}

	if body.Action == model.ActionApplyManifest || body.Action == model.ActionListResources {
		resp.Error = fmt.Sprintf("action %s has its own endpoint", body.Action)
		resp.ErrorKind = model.ErrorKindValidation
		resp.Status = model.StatusFailure
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	req, err := service.RequestFromAction(body.Action, body.Parameters)
	if err != nil {
		resp.Error = err.Error()
		resp.ErrorKind = model.KindOf(err)
		resp.Status = model.StatusFailure
		writeJSON(w, statusForKind(resp.ErrorKind), resp)
		return
	}

	outcome := h.port.Execute(r.Context(), body.Action, req)

	resp.Status = outcome.Status
	resp.ExecutionID = outcome.ID
	resp.Output = outcome.Output()
	resp.Commands = outcome.Commands()
	if len(resp.Commands) > 0 {
		resp.Command = resp.Commands[0]
	}

	if outcome.Succeeded() {
		resp.Success = true
		resp.Message = service.Describe(body.Action, req)
		writeJSON(w, http.StatusOK, resp)
		return
	}

	resp.Error = outcome.Err.Error()
	resp.ErrorKind = model.KindOf(outcome.Err)
	writeJSON(w, statusForKind(resp.ErrorKind), resp)
}

type applyRequest struct {
	ManifestContent string `json:"manifestContent"`
	ManifestPath    string `json:"manifestPath"`
	Namespace       string `json:"namespace"`
}

type applyResponse struct {
	Success     bool                    `json:"success"`
	Result      string                  `json:"result,omitempty"`
	Resources   []model.AppliedResource `json:"resources"`
	Status      model.OutcomeStatus     `json:"status"`
	Error       string                  `json:"error,omitempty"`
	ErrorKind   model.ErrorKind         `json:"errorKind,omitempty"`
	ExecutionID string                  `json:"executionId,omitempty"`
}

// Apply handles POST /apply.
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	var body applyRequest
	if err := decodeJSON(r, &body); err != nil {
		writeDecodeError(w, err)
		return
	}
	if body.Namespace == "" {
		body.Namespace = defaultNamespace
	}

	outcome, resources := h.port.Apply(r.Context(), model.MutationRequest{
		Namespace:    body.Namespace,
		Manifest:     body.ManifestContent,
		ManifestPath: body.ManifestPath,
	})

	resp := applyResponse{
		Success:     outcome.Succeeded(),
		Result:      outcome.Output(),
		Resources:   resources,
		Status:      outcome.Status,
		ExecutionID: outcome.ID,
	}
	if resp.Resources == nil {
		resp.Resources = []model.AppliedResource{}
	}
	if outcome.Succeeded() {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	resp.Error = outcome.Err.Error()
	resp.ErrorKind = model.KindOf(outcome.Err)
	writeJSON(w, statusForKind(resp.ErrorKind), resp)
}

// ListResources handles GET /resources/{type}.
func (h *Handler) ListResources(w http.ResponseWriter, r *http.Request) {
	kind := mux.Vars(r)["type"]
	namespace := r.URL.Query().Get("namespace")
	if namespace == "" {
		namespace = defaultNamespace
	}

	refs, err := h.port.ListResources(r.Context(), kind, namespace)
	if err != nil {
		kindOf := model.KindOf(err)
		h.logger.Warn("list resources failed",
			"request_id", middleware.RequestIDFrom(r.Context()),
			"type", kind,
			"namespace", namespace,
			"error", err,
		)
		writeJSON(w, statusForKind(kindOf), map[string]any{
			"success":   false,
			"error":     err.Error(),
			"errorKind": kindOf,
			"namespace": namespace,
		})
		return
	}
	if refs == nil {
		refs = []model.ResourceRef{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"resources": refs,
		"namespace": namespace,
	})
}

// ListExecutions handles GET /executions.
func (h *Handler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := queryInt(q.Get("page"), 1)
	if err != nil {
		apierror.Write(w, apierror.BadRequest("page must be an integer"))
		return
	}
	limit, err := queryInt(q.Get("limit"), 50)
	if err != nil {
		apierror.Write(w, apierror.BadRequest("limit must be an integer"))
		return
	}

	res, err := h.port.ListExecutions(r.Context(), outbound.ExecutionFilter{
		Action:    q.Get("action"),
		Status:    q.Get("status"),
		Namespace: q.Get("namespace"),
	}, outbound.PageRequest{Page: page, Size: limit})
	if err != nil {
		h.logger.Error("list executions failed", "error", err)
		apierror.Write(w, apierror.Internal("failed to list executions"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"executions": res.Items,
		"total":      res.TotalCount,
		"page":       res.Page,
		"limit":      res.Size,
	})
}

// GetExecution handles GET /executions/{id}.
func (h *Handler) GetExecution(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	e, err := h.port.GetExecution(r.Context(), id)
	if errors.Is(err, outbound.ErrNotFound) {
		apierror.Write(w, apierror.NotFound("execution "+id))
		return
	}
	if err != nil {
		h.logger.Error("get execution failed", "id", id, "error", err)
		apierror.Write(w, apierror.Internal("failed to load execution"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "execution": e})
}

// Health handles GET /health. It reports process liveness only; dependency
// checks live on the metrics server's /readyz.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": version.Service,
	})
}

// statusForKind maps an error kind to the HTTP status the portal expects.
func statusForKind(kind model.ErrorKind) int {
	switch kind {
	case model.ErrorKindValidation:
		return http.StatusBadRequest
	case model.ErrorKindDenied:
		return http.StatusForbidden
	case model.ErrorKindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	return nil
}

func writeDecodeError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		apierror.Write(w, apierror.TooLarge(fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit)))
		return
	}
	apierror.Write(w, apierror.WithDetail(http.StatusBadRequest, "malformed JSON body", err.Error()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func queryInt(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

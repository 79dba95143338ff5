// Package http provides http transport for detection jobs
package http

import (
	stdhttp "net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"repolens/internal/modkit/httpkit"
	pnet "repolens/internal/platform/net"
	"repolens/internal/services/detect/domain"
	svc "repolens/internal/services/detect/service"
)

// Register mounts detection endpoints on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}
	r.Post("/", httpkit.JSON(h.submit))
	r.Get("/", httpkit.Handle(h.list))
	httpkit.Get(r, "/{id}", h.get)
	httpkit.Delete(r, "/{id}", h.cancel)
}

type handlers struct{ svc svc.Service }

// SubmitResponse acknowledges a submission
type SubmitResponse struct {
	JobID     string       `json:"job_id"`
	State     domain.State `json:"state"`
	Coalesced bool         `json:"coalesced,omitempty"`
}

// swagger:route POST /detections Detections detectionsSubmit
// @Summary Submit a repository for asynchronous detection
// @Tags Detections
// @Accept json
// @Produce json
// @Param payload body domain.SubmitInput true "Submission"
// @Success 202 {object} SubmitResponse "accepted"
// @Failure 401 {object} httpkit.Envelope "tenant required"
// @Router /detections [post]
func (h *handlers) submit(r *stdhttp.Request, in domain.SubmitInput) (any, error) {
	job, coalesced, err := h.svc.Submit(r.Context(), pnet.TenantID(r.Context()), in)
	if err != nil {
		return nil, err
	}
	return httpkit.Response{
		Status: stdhttp.StatusAccepted,
		Body:   SubmitResponse{JobID: job.ID, State: job.State, Coalesced: coalesced},
	}, nil
}

// swagger:route GET /detections/{id} Detections detectionsGet
// @Summary Fetch job status
// @Tags Detections
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} domain.Job "ok"
// @Failure 404 {object} httpkit.Envelope "not found"
// @Router /detections/{id} [get]
func (h *handlers) get(r *stdhttp.Request) (any, error) {
	return h.svc.Get(r.Context(), pnet.TenantID(r.Context()), chi.URLParam(r, "id"))
}

// swagger:route GET /detections Detections detectionsList
// @Summary List the tenant's detection jobs
// @Tags Detections
// @Produce json
// @Param state query string false "State filter"
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Success 200 {array} domain.Job "ok"
// @Router /detections [get]
func (h *handlers) list(r *stdhttp.Request) httpkit.Response {
	qs := r.URL.Query()
	in := domain.ListInput{State: domain.State(qs.Get("state"))}
	in.Page, _ = strconv.Atoi(qs.Get("page"))
	in.Size, _ = strconv.Atoi(qs.Get("size"))
	in.Normalize()

	rows, total, err := h.svc.List(r.Context(), pnet.TenantID(r.Context()), in)
	if err != nil {
		return httpkit.Error(err)
	}
	return httpkit.List(rows, total, in.Page, in.Size, "")
}

// swagger:route DELETE /detections/{id} Detections detectionsCancel
// @Summary Cancel a pending or running job
// @Tags Detections
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} domain.Job "resulting state"
// @Failure 409 {object} httpkit.Envelope "already terminal"
// @Router /detections/{id} [delete]
func (h *handlers) cancel(r *stdhttp.Request) (any, error) {
	return h.svc.Cancel(r.Context(), pnet.TenantID(r.Context()), chi.URLParam(r, "id"))
}

// Package http provides http transport for stored repository records
package http

import (
	stdhttp "net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"repolens/internal/core/synthesize"
	"repolens/internal/modkit/httpkit"
	pnet "repolens/internal/platform/net"
	"repolens/internal/services/records/domain"
	svc "repolens/internal/services/records/service"
)

// Register mounts record endpoints on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}
	r.Get("/", httpkit.Handle(h.search))
	httpkit.Get(r, "/{id}", h.get)
	httpkit.PutJSON[UpdateInput](r, "/{id}", h.update)
	httpkit.Delete(r, "/{id}", h.remove)
}

type handlers struct{ svc svc.Service }

// UpdateInput is the payload for replacing a record description
type UpdateInput struct {
	Description synthesize.Description `json:"description"`
}

// swagger:route GET /records/{id} Records recordsGet
// @Summary Fetch one repository record
// @Tags Records
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} domain.Record "ok"
// @Failure 404 {object} httpkit.Envelope "not found"
// @Router /records/{id} [get]
func (h *handlers) get(r *stdhttp.Request) (any, error) {
	id := chi.URLParam(r, "id")
	return h.svc.Get(r.Context(), pnet.TenantID(r.Context()), id)
}

// swagger:route GET /records Records recordsSearch
// @Summary Search the tenant's repository records
// @Tags Records
// @Produce json
// @Param q query string false "Free text over name and description"
// @Param language query string false "Primary language filter"
// @Param project_type query string false "Project type filter"
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Success 200 {array} domain.Record "ok"
// @Router /records [get]
func (h *handlers) search(r *stdhttp.Request) httpkit.Response {
	qs := r.URL.Query()
	q := domain.SearchQuery{
		Text:        qs.Get("q"),
		Language:    qs.Get("language"),
		ProjectType: qs.Get("project_type"),
	}
	q.Page, _ = strconv.Atoi(qs.Get("page"))
	q.Size, _ = strconv.Atoi(qs.Get("size"))
	q.Normalize()

	rows, total, err := h.svc.Search(r.Context(), pnet.TenantID(r.Context()), q)
	if err != nil {
		return httpkit.Error(err)
	}
	return httpkit.List(rows, total, q.Page, q.Size, "")
}

// swagger:route PUT /records/{id} Records recordsUpdate
// @Summary Replace a record's description
// @Tags Records
// @Accept json
// @Produce json
// @Param id path string true "Record ID"
// @Param payload body UpdateInput true "New description"
// @Success 200 {object} map[string]bool "ok"
// @Failure 404 {object} httpkit.Envelope "not found"
// @Router /records/{id} [put]
func (h *handlers) update(r *stdhttp.Request, in UpdateInput) (any, error) {
	id := chi.URLParam(r, "id")
	ok, err := h.svc.Update(r.Context(), pnet.TenantID(r.Context()), id, domain.Record{Desc: in.Description})
	if err != nil {
		return nil, err
	}
	return map[string]bool{"updated": ok}, nil
}

// swagger:route DELETE /records/{id} Records recordsDelete
// @Summary Delete a repository record
// @Tags Records
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} map[string]bool "ok"
// @Failure 404 {object} httpkit.Envelope "not found"
// @Router /records/{id} [delete]
func (h *handlers) remove(r *stdhttp.Request) (any, error) {
	id := chi.URLParam(r, "id")
	ok, err := h.svc.Delete(r.Context(), pnet.TenantID(r.Context()), id)
	if err != nil {
		return nil, err
	}
	return map[string]bool{"deleted": ok}, nil
}

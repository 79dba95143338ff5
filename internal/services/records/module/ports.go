package module

import (
	"context"

	recordsdom "repolens/internal/services/records/domain"
	recordssvc "repolens/internal/services/records/service"
)

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// adaptRecordsPort adapts the records service to the domain store port
type adaptRecordsPort struct{ svc recordssvc.Service }

func (a adaptRecordsPort) Write(ctx context.Context, rec recordsdom.Record) (string, error) {
	return a.svc.Write(ctx, rec)
}

func (a adaptRecordsPort) Get(ctx context.Context, tenantID, id string) (*recordsdom.Record, error) {
	return a.svc.Get(ctx, tenantID, id)
}

func (a adaptRecordsPort) Search(ctx context.Context, tenantID string, q recordsdom.SearchQuery) ([]recordsdom.Record, int, error) {
	return a.svc.Search(ctx, tenantID, q)
}

func (a adaptRecordsPort) Update(ctx context.Context, tenantID, id string, rec recordsdom.Record) (bool, error) {
	return a.svc.Update(ctx, tenantID, id, rec)
}

func (a adaptRecordsPort) Delete(ctx context.Context, tenantID, id string) (bool, error) {
	return a.svc.Delete(ctx, tenantID, id)
}

package domain

import "context"

// StorePort is the record store contract. Every method filters by tenant at
// the store boundary; a cross-tenant id behaves exactly like a missing one
type StorePort interface {
	Write(ctx context.Context, rec Record) (string, error)
	Get(ctx context.Context, tenantID, id string) (*Record, error)
	Search(ctx context.Context, tenantID string, q SearchQuery) ([]Record, int, error)
	Update(ctx context.Context, tenantID, id string, rec Record) (bool, error)
	Delete(ctx context.Context, tenantID, id string) (bool, error)
}

// WriterPort is the narrow port the detection pipeline needs
type WriterPort interface {
	Write(ctx context.Context, rec Record) (string, error)
}

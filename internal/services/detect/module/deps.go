package module

import (
	modkit "repolens/internal/modkit"
	mmodule "repolens/internal/modkit/module"
	recordsdom "repolens/internal/services/records/domain"
)

// WithRecordsModule lets callers pass the records module without exposing
// MustPortsOf in main; the detect module extracts the writer port internally
func WithRecordsModule(records mmodule.Module) modkit.Option {
	return modkit.WithPorts(mmodule.MustPortsOf[recordsdom.StorePort](records))
}

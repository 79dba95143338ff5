package httpkit

import (
	"net/http"

	pnet "repolens/internal/platform/net"
	"repolens/internal/services/tenant"
)

// TenancyPort resolves and authorizes the tenant for a request
type TenancyPort interface {
	Resolve(headerVal, paramVal string) (string, error)
	Validate(tenantID string) error
}

// Tenancy resolves the tenant id (header, then query param, then configured
// default), validates it, and stashes it on the request context. A nil port
// passes requests through untouched
func Tenancy(p TenancyPort, write func(w http.ResponseWriter, status int, body any)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p == nil {
				next.ServeHTTP(w, r)
				return
			}
			tid, err := p.Resolve(r.Header.Get(tenant.Header), r.URL.Query().Get(tenant.Param))
			if err == nil && tid != "" {
				err = p.Validate(tid)
			}
			if err != nil {
				status, body := pnet.Error(err, pnet.RequestID(r.Context()))
				write(w, status, body)
				return
			}
			ctx := pnet.WithRequest(r.Context(), pnet.RequestID(r.Context()), tid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

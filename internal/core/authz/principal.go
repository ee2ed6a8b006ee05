package authz

import (
	"context"
	"sync"

	"github.com/taskflow/tms/internal/core/domain"
)

// Principal is the authenticated caller of a single request. It is built by the
// authentication middleware from a verified token and must not outlive or be
// shared beyond that request.
type Principal struct {
	Subject string
	Role    domain.Role

	mu       sync.Mutex
	resolved bool
	userID   uint64
	err      error
}

// NewPrincipal returns a Principal for subject holding role.
func NewPrincipal(subject string, role domain.Role) *Principal {
	return &Principal{Subject: subject, Role: role}
}

// IsAdmin reports whether the caller holds the ADMIN role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == domain.RoleAdmin
}

// resolve returns the caller's numeric user id, calling lookup at most once
// for the lifetime of p. A failed lookup is remembered too.
func (p *Principal) resolve(ctx context.Context, lookup func(context.Context, string) (uint64, error)) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.resolved {
		p.userID, p.err = lookup(ctx, p.Subject)
		p.resolved = true
	}
	return p.userID, p.err
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the Principal stored in ctx, if any.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

package template

import "context"

// Store defines the contract for fetching templates and layouts.
// Implementations live in infra/store/ (e.g., Supabase).
type Store interface {
	// FindActiveByCode retrieves the active template for a code.
	// Returns nil, nil if no active template exists.
	FindActiveByCode(ctx context.Context, code string) (*Template, error)

	// FindLayoutByName retrieves an active layout by name.
	// Returns nil, nil if no active layout exists.
	FindLayoutByName(ctx context.Context, name string) (*Layout, error)
}

// Cache is an optional read-through cache for template lookups, keyed by
// (code, locale). Entries expire by TTL; there is no explicit invalidation,
// so template edits may not take effect before expiry.
type Cache interface {
	Get(ctx context.Context, code, locale string) (*Template, bool)
	Set(ctx context.Context, code, locale string, tmpl *Template)
}

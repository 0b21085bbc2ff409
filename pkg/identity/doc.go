// Package identity holds the identity record, its client-facing projection,
// and the storage adapters behind the Repository interface.
//
// Adapters enforce two uniqueness rules: one identity per (normalized) email,
// and at most one identity per non-empty external id. A violated rule is
// reported as ErrDuplicate; a missing record as ErrNotFound.
//
//	repo, err := identity.NewRepository("sqlite", identity.RepositoryConfig{SqlitePath: "auth.db"})
package identity

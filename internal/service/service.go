// Package service contains the business rules of fragmenthub.
//
// THE THREE LAYERS:
//
//	Handler (HTTP)       → parses requests, writes responses
//	Service (this pkg)   → validates, enforces permissions, orchestrates
//	Repository (storage) → reads/writes SQLite
//
// Services never see an *http.Request and never write SQL. They take plain
// Go values (a *model.User for the caller, input structs for payloads) and
// return domain values or apperror errors. The handler translates those
// errors to status codes. That is what lets cmd/seed drive the exact same
// code paths as the HTTP API.
//
// Every service depends on interfaces from package repository, injected
// through its constructor, so tests can hand it a real in-memory SQLite
// store or a fake that fails on demand.
package service

import "github.com/sakif/fragmenthub/internal/repository"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Paging clamps client-supplied skip/limit values.
type Paging struct {
	Default int
	Max     int
}

// NewPaging returns a Paging, falling back to the package defaults for
// non-positive values.
func NewPaging(def, maximum int) Paging {
	if maximum <= 0 {
		maximum = MaxPageSize
	}
	if def <= 0 || def > maximum {
		def = min(DefaultPageSize, maximum)
	}
	return Paging{Default: def, Max: maximum}
}

// Clamp turns raw limit/skip into safe ListOptions: limit 0 or less means the
// default, anything above Max is cut to Max, and a negative skip becomes 0.
func (p Paging) Clamp(limit, skip int) repository.ListOptions {
	if limit <= 0 {
		limit = p.Default
	}
	if limit > p.Max {
		limit = p.Max
	}
	if skip < 0 {
		skip = 0
	}
	return repository.ListOptions{Limit: limit, Offset: skip}
}

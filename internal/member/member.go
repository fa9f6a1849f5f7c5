// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SelfReg Contributors

// Package member defines the member account model and its persistence
// contract.
package member

import (
	"context"
	"time"
)

// Member is one registered identity. The ID is assigned by the store and
// immutable afterwards. Optional profile fields are pointers so that
// "not provided" is representable as nil rather than an empty string.
type Member struct {
	ID           int64
	FullName     string
	Email        string
	PasswordHash string
	PhoneNumber  string
	Country      string
	City         *string
	Gender       *string
	DateOfBirth  *string
	Interests    []string
	PhotoRef     *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Repository manages member persistence.
//
// Implementations must enforce email uniqueness at the storage level so
// the check-then-insert race between ExistsByEmail and Create resolves to
// ErrEmailTaken instead of a duplicate row.
type Repository interface {
	// EnsureSchema creates the members table if absent. Idempotent and
	// safe to race across concurrent first-time callers.
	EnsureSchema(ctx context.Context) error

	// Create persists a new member and returns the assigned ID.
	// CreatedAt/UpdatedAt are set by the repository.
	// Returns ErrEmailTaken when the email is already registered.
	Create(ctx context.Context, m *Member) (int64, error)

	// GetByEmail retrieves a member by exact email match.
	// Returns ErrNotFound if no such member exists.
	GetByEmail(ctx context.Context, email string) (*Member, error)

	// GetByID retrieves a member by ID.
	GetByID(ctx context.Context, id int64) (*Member, error)

	// Update rewrites the mutable fields of an existing member and
	// refreshes UpdatedAt. Returns ErrEmailTaken on an email collision.
	Update(ctx context.Context, m *Member) error

	// List returns up to limit members ordered newest-created first,
	// skipping offset rows. Offset pagination is approximate under
	// concurrent writes; callers accept that.
	List(ctx context.Context, limit, offset int) ([]*Member, error)

	// Count returns the total number of members.
	Count(ctx context.Context) (int64, error)

	// DeleteByIDs removes the members with the given IDs and returns how
	// many rows were deleted. Non-positive and duplicate IDs are dropped
	// first; an empty or all-invalid input is a no-op returning 0.
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)

	// ExistsByEmail reports whether a member with the email exists
	// without fetching the row.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// PageCount computes the number of pages needed to show total records at
// pageSize records per page.
func PageCount(total int64, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	pages := total / int64(pageSize)
	if total%int64(pageSize) != 0 {
		pages++
	}
	return int(pages)
}

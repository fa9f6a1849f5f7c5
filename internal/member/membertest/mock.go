// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SelfReg Contributors

// Package membertest provides test doubles for member persistence.
package membertest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/selfreg/selfreg/internal/member"
)

// MemRepository is an in-memory member.Repository for tests. It enforces
// email uniqueness the way the real store does, so check-then-insert
// races surface as member.ErrEmailTaken.
type MemRepository struct {
	mu      sync.Mutex
	nextID  int64
	records map[int64]*member.Member

	// ForcedErr, when set, is returned by every operation. Used to test
	// store-failure propagation.
	ForcedErr error
}

// NewMemRepository creates an empty MemRepository.
func NewMemRepository() *MemRepository {
	return &MemRepository{
		nextID:  1,
		records: make(map[int64]*member.Member),
	}
}

// EnsureSchema is a no-op for the in-memory store.
func (r *MemRepository) EnsureSchema(_ context.Context) error {
	return r.ForcedErr
}

// Create stores a copy of m, assigns the next ID, and sets timestamps.
func (r *MemRepository) Create(_ context.Context, m *member.Member) (int64, error) {
	if r.ForcedErr != nil {
		return 0, r.ForcedErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.records {
		if existing.Email == m.Email {
			return 0, member.ErrEmailTaken
		}
	}

	stored := clone(m)
	stored.ID = r.nextID
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.records[stored.ID] = stored
	r.nextID++

	m.ID = stored.ID
	m.CreatedAt = stored.CreatedAt
	m.UpdatedAt = stored.UpdatedAt
	return stored.ID, nil
}

// GetByEmail retrieves a member by exact email match.
func (r *MemRepository) GetByEmail(_ context.Context, email string) (*member.Member, error) {
	if r.ForcedErr != nil {
		return nil, r.ForcedErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.records {
		if m.Email == email {
			return clone(m), nil
		}
	}
	return nil, member.ErrNotFound
}

// GetByID retrieves a member by ID.
func (r *MemRepository) GetByID(_ context.Context, id int64) (*member.Member, error) {
	if r.ForcedErr != nil {
		return nil, r.ForcedErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.records[id]
	if !ok {
		return nil, member.ErrNotFound
	}
	return clone(m), nil
}

// Update rewrites a stored member.
func (r *MemRepository) Update(_ context.Context, m *member.Member) error {
	if r.ForcedErr != nil {
		return r.ForcedErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.records[m.ID]
	if !ok {
		return member.ErrNotFound
	}
	for id, other := range r.records {
		if id != m.ID && other.Email == m.Email {
			return member.ErrEmailTaken
		}
	}
	stored := clone(m)
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = time.Now()
	r.records[m.ID] = stored
	return nil
}

// List returns members newest-created first.
func (r *MemRepository) List(_ context.Context, limit, offset int) ([]*member.Member, error) {
	if r.ForcedErr != nil {
		return nil, r.ForcedErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]*member.Member, 0, len(r.records))
	for _, m := range r.records {
		all = append(all, m)
	}
	// Creation order tracks ID order here, so sort by ID descending.
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	out := make([]*member.Member, len(all))
	for i, m := range all {
		out[i] = clone(m)
	}
	return out, nil
}

// Count returns the number of stored members.
func (r *MemRepository) Count(_ context.Context) (int64, error) {
	if r.ForcedErr != nil {
		return 0, r.ForcedErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.records)), nil
}

// DeleteByIDs removes the given members, ignoring unknown IDs.
func (r *MemRepository) DeleteByIDs(_ context.Context, ids []int64) (int64, error) {
	if r.ForcedErr != nil {
		return 0, r.ForcedErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := r.records[id]; ok {
			delete(r.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// ExistsByEmail reports whether a member with the email exists.
func (r *MemRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	if r.ForcedErr != nil {
		return false, r.ForcedErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.records {
		if m.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func clone(m *member.Member) *member.Member {
	out := *m
	if m.Interests != nil {
		out.Interests = append([]string(nil), m.Interests...)
	}
	out.City = clonePtr(m.City)
	out.Gender = clonePtr(m.Gender)
	out.DateOfBirth = clonePtr(m.DateOfBirth)
	out.PhotoRef = clonePtr(m.PhotoRef)
	return &out
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Compile-time interface check.
var _ member.Repository = (*MemRepository)(nil)

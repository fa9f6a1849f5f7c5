// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SelfReg Contributors

// Package postgres implements member persistence on PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/selfreg/selfreg/internal/member"
)

// emailColumnWidth is the widest the unique-indexed email column may be.
// Early deployments created it wider, which breaks index construction
// under 4-byte character encodings, so EnsureSchema narrows it on sight.
const emailColumnWidth = 191

// dbPool is the subset of pgxpool.Pool used by the repository. pgxmock
// satisfies it for unit tests.
type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// MemberRepository implements member.Repository using PostgreSQL.
type MemberRepository struct {
	pool dbPool
}

// NewMemberRepository creates a new MemberRepository.
func NewMemberRepository(pool dbPool) *MemberRepository {
	return &MemberRepository{pool: pool}
}

const memberColumns = `id, full_name, email, password_hash, phone_number, country,
	       city, gender, date_of_birth, interests, photo_ref,
	       created_at, updated_at`

// EnsureSchema creates the members table and its unique email index if
// absent, narrowing an oversized legacy email column first. Uses
// IF NOT EXISTS semantics throughout so concurrent first-time callers
// cannot race each other into failure.
func (r *MemberRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS members (
			id            BIGSERIAL PRIMARY KEY,
			full_name     TEXT NOT NULL,
			email         VARCHAR(191) NOT NULL,
			password_hash TEXT NOT NULL,
			phone_number  VARCHAR(64) NOT NULL,
			country       TEXT NOT NULL,
			city          TEXT,
			gender        TEXT,
			date_of_birth TEXT,
			interests     TEXT NOT NULL DEFAULT '[]',
			photo_ref     TEXT,
			created_at    TIMESTAMPTZ NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return oops.Code("SCHEMA_CREATE_FAILED").
			With("operation", "create members table").
			Wrap(err)
	}

	if err := r.narrowLegacyEmailColumn(ctx); err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		CREATE UNIQUE INDEX IF NOT EXISTS members_email_key ON members (email)
	`)
	if err != nil {
		return oops.Code("SCHEMA_INDEX_FAILED").
			With("operation", "create unique email index").
			Wrap(err)
	}
	return nil
}

// narrowLegacyEmailColumn shrinks the email column when an earlier schema
// created it wider than the unique index tolerates.
func (r *MemberRepository) narrowLegacyEmailColumn(ctx context.Context) error {
	var width *int
	err := r.pool.QueryRow(ctx, `
		SELECT character_maximum_length
		FROM information_schema.columns
		WHERE table_name = 'members' AND column_name = 'email'
	`).Scan(&width)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return oops.Code("SCHEMA_INSPECT_FAILED").
			With("operation", "inspect email column width").
			Wrap(err)
	}
	if width == nil || *width <= emailColumnWidth {
		return nil
	}

	_, err = r.pool.Exec(ctx, `
		ALTER TABLE members ALTER COLUMN email TYPE VARCHAR(191)
	`)
	if err != nil {
		return oops.Code("SCHEMA_NARROW_FAILED").
			With("operation", "narrow email column").
			With("previous_width", *width).
			Wrap(err)
	}
	return nil
}

// Create persists a new member and returns the assigned ID. A missing
// table is healed by running EnsureSchema and retrying the insert once.
func (r *MemberRepository) Create(ctx context.Context, m *member.Member) (int64, error) {
	id, err := r.insert(ctx, m)
	if isUndefinedTable(err) {
		if schemaErr := r.EnsureSchema(ctx); schemaErr != nil {
			return 0, schemaErr
		}
		id, err = r.insert(ctx, m)
	}
	return id, err
}

func (r *MemberRepository) insert(ctx context.Context, m *member.Member) (int64, error) {
	interestsJSON, err := encodeInterests(m.Interests)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	var id int64
	err = r.pool.QueryRow(ctx, `
		INSERT INTO members (
			full_name, email, password_hash, phone_number, country,
			city, gender, date_of_birth, interests, photo_ref,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`,
		m.FullName,
		m.Email,
		m.PasswordHash,
		m.PhoneNumber,
		m.Country,
		m.City,
		m.Gender,
		m.DateOfBirth,
		interestsJSON,
		m.PhotoRef,
		now,
		now,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, oops.Code("MEMBER_EMAIL_TAKEN").
				With("email", m.Email).
				Wrap(member.ErrEmailTaken)
		}
		return 0, oops.Code("MEMBER_CREATE_FAILED").
			With("operation", "insert member").
			Wrap(err)
	}

	m.ID = id
	m.CreatedAt = now
	m.UpdatedAt = now
	return id, nil
}

// GetByEmail retrieves a member by exact email match.
func (r *MemberRepository) GetByEmail(ctx context.Context, email string) (*member.Member, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+memberColumns+`
		FROM members
		WHERE email = $1
	`, email)

	m, err := scanMember(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("MEMBER_NOT_FOUND").
			With("email", email).
			Wrap(member.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("MEMBER_GET_BY_EMAIL_FAILED").
			With("operation", "get member by email").
			Wrap(err)
	}
	return m, nil
}

// GetByID retrieves a member by ID.
func (r *MemberRepository) GetByID(ctx context.Context, id int64) (*member.Member, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+memberColumns+`
		FROM members
		WHERE id = $1
	`, id)

	m, err := scanMember(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("MEMBER_NOT_FOUND").
			With("id", id).
			Wrap(member.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("MEMBER_GET_BY_ID_FAILED").
			With("operation", "get member by id").
			With("id", id).
			Wrap(err)
	}
	return m, nil
}

// Update rewrites the mutable fields of an existing member.
func (r *MemberRepository) Update(ctx context.Context, m *member.Member) error {
	interestsJSON, err := encodeInterests(m.Interests)
	if err != nil {
		return err
	}

	result, err := r.pool.Exec(ctx, `
		UPDATE members SET
			full_name = $2,
			email = $3,
			password_hash = $4,
			phone_number = $5,
			country = $6,
			city = $7,
			gender = $8,
			date_of_birth = $9,
			interests = $10,
			photo_ref = $11,
			updated_at = $12
		WHERE id = $1
	`,
		m.ID,
		m.FullName,
		m.Email,
		m.PasswordHash,
		m.PhoneNumber,
		m.Country,
		m.City,
		m.Gender,
		m.DateOfBirth,
		interestsJSON,
		m.PhotoRef,
		time.Now(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("MEMBER_EMAIL_TAKEN").
				With("email", m.Email).
				Wrap(member.ErrEmailTaken)
		}
		return oops.Code("MEMBER_UPDATE_FAILED").
			With("operation", "update member").
			With("id", m.ID).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("MEMBER_NOT_FOUND").
			With("id", m.ID).
			Wrap(member.ErrNotFound)
	}
	return nil
}

// List returns up to limit members, newest created first.
func (r *MemberRepository) List(ctx context.Context, limit, offset int) ([]*member.Member, error) {
	if limit < 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+memberColumns+`
		FROM members
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, oops.Code("MEMBER_LIST_FAILED").
			With("operation", "list members").
			Wrap(err)
	}
	defer rows.Close()

	var members []*member.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, oops.Code("MEMBER_LIST_FAILED").
				With("operation", "scan member row").
				Wrap(err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("MEMBER_LIST_FAILED").
			With("operation", "iterate members").
			Wrap(err)
	}
	return members, nil
}

// Count returns the total number of members.
func (r *MemberRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM members`).Scan(&count)
	if err != nil {
		return 0, oops.Code("MEMBER_COUNT_FAILED").
			With("operation", "count members").
			Wrap(err)
	}
	return count, nil
}

// DeleteByIDs removes the members with the given IDs after dropping
// non-positive values and duplicates. Empty input is a no-op.
func (r *MemberRepository) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	clean := sanitizeIDs(ids)
	if len(clean) == 0 {
		return 0, nil
	}

	result, err := r.pool.Exec(ctx, `
		DELETE FROM members WHERE id = ANY($1)
	`, clean)
	if err != nil {
		return 0, oops.Code("MEMBER_DELETE_FAILED").
			With("operation", "bulk delete members").
			With("count", len(clean)).
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// ExistsByEmail reports whether a member with the email exists. Counts
// instead of fetching so no row data crosses the wire.
func (r *MemberRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM members WHERE email = $1
	`, email).Scan(&count)
	if err != nil {
		return false, oops.Code("MEMBER_EXISTS_FAILED").
			With("operation", "check email exists").
			Wrap(err)
	}
	return count > 0, nil
}

// sanitizeIDs keeps positive IDs and drops duplicates, preserving order.
func sanitizeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	clean := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		clean = append(clean, id)
	}
	return clean
}

// encodeInterests serializes the interest tags for storage. Callers never
// see this encoding; every read path decodes it back to a slice.
func encodeInterests(interests []string) (string, error) {
	if interests == nil {
		interests = []string{}
	}
	raw, err := json.Marshal(interests)
	if err != nil {
		return "", oops.Code("MEMBER_ENCODE_FAILED").
			With("operation", "encode interests").
			Wrap(err)
	}
	return string(raw), nil
}

func decodeInterests(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	var interests []string
	if err := json.Unmarshal([]byte(raw), &interests); err != nil {
		return nil, oops.Code("MEMBER_DECODE_FAILED").
			With("operation", "decode interests").
			Wrap(err)
	}
	return interests, nil
}

// scanMember scans a single row into a Member. Callers are responsible
// for handling pgx.ErrNoRows.
func scanMember(row pgx.Row) (*member.Member, error) {
	var (
		m            member.Member
		interestsRaw string
	)

	err := row.Scan(
		&m.ID,
		&m.FullName,
		&m.Email,
		&m.PasswordHash,
		&m.PhoneNumber,
		&m.Country,
		&m.City,
		&m.Gender,
		&m.DateOfBirth,
		&interestsRaw,
		&m.PhotoRef,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to handle with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("MEMBER_SCAN_FAILED").
			With("operation", "scan member").
			Wrap(err)
	}

	m.Interests, err = decodeInterests(interestsRaw)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedTable
}

// Compile-time interface check.
var _ member.Repository = (*MemberRepository)(nil)

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SelfReg Contributors

//go:build integration

package postgres_test

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/selfreg/selfreg/internal/member"
	memberpg "github.com/selfreg/selfreg/internal/member/postgres"
)

// setupPostgresContainer starts a PostgreSQL container and returns a
// repository with the schema applied.
func setupPostgresContainer() (*memberpg.MemberRepository, func(), error) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("selfreg_test"),
		tcpostgres.WithUsername("selfreg"),
		tcpostgres.WithPassword("selfreg"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, nil, err
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, nil, err
	}

	repo := memberpg.NewMemberRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		pool.Close()
		_ = container.Terminate(ctx)
	}

	return repo, cleanup, nil
}

func newTestMember(email string) *member.Member {
	city := "London"
	return &member.Member{
		FullName:     "Ada Lovelace",
		Email:        email,
		PasswordHash: "$argon2id$hash",
		PhoneNumber:  "+44 20 7946 0958",
		Country:      "United Kingdom",
		City:         &city,
		Interests:    []string{"mathematics", "poetry"},
	}
}

var _ = Describe("MemberRepository", func() {
	var repo *memberpg.MemberRepository
	var cleanup func()
	ctx := context.Background()

	BeforeEach(func() {
		var err error
		repo, cleanup, err = setupPostgresContainer()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		cleanup()
	})

	Describe("Create", func() {
		It("assigns an ID and round-trips the member", func() {
			m := newTestMember("ada@example.com")
			id, err := repo.Create(ctx, m)
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(BeNumerically(">", 0))

			got, err := repo.GetByEmail(ctx, "ada@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.FullName).To(Equal("Ada Lovelace"))
			Expect(got.Interests).To(Equal([]string{"mathematics", "poetry"}))
			Expect(*got.City).To(Equal("London"))
			Expect(got.Gender).To(BeNil())
		})

		It("rejects a duplicate email", func() {
			_, err := repo.Create(ctx, newTestMember("ada@example.com"))
			Expect(err).NotTo(HaveOccurred())

			_, err = repo.Create(ctx, newTestMember("ada@example.com"))
			Expect(err).To(MatchError(member.ErrEmailTaken))

			count, err := repo.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(1)))
		})
	})

	Describe("EnsureSchema", func() {
		It("is idempotent", func() {
			Expect(repo.EnsureSchema(ctx)).To(Succeed())
			Expect(repo.EnsureSchema(ctx)).To(Succeed())
		})
	})

	Describe("List", func() {
		It("pages newest first", func() {
			for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
				_, err := repo.Create(ctx, newTestMember(email))
				Expect(err).NotTo(HaveOccurred())
			}

			page, err := repo.List(ctx, 2, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(page).To(HaveLen(2))
			Expect(page[0].Email).To(Equal("c@example.com"))
			Expect(page[1].Email).To(Equal("b@example.com"))

			rest, err := repo.List(ctx, 2, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(rest).To(HaveLen(1))
			Expect(rest[0].Email).To(Equal("a@example.com"))
		})
	})

	Describe("DeleteByIDs", func() {
		It("deletes only the sanitized IDs", func() {
			var ids []int64
			for _, email := range []string{"a@example.com", "b@example.com"} {
				id, err := repo.Create(ctx, newTestMember(email))
				Expect(err).NotTo(HaveOccurred())
				ids = append(ids, id)
			}

			deleted, err := repo.DeleteByIDs(ctx, []int64{ids[0], ids[0], -1, 0, 424242})
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(Equal(int64(1)))

			count, err := repo.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(1)))
		})
	})

	Describe("Update", func() {
		It("rewrites fields and enforces email uniqueness", func() {
			id, err := repo.Create(ctx, newTestMember("ada@example.com"))
			Expect(err).NotTo(HaveOccurred())
			_, err = repo.Create(ctx, newTestMember("eve@example.com"))
			Expect(err).NotTo(HaveOccurred())

			m, err := repo.GetByID(ctx, id)
			Expect(err).NotTo(HaveOccurred())

			m.FullName = "Ada King"
			Expect(repo.Update(ctx, m)).To(Succeed())

			m.Email = "eve@example.com"
			Expect(repo.Update(ctx, m)).To(MatchError(member.ErrEmailTaken))
		})
	})

	Describe("ExistsByEmail", func() {
		It("reports presence without fetching", func() {
			_, err := repo.Create(ctx, newTestMember("ada@example.com"))
			Expect(err).NotTo(HaveOccurred())

			exists, err := repo.ExistsByEmail(ctx, "ada@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeTrue())

			exists, err = repo.ExistsByEmail(ctx, "ghost@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeFalse())
		})
	})
})

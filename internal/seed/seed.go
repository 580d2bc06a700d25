// Package seed fills a database with demo data for local development.
//
// Everything goes through the service layer rather than raw INSERTs, so the
// generated rows obey the same validation, tag normalization and visibility
// rules as data created over HTTP. Random values come from gofakeit; a fixed
// Options.Seed makes a run reproducible.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/sakif/fragmenthub/internal/auth"
	"github.com/sakif/fragmenthub/internal/model"
	"github.com/sakif/fragmenthub/internal/repository/sqlite"
	"github.com/sakif/fragmenthub/internal/service"
)

// DefaultPassword is given to every generated account.
const DefaultPassword = "password123"

// Options controls how much data a run creates.
type Options struct {
	Users            int
	Fragments        int
	LikesPerUser     int
	ViewsPerFragment int
	PrivatePercent   int // share of fragments created with is_public=false
	Seed             int64
	AdminEmail       string
}

// DefaultOptions is a small but browsable data set.
func DefaultOptions() Options {
	return Options{
		Users:            10,
		Fragments:        50,
		LikesPerUser:     8,
		ViewsPerFragment: 5,
		PrivatePercent:   20,
		Seed:             42,
		AdminEmail:       "admin@example.com",
	}
}

// Summary counts what a run created.
type Summary struct {
	AdminID   string
	Users     int // including the admin
	Tags      int
	Fragments int
	Public    int
	Likes     int
	Views     int
}

// vocabulary is deliberately mixed-case and padded: ResolveOrCreate
// normalizes it to the stored form.
var vocabulary = []string{
	"Algorithms", "http", " Concurrency ", "testing", "CLI",
	"parsing", "database", "regex", "snippet", "performance",
}

var languages = []string{"go", "python", "javascript", "rust", "sql", "bash"}

// seeded is what later steps need to know about a created fragment.
type seeded struct {
	id       string
	authorID string
	public   bool
}

// Seeder owns the services a run writes through.
type Seeder struct {
	users     *service.UserService
	tags      *service.TagService
	fragments *service.FragmentService
	likes     *service.LikeService
	faker     *gofakeit.Faker
	opts      Options
	logger    *slog.Logger
}

// New wires the services on top of db the same way the server does.
func New(db *sqlite.DB, bcryptCost int, logger *slog.Logger, opts Options) *Seeder {
	passwords := auth.NewPasswordService(bcryptCost)
	paging := service.NewPaging(service.DefaultPageSize, service.MaxPageSize)

	return &Seeder{
		users: service.NewUserService(db.Users(), passwords, logger),
		tags:  service.NewTagService(db.Tags(), paging, logger),
		fragments: service.NewFragmentService(db.Fragments(), db.Views(),
			service.NewAssembler(db.Users(), db.Tags()), paging, logger),
		likes:  service.NewLikeService(db.Fragments(), db.Likes(), logger),
		faker:  gofakeit.New(opts.Seed),
		opts:   opts,
		logger: logger,
	}
}

// Run creates the admin, the users, the tag vocabulary, fragments, likes
// and views, in that order.
func (s *Seeder) Run(ctx context.Context) (*Summary, error) {
	sum := &Summary{}

	admin, err := s.createAdmin(ctx)
	if err != nil {
		return nil, err
	}
	sum.AdminID = admin.ID

	users := []*model.User{admin}
	for i := 0; i < s.opts.Users; i++ {
		u, err := s.createUser(ctx, i)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	sum.Users = len(users)

	tags, err := s.tags.ResolveOrCreate(ctx, vocabulary)
	if err != nil {
		return nil, fmt.Errorf("seed: tags: %w", err)
	}
	sum.Tags = len(tags)

	fragments := make([]seeded, 0, s.opts.Fragments)
	for i := 0; i < s.opts.Fragments; i++ {
		author := users[s.faker.Number(0, len(users)-1)]
		f, err := s.createFragment(ctx, author, tags)
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, f)
		if f.public {
			sum.Public++
		}
	}
	sum.Fragments = len(fragments)

	if sum.Likes, err = s.like(ctx, users, fragments); err != nil {
		return nil, err
	}
	if sum.Views, err = s.view(ctx, users, fragments); err != nil {
		return nil, err
	}

	s.logger.Info("seed complete",
		slog.Int("users", sum.Users),
		slog.Int("tags", sum.Tags),
		slog.Int("fragments", sum.Fragments),
		slog.Int("likes", sum.Likes),
		slog.Int("views", sum.Views),
	)
	return sum, nil
}

func (s *Seeder) createAdmin(ctx context.Context) (*model.User, error) {
	u, err := s.users.Register(ctx, service.RegisterInput{
		Username: "admin",
		Email:    s.opts.AdminEmail,
		Password: DefaultPassword,
		Bio:      "Keeps the tag list tidy.",
	})
	if err != nil {
		return nil, fmt.Errorf("seed: admin: %w", err)
	}
	return s.users.SetAdmin(ctx, u.ID, true)
}

// createUser suffixes the index so generated names never collide.
func (s *Seeder) createUser(ctx context.Context, i int) (*model.User, error) {
	username := fmt.Sprintf("%s%d", strings.ToLower(s.faker.Username()), i)
	u, err := s.users.Register(ctx, service.RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: DefaultPassword,
		Bio:      s.faker.Sentence(10),
	})
	if err != nil {
		return nil, fmt.Errorf("seed: user %d: %w", i, err)
	}
	return u, nil
}

func (s *Seeder) createFragment(ctx context.Context, author *model.User, tags []model.Tag) (seeded, error) {
	language := s.faker.RandomString(languages)
	public := s.faker.Number(1, 100) > s.opts.PrivatePercent

	var names []string
	for n := s.faker.Number(0, 3); n > 0; n-- {
		names = append(names, tags[s.faker.Number(0, len(tags)-1)].Name)
	}

	detail, err := s.fragments.Create(ctx, author, service.CreateFragmentInput{
		Title:       s.faker.HackerPhrase(),
		Content:     s.code(language),
		Language:    language,
		Description: s.faker.Sentence(12),
		IsPublic:    &public,
		Tags:        names,
	})
	if err != nil {
		return seeded{}, fmt.Errorf("seed: fragment by %s: %w", author.Username, err)
	}
	return seeded{id: detail.ID, authorID: author.ID, public: public}, nil
}

// code produces a short, plausible snippet in language.
func (s *Seeder) code(language string) string {
	name := strings.ReplaceAll(strings.ToLower(s.faker.HackerVerb()), " ", "_") + "It"
	msg := s.faker.HackerPhrase()

	switch language {
	case "go":
		return fmt.Sprintf("func %s() {\n\tfmt.Println(%q)\n}\n", name, msg)
	case "python":
		return fmt.Sprintf("def %s():\n    print(%q)\n", name, msg)
	case "javascript":
		return fmt.Sprintf("function %s() {\n  console.log(%q);\n}\n", name, msg)
	case "rust":
		return fmt.Sprintf("fn %s() {\n    println!(%q);\n}\n", name, msg)
	case "sql":
		return fmt.Sprintf("SELECT id, title\nFROM fragments\nWHERE title LIKE '%%%s%%';\n", s.faker.Word())
	default:
		return fmt.Sprintf("#!/usr/bin/env bash\necho %q\n", msg)
	}
}

// like has every user like fragments they are allowed to like. Repeats are
// absorbed by LikeService, which reports them as not created.
func (s *Seeder) like(ctx context.Context, users []*model.User, fragments []seeded) (int, error) {
	if len(fragments) == 0 {
		return 0, nil
	}

	created := 0
	for _, u := range users {
		for n := 0; n < s.opts.LikesPerUser; n++ {
			f := fragments[s.faker.Number(0, len(fragments)-1)]
			if !f.public && f.authorID != u.ID {
				continue
			}
			ok, err := s.likes.Like(ctx, u, f.id)
			if err != nil {
				return created, fmt.Errorf("seed: like %s: %w", f.id, err)
			}
			if ok {
				created++
			}
		}
	}
	return created, nil
}

// view reads public fragments through FragmentService.Get, half anonymously,
// so the views table and the view counter fill the same way real traffic
// would fill them.
func (s *Seeder) view(ctx context.Context, users []*model.User, fragments []seeded) (int, error) {
	views := 0
	for _, f := range fragments {
		if !f.public {
			continue
		}
		for n := 0; n < s.opts.ViewsPerFragment; n++ {
			viewer := model.Anonymous()
			if s.faker.Bool() {
				viewer = model.Authenticated(users[s.faker.Number(0, len(users)-1)])
			}
			if _, err := s.fragments.Get(ctx, viewer, f.id, s.faker.IPv4Address()); err != nil {
				return views, fmt.Errorf("seed: view %s: %w", f.id, err)
			}
			views++
		}
	}
	return views, nil
}

// Command seed fills the configured database with demo users, tags,
// fragments, likes and views.
//
// It reads the same configuration as the server (DB_PATH, BCRYPT_COST and
// the rest, from the environment or .env), so running it next to the server
// seeds the database the server will open:
//
//	go run ./cmd/seed -users 20 -fragments 100
//
// Every generated account, the admin included, has the password
// "password123".
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/fragmenthub/internal/config"
	"github.com/sakif/fragmenthub/internal/repository/sqlite"
	"github.com/sakif/fragmenthub/internal/seed"
)

func main() {
	opts := seed.DefaultOptions()
	flag.IntVar(&opts.Users, "users", opts.Users, "number of regular users to create")
	flag.IntVar(&opts.Fragments, "fragments", opts.Fragments, "number of fragments to create")
	flag.IntVar(&opts.LikesPerUser, "likes", opts.LikesPerUser, "like attempts per user")
	flag.IntVar(&opts.ViewsPerFragment, "views", opts.ViewsPerFragment, "views per public fragment")
	flag.IntVar(&opts.PrivatePercent, "private", opts.PrivatePercent, "percentage of private fragments")
	flag.Int64Var(&opts.Seed, "seed", opts.Seed, "random seed; the same seed gives the same data")
	flag.StringVar(&opts.AdminEmail, "admin-email", opts.AdminEmail, "email of the admin account")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
			logger.Error("failed to create database directory", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	sum, err := seed.New(db, cfg.BcryptCost, logger, opts).Run(context.Background())
	if err != nil {
		logger.Error("seeding failed", slog.String("error", err.Error()))
		db.Close()
		os.Exit(1)
	}

	fmt.Printf("seeded %s: %d users (admin %s), %d tags, %d fragments (%d public), %d likes, %d views\n",
		cfg.DBPath, sum.Users, opts.AdminEmail, sum.Tags, sum.Fragments, sum.Public, sum.Likes, sum.Views)
	fmt.Printf("every account's password is %q\n", seed.DefaultPassword)
}

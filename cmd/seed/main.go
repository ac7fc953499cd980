package main

import (
	"context"
	"flag"
	"os"

	"plume/internal/config"
	"plume/internal/database"
	"plume/internal/middleware"
	"plume/internal/seed"
)

func main() {
	opts := seed.DefaultOptions()
	flag.IntVar(&opts.Users, "users", opts.Users, "number of users to create")
	flag.IntVar(&opts.Posts, "posts", opts.Posts, "number of top-level posts to create")
	flag.IntVar(&opts.Replies, "replies", opts.Replies, "number of replies to create")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		middleware.Logger.Error("failed to load configuration", "error", err.Error())
		os.Exit(1)
	}
	if cfg.IsProduction() {
		middleware.Logger.Error("refusing to seed a production database")
		os.Exit(1)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		middleware.Logger.Error("failed to connect to database", "error", err.Error())
		os.Exit(1)
	}

	if err := seed.Run(context.Background(), db, opts, cfg.EngagementWeights()); err != nil {
		middleware.Logger.Error("seed failed", "error", err.Error())
		os.Exit(1)
	}
}

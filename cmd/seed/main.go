package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"harbor-chat/internal/auth"
	"harbor-chat/internal/config"
	"harbor-chat/internal/domain"
	"harbor-chat/internal/repository"
	"harbor-chat/pkg/database"
)

// Seeds two dev users and a thread between them. Safe to re-run.
func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := database.ApplyMigrations(ctx, pool, "migrations"); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	users := repository.NewPgUserRepository(pool)
	threads := repository.NewPgThreadRepository(pool)

	seeds := []struct {
		username    string
		displayName string
		password    string
	}{
		{"alice", "Alice", "password1"},
		{"bob", "Bob", "password1"},
	}

	created := make([]domain.User, 0, len(seeds))
	for _, s := range seeds {
		if existing, err := users.GetByUsername(ctx, s.username); err == nil {
			created = append(created, existing)
			continue
		}

		hash, err := auth.HashPassword(s.password)
		if err != nil {
			log.Fatalf("hash password: %v", err)
		}
		user, err := users.Create(ctx, domain.User{
			Username:     s.username,
			DisplayName:  s.displayName,
			PasswordHash: hash,
		})
		if err != nil {
			log.Fatalf("create user %s: %v", s.username, err)
		}
		created = append(created, user)
		log.Printf("created user %s (%s)", user.Username, user.ID)
	}

	if len(created) >= 2 {
		summary, err := threads.Create(ctx, created[0].ID, created[1].ID)
		if err != nil {
			log.Fatalf("create thread: %v", err)
		}
		log.Printf("thread %s between %s and %s", summary.ThreadID, created[0].Username, created[1].Username)
	}
}

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"authservice/internal/auth"
	"authservice/internal/config"
	"authservice/internal/db"
	"authservice/internal/logger"
	"authservice/internal/repository"
	"authservice/internal/service"
)

// seed creates the admin account, or promotes an existing account with the
// same email. Flags override the ADMIN_* environment.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.SetupDefault(os.Stdout, cfg.IsProduction())

	name := flag.String("name", cfg.AdminName, "admin display name")
	email := flag.String("email", cfg.AdminEmail, "admin email")
	password := flag.String("password", cfg.AdminPassword, "admin password, used only when the account is created")
	flag.Parse()

	if *email == "" || *password == "" {
		log.Error("admin email and password are required (ADMIN_EMAIL / ADMIN_PASSWORD or -email / -password)")
		os.Exit(2)
	}

	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Error("connect database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("connected to database", slog.String("driver", cfg.DBDriver))

	if err := db.Migrate(gormDB); err != nil {
		log.Error("run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	users := service.NewUserService(repository.NewUserRepository(gormDB), auth.NewPasswordHasher(cfg.BcryptCost))
	admin, err := users.EnsureAdmin(context.Background(), *name, *email, *password)
	if err != nil {
		log.Error("seed admin", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("seed completed",
		slog.String("id", admin.ID.String()),
		slog.String("email", admin.Email),
		slog.String("role", string(admin.Role)),
	)
}

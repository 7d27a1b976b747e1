package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/healthythako/booking-service/internal/auth"
	"github.com/healthythako/booking-service/internal/bootstrap"
	"github.com/healthythako/booking-service/internal/config"
	"github.com/healthythako/booking-service/internal/model"
	"github.com/healthythako/booking-service/migrations"
	"github.com/healthythako/booking-service/pkg/logger"
	"github.com/healthythako/booking-service/pkg/pg"
)

// usage:
//
//	cli [--env=.env] migrate [--dir=./migrations]
//	cli [--env=.env] token --user=<uuid> [--role=client] [--email=a@b.com] [--ttl=24h]
func main() {
	err := config.Load(bootstrap.EnvPath(os.Args))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	switch command(os.Args[1:]) {
	case "migrate", "":
		err = migrate(os.Args)
	case "token":
		err = issueToken(os.Args)
	default:
		err = fmt.Errorf("unknown command %q", command(os.Args[1:]))
	}
	if err != nil {
		logger.Error("cli command failed", "error", err)
		os.Exit(1)
	}
}

func command(args []string) string {
	for _, a := range args {
		if len(a) > 0 && a[0] != '-' {
			return a
		}
	}
	return ""
}

// migrate runs the embedded migrations unless --dir points at a directory
// on disk.
func migrate(args []string) error {
	if dir := bootstrap.ArgValue(args, "dir"); dir != "" {
		if _, err := os.Stat(dir); err != nil {
			return fmt.Errorf("migration dir: %w", err)
		}
		return pg.Migrate(config.Get().PostgresWriteConfig(), nil, dir)
	}
	return pg.Migrate(config.Get().PostgresWriteConfig(), migrations.FS, migrations.Dir)
}

func issueToken(args []string) error {
	userID, err := uuid.Parse(bootstrap.ArgValue(args, "user"))
	if err != nil {
		return fmt.Errorf("--user must be a uuid: %w", err)
	}
	role := model.Role(bootstrap.ArgValue(args, "role"))
	if role == "" {
		role = model.RoleClient
	}
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", role)
	}
	ttl := 24 * time.Hour
	if v := bootstrap.ArgValue(args, "ttl"); v != "" {
		if ttl, err = time.ParseDuration(v); err != nil {
			return fmt.Errorf("--ttl: %w", err)
		}
	}

	cfg := config.Get()
	token, err := auth.New(cfg.JwtSecret, cfg.AppName).Issue(model.Session{
		UserID: userID,
		Role:   role,
		Email:  bootstrap.ArgValue(args, "email"),
	}, ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

// Команда dbtool выполняет служебные операции над базой без запуска API:
//
//	dbtool reset-votes             сбросить voted у всех персонажей
//	dbtool force-version N         снять dirty-состояние миграций, выставив версию N
//	dbtool issue-admin-token [sub] выпустить административный JWT
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	_ "github.com/lib/pq"

	"github.com/yourusername/newedenfaces-api/internal/config"
	"github.com/yourusername/newedenfaces-api/pkg/auth"
)

type command struct {
	name    string
	version int
	subject string
}

func parseCommand(args []string) (command, error) {
	if len(args) == 0 {
		return command{}, fmt.Errorf("command is required: reset-votes | force-version N | issue-admin-token [subject]")
	}
	cmd := command{name: args[0]}
	switch cmd.name {
	case "reset-votes":
		return cmd, nil
	case "force-version":
		if len(args) != 2 {
			return cmd, fmt.Errorf("force-version requires exactly one version argument")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil || v < 0 {
			return cmd, fmt.Errorf("invalid version %q", args[1])
		}
		cmd.version = v
		return cmd, nil
	case "issue-admin-token":
		cmd.subject = "admin"
		if len(args) > 1 {
			cmd.subject = args[1]
		}
		return cmd, nil
	default:
		return cmd, fmt.Errorf("unknown command %q", cmd.name)
	}
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	tokenTTL := flag.Duration("ttl", 24*time.Hour, "admin token lifetime")
	flag.Parse()

	cmd, err := parseCommand(flag.Args())
	if err != nil {
		log.Printf("dbtool: %v", err)
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	switch cmd.name {
	case "reset-votes":
		err = resetVotes(cfg.Database.PostgresURL())
	case "force-version":
		err = forceVersion(cfg.Database.PostgresConnectionString(), cfg.Database.MigrationsPath, cmd.version)
	case "issue-admin-token":
		err = issueAdminToken(cfg.Admin.JWTSecret, cmd.subject, *tokenTTL)
	}
	if err != nil {
		log.Fatalf("dbtool %s: %v", cmd.name, err)
	}
}

func resetVotes(url string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, url)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	tag, err := conn.Exec(ctx, "UPDATE characters SET voted = false, updated_at = NOW() WHERE voted")
	if err != nil {
		return err
	}
	fmt.Printf("Voting pool reset: %d characters\n", tag.RowsAffected())
	return nil
}

func forceVersion(connStr, migrationsPath string, version int) error {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return err
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return err
	}

	fmt.Printf("Forcing migration version to %d to clean dirty state...\n", version)
	if err := m.Force(version); err != nil {
		return fmt.Errorf("failed to force version: %w", err)
	}
	fmt.Println("Success! Dirty state cleaned. You can now run the app normally.")
	return nil
}

func issueAdminToken(secret, subject string, ttl time.Duration) error {
	token, err := auth.NewJWTService(secret).GenerateAdminToken(subject, ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

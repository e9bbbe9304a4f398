// Command admin creates an administrator account. The password is read from
// the terminal without echo.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/resourcehub/internal/common"
	"github.com/dmitrijs2005/resourcehub/internal/server/config"
	"github.com/dmitrijs2005/resourcehub/internal/server/models"
	"github.com/dmitrijs2005/resourcehub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/resourcehub/internal/server/services"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

type options struct {
	dsn   string
	email string
	name  string
}

func parseFlags(args []string, defaults *config.Config) (*options, error) {
	fs := flag.NewFlagSet("admin", flag.ContinueOnError)
	opts := &options{}
	fs.StringVar(&opts.dsn, "d", defaults.DatabaseDSN, "database DSN")
	fs.StringVar(&opts.email, "email", "", "admin email")
	fs.StringVar(&opts.name, "name", "Administrator", "admin display name")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.email) == "" {
		return nil, errors.New("-email is required")
	}
	return opts, nil
}

// promptPassword asks twice and requires both entries to match.
func promptPassword(w io.Writer) (string, error) {
	fmt.Fprint(w, "Enter password: ")
	first, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}

	fmt.Fprint(w, "Repeat password: ")
	second, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}

	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	if len(first) < services.MinPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters long", services.MinPasswordLength)
	}
	return string(first), nil
}

func run(ctx context.Context, args []string, w io.Writer) error {
	cfg := &config.Config{}
	cfg.LoadDefaults()

	opts, err := parseFlags(args, cfg)
	if err != nil {
		return err
	}
	cfg.DatabaseDSN = opts.dsn

	password, err := promptPassword(w)
	if err != nil {
		return err
	}

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db open error: %w", err)
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	us := services.NewUserService(db, rm, cfg)
	result, err := us.Register(ctx, services.RegisterInput{
		Name:     opts.name,
		Email:    opts.email,
		Password: password,
		Role:     string(models.RoleAdmin),
	})
	if errors.Is(err, common.ErrorAlreadyExists) {
		fmt.Fprintf(w, "User %s already exists\n", opts.email)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Created admin %s (%s)\n", result.User.Email, result.User.ID)
	return nil
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

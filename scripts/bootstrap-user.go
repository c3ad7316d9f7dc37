package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/taskguard/taskguard/internal/auth"
	"github.com/taskguard/taskguard/internal/metrics"
	"github.com/taskguard/taskguard/internal/repository"
	"github.com/taskguard/taskguard/internal/service"
)

type output struct {
	UserID      int64  `json:"user_id"`
	Email       string `json:"email"`
	Created     bool   `json:"created"`
	AccessToken string `json:"access_token,omitempty"`
	ExpiresAt   string `json:"expires_at,omitempty"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		jwtSecret   = flag.String("jwt-secret", os.Getenv("JWT_SECRET"), "JWT signing secret, needed with -token")
		email       = flag.String("email", "", "User email")
		password    = flag.String("password", os.Getenv("BOOTSTRAP_PASSWORD"), "User password")
		issueToken  = flag.Bool("token", false, "Also print a bearer token for the user")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}
	if strings.TrimSpace(*email) == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "-email and -password are required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := repository.Migrate(ctx, *databaseURL); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	hasher, err := auth.NewHasher(auth.HasherConfig{Algorithm: auth.AlgorithmBcrypt, BcryptCost: 12})
	if err != nil {
		fmt.Fprintln(os.Stderr, "password hasher:", err)
		os.Exit(1)
	}

	// Token service is only used with -token; a placeholder secret keeps
	// registration working without one.
	secret := *jwtSecret
	if secret == "" {
		if *issueToken {
			fmt.Fprintln(os.Stderr, "JWT_SECRET is required with -token")
			os.Exit(1)
		}
		secret = "unused"
	}
	tokens, err := auth.NewTokenService(auth.TokenConfig{Secret: []byte(secret), Issuer: "taskguard"})
	if err != nil {
		fmt.Fprintln(os.Stderr, "token service:", err)
		os.Exit(1)
	}

	authService := service.NewAuthService(repo, hasher, tokens, metrics.NewNoop())

	out, err := ensureUser(ctx, authService, *email, *password)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	if *issueToken {
		issued, err := authService.Login(ctx, *email, *password)
		if err != nil {
			fmt.Fprintln(os.Stderr, "issue token:", err)
			os.Exit(1)
		}
		out.AccessToken = issued.Token
		out.ExpiresAt = issued.ExpiresAt.UTC().Format(time.RFC3339)
	}

	switch strings.ToLower(*format) {
	case "plain":
		if out.AccessToken != "" {
			fmt.Println(out.AccessToken)
		} else {
			fmt.Println(out.UserID)
		}
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}

// ensureUser registers email, or checks the password of an existing account.
func ensureUser(ctx context.Context, svc *service.AuthService, email, password string) (*output, error) {
	user, err := svc.Register(ctx, email, password)
	if err == nil {
		return &output{UserID: user.ID, Email: user.Email, Created: true}, nil
	}
	if !errors.Is(err, service.ErrEmailExists) {
		return nil, fmt.Errorf("create user: %w", err)
	}

	existing, err := svc.Authenticate(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("user %s exists with a different password: %w", strings.TrimSpace(email), err)
	}
	return &output{UserID: existing.ID, Email: existing.Email}, nil
}

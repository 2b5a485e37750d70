package main

import (
	"context"
	"database/sql"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/quantfolio/auth"
	"github.com/quantfolio/auth/middleware/jwtware"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using process environment")
	}

	cfg := auth.ConfigFromEnv()
	if cfg.GetSigningKey() == "" {
		log.Fatal("JWT_SECRET is required")
	}

	db, err := openDatabase()
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	store := auth.NewUsersRepository(db)

	tokens := auth.NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenTTL(),
		cfg.GetIssuer(),
		nil,
		nil,
	)

	auther := auth.NewAuthenticator(store, tokens).
		WithNotifier(buildNotifier()).
		WithOTPTTL(cfg.GetOTPTTL())

	controller := auth.NewAuthController(
		auth.WithAuthenticator(auther),
		auth.WithUserStore(store),
	)

	app := fiber.New(fiber.Config{
		AppName: "authd",
	})

	auth.RegisterAuthRoutes(app.Group("/auth"), controller)

	gate := jwtware.New(jwtware.Config{
		TokenValidator: tokenValidatorAdapter{tokens},
		ResolveIdentity: func(ctx context.Context, subject string) (jwtware.Identity, error) {
			user, err := store.GetByUsername(ctx, subject)
			if err != nil {
				return nil, err
			}
			return auth.IdentityOf(user), nil
		},
		ContextKey: cfg.GetContextKey(),
		ContextEnricher: func(ctx context.Context, identity jwtware.Identity) context.Context {
			return auth.WithIdentityContext(ctx, identity)
		},
	})

	api := app.Group("/api", gate, jwtware.RequireAuthenticated(cfg.GetContextKey()))
	api.Get("/me", func(c *fiber.Ctx) error {
		identity, _ := jwtware.IdentityFromLocals(c, cfg.GetContextKey())
		return c.JSON(fiber.Map{
			"id":       identity.ID(),
			"username": identity.Username(),
			"email":    identity.Email(),
		})
	})

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	log.Fatal(app.Listen(addr))
}

// tokenValidatorAdapter re-types auth.TokenServiceImpl.Validate so it
// satisfies jwtware.TokenValidator; the claim interfaces are identical but
// nominally distinct to avoid an import cycle.
type tokenValidatorAdapter struct {
	tokens *auth.TokenServiceImpl
}

func (a tokenValidatorAdapter) Validate(tokenString string) (jwtware.AuthClaims, error) {
	return a.tokens.Validate(tokenString)
}

func openDatabase() (*bun.DB, error) {
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		dsn = "file:auth.db?cache=shared&mode=rwc"
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if _, err := db.NewCreateTable().
		Model((*auth.User)(nil)).
		IfNotExists().
		Exec(context.Background()); err != nil {
		return nil, err
	}

	return db, nil
}

func buildNotifier() auth.Notifier {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return auth.NoopNotifier{}
	}

	port := os.Getenv("SMTP_PORT")
	if port == "" {
		port = "465"
	}

	return auth.NewSMTPNotifier(
		host,
		port,
		os.Getenv("SMTP_USERNAME"),
		os.Getenv("SMTP_PASSWORD"),
		os.Getenv("SMTP_FROM"),
	)
}

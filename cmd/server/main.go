package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // Loads .env files into the environment
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/membership-service/internal/auth"
	"github.com/iliyamo/membership-service/internal/config" // Internal config loader
	"github.com/iliyamo/membership-service/internal/database"
	"github.com/iliyamo/membership-service/internal/handler"
	"github.com/iliyamo/membership-service/internal/membership"
	appmw "github.com/iliyamo/membership-service/internal/middleware"
	"github.com/iliyamo/membership-service/internal/queue"
	"github.com/iliyamo/membership-service/internal/repository"
	"github.com/iliyamo/membership-service/internal/router" // Internal router setup
	queuepub "github.com/iliyamo/membership-service/internal/service"
)

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	roles := repository.NewRoleRepo(db)
	perms := repository.NewPermissionRepo(db)
	userRoles := repository.NewUserRoleRepo(db)
	rolePerms := repository.NewRolePermissionRepo(db)
	activities := repository.NewActivityRepo(db)

	signer := auth.NewSigner(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTLMin)
	hasher := auth.NewHasher(cfg.BcryptCost)
	policy := auth.PasswordPolicy{
		MinimumLength:           cfg.PasswordMinLength,
		RequireUppercase:        cfg.PasswordRequireUpper,
		RequireLowercase:        cfg.PasswordRequireLower,
		RequireDigit:            cfg.PasswordRequireDigit,
		RequireSpecialCharacter: cfg.PasswordRequireSpecial,
	}

	// Redis backs both the lockout guard and the rate limiter. Losing it
	// degrades to no lockout and no limiting rather than downtime.
	rdb := config.NewRedisClient()
	var guard membership.LoginGuard
	if rdb != nil {
		guard = membership.NewRedisLoginGuard(rdb, cfg.MaxFailedAttempts, cfg.LockoutMinutes)
	} else {
		log.Println("redis unavailable; login lockout and rate limiting disabled")
	}

	// Activity events flow through RabbitMQ into the audit table. An empty
	// broker URL keeps the engine silent instead of failing requests.
	var publisher membership.ActivityPublisher
	if cfg.RabbitURL != "" {
		publisher = queuepub.NewPublisher(cfg.RabbitURL)
		go func() {
			if err := queue.StartActivityConsumer(cfg.RabbitURL, activities); err != nil {
				log.Printf("activity consumer stopped: %v", err)
			}
		}()
	}

	authz := membership.NewAuthz(users, roles, perms, userRoles, rolePerms)
	engine := membership.NewEngine(users, tokens, authz, signer, hasher, policy,
		membership.Options{
			RequireUniqueEmail:       cfg.RequireUniqueEmail,
			RequireEmailConfirmation: cfg.RequireEmailConfirmation,
			RequirePhoneConfirmation: cfg.RequirePhoneConfirmation,
			RefreshTokenExpiryDays:   cfg.RefreshTTLDays,
		}, guard, publisher)

	e := echo.New() // Create Echo instance
	e.Use(appmw.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e) // Health check
	router.RegisterAuth(e, handler.NewAuthHandler(engine), handler.NewUserHandler(engine), signer)
	router.RegisterAdmin(e, handler.NewAdminHandler(engine), signer)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}

package config // package config loads application configuration from environment variables

import (
	"log" // log is used to report configuration errors and halt execution
	"os"  // os provides access to environment variables
)

// Config holds all runtime configuration values. Each field corresponds to an
// environment variable. The types reflect how the values are used in the
// application: strings for identifiers and secrets, ints for durations,
// counts and costs.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	JWTSecret      string // secret used to sign JWTs
	JWTIssuer      string // iss claim stamped into and required from every token
	JWTAudience    string // aud claim stamped into and required from every token
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing

	PasswordMinLength      int  // minimum accepted password length
	PasswordRequireUpper   bool // require at least one uppercase letter
	PasswordRequireLower   bool // require at least one lowercase letter
	PasswordRequireDigit   bool // require at least one digit
	PasswordRequireSpecial bool // require at least one non-alphanumeric rune

	RequireUniqueEmail       bool // reject registrations reusing an email
	RequireEmailConfirmation bool // new accounts start with email unconfirmed
	RequirePhoneConfirmation bool // new accounts start with phone unconfirmed

	MaxFailedAttempts int // failed logins tolerated before lockout
	LockoutMinutes    int // lockout duration once the threshold is hit

	RabbitURL string // AMQP broker URL; empty disables activity publishing
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values cause
// the program to exit with a fatal log message. Tunables with sensible
// defaults use the env* helpers instead.
func Load() Config {
	return Config{
		Env:  must("APP_ENV"),  // environment (dev/test/prod)
		Port: must("APP_PORT"), // port to bind the HTTP server

		DBUser: must("DB_USER"),      // database user
		DBPass: os.Getenv("DB_PASS"), // database password (empty allowed)
		DBHost: must("DB_HOST"),      // database host
		DBPort: must("DB_PORT"),      // database port
		DBName: must("DB_NAME"),      // database name

		JWTSecret:      must("JWT_SECRET"),                           // secret used for signing JWTs
		JWTIssuer:      envStr("JWT_ISSUER", "membership-service"),   // token issuer
		JWTAudience:    envStr("JWT_AUDIENCE", "membership-clients"), // token audience
		AccessTTLMin:   envInt("ACCESS_TOKEN_TTL_MIN", 60),           // TTL for access tokens in minutes
		RefreshTTLDays: envInt("REFRESH_TOKEN_TTL_DAYS", 30),         // TTL for refresh tokens in days
		BcryptCost:     envInt("BCRYPT_COST", 12),                    // bcrypt cost factor

		PasswordMinLength:      envInt("PASSWORD_MIN_LENGTH", 8),
		PasswordRequireUpper:   envBool("PASSWORD_REQUIRE_UPPERCASE", true),
		PasswordRequireLower:   envBool("PASSWORD_REQUIRE_LOWERCASE", true),
		PasswordRequireDigit:   envBool("PASSWORD_REQUIRE_DIGIT", true),
		PasswordRequireSpecial: envBool("PASSWORD_REQUIRE_SPECIAL", true),

		RequireUniqueEmail:       envBool("USER_REQUIRE_UNIQUE_EMAIL", true),
		RequireEmailConfirmation: envBool("USER_REQUIRE_EMAIL_CONFIRMATION", false),
		RequirePhoneConfirmation: envBool("USER_REQUIRE_PHONE_CONFIRMATION", false),

		MaxFailedAttempts: envInt("SECURITY_MAX_FAILED_ATTEMPTS", 5),
		LockoutMinutes:    envInt("SECURITY_LOCKOUT_MINUTES", 30),

		RabbitURL: os.Getenv("RABBITMQ_URL"), // empty disables the broker
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

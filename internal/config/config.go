package config // package config loads application configuration from environment variables

import (
    "log"
    "os"
    "strconv"
    "time"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  The allocation constants (hold TTL,
// reservation lead time, sweep interval) are configuration injected into
// the hold manager, validator and sweeper rather than compiled-in
// globals.
type Config struct {
    Env              string        // application environment (e.g. "dev", "prod")
    Port             string        // HTTP port to listen on
    DBUser           string        // database username
    DBPass           string        // database password (optional)
    DBHost           string        // database host address
    DBPort           string        // database port number
    DBName           string        // database name
    JWTSecret        string        // secret used to verify access tokens
    HoldTTL          time.Duration // how long a seat hold blocks other users
    ReservationLead  time.Duration // window before show start that blocks new reservations
    SweepInterval    time.Duration // how often the reservation cleanup sweeper runs
    PaymentURL       string        // base URL of the external payment gateway
}

// Load reads configuration values from environment variables and returns
// a Config.  Required variables are enforced by must(); missing values
// cause the program to exit with a fatal log message.  The allocation
// constants default to 5 minutes, 30 minutes and 60 seconds.
func Load() Config {
    return Config{
        Env:             must("APP_ENV"),
        Port:            must("APP_PORT"),
        DBUser:          must("DB_USER"),
        DBPass:          os.Getenv("DB_PASS"), // empty allowed
        DBHost:          must("DB_HOST"),
        DBPort:          must("DB_PORT"),
        DBName:          must("DB_NAME"),
        JWTSecret:       must("JWT_SECRET"),
        HoldTTL:         minutes("HOLD_TTL_MIN", 5),
        ReservationLead: minutes("RESERVATION_LEAD_TIME_MIN", 30),
        SweepInterval:   seconds("SWEEP_INTERVAL_SEC", 60),
        PaymentURL:      envStr("PAYMENT_URL", "https://pay.example.com/session"),
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and
// exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

func minutes(key string, def int) time.Duration {
    return time.Duration(envInt(key, def)) * time.Minute
}

func seconds(key string, def int) time.Duration {
    return time.Duration(envInt(key, def)) * time.Second
}

// Shared env helpers reused by redis.go, ratelimit.go and cache.go.
func envStr(k, d string) string {
    if v := os.Getenv(k); v != "" {
        return v
    }
    return d
}

func envInt(k string, d int) int {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    if n, err := strconv.Atoi(v); err == nil {
        return n
    }
    return d
}

func envBool(k string, d bool) bool {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    switch v {
    case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
        return true
    case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
        return false
    }
    return d
}

func envDur(k string, d time.Duration) time.Duration {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    if dur, err := time.ParseDuration(v); err == nil {
        return dur
    }
    return d
}

package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "strings" // strings splits list-valued variables
    "time"    // time parses durations for worker scheduling
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  The types reflect how the values are used
// in the application: strings for identifiers and secrets, ints for
// limits, durations for scheduling.
type Config struct {
    Env  string // application environment (e.g. "dev", "prod")
    Port string // HTTP port to listen on

    DBUser string // database username
    DBPass string // database password (optional)
    DBHost string // database host address
    DBPort string // database port number
    DBName string // database name

    JWTSecret string // secret used to verify bearer tokens (optional identity)

    HoldTTL          time.Duration // how long a seat hold lives after the last grant
    MaxSeatsPerHold  int           // cap on seats in a single hold
    HoldsPerMinute   int           // per-session hold-grant rate limit
    ExpirySweepEvery time.Duration // expiration worker tick period

    PaymentProviderKey   string // external payment provider API key; empty enables mock mode
    PaymentWebhookSecret string // secret used to verify webhook signatures

    KafkaBrokers       []string // notification broker addresses (empty disables notifications)
    NotificationsTopic string   // kafka topic for order confirmations
}

// Load reads configuration values from environment variables and returns
// a Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message; everything related
// to the hold lifecycle has a sensible default.
func Load() Config {
    return Config{
        Env:  must("APP_ENV"),  // environment (dev/test/prod)
        Port: must("APP_PORT"), // port to bind the HTTP server

        DBUser: must("DB_USER"),      // database user
        DBPass: os.Getenv("DB_PASS"), // database password (empty allowed)
        DBHost: must("DB_HOST"),      // database host
        DBPort: must("DB_PORT"),      // database port
        DBName: must("DB_NAME"),      // database name

        JWTSecret: os.Getenv("JWT_SECRET"), // empty disables user attribution

        HoldTTL:          time.Duration(envInt("SEAT_HOLD_EXPIRY_MINUTES", 10)) * time.Minute,
        MaxSeatsPerHold:  envInt("SEAT_HOLD_MAX_PER_HOLD", 10),
        HoldsPerMinute:   envInt("SEAT_HOLD_MAX_PER_MINUTE", 5),
        ExpirySweepEvery: time.Duration(envInt("SEAT_EXPIRY_SWEEP_SECONDS", 60)) * time.Second,

        PaymentProviderKey:   os.Getenv("PAYMENT_PROVIDER_KEY"),
        PaymentWebhookSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET"),

        KafkaBrokers:       splitList(os.Getenv("KAFKA_BROKERS")),
        NotificationsTopic: getenv("KAFKA_NOTIFICATIONS_TOPIC", "order.notifications"),
    }
}

// MockPayments reports whether the checkout coordinator should run in
// mock-succeed mode.  Without a provider key there is no external
// authority to confirm payments, so orders finalize synchronously.
func (c Config) MockPayments() bool { return c.PaymentProviderKey == "" }

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

func getenv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func envInt(k string, d int) int {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    if n, err := strconv.Atoi(v); err == nil && n > 0 {
        return n
    }
    return d
}

func splitList(s string) []string {
    var out []string
    for _, p := range strings.Split(s, ",") {
        if p = strings.TrimSpace(p); p != "" {
            out = append(out, p)
        }
    }
    return out
}

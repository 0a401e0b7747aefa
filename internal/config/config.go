package config // package config loads application configuration from environment variables

import (
    "log"
    "os"
    "time"

    "github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
    Env            string // application environment (dev, test, prod)
    Port           string // HTTP port to listen on
    LogLevel       string // debug, info, warn, error
    DBUser         string // database username
    DBPass         string // database password (optional)
    DBHost         string // database host address
    DBPort         string // database port number
    DBName         string // database name
    DBMigrate      bool   // apply the embedded schema at start-up
    JWTSecret      string // secret used to sign JWTs
    AccessTTLMin   int    // access token time-to-live in minutes
    RefreshTTLDays int    // refresh token time-to-live in days
    BcryptCost     int    // bcrypt cost for password hashing

    Reservation ReservationConfig
    Account     AccountConfig
    Broker      BrokerConfig
    SMTP        SMTPConfig
}

// ReservationConfig carries the timings of the seat-reservation core.
type ReservationConfig struct {
    HoldTTL       time.Duration // how long a realtime seat selection lives
    PaymentWindow time.Duration // unpaid bookings are swept this long before start
    CancelCutoff  time.Duration // customers may not cancel later than this before start
    SweepInterval time.Duration // period of the deadline sweep
    SweepDriver   string        // ticker or asynq
    MaxSeats      int           // maximum seats per booking
}

// LoadDotEnv reads a .env file when one exists.  Variables already present
// in the environment are never overridden.
func LoadDotEnv(paths ...string) {
    if err := godotenv.Load(paths...); err != nil && !os.IsNotExist(err) {
        log.Printf("config: .env not loaded: %v", err)
    }
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    return Config{
        Env:            getenv("APP_ENV", "dev"),
        Port:           must("APP_PORT"),
        LogLevel:       getenv("LOG_LEVEL", "info"),
        DBUser:         must("DB_USER"),
        DBPass:         os.Getenv("DB_PASS"),
        DBHost:         must("DB_HOST"),
        DBPort:         must("DB_PORT"),
        DBName:         must("DB_NAME"),
        DBMigrate:      envBool("DB_MIGRATE", true),
        JWTSecret:      must("JWT_SECRET"),
        AccessTTLMin:   envInt("ACCESS_TOKEN_TTL_MIN", 15),
        RefreshTTLDays: envInt("REFRESH_TOKEN_TTL_DAYS", 7),
        BcryptCost:     envInt("BCRYPT_COST", 10),
        Reservation:    LoadReservationConfig(),
        Account:        LoadAccountConfig(),
        Broker:         LoadBrokerConfig(),
        SMTP:           LoadSMTPConfig(),
    }
}

// LoadReservationConfig applies the defaults of the booking rules: five
// minute holds, a twenty minute payment window, a thirty minute
// cancellation cutoff, a fifteen minute sweep and at most five seats.
func LoadReservationConfig() ReservationConfig {
    rc := ReservationConfig{
        HoldTTL:       envDur("HOLD_TTL", 5*time.Minute),
        PaymentWindow: envDur("PAYMENT_WINDOW", 20*time.Minute),
        CancelCutoff:  envDur("CANCEL_CUTOFF", 30*time.Minute),
        SweepInterval: envDur("SWEEP_INTERVAL", 15*time.Minute),
        SweepDriver:   envStr("SWEEP_DRIVER", "ticker"),
        MaxSeats:      envInt("MAX_SEATS_PER_BOOKING", 5),
    }
    if rc.MaxSeats < 1 {
        rc.MaxSeats = 1
    }
    if rc.SweepInterval <= 0 {
        rc.SweepInterval = 15 * time.Minute
    }
    return rc
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

package config

import "time"

// RateLimitConfig configures the Redis token bucket.  Booking endpoints
// draw from a separate, smaller bucket so seat grabbing cannot starve
// browsing.
type RateLimitConfig struct {
    Enabled         bool
    Capacity        int
    RefillTokens    int
    RefillInterval  time.Duration
    TTL             time.Duration
    KeyStrategy     string
    Prefix          string
    BookingCapacity int
    Debug           bool
}

func LoadRateLimitConfig() RateLimitConfig {
    def := RateLimitConfig{
        Enabled:         envBool("RATE_LIMIT_ENABLED", true),
        Capacity:        envInt("RATE_LIMIT_CAPACITY", 60),
        RefillTokens:    envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval:  envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:             envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:     envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
        Prefix:          envStr("RATE_LIMIT_PREFIX", "rl"),
        BookingCapacity: envInt("RATE_LIMIT_BOOKING_CAPACITY", 10),
        Debug:           envBool("RATE_LIMIT_DEBUG", false),
    }
    if def.Capacity < 1 {
        def.Capacity = 1
    }
    if def.BookingCapacity < 1 {
        def.BookingCapacity = 1
    }
    if def.RefillTokens < 1 {
        def.RefillTokens = 1
    }
    if def.RefillInterval <= 0 {
        def.RefillInterval = time.Second
    }
    if minTTL := 5 * def.RefillInterval; def.TTL < minTTL {
        def.TTL = minTTL
    }
    return def
}

// ForBookings returns a copy drawing from the booking bucket.
func (c RateLimitConfig) ForBookings() RateLimitConfig {
    c.Capacity = c.BookingCapacity
    c.Prefix = c.Prefix + ":booking"
    return c
}

package config

import "time"

// AccountConfig drives email confirmation and password resets.  With
// RequireVerification off, registration signs the user in right away and
// no confirmation mail is sent.
type AccountConfig struct {
    RequireVerification bool
    FrontendURL         string        // base of the links put in account emails
    ConfirmTTL          time.Duration // lifetime of a confirmation token
    ResetTTL            time.Duration // lifetime of a password reset token
    UnverifiedTTL       time.Duration // unconfirmed customers older than this are purged
    PurgeInterval       time.Duration
}

// LoadAccountConfig reads ACCOUNT_* variables and FRONTEND_URL.
func LoadAccountConfig() AccountConfig {
    ac := AccountConfig{
        RequireVerification: envBool("ACCOUNT_REQUIRE_VERIFICATION", true),
        FrontendURL:         envStr("FRONTEND_URL", "http://localhost:3000"),
        ConfirmTTL:          envDur("ACCOUNT_CONFIRM_TTL", 24*time.Hour),
        ResetTTL:            envDur("ACCOUNT_RESET_TTL", time.Hour),
        UnverifiedTTL:       envDur("ACCOUNT_UNVERIFIED_TTL", 24*time.Hour),
        PurgeInterval:       envDur("ACCOUNT_PURGE_INTERVAL", time.Hour),
    }
    if ac.PurgeInterval <= 0 {
        ac.PurgeInterval = time.Hour
    }
    return ac
}

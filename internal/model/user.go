package model

import "time"

// Roles carried in the users.role column and in the JWT "role" claim.
const (
    RoleAdmin    = "ADMIN"
    RoleCustomer = "CUSTOMER"
)

// User represents an application user record as stored in the
// `users` table.  The password hash never leaves the repository and
// handler layers; it is excluded from JSON.
//
// Fields:
//  ID           - primary key identifier of the user.
//  Name         - display name used in notifications.
//  Email        - unique email address.
//  PasswordHash - bcrypt hashed password.
//  Role         - ADMIN or CUSTOMER.
//  IsActive     - whether the account is active.
//  IsVerified   - whether the email address was confirmed.
type User struct {
    ID           uint64    `json:"id"`          // users.id
    Name         string    `json:"name"`        // users.name
    Email        string    `json:"email"`       // users.email
    PasswordHash string    `json:"-"`           // users.password_hash
    Role         string    `json:"role"`        // users.role
    IsActive     bool      `json:"is_active"`   // users.is_active
    IsVerified   bool      `json:"is_verified"` // users.is_verified
    CreatedAt    time.Time `json:"created_at"`  // users.created_at
    UpdatedAt    time.Time `json:"updated_at"`  // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  The plain
// token is not stored; only its SHA-256 hash.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}

// Purposes of the one-time tokens mailed to users.
const (
    TokenConfirm = "CONFIRM"
    TokenReset   = "RESET"
)

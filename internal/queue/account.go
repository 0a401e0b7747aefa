package queue

import (
    "fmt"
    "net/url"
    "strings"
    "time"
)

// AccountLink is the data of an account confirmation or password reset
// email.
type AccountLink struct {
    Name     string
    Email    string
    Link     string
    ValidFor string
}

// ConfirmationMail builds the email carrying the account confirmation
// link <frontend>/verification?token=<token>.
func ConfirmationMail(frontend, name, email, token string, ttl time.Duration) (Mail, error) {
    return accountMail("confirm_account", "Confirm your CineClic account", frontend, "/verification", name, email, token, ttl)
}

// PasswordResetMail builds the email carrying the password reset link
// <frontend>/resetPassword?token=<token>.
func PasswordResetMail(frontend, name, email, token string, ttl time.Duration) (Mail, error) {
    return accountMail("reset_password", "Reset your CineClic password", frontend, "/resetPassword", name, email, token, ttl)
}

func accountMail(tmpl, subject, frontend, path, name, email, token string, ttl time.Duration) (Mail, error) {
    link := strings.TrimRight(frontend, "/") + path + "?token=" + url.QueryEscape(token)
    html, err := render(tmpl, AccountLink{Name: name, Email: email, Link: link, ValidFor: humanDuration(ttl)})
    if err != nil {
        return Mail{}, err
    }
    return Mail{To: email, ToName: name, Subject: subject, HTML: html}, nil
}

func humanDuration(d time.Duration) string {
    switch {
    case d >= 48*time.Hour && d%(24*time.Hour) == 0:
        return fmt.Sprintf("%d days", d/(24*time.Hour))
    case d >= 2*time.Hour && d%time.Hour == 0:
        return fmt.Sprintf("%d hours", d/time.Hour)
    case d == time.Hour:
        return "1 hour"
    }
    return fmt.Sprintf("%d minutes", int(d.Minutes()))
}

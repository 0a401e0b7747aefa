package handler

import (
    "context"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cineclic/internal/model"
    "github.com/iliyamo/cineclic/internal/queue"
    "github.com/iliyamo/cineclic/internal/repository"
    "github.com/iliyamo/cineclic/internal/utils"
)

const mailTimeout = 15 * time.Second

type tokenReq struct {
    Token string `json:"token" validate:"required,max=128"`
}

type forgotReq struct {
    Email string `json:"email" validate:"required,email"`
}

type resetReq struct {
    Token    string `param:"token" json:"token" validate:"required,max=128"`
    Password string `json:"password" validate:"required,min=8,max=72"`
}

// forgotMessage is returned whether or not the address has an account.
const forgotMessage = "if the address belongs to an account, a reset link is on its way"

// issueCode stores a fresh one-time token for u and returns the raw value.
func (h *AuthHandler) issueCode(ctx context.Context, u model.User, purpose string, ttl time.Duration) (string, error) {
    raw, err := utils.NewOneTimeToken()
    if err != nil {
        return "", err
    }
    if err := h.Codes.Issue(ctx, u.ID, purpose, utils.HashRefreshRaw(raw), time.Now().UTC().Add(ttl)); err != nil {
        return "", err
    }
    return raw, nil
}

func (h *AuthHandler) send(ctx context.Context, m queue.Mail) error {
    ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mailTimeout)
    defer cancel()
    return h.Mailer.Send(ctx, m)
}

func (h *AuthHandler) sendConfirmation(ctx context.Context, u model.User) error {
    ac := h.Cfg.Account
    raw, err := h.issueCode(ctx, u, model.TokenConfirm, ac.ConfirmTTL)
    if err != nil {
        return err
    }
    m, err := queue.ConfirmationMail(ac.FrontendURL, u.Name, u.Email, raw, ac.ConfirmTTL)
    if err != nil {
        return err
    }
    return h.send(ctx, m)
}

// Confirm marks the account behind a confirmation token as verified.  The
// token comes from the path (GET /confirm/:token) or the JSON body.
func (h *AuthHandler) Confirm(c echo.Context) error {
    token := strings.TrimSpace(c.Param("token"))
    if token == "" {
        var req tokenReq
        if err := bindValid(c, &req); err != nil {
            return nil
        }
        token = strings.TrimSpace(req.Token)
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    uid, err := h.Codes.Consume(ctx, model.TokenConfirm, utils.HashRefreshRaw(token))
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
        }
        h.log.Error("consume confirmation token failed", "err", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "confirmation failed"})
    }
    if err := h.Users.SetVerified(ctx, uid); err != nil {
        h.log.Error("mark verified failed", "user_id", uid, "err", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "confirmation failed"})
    }
    h.log.Info("account confirmed", "user_id", uid)
    return c.JSON(http.StatusOK, echo.Map{"message": "account confirmed"})
}

// ForgotPassword mails a password reset link.  The response does not
// reveal whether the address has an account.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
    var req forgotReq
    if err := bindValid(c, &req); err != nil {
        return nil
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, req.Email)
    switch {
    case errors.Is(err, repository.ErrNotFound):
        return c.JSON(http.StatusOK, echo.Map{"message": forgotMessage})
    case err != nil:
        h.log.Error("load user failed", "err", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    case !u.IsActive:
        return c.JSON(http.StatusOK, echo.Map{"message": forgotMessage})
    }

    ac := h.Cfg.Account
    raw, err := h.issueCode(ctx, u, model.TokenReset, ac.ResetTTL)
    if err != nil {
        h.log.Error("issue reset token failed", "user_id", u.ID, "err", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset failed"})
    }
    m, err := queue.PasswordResetMail(ac.FrontendURL, u.Name, u.Email, raw, ac.ResetTTL)
    if err == nil {
        err = h.send(ctx, m)
    }
    if err != nil {
        h.log.Error("reset email failed", "user_id", u.ID, "err", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset email could not be sent"})
    }
    return c.JSON(http.StatusOK, echo.Map{"message": forgotMessage})
}

// ValidateToken reports whether a password reset token is still usable.
func (h *AuthHandler) ValidateToken(c echo.Context) error {
    var req tokenReq
    if err := bindValid(c, &req); err != nil {
        return nil
    }
    _, err := h.Codes.Lookup(c.Request().Context(), model.TokenReset, utils.HashRefreshRaw(strings.TrimSpace(req.Token)))
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "invalid token"})
        }
        h.log.Error("lookup reset token failed", "err", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "token valid"})
}

// ResetPassword sets a new password with a reset token.  The mailbox is
// proven, so the account counts as confirmed; every session is revoked.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
    var req resetReq
    if err := bindValid(c, &req); err != nil {
        return nil
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    uid, err := h.Codes.Consume(ctx, model.TokenReset, utils.HashRefreshRaw(strings.TrimSpace(req.Token)))
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "invalid token"})
        }
        h.log.Error("consume reset token failed", "err", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset failed"})
    }
    if err := h.Users.UpdatePassword(ctx, uid, req.Password, h.Cfg.BcryptCost); err != nil {
        return repoError(c, h.log, "user", err)
    }
    if err := h.Users.SetVerified(ctx, uid); err != nil {
        h.log.Warn("mark verified failed", "user_id", uid, "err", err)
    }
    if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
        h.log.Warn("revoke sessions failed", "user_id", uid, "err", err)
    }
    h.log.Info("password reset", "user_id", uid)
    return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

package handler // handler defines http handlers

import (
    "errors"
    "fmt"
    "log/slog"
    "net/http"
    "reflect"
    "strconv"
    "strings"

    "github.com/go-playground/validator/v10"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cineclic/internal/middleware"
    "github.com/iliyamo/cineclic/internal/repository"
    "github.com/iliyamo/cineclic/internal/reservation"
)

// RequestValidator plugs go-playground/validator into Echo so handlers can
// call c.Validate on request DTOs.
type RequestValidator struct {
    v *validator.Validate
}

func NewValidator() *RequestValidator {
    v := validator.New(validator.WithRequiredStructEnabled())
    // Report JSON field names rather than Go field names.
    v.RegisterTagNameFunc(func(f reflect.StructField) string {
        name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
        if name == "-" {
            return ""
        }
        return name
    })
    return &RequestValidator{v: v}
}

func (rv *RequestValidator) Validate(i interface{}) error { return rv.v.Struct(i) }

// bindValid binds the body into dst and validates it.  The returned error
// has already been written to the response as a 400.
func bindValid(c echo.Context, dst interface{}) error {
    if err := c.Bind(dst); err != nil {
        _ = c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
        return err
    }
    if err := c.Validate(dst); err != nil {
        _ = c.JSON(http.StatusBadRequest, echo.Map{"error": validationMessage(err)})
        return err
    }
    return nil
}

func validationMessage(err error) string {
    var ve validator.ValidationErrors
    if !errors.As(err, &ve) {
        return err.Error()
    }
    msgs := make([]string, 0, len(ve))
    for _, fe := range ve {
        if fe.Param() != "" {
            msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
        } else {
            msgs = append(msgs, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
        }
    }
    return strings.Join(msgs, "; ")
}

// getUserID returns the caller id stored by the JWT middleware.
func getUserID(c echo.Context) (uint64, error) {
    if id, ok := middleware.UserID(c); ok {
        return id, nil
    }
    return 0, errors.New("invalid user_id in context")
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    return id, err == nil && id > 0
}

func badID(c echo.Context, what string) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid " + what + " id"})
}

// kindStatus maps coordinator error kinds to HTTP statuses.  A missing
// row that a foreign key promised is a server fault, not a 404.
var kindStatus = map[reservation.Kind]int{
    reservation.KindValidation:           http.StatusBadRequest,
    reservation.KindScreeningUnavailable: http.StatusBadRequest,
    reservation.KindSeatConflict:         http.StatusBadRequest,
    reservation.KindAlreadyCancelled:     http.StatusBadRequest,
    reservation.KindUnauthorized:         http.StatusForbidden,
    reservation.KindNotFound:             http.StatusNotFound,
    reservation.KindCancellationClosed:   http.StatusConflict,
    reservation.KindRoomBusy:             http.StatusConflict,
    reservation.KindIntegrity:            http.StatusInternalServerError,
    reservation.KindInternal:             http.StatusInternalServerError,
}

// reservationError writes a coordinator error.  Server faults are logged
// and their detail is not sent to the client.
func reservationError(c echo.Context, log *slog.Logger, err error) error {
    var rerr *reservation.Error
    if !errors.As(err, &rerr) {
        log.Error("unexpected error", "path", c.Path(), "err", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
    }
    status, ok := kindStatus[rerr.Kind]
    if !ok {
        status = http.StatusInternalServerError
    }
    if status >= http.StatusInternalServerError {
        log.Error("reservation failed", "path", c.Path(), "kind", rerr.Kind.String(), "err", err)
        return c.JSON(status, echo.Map{"error": "internal error", "kind": rerr.Kind.String()})
    }
    body := echo.Map{"error": rerr.Message, "kind": rerr.Kind.String()}
    if len(rerr.Seats) > 0 {
        body["seats"] = rerr.Seats
    }
    return c.JSON(status, body)
}

// repoError maps repository sentinels for catalog endpoints.
func repoError(c echo.Context, log *slog.Logger, what string, err error) error {
    switch {
    case errors.Is(err, repository.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": what + " not found"})
    case errors.Is(err, repository.ErrConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": what + " is still referenced"})
    case errors.Is(err, repository.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    }
    log.Error("repository call failed", "path", c.Path(), "what", what, "err", err)
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
}

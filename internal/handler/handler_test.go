package handler

import (
    "context"
    "encoding/json"
    "errors"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/mock"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/cineclic/internal/config"
    "github.com/iliyamo/cineclic/internal/logger"
    "github.com/iliyamo/cineclic/internal/middleware"
    "github.com/iliyamo/cineclic/internal/model"
    "github.com/iliyamo/cineclic/internal/repository"
    "github.com/iliyamo/cineclic/internal/reservation"
    "github.com/iliyamo/cineclic/internal/utils"
)

func newEcho() *echo.Echo {
    e := echo.New()
    e.Validator = NewValidator()
    return e
}

// call runs h against a JSON request as the given user (0 = anonymous).
func call(t *testing.T, h echo.HandlerFunc, method, target, body string, userID uint64, role string, params ...string) *httptest.ResponseRecorder {
    t.Helper()
    e := newEcho()
    req := httptest.NewRequest(method, target, strings.NewReader(body))
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    if len(params) > 0 {
        names, values := []string{}, []string{}
        for i := 0; i+1 < len(params); i += 2 {
            names = append(names, params[i])
            values = append(values, params[i+1])
        }
        c.SetParamNames(names...)
        c.SetParamValues(values...)
    }
    if userID != 0 {
        c.Set(middleware.CtxUserID, userID)
        c.Set(middleware.CtxRole, role)
    }
    require.NoError(t, h(c))
    return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
    t.Helper()
    var out map[string]any
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
    return out
}

// ----- bookings -----

type bookingServiceMock struct{ mock.Mock }

func (m *bookingServiceMock) CreateBooking(ctx context.Context, userID, screeningID uint64, seats []model.SeatRef) (*model.Booking, error) {
    args := m.Called(userID, screeningID, seats)
    b, _ := args.Get(0).(*model.Booking)
    return b, args.Error(1)
}

func (m *bookingServiceMock) CancelBooking(ctx context.Context, userID, bookingID uint64, confirm bool) (*reservation.CancelOutcome, error) {
    args := m.Called(userID, bookingID, confirm)
    o, _ := args.Get(0).(*reservation.CancelOutcome)
    return o, args.Error(1)
}

type bookingReaderMock struct{ mock.Mock }

func (m *bookingReaderMock) ListByUser(ctx context.Context, userID uint64) ([]repository.BookingDetail, error) {
    args := m.Called(userID)
    l, _ := args.Get(0).([]repository.BookingDetail)
    return l, args.Error(1)
}

func (m *bookingReaderMock) GetDetailByFolio(ctx context.Context, folio string) (*repository.BookingDetail, error) {
    args := m.Called(folio)
    d, _ := args.Get(0).(*repository.BookingDetail)
    return d, args.Error(1)
}

func TestCreateBooking(t *testing.T) {
    svc := &bookingServiceMock{}
    seats := []model.SeatRef{{Row: "A", Column: 1}, {Row: "A", Column: 2}}
    svc.On("CreateBooking", uint64(7), uint64(10), seats).
        Return(&model.Booking{ID: 1, Folio: "1234-5678", Status: model.BookingActive, Seats: seats}, nil)
    h := NewBookingHandler(svc, &bookingReaderMock{}, logger.Discard())

    rec := call(t, h.Create, http.MethodPost, "/v1/bookings",
        `{"screening_id":10,"seats":[{"row":"A","column":1},{"row":"A","column":2}]}`, 7, model.RoleCustomer)

    assert.Equal(t, http.StatusCreated, rec.Code)
    assert.Equal(t, "1234-5678", decode(t, rec)["folio"])
    svc.AssertExpectations(t)
}

func TestCreateBookingValidation(t *testing.T) {
    h := NewBookingHandler(&bookingServiceMock{}, &bookingReaderMock{}, logger.Discard())

    rec := call(t, h.Create, http.MethodPost, "/v1/bookings", `{"screening_id":10,"seats":[]}`, 7, model.RoleCustomer)
    assert.Equal(t, http.StatusBadRequest, rec.Code)

    rec = call(t, h.Create, http.MethodPost, "/v1/bookings", `{"screening_id":10,"seats":[{"row":"A","column":0}]}`, 7, model.RoleCustomer)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Contains(t, decode(t, rec)["error"], "column")

    rec = call(t, h.Create, http.MethodPost, "/v1/bookings", `{}`, 0, "")
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateBookingConflictListsSeats(t *testing.T) {
    svc := &bookingServiceMock{}
    svc.On("CreateBooking", uint64(7), uint64(10), mock.Anything).
        Return(nil, &reservation.Error{Kind: reservation.KindSeatConflict, Message: "seats are not available", Seats: []string{"A1"}})
    h := NewBookingHandler(svc, &bookingReaderMock{}, logger.Discard())

    rec := call(t, h.Create, http.MethodPost, "/v1/bookings", `{"screening_id":10,"seats":[{"row":"A","column":1}]}`, 7, model.RoleCustomer)

    assert.Equal(t, http.StatusBadRequest, rec.Code)
    body := decode(t, rec)
    assert.Equal(t, "SeatConflict", body["kind"])
    assert.Equal(t, []any{"A1"}, body["seats"])
}

func TestCreateBookingIntegrityHidesDetail(t *testing.T) {
    svc := &bookingServiceMock{}
    svc.On("CreateBooking", mock.Anything, mock.Anything, mock.Anything).
        Return(nil, &reservation.Error{Kind: reservation.KindIntegrity, Message: "movie 20 missing"})
    h := NewBookingHandler(svc, &bookingReaderMock{}, logger.Discard())

    rec := call(t, h.Create, http.MethodPost, "/v1/bookings", `{"screening_id":10,"seats":[{"row":"A","column":1}]}`, 7, model.RoleCustomer)

    assert.Equal(t, http.StatusInternalServerError, rec.Code)
    assert.Equal(t, "internal error", decode(t, rec)["error"])
}

func TestCancelBookingPromptsWithoutConfirm(t *testing.T) {
    svc := &bookingServiceMock{}
    svc.On("CancelBooking", uint64(7), uint64(3), false).
        Return(&reservation.CancelOutcome{ConfirmRequired: true, Message: "Are you sure?"}, nil)
    h := NewBookingHandler(svc, &bookingReaderMock{}, logger.Discard())

    rec := call(t, h.Cancel, http.MethodPatch, "/v1/bookings/3/cancel", "", 7, model.RoleCustomer, "id", "3")

    assert.Equal(t, http.StatusOK, rec.Code)
    body := decode(t, rec)
    assert.Equal(t, true, body["confirm_required"])
    assert.Equal(t, "Are you sure?", body["message"])
}

func TestCancelBookingStatuses(t *testing.T) {
    cases := []struct {
        kind   reservation.Kind
        status int
    }{
        {reservation.KindUnauthorized, http.StatusForbidden},
        {reservation.KindAlreadyCancelled, http.StatusBadRequest},
        {reservation.KindCancellationClosed, http.StatusConflict},
        {reservation.KindNotFound, http.StatusNotFound},
    }
    for _, tc := range cases {
        t.Run(tc.kind.String(), func(t *testing.T) {
            svc := &bookingServiceMock{}
            svc.On("CancelBooking", uint64(7), uint64(3), true).Return(nil, &reservation.Error{Kind: tc.kind, Message: "no"})
            h := NewBookingHandler(svc, &bookingReaderMock{}, logger.Discard())

            rec := call(t, h.Cancel, http.MethodPatch, "/v1/bookings/3/cancel", `{"confirm":true}`, 7, model.RoleCustomer, "id", "3")
            assert.Equal(t, tc.status, rec.Code)
        })
    }
}

func TestCancelBookingConfirmed(t *testing.T) {
    svc := &bookingServiceMock{}
    svc.On("CancelBooking", uint64(7), uint64(3), true).
        Return(&reservation.CancelOutcome{Booking: &model.Booking{ID: 3, Status: model.BookingCancelled}}, nil)
    h := NewBookingHandler(svc, &bookingReaderMock{}, logger.Discard())

    rec := call(t, h.Cancel, http.MethodPatch, "/v1/bookings/3/cancel", `{"confirm":true}`, 7, model.RoleCustomer, "id", "3")
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "CANCELADA", decode(t, rec)["status"])
}

func TestByFolioOwnership(t *testing.T) {
    reader := &bookingReaderMock{}
    d := &repository.BookingDetail{Booking: model.Booking{ID: 3, Folio: "1111-2222", UserID: 7}}
    reader.On("GetDetailByFolio", "1111-2222").Return(d, nil)
    h := NewBookingHandler(&bookingServiceMock{}, reader, logger.Discard())

    rec := call(t, h.ByFolio, http.MethodGet, "/", "", 7, model.RoleCustomer, "folio", "1111-2222")
    assert.Equal(t, http.StatusOK, rec.Code)

    rec = call(t, h.ByFolio, http.MethodGet, "/", "", 8, model.RoleCustomer, "folio", "1111-2222")
    assert.Equal(t, http.StatusForbidden, rec.Code)

    rec = call(t, h.ByFolio, http.MethodGet, "/", "", 1, model.RoleAdmin, "folio", "1111-2222")
    assert.Equal(t, http.StatusOK, rec.Code)

    rec = call(t, h.ByFolio, http.MethodGet, "/", "", 7, model.RoleCustomer, "folio", "abc")
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestByFolioNotFound(t *testing.T) {
    reader := &bookingReaderMock{}
    reader.On("GetDetailByFolio", "0000-0001").Return(nil, repository.ErrNotFound)
    h := NewBookingHandler(&bookingServiceMock{}, reader, logger.Discard())

    rec := call(t, h.ByFolio, http.MethodGet, "/", "", 7, model.RoleCustomer, "folio", "0000-0001")
    assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ----- auth -----

type usersMock struct{ mock.Mock }

func (m *usersMock) Create(ctx context.Context, name, email, password, role string, cost int) (uint64, error) {
    args := m.Called(name, email, role)
    return args.Get(0).(uint64), args.Error(1)
}

func (m *usersMock) GetByEmail(ctx context.Context, email string) (model.User, error) {
    args := m.Called(email)
    return args.Get(0).(model.User), args.Error(1)
}

func (m *usersMock) GetByID(ctx context.Context, id uint64) (model.User, error) {
    args := m.Called(id)
    return args.Get(0).(model.User), args.Error(1)
}

func (m *usersMock) SetVerified(ctx context.Context, id uint64) error {
    return m.Called(id).Error(0)
}

func (m *usersMock) UpdatePassword(ctx context.Context, id uint64, password string, cost int) error {
    return m.Called(id, password).Error(0)
}

type tokensMock struct{ mock.Mock }

func (m *tokensMock) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
    return m.Called(userID).Error(0)
}

func (m *tokensMock) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
    args := m.Called(tokenHash)
    return args.Get(0).(uint64), args.Error(1)
}

func (m *tokensMock) RevokeByHash(ctx context.Context, tokenHash string) error {
    return m.Called(tokenHash).Error(0)
}

func (m *tokensMock) RevokeAllForUser(ctx context.Context, userID uint64) error {
    return m.Called(userID).Error(0)
}

func authCfg() config.Config {
    return config.Config{JWTSecret: "secret", AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}
}

func TestRegisterCreatesCustomer(t *testing.T) {
    users, tokens := &usersMock{}, &tokensMock{}
    users.On("Create", "Ana", "ana@example.com", model.RoleCustomer).Return(uint64(5), nil)
    users.On("SetVerified", uint64(5)).Return(nil)
    tokens.On("StoreRefresh", uint64(5)).Return(nil)
    h := NewAuthHandler(authCfg(), users, tokens, nil, nil, logger.Discard())

    rec := call(t, h.Register, http.MethodPost, "/v1/auth/register",
        `{"name":" Ana ","email":"Ana@Example.com","password":"longenough"}`, 0, "")

    require.Equal(t, http.StatusCreated, rec.Code)
    var resp authResp
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
    assert.Equal(t, model.RoleCustomer, resp.User.Role)
    id, err := utils.ParseAccessToken("secret", resp.Access.Token)
    require.NoError(t, err)
    assert.Equal(t, uint64(5), id.UserID)
    assert.Len(t, resp.Refresh.Token, 96)
}

func TestRegisterDuplicateEmail(t *testing.T) {
    users := &usersMock{}
    users.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(uint64(0), repository.ErrEmailExists)
    h := NewAuthHandler(authCfg(), users, &tokensMock{}, nil, nil, logger.Discard())

    rec := call(t, h.Register, http.MethodPost, "/v1/auth/register",
        `{"name":"Ana","email":"ana@example.com","password":"longenough"}`, 0, "")
    assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
    h := NewAuthHandler(authCfg(), &usersMock{}, &tokensMock{}, nil, nil, logger.Discard())
    rec := call(t, h.Register, http.MethodPost, "/v1/auth/register",
        `{"name":"Ana","email":"ana@example.com","password":"short"}`, 0, "")
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Contains(t, decode(t, rec)["error"], "password")
}

func TestLogin(t *testing.T) {
    hash, err := utils.HashPassword("longenough", 4)
    require.NoError(t, err)
    users, tokens := &usersMock{}, &tokensMock{}
    users.On("GetByEmail", "ana@example.com").
        Return(model.User{ID: 5, Name: "Ana", Email: "ana@example.com", PasswordHash: hash, Role: model.RoleCustomer, IsActive: true}, nil)
    users.On("GetByEmail", "nobody@example.com").Return(model.User{}, repository.ErrNotFound)
    tokens.On("StoreRefresh", uint64(5)).Return(nil)
    h := NewAuthHandler(authCfg(), users, tokens, nil, nil, logger.Discard())

    rec := call(t, h.Login, http.MethodPost, "/v1/auth/login", `{"email":"ana@example.com","password":"longenough"}`, 0, "")
    assert.Equal(t, http.StatusOK, rec.Code)

    rec = call(t, h.Login, http.MethodPost, "/v1/auth/login", `{"email":"ana@example.com","password":"wrongpass"}`, 0, "")
    assert.Equal(t, http.StatusUnauthorized, rec.Code)

    rec = call(t, h.Login, http.MethodPost, "/v1/auth/login", `{"email":"nobody@example.com","password":"x"}`, 0, "")
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshRotates(t *testing.T) {
    users, tokens := &usersMock{}, &tokensMock{}
    hash := utils.HashRefreshRaw("raw-token")
    tokens.On("ValidateRefresh", hash).Return(uint64(5), nil)
    tokens.On("RevokeByHash", hash).Return(nil)
    tokens.On("StoreRefresh", uint64(5)).Return(nil)
    users.On("GetByID", uint64(5)).Return(model.User{ID: 5, Role: model.RoleCustomer, IsActive: true}, nil)
    h := NewAuthHandler(authCfg(), users, tokens, nil, nil, logger.Discard())

    rec := call(t, h.Refresh, http.MethodPost, "/v1/auth/refresh", `{"refresh_token":"raw-token"}`, 0, "")
    assert.Equal(t, http.StatusOK, rec.Code)
    tokens.AssertCalled(t, "RevokeByHash", hash)
}

func TestLogoutAllSessions(t *testing.T) {
    tokens := &tokensMock{}
    tokens.On("RevokeAllForUser", uint64(5)).Return(nil)
    h := NewAuthHandler(authCfg(), &usersMock{}, tokens, nil, nil, logger.Discard())
    access, err := utils.NewAccessToken("secret", 5, model.RoleCustomer, 5)
    require.NoError(t, err)

    e := newEcho()
    req := httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil)
    req.Header.Set(echo.HeaderAuthorization, "Bearer "+access.Token)
    rec := httptest.NewRecorder()
    require.NoError(t, h.Logout(e.NewContext(req, rec)))

    assert.Equal(t, http.StatusNoContent, rec.Code)
    tokens.AssertExpectations(t)
}

// ----- catalog -----

type roomStoreMock struct{ mock.Mock }

func (m *roomStoreMock) Create(ctx context.Context, room *model.Room) error {
    args := m.Called(room)
    room.ID = 1
    return args.Error(0)
}

func (m *roomStoreMock) GetByID(ctx context.Context, id uint64) (*model.Room, error) {
    args := m.Called(id)
    r, _ := args.Get(0).(*model.Room)
    return r, args.Error(1)
}

func (m *roomStoreMock) List(ctx context.Context) ([]model.Room, error) {
    args := m.Called()
    return args.Get(0).([]model.Room), args.Error(1)
}

func (m *roomStoreMock) Delete(ctx context.Context, id uint64) error {
    return m.Called(id).Error(0)
}

type roomUpdaterMock struct{ mock.Mock }

func (m *roomUpdaterMock) UpdateRoom(ctx context.Context, roomID uint64, ch reservation.RoomChange) (*model.Room, error) {
    args := m.Called(roomID, ch)
    r, _ := args.Get(0).(*model.Room)
    return r, args.Error(1)
}

func TestCreateRoomBuildsLayout(t *testing.T) {
    rooms := &roomStoreMock{}
    rooms.On("Create", mock.MatchedBy(func(r *model.Room) bool {
        return r.Name == "Sala 1" && r.Layout.Capacity() == 6 && r.Layout.Validate() == nil
    })).Return(nil)
    h := NewRoomHandler(rooms, &roomUpdaterMock{}, logger.Discard())

    rec := call(t, h.Create, http.MethodPost, "/v1/rooms", `{"name":"Sala 1","rows":["a","b"],"columns":3}`, 1, model.RoleAdmin)

    assert.Equal(t, http.StatusCreated, rec.Code)
    rooms.AssertExpectations(t)
}

func TestCreateRoomDuplicateRows(t *testing.T) {
    h := NewRoomHandler(&roomStoreMock{}, &roomUpdaterMock{}, logger.Discard())
    rec := call(t, h.Create, http.MethodPost, "/v1/rooms", `{"name":"Sala 1","rows":["A","a"],"columns":3}`, 1, model.RoleAdmin)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateRoomBusy(t *testing.T) {
    upd := &roomUpdaterMock{}
    upd.On("UpdateRoom", uint64(1), mock.Anything).
        Return(nil, &reservation.Error{Kind: reservation.KindRoomBusy, Message: "room has occupied or selected seats"})
    h := NewRoomHandler(&roomStoreMock{}, upd, logger.Discard())

    rec := call(t, h.Update, http.MethodPut, "/v1/rooms/1", `{"rows":["A"],"columns":4}`, 1, model.RoleAdmin, "id", "1")
    assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeleteRoomReferenced(t *testing.T) {
    rooms := &roomStoreMock{}
    rooms.On("Delete", uint64(1)).Return(repository.ErrConflict)
    h := NewRoomHandler(rooms, &roomUpdaterMock{}, logger.Discard())

    rec := call(t, h.Delete, http.MethodDelete, "/v1/rooms/1", "", 1, model.RoleAdmin, "id", "1")
    assert.Equal(t, http.StatusConflict, rec.Code)
}

type screeningStoreMock struct{ mock.Mock }

func (m *screeningStoreMock) Create(ctx context.Context, s *model.Screening) error {
    return m.Called(s).Error(0)
}

func (m *screeningStoreMock) GetByID(ctx context.Context, id uint64) (*model.Screening, error) {
    args := m.Called(id)
    s, _ := args.Get(0).(*model.Screening)
    return s, args.Error(1)
}

func (m *screeningStoreMock) List(ctx context.Context, f repository.ScreeningFilter) ([]model.Screening, error) {
    args := m.Called(f)
    return args.Get(0).([]model.Screening), args.Error(1)
}

func (m *screeningStoreMock) Update(ctx context.Context, s *model.Screening) error {
    return m.Called(s).Error(0)
}

func (m *screeningStoreMock) Delete(ctx context.Context, id uint64) error {
    return m.Called(id).Error(0)
}

type screeningBookingsMock struct{ mock.Mock }

func (m *screeningBookingsMock) ListByScreening(ctx context.Context, id uint64) ([]repository.BookingDetail, error) {
    args := m.Called(id)
    return args.Get(0).([]repository.BookingDetail), args.Error(1)
}

func TestSeatsHidesHolders(t *testing.T) {
    layout := model.NewLayout([]string{"A"}, 2)
    layout.Set(model.SeatRef{Row: "A", Column: 1}, model.Selected("conn-1", 7, time.Now()))
    screenings, rooms := &screeningStoreMock{}, &roomStoreMock{}
    screenings.On("GetByID", uint64(10)).Return(&model.Screening{ID: 10, RoomID: 1}, nil)
    rooms.On("GetByID", uint64(1)).Return(&model.Room{ID: 1, Layout: layout}, nil)
    h := NewScreeningHandler(screenings, rooms, &screeningBookingsMock{}, logger.Discard())

    rec := call(t, h.Seats, http.MethodGet, "/v1/screenings/10/seats", "", 7, model.RoleCustomer, "id", "10")

    require.Equal(t, http.StatusOK, rec.Code)
    assert.NotContains(t, rec.Body.String(), "conn-1")
    body := decode(t, rec)
    seats := body["seats"].(map[string]any)["A"].(map[string]any)
    assert.Equal(t, "selected", seats["1"])
    assert.Equal(t, "available", seats["2"])
}

func TestCreateScreeningEndBeforeStart(t *testing.T) {
    h := NewScreeningHandler(&screeningStoreMock{}, &roomStoreMock{}, &screeningBookingsMock{}, logger.Discard())
    rec := call(t, h.Create, http.MethodPost, "/v1/screenings",
        `{"movie_id":1,"room_id":1,"start_time":"2026-05-01T20:00:00Z","end_time":"2026-05-01T18:00:00Z","price_cents":8500}`,
        1, model.RoleAdmin)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateScreeningMissingRoom(t *testing.T) {
    screenings := &screeningStoreMock{}
    screenings.On("Create", mock.Anything).Return(repository.ErrNotFound)
    h := NewScreeningHandler(screenings, &roomStoreMock{}, &screeningBookingsMock{}, logger.Discard())

    rec := call(t, h.Create, http.MethodPost, "/v1/screenings",
        `{"movie_id":1,"room_id":99,"start_time":"2026-05-01T18:00:00Z","end_time":"2026-05-01T20:00:00Z","price_cents":8500}`,
        1, model.RoleAdmin)
    assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListScreeningsFilters(t *testing.T) {
    screenings := &screeningStoreMock{}
    from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
    screenings.On("List", repository.ScreeningFilter{MovieID: 3, From: from}).Return([]model.Screening{{ID: 1}}, nil)
    h := NewScreeningHandler(screenings, &roomStoreMock{}, &screeningBookingsMock{}, logger.Discard())

    rec := call(t, h.List, http.MethodGet, "/v1/screenings?movie_id=3&from=2026-05-01T00:00:00Z", "", 7, model.RoleCustomer)
    assert.Equal(t, http.StatusOK, rec.Code)
    screenings.AssertExpectations(t)

    rec = call(t, h.List, http.MethodGet, "/v1/screenings?from=yesterday", "", 7, model.RoleCustomer)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateScreeningRoomMoveBlockedByBookings(t *testing.T) {
    screenings, bookings := &screeningStoreMock{}, &screeningBookingsMock{}
    screenings.On("GetByID", uint64(10)).Return(&model.Screening{ID: 10, MovieID: 1, RoomID: 1}, nil)
    bookings.On("ListByScreening", uint64(10)).
        Return([]repository.BookingDetail{{Booking: model.Booking{ID: 1, Status: model.BookingActive}}}, nil)
    h := NewScreeningHandler(screenings, &roomStoreMock{}, bookings, logger.Discard())

    rec := call(t, h.Update, http.MethodPut, "/v1/screenings/10",
        `{"movie_id":1,"room_id":2,"start_time":"2026-05-01T18:00:00Z","end_time":"2026-05-01T20:00:00Z","price_cents":8500}`,
        1, model.RoleAdmin, "id", "10")
    assert.Equal(t, http.StatusConflict, rec.Code)
    screenings.AssertNotCalled(t, "Update", mock.Anything)
}

type movieStoreMock struct{ mock.Mock }

func (m *movieStoreMock) Create(ctx context.Context, mv *model.Movie) error {
    return m.Called(mv).Error(0)
}

func (m *movieStoreMock) GetByID(ctx context.Context, id uint64) (*model.Movie, error) {
    args := m.Called(id)
    mv, _ := args.Get(0).(*model.Movie)
    return mv, args.Error(1)
}

func (m *movieStoreMock) List(ctx context.Context) ([]model.Movie, error) {
    args := m.Called()
    return args.Get(0).([]model.Movie), args.Error(1)
}

func (m *movieStoreMock) Update(ctx context.Context, mv *model.Movie) error {
    return m.Called(mv).Error(0)
}

func (m *movieStoreMock) Delete(ctx context.Context, id uint64) error {
    return m.Called(id).Error(0)
}

func TestMovieDetailIncludesScreenings(t *testing.T) {
    movies, screenings := &movieStoreMock{}, &screeningStoreMock{}
    movies.On("GetByID", uint64(20)).Return(&model.Movie{ID: 20, Title: "Roma"}, nil)
    screenings.On("List", repository.ScreeningFilter{MovieID: 20}).Return([]model.Screening{{ID: 10, MovieID: 20}}, nil)
    h := NewMovieHandler(movies, screenings, logger.Discard())

    rec := call(t, h.Get, http.MethodGet, "/v1/movies/20", "", 7, model.RoleCustomer, "id", "20")

    require.Equal(t, http.StatusOK, rec.Code)
    body := decode(t, rec)
    assert.Equal(t, "Roma", body["title"])
    assert.Len(t, body["screenings"], 1)
}

func TestMovieGetBadID(t *testing.T) {
    h := NewMovieHandler(&movieStoreMock{}, &screeningStoreMock{}, logger.Discard())
    rec := call(t, h.Get, http.MethodGet, "/v1/movies/x", "", 7, model.RoleCustomer, "id", "x")
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ----- misc -----

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func TestReady(t *testing.T) {
    rec := call(t, Ready(pinger{}), http.MethodGet, "/readyz", "", 0, "")
    assert.Equal(t, http.StatusOK, rec.Code)

    rec = call(t, Ready(pinger{err: errors.New("down")}), http.MethodGet, "/readyz", "", 0, "")
    assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReservationErrorUnknownError(t *testing.T) {
    rec := call(t, func(c echo.Context) error {
        return reservationError(c, logger.Discard(), errors.New("boom"))
    }, http.MethodGet, "/", "", 0, "")
    assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

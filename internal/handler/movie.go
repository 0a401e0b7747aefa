package handler

import (
    "context"
    "log/slog"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cineclic/internal/logger"
    "github.com/iliyamo/cineclic/internal/model"
    "github.com/iliyamo/cineclic/internal/repository"
)

// MovieStore is the movie persistence used by MovieHandler.
type MovieStore interface {
    Create(ctx context.Context, m *model.Movie) error
    GetByID(ctx context.Context, id uint64) (*model.Movie, error)
    List(ctx context.Context) ([]model.Movie, error)
    Update(ctx context.Context, m *model.Movie) error
    Delete(ctx context.Context, id uint64) error
}

// ScreeningStore is the screening persistence shared by the catalog
// handlers.
type ScreeningStore interface {
    Create(ctx context.Context, s *model.Screening) error
    GetByID(ctx context.Context, id uint64) (*model.Screening, error)
    List(ctx context.Context, f repository.ScreeningFilter) ([]model.Screening, error)
    Update(ctx context.Context, s *model.Screening) error
    Delete(ctx context.Context, id uint64) error
}

type MovieHandler struct {
    Movies     MovieStore
    Screenings ScreeningStore
    log        *slog.Logger
}

func NewMovieHandler(m MovieStore, s ScreeningStore, l *slog.Logger) *MovieHandler {
    return &MovieHandler{Movies: m, Screenings: s, log: logger.Component(l, "movies")}
}

type movieReq struct {
    Title       string  `json:"title" validate:"required,max=200"`
    Description *string `json:"description" validate:"omitempty,max=2000"`
    DurationMin int     `json:"duration_min" validate:"required,min=1,max=600"`
    Rating      float64 `json:"rating" validate:"min=0,max=10"`
    PosterURL   *string `json:"poster_url" validate:"omitempty,url,max=500"`
}

func (r movieReq) apply(m *model.Movie) {
    m.Title = strings.TrimSpace(r.Title)
    m.Description = r.Description
    m.DurationMin = r.DurationMin
    m.Rating = r.Rating
    m.PosterURL = r.PosterURL
}

// movieDetail is a movie with its screenings.
type movieDetail struct {
    *model.Movie
    Screenings []model.Screening `json:"screenings"`
}

// Create handles POST /v1/movies.
func (h *MovieHandler) Create(c echo.Context) error {
    var req movieReq
    if err := bindValid(c, &req); err != nil {
        return nil
    }
    var m model.Movie
    req.apply(&m)
    if err := h.Movies.Create(c.Request().Context(), &m); err != nil {
        return repoError(c, h.log, "movie", err)
    }
    return c.JSON(http.StatusCreated, m)
}

// List handles GET /v1/movies.
func (h *MovieHandler) List(c echo.Context) error {
    movies, err := h.Movies.List(c.Request().Context())
    if err != nil {
        return repoError(c, h.log, "movie", err)
    }
    return c.JSON(http.StatusOK, movies)
}

// Get handles GET /v1/movies/:id and includes the movie's screenings.
func (h *MovieHandler) Get(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badID(c, "movie")
    }
    ctx := c.Request().Context()
    m, err := h.Movies.GetByID(ctx, id)
    if err != nil {
        return repoError(c, h.log, "movie", err)
    }
    screenings, err := h.Screenings.List(ctx, repository.ScreeningFilter{MovieID: id})
    if err != nil {
        return repoError(c, h.log, "screening", err)
    }
    return c.JSON(http.StatusOK, movieDetail{Movie: m, Screenings: screenings})
}

// Update handles PUT /v1/movies/:id.
func (h *MovieHandler) Update(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badID(c, "movie")
    }
    var req movieReq
    if err := bindValid(c, &req); err != nil {
        return nil
    }
    ctx := c.Request().Context()
    m, err := h.Movies.GetByID(ctx, id)
    if err != nil {
        return repoError(c, h.log, "movie", err)
    }
    req.apply(m)
    if err := h.Movies.Update(ctx, m); err != nil {
        return repoError(c, h.log, "movie", err)
    }
    return c.JSON(http.StatusOK, m)
}

// Delete handles DELETE /v1/movies/:id.  Movies with screenings are kept.
func (h *MovieHandler) Delete(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badID(c, "movie")
    }
    if err := h.Movies.Delete(c.Request().Context(), id); err != nil {
        return repoError(c, h.log, "movie", err)
    }
    return c.NoContent(http.StatusNoContent)
}

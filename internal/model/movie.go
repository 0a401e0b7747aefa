package model

import "time"

// Movie is a catalog entry.  Screenings reference movies by id.
type Movie struct {
    ID          uint64    `json:"id"`           // movies.id
    Title       string    `json:"title"`        // movies.title
    Description *string   `json:"description"`  // movies.description (nullable)
    DurationMin int       `json:"duration_min"` // movies.duration_min
    Rating      float64   `json:"rating"`       // movies.rating
    PosterURL   *string   `json:"poster_url"`   // movies.poster_url (nullable)
    CreatedAt   time.Time `json:"created_at"`   // movies.created_at
    UpdatedAt   time.Time `json:"updated_at"`   // movies.updated_at
}

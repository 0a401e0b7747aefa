package model

import "time"

// Room is a screening room.  It owns its seat layout exclusively; every
// screening scheduled in the room reads and mutates the same document.
//
// Fields:
//  ID        - primary key identifier.
//  Name      - display name of the room.
//  Capacity  - advertised capacity (nil when unspecified).
//  Layout    - seat grid document (JSON column).
//  CreatedAt - creation timestamp.
//  UpdatedAt - last update timestamp.
type Room struct {
    ID        uint64    `json:"id"`         // rooms.id
    Name      string    `json:"name"`       // rooms.name
    Capacity  *int      `json:"capacity"`   // rooms.capacity (nullable)
    Layout    Layout    `json:"layout"`     // rooms.layout
    CreatedAt time.Time `json:"created_at"` // rooms.created_at
    UpdatedAt time.Time `json:"updated_at"` // rooms.updated_at
}

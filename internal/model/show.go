package model

import "time"

// Show represents a single timed performance of an event in a specific
// room.  Shows are catalog data: the ticketing core reads them but never
// modifies them.
//
// Fields:
//  ID          – primary key identifier.
//  RoomID      – room where the show takes place.
//  Name        – display name of the performance.
//  StartsAt    – when the show begins (UTC).
//  DurationMin – duration of the show in minutes.
type Show struct {
    ID          uint64    // shows.id
    RoomID      uint64    // shows.room_id
    Name        string    // shows.name
    StartsAt    time.Time // shows.starts_at
    DurationMin uint32    // shows.duration_min
}

// EndsAt derives the end of the show from its start and duration.
func (s Show) EndsAt() time.Time {
    return s.StartsAt.Add(time.Duration(s.DurationMin) * time.Minute)
}

// Room is a physical venue room divided into pricing sectors.  Read-only
// catalog data; sectors are resolved separately by room id.
type Room struct {
    ID   uint64 // rooms.id
    Name string // rooms.name
}

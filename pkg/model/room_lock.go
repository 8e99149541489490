package model

import "time"

// RoomLock is a short-lived advisory lock document guarding the capacity
// check-then-insert window for a single room. The unique _id makes concurrent
// acquisition attempts collide at the storage layer; ExpiresAt backs a TTL
// index so crashed holders cannot wedge a room.
type RoomLock struct {
	ID        string    `bson:"_id"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

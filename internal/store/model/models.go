package model

import "time"

// ProfileRow stores one profile as a JSON document. Position keeps insertion order.
type ProfileRow struct {
	ID        string    `db:"id"`
	Position  int       `db:"position"`
	Provider  string    `db:"provider"`
	Document  string    `db:"document"`
	UpdatedAt time.Time `db:"updated_at"`
}

// RoutingRow is the single routing policy row (id is always 1).
type RoutingRow struct {
	ID        int       `db:"id"`
	Document  string    `db:"document"`
	UpdatedAt time.Time `db:"updated_at"`
}

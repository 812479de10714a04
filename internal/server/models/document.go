package models

// Document is the catalog row describing one stored blob. Keys is opaque key
// material supplied by the client; the server never interprets it.
// The pair (Name, OwnerID) is unique.
type Document struct {
	ID      int64  `db:"id"`
	Name    string `db:"name"`
	Keys    string `db:"keys"`
	OwnerID int64  `db:"owner_id"`
}

package model

import "time"

// CatalogItem is the read model of a fabric specification sheet. The
// fulfillment subsystem never mutates the catalog; it only resolves items
// at checkout and file keys at download time.
type CatalogItem struct {
	ID        int64
	Title     string
	Price     int64
	FileKey   string
	Active    bool
	CreatedAt time.Time
}

// Downloadable reports whether the item can currently be delivered.
func (i CatalogItem) Downloadable() bool {
	return i.Active && i.FileKey != ""
}

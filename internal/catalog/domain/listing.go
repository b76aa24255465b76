package domain

import "time"

// Listing is a book offered for exchange. OwnerName is a snapshot taken at
// creation and is not refreshed when the account changes.
type Listing struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Genre     string    `json:"genre"`
	OwnerID   string    `json:"ownerId"`
	OwnerName string    `json:"ownerName"`
	Available bool      `json:"available"`
	Image     *string   `json:"image"`
	CreatedAt time.Time `json:"createdAt"`
}

func (l Listing) RecordID() string { return l.ID }

func (l Listing) WithRecordID(id string) Listing {
	l.ID = id
	return l
}

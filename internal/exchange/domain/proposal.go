package domain

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

var transitions = map[Status][]Status{
	StatusPending:  {StatusAccepted, StatusRejected},
	StatusAccepted: {StatusCompleted},
}

func ParseStatus(value string) (Status, bool) {
	switch s := Status(value); s {
	case StatusPending, StatusAccepted, StatusRejected, StatusCompleted:
		return s, true
	default:
		return "", false
	}
}

// CanTransition reports whether a proposal in s may move to next.
// Rejected and completed proposals are final.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// IsOpen reports whether the proposal still holds its listings.
func (s Status) IsOpen() bool {
	return s == StatusPending || s == StatusAccepted
}

// Proposal is an offer to swap OfferedListingID (held by RequesterID) for
// RequestedListingID (held by OwnerID).
type Proposal struct {
	ID                 string    `json:"id"`
	OwnerID            string    `json:"ownerId"`
	RequesterID        string    `json:"requesterId"`
	RequestedListingID string    `json:"requestedListingId"`
	OfferedListingID   string    `json:"offeredListingId"`
	Message            string    `json:"message"`
	Status             Status    `json:"status"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func (p Proposal) RecordID() string { return p.ID }

func (p Proposal) WithRecordID(id string) Proposal {
	p.ID = id
	return p
}

func (p Proposal) References(listingID string) bool {
	return p.RequestedListingID == listingID || p.OfferedListingID == listingID
}

func (p Proposal) Involves(accountID string) bool {
	return p.OwnerID == accountID || p.RequesterID == accountID
}

type EventType string

const (
	EventCreated       EventType = "exchange.created"
	EventStatusChanged EventType = "exchange.status_changed"
	EventDeleted       EventType = "exchange.deleted"
)

type Event struct {
	Type     EventType `json:"type"`
	Exchange Proposal  `json:"exchange"`
}

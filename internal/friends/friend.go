package friends

import (
	"time"

	"github.com/2beens/trainlog/internal/workouts"
)

const (
	RequestStatusPending  = "pending"
	RequestStatusAccepted = "accepted"
	RequestStatusRejected = "rejected"
)

// FriendEdge is one direction of a friendship. Edges are created in
// symmetric pairs (A->B and B->A), with the counterparty name and email
// denormalized for cheap listing.
type FriendEdge struct {
	ID          int       `json:"id"`
	OwnerID     int       `json:"ownerId"`
	FriendID    int       `json:"friendId"`
	FriendName  string    `json:"friendName"`
	FriendEmail string    `json:"friendEmail"`
	CreatedAt   time.Time `json:"createdAt"`
}

type FriendRequest struct {
	ID        int       `json:"id"`
	FromID    int       `json:"fromId"`
	FromName  string    `json:"fromName"`
	FromEmail string    `json:"fromEmail"`
	ToID      int       `json:"toId"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// FeedItem is a friend's public workout with the owner attached.
type FeedItem struct {
	workouts.Workout
	UserName string `json:"userName"`
}

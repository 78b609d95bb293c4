package friends

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

type repoMock struct {
	requests   map[int]*FriendRequest
	edges      map[int]*FriendEdge
	nextReqID  int
	nextEdgeID int

	// failure injection
	addEdgeCalls     int
	addEdgeErrOnCall int // 1-based call number to fail on, 0 disables
}

func NewMockFriendsRepo() *repoMock {
	return &repoMock{
		requests:   make(map[int]*FriendRequest),
		edges:      make(map[int]*FriendEdge),
		nextReqID:  1,
		nextEdgeID: 1,
	}
}

func (r *repoMock) AddRequest(_ context.Context, req FriendRequest) (*FriendRequest, error) {
	for _, existing := range r.requests {
		if existing.FromID == req.FromID && existing.ToID == req.ToID {
			return nil, &pgconn.PgError{Code: "23505", ConstraintName: "friend_request_from_id_to_id_key"}
		}
	}
	req.ID = r.nextReqID
	r.nextReqID++
	r.requests[req.ID] = &req
	return &req, nil
}

func (r *repoMock) GetRequest(_ context.Context, id int) (*FriendRequest, error) {
	req, ok := r.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	return req, nil
}

func (r *repoMock) ListPendingRequestsFor(_ context.Context, toID int) ([]FriendRequest, error) {
	var requests []FriendRequest
	for id := 1; id < r.nextReqID; id++ {
		req, ok := r.requests[id]
		if !ok {
			continue
		}
		if req.ToID == toID && req.Status == RequestStatusPending {
			requests = append(requests, *req)
		}
	}
	return requests, nil
}

func (r *repoMock) ListAcceptedRequests(_ context.Context) ([]FriendRequest, error) {
	var requests []FriendRequest
	for id := 1; id < r.nextReqID; id++ {
		req, ok := r.requests[id]
		if !ok {
			continue
		}
		if req.Status == RequestStatusAccepted {
			requests = append(requests, *req)
		}
	}
	return requests, nil
}

func (r *repoMock) UpdateRequestStatus(_ context.Context, id int, status string) error {
	req, ok := r.requests[id]
	if !ok {
		return ErrRequestNotFound
	}
	req.Status = status
	return nil
}

func (r *repoMock) AddEdge(_ context.Context, edge FriendEdge) error {
	r.addEdgeCalls++
	if r.addEdgeErrOnCall > 0 && r.addEdgeCalls == r.addEdgeErrOnCall {
		return errors.New("add edge failed")
	}

	edge.ID = r.nextEdgeID
	r.nextEdgeID++
	r.edges[edge.ID] = &edge
	return nil
}

func (r *repoMock) EdgeExists(_ context.Context, ownerID, friendID int) (bool, error) {
	for _, edge := range r.edges {
		if edge.OwnerID == ownerID && edge.FriendID == friendID {
			return true, nil
		}
	}
	return false, nil
}

func (r *repoMock) ListEdges(_ context.Context, ownerID int) ([]FriendEdge, error) {
	var edges []FriendEdge
	for id := 1; id < r.nextEdgeID; id++ {
		edge, ok := r.edges[id]
		if !ok {
			continue
		}
		if edge.OwnerID == ownerID {
			edges = append(edges, *edge)
		}
	}
	return edges, nil
}

func (r *repoMock) DeleteEdge(_ context.Context, ownerID, friendID int) (int, error) {
	removed := 0
	for id, edge := range r.edges {
		if edge.OwnerID == ownerID && edge.FriendID == friendID {
			delete(r.edges, id)
			removed++
		}
	}
	return removed, nil
}

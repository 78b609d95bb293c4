package friends

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/trainlog/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrRequestNotFound = errors.New("friend request not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) AddRequest(ctx context.Context, req FriendRequest) (_ *FriendRequest, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.friends.addRequest")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO friend_request (from_id, to_id, status, created_at)
				VALUES ($1, $2, $3, $4)
			RETURNING id;`,
		req.FromID, req.ToID, req.Status, req.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, errors.New("unexpected error [no rows next]")
	}

	var id int
	if err := rows.Scan(&id); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	span.SetAttributes(attribute.Int("request.id", id))

	req.ID = id
	return &req, nil
}

func (r *Repo) GetRequest(ctx context.Context, id int) (_ *FriendRequest, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.friends.getRequest")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	rows, err := r.db.Query(
		ctx,
		`SELECT fr.id, fr.from_id, up.name, up.email, fr.to_id, fr.status, fr.created_at
			FROM friend_request fr
			JOIN user_profile up ON up.id = fr.from_id
			WHERE fr.id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, ErrRequestNotFound
	}

	var req FriendRequest
	if err := rows.Scan(
		&req.ID, &req.FromID, &req.FromName, &req.FromEmail,
		&req.ToID, &req.Status, &req.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	return &req, nil
}

// ListPendingRequestsFor returns pending requests addressed to the given
// user, newest first, with the sender profile attached.
func (r *Repo) ListPendingRequestsFor(ctx context.Context, toID int) (_ []FriendRequest, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.friends.listPendingRequestsFor")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("toId", toID))

	rows, err := r.db.Query(
		ctx,
		`SELECT fr.id, fr.from_id, up.name, up.email, fr.to_id, fr.status, fr.created_at
			FROM friend_request fr
			JOIN user_profile up ON up.id = fr.from_id
			WHERE fr.to_id = $1 AND fr.status = $2
			ORDER BY fr.created_at DESC;`,
		toID, RequestStatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	var requests []FriendRequest
	for rows.Next() {
		var req FriendRequest
		if err := rows.Scan(
			&req.ID, &req.FromID, &req.FromName, &req.FromEmail,
			&req.ToID, &req.Status, &req.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		requests = append(requests, req)
	}

	return requests, nil
}

// ListAcceptedRequests returns every accepted request, the working set
// for the edge reconciliation pass.
func (r *Repo) ListAcceptedRequests(ctx context.Context) (_ []FriendRequest, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.friends.listAcceptedRequests")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, from_id, to_id, status, created_at
			FROM friend_request
			WHERE status = $1
			ORDER BY id;`,
		RequestStatusAccepted,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	var requests []FriendRequest
	for rows.Next() {
		var req FriendRequest
		if err := rows.Scan(
			&req.ID, &req.FromID, &req.ToID, &req.Status, &req.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		requests = append(requests, req)
	}

	return requests, nil
}

func (r *Repo) UpdateRequestStatus(ctx context.Context, id int, status string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.friends.updateRequestStatus")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.Int("id", id),
		attribute.String("status", status),
	)

	tag, err := r.db.Exec(
		ctx,
		`UPDATE friend_request SET status = $1 WHERE id = $2;`,
		status, id,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrRequestNotFound
	}

	return nil
}

func (r *Repo) AddEdge(ctx context.Context, edge FriendEdge) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.friends.addEdge")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO friend (owner_id, friend_id, friend_name, friend_email, created_at)
			VALUES ($1, $2, $3, $4, $5);`,
		edge.OwnerID, edge.FriendID, edge.FriendName, edge.FriendEmail, edge.CreatedAt,
	)
	return err
}

func (r *Repo) EdgeExists(ctx context.Context, ownerID, friendID int) (_ bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.friends.edgeExists")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT id FROM friend WHERE owner_id = $1 AND friend_id = $2;`,
		ownerID, friendID,
	)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return false, err
	}

	return rows.Next(), nil
}

func (r *Repo) ListEdges(ctx context.Context, ownerID int) (_ []FriendEdge, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.friends.listEdges")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("ownerId", ownerID))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, owner_id, friend_id, friend_name, friend_email, created_at
			FROM friend
			WHERE owner_id = $1
			ORDER BY friend_name, id;`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	var edges []FriendEdge
	for rows.Next() {
		var edge FriendEdge
		if err := rows.Scan(
			&edge.ID, &edge.OwnerID, &edge.FriendID,
			&edge.FriendName, &edge.FriendEmail, &edge.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		edges = append(edges, edge)
	}

	return edges, nil
}

// DeleteEdge removes one direction and reports how many rows went away.
// Zero is not an error, a previous partial failure may have left only
// one direction behind.
func (r *Repo) DeleteEdge(ctx context.Context, ownerID, friendID int) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.friends.deleteEdge")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM friend WHERE owner_id = $1 AND friend_id = $2;`,
		ownerID, friendID,
	)
	if err != nil {
		return 0, err
	}

	return int(tag.RowsAffected()), nil
}

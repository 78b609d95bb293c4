package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/trainlog/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrUserNotFound = errors.New("user not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, user UserProfile) (_ *UserProfile, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO user_profile
				(email, name, password_hash, public_profile, allow_friend_requests, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id;`,
		user.Email, user.Name, user.PasswordHash,
		user.PublicProfile, user.AllowFriendRequests, user.CreatedAt,
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

	span.SetAttributes(attribute.Int("user.id", id))

	user.ID = id
	return &user, nil
}

func (r *Repo) Get(ctx context.Context, id int) (_ *UserProfile, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (_ *UserProfile, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.getByEmail")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return r.getOne(ctx, `WHERE email = $1`, email)
}

func (r *Repo) getOne(ctx context.Context, where string, arg any) (*UserProfile, error) {
	rows, err := r.db.Query(
		ctx,
		`SELECT id, email, name, password_hash, public_profile, allow_friend_requests, created_at
			FROM user_profile `+where+`;`,
		arg,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	users, err := r.rows2users(rows)
	if err != nil {
		return nil, err
	}

	if len(users) != 1 {
		return nil, ErrUserNotFound
	}

	return &users[0], nil
}

// GetMany returns the profiles for the given ids, in no particular order.
func (r *Repo) GetMany(ctx context.Context, ids []int) (_ []UserProfile, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.getMany")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("ids", len(ids)))

	if len(ids) == 0 {
		return []UserProfile{}, nil
	}

	rows, err := r.db.Query(
		ctx,
		`SELECT id, email, name, password_hash, public_profile, allow_friend_requests, created_at
			FROM user_profile
			WHERE id = ANY($1);`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return r.rows2users(rows)
}

func (r *Repo) Update(ctx context.Context, user *UserProfile) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", user.ID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE user_profile
			SET name = $1, public_profile = $2, allow_friend_requests = $3
			WHERE id = $4;`,
		user.Name, user.PublicProfile, user.AllowFriendRequests, user.ID,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (r *Repo) rows2users(rows pgx.Rows) ([]UserProfile, error) {
	var users []UserProfile
	for rows.Next() {
		var u UserProfile
		if err := rows.Scan(
			&u.ID, &u.Email, &u.Name, &u.PasswordHash,
			&u.PublicProfile, &u.AllowFriendRequests, &u.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		users = append(users, u)
	}
	return users, nil
}

package workouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/trainlog/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrWorkoutNotFound = errors.New("workout not found")

type ListParams struct {
	UserID int
	Day    string // optional, exact day match
	From   string // optional, inclusive
	To     string // optional, inclusive
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, workout Workout) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO workout
				(user_id, day, muscle_group, exercise_name, reps, kilos, notes, is_public, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id;`,
		workout.UserID, workout.Day, workout.MuscleGroup, workout.ExerciseName,
		workout.Reps, workout.Weight.dbValue(), workout.Notes, workout.IsPublic, workout.CreatedAt,
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

	span.SetAttributes(attribute.Int("workout.id", id))

	workout.ID = id
	return &workout, nil
}

func (r *Repo) Update(ctx context.Context, workout *Workout) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", workout.ID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE workout
			SET day = $1, muscle_group = $2, exercise_name = $3, reps = $4, kilos = $5, notes = $6, is_public = $7
			WHERE id = $8 AND user_id = $9;`,
		workout.Day, workout.MuscleGroup, workout.ExerciseName, workout.Reps,
		workout.Weight.dbValue(), workout.Notes, workout.IsPublic,
		workout.ID, workout.UserID,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrWorkoutNotFound
	}

	return nil
}

func (r *Repo) Delete(ctx context.Context, id, userID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM workout WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkoutNotFound
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id, userID int) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_id, day, muscle_group, exercise_name, reps, kilos, notes, is_public, created_at
			FROM workout
			WHERE id = $1 AND user_id = $2;`,
		id, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	workouts, err := r.rows2workouts(rows)
	if err != nil {
		return nil, err
	}

	if len(workouts) != 1 {
		return nil, ErrWorkoutNotFound
	}

	return &workouts[0], nil
}

// List returns the owner's workouts, newest first, optionally narrowed
// to an exact day or an inclusive day range.
func (r *Repo) List(ctx context.Context, params ListParams) (_ []Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user_id", params.UserID))
	span.SetAttributes(attribute.String("day", params.Day))
	span.SetAttributes(attribute.String("from", params.From))
	span.SetAttributes(attribute.String("to", params.To))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_id, day, muscle_group, exercise_name, reps, kilos, notes, is_public, created_at
			FROM workout
			WHERE user_id = $1
				AND ($2::text = '' OR day = $2)
				AND ($3::text = '' OR day >= $3)
				AND ($4::text = '' OR day <= $4)
			ORDER BY created_at DESC;`,
		params.UserID, params.Day, params.From, params.To,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	workouts, err := r.rows2workouts(rows)
	if err != nil {
		return nil, fmt.Errorf("rows2workouts: %w", err)
	}
	return workouts, nil
}

// ListPublicForUsers returns the newest public workouts of the given
// users, used for the friends feed.
func (r *Repo) ListPublicForUsers(ctx context.Context, userIDs []int, limit int) (_ []Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.listPublicForUsers")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("users", len(userIDs)))
	span.SetAttributes(attribute.Int("limit", limit))

	if len(userIDs) == 0 {
		return []Workout{}, nil
	}

	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_id, day, muscle_group, exercise_name, reps, kilos, notes, is_public, created_at
			FROM workout
			WHERE user_id = ANY($1) AND is_public
			ORDER BY created_at DESC
			LIMIT $2;`,
		userIDs, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return r.rows2workouts(rows)
}

// ListCreatedAfter returns all workouts of all users created after the
// given time, oldest first, used by the incremental backup.
func (r *Repo) ListCreatedAfter(ctx context.Context, after time.Time) (_ []Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.listCreatedAfter")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("after", after.String()))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_id, day, muscle_group, exercise_name, reps, kilos, notes, is_public, created_at
			FROM workout
			WHERE created_at > $1
			ORDER BY created_at ASC;`,
		after,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return r.rows2workouts(rows)
}

func (r *Repo) rows2workouts(rows pgx.Rows) ([]Workout, error) {
	var workouts []Workout
	for rows.Next() {
		var w Workout
		var reps *int
		var kilos *float64
		if err := rows.Scan(
			&w.ID, &w.UserID, &w.Day, &w.MuscleGroup, &w.ExerciseName,
			&reps, &kilos, &w.Notes, &w.IsPublic, &w.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		if reps != nil {
			w.Reps = *reps
		}
		w.Weight = weightFromDB(kilos)
		workouts = append(workouts, w)
	}
	return workouts, nil
}

package catalog

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5/pgconn"
)

type repoMock struct {
	exercises map[int]*Exercise
	nextID    int
	listErr   error
}

func NewMockCatalogRepo() *repoMock {
	return &repoMock{
		exercises: make(map[int]*Exercise),
		nextID:    1,
	}
}

func (r *repoMock) Add(_ context.Context, exercise Exercise) (*Exercise, error) {
	for _, e := range r.exercises {
		if e.UserID == exercise.UserID && e.MuscleGroup == exercise.MuscleGroup && e.Name == exercise.Name {
			return nil, &pgconn.PgError{Code: "23505", ConstraintName: "exercise_user_group_name_key"}
		}
	}
	exercise.ID = r.nextID
	r.nextID++
	r.exercises[exercise.ID] = &exercise
	return &exercise, nil
}

func (r *repoMock) Get(_ context.Context, id, userID int) (*Exercise, error) {
	exercise, ok := r.exercises[id]
	if !ok || exercise.UserID != userID {
		return nil, ErrExerciseNotFound
	}
	return exercise, nil
}

func (r *repoMock) Update(ctx context.Context, exercise *Exercise) error {
	if _, err := r.Get(ctx, exercise.ID, exercise.UserID); err != nil {
		return err
	}
	r.exercises[exercise.ID] = exercise
	return nil
}

func (r *repoMock) Delete(_ context.Context, id, userID int) error {
	exercise, ok := r.exercises[id]
	if !ok || exercise.UserID != userID {
		return ErrExerciseNotFound
	}
	delete(r.exercises, id)
	return nil
}

func (r *repoMock) ListAll(_ context.Context, userID int) ([]Exercise, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var exercises []Exercise
	for _, e := range r.exercises {
		if e.UserID == userID {
			exercises = append(exercises, *e)
		}
	}
	sort.Slice(exercises, func(i, j int) bool {
		if exercises[i].MuscleGroup != exercises[j].MuscleGroup {
			return exercises[i].MuscleGroup < exercises[j].MuscleGroup
		}
		if exercises[i].DisplayOrder != exercises[j].DisplayOrder {
			return exercises[i].DisplayOrder < exercises[j].DisplayOrder
		}
		return exercises[i].ID < exercises[j].ID
	})
	return exercises, nil
}

func (r *repoMock) ListByMuscleGroup(ctx context.Context, userID int, muscleGroup string) ([]Exercise, error) {
	all, err := r.ListAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	var exercises []Exercise
	for _, e := range all {
		if e.MuscleGroup == muscleGroup {
			exercises = append(exercises, e)
		}
	}
	return exercises, nil
}

func (r *repoMock) UpdateDisplayOrder(_ context.Context, userID, id, displayOrder int) error {
	exercise, ok := r.exercises[id]
	if !ok || exercise.UserID != userID {
		return ErrExerciseNotFound
	}
	exercise.DisplayOrder = displayOrder
	return nil
}

func (r *repoMock) UpdateItemCode(_ context.Context, userID, id int, itemCode string) error {
	exercise, ok := r.exercises[id]
	if !ok || exercise.UserID != userID {
		return ErrExerciseNotFound
	}
	exercise.ItemCode = itemCode
	return nil
}

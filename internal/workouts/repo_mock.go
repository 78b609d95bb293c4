package workouts

import (
	"context"
	"sort"
)

type repoMock struct {
	workouts map[int]*Workout
	nextID   int
	listErr  error
}

func NewMockWorkoutsRepo() *repoMock {
	return &repoMock{
		workouts: make(map[int]*Workout),
		nextID:   1,
	}
}

func (r *repoMock) Add(_ context.Context, workout Workout) (*Workout, error) {
	workout.ID = r.nextID
	r.nextID++
	r.workouts[workout.ID] = &workout
	return &workout, nil
}

func (r *repoMock) Update(ctx context.Context, workout *Workout) error {
	if _, err := r.Get(ctx, workout.ID, workout.UserID); err != nil {
		return err
	}
	r.workouts[workout.ID] = workout
	return nil
}

func (r *repoMock) Get(_ context.Context, id, userID int) (*Workout, error) {
	workout, ok := r.workouts[id]
	if !ok || workout.UserID != userID {
		return nil, ErrWorkoutNotFound
	}
	return workout, nil
}

func (r *repoMock) Delete(_ context.Context, id, userID int) error {
	workout, ok := r.workouts[id]
	if !ok || workout.UserID != userID {
		return ErrWorkoutNotFound
	}
	delete(r.workouts, id)
	return nil
}

func (r *repoMock) List(_ context.Context, params ListParams) ([]Workout, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var workouts []Workout
	for _, w := range r.workouts {
		if w.UserID != params.UserID {
			continue
		}
		if params.Day != "" && w.Day != params.Day {
			continue
		}
		if params.From != "" && w.Day < params.From {
			continue
		}
		if params.To != "" && w.Day > params.To {
			continue
		}
		workouts = append(workouts, *w)
	}
	sort.Slice(workouts, func(i, j int) bool {
		return workouts[i].CreatedAt.After(workouts[j].CreatedAt)
	})
	return workouts, nil
}

package users

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
)

type repoMock struct {
	users  map[int]*UserProfile
	nextID int
}

func NewMockUsersRepo() *repoMock {
	return &repoMock{
		users:  make(map[int]*UserProfile),
		nextID: 1,
	}
}

func (r *repoMock) Add(_ context.Context, user UserProfile) (*UserProfile, error) {
	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, &pgconn.PgError{Code: "23505", ConstraintName: "user_profile_email_key"}
		}
	}
	user.ID = r.nextID
	r.nextID++
	r.users[user.ID] = &user
	return &user, nil
}

func (r *repoMock) Get(_ context.Context, id int) (*UserProfile, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (r *repoMock) GetByEmail(_ context.Context, email string) (*UserProfile, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *repoMock) GetMany(_ context.Context, ids []int) ([]UserProfile, error) {
	var users []UserProfile
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			users = append(users, *u)
		}
	}
	return users, nil
}

func (r *repoMock) Update(ctx context.Context, user *UserProfile) error {
	if _, err := r.Get(ctx, user.ID); err != nil {
		return err
	}
	r.users[user.ID] = user
	return nil
}

package catalog

import "time"

// Exercise is a catalog entry: a named exercise within a muscle group,
// with a user-defined display position and a short item code.
type Exercise struct {
	ID           int       `json:"id"`
	UserID       int       `json:"userId"`
	MuscleGroup  string    `json:"muscleGroup"`
	Name         string    `json:"name"`
	DisplayOrder int       `json:"displayOrder"`
	ItemCode     string    `json:"itemCode"`
	CreatedAt    time.Time `json:"createdAt"`
}

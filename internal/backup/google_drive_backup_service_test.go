package backup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/drive/v3"
)

func TestNextAvailableBaseName(t *testing.T) {
	driveFiles := func(names ...string) []*drive.File {
		files := make([]*drive.File, 0, len(names))
		for _, name := range names {
			files = append(files, &drive.File{Name: name})
		}
		return files
	}

	// empty folder, base name is free
	assert.Equal(t,
		"workouts-1-3-2024",
		nextAvailableBaseName(driveFiles(), "workouts-1-3-2024"),
	)

	// chunk files of other days do not collide
	assert.Equal(t,
		"workouts-2-3-2024",
		nextAvailableBaseName(
			driveFiles("workouts-1-3-2024_1.json", "workouts-1-3-2024_2.json"),
			"workouts-2-3-2024",
		),
	)

	// second backup on the same day
	assert.Equal(t,
		"workouts-1-3-2024_2",
		nextAvailableBaseName(
			driveFiles("workouts-1-3-2024_1.json"),
			"workouts-1-3-2024",
		),
	)

	// third backup on the same day continues the suffix sequence
	assert.Equal(t,
		"workouts-1-3-2024_3",
		nextAvailableBaseName(
			driveFiles(
				"workouts-1-3-2024_1.json",
				"workouts-1-3-2024_2_1.json",
			),
			"workouts-1-3-2024",
		),
	)
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/2beens/trainlog/internal/catalog"
	"github.com/2beens/trainlog/internal/config"
	"github.com/2beens/trainlog/internal/db"
	"github.com/2beens/trainlog/internal/musclegroups"
	"github.com/2beens/trainlog/internal/users"
	"github.com/2beens/trainlog/internal/workouts"
	"github.com/2beens/trainlog/pkg"

	"github.com/brianvoe/gofakeit/v6"
)

// dev helper: creates the schema and fills the database with demo
// accounts and workout history

const schemaSQL = `
CREATE TABLE IF NOT EXISTS public.user_profile
(
    id                    SERIAL PRIMARY KEY,
    email                 VARCHAR NOT NULL UNIQUE,
    name                  VARCHAR NOT NULL,
    password_hash         VARCHAR NOT NULL,
    public_profile        BOOLEAN NOT NULL DEFAULT FALSE,
    allow_friend_requests BOOLEAN NOT NULL DEFAULT TRUE,
    created_at            TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS public.workout
(
    id            SERIAL PRIMARY KEY,
    user_id       INTEGER NOT NULL REFERENCES user_profile (id),
    day           VARCHAR NOT NULL,
    muscle_group  VARCHAR NOT NULL,
    exercise_name VARCHAR NOT NULL,
    reps          INTEGER,
    kilos         DOUBLE PRECISION,
    notes         VARCHAR,
    is_public     BOOLEAN NOT NULL DEFAULT FALSE,
    created_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS ix_workout_user_day ON public.workout (user_id, day);
CREATE INDEX IF NOT EXISTS ix_workout_created_at ON public.workout (created_at);

CREATE TABLE IF NOT EXISTS public.exercise
(
    id            SERIAL PRIMARY KEY,
    user_id       INTEGER NOT NULL REFERENCES user_profile (id),
    muscle_group  VARCHAR NOT NULL,
    name          VARCHAR NOT NULL,
    display_order INTEGER NOT NULL DEFAULT 0,
    item_code     VARCHAR NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL,
    UNIQUE (user_id, muscle_group, name)
);

CREATE TABLE IF NOT EXISTS public.friend_request
(
    id         SERIAL PRIMARY KEY,
    from_id    INTEGER NOT NULL REFERENCES user_profile (id),
    to_id      INTEGER NOT NULL REFERENCES user_profile (id),
    status     VARCHAR NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    UNIQUE (from_id, to_id)
);

CREATE TABLE IF NOT EXISTS public.friend
(
    id           SERIAL PRIMARY KEY,
    owner_id     INTEGER NOT NULL REFERENCES user_profile (id),
    friend_id    INTEGER NOT NULL REFERENCES user_profile (id),
    friend_name  VARCHAR NOT NULL,
    friend_email VARCHAR NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL,
    UNIQUE (owner_id, friend_id)
);
`

var exercisesPerGroup = map[string][]string{
	"chest":     {"bench press", "incline press", "cable fly"},
	"shoulders": {"overhead press", "lateral raise"},
	"arms":      {"biceps curl", "triceps pushdown"},
	"back":      {"deadlift", "barbell row", "lat pulldown"},
	"legs":      {"squat", "leg press", "leg curl"},
	"core":      {"plank", "cable crunch"},
}

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	usersCount := flag.Int("users", 3, "number of demo accounts to create")
	daysCount := flag.Int("days", 30, "number of days of workout history per account")
	schemaOnly := flag.Bool("schema-only", false, "only create the schema, no demo data")

	flag.Parse()

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %s", err)
	}

	ctx := context.Background()

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         cfg.PostgresHost,
		DBPort:         cfg.PostgresPort,
		DBName:         cfg.PostgresDBName,
		TracingEnabled: false,
	})
	if err != nil {
		log.Fatalf("new db pool: %s", err)
	}
	defer dbPool.Close()

	if _, err := dbPool.Exec(ctx, schemaSQL); err != nil {
		log.Fatalf("create schema: %s", err)
	}
	log.Println("schema created")

	if *schemaOnly {
		return
	}

	usersRepo := users.NewRepo(dbPool)
	workoutsRepo := workouts.NewRepo(dbPool)
	catalogRepo := catalog.NewRepo(dbPool)

	passwordHash, err := pkg.HashPassword("testpass")
	if err != nil {
		log.Fatalf("hash password: %s", err)
	}

	for i := 0; i < *usersCount; i++ {
		user, err := usersRepo.Add(ctx, users.UserProfile{
			Email:               gofakeit.Email(),
			Name:                gofakeit.Name(),
			PasswordHash:        passwordHash,
			PublicProfile:       i%2 == 0,
			AllowFriendRequests: true,
			CreatedAt:           time.Now(),
		})
		if err != nil {
			log.Fatalf("add user: %s", err)
		}
		log.Printf("user %d created: %s [password: testpass]", user.ID, user.Email)

		seedCatalog(ctx, catalogRepo, user.ID)
		seedWorkouts(ctx, workoutsRepo, user.ID, *daysCount)
	}

	log.Println("all done")
}

func seedCatalog(ctx context.Context, repo *catalog.Repo, userID int) {
	code := 1
	for _, group := range musclegroups.All() {
		for order, name := range exercisesPerGroup[group.ID] {
			_, err := repo.Add(ctx, catalog.Exercise{
				UserID:       userID,
				MuscleGroup:  group.ID,
				Name:         name,
				DisplayOrder: order,
				ItemCode:     catalog.FormatItemCode(code),
				CreatedAt:    time.Now(),
			})
			if err != nil {
				log.Fatalf("add catalog exercise: %s", err)
			}
			code++
		}
	}
}

func seedWorkouts(ctx context.Context, repo *workouts.Repo, userID, daysCount int) {
	added := 0
	for d := 0; d < daysCount; d++ {
		// roughly four training days a week
		if rand.Intn(7) >= 4 {
			continue
		}

		day := workouts.DayOf(time.Now().AddDate(0, 0, -d))
		group := musclegroups.All()[rand.Intn(len(musclegroups.All()))]
		names := exercisesPerGroup[group.ID]

		sets := 3 + rand.Intn(6)
		for i := 0; i < sets; i++ {
			weight := workouts.Kilos(float64(20 + 5*rand.Intn(20)))
			if group.ID == "core" {
				weight = workouts.Bodyweight()
			}

			_, err := repo.Add(ctx, workouts.Workout{
				UserID:       userID,
				Day:          day,
				MuscleGroup:  group.ID,
				ExerciseName: names[rand.Intn(len(names))],
				Reps:         3 + rand.Intn(12),
				Weight:       weight,
				Notes:        gofakeit.LoremIpsumSentence(4),
				IsPublic:     rand.Intn(3) == 0,
				CreatedAt:    time.Now().AddDate(0, 0, -d),
			})
			if err != nil {
				log.Fatalf("add workout: %s", err)
			}
			added++
		}
	}
	log.Printf("user %d: %d workouts seeded", userID, added)
}

func init() {
	gofakeit.Seed(time.Now().UnixNano())
	fmt.Println() // keep log output on its own lines
}

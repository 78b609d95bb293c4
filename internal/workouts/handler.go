package workouts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/trainlog/internal/auth"
	"github.com/2beens/trainlog/internal/telemetry/metrics"
	"github.com/2beens/trainlog/internal/telemetry/tracing"
	"github.com/2beens/trainlog/pkg"
)

type workoutsRepo interface {
	Add(ctx context.Context, workout Workout) (*Workout, error)
	Get(ctx context.Context, id, userID int) (*Workout, error)
	Update(ctx context.Context, workout *Workout) error
	Delete(ctx context.Context, id, userID int) error
	List(ctx context.Context, params ListParams) ([]Workout, error)
}

type DeleteWorkoutResponse struct {
	DeletedID int `json:"deletedId"`
}

type UpdateWorkoutResponse struct {
	UpdatedID int `json:"updatedId"`
}

type Handler struct {
	repo           workoutsRepo
	metricsManager *metrics.Manager
}

func NewHandler(repo workoutsRepo, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:           repo,
		metricsManager: metricsManager,
	}
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.new")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "no session", http.StatusUnauthorized)
		return
	}

	var workout Workout
	if err := json.NewDecoder(r.Body).Decode(&workout); err != nil {
		log.Tracef("new workout, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, "add workout failed", http.StatusBadRequest)
		return
	}

	if workout.Day == "" || workout.MuscleGroup == "" || workout.ExerciseName == "" {
		pkg.WriteJSONError(w, "error, date, muscle group or exercise name empty", http.StatusBadRequest)
		return
	}
	if !ValidDay(workout.Day) {
		pkg.WriteJSONError(w, "error, invalid date", http.StatusBadRequest)
		return
	}
	if workout.Reps < 0 {
		pkg.WriteJSONError(w, "error, reps negative", http.StatusBadRequest)
		return
	}

	workout.UserID = userID
	if workout.CreatedAt.IsZero() {
		workout.CreatedAt = time.Now()
	}

	addedWorkout, err := handler.repo.Add(ctx, workout)
	if err != nil {
		log.Errorf("failed to add new workout [%s], [%s]: %s", workout.MuscleGroup, workout.ExerciseName, err)
		pkg.WriteJSONError(w, "error, failed to add new workout", http.StatusInternalServerError)
		return
	}

	handler.metricsManager.CounterWorkoutsAdded.Inc()

	addedWorkoutJson, err := json.Marshal(addedWorkout)
	if err != nil {
		log.Errorf("failed to marshal new workout: %s", err)
		pkg.WriteJSONError(w, "error, failed to add new workout", http.StatusInternalServerError)
		return
	}

	log.Debugf("new workout added: %s", addedWorkoutJson)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedWorkoutJson, http.StatusCreated)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.update")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "no session", http.StatusUnauthorized)
		return
	}

	id, err := idFromRequest(r)
	if err != nil {
		pkg.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var workout Workout
	if err := json.NewDecoder(r.Body).Decode(&workout); err != nil {
		log.Tracef("update workout, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, "update workout failed", http.StatusBadRequest)
		return
	}

	if workout.Day != "" && !ValidDay(workout.Day) {
		pkg.WriteJSONError(w, "error, invalid date", http.StatusBadRequest)
		return
	}

	workout.ID = id
	workout.UserID = userID

	if err := handler.repo.Update(ctx, &workout); err != nil {
		if errors.Is(err, ErrWorkoutNotFound) {
			pkg.WriteJSONError(w, "workout not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to update workout %d: %s", id, err)
		pkg.WriteJSONError(w, "workout not updated", http.StatusInternalServerError)
		return
	}

	updateRespJson, err := json.Marshal(UpdateWorkoutResponse{UpdatedID: id})
	if err != nil {
		log.Errorf("failed to marshal update response: %s", err)
		pkg.WriteJSONError(w, "failed to marshal update response", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(updateRespJson))
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.delete")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "no session", http.StatusUnauthorized)
		return
	}

	id, err := idFromRequest(r)
	if err != nil {
		pkg.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := handler.repo.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, ErrWorkoutNotFound) {
			pkg.WriteJSONError(w, "workout not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to delete workout %d: %s", id, err)
		pkg.WriteJSONError(w, "workout not deleted", http.StatusInternalServerError)
		return
	}

	deleteRespJson, err := json.Marshal(DeleteWorkoutResponse{DeletedID: id})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		pkg.WriteJSONError(w, "failed to marshal delete response", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(deleteRespJson))
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.list")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "no session", http.StatusUnauthorized)
		return
	}

	day := r.URL.Query().Get("date")
	if day != "" && !ValidDay(day) {
		pkg.WriteJSONError(w, "error, invalid date", http.StatusBadRequest)
		return
	}

	workouts, err := handler.repo.List(ctx, ListParams{
		UserID: userID,
		Day:    day,
	})
	if err != nil {
		log.Errorf("failed to list workouts for user %d: %s", userID, err)
		pkg.WriteJSONError(w, "failed to list workouts", http.StatusInternalServerError)
		return
	}
	if workouts == nil {
		workouts = []Workout{}
	}

	workoutsJson, err := json.Marshal(workouts)
	if err != nil {
		log.Errorf("failed to marshal workouts: %s", err)
		pkg.WriteJSONError(w, "failed to marshal workouts", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, workoutsJson, http.StatusOK)
}

func (handler *Handler) HandleDayView(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.dayView")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "no session", http.StatusUnauthorized)
		return
	}

	day := mux.Vars(r)["date"]
	if !ValidDay(day) {
		pkg.WriteJSONError(w, "error, invalid date", http.StatusBadRequest)
		return
	}

	workouts, err := handler.repo.List(ctx, ListParams{
		UserID: userID,
		Day:    day,
	})
	if err != nil {
		log.Errorf("failed to list workouts for day %s: %s", day, err)
		pkg.WriteJSONError(w, "failed to list workouts", http.StatusInternalServerError)
		return
	}

	dayView := GroupByExercise(day, workouts)

	dayViewJson, err := json.Marshal(dayView)
	if err != nil {
		log.Errorf("failed to marshal day view: %s", err)
		pkg.WriteJSONError(w, "failed to marshal day view", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, dayViewJson, http.StatusOK)
}

func (handler *Handler) HandleRange(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.range")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "no session", http.StatusUnauthorized)
		return
	}

	startDate, endDate, err := rangeFromRequest(r)
	if err != nil {
		pkg.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	workouts, err := handler.repo.List(ctx, ListParams{
		UserID: userID,
		From:   startDate,
		To:     endDate,
	})
	if err != nil {
		log.Errorf("failed to list workouts in range [%s - %s]: %s", startDate, endDate, err)
		pkg.WriteJSONError(w, "failed to list workouts", http.StatusInternalServerError)
		return
	}
	if workouts == nil {
		workouts = []Workout{}
	}

	workoutsJson, err := json.Marshal(workouts)
	if err != nil {
		log.Errorf("failed to marshal workouts: %s", err)
		pkg.WriteJSONError(w, "failed to marshal workouts", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, workoutsJson, http.StatusOK)
}

// HandleStatistics degrades to an empty list on read failures, the
// statistics view is best effort.
func (handler *Handler) HandleStatistics(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.statistics")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "no session", http.StatusUnauthorized)
		return
	}

	startDate, endDate, err := rangeFromRequest(r)
	if err != nil {
		pkg.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	stats := []MuscleGroupStats{}
	workouts, err := handler.repo.List(ctx, ListParams{
		UserID: userID,
		From:   startDate,
		To:     endDate,
	})
	if err != nil {
		log.Errorf("failed to list workouts for statistics [%s - %s]: %s", startDate, endDate, err)
	} else {
		stats = AggregateStats(workouts)
	}

	statsJson, err := json.Marshal(stats)
	if err != nil {
		log.Errorf("failed to marshal statistics: %s", err)
		pkg.WriteJSONError(w, "failed to marshal statistics", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, statsJson, http.StatusOK)
}

func idFromRequest(r *http.Request) (int, error) {
	idStr := mux.Vars(r)["id"]
	if idStr == "" {
		return 0, errors.New("error, id empty")
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, errors.New("error, id NaN")
	}
	return id, nil
}

func rangeFromRequest(r *http.Request) (startDate, endDate string, err error) {
	startDate = r.URL.Query().Get("start_date")
	endDate = r.URL.Query().Get("end_date")
	if !ValidDay(startDate) || !ValidDay(endDate) {
		return "", "", errors.New("error, invalid start_date or end_date")
	}
	if startDate > endDate {
		return "", "", errors.New("error, start_date after end_date")
	}
	return startDate, endDate, nil
}

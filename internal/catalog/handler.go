package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/2beens/trainlog/internal/auth"
	"github.com/2beens/trainlog/internal/telemetry/metrics"
	"github.com/2beens/trainlog/internal/telemetry/tracing"
	"github.com/2beens/trainlog/pkg"
)

type catalogRepo interface {
	Add(ctx context.Context, exercise Exercise) (*Exercise, error)
	Get(ctx context.Context, id, userID int) (*Exercise, error)
	Update(ctx context.Context, exercise *Exercise) error
	Delete(ctx context.Context, id, userID int) error
	ListAll(ctx context.Context, userID int) ([]Exercise, error)
	ListByMuscleGroup(ctx context.Context, userID int, muscleGroup string) ([]Exercise, error)
	UpdateDisplayOrder(ctx context.Context, userID, id, displayOrder int) error
	UpdateItemCode(ctx context.Context, userID, id int, itemCode string) error
}

type SaveOrderRequest struct {
	// item ids of one muscle-group subset, in their new display order
	IDs []int `json:"ids"`
}

type DeleteExerciseResponse struct {
	DeletedID int `json:"deletedId"`
}

type UpdateExerciseResponse struct {
	UpdatedID int `json:"updatedId"`
}

type RepairResponse struct {
	Changed int `json:"changed"`
}

type Handler struct {
	repo           catalogRepo
	metricsManager *metrics.Manager
}

func NewHandler(repo catalogRepo, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:           repo,
		metricsManager: metricsManager,
	}
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.catalog.new")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "no session", http.StatusUnauthorized)
		return
	}

	var exercise Exercise
	if err := json.NewDecoder(r.Body).Decode(&exercise); err != nil {
		log.Tracef("new exercise, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, "add exercise failed", http.StatusBadRequest)
		return
	}

	if exercise.MuscleGroup == "" || exercise.Name == "" {
		pkg.WriteJSONError(w, "error, muscle group or name empty", http.StatusBadRequest)
		return
	}

	exercise.UserID = userID
	if exercise.CreatedAt.IsZero() {
		exercise.CreatedAt = time.Now()
	}

	// the new item goes last within its muscle group, and gets the
	// smallest free item code across the whole catalog
	catalog, err := handler.repo.ListAll(ctx, userID)
	if err != nil {
		log.Errorf("failed to list catalog for user %d: %s", userID, err)
		pkg.WriteJSONError(w, "error, failed to add new exercise", http.StatusInternalServerError)
		return
	}

	existingCodes := make([]string, 0, len(catalog))
	maxOrder := -1
	for _, e := range catalog {
		existingCodes = append(existingCodes, e.ItemCode)
		if e.MuscleGroup == exercise.MuscleGroup && e.DisplayOrder > maxOrder {
			maxOrder = e.DisplayOrder
		}
	}
	exercise.ItemCode = NextItemCode(existingCodes)
	exercise.DisplayOrder = maxOrder + 1

	addedExercise, err := handler.repo.Add(ctx, exercise)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			pkg.WriteJSONError(w, "exercise already exists", http.StatusConflict)
			return
		}
		log.Errorf("failed to add new exercise [%s], [%s]: %s", exercise.MuscleGroup, exercise.Name, err)
		pkg.WriteJSONError(w, "error, failed to add new exercise", http.StatusInternalServerError)
		return
	}

	addedExJson, err := json.Marshal(addedExercise)
	if err != nil {
		log.Errorf("failed to marshal new exercise: %s", err)
		pkg.WriteJSONError(w, "error, failed to add new exercise", http.StatusInternalServerError)
		return
	}

	log.Debugf("new catalog exercise added: %s", addedExJson)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedExJson, http.StatusCreated)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.catalog.update")
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

	existing, err := handler.repo.Get(ctx, id, userID)
	if err != nil {
		if errors.Is(err, ErrExerciseNotFound) {
			pkg.WriteJSONError(w, "exercise not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get exercise %d: %s", id, err)
		pkg.WriteJSONError(w, "internal error", http.StatusInternalServerError)
		return
	}

	var exercise Exercise
	if err := json.NewDecoder(r.Body).Decode(&exercise); err != nil {
		log.Tracef("update exercise, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, "update exercise failed", http.StatusBadRequest)
		return
	}

	if exercise.MuscleGroup == "" || exercise.Name == "" {
		pkg.WriteJSONError(w, "error, muscle group or name empty", http.StatusBadRequest)
		return
	}

	exercise.ID = id
	exercise.UserID = userID
	// display order and item code are managed separately
	exercise.DisplayOrder = existing.DisplayOrder
	exercise.ItemCode = existing.ItemCode

	if err := handler.repo.Update(ctx, &exercise); err != nil {
		if errors.Is(err, ErrExerciseNotFound) {
			pkg.WriteJSONError(w, "exercise not found", http.StatusNotFound)
			return
		}
		if pkg.IsUniqueViolationError(err) {
			pkg.WriteJSONError(w, "exercise already exists", http.StatusConflict)
			return
		}
		log.Errorf("failed to update exercise %d: %s", id, err)
		pkg.WriteJSONError(w, "exercise not updated", http.StatusInternalServerError)
		return
	}

	updateRespJson, err := json.Marshal(UpdateExerciseResponse{UpdatedID: id})
	if err != nil {
		log.Errorf("failed to marshal update response: %s", err)
		pkg.WriteJSONError(w, "failed to marshal update response", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(updateRespJson))
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.catalog.delete")
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
		if errors.Is(err, ErrExerciseNotFound) {
			pkg.WriteJSONError(w, "exercise not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to delete exercise %d: %s", id, err)
		pkg.WriteJSONError(w, "exercise not deleted", http.StatusInternalServerError)
		return
	}

	deleteRespJson, err := json.Marshal(DeleteExerciseResponse{DeletedID: id})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		pkg.WriteJSONError(w, "failed to marshal delete response", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(deleteRespJson))
}

func (handler *Handler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.catalog.listAll")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "no session", http.StatusUnauthorized)
		return
	}

	exercises, err := handler.repo.ListAll(ctx, userID)
	if err != nil {
		// reads degrade to an empty catalog
		log.Errorf("failed to list catalog for user %d: %s", userID, err)
		exercises = nil
	}
	if exercises == nil {
		exercises = []Exercise{}
	}

	exercisesJson, err := json.Marshal(exercises)
	if err != nil {
		log.Errorf("failed to marshal exercises: %s", err)
		pkg.WriteJSONError(w, "failed to marshal exercises", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, exercisesJson, http.StatusOK)
}

func (handler *Handler) HandleListByMuscleGroup(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.catalog.listByMuscleGroup")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "no session", http.StatusUnauthorized)
		return
	}

	muscleGroup := mux.Vars(r)["muscleGroup"]
	if muscleGroup == "" {
		pkg.WriteJSONError(w, "error, muscle group empty", http.StatusBadRequest)
		return
	}

	exercises, err := handler.repo.ListByMuscleGroup(ctx, userID, muscleGroup)
	if err != nil {
		// reads degrade to an empty catalog
		log.Errorf("failed to list exercises [%s] for user %d: %s", muscleGroup, userID, err)
		exercises = nil
	}
	if exercises == nil {
		exercises = []Exercise{}
	}

	exercisesJson, err := json.Marshal(exercises)
	if err != nil {
		log.Errorf("failed to marshal exercises: %s", err)
		pkg.WriteJSONError(w, "failed to marshal exercises", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, exercisesJson, http.StatusOK)
}

// HandleSaveOrder persists order = index for every item of the
// reordered subset. Each update is independent; a partial failure can
// leave a mixed order, which is cosmetic only.
func (handler *Handler) HandleSaveOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.catalog.saveOrder")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "no session", http.StatusUnauthorized)
		return
	}

	var saveOrderReq SaveOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&saveOrderReq); err != nil {
		log.Tracef("save order, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, "save order failed", http.StatusBadRequest)
		return
	}

	if len(saveOrderReq.IDs) == 0 {
		pkg.WriteJSONError(w, "error, ids empty", http.StatusBadRequest)
		return
	}

	var saveErr error
	for index, id := range saveOrderReq.IDs {
		if err := handler.repo.UpdateDisplayOrder(ctx, userID, id, index); err != nil {
			log.Errorf("failed to save order %d for exercise %d: %s", index, id, err)
			saveErr = multierr.Append(saveErr, err)
		}
	}
	if saveErr != nil {
		pkg.WriteJSONError(w, "order not fully saved", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, `{"saved":true}`)
}

// HandleRepairItemCodes reassigns all of the owner's item codes
// densely in name-sorted order. Safe to re-run.
func (handler *Handler) HandleRepairItemCodes(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.catalog.repairItemCodes")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "no session", http.StatusUnauthorized)
		return
	}

	catalog, err := handler.repo.ListAll(ctx, userID)
	if err != nil {
		log.Errorf("failed to list catalog for user %d: %s", userID, err)
		pkg.WriteJSONError(w, "repair failed", http.StatusInternalServerError)
		return
	}

	sort.SliceStable(catalog, func(i, j int) bool {
		return catalog[i].Name < catalog[j].Name
	})

	changed := 0
	var repairErr error
	for i, exercise := range catalog {
		wantCode := FormatItemCode(i + 1)
		if exercise.ItemCode == wantCode {
			continue
		}
		if err := handler.repo.UpdateItemCode(ctx, userID, exercise.ID, wantCode); err != nil {
			log.Errorf("failed to update item code of exercise %d: %s", exercise.ID, err)
			repairErr = multierr.Append(repairErr, err)
			continue
		}
		changed++
	}
	if repairErr != nil {
		pkg.WriteJSONError(w, "repair not fully applied", http.StatusInternalServerError)
		return
	}

	handler.metricsManager.CounterRepairsRun.Inc()
	log.Debugf("item codes repair for user %d: %d changed", userID, changed)

	repairRespJson, err := json.Marshal(RepairResponse{Changed: changed})
	if err != nil {
		log.Errorf("failed to marshal repair response: %s", err)
		pkg.WriteJSONError(w, "failed to marshal repair response", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSONResponseOK(w, string(repairRespJson))
}

// HandleRepairDuplicates removes catalog rows duplicating
// (muscle group, name), keeping the oldest row of each pair.
func (handler *Handler) HandleRepairDuplicates(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.catalog.repairDuplicates")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "no session", http.StatusUnauthorized)
		return
	}

	catalog, err := handler.repo.ListAll(ctx, userID)
	if err != nil {
		log.Errorf("failed to list catalog for user %d: %s", userID, err)
		pkg.WriteJSONError(w, "repair failed", http.StatusInternalServerError)
		return
	}

	// keep the lowest id per (muscle group, name)
	sort.SliceStable(catalog, func(i, j int) bool {
		return catalog[i].ID < catalog[j].ID
	})

	type dupKey struct {
		muscleGroup string
		name        string
	}
	seen := make(map[dupKey]bool)
	removed := 0
	var repairErr error
	for _, exercise := range catalog {
		key := dupKey{muscleGroup: exercise.MuscleGroup, name: exercise.Name}
		if !seen[key] {
			seen[key] = true
			continue
		}
		if err := handler.repo.Delete(ctx, exercise.ID, userID); err != nil {
			log.Errorf("failed to delete duplicate exercise %d: %s", exercise.ID, err)
			repairErr = multierr.Append(repairErr, err)
			continue
		}
		removed++
	}
	if repairErr != nil {
		pkg.WriteJSONError(w, "repair not fully applied", http.StatusInternalServerError)
		return
	}

	handler.metricsManager.CounterRepairsRun.Inc()
	log.Debugf("duplicates repair for user %d: %d removed", userID, removed)

	repairRespJson, err := json.Marshal(RepairResponse{Changed: removed})
	if err != nil {
		log.Errorf("failed to marshal repair response: %s", err)
		pkg.WriteJSONError(w, "failed to marshal repair response", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSONResponseOK(w, string(repairRespJson))
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

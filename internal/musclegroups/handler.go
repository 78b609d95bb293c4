package musclegroups

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/trainlog/internal/telemetry/tracing"
	"github.com/2beens/trainlog/pkg"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.musclegroups.list")
	defer span.End()

	muscleGroupsJson, err := json.Marshal(All())
	if err != nil {
		log.Errorf("failed to marshal muscle groups: %s", err)
		pkg.WriteJSONError(w, "failed to marshal muscle groups", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, muscleGroupsJson, http.StatusOK)
}

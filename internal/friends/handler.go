package friends

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/2beens/trainlog/internal/auth"
	"github.com/2beens/trainlog/internal/telemetry/tracing"
	"github.com/2beens/trainlog/internal/users"
	"github.com/2beens/trainlog/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const (
	feedDefaultLimit = 50
	feedMaxLimit     = 200
)

type SendRequestRequest struct {
	Email string `json:"email"`
}

type RepairResponse struct {
	Repaired int `json:"repaired"`
}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

func (handler *Handler) HandleListFriends(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.friends.list")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "no session", http.StatusUnauthorized)
		return
	}

	edges, err := handler.service.ListFriends(ctx, userID)
	if err != nil {
		log.Errorf("failed to list friends for %d: %s", userID, err)
		pkg.WriteJSONError(w, "failed to list friends", http.StatusInternalServerError)
		return
	}
	if edges == nil {
		edges = []FriendEdge{}
	}

	edgesJson, err := json.Marshal(edges)
	if err != nil {
		log.Errorf("failed to marshal friends: %s", err)
		pkg.WriteJSONError(w, "failed to marshal friends", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, edgesJson, http.StatusOK)
}

func (handler *Handler) HandleListRequests(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.friends.listRequests")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "no session", http.StatusUnauthorized)
		return
	}

	requests, err := handler.service.ListPendingRequests(ctx, userID)
	if err != nil {
		log.Errorf("failed to list friend requests for %d: %s", userID, err)
		pkg.WriteJSONError(w, "failed to list friend requests", http.StatusInternalServerError)
		return
	}
	if requests == nil {
		requests = []FriendRequest{}
	}

	requestsJson, err := json.Marshal(requests)
	if err != nil {
		log.Errorf("failed to marshal friend requests: %s", err)
		pkg.WriteJSONError(w, "failed to marshal friend requests", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, requestsJson, http.StatusOK)
}

func (handler *Handler) HandleSendRequest(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.friends.sendRequest")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "no session", http.StatusUnauthorized)
		return
	}

	var sendReq SendRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&sendReq); err != nil {
		log.Tracef("send friend request, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, "send friend request failed", http.StatusBadRequest)
		return
	}

	if sendReq.Email == "" {
		pkg.WriteJSONError(w, "error, email empty", http.StatusBadRequest)
		return
	}

	added, err := handler.service.SendRequest(ctx, userID, sendReq.Email)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrUserNotFound):
			pkg.WriteJSONError(w, "user not found", http.StatusNotFound)
		case errors.Is(err, ErrSelfRequest):
			pkg.WriteJSONError(w, ErrSelfRequest.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrRequestExists):
			pkg.WriteJSONError(w, ErrRequestExists.Error(), http.StatusConflict)
		case errors.Is(err, ErrRequestsDisabled):
			pkg.WriteJSONError(w, ErrRequestsDisabled.Error(), http.StatusConflict)
		default:
			log.Errorf("failed to send friend request from %d: %s", userID, err)
			pkg.WriteJSONError(w, "send friend request failed", http.StatusInternalServerError)
		}
		return
	}

	addedJson, err := json.Marshal(added)
	if err != nil {
		log.Errorf("failed to marshal friend request: %s", err)
		pkg.WriteJSONError(w, "send friend request failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedJson, http.StatusCreated)
}

func (handler *Handler) HandleAcceptRequest(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.friends.acceptRequest")
	defer span.End()

	userID, requestID, ok := handler.userAndRequestID(w, r)
	if !ok {
		return
	}

	if err := handler.service.Accept(ctx, userID, requestID); err != nil {
		switch {
		case errors.Is(err, ErrRequestNotFound):
			pkg.WriteJSONError(w, "friend request not found", http.StatusNotFound)
		case errors.Is(err, ErrRequestNotPending):
			pkg.WriteJSONError(w, ErrRequestNotPending.Error(), http.StatusConflict)
		default:
			log.Errorf("failed to accept friend request %d: %s", requestID, err)
			pkg.WriteJSONError(w, "accept friend request failed", http.StatusInternalServerError)
		}
		return
	}

	pkg.WriteJSONResponseOK(w, fmt.Sprintf(`{"acceptedId":%d}`, requestID))
}

func (handler *Handler) HandleRejectRequest(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.friends.rejectRequest")
	defer span.End()

	userID, requestID, ok := handler.userAndRequestID(w, r)
	if !ok {
		return
	}

	if err := handler.service.Reject(ctx, userID, requestID); err != nil {
		switch {
		case errors.Is(err, ErrRequestNotFound):
			pkg.WriteJSONError(w, "friend request not found", http.StatusNotFound)
		case errors.Is(err, ErrRequestNotPending):
			pkg.WriteJSONError(w, ErrRequestNotPending.Error(), http.StatusConflict)
		default:
			log.Errorf("failed to reject friend request %d: %s", requestID, err)
			pkg.WriteJSONError(w, "reject friend request failed", http.StatusInternalServerError)
		}
		return
	}

	pkg.WriteJSONResponseOK(w, fmt.Sprintf(`{"rejectedId":%d}`, requestID))
}

func (handler *Handler) HandleRemoveFriend(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.friends.removeFriend")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "no session", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	friendID, err := strconv.Atoi(vars["friendID"])
	if err != nil {
		pkg.WriteJSONError(w, "error, friend id invalid", http.StatusBadRequest)
		return
	}

	removed, err := handler.service.RemoveFriend(ctx, userID, friendID)
	if err != nil {
		log.Errorf("failed to remove friend %d for %d: %s", friendID, userID, err)
		pkg.WriteJSONError(w, "remove friend failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, fmt.Sprintf(`{"removed":%d}`, removed))
}

func (handler *Handler) HandleRepair(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.friends.repair")
	defer span.End()

	repaired, err := handler.service.Reconcile(ctx)
	if err != nil {
		log.Errorf("friends repair failed [repaired %d]: %s", repaired, err)
		pkg.WriteJSONError(w, "friends repair not fully done", http.StatusInternalServerError)
		return
	}

	repairJson, err := json.Marshal(RepairResponse{Repaired: repaired})
	if err != nil {
		log.Errorf("failed to marshal repair response: %s", err)
		pkg.WriteJSONError(w, "friends repair failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, repairJson, http.StatusOK)
}

func (handler *Handler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.friends.feed")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "no session", http.StatusUnauthorized)
		return
	}

	limit := feedDefaultLimit
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		parsedLimit, err := strconv.Atoi(limitParam)
		if err != nil || parsedLimit <= 0 {
			pkg.WriteJSONError(w, "error, limit invalid", http.StatusBadRequest)
			return
		}
		limit = parsedLimit
	}
	if limit > feedMaxLimit {
		limit = feedMaxLimit
	}

	feed, err := handler.service.Feed(ctx, userID, limit)
	if err != nil {
		log.Errorf("failed to get friends feed for %d: %s", userID, err)
		pkg.WriteJSONError(w, "failed to get friends feed", http.StatusInternalServerError)
		return
	}

	feedJson, err := json.Marshal(feed)
	if err != nil {
		log.Errorf("failed to marshal friends feed: %s", err)
		pkg.WriteJSONError(w, "failed to marshal friends feed", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, feedJson, http.StatusOK)
}

func (handler *Handler) userAndRequestID(w http.ResponseWriter, r *http.Request) (userID, requestID int, ok bool) {
	userID, ok = auth.UserIDFromContext(r.Context())
	if !ok {
		pkg.WriteJSONError(w, "no session", http.StatusUnauthorized)
		return 0, 0, false
	}

	vars := mux.Vars(r)
	requestID, err := strconv.Atoi(vars["id"])
	if err != nil {
		pkg.WriteJSONError(w, "error, request id invalid", http.StatusBadRequest)
		return 0, 0, false
	}

	return userID, requestID, true
}

package friends

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/trainlog/internal/telemetry/metrics"
	"github.com/2beens/trainlog/internal/telemetry/tracing"
	"github.com/2beens/trainlog/internal/users"
	"github.com/2beens/trainlog/internal/workouts"
	"github.com/2beens/trainlog/pkg"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

const (
	oneMinute          = 60
	profileCacheExpire = oneMinute * 10 // expire in seconds
)

var (
	ErrSelfRequest       = errors.New("cannot send a friend request to yourself")
	ErrRequestExists     = errors.New("friend request already exists")
	ErrRequestsDisabled  = errors.New("user does not accept friend requests")
	ErrRequestNotPending = errors.New("friend request is not pending")
)

type friendsRepo interface {
	AddRequest(ctx context.Context, req FriendRequest) (*FriendRequest, error)
	GetRequest(ctx context.Context, id int) (*FriendRequest, error)
	ListPendingRequestsFor(ctx context.Context, toID int) ([]FriendRequest, error)
	ListAcceptedRequests(ctx context.Context) ([]FriendRequest, error)
	UpdateRequestStatus(ctx context.Context, id int, status string) error
	AddEdge(ctx context.Context, edge FriendEdge) error
	EdgeExists(ctx context.Context, ownerID, friendID int) (bool, error)
	ListEdges(ctx context.Context, ownerID int) ([]FriendEdge, error)
	DeleteEdge(ctx context.Context, ownerID, friendID int) (int, error)
}

type profilesRepo interface {
	Get(ctx context.Context, id int) (*users.UserProfile, error)
	GetByEmail(ctx context.Context, email string) (*users.UserProfile, error)
	GetMany(ctx context.Context, ids []int) ([]users.UserProfile, error)
}

type publicWorkoutsLister interface {
	ListPublicForUsers(ctx context.Context, userIDs []int, limit int) ([]workouts.Workout, error)
}

// cachedProfile is the slice of a profile the feed needs.
type cachedProfile struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Service struct {
	repo          friendsRepo
	profiles      profilesRepo
	feedWorkouts  publicWorkoutsLister
	profileCache  *freecache.Cache
	metricsManage *metrics.Manager
}

func NewService(
	repo friendsRepo,
	profiles profilesRepo,
	feedWorkouts publicWorkoutsLister,
	metricsManager *metrics.Manager,
) *Service {
	megabyte := 1024 * 1024
	cacheSize := 10 * megabyte

	return &Service{
		repo:          repo,
		profiles:      profiles,
		feedWorkouts:  feedWorkouts,
		profileCache:  freecache.NewCache(cacheSize),
		metricsManage: metricsManager,
	}
}

func (s *Service) SendRequest(ctx context.Context, fromID int, email string) (_ *FriendRequest, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "friends.service.sendRequest")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	target, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if target.ID == fromID {
		return nil, ErrSelfRequest
	}
	if !target.AllowFriendRequests {
		return nil, ErrRequestsDisabled
	}

	added, err := s.repo.AddRequest(ctx, FriendRequest{
		FromID:    fromID,
		ToID:      target.ID,
		Status:    RequestStatusPending,
		CreatedAt: time.Now(),
	})
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrRequestExists
		}
		return nil, err
	}

	s.metricsManage.CounterFriendRequests.Inc()
	log.Debugf("friend request %d sent: %d -> %d", added.ID, fromID, target.ID)

	return added, nil
}

// Accept marks the request accepted, then inserts the two directional
// edges. The three writes are not atomic, a failure in between leaves
// an accepted request without (all) edges. Reconcile picks those up.
func (s *Service) Accept(ctx context.Context, userID, requestID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "friends.service.accept")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	req, err := s.getOwnPendingRequest(ctx, userID, requestID)
	if err != nil {
		return err
	}

	if err := s.repo.UpdateRequestStatus(ctx, req.ID, RequestStatusAccepted); err != nil {
		return fmt.Errorf("update request status: %w", err)
	}

	if err := s.insertEdgePair(ctx, req.FromID, req.ToID); err != nil {
		return fmt.Errorf("insert friend edges [request %d accepted, run repair]: %w", req.ID, err)
	}

	return nil
}

func (s *Service) Reject(ctx context.Context, userID, requestID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "friends.service.reject")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	req, err := s.getOwnPendingRequest(ctx, userID, requestID)
	if err != nil {
		return err
	}

	return s.repo.UpdateRequestStatus(ctx, req.ID, RequestStatusRejected)
}

func (s *Service) getOwnPendingRequest(ctx context.Context, userID, requestID int) (*FriendRequest, error) {
	req, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	// requests addressed to somebody else do not exist for this user
	if req.ToID != userID {
		return nil, ErrRequestNotFound
	}
	if req.Status != RequestStatusPending {
		return nil, ErrRequestNotPending
	}
	return req, nil
}

func (s *Service) insertEdgePair(ctx context.Context, fromID, toID int) error {
	fromProfile, err := s.profiles.Get(ctx, fromID)
	if err != nil {
		return fmt.Errorf("get profile %d: %w", fromID, err)
	}
	toProfile, err := s.profiles.Get(ctx, toID)
	if err != nil {
		return fmt.Errorf("get profile %d: %w", toID, err)
	}

	now := time.Now()
	if err := s.repo.AddEdge(ctx, FriendEdge{
		OwnerID:     toID,
		FriendID:    fromID,
		FriendName:  fromProfile.Name,
		FriendEmail: fromProfile.Email,
		CreatedAt:   now,
	}); err != nil {
		return fmt.Errorf("add edge %d->%d: %w", toID, fromID, err)
	}

	if err := s.repo.AddEdge(ctx, FriendEdge{
		OwnerID:     fromID,
		FriendID:    toID,
		FriendName:  toProfile.Name,
		FriendEmail: toProfile.Email,
		CreatedAt:   now,
	}); err != nil {
		return fmt.Errorf("add edge %d->%d: %w", fromID, toID, err)
	}

	return nil
}

// RemoveFriend deletes both directions of a friendship. Finding only one
// direction, or none, is still a success, previous partial failures must
// be removable too.
func (s *Service) RemoveFriend(ctx context.Context, userID, friendID int) (removed int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "friends.service.removeFriend")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	removedOwn, errOwn := s.repo.DeleteEdge(ctx, userID, friendID)
	removedOther, errOther := s.repo.DeleteEdge(ctx, friendID, userID)

	return removedOwn + removedOther, multierr.Combine(errOwn, errOther)
}

// Reconcile walks all accepted requests and inserts every missing
// directional edge. Safe to run repeatedly, a fully consistent graph
// yields zero repairs.
func (s *Service) Reconcile(ctx context.Context) (repaired int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "friends.service.reconcile")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	s.metricsManage.CounterRepairsRun.Inc()

	accepted, err := s.repo.ListAcceptedRequests(ctx)
	if err != nil {
		return 0, fmt.Errorf("list accepted requests: %w", err)
	}

	var errs error
	for _, req := range accepted {
		for _, pair := range [][2]int{
			{req.ToID, req.FromID},
			{req.FromID, req.ToID},
		} {
			ownerID, friendID := pair[0], pair[1]
			exists, err := s.repo.EdgeExists(ctx, ownerID, friendID)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("edge exists %d->%d: %w", ownerID, friendID, err))
				continue
			}
			if exists {
				continue
			}

			friendProfile, err := s.profiles.Get(ctx, friendID)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("get profile %d: %w", friendID, err))
				continue
			}

			if err := s.repo.AddEdge(ctx, FriendEdge{
				OwnerID:     ownerID,
				FriendID:    friendID,
				FriendName:  friendProfile.Name,
				FriendEmail: friendProfile.Email,
				CreatedAt:   time.Now(),
			}); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("add edge %d->%d: %w", ownerID, friendID, err))
				continue
			}

			log.Warnf("friends repair: restored missing edge %d->%d [request %d]", ownerID, friendID, req.ID)
			repaired++
		}
	}

	return repaired, errs
}

func (s *Service) ListFriends(ctx context.Context, userID int) (_ []FriendEdge, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "friends.service.listFriends")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return s.repo.ListEdges(ctx, userID)
}

func (s *Service) ListPendingRequests(ctx context.Context, userID int) (_ []FriendRequest, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "friends.service.listPendingRequests")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return s.repo.ListPendingRequestsFor(ctx, userID)
}

// Feed returns the newest public workouts of the user's friends, each
// with the owner name attached. Owner profiles go through an in-process
// cache so a busy feed does not hammer the profiles table.
func (s *Service) Feed(ctx context.Context, userID, limit int) (_ []FeedItem, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "friends.service.feed")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	edges, err := s.repo.ListEdges(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	if len(edges) == 0 {
		return []FeedItem{}, nil
	}

	friendIDs := make([]int, 0, len(edges))
	for _, edge := range edges {
		friendIDs = append(friendIDs, edge.FriendID)
	}

	feedWorkouts, err := s.feedWorkouts.ListPublicForUsers(ctx, friendIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("list public workouts: %w", err)
	}

	names, err := s.profileNames(ctx, feedWorkouts)
	if err != nil {
		return nil, err
	}

	feed := make([]FeedItem, 0, len(feedWorkouts))
	for _, w := range feedWorkouts {
		feed = append(feed, FeedItem{
			Workout:  w,
			UserName: names[w.UserID],
		})
	}

	return feed, nil
}

func (s *Service) profileNames(ctx context.Context, feedWorkouts []workouts.Workout) (map[int]string, error) {
	names := make(map[int]string)
	var missing []int
	for _, w := range feedWorkouts {
		if _, ok := names[w.UserID]; ok {
			continue
		}

		cacheKey := []byte(fmt.Sprintf("profile::%d", w.UserID))
		if profileBytes, err := s.profileCache.Get(cacheKey); err == nil {
			var profile cachedProfile
			if err := json.Unmarshal(profileBytes, &profile); err == nil {
				names[profile.ID] = profile.Name
				continue
			}
			log.Errorf("failed to unmarshal cached profile %d: %s", w.UserID, err)
		}

		names[w.UserID] = "" // mark as seen
		missing = append(missing, w.UserID)
	}

	if len(missing) == 0 {
		return names, nil
	}

	profiles, err := s.profiles.GetMany(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("get profiles: %w", err)
	}

	for _, profile := range profiles {
		names[profile.ID] = profile.Name

		profileBytes, err := json.Marshal(cachedProfile{ID: profile.ID, Name: profile.Name})
		if err != nil {
			log.Errorf("failed to marshal profile %d for cache: %s", profile.ID, err)
			continue
		}
		cacheKey := []byte(fmt.Sprintf("profile::%d", profile.ID))
		if err := s.profileCache.Set(cacheKey, profileBytes, profileCacheExpire); err != nil {
			log.Errorf("failed to cache profile %d: %s", profile.ID, err)
		}
	}

	return names, nil
}

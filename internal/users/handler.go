package users

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/trainlog/internal/auth"
	"github.com/2beens/trainlog/internal/telemetry/tracing"
	"github.com/2beens/trainlog/pkg"
)

type usersRepo interface {
	Add(ctx context.Context, user UserProfile) (*UserProfile, error)
	Get(ctx context.Context, id int) (*UserProfile, error)
	GetByEmail(ctx context.Context, email string) (*UserProfile, error)
	Update(ctx context.Context, user *UserProfile) error
}

type loginService interface {
	Login(ctx context.Context, userID int, createdAt time.Time) (string, error)
	Logout(ctx context.Context, token string) (bool, error)
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type UpdateProfileRequest struct {
	Name                string `json:"name"`
	PublicProfile       bool   `json:"publicProfile"`
	AllowFriendRequests bool   `json:"allowFriendRequests"`
}

type Handler struct {
	repo        usersRepo
	authService loginService
}

func NewHandler(repo usersRepo, authService loginService) *Handler {
	return &Handler{
		repo:        repo,
		authService: authService,
	}
}

func (handler *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.register")
	defer span.End()

	var registerReq RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&registerReq); err != nil {
		log.Tracef("register, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, "register failed", http.StatusBadRequest)
		return
	}

	if registerReq.Email == "" || registerReq.Name == "" || registerReq.Password == "" {
		pkg.WriteJSONError(w, "error, email, name or password empty", http.StatusBadRequest)
		return
	}

	passwordHash, err := pkg.HashPassword(registerReq.Password)
	if err != nil {
		log.Errorf("failed to hash password: %s", err)
		pkg.WriteJSONError(w, "register failed", http.StatusInternalServerError)
		return
	}

	addedUser, err := handler.repo.Add(ctx, UserProfile{
		Email:        registerReq.Email,
		Name:         registerReq.Name,
		PasswordHash: passwordHash,
		// new accounts are private until the owner says otherwise,
		// but reachable for friend requests
		PublicProfile:       false,
		AllowFriendRequests: true,
		CreatedAt:           time.Now(),
	})
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			pkg.WriteJSONError(w, "email already registered", http.StatusConflict)
			return
		}
		log.Errorf("failed to register user [%s]: %s", registerReq.Email, err)
		pkg.WriteJSONError(w, "register failed", http.StatusInternalServerError)
		return
	}

	userJson, err := json.Marshal(addedUser)
	if err != nil {
		log.Errorf("failed to marshal registered user: %s", err)
		pkg.WriteJSONError(w, "register failed", http.StatusInternalServerError)
		return
	}

	log.Debugf("new user registered: %s", addedUser.Email)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, userJson, http.StatusCreated)
}

func (handler *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.login")
	defer span.End()

	var loginReq LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&loginReq); err != nil {
		log.Tracef("login, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, "login failed", http.StatusBadRequest)
		return
	}

	if loginReq.Email == "" || loginReq.Password == "" {
		pkg.WriteJSONError(w, "error, email or password empty", http.StatusBadRequest)
		return
	}

	user, err := handler.repo.GetByEmail(ctx, loginReq.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			pkg.WriteJSONError(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		log.Errorf("failed to get user by email: %s", err)
		pkg.WriteJSONError(w, "login failed", http.StatusInternalServerError)
		return
	}

	if !pkg.CheckPasswordHash(loginReq.Password, user.PasswordHash) {
		log.Tracef("wrong password for user %d", user.ID)
		pkg.WriteJSONError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := handler.authService.Login(ctx, user.ID, time.Now())
	if err != nil {
		log.Errorf("failed to create session for user %d: %s", user.ID, err)
		pkg.WriteJSONError(w, "login failed", http.StatusInternalServerError)
		return
	}

	loginRespJson, err := json.Marshal(LoginResponse{Token: token})
	if err != nil {
		log.Errorf("failed to marshal login response: %s", err)
		pkg.WriteJSONError(w, "login failed", http.StatusInternalServerError)
		return
	}

	log.Tracef("user %d logged in", user.ID)
	pkg.WriteJSONResponseOK(w, string(loginRespJson))
}

func (handler *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.logout")
	defer span.End()

	token := r.Header.Get("X-TRAINLOG-TOKEN")
	if token == "" {
		pkg.WriteJSONError(w, "no session", http.StatusUnauthorized)
		return
	}

	loggedOut, err := handler.authService.Logout(ctx, token)
	if err != nil {
		log.Errorf("failed to logout: %s", err)
		pkg.WriteJSONError(w, "logout failed", http.StatusInternalServerError)
		return
	}
	if !loggedOut {
		pkg.WriteJSONError(w, "no session", http.StatusUnauthorized)
		return
	}

	pkg.WriteJSONResponseOK(w, `{"loggedOut":true}`)
}

func (handler *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.getProfile")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "no session", http.StatusUnauthorized)
		return
	}

	user, err := handler.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			pkg.WriteJSONError(w, "profile not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get profile %d: %s", userID, err)
		pkg.WriteJSONError(w, "failed to get profile", http.StatusInternalServerError)
		return
	}

	userJson, err := json.Marshal(user)
	if err != nil {
		log.Errorf("failed to marshal profile: %s", err)
		pkg.WriteJSONError(w, "failed to marshal profile", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, userJson, http.StatusOK)
}

func (handler *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.updateProfile")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "no session", http.StatusUnauthorized)
		return
	}

	var updateReq UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&updateReq); err != nil {
		log.Tracef("update profile, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, "update profile failed", http.StatusBadRequest)
		return
	}

	if updateReq.Name == "" {
		pkg.WriteJSONError(w, "error, name empty", http.StatusBadRequest)
		return
	}

	user, err := handler.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			pkg.WriteJSONError(w, "profile not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get profile %d: %s", userID, err)
		pkg.WriteJSONError(w, "failed to get profile", http.StatusInternalServerError)
		return
	}

	user.Name = updateReq.Name
	user.PublicProfile = updateReq.PublicProfile
	user.AllowFriendRequests = updateReq.AllowFriendRequests

	if err := handler.repo.Update(ctx, user); err != nil {
		log.Errorf("failed to update profile %d: %s", userID, err)
		pkg.WriteJSONError(w, "profile not updated", http.StatusInternalServerError)
		return
	}

	userJson, err := json.Marshal(user)
	if err != nil {
		log.Errorf("failed to marshal profile: %s", err)
		pkg.WriteJSONError(w, "failed to marshal profile", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, userJson, http.StatusOK)
}

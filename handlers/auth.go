package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/camden-git/siteguard/logger"
	"github.com/camden-git/siteguard/models"
	"github.com/camden-git/siteguard/permissions"
	"github.com/camden-git/siteguard/repository"
)

const tokenIssuer = "siteguard"

type AuthHandler struct {
	UserRepo   repository.UserRepository
	Secret     []byte
	Expiration time.Duration
	Log        *logger.Logger
}

func NewAuthHandler(userRepo repository.UserRepository, secret []byte, expiration time.Duration, log *logger.Logger) *AuthHandler {
	if expiration <= 0 {
		expiration = 24 * time.Hour
	}
	return &AuthHandler{UserRepo: userRepo, Secret: secret, Expiration: expiration, Log: log}
}

type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserResponse is a user with the permissions its role grants.
type UserResponse struct {
	*models.User
	Permissions []string `json:"permissions"`
}

type LoginResponse struct {
	Token     string       `json:"token"`
	User      UserResponse `json:"user"`
	ExpiresAt time.Time    `json:"expires_at"`
}

func userResponse(u *models.User) UserResponse {
	return UserResponse{User: u, Permissions: permissions.ForRole(u.Role)}
}

func (h *AuthHandler) issueToken(user *models.User) (string, time.Time, error) {
	now := time.Now()
	expirationTime := now.Add(h.Expiration)
	claims := &jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(user.ID), 10),
		ExpiresAt: jwt.NewNumericDate(expirationTime),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    tokenIssuer,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(h.Secret)
	return signed, expirationTime, err
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_payload", "Invalid request payload")
		return
	}

	user, err := h.UserRepo.GetByUsername(strings.TrimSpace(payload.Username))
	if err != nil || !user.CheckPassword(payload.Password) {
		WriteAPIError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid username or password")
		return
	}

	tokenString, expiresAt, err := h.issueToken(user)
	if err != nil {
		h.Log.Error("failed to sign token", "user_id", user.ID, "error", err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     tokenString,
		User:      userResponse(user),
		ExpiresAt: expiresAt,
	})
}

type RegisterPayload struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Organization string `json:"organization"`
}

const minPasswordLength = 8

// Register creates a user in the named organization. The first user of an
// organization becomes its admin.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_payload", "Invalid request payload: "+err.Error())
		return
	}
	payload.Username = strings.TrimSpace(payload.Username)
	payload.Email = strings.TrimSpace(strings.ToLower(payload.Email))
	payload.Organization = strings.TrimSpace(payload.Organization)

	if payload.Username == "" || payload.Email == "" || payload.Organization == "" {
		WriteAPIError(w, http.StatusBadRequest, "missing_fields", "Username, email, password and organization are required")
		return
	}
	if !strings.Contains(payload.Email, "@") {
		WriteAPIError(w, http.StatusBadRequest, "invalid_email", "Email address is not valid")
		return
	}
	if len(payload.Password) < minPasswordLength {
		WriteAPIError(w, http.StatusBadRequest, "weak_password", "Password must be at least 8 characters")
		return
	}

	newUser := &models.User{
		Username:  payload.Username,
		Email:     payload.Email,
		FirstName: strings.TrimSpace(payload.FirstName),
		LastName:  strings.TrimSpace(payload.LastName),
	}
	if err := newUser.SetPassword(payload.Password); err != nil {
		h.Log.Error("failed to hash password", "error", err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to hash password")
		return
	}

	if err := h.UserRepo.Register(newUser, payload.Organization); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			WriteAPIError(w, http.StatusConflict, "user_exists", "Username or email already registered")
			return
		}
		writeServiceError(w, h.Log, err)
		return
	}

	h.Log.Info("user registered", "user_id", newUser.ID, "organization_id", newUser.OrganizationID, "role", newUser.Role)
	writeJSON(w, http.StatusCreated, userResponse(newUser))
}

// CurrentUser retrieves the authenticated user from the request context.
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Could not retrieve user from context")
		return
	}
	writeJSON(w, http.StatusOK, userResponse(user))
}

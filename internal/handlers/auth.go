package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gator-market/apiserver/internal/auth"
	"github.com/gator-market/apiserver/internal/services"
	"github.com/gator-market/apiserver/internal/store"
	"github.com/gator-market/apiserver/types"
)

const incorrectCredentials = "Incorrect username or password"

// AuthHandler provides signup/login endpoints and the bearer-token
// middleware.
type AuthHandler struct {
	userService *services.UserService
	tokens      *auth.TokenService
	resolver    *auth.Resolver
	emailDomain string
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, tokens *auth.TokenService, resolver *auth.Resolver, emailDomain string) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		tokens:      tokens,
		resolver:    resolver,
		emailDomain: emailDomain,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.Post("/signup", handler.Signup)
	r.Post("/login", handler.Login)
}

// RequireAuth enforces bearer authentication and injects the resolved
// account into the request context.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := bearerToken(r)
		if err != nil {
			writeUnauthorized(w, "Could not validate credentials")
			return
		}

		actor, err := h.resolver.Resolve(r.Context(), tokenString)
		if err != nil {
			writeUnauthorized(w, "Could not validate credentials")
			return
		}

		next.ServeHTTP(w, r.WithContext(withActor(r.Context(), actor)))
	})
}

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string             `json:"access_token"`
	TokenType   string             `json:"token_type"`
	User        types.UserIdentity `json:"user"`
}

// Signup creates a new account and returns its public projection.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "username, email, and password are required")
		return
	}

	if err := auth.ValidateEmail(req.Email, h.emailDomain); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := h.checkAvailable(r, w, req.Username, req.Email); err != nil {
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	user, err := h.userService.Create(r.Context(), types.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashed,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusBadRequest, "Username or email already registered")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	writeJSON(w, http.StatusOK, user.Public())
}

// checkAvailable rejects the signup with a 400 if the username or email
// is already taken. The unique indexes remain the authority; this just
// produces the friendly rejection before attempting the write.
func (h *AuthHandler) checkAvailable(r *http.Request, w http.ResponseWriter, username, email string) error {
	taken := errors.New("taken")

	if _, err := h.userService.GetByUsername(r.Context(), username); err == nil {
		writeError(w, http.StatusBadRequest, "Username or email already registered")
		return taken
	} else if !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "failed to check user")
		return err
	}

	if _, err := h.userService.GetByEmail(r.Context(), email); err == nil {
		writeError(w, http.StatusBadRequest, "Username or email already registered")
		return taken
	} else if !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "failed to check user")
		return err
	}

	return nil
}

// Login verifies credentials from a form-encoded body and returns a
// bearer token. The identifier may be a username or an email address.
// Unknown identifier and wrong password produce the same response.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid form body")
		return
	}

	identifier := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	if identifier == "" || password == "" {
		writeError(w, http.StatusUnprocessableEntity, "username and password are required")
		return
	}

	user, err := h.userService.GetByUsernameOrEmail(r.Context(), identifier)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeUnauthorized(w, incorrectCredentials)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	if !auth.VerifyPassword(password, user.PasswordHash) {
		writeUnauthorized(w, incorrectCredentials)
		return
	}

	token, err := h.tokens.Issue(user.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        user.Identity(),
	})
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if authHeader == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}

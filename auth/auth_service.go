// Package auth orchestrates the client-side authentication session: the
// one-time startup sequence that re-establishes a session from the
// server-managed refresh cookie, and the login, logout, and password
// operations that mutate it afterwards. All state lives in the session
// store; all I/O goes through the request gateway.
package auth

import (
	"context"
	"net/http"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-client/apierror"
	"github.com/jrsteele09/go-auth-client/gateway"
	"github.com/jrsteele09/go-auth-client/session"
	"github.com/jrsteele09/go-auth-client/users"
)

// ServiceUnavailableMessage is the user-facing message installed when
// startup fails for any reason other than an expected missing session.
const ServiceUnavailableMessage = "Authentication service unavailable. Please try again."

// Service coordinates session lifecycle operations.
type Service struct {
	store *session.Store
	gw    *gateway.Gateway
	users *users.Service

	initOnce sync.Once
}

// NewService creates the session service.
func NewService(store *session.Store, gw *gateway.Gateway, userService *users.Service) (*Service, error) {
	if store == nil {
		return nil, errors.New("[NewService] session store is required")
	}
	if gw == nil {
		return nil, errors.New("[NewService] gateway is required")
	}
	if userService == nil {
		return nil, errors.New("[NewService] user service is required")
	}
	return &Service{
		store: store,
		gw:    gw,
		users: userService,
	}, nil
}

// Initialize runs the one-time startup sequence: renew the access token
// from the refresh cookie, fetch the principal, and mark the store
// initialized. It is safe to call from any number of goroutines; the
// sequence runs once and later callers return after it has completed.
//
// Initialize never returns an error: startup failures are absorbed into
// the session state. An expected "not logged in" outcome leaves the store
// clean and uninitialized-error-free; anything else installs a user-facing
// initialization error.
func (s *Service) Initialize(ctx context.Context) {
	s.initOnce.Do(func() {
		s.initialize(ctx)
	})
	<-s.store.Initialized()
}

func (s *Service) initialize(ctx context.Context) {
	// Readiness must flip exactly once, on every path out of this
	// function, panics included.
	defer s.store.SetInitialized()

	log.Debug().Msg("initializing authentication")

	if err := s.gw.Coordinator().Refresh(ctx); err != nil {
		log.Debug().Err(err).Msg("authentication initialization failed")
		s.finishFailedInit(err)
		return
	}

	principal, err := s.users.Current(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("principal fetch failed during initialization")
		s.finishFailedInit(err)
		return
	}

	// Re-read the token rather than holding one across the fetch.
	s.store.SetAuthenticatedUser(principal, s.store.AccessToken())
	log.Debug().Str("email", principal.Email).Msg("authentication initialized")
}

// finishFailedInit clears any partial state and classifies the failure: a
// 401 means no session exists, which is an expected outcome and stays
// silent; anything else is a service failure surfaced to the user.
func (s *Service) finishFailedInit(err error) {
	s.store.ClearAuth()
	if apierror.StatusOf(err) != http.StatusUnauthorized {
		s.store.SetInitializationError(ServiceUnavailableMessage)
	}
}

// LoginRequest is the login call payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult carries the authenticated principal and the server's
// success message.
type LoginResult struct {
	Principal *session.Principal
	Message   string
}

// Login authenticates with email and password and installs the resulting
// session. The server sets the refresh cookie on success.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, MissingCredentialsErr
	}
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	var data struct {
		AccessToken string             `json:"accessToken"`
		User        *session.Principal `json:"user"`
	}
	env, err := s.gw.Post(ctx, "/auth/login", LoginRequest{Email: email, Password: password}, &data)
	if err != nil {
		return nil, err
	}
	if data.AccessToken == "" || data.User == nil {
		return nil, errors.New("[Service.Login] malformed login response")
	}

	s.store.SetAuthenticatedUser(data.User, data.AccessToken)
	log.Debug().Str("email", data.User.Email).Msg("login succeeded")

	return &LoginResult{Principal: data.User, Message: env.Message}, nil
}

// Logout ends the session server-side and clears local state. Local state
// is cleared even when the call fails: a logout that cannot reach the
// server still leaves the process unauthenticated.
func (s *Service) Logout(ctx context.Context) error {
	defer s.store.ClearAuth()

	if _, err := s.gw.Post(ctx, "/auth/logout", nil, nil); err != nil {
		log.Warn().Err(err).Msg("logout call failed, clearing local session anyway")
		return err
	}
	return nil
}

// ChangePasswordRequest is the change-password call payload.
type ChangePasswordRequest struct {
	CurrentPassword    string `json:"currentPassword"`
	NewPassword        string `json:"newPassword"`
	ConfirmNewPassword string `json:"confirmNewPassword"`
}

// ChangePassword validates and submits a password change for the
// authenticated principal.
func (s *Service) ChangePassword(ctx context.Context, currentPassword, newPassword, confirmNewPassword string) (string, error) {
	if !s.store.IsAuthenticated() {
		return "", NotAuthenticatedErr
	}
	if err := ValidatePasswordChange(currentPassword, newPassword, confirmNewPassword); err != nil {
		return "", err
	}

	env, err := s.gw.Put(ctx, "/auth/change-password", ChangePasswordRequest{
		CurrentPassword:    currentPassword,
		NewPassword:        newPassword,
		ConfirmNewPassword: confirmNewPassword,
	}, nil)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

// Store exposes the underlying session store for read access and
// subscriptions.
func (s *Service) Store() *session.Store {
	return s.store
}

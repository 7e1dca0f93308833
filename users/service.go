// Package users provides the client surface for user endpoints.
package users

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-auth-client/gateway"
	"github.com/jrsteele09/go-auth-client/session"
)

// Service issues user API calls through the request gateway.
type Service struct {
	gw *gateway.Gateway
}

// New creates a user service.
func New(gw *gateway.Gateway) (*Service, error) {
	if gw == nil {
		return nil, errors.New("[users.New] gateway is required")
	}
	return &Service{gw: gw}, nil
}

// Current fetches the authenticated principal (GET /users/me).
func (s *Service) Current(ctx context.Context) (*session.Principal, error) {
	var data struct {
		User *session.Principal `json:"user"`
	}
	if _, err := s.gw.Get(ctx, "/users/me", &data); err != nil {
		return nil, err
	}
	if data.User == nil {
		return nil, errors.New("[Service.Current] response carried no user")
	}
	return data.User, nil
}

// List fetches a page of users (GET /users). Pagination metadata is
// returned alongside when the server provides it.
func (s *Service) List(ctx context.Context, page, limit int) ([]session.Principal, *gateway.Pagination, error) {
	path := "/users"
	if page > 0 {
		path = fmt.Sprintf("/users?page=%d&limit=%d", page, limit)
	}

	var data struct {
		Users []session.Principal `json:"users"`
	}
	env, err := s.gw.Get(ctx, path, &data)
	if err != nil {
		return nil, nil, err
	}

	var pagination *gateway.Pagination
	if env.Meta != nil {
		pagination = env.Meta.Pagination
	}
	return data.Users, pagination, nil
}

// Package account talks to the authentication endpoints. It is the only writer
// of the stored access token.
package account

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/example/viewlulu/internal/auth"
	"github.com/example/viewlulu/internal/cosmetic"
	"github.com/example/viewlulu/internal/logging"
)

const (
	LoginPath    = "/auth/login"
	RegisterPath = "/auth/register"
)

var (
	// ErrCredentialsRequired is returned before any request when email or password is blank.
	ErrCredentialsRequired = errors.New("email and password are required")
	// ErrTokenNotIssued is returned when a login succeeds without a token in the reply.
	ErrTokenNotIssued = errors.New("login response carried no token")
)

// Transport is the JSON subset of upload.Client the auth endpoints need.
// Auth requests carry no bearer token, so the transport is built without a store.
type Transport interface {
	PostJSON(ctx context.Context, path string, in, out any) error
}

// RegisterRequest is the sign-up payload.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Age      int    `json:"age"`
	Gender   string `json:"gender"`
}

// Session is a successful login.
type Session struct {
	Token string        `json:"token"`
	User  cosmetic.User `json:"user"`
}

// Client performs login, sign-up and logout.
type Client struct {
	transport Transport
	tokens    auth.TokenStore
	logger    *zap.Logger
}

func NewClient(transport Transport, tokens auth.TokenStore, logger *zap.Logger) *Client {
	return &Client{
		transport: transport,
		tokens:    tokens,
		logger:    logging.OrNop(logger).Named("account"),
	}
}

// Login exchanges credentials for a token and persists it.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return Session{}, ErrCredentialsRequired
	}
	logger := c.logger.With(zap.String("email", email))

	var session Session
	payload := map[string]string{"email": email, "password": password}
	if err := c.transport.PostJSON(ctx, LoginPath, payload, &session); err != nil {
		logger.Warn("login failed", zap.Error(err))
		return Session{}, err
	}
	session.Token = strings.TrimSpace(session.Token)
	if session.Token == "" {
		logger.Error("login response carried no token")
		return Session{}, ErrTokenNotIssued
	}
	if err := c.tokens.SetToken(ctx, session.Token); err != nil {
		logger.Error("failed to store auth token", zap.Error(err))
		return Session{}, err
	}

	logger.Info("logged in", zap.String("user_id", session.User.ID.String()))
	return session, nil
}

// Register creates an account. It does not log the user in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (cosmetic.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return cosmetic.User{}, ErrCredentialsRequired
	}

	var user cosmetic.User
	if err := c.transport.PostJSON(ctx, RegisterPath, req, &user); err != nil {
		c.logger.Warn("sign-up failed", zap.String("email", req.Email), zap.Error(err))
		return cosmetic.User{}, err
	}
	c.logger.Info("signed up", zap.String("user_id", user.ID.String()))
	return user, nil
}

// Logout forgets the stored token.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.tokens.Clear(ctx); err != nil {
		c.logger.Error("failed to clear auth token", zap.Error(err))
		return err
	}
	c.logger.Info("logged out")
	return nil
}

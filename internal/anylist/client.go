// Package anylist writes extracted recipes to the AnyList service.
package anylist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/recipeclip/recipeclip/internal/logger"
	"github.com/recipeclip/recipeclip/internal/recipe"
)

// AuthError indicates the service rejected the session's credentials.
type AuthError struct {
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("anylist: authentication rejected (status %d)", e.StatusCode)
}

// Config holds AnyList credentials and endpoint settings.
type Config struct {
	Email    string
	Password string
	BaseURL  string
	Timeout  time.Duration
}

// CreateRequest carries one recipe write.
type CreateRequest struct {
	Recipe     *recipe.Recipe
	SourceURL  string
	SourceName string
	Photo      []byte
}

// Created identifies a stored recipe.
type Created struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// session is an authenticated handle. Sessions are immutable once created;
// auth failure replaces the whole session rather than mutating it.
type session struct {
	token string
}

// Client is a recipe sink backed by a lazily-established singleton session.
// Concurrent jobs share one session; detecting an auth failure swaps in a
// fresh one and retries the failing write exactly once.
type Client struct {
	config  Config
	http    *http.Client
	session atomic.Pointer[session]
	sfg     singleflight.Group
}

// NewClient creates a Client. No network call happens until the first write.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.anylist.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		config: cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
	}
}

// CreateRecipe stores one recipe. An auth failure resets the shared session
// and retries the write once; a second auth failure propagates.
func (c *Client) CreateRecipe(ctx context.Context, req CreateRequest) (Created, error) {
	sess, err := c.currentSession(ctx)
	if err != nil {
		return Created{}, err
	}

	created, err := c.postRecipe(ctx, sess, req)
	var authErr *AuthError
	if err == nil || !errors.As(err, &authErr) {
		return created, err
	}

	logger.Warn("anylist session rejected, re-authenticating", "status", authErr.StatusCode)
	fresh, err := c.resetSession(ctx, sess)
	if err != nil {
		return Created{}, err
	}
	return c.postRecipe(ctx, fresh, req)
}

// currentSession returns the shared session, establishing it on first use.
// Concurrent first callers collapse into a single login via singleflight.
func (c *Client) currentSession(ctx context.Context) (*session, error) {
	if sess := c.session.Load(); sess != nil {
		return sess, nil
	}
	return c.establish(ctx)
}

// resetSession replaces a rejected session. Only the first of any concurrent
// resetters performs the swap; a session already replaced by another job is
// reused as-is.
func (c *Client) resetSession(ctx context.Context, rejected *session) (*session, error) {
	if sess := c.session.Load(); sess != nil && sess != rejected {
		return sess, nil
	}
	c.session.CompareAndSwap(rejected, nil)
	return c.establish(ctx)
}

func (c *Client) establish(ctx context.Context) (*session, error) {
	v, err, _ := c.sfg.Do("login", func() (any, error) {
		if sess := c.session.Load(); sess != nil {
			return sess, nil
		}
		sess, err := c.login(ctx)
		if err != nil {
			return nil, err
		}
		c.session.Store(sess)
		logger.Debug("anylist session established")
		return sess, nil
	})
	if err != nil {
		return nil, fmt.Errorf("anylist login: %w", err)
	}
	return v.(*session), nil
}

func (c *Client) login(ctx context.Context) (*session, error) {
	body, err := json.Marshal(map[string]string{
		"email":    c.config.Email,
		"password": c.config.Password,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("login returned status %d", resp.StatusCode)
	}

	var loginResp struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return nil, fmt.Errorf("decoding login response: %w", err)
	}
	if loginResp.Token == "" {
		return nil, fmt.Errorf("login response missing token")
	}
	return &session{token: loginResp.Token}, nil
}

type recipePayload struct {
	Name        string              `json:"name"`
	Servings    string              `json:"servings,omitempty"`
	PrepTime    int                 `json:"prepTime,omitempty"`
	CookTime    int                 `json:"cookTime,omitempty"`
	Ingredients []recipe.Ingredient `json:"ingredients"`
	Steps       []string            `json:"steps"`
	Notes       string              `json:"notes,omitempty"`
	SourceURL   string              `json:"sourceUrl,omitempty"`
	SourceName  string              `json:"sourceName,omitempty"`
	Photo       []byte              `json:"photo,omitempty"`
}

func (c *Client) postRecipe(ctx context.Context, sess *session, req CreateRequest) (Created, error) {
	// Known upstream defect: the service persists prepTime and cookTime as
	// zero regardless of what is sent. The correct values are still sent
	// here and remain intact in the Recipe model.
	payload := recipePayload{
		Name:        req.Recipe.Name,
		Servings:    req.Recipe.Servings,
		PrepTime:    req.Recipe.PrepTime,
		CookTime:    req.Recipe.CookTime,
		Ingredients: req.Recipe.Ingredients,
		Steps:       req.Recipe.Steps,
		Notes:       req.Recipe.Notes,
		SourceURL:   req.SourceURL,
		SourceName:  req.SourceName,
		Photo:       req.Photo,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Created{}, fmt.Errorf("encoding recipe: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/data/user-recipes", bytes.NewReader(body))
	if err != nil {
		return Created{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+sess.token)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Created{}, fmt.Errorf("anylist request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Created{}, &AuthError{StatusCode: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Created{}, fmt.Errorf("anylist returned status %d: %s", resp.StatusCode, respBody)
	}

	var created Created
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return Created{}, fmt.Errorf("decoding create response: %w", err)
	}
	return created, nil
}

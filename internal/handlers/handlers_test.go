package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gitdev-app/backend/internal/apperr"
	"github.com/gitdev-app/backend/internal/cache"
	"github.com/gitdev-app/backend/internal/models"
	"github.com/gitdev-app/backend/internal/repositories"
)

// emission is one captured realtime event.
type emission struct {
	Namespace string
	UserID    string
	Event     string
	Payload   any
}

type recordingHub struct {
	emitted []emission
}

func (r *recordingHub) Emit(namespace, event string, payload any) {
	r.emitted = append(r.emitted, emission{Namespace: namespace, Event: event, Payload: payload})
}

func (r *recordingHub) EmitToUser(namespace, userID, event string, payload any) {
	r.emitted = append(r.emitted, emission{Namespace: namespace, UserID: userID, Event: event, Payload: payload})
}

// enqueued is one captured job.
type enqueued struct {
	Name    string
	Payload any
}

type recordingQueue struct {
	jobs []enqueued
	err  error
}

func (r *recordingQueue) Enqueue(ctx context.Context, jobName string, payload any) error {
	if r.err != nil {
		return r.err
	}
	r.jobs = append(r.jobs, enqueued{Name: jobName, Payload: payload})
	return nil
}

// stubUserRepo answers reference lookups and fails everything else loudly.
type stubUserRepo struct {
	repositories.UserRepository
	refs map[primitive.ObjectID]*models.UserRef
}

func (s *stubUserRepo) GetUserRef(ctx context.Context, id primitive.ObjectID) (*models.UserRef, error) {
	if ref, ok := s.refs[id]; ok {
		return ref, nil
	}
	return nil, apperr.NotFound("UserNotFound", "user not found")
}

func (s *stubUserRepo) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.Validation("invalid user ID format")
	}
	if _, ok := s.refs[objID]; ok {
		return &models.User{ID: objID}, nil
	}
	return nil, apperr.NotFound("UserNotFound", "user not found")
}

type stubAuthRepo struct {
	repositories.AuthRepository
	usernames map[string]string
}

func (s *stubAuthRepo) GetAuthUserByUserID(userID string) (*models.AuthUser, error) {
	if username, ok := s.usernames[userID]; ok {
		return &models.AuthUser{Username: username, UserID: userID}, nil
	}
	return nil, apperr.NotFound("UserNotFound", "user not found")
}

type testEnv struct {
	client *cache.Client
	redis  *miniredis.Miniredis
	hub    *recordingHub
	jobs   *recordingQueue
	lookup *repositories.UserLookup
	users  *stubUserRepo
	userID primitive.ObjectID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rdb.Close() })

	userID := primitive.NewObjectID()
	users := &stubUserRepo{refs: map[primitive.ObjectID]*models.UserRef{
		userID: {ID: userID, Avatar: "https://cdn/me.png"},
	}}
	auth := &stubAuthRepo{usernames: map[string]string{userID.Hex(): "alice"}}

	client := cache.New(rdb, zerolog.Nop())
	return &testEnv{
		client: client,
		redis:  s,
		hub:    &recordingHub{},
		jobs:   &recordingQueue{},
		lookup: repositories.NewUserLookup(cache.NewUserCache(client), users, auth, zerolog.Nop()),
		users:  users,
		userID: userID,
	}
}

func (env *testEnv) claims() *models.JwtCustomClaims {
	return &models.JwtCustomClaims{
		UserID:   env.userID.Hex(),
		Username: "alice",
		RedisID:  1,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: env.userID.Hex(),
		},
	}
}

// request builds an authenticated echo context around a JSON body.
func (env *testEnv) request(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewRequestValidator()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user", env.claims())
	c.Set("userID", env.userID.Hex())
	return c, rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

func requireAPIError(t *testing.T, err error, status int) *apperr.ApiError {
	t.Helper()
	apiErr, ok := apperr.As(err)
	if !ok {
		t.Fatalf("expected ApiError, got %v", err)
	}
	if apiErr.Status != status {
		t.Fatalf("status = %d, want %d (%v)", apiErr.Status, status, apiErr)
	}
	return apiErr
}

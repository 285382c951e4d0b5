package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/fraudshield/server/internal/auth"
	"github.com/fraudshield/server/internal/delivery"
	httphandler "github.com/fraudshield/server/internal/http"
	"github.com/fraudshield/server/internal/http/handlers"
	"github.com/fraudshield/server/internal/model"
	"github.com/fraudshield/server/internal/otp"
	"github.com/fraudshield/server/internal/repo"
)

const testSecret = "test-jwt-secret-at-least-32-characters-long"

// fakeUserRepo is an in-memory credential store for wire-level tests
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, u repo.NewUser) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[u.Email]; exists {
		return model.User{}, repo.ErrDuplicateEmail
	}
	user := model.User{
		ID:                uuid.New(),
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		Email:             u.Email,
		PasswordHash:      u.PasswordHash,
		Role:              u.Role,
		PasswordChangedAt: time.Now(),
		CreatedAt:         time.Now(),
	}
	f.users[u.Email] = user
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[email]
	if !ok {
		return model.User{}, repo.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.ID == id {
			return user, nil
		}
	}
	return model.User{}, repo.ErrNotFound
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for email, user := range f.users {
		if user.ID == id {
			user.PasswordHash = passwordHash
			user.PasswordChangedAt = time.Now()
			f.users[email] = user
			return nil
		}
	}
	return repo.ErrNotFound
}

// fakeSender records deliveries and can be told to fail
type fakeSender struct {
	mu   sync.Mutex
	sent []string
	fail bool
}

func (f *fakeSender) Send(_ context.Context, contact, _ string, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("provider unavailable")
	}
	f.sent = append(f.sent, contact)
	return nil
}

func (f *fakeSender) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

func (f *fakeSender) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// testEnv wires the full router with in-memory fakes
type testEnv struct {
	Server *httptest.Server
	Users  *fakeUserRepo
	SMS    *fakeSender
	Email  *fakeSender
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := newFakeUserRepo()
	tokens := auth.NewTokenService(testSecret, 0, 0)
	authService := auth.NewAuthService(users, tokens)
	ledger := otp.NewLedger(otp.NewMemoryStore())

	sms := &fakeSender{}
	email := &fakeSender{}
	senders := map[string]delivery.Sender{
		otp.ChannelSMS:   sms,
		otp.ChannelEmail: email,
	}

	authHandler := handlers.NewAuthHandler(authService)
	otpHandler := handlers.NewOTPHandler(ledger, senders, true)

	router := httphandler.NewRouter(authHandler, otpHandler, tokens, users)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testEnv{Server: server, Users: users, SMS: sms, Email: email}
}

func (e *testEnv) postJSON(t *testing.T, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := e.Server.Client().Post(e.Server.URL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, data
}

func (e *testEnv) getJSON(t *testing.T, path, bearer string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.Server.URL+path, nil)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := e.Server.Client().Do(req)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, data
}

// errorResponse matches the uniform failure shape
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decodeError(t *testing.T, data []byte) errorResponse {
	t.Helper()
	var e errorResponse
	require.NoError(t, json.Unmarshal(data, &e))
	return e
}

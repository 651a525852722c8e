package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/identikit/identity-api/internal/api/handler"
	"github.com/identikit/identity-api/internal/api/middleware"
	"github.com/identikit/identity-api/internal/core/domain"
	"github.com/identikit/identity-api/internal/core/service"
)

// memUserRepo is an in-memory stand-in for the Mongo store. Create enforces
// email uniqueness the way the unique index does.
type memUserRepo struct {
	mu     sync.Mutex
	users  map[string]*domain.User
	nextID int
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*domain.User)}
}

func copyUser(u *domain.User) *domain.User {
	clone := *u
	clone.Roles = append([]string(nil), u.Roles...)
	return &clone
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
	}
	r.nextID++
	created := copyUser(user)
	created.ID = fmt.Sprintf("mem-%d", r.nextID)
	r.users[created.ID] = copyUser(created)
	return copyUser(created), nil
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return copyUser(u), nil
}

func (r *memUserRepo) List(_ context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *copyUser(u))
	}
	return out, nil
}

func (r *memUserRepo) AddRole(_ context.Context, userID, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Roles = append(u.Roles, role)
	return nil
}

func (r *memUserRepo) ClearRoles(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Roles = nil
	return nil
}

func (r *memUserRepo) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[userID]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.users, userID)
	return nil
}

type memRoleRepo struct {
	mu    sync.Mutex
	names map[string]struct{}
}

func newMemRoleRepo() *memRoleRepo {
	return &memRoleRepo{names: make(map[string]struct{})}
}

func (r *memRoleRepo) Ensure(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[name] = struct{}{}
	return nil
}

const testSecret = "integration-secret"

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(zerolog.Nop())

	issuer, err := service.NewTokenIssuer(testSecret, "identity-api", []string{"identity-clients"})
	if err != nil {
		t.Fatalf("token issuer: %v", err)
	}

	identity := service.NewIdentityService(newMemUserRepo(), newMemRoleRepo(), issuer)
	identityHandler := handler.NewIdentityHandler(identity)

	auth := middleware.Auth(middleware.AuthConfig{
		Secret:   testSecret,
		Issuer:   "identity-api",
		Audience: []string{"identity-clients"},
	})

	g := e.Group("/api/auth")
	g.POST("/register", identityHandler.Register)
	g.POST("/login", identityHandler.Login)
	g.GET("/debug", identityHandler.Debug, auth)
	g.GET("/detail", identityHandler.Detail, auth)
	g.GET("/users", identityHandler.Users)
	g.DELETE("/delete/:id", identityHandler.Delete, auth, middleware.RBAC(domain.RoleAdmin))

	return e
}

func doRequest(e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func registerAndLogin(t *testing.T, e *echo.Echo, email, password, fullName, role string) (userID, token string) {
	t.Helper()

	body := fmt.Sprintf(`{"email":%q,"password":%q,"fullName":%q,"role":%q}`, email, password, fullName, role)
	rec := doRequest(e, http.MethodPost, "/api/auth/register", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	var reg map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &reg); err != nil {
		t.Fatalf("invalid register body: %v", err)
	}

	rec = doRequest(e, http.MethodPost, "/api/auth/login",
		fmt.Sprintf(`{"email":%q,"password":%q}`, email, password), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	var login map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &login); err != nil {
		t.Fatalf("invalid login body: %v", err)
	}
	if login["token"] == "" {
		t.Fatalf("expected non-empty token")
	}

	return reg["userId"], login["token"]
}

func TestEndToEnd_RegisterLoginDetail(t *testing.T) {
	e := newTestServer(t)

	_, token := registerAndLogin(t, e, "a@x.com", "Passw0rd!", "Alice", "admin")

	rec := doRequest(e, http.MethodGet, "/api/auth/detail", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("detail failed: %d %s", rec.Code, rec.Body.String())
	}

	var detail map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("invalid detail body: %v", err)
	}
	if detail["email"] != "a@x.com" || detail["fullName"] != "Alice" || detail["rol"] != "admin" {
		t.Fatalf("unexpected detail: %+v", detail)
	}
}

func TestEndToEnd_DuplicateRegistration(t *testing.T) {
	e := newTestServer(t)

	body := `{"email":"dup@x.com","password":"Passw0rd!","fullName":"First","role":"user"}`
	if rec := doRequest(e, http.MethodPost, "/api/auth/register", body, ""); rec.Code != http.StatusOK {
		t.Fatalf("first register failed: %d", rec.Code)
	}

	rec := doRequest(e, http.MethodPost, "/api/auth/register",
		`{"email":"dup@x.com","password":"Other1234","fullName":"Second","role":"user"}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on duplicate email, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "user already exists") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestEndToEnd_LoginFailuresIndistinguishable(t *testing.T) {
	e := newTestServer(t)
	registerAndLogin(t, e, "known@x.com", "Passw0rd!", "Known", "user")

	wrongPass := doRequest(e, http.MethodPost, "/api/auth/login",
		`{"email":"known@x.com","password":"WrongPass1"}`, "")
	unknown := doRequest(e, http.MethodPost, "/api/auth/login",
		`{"email":"unknown@x.com","password":"WrongPass1"}`, "")

	if wrongPass.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", wrongPass.Code, unknown.Code)
	}
	if wrongPass.Body.String() != unknown.Body.String() {
		t.Fatalf("login failures must be indistinguishable: %s vs %s",
			wrongPass.Body.String(), unknown.Body.String())
	}
}

func TestEndToEnd_DebugDumpsClaims(t *testing.T) {
	e := newTestServer(t)
	userID, token := registerAndLogin(t, e, "dbg@x.com", "Passw0rd!", "Debug", "user")

	rec := doRequest(e, http.MethodGet, "/api/auth/debug", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("debug failed: %d %s", rec.Code, rec.Body.String())
	}

	var entries []map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("invalid debug body: %v", err)
	}

	found := map[string]string{}
	for _, entry := range entries {
		found[entry["type"]] = entry["value"]
	}
	if found["sub"] != userID || found["uid"] != userID {
		t.Fatalf("expected sub and uid claims for %q, got %+v", userID, found)
	}
	if found["email"] != "dbg@x.com" {
		t.Fatalf("expected email claim, got %+v", found)
	}
	if found["jti"] == "" {
		t.Fatalf("expected jti claim, got %+v", found)
	}
}

func TestEndToEnd_ProtectedRoutesRequireToken(t *testing.T) {
	e := newTestServer(t)

	for _, path := range []string{"/api/auth/detail", "/api/auth/debug"} {
		rec := doRequest(e, http.MethodGet, path, "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 without token, got %d", path, rec.Code)
		}
	}
}

func TestEndToEnd_UsersListUnauthenticated(t *testing.T) {
	e := newTestServer(t)
	registerAndLogin(t, e, "list@x.com", "Passw0rd!", "Lister", "user")

	rec := doRequest(e, http.MethodGet, "/api/auth/users", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("users failed: %d", rec.Code)
	}

	var users []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil {
		t.Fatalf("invalid users body: %v", err)
	}
	if len(users) != 1 || users[0]["email"] != "list@x.com" || users[0]["rol"] != "user" {
		t.Fatalf("unexpected users: %+v", users)
	}
}

func TestEndToEnd_DeleteRequiresAdmin(t *testing.T) {
	e := newTestServer(t)
	victimID, _ := registerAndLogin(t, e, "victim@x.com", "Passw0rd!", "Victim", "user")
	_, plainToken := registerAndLogin(t, e, "plain@x.com", "Passw0rd!", "Plain", "user")

	rec := doRequest(e, http.MethodDelete, "/api/auth/delete/"+victimID, "", plainToken)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", rec.Code)
	}
}

func TestEndToEnd_AdminDeletesUser(t *testing.T) {
	e := newTestServer(t)
	_, adminToken := registerAndLogin(t, e, "root@x.com", "Passw0rd!", "Root", "admin")
	victimID, victimToken := registerAndLogin(t, e, "gone@x.com", "Passw0rd!", "Gone", "user")

	rec := doRequest(e, http.MethodDelete, "/api/auth/delete/"+victimID, "", adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete failed: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"success":true`) {
		t.Fatalf("unexpected delete body: %s", rec.Body.String())
	}

	// The deleted user disappears from the listing.
	rec = doRequest(e, http.MethodGet, "/api/auth/users", "", "")
	if strings.Contains(rec.Body.String(), "gone@x.com") {
		t.Fatalf("deleted user still listed: %s", rec.Body.String())
	}

	// The deleted user's still-valid token no longer resolves.
	rec = doRequest(e, http.MethodGet, "/api/auth/detail", "", victimToken)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for deleted principal, got %d", rec.Code)
	}
}

func TestEndToEnd_DeleteUnknownID(t *testing.T) {
	e := newTestServer(t)
	_, adminToken := registerAndLogin(t, e, "admin2@x.com", "Passw0rd!", "Admin", "admin")

	rec := doRequest(e, http.MethodDelete, "/api/auth/delete/no-such-id", "", adminToken)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

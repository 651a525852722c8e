package handler

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/identikit/identity-api/internal/api/metrics"
	"github.com/identikit/identity-api/internal/core/domain"
	"github.com/identikit/identity-api/internal/core/ports"
)

type IdentityHandler struct {
	identity ports.IdentityService
}

func NewIdentityHandler(identity ports.IdentityService) *IdentityHandler {
	return &IdentityHandler{identity: identity}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"fullName" validate:"required"`
	Role     string `json:"role" validate:"required"`
}

type registerResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type claimEntry struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type profileResponse struct {
	Email    string  `json:"email"`
	FullName string  `json:"fullName"`
	Rol      *string `json:"rol"`
}

type userResponse struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	FullName string  `json:"fullName"`
	Rol      *string `json:"rol"`
}

type deleteResponse struct {
	Success bool `json:"success"`
}

// Register creates a new user account and assigns its role.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      200   {object}  registerResponse
// @Failure      400   {object}  map[string]string
// @Router       /api/auth/register [post]
func (h *IdentityHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.identity.Register(c.Request().Context(), req.Email, req.Password, req.FullName, req.Role)
	if err != nil {
		return err
	}

	metrics.RegistrationsTotal.Inc()
	return c.JSON(http.StatusOK, registerResponse{
		Message: "user created successfully",
		UserID:  user.ID,
	})
}

// Login authenticates a user and returns a signed bearer token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  tokenResponse
// @Failure      401   {object}  map[string]string
// @Router       /api/auth/login [post]
func (h *IdentityHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	token, err := h.identity.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		return err
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	metrics.TokensIssuedTotal.Inc()
	return c.JSON(http.StatusOK, tokenResponse{Token: token})
}

// Debug returns the caller's token claims as type/value pairs.
//
// @Summary      Dump token claims
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  claimEntry
// @Router       /api/auth/debug [get]
func (h *IdentityHandler) Debug(c echo.Context) error {
	_, claims, err := ctxClaims(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, claimEntries(claims))
}

// Detail returns the authenticated caller's profile. The identity comes
// from the token subject, never from a client-supplied id.
//
// @Summary      Current user detail
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  profileResponse
// @Failure      404  {object}  map[string]any
// @Router       /api/auth/detail [get]
func (h *IdentityHandler) Detail(c echo.Context) error {
	userID, claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	user, err := h.identity.Profile(c.Request().Context(), userID)
	if err != nil {
		// Claim dump aids diagnosing tokens whose subject no longer
		// resolves to a stored account.
		return c.JSON(http.StatusNotFound, map[string]any{
			"error":  "user not found",
			"claims": claimEntries(claims),
		})
	}

	return c.JSON(http.StatusOK, profileResponse{
		Email:    user.Email,
		FullName: user.FullName,
		Rol:      primaryRole(user),
	})
}

// Users lists every registered user.
//
// @Summary      List users
// @Tags         auth
// @Produce      json
// @Success      200  {array}  userResponse
// @Router       /api/auth/users [get]
func (h *IdentityHandler) Users(c echo.Context) error {
	users, err := h.identity.List(c.Request().Context())
	if err != nil {
		return err
	}

	out := make([]userResponse, 0, len(users))
	for i := range users {
		u := &users[i]
		out = append(out, userResponse{
			ID:       u.ID,
			Email:    u.Email,
			FullName: u.FullName,
			Rol:      primaryRole(u),
		})
	}
	return c.JSON(http.StatusOK, out)
}

// Delete removes a user's role associations and the user record.
//
// @Summary      Delete a user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  deleteResponse
// @Failure      404  {object}  map[string]string
// @Router       /api/auth/delete/{id} [delete]
func (h *IdentityHandler) Delete(c echo.Context) error {
	id := c.Param("id")
	if err := h.identity.Delete(c.Request().Context(), id); err != nil {
		return err
	}

	metrics.UsersDeletedTotal.Inc()
	return c.JSON(http.StatusOK, deleteResponse{Success: true})
}

// claimEntries flattens a claim map into sorted type/value pairs.
func claimEntries(claims jwt.MapClaims) []claimEntry {
	keys := make([]string, 0, len(claims))
	for k := range claims {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]claimEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, claimEntry{Type: k, Value: fmt.Sprint(claims[k])})
	}
	return entries
}

// primaryRole surfaces the user's first role, or null when none assigned.
func primaryRole(u *domain.User) *string {
	if role := u.PrimaryRole(); role != "" {
		return &role
	}
	return nil
}

package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/copperkettle/tasklist/internal/tasks/domain"
	"github.com/copperkettle/tasklist/internal/tasks/service"
	"github.com/copperkettle/tasklist/internal/tasks/store"
	"github.com/copperkettle/tasklist/pkg/httpx"
	"github.com/copperkettle/tasklist/pkg/idx"
	"github.com/copperkettle/tasklist/pkg/slogx"
)

const refreshCookieName = "refresh_token"

// AuthHandler serves the /auth endpoints: register, login, me, refresh and
// logout.
type AuthHandler struct {
	Auth   *service.AuthService
	Tokens *service.TokenService

	// CookieSecure sets the Secure attribute on the refresh cookie; enabled
	// in production where the service sits behind HTTPS.
	CookieSecure bool
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:        u.ID.String(),
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
	}
}

// tokenResponse is the login/refresh payload. The refresh token rides both
// here (convenient for non-browser clients) and in the httpOnly cookie.
type tokenResponse struct {
	TokenType        string        `json:"token_type"`
	AccessToken      string        `json:"access_token"`
	ExpiresIn        int           `json:"expires_in"`
	RefreshToken     string        `json:"refresh_token"`
	RefreshExpiresAt time.Time     `json:"refresh_expires_at"`
	User             *userResponse `json:"user,omitempty"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (req *credentialsRequest) validate(requireName bool) map[string]string {
	details := map[string]string{}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		details["email"] = "email is required"
	} else if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Address != req.Email {
		details["email"] = "invalid email address"
	}

	if len(req.Password) < 8 {
		details["password"] = "password must be at least 8 characters"
	}

	req.Name = strings.TrimSpace(req.Name)
	if requireName && len(req.Name) > 60 {
		details["name"] = "name must be at most 60 characters"
	}

	if len(details) == 0 {
		return nil
	}
	return details
}

// HandleRegister serves POST /auth/register.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, map[string]string{"body": "invalid JSON body"})
		return
	}
	if details := req.validate(true); details != nil {
		writeValidationError(w, details)
		return
	}

	u, err := h.Auth.Register(ctx, req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			writeError(w, http.StatusConflict, codeEmailAlreadyUsed)
			return
		}
		writeInternalError(ctx, w, "register failed", err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toUserResponse(u))
}

// HandleLogin serves POST /auth/login.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, map[string]string{"body": "invalid JSON body"})
		return
	}
	if details := req.validate(false); details != nil {
		writeValidationError(w, details)
		return
	}

	u, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, codeInvalidCredentials)
			return
		}
		writeInternalError(ctx, w, "login failed", err)
		return
	}

	accessToken, err := h.Tokens.SignAccessToken(u.ID)
	if err != nil {
		writeInternalError(ctx, w, "access token signing failed", err)
		return
	}

	issued, err := h.Tokens.IssueRefresh(ctx, u.ID, clientMeta(r))
	if err != nil {
		writeInternalError(ctx, w, "refresh issuance failed", err)
		return
	}

	h.setRefreshCookie(w, issued)

	user := toUserResponse(u)
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, tokenResponse{
		TokenType:        "Bearer",
		AccessToken:      accessToken,
		ExpiresIn:        int(h.Tokens.AccessTTL.Seconds()),
		RefreshToken:     issued.Token,
		RefreshExpiresAt: issued.ExpiresAt,
		User:             &user,
	})
}

// HandleMe serves GET /auth/me.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := authenticatedUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized)
		return
	}

	u, err := h.Auth.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, codeNotFound)
			return
		}
		writeInternalError(ctx, w, "user lookup failed", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

// HandleRefresh serves POST /auth/refresh. The presented token is accepted
// from the cookie, the JSON body, or the x-refresh-token header, in that
// order.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	provided := h.presentedRefreshToken(r)
	if provided == "" {
		writeError(w, http.StatusBadRequest, codeMissingRefreshToken)
		return
	}

	userID, oldJTI, err := h.Tokens.ParseRefresh(provided)
	if err != nil {
		writeError(w, http.StatusUnauthorized, codeInvalidOrExpired)
		return
	}
	if oldJTI == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRefreshToken)
		return
	}

	valid, err := h.Tokens.IsValidRefresh(ctx, oldJTI, userID)
	if err != nil {
		writeInternalError(ctx, w, "refresh lookup failed", err)
		return
	}
	if !valid {
		writeError(w, http.StatusUnauthorized, codeRefreshRevoked)
		return
	}

	issued, err := h.Tokens.RotateRefresh(ctx, oldJTI, userID, clientMeta(r))
	if err != nil {
		// A concurrent rotation of the same token beat us to the revoke.
		if errors.Is(err, service.ErrRefreshRevoked) {
			log.Warn("refresh token reuse detected", "jti", oldJTI)
			writeError(w, http.StatusUnauthorized, codeRefreshRevoked)
			return
		}
		writeInternalError(ctx, w, "refresh rotation failed", err)
		return
	}

	accessToken, err := h.Tokens.SignAccessToken(userID)
	if err != nil {
		writeInternalError(ctx, w, "access token signing failed", err)
		return
	}

	h.setRefreshCookie(w, issued)

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, tokenResponse{
		TokenType:        "Bearer",
		AccessToken:      accessToken,
		ExpiresIn:        int(h.Tokens.AccessTTL.Seconds()),
		RefreshToken:     issued.Token,
		RefreshExpiresAt: issued.ExpiresAt,
	})
}

// HandleLogout serves POST /auth/logout. Revokes every refresh token the
// user has; the access token used for this call stays valid until its own
// expiry.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := authenticatedUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized)
		return
	}

	if err := h.Tokens.RevokeAllUserRefreshTokens(ctx, userID); err != nil {
		writeInternalError(ctx, w, "logout revocation failed", err)
		return
	}

	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) presentedRefreshToken(r *http.Request) string {
	if c, err := r.Cookie(refreshCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.RefreshToken != "" {
		return body.RefreshToken
	}
	return r.Header.Get("x-refresh-token")
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, issued domain.IssuedRefresh) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    issued.Token,
		Path:     "/auth",
		Expires:  issued.ExpiresAt,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// authenticatedUserID pulls the gate-injected user id out of the request
// context.
func authenticatedUserID(r *http.Request) (idx.ID, bool) {
	raw, ok := httpx.UserIDFromContext(r.Context())
	if !ok {
		return idx.Zero, false
	}
	id, err := idx.Parse(raw)
	if err != nil {
		return idx.Zero, false
	}
	return id, true
}

func clientMeta(r *http.Request) domain.ClientMeta {
	return domain.ClientMeta{
		UserAgent: r.UserAgent(),
		IP:        httpx.IPKeyExtractor(r),
	}
}

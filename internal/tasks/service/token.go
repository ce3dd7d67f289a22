package service

import (
	"context"
	"errors"
	"time"

	"github.com/copperkettle/tasklist/internal/tasks/domain"
	"github.com/copperkettle/tasklist/internal/tasks/store"
	"github.com/copperkettle/tasklist/pkg/idx"
	"github.com/copperkettle/tasklist/pkg/jwtx"
)

var (
	// ErrInvalidRefresh covers refresh tokens that fail cryptographic
	// verification or carry unusable claims.
	ErrInvalidRefresh = errors.New("invalid_refresh_token")

	// ErrRefreshRevoked covers ledger-level rejection: the jti was already
	// rotated, revoked by logout, or has passed its expiry. Presenting an
	// already-rotated token lands here, which is the replay defence.
	ErrRefreshRevoked = errors.New("refresh_token_revoked_or_expired")
)

// TokenService mints, rotates and revokes tokens. Access tokens are
// stateless HS256 JWTs; refresh tokens are JWTs too but every one of them is
// tracked in the ledger by jti.
type TokenService struct {
	Store store.Store

	AccessSigner    jwtx.Signer
	RefreshSigner   jwtx.Signer
	RefreshVerifier jwtx.Verifier

	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// SignAccessToken mints a short-lived access token for the user. Pure apart
// from reading the clock; nothing is persisted.
func (s *TokenService) SignAccessToken(userID idx.ID) (string, error) {
	claims := jwtx.NewAccessClaims(userID.String(), s.AccessTTL, time.Now().UTC())
	return s.AccessSigner.Sign(claims)
}

// IssueRefresh mints a refresh token with a fresh jti and records it in the
// ledger. Used on login and as the second half of rotation.
func (s *TokenService) IssueRefresh(
	ctx context.Context,
	userID idx.ID,
	meta domain.ClientMeta,
) (domain.IssuedRefresh, error) {
	issued, row, err := s.buildRefresh(userID, meta)
	if err != nil {
		return domain.IssuedRefresh{}, err
	}
	if err := s.Store.RefreshTokens().CreateRefreshToken(ctx, row); err != nil {
		return domain.IssuedRefresh{}, err
	}
	return issued, nil
}

// RotateRefresh retires oldJTI and issues its successor in one transaction.
// The revoke is conditional on the row still being active; zero rows hit
// means the token was already rotated or revoked, and rotation aborts with
// ErrRefreshRevoked instead of minting a second successor. Under concurrent
// presentation of the same token exactly one caller wins.
func (s *TokenService) RotateRefresh(
	ctx context.Context,
	oldJTI string,
	userID idx.ID,
	meta domain.ClientMeta,
) (domain.IssuedRefresh, error) {
	issued, row, err := s.buildRefresh(userID, meta)
	if err != nil {
		return domain.IssuedRefresh{}, err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		revoked, err := tx.RefreshTokens().RevokeRefreshToken(ctx, oldJTI, userID)
		if err != nil {
			return err
		}
		if !revoked {
			return ErrRefreshRevoked
		}
		return tx.RefreshTokens().CreateRefreshToken(ctx, row)
	})
	if err != nil {
		return domain.IssuedRefresh{}, err
	}
	return issued, nil
}

// RevokeAllUserRefreshTokens cuts every active refresh chain the user has.
// Idempotent. Access tokens already in flight stay valid until their natural
// expiry; that is the accepted cost of keeping them stateless.
func (s *TokenService) RevokeAllUserRefreshTokens(ctx context.Context, userID idx.ID) error {
	return s.Store.RefreshTokens().RevokeAllUserRefreshTokens(ctx, userID)
}

// ParseRefresh verifies a presented refresh token string and extracts the
// subject and jti. Ledger state is not consulted here; see IsValidRefresh.
func (s *TokenService) ParseRefresh(raw string) (idx.ID, string, error) {
	claims, err := s.RefreshVerifier.Verify(raw)
	if err != nil {
		return idx.Zero, "", ErrInvalidRefresh
	}
	userID, err := idx.Parse(claims.Subject)
	if err != nil {
		return idx.Zero, "", ErrInvalidRefresh
	}
	return userID, claims.ID, nil
}

// IsValidRefresh reports whether the ledger row for {jti, userID} exists, is
// not revoked and has not expired. Read-only; no side effects.
func (s *TokenService) IsValidRefresh(ctx context.Context, jti string, userID idx.ID) (bool, error) {
	rt, err := s.Store.RefreshTokens().GetRefreshToken(ctx, jti, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return !rt.IsRevoked && time.Now().UTC().Before(rt.ExpiresAt), nil
}

// buildRefresh signs a new refresh token and prepares its ledger row.
// Signing is pure, so this can happen before any transaction opens.
func (s *TokenService) buildRefresh(
	userID idx.ID,
	meta domain.ClientMeta,
) (domain.IssuedRefresh, domain.RefreshToken, error) {
	now := time.Now().UTC()
	jti := jwtx.NewJTI()
	expiresAt := now.Add(s.RefreshTTL)

	token, err := s.RefreshSigner.Sign(jwtx.NewRefreshClaims(userID.String(), jti, s.RefreshTTL, now))
	if err != nil {
		return domain.IssuedRefresh{}, domain.RefreshToken{}, err
	}

	row := domain.RefreshToken{
		JTI:       jti,
		Token:     token,
		UserID:    userID,
		UserAgent: meta.UserAgent,
		IP:        meta.IP,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	issued := domain.IssuedRefresh{Token: token, JTI: jti, ExpiresAt: expiresAt}
	return issued, row, nil
}

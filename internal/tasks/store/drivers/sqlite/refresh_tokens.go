package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/copperkettle/tasklist/internal/tasks/domain"
	"github.com/copperkettle/tasklist/pkg/idx"
)

type refreshTokensRepo struct {
	q querier
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO refresh_tokens (jti, token, user_id, user_agent, ip, is_revoked, revoked_at, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.JTI, t.Token, t.UserID.String(), t.UserAgent, t.IP,
		t.IsRevoked, mapOptionalTime(t.RevokedAt), t.ExpiresAt, t.CreatedAt,
	)
	return err
}

func (r *refreshTokensRepo) GetRefreshToken(
	ctx context.Context,
	jti string,
	userID idx.ID,
) (domain.RefreshToken, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT jti, token, user_id, user_agent, ip, is_revoked, revoked_at, expires_at, created_at
		FROM refresh_tokens WHERE jti = ? AND user_id = ?`,
		jti, userID.String(),
	)

	var t domain.RefreshToken
	var uid string
	var revokedAt sql.NullTime
	err := row.Scan(
		&t.JTI, &t.Token, &uid, &t.UserAgent, &t.IP,
		&t.IsRevoked, &revokedAt, &t.ExpiresAt, &t.CreatedAt,
	)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	t.UserID = idx.ID(uid)
	t.RevokedAt = mapNullTimePtr(revokedAt)
	return t, nil
}

// RevokeRefreshToken is the conditional update rotation relies on: under
// concurrent use of the same jti only one caller sees a row flip, so a race
// never yields two valid successor tokens.
func (r *refreshTokensRepo) RevokeRefreshToken(
	ctx context.Context,
	jti string,
	userID idx.ID,
) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE refresh_tokens SET is_revoked = 1, revoked_at = ?
		WHERE jti = ? AND user_id = ? AND is_revoked = 0`,
		time.Now().UTC(), jti, userID.String(),
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *refreshTokensRepo) RevokeAllUserRefreshTokens(ctx context.Context, userID idx.ID) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE refresh_tokens SET is_revoked = 1, revoked_at = ?
		WHERE user_id = ? AND is_revoked = 0`,
		time.Now().UTC(), userID.String(),
	)
	return err
}

package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gobuffalo/nulls"
	"github.com/gobuffalo/pop/v6"
	"github.com/gobuffalo/validate/v3"
	"github.com/gofrs/uuid"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/domain"
)

const accessTokenLifetime = time.Hour * 12

type UserAccessTokens []UserAccessToken

// UserAccessToken holds a hashed bearer token. The cleartext only exists in
// the response that hands it to the client.
type UserAccessToken struct {
	ID          uuid.UUID  `db:"id"`
	UserID      uuid.UUID  `db:"user_id" validate:"required"`
	AccessToken string     `db:"-"`
	TokenHash   string     `db:"access_token" validate:"required"`
	ExpiresAt   time.Time  `db:"expires_at" validate:"required"`
	LastUsedAt  nulls.Time `db:"last_used_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

func (u *UserAccessToken) Validate(tx *pop.Connection) (*validate.Errors, error) {
	return validateModel(u), nil
}

// HashAccessToken returns the stored form of a cleartext token
func HashAccessToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// CreateAccessToken issues a fresh token for the user
func (u *User) CreateAccessToken(tx *pop.Connection) (UserAccessToken, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return UserAccessToken{}, api.NewAppError(err, api.ErrorCreatingAccessToken, api.CategoryInternal)
	}
	token := hex.EncodeToString(raw)

	uat := UserAccessToken{
		UserID:      u.ID,
		AccessToken: token,
		TokenHash:   HashAccessToken(token),
		ExpiresAt:   time.Now().UTC().Add(accessTokenLifetime),
	}
	if err := create(tx, &uat); err != nil {
		return UserAccessToken{}, err
	}
	return uat, nil
}

// FindByBearerToken looks up the hashed form of the presented token
func (u *UserAccessToken) FindByBearerToken(tx *pop.Connection, token string) error {
	err := tx.Where("access_token = ?", HashAccessToken(token)).First(u)
	if err != nil {
		if domain.IsOtherThanNoRows(err) {
			return appErrorFromDB(err, api.ErrorQueryFailure)
		}
		return api.NewAppError(fmt.Errorf("access token not found"),
			api.ErrorFindingAccessToken, api.CategoryUnauthorized)
	}
	return nil
}

// DeleteIfExpired removes the token when past its expiry and reports whether
// it did so.
func (u *UserAccessToken) DeleteIfExpired(tx *pop.Connection) (bool, error) {
	if u.ExpiresAt.After(time.Now().UTC()) {
		return false, nil
	}
	if err := destroy(tx, u); err != nil {
		return true, err
	}
	return true, nil
}

// GetUser loads the token's owner
func (u *UserAccessToken) GetUser(tx *pop.Connection) (User, error) {
	var user User
	if err := user.FindByID(tx, u.UserID); err != nil {
		return User{}, err
	}
	return user, nil
}

// Bump refreshes the last-used stamp
func (u *UserAccessToken) Bump(tx *pop.Connection) error {
	u.LastUsedAt = nulls.NewTime(time.Now().UTC())
	return tx.UpdateColumns(u, "last_used_at", "updated_at")
}

// DeleteByBearerToken removes the token presented at logout
func DeleteByBearerToken(tx *pop.Connection, token string) error {
	var uat UserAccessToken
	if err := uat.FindByBearerToken(tx, token); err != nil {
		return err
	}
	return destroy(tx, &uat)
}

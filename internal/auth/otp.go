package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	"listencheck.org/internal/ids"
)

// loginCodeTTL is how long an issued one-time code stays valid.
const loginCodeTTL = 5 * time.Minute

// GenerateCode returns a uniformly random 6-digit decimal code from a
// cryptographically secure source.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// IssueLoginCode creates a login code for the user and returns the plaintext
// for delivery. Only the bcrypt hash is persisted.
func (s *Service) IssueLoginCode(ctx context.Context, userID string) (string, error) {
	code, err := GenerateCode()
	if err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	lc := &LoginCode{
		ID:        ids.New(),
		UserID:    userID,
		CodeHash:  string(hash),
		ExpiresAt: s.now().Add(loginCodeTTL),
	}
	if err := s.store.LoginCodes().Create(ctx, lc); err != nil {
		return "", err
	}
	return code, nil
}

// VerifyLoginCode checks a submitted code against the most recent unused,
// unexpired code for the user. On match the code is consumed; on mismatch it
// stays usable so the user can retry until expiry. Wrong, expired and
// already-used codes are indistinguishable to the caller.
func (s *Service) VerifyLoginCode(ctx context.Context, userID, code string) (bool, error) {
	now := s.now()
	lc, err := s.store.LoginCodes().LatestActive(ctx, userID, now)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if bcrypt.CompareHashAndPassword([]byte(lc.CodeHash), []byte(code)) != nil {
		return false, nil
	}
	if err := s.store.LoginCodes().MarkUsed(ctx, lc.ID, now); err != nil {
		return false, err
	}
	return true, nil
}

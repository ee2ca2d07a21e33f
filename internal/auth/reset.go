package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// DefaultResetTTL bounds the window in which a reset token can be consumed.
const DefaultResetTTL = 15 * time.Minute

// Mailer delivers the reset link to the account's registered address.
type Mailer interface {
	Send(to, subject, body string) error
}

// ResetFlow implements the single-use password-reset protocol. Only a
// sha256 hash of the raw token is ever persisted, so a read of stored state
// cannot forge a valid reset.
type ResetFlow struct {
	creds   *Service
	mailer  Mailer
	ttl     time.Duration
	urlBase string
}

func NewResetFlow(creds *Service, mailer Mailer, ttl time.Duration, urlBase string) *ResetFlow {
	if ttl <= 0 {
		ttl = DefaultResetTTL
	}
	return &ResetFlow{creds: creds, mailer: mailer, ttl: ttl, urlBase: urlBase}
}

// RequestReset stores a hashed one-time token on the user and mails the raw
// token. If delivery fails the stored hash and expiry are cleared before
// the failure is surfaced, so the account never stays pending a token that
// was never sent.
func (f *ResetFlow) RequestReset(ctx context.Context, email string) error {
	user, err := f.creds.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	raw, err := newResetToken()
	if err != nil {
		return err
	}

	expiry := time.Now().UTC().Add(f.ttl)
	user.ResetTokenHash = hashResetToken(raw)
	user.ResetTokenExpire = &expiry
	user.UpdatedAt = time.Now().UTC()

	if err := f.creds.users.Update(ctx, user); err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/password/reset/%s", f.urlBase, raw)
	body := fmt.Sprintf("Reset your password by clicking on the link below:\n\n%s\n\nThe link expires in %s.", resetURL, f.ttl)

	if err := f.mailer.Send(user.Email, "Reset Your Password", body); err != nil {
		user.ResetTokenHash = ""
		user.ResetTokenExpire = nil
		user.UpdatedAt = time.Now().UTC()
		if rollbackErr := f.creds.users.Update(ctx, user); rollbackErr != nil {
			return fmt.Errorf("%w: rollback failed: %v", ErrEmailDelivery, rollbackErr)
		}
		return fmt.Errorf("%w: %v", ErrEmailDelivery, err)
	}

	return nil
}

// ConsumeReset redeems a raw token. Wrong, already-used and expired tokens
// are indistinguishable to the caller.
func (f *ResetFlow) ConsumeReset(ctx context.Context, rawToken, newPassword string) error {
	if rawToken == "" || newPassword == "" {
		return ErrMissingField
	}

	user, err := f.creds.users.FindByResetTokenHash(ctx, hashResetToken(rawToken), time.Now().UTC())
	if err != nil {
		return ErrInvalidOrExpiredToken
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}

	user.PasswordHash = hash
	user.ResetTokenHash = ""
	user.ResetTokenExpire = nil
	user.UpdatedAt = time.Now().UTC()

	return f.creds.users.Update(ctx, user)
}

func newResetToken() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func hashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

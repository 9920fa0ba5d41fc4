package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/apilogin/auth-api/internal/core/domain"
	"github.com/apilogin/auth-api/internal/core/ports"
)

// maxCodeAttempts bounds regeneration when a code collides with another user's live code.
const maxCodeAttempts = 3

const resetSubject = "Password recovery"

var resetEmail = template.Must(template.New("reset").Parse(
	`<p>Hello {{.Username}},</p>
<p>Your password recovery code is <strong>{{.Code}}</strong>.</p>
<p>The code expires in {{.Minutes}} minutes. If you did not request it, ignore this email.</p>`))

// RecoverPassword issues a reset code for the account owning email and mails it.
// The code is committed before dispatch, so a delivery failure leaves it usable.
func (s *AuthService) RecoverPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.ErrMissingFields
	}

	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrEmailNotFound
		}
		return fmt.Errorf("recover password: %w", err)
	}

	code, err := s.issueResetCode(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("recover password: %w", err)
	}

	var body bytes.Buffer
	if err := resetEmail.Execute(&body, map[string]any{
		"Username": user.Username,
		"Code":     code,
		"Minutes":  int(domain.ResetCodeTTL.Minutes()),
	}); err != nil {
		return fmt.Errorf("recover password: render email: %w", err)
	}

	if err := s.notifier.Send(ctx, ports.Message{To: user.Email, Subject: resetSubject, HTML: body.String()}); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("reset code delivery failed")
		if errors.Is(err, domain.ErrDelivery) {
			return err
		}
		return fmt.Errorf("%w: %w", domain.ErrDelivery, err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("reset code issued")
	return nil
}

func (s *AuthService) issueResetCode(ctx context.Context, userID string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.codes.Generate()
		if err != nil {
			return "", err
		}
		now := s.now()
		err = s.store.SetResetToken(ctx, userID, code, now.Add(domain.ResetCodeTTL), now)
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, ports.ErrResetTokenTaken) {
			return "", err
		}
		lastErr = err
	}
	return "", lastErr
}

// ResetPassword consumes a reset code and replaces the password. An expired
// code is cleared before the error is returned; a used code no longer matches.
func (s *AuthService) ResetPassword(ctx context.Context, code, newPassword string) error {
	code = strings.TrimSpace(code)
	if code == "" || newPassword == "" {
		return domain.ErrMissingFields
	}

	user, err := s.store.FindByResetToken(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrResetCodeInvalid
		}
		return fmt.Errorf("reset password: %w", err)
	}

	if user.ResetExpired(s.now()) {
		return s.expireResetCode(ctx, user.ID)
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, repo ports.UserRepository) error {
		hash, err := s.hasher.Hash(newPassword)
		if err != nil {
			return err
		}
		consumed, err := repo.ConsumeResetToken(ctx, user.ID, code, hash, s.now())
		if err != nil {
			return err
		}
		if !consumed {
			return errCodeNotConsumed
		}
		return nil
	})
	if errors.Is(err, errCodeNotConsumed) {
		return s.resolveUnconsumed(ctx, code)
	}
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("password reset")
	return nil
}

var errCodeNotConsumed = errors.New("reset code not consumed")

// resolveUnconsumed classifies a code the guarded update did not match: it
// either lapsed after the first check or was used or replaced concurrently.
func (s *AuthService) resolveUnconsumed(ctx context.Context, code string) error {
	current, err := s.store.FindByResetToken(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrResetCodeInvalid
		}
		return fmt.Errorf("reset password: %w", err)
	}
	if current.ResetExpired(s.now()) {
		return s.expireResetCode(ctx, current.ID)
	}
	return domain.ErrResetCodeInvalid
}

func (s *AuthService) expireResetCode(ctx context.Context, userID string) error {
	if err := s.store.ClearResetToken(ctx, userID, s.now()); err != nil {
		return fmt.Errorf("reset password: clear expired code: %w", err)
	}
	return domain.ErrResetCodeExpired
}

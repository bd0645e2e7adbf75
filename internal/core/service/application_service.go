package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/patricktravel/portal/internal/api/metrics"
	"github.com/patricktravel/portal/internal/core/domain"
	"github.com/patricktravel/portal/internal/core/ports"
)

// SubmissionDedup remembers which reference an Idempotency-Key produced (Redis).
type SubmissionDedup interface {
	// Lookup returns "" when the key was never seen.
	Lookup(ctx context.Context, key string) (string, error)
	Remember(ctx context.Context, key, reference string) error
}

type ApplicationService struct {
	repo   ports.ApplicationRepository
	dedup  SubmissionDedup
	mail   ports.MailQueue
	logger zerolog.Logger
	now    func() time.Time
}

func NewApplicationService(repo ports.ApplicationRepository, dedup SubmissionDedup, mail ports.MailQueue, logger zerolog.Logger) *ApplicationService {
	return &ApplicationService{repo: repo, dedup: dedup, mail: mail, logger: logger, now: time.Now}
}

// Submit stores a new application. If an idempotency key is provided and
// already seen, the previously created application is returned without side
// effects.
func (s *ApplicationService) Submit(ctx context.Context, in ports.SubmitApplicationInput) (*domain.ApplicationReceipt, error) {
	if in.IdempotencyKey != "" && s.dedup != nil {
		if existing := s.replay(ctx, in); existing != nil {
			return existing, nil
		}
	}

	app := &domain.Application{
		Reference:             generateReference(),
		UserID:                in.UserID,
		ApplicationSubmission: in.Submission,
		Status:                domain.StatusSubmitted,
		IdempotencyKey:        in.IdempotencyKey,
		SubmittedAt:           s.now().UTC(),
	}
	if err := s.repo.Create(ctx, app); err != nil {
		s.logger.Error().Err(err).Msg("failed to store application")
		return nil, fmt.Errorf("submit application: %w", err)
	}

	if in.IdempotencyKey != "" && s.dedup != nil {
		if err := s.dedup.Remember(ctx, dedupKey(in), app.Reference); err != nil {
			s.logger.Warn().Err(err).Str("reference", app.Reference).Msg("failed to set idempotency key")
		}
	}

	metrics.ApplicationsSubmittedTotal.WithLabelValues(app.Travel.Destination, app.Travel.VisaType).Inc()
	s.logger.Info().Str("reference", app.Reference).Str("user_id", in.UserID).Msg("application submitted")

	if s.mail != nil && app.Personal.Email != "" {
		s.mail.Enqueue(ports.MailMessage{
			Kind:    ports.MailApplicationReceived,
			To:      app.Personal.Email,
			Subject: "We received your visa application " + app.Reference,
			Body: fmt.Sprintf("Hello %s,\n\nYour %s visa application for %s was received under reference %s. An advisor will contact you shortly.",
				app.Personal.FirstName, app.Travel.VisaType, app.Travel.Destination, app.Reference),
		})
	}

	return receipt(app, false), nil
}

func (s *ApplicationService) replay(ctx context.Context, in ports.SubmitApplicationInput) *domain.ApplicationReceipt {
	ref, err := s.dedup.Lookup(ctx, dedupKey(in))
	if err != nil {
		s.logger.Warn().Err(err).Str("idempotency_key", in.IdempotencyKey).Msg("idempotency lookup failed, submitting anyway")
		return nil
	}
	if ref == "" {
		return nil
	}
	existing, err := s.repo.FindByReference(ctx, ref, in.UserID)
	if err != nil {
		s.logger.Warn().Err(err).Str("reference", ref).Msg("idempotency key points at missing application")
		return nil
	}

	metrics.ApplicationsReplayedTotal.Inc()
	s.logger.Info().Str("idempotency_key", in.IdempotencyKey).Str("reference", ref).Msg("idempotent replay")
	return receipt(existing, true)
}

// dedupKey scopes a client-chosen Idempotency-Key to its user so two users
// picking the same key never collide.
func dedupKey(in ports.SubmitApplicationInput) string {
	return in.UserID + ":" + in.IdempotencyKey
}

// Get returns one of the caller's own applications.
func (s *ApplicationService) Get(ctx context.Context, userID, reference string) (*domain.Application, error) {
	return s.repo.FindByReference(ctx, reference, userID)
}

func receipt(app *domain.Application, replayed bool) *domain.ApplicationReceipt {
	return &domain.ApplicationReceipt{
		Reference:      app.Reference,
		Status:         app.Status,
		SubmittedAt:    app.SubmittedAt,
		AlreadyExisted: replayed,
	}
}

// generateReference returns a reference in the format PT-XXXXXXXX.
func generateReference() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("PT-%08X", time.Now().UnixNano()&0xFFFFFFFF)
	}
	return fmt.Sprintf("PT-%08X", b)
}

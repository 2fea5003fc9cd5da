package contact

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	apperrors "github.com/sjoshi/portfolio-api/internal/errors"
)

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.nowFunc = now
	}
}

// Service saves submissions to the durable repo and, when that is missing or
// failing, to a best-effort scratch file. Only validation errors are returned.
type Service struct {
	primary  Repo
	fallback Repo
	nowFunc  func() time.Time
}

// NewService accepts nil for either repo.
func NewService(primary, fallback Repo, opts ...Option) *Service {
	s := &Service{
		primary:  primary,
		fallback: fallback,
		nowFunc:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Submit(ctx context.Context, name, email, reason string) (*Result, error) {
	sub := &Submission{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		Email:     strings.TrimSpace(email),
		Reason:    strings.TrimSpace(reason),
		CreatedAt: s.nowFunc().UTC(),
	}
	if sub.Name == "" || sub.Email == "" || sub.Reason == "" {
		return nil, fmt.Errorf("missing required fields: %w", apperrors.ErrInvalidRequest)
	}

	log.Info().Str("id", sub.ID).Str("email", sub.Email).Msg("Contact form submission")

	if s.primary != nil {
		err := s.primary.Save(ctx, sub)
		if err == nil {
			return &Result{Persisted: true, Storage: StorageDatabase, Submission: sub}, nil
		}
		log.Err(err).Str("id", sub.ID).Msg("Contact submission not saved to database, using tmp file")
	}

	if s.fallback != nil {
		if err := s.fallback.Save(ctx, sub); err != nil {
			log.Warn().Err(err).Str("id", sub.ID).Msg("Could not write contact submission to tmp file")
		}
	}
	return &Result{Persisted: false, Storage: StorageTmp, Submission: sub}, nil
}

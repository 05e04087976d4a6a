package graph

import (
	"context"
	"time"

	"github.com/dfryer1193/graphmigrate/api"
)

const (
	SchemaAgreementAttempts = 15
	RetryDelay              = 1000 * time.Millisecond
)

// Delayer pauses between schema agreement checks.
type Delayer interface {
	Delay(ctx context.Context, d time.Duration) error
}

// SleepDelayer blocks for the requested duration or until ctx is done.
type SleepDelayer struct{}

func (SleepDelayer) Delay(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// waitForSchemaAgreement returns immediately when the result already reports
// agreement. Otherwise it polls the cluster up to SchemaAgreementAttempts
// times, delaying after every failed check, and fails with
// *api.SchemaAgreementError once the attempts are used up.
func (s *GraphSchema) waitForSchemaAgreement(ctx context.Context, result *Result) error {
	if result != nil && result.SchemaInAgreement {
		return nil
	}

	for attempt := 1; attempt <= s.agreementAttempts; attempt++ {
		agreed, err := s.session.CheckSchemaAgreement(ctx)
		if err != nil {
			s.log.Warn().Err(err).Int("attempt", attempt).Msg("Schema agreement check failed")
		}
		if agreed {
			return nil
		}

		s.log.Info().Int("attempt", attempt).Msg("Waiting for schema agreement.")
		if err := s.delayer.Delay(ctx, s.retryDelay); err != nil {
			return err
		}
	}

	return &api.SchemaAgreementError{Attempts: s.agreementAttempts}
}

package audit

import (
	"context"
	"fmt"

	"github.com/nerrad567/telemetry-core/internal/auth"
)

// Logger is the logging surface the service needs.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Service records entries and serves the owner-only trail.
type Service struct {
	repo   Repository
	logger Logger
}

// NewService creates an audit service over repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, logger: noopLogger{}}
}

// SetLogger sets the logger used for dropped entries.
func (s *Service) SetLogger(l Logger) {
	if l != nil {
		s.logger = l
	}
}

// Record writes e. Failures are logged, not returned.
func (s *Service) Record(ctx context.Context, e Entry) {
	if s == nil {
		return
	}
	if err := s.repo.Create(context.WithoutCancel(ctx), &e); err != nil {
		s.logger.Warn("audit entry dropped", "action", e.Action, "entity_type", e.EntityType, "entity_id", e.EntityID, "error", err)
	}
}

// List returns a page of the trail. Owner only.
func (s *Service) List(ctx context.Context, actorRole auth.Role, f Filter) (*Page, error) {
	if !auth.CanReadAudit(actorRole) {
		return nil, fmt.Errorf("%w: reading the audit log requires owner", auth.ErrForbidden)
	}
	return s.repo.List(ctx, f)
}

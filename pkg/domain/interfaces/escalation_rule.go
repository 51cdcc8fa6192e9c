package interfaces

import (
	"context"
	"time"

	"github.com/feedbackloop/actionflow/pkg/domain/model"
)

// EscalationRuleRepository defines the interface for EscalationRule data access
type EscalationRuleRepository interface {
	Create(ctx context.Context, tenantID string, rule *model.EscalationRule) (*model.EscalationRule, error)
	Get(ctx context.Context, tenantID string, id model.EscalationRuleID) (*model.EscalationRule, error)

	// List returns rules sorted by descending priority
	List(ctx context.Context, tenantID string, activeOnly bool) ([]*model.EscalationRule, error)

	// Update writes the configuration of the rule. LastRunAt and Stats belong to
	// RecordRun and are never overwritten.
	Update(ctx context.Context, tenantID string, rule *model.EscalationRule) (*model.EscalationRule, error)
	Delete(ctx context.Context, tenantID string, id model.EscalationRuleID) error

	// RecordRun sets LastRunAt and, when escalated > 0, adds to the statistics
	RecordRun(ctx context.Context, tenantID string, id model.EscalationRuleID, at time.Time, escalated int) error
}

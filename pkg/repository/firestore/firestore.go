package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/feedbackloop/actionflow/pkg/domain/interfaces"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
)

// ErrNotFound is returned when a document does not exist in the tenant
var ErrNotFound = interfaces.ErrNotFound

// Firestore implements interfaces.Repository on Cloud Firestore.
// Tenant owned data lives in subcollections of tenants/{tenantID}.
type Firestore struct {
	client *firestore.Client
	names  *collections

	action         *actionRepository
	feedback       *feedbackRepository
	survey         *surveyRepository
	surveyResponse *surveyResponseRepository
	user           *userRepository
	tenant         *tenantRepository
	escalationRule *escalationRuleRepository
	notification   *notificationRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix prefixes every top-level collection name. Used to isolate test runs.
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.names.prefix = prefix
	}
}

func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID))
	}

	names := &collections{client: client}
	f := &Firestore{
		client:         client,
		names:          names,
		action:         &actionRepository{client: client, names: names},
		feedback:       &feedbackRepository{names: names},
		survey:         &surveyRepository{names: names},
		surveyResponse: &surveyResponseRepository{names: names},
		user:           &userRepository{names: names},
		tenant:         &tenantRepository{names: names},
		escalationRule: &escalationRuleRepository{names: names},
		notification:   &notificationRepository{client: client, names: names},
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) Action() interfaces.ActionRepository {
	return f.action
}

func (f *Firestore) Feedback() interfaces.FeedbackRepository {
	return f.feedback
}

func (f *Firestore) Survey() interfaces.SurveyRepository {
	return f.survey
}

func (f *Firestore) SurveyResponse() interfaces.SurveyResponseRepository {
	return f.surveyResponse
}

func (f *Firestore) User() interfaces.UserRepository {
	return f.user
}

func (f *Firestore) Tenant() interfaces.TenantRepository {
	return f.tenant
}

func (f *Firestore) EscalationRule() interfaces.EscalationRuleRepository {
	return f.escalationRule
}

func (f *Firestore) Notification() interfaces.NotificationRepository {
	return f.notification
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

// collections resolves collection references
type collections struct {
	client *firestore.Client
	prefix string
}

func (c *collections) top(name string) *firestore.CollectionRef {
	if c.prefix != "" {
		return c.client.Collection(c.prefix + "_" + name)
	}
	return c.client.Collection(name)
}

func (c *collections) tenants() *firestore.CollectionRef {
	return c.top("tenants")
}

func (c *collections) tenantScoped(tenantID, name string) *firestore.CollectionRef {
	return c.tenants().Doc(tenantID).Collection(name)
}

func (c *collections) actions(tenantID string) *firestore.CollectionRef {
	return c.tenantScoped(tenantID, "actions")
}

func (c *collections) escalationRules(tenantID string) *firestore.CollectionRef {
	return c.tenantScoped(tenantID, "escalation_rules")
}

func (c *collections) feedbackAnalyses(tenantID string) *firestore.CollectionRef {
	return c.tenantScoped(tenantID, "feedback_analyses")
}

func (c *collections) surveys(tenantID string) *firestore.CollectionRef {
	return c.tenantScoped(tenantID, "surveys")
}

func (c *collections) surveyResponses(tenantID string) *firestore.CollectionRef {
	return c.tenantScoped(tenantID, "survey_responses")
}

func (c *collections) users() *firestore.CollectionRef {
	return c.top("users")
}

func (c *collections) notifications() *firestore.CollectionRef {
	return c.top("notifications")
}

// collect decodes every document of the iterator into T
// collectPage decodes every document and also returns the last snapshot as a
// cursor for the next page
func collectPage[T any](iter *firestore.DocumentIterator) ([]*T, *firestore.DocumentSnapshot, error) {
	defer iter.Stop()

	var last *firestore.DocumentSnapshot
	result := make([]*T, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to iterate documents")
		}

		var v T
		if err := doc.DataTo(&v); err != nil {
			return nil, nil, goerr.Wrap(err, "failed to decode document", goerr.V("path", doc.Ref.Path))
		}
		result = append(result, &v)
		last = doc
	}
	return result, last, nil
}

func collect[T any](iter *firestore.DocumentIterator) ([]*T, error) {
	defer iter.Stop()

	result := make([]*T, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate documents")
		}

		var v T
		if err := doc.DataTo(&v); err != nil {
			return nil, goerr.Wrap(err, "failed to decode document", goerr.V("path", doc.Ref.Path))
		}
		result = append(result, &v)
	}
	return result, nil
}

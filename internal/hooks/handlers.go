package hooks

import (
	"context"
	"fmt"
	"net/http"

	"dotmac/internal/audit"
	"dotmac/internal/common"
	"dotmac/pkg/api"
)

const (
	AuditHandlerName       = "audit"
	BillingProvisionerName = "billing"
	WebhookNotifierName    = "webhook"
	DefaultProvisionPath   = "/billing/tenants/provision"
	DefaultDeprovisionPath = "/billing/tenants/deprovision"
	WebhookSecretHeader    = "X-Webhook-Secret"
	IdempotencyKeyHeader   = "Idempotency-Key"
)

// NewAuditHandler records every event as an audit entry keyed by the
// event id
func NewAuditHandler(logger audit.Logger) (*AuditHandler, error) {
	if logger == nil {
		return nil, ErrorLoggerUndefined
	}
	return &AuditHandler{logger: logger}, nil
}

type AuditHandler struct {
	logger audit.Logger
}

func (a *AuditHandler) Name() string { return AuditHandlerName }

func (a *AuditHandler) Handle(ctx context.Context, event Event) error {
	entry := audit.LogEntry{
		Id:           event.Id,
		EntityId:     event.ActorId,
		EntityType:   audit.UserEntity,
		ResourceId:   event.OrganizationId,
		ResourceType: audit.OrgResource,
		Status:       audit.Success,
		Timestamp:    event.OccurredAt,
		Data:         event.Data,
	}
	if entry.EntityId == "" {
		entry.EntityId = "system"
		entry.EntityType = audit.SystemEntity
	}
	switch event.Type {
	case EventOrganizationCreated:
		entry.Verb = audit.Create
	case EventOrganizationDeleted:
		entry.Verb = audit.Delete
	default:
		return nil
	}
	if err := a.logger.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

type NewBillingProvisionerOpts struct {
	Client          *api.Client
	ProvisionPath   string
	DeprovisionPath string
}

func NewBillingProvisioner(opts NewBillingProvisionerOpts) (*BillingProvisioner, error) {
	if opts.Client == nil {
		return nil, ErrorClientUndefined
	}
	output := &BillingProvisioner{
		client:          opts.Client,
		provisionPath:   opts.ProvisionPath,
		deprovisionPath: opts.DeprovisionPath,
	}
	if output.provisionPath == "" {
		output.provisionPath = DefaultProvisionPath
	}
	if output.deprovisionPath == "" {
		output.deprovisionPath = DefaultDeprovisionPath
	}
	return output, nil
}

// BillingProvisioner creates and removes the tenant's billing account
// on the backend
type BillingProvisioner struct {
	client          *api.Client
	provisionPath   string
	deprovisionPath string
}

type billingTenantInput struct {
	TenantId string         `json:"tenant_id"`
	ActorId  string         `json:"actor_id,omitempty"`
	EventId  string         `json:"event_id"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (b *BillingProvisioner) Name() string { return BillingProvisionerName }

func (b *BillingProvisioner) Handle(ctx context.Context, event Event) error {
	path := ""
	switch event.Type {
	case EventOrganizationCreated:
		path = b.provisionPath
	case EventOrganizationDeleted:
		path = b.deprovisionPath
	default:
		return nil
	}
	err := b.client.Do(ctx, api.Request{
		Method: http.MethodPost,
		Path:   path,
		Body: billingTenantInput{
			TenantId: event.OrganizationId,
			ActorId:  event.ActorId,
			EventId:  event.Id,
			Metadata: event.Data,
		},
		Header: http.Header{IdempotencyKeyHeader: []string{event.Id}},
	}, nil)
	if err == nil {
		return nil
	}
	if event.Type == EventOrganizationDeleted && api.IsNotFound(err) {
		return nil
	}
	if !api.IsRetryable(err) {
		return Permanent(fmt.Errorf("billing rejected tenant[%s]: %w", event.OrganizationId, err))
	}
	return fmt.Errorf("failed to reach billing for tenant[%s]: %w", event.OrganizationId, err)
}

type NewWebhookNotifierOpts struct {
	Client      *api.Client
	Secret      string
	ServiceLogs chan<- common.ServiceLog
}

func NewWebhookNotifier(opts NewWebhookNotifierOpts) (*WebhookNotifier, error) {
	if opts.Client == nil {
		return nil, ErrorWebhookUndefined
	}
	output := &WebhookNotifier{client: opts.Client, secret: opts.Secret, serviceLogs: opts.ServiceLogs}
	if output.serviceLogs == nil {
		output.serviceLogs = common.GetNoopServiceLog()
	}
	return output, nil
}

// WebhookNotifier posts each event to an external url once. Delivery is
// best-effort and never asks for a redelivery
type WebhookNotifier struct {
	client      *api.Client
	secret      string
	serviceLogs chan<- common.ServiceLog
}

func (n *WebhookNotifier) Name() string { return WebhookNotifierName }

func (n *WebhookNotifier) Handle(ctx context.Context, event Event) error {
	header := http.Header{}
	if n.secret != "" {
		header.Set(WebhookSecretHeader, n.secret)
	}
	err := n.client.Do(ctx, api.Request{
		Method: http.MethodPost,
		Body:   event,
		Header: header,
	}, nil)
	if err != nil {
		n.serviceLogs <- common.ServiceLogf(common.LogLevelWarn, "webhook for event[%s] type[%s] failed: %s", event.Id, event.Type, err)
		return nil
	}
	n.serviceLogs <- common.ServiceLogf(common.LogLevelDebug, "webhook for event[%s] delivered", event.Id)
	return nil
}

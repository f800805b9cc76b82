package audit

import (
	"context"
	"errors"
	"time"
)

var (
	ErrorDatabaseUndefined = errors.New("database_undefined")
	ErrorInvalidEntry      = errors.New("invalid_entry")
)

type Verb string

const (
	Create       Verb = "create"
	Delete       Verb = "delete"
	ForcedLogout Verb = "forced_logout"
	Update       Verb = "update"
	Login        Verb = "login"
	LoginWithMfa Verb = "login_with_mfa"
	Logout       Verb = "logout"
	Revoke       Verb = "revoke"
	VerifyEmail  Verb = "verify_email"
	Provision    Verb = "provision"
)

type EntityType string

const (
	UserEntity   EntityType = "user"
	OrgEntity    EntityType = "org"
	SystemEntity EntityType = "system"
)

type ResourceType string

const (
	UserResource         ResourceType = "user"
	UserMfaResource      ResourceType = "user_mfa"
	SessionResource      ResourceType = "session"
	OrgResource          ResourceType = "org"
	OrgMemberResource    ResourceType = "org_member"
	SubscriptionResource ResourceType = "subscription"
	VerificationResource ResourceType = "verification_token"
)

type Status string

const (
	Success Status = "success"
	Failed  Status = "failed"
)

type LogEntries []LogEntry

type LogEntry struct {
	// Id makes the write idempotent when set, a second write with the
	// same id is ignored
	Id           string         `bson:"_id,omitempty" json:"id,omitempty"`
	EntityId     string         `bson:"entityId" json:"entityId"`
	EntityType   EntityType     `bson:"entityType" json:"entityType"`
	Verb         Verb           `bson:"verb" json:"verb"`
	ResourceId   string         `bson:"resourceId,omitempty" json:"resourceId,omitempty"`
	ResourceType ResourceType   `bson:"resourceType,omitempty" json:"resourceType,omitempty"`
	Status       Status         `bson:"status,omitempty" json:"status,omitempty"`
	SrcIp        *string        `bson:"srcIp,omitempty" json:"srcIp,omitempty"`
	SrcUa        *string        `bson:"srcUa,omitempty" json:"srcUa,omitempty"`
	Timestamp    time.Time      `bson:"timestamp" json:"timestamp"`
	Data         map[string]any `bson:"data,omitempty" json:"data,omitempty"`
}

func (l LogEntry) Validate() error {
	errs := []error{}
	if l.EntityId == "" {
		errs = append(errs, errors.New("missing entity id"))
	}
	if l.EntityType == "" {
		errs = append(errs, errors.New("missing entity type"))
	}
	if l.Verb == "" {
		errs = append(errs, errors.New("missing verb"))
	}
	if len(errs) > 0 {
		return errors.Join(ErrorInvalidEntry, errors.Join(errs...))
	}
	return nil
}

type GetByEntityOpts struct {
	EntityId   string
	EntityType EntityType

	// Cursor returns only entries at or before this time, zero means now
	Cursor time.Time
	Limit  int64
}

type Logger interface {
	Log(context.Context, LogEntry) error
	GetByEntity(context.Context, GetByEntityOpts) (LogEntries, error)
}

package audit

import "fmt"

func Interpret(log LogEntry) string {
	switch log.Verb {
	case Create:
		switch log.ResourceType {
		case OrgResource:
			return fmt.Sprintf("Created an organization (ID: %s)", log.ResourceId)
		case OrgMemberResource:
			return fmt.Sprintf("Added a member to organization %s", log.ResourceId)
		case UserResource:
			return "Created account"
		}
	case Delete:
		switch log.ResourceType {
		case OrgResource:
			return fmt.Sprintf("Deleted an organization (ID: %s)", log.ResourceId)
		case OrgMemberResource:
			return fmt.Sprintf("Removed a member from organization %s", log.ResourceId)
		}
	case ForcedLogout:
		return "Session was invalidated with automatic logout triggered"
	case Login:
		return "Signed in"
	case LoginWithMfa:
		return "Signed in with a second factor"
	case Logout:
		return "Signed out"
	case Revoke:
		return fmt.Sprintf("Revoked session %s", log.ResourceId)
	case Provision:
		return fmt.Sprintf("Provisioned billing for organization %s", log.ResourceId)
	case VerifyEmail:
		return "Verified email"
	}
	return fmt.Sprintf(
		"Entity[%s[%s]] performed action[%s] on Resource[%s[%s]]",
		log.EntityType,
		log.EntityId,
		log.Verb,
		log.ResourceType,
		log.ResourceId,
	)
}

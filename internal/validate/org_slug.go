package validate

import "strings"

const (
	OrgSlugMinLength = 2
	OrgSlugMaxLength = 48

	orgSlugSeparator = "-"
)

// reservedOrgSlugs are path segments and hostnames the platform serves
// itself, a tenant slug must not shadow them
var reservedOrgSlugs = map[string]struct{}{
	"admin":  {},
	"api":    {},
	"app":    {},
	"auth":   {},
	"static": {},
	"system": {},
	"www":    {},
}

// OrgSlug accepts lowercase latin alphanumerics separated by single
// hyphens that do not start with a reserved word
func OrgSlug(orgSlug string) error {
	return do(
		orgSlug,
		andS(
			hasLengthBetween(OrgSlugMinLength, OrgSlugMaxLength),
			hasLatinAlnumEdges(),
			hasNoConsecutive('-'),
			isNotReserved(orgSlugSeparator, reservedOrgSlugs),
		),
		orR(
			isLowercaseLatinAlnum(),
			isOneOf('-'),
		),
	)
}

// Slugify derives a slug candidate from an organization name. A reserved
// leading word gets an org- prefix, the result still has to pass OrgSlug
func Slugify(name string) string {
	var builder strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(name) {
		if isLowerLatinAlnum(r) {
			if pendingHyphen && builder.Len() > 0 {
				builder.WriteString(orgSlugSeparator)
			}
			pendingHyphen = false
			builder.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	slug := builder.String()
	leading, _, _ := strings.Cut(slug, orgSlugSeparator)
	if _, ok := reservedOrgSlugs[leading]; ok {
		slug = "org" + orgSlugSeparator + slug
	}
	if len(slug) > OrgSlugMaxLength {
		slug = strings.TrimRight(slug[:OrgSlugMaxLength], orgSlugSeparator)
	}
	return slug
}

package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrgSlug(t *testing.T) {
	for _, valid := range []string{"acme", "acme-isp", "a1", "north-west-2", "apinet", "my-api"} {
		assert.NoError(t, OrgSlug(valid), valid)
	}
	cases := map[string]error{
		"a":         ErrorStringTooShort,
		"-acme":     ErrorPrefixedWithNonLatinAlnum,
		"x" + strings.Repeat("y", OrgSlugMaxLength): ErrorStringTooLong,
		"acme-":     ErrorPostfixedWithNonLatinAlnum,
		"acme--isp": ErrorConsecutiveReservedCharacters,
		"Acme":      ErrorNotLowercaseLatinAlnum,
		"acme_isp":  ErrorNotInAllowlistedCharacters,
		"api":       ErrorReservedWord,
		"admin-eu":  ErrorReservedWord,
	}
	for input, expected := range cases {
		assert.ErrorIs(t, OrgSlug(input), expected, input)
	}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "acme-isp", Slugify("  Acme ISP!  "))
	assert.Equal(t, "o-brien-co", Slugify("O'Brien & Co."))
	assert.Equal(t, "", Slugify("!!!"))
	assert.Equal(t, "org-api-gateway-ltd", Slugify("API Gateway Ltd"))
	assert.NoError(t, OrgSlug(Slugify("Admin")))
	assert.NoError(t, OrgSlug(Slugify("Fibre Networks (North)")))
}

func TestOrgName(t *testing.T) {
	assert.NoError(t, OrgName("Acme ISP"))
	assert.NoError(t, OrgName("O'Brien & Co."))
	assert.ErrorIs(t, OrgName("A"), ErrorTooShort)
	assert.ErrorIs(t, OrgName("Acme <script>"), ErrorInvalidCharacter)
}

func TestUuid(t *testing.T) {
	assert.NoError(t, Uuid("7b1a7d2c-4a6f-4a7e-9f5e-2d0c1b3a4e5f"))
	assert.ErrorIs(t, Uuid("nope"), ErrorInvalidUuid)
}

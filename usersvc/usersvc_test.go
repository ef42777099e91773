package usersvc

import (
	"errors"
	"strings"
	"testing"

	"github.com/ichigozero/todokit/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCredentials(t *testing.T) {
	testCases := []struct {
		name     string
		email    string
		password string
		fields   []string
	}{
		{name: "valid", email: "a@x.com", password: "Abc12345"},
		{name: "empty email", email: "", password: "Abc12345", fields: []string{"email"}},
		{name: "display name", email: "Alice <a@x.com>", password: "Abc12345", fields: []string{"email"}},
		{name: "not an address", email: "nope", password: "Abc12345", fields: []string{"email"}},
		{name: "short password", email: "a@x.com", password: "Ab1", fields: []string{"password"}},
		{name: "long password", email: "a@x.com", password: "Ab1" + strings.Repeat("x", 70), fields: []string{"password"}},
		{name: "no digit", email: "a@x.com", password: "Abcdefgh", fields: []string{"password"}},
		{name: "no upper", email: "a@x.com", password: "abc12345", fields: []string{"password"}},
		{name: "both", email: "", password: "", fields: []string{"email", "password"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateCredentials(tc.email, tc.password)
			if len(tc.fields) == 0 {
				require.NoError(t, err)
				return
			}

			var errs validation.Errors
			require.True(t, errors.As(err, &errs))
			assert.Len(t, errs, len(tc.fields))
			for _, f := range tc.fields {
				assert.Contains(t, errs, f)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "Alice@X.com", NormalizeEmail("  Alice@X.com \n"))
}

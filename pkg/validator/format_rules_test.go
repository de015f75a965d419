package validator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vivhq/viv/pkg/validator"
)

func TestValidEmail(t *testing.T) {
	t.Parallel()

	valid := []string{
		"a@example.com",
		"first.last@sub.example.co",
		"user+tag@example.org",
	}
	for _, email := range valid {
		assert.NoError(t, validator.Apply(validator.ValidEmail("email", email)), email)
	}

	invalid := []string{
		"",
		"plainstring",
		"@example.com",
		"user@",
		"user@nodot",
		"two@@example.com",
	}
	for _, email := range invalid {
		assert.Error(t, validator.Apply(validator.ValidEmail("email", email)), email)
	}
}

func TestApply_CollectsFieldErrors(t *testing.T) {
	t.Parallel()

	err := validator.Apply(
		validator.Required("name", ""),
		validator.ValidEmail("email", "nope"),
	)
	require.Error(t, err)

	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.True(t, verrs.Has("name"))
	assert.True(t, verrs.Has("email"))
}

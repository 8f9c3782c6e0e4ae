package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techfemme/academy/backend/go-services/internal/apperr"
)

func TestIsPhone(t *testing.T) {
	cases := map[string]bool{
		"+1 (555) 123-4567":  true,
		"0712345678":         true,
		"1234567":            true,
		"123456":             false,
		"1234567890123456":   false,
		"555-CALL-NOW":       false,
		"":                   false,
		"   ":                false,
		"12+34567890":        false,
		"+44 20 7946 0958":   true,
	}
	for in, want := range cases {
		assert.Equal(t, want, IsPhone(in), in)
	}
}

func TestIsEmail(t *testing.T) {
	assert.True(t, IsEmail("ada@example.com"))
	assert.False(t, IsEmail("ada.example.com"))
	assert.False(t, IsEmail(""))
}

type form struct {
	FirstName string `json:"firstName" validate:"notblank"`
	Phone     string `json:"phone" validate:"phone"`
	Email     string `json:"email" validate:"omitempty,email"`
}

func TestStruct_CollectsFieldErrors(t *testing.T) {
	err := Struct("test.op", form{FirstName: " ", Phone: "12", Email: "nope"})
	require.Error(t, err)
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	byField := map[string]string{}
	for _, f := range apperr.FieldsOf(err) {
		byField[f.Field] = f.Message
	}
	assert.Equal(t, "firstName is required", byField["firstName"])
	assert.Equal(t, "phone must contain 7 to 15 digits", byField["phone"])
	assert.Equal(t, "email must be a valid email address", byField["email"])
}

func TestStruct_Valid(t *testing.T) {
	require.NoError(t, Struct("test.op", form{FirstName: "Ada", Phone: "+1 555 123 4567"}))
}

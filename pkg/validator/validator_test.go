package validator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type createUserPayload struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=8,strongpassword"`
}

func TestValidateStructReportsJSONFieldNames(t *testing.T) {
	err := ValidateStruct(&createUserPayload{Username: "ab", Password: "Secreta1!"})
	require.Error(t, err)

	ve, ok := err.(ValidationErrors)
	require.True(t, ok)
	require.Len(t, ve, 1)
	require.Equal(t, "username", ve[0].Field)
	require.Equal(t, "min", ve[0].Tag)
}

func TestStrongPasswordRule(t *testing.T) {
	cases := map[string]bool{
		"Admin123!":    true,
		"S3gura#clave": true,
		"admin123!":    false, // no uppercase
		"ADMIN123!":    false, // no lowercase
		"Administra!":  false, // no digit
		"Admin1234":    false, // no symbol
	}

	for password, want := range cases {
		err := ValidateStruct(&createUserPayload{Username: "tester", Password: password})
		if want {
			require.NoError(t, err, password)
		} else {
			require.Error(t, err, password)
		}
	}
}

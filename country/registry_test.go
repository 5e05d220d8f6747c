package country

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)

	tests := []struct {
		code string
		sign string
	}{
		{code: "PT", sign: "P"},
		{code: "pt", sign: "P"},
		{code: "EE", sign: "EST"},
		{code: "IT", sign: "I"},
		{code: "FC", sign: "FC"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			sign, err := r.DistinguishingSign(tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.sign, sign)
			assert.True(t, r.Supports(tt.code))
		})
	}

	_, err = r.DistinguishingSign("XX")
	assert.True(t, errors.Is(err, ErrUnknownCountry))
	assert.False(t, r.Supports("XX"))

	all := r.All()
	require.NotEmpty(t, all)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Code, all[i].Code)
	}
}

func TestParse(t *testing.T) {
	_, err := Parse([]byte(`{`))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"countries":{}}`))
	assert.Error(t, err)

	r, err := Parse([]byte(`{"countries":{"de":{"name":"Germany","un_distinguishing_sign":"D"}}}`))
	require.NoError(t, err)
	c, err := r.Lookup("DE")
	require.NoError(t, err)
	assert.Equal(t, Country{Code: "DE", Name: "Germany", UNDistinguishingSign: "D"}, c)
}

func TestLoad(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "countries.json")
	require.NoError(t, os.WriteFile(path, defaultCountries, 0o600))
	r, err := Load(path)
	require.NoError(t, err)
	assert.True(t, r.Supports("LU"))
}

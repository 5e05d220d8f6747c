package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kokukuma/mdoc-issuer/mdoc"
)

func TestClaimSet(t *testing.T) {
	s := NewClaimSet("family_name", "given_name", "family_name")
	assert.Equal(t, ClaimSet{"family_name", "given_name"}, s)
	assert.True(t, s.Has("given_name"))
	assert.False(t, s.Has("birth_date"))

	added := s.Add("birth_date", "given_name")
	assert.Equal(t, ClaimSet{"family_name", "given_name", "birth_date"}, added)
	assert.Equal(t, ClaimSet{"family_name", "given_name"}, s, "Add must not modify the receiver")

	assert.Equal(t, ClaimSet{"given_name"}, s.Without("family_name"))
	assert.Equal(t, ClaimSet{"family_name", "given_name", "sub"}, s.Union(ClaimSet{"sub", "given_name"}))

	var empty ClaimSet
	assert.False(t, empty.Has("x"))
	assert.Equal(t, ClaimSet{"x"}, empty.Add("x"))
}

func TestClaimsOverlaps(t *testing.T) {
	tests := []struct {
		name   string
		claims Claims
		want   []string
	}{
		{
			name: "disjoint",
			claims: Claims{
				Mandatory: ClaimSet{"family_name"},
				Optional:  ClaimSet{"age_in_years"},
				Issuer:    ClaimSet{"sub"},
			},
			want: []string{},
		},
		{
			name: "mandatory and issuer",
			claims: Claims{
				Mandatory: ClaimSet{"family_name", "issuance_date"},
				Issuer:    ClaimSet{"issuance_date"},
			},
			want: []string{"issuance_date"},
		},
		{
			name: "all three",
			claims: Claims{
				Mandatory: ClaimSet{"x", "b"},
				Optional:  ClaimSet{"x", "a"},
				Issuer:    ClaimSet{"x", "a"},
			},
			want: []string{"a", "x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ElementsMatch(t, tt.want, tt.claims.Overlaps())
		})
	}
}

func TestCredentialSchemaUnion(t *testing.T) {
	s := &CredentialSchema{
		Namespaces: []NamespaceClaims{
			{
				Namespace: "org.iso.18013.5.1",
				Claims: Claims{
					Mandatory: ClaimSet{"family_name"},
					Issuer:    ClaimSet{"issue_date"},
				},
			},
			{
				Namespace: "org.iso.18013.5.1.IT",
				Claims: Claims{
					Optional: ClaimSet{"family_name"},
					Issuer:   ClaimSet{"sub", "verification"},
				},
			},
		},
	}

	union := s.Union()
	assert.Equal(t, ClaimSet{"family_name"}, union.Mandatory)
	assert.Equal(t, ClaimSet{"family_name"}, union.Optional)
	assert.Equal(t, ClaimSet{"issue_date", "sub", "verification"}, union.Issuer)
	assert.Equal(t, []mdoc.NameSpace{"org.iso.18013.5.1", "org.iso.18013.5.1.IT"}, s.NameSpaces())

	// family_name overlaps only across namespaces, not within one
	assert.Empty(t, s.Overlaps())
}

func TestCategory(t *testing.T) {
	assert.Equal(t, []Category{Mandatory, Optional, Issuer}, Precedence)
	assert.Equal(t, "mandatory", Mandatory.String())
	assert.Equal(t, "issuer", Issuer.String())
	assert.Nil(t, Claims{}.Get(Category(9)))
}

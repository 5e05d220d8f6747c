package formatter

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kokukuma/mdoc-issuer/country"
	"github.com/kokukuma/mdoc-issuer/document"
	"github.com/kokukuma/mdoc-issuer/schema"
)

func issuerSchema(issuer ...string) *schema.CredentialSchema {
	return &schema.CredentialSchema{
		ID:      "test",
		DocType: document.IsoMDL,
		Format:  document.FormatMdoc,
		Namespaces: []schema.NamespaceClaims{{
			Namespace: "ns",
			Claims:    schema.Claims{Issuer: schema.NewClaimSet(issuer...)},
		}},
		IssuerConfig: schema.IssuerConfig{
			Validity:         30,
			IssuingAuthority: "Authority",
			OrganizationName: "Org",
			CredentialType:   "PID",
		},
	}
}

func deriveInput(s *schema.CredentialSchema, today time.Time) Input {
	return Input{
		Schema:    s,
		Country:   "PT",
		Today:     today,
		Now:       fixedNow,
		NewID:     func() string { return "id-1" },
		Countries: testCountries(),
	}
}

func TestDeriveAgeBoundary(t *testing.T) {
	today := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	for _, threshold := range document.AgeThresholds {
		name := fmt.Sprintf("age_over_%d", threshold)
		s := issuerSchema(name)

		t.Run(name, func(t *testing.T) {
			onBirthday := today.AddDate(-threshold, 0, 0).Format(dateLayout)
			out, err := Derive(State{Record: Record{"birth_date": onBirthday}, Claims: s.Union()}, deriveInput(s, today))
			require.NoError(t, err)
			assert.Equal(t, true, out.Record[name])

			dayBefore := today.AddDate(-threshold, 0, 1).Format(dateLayout)
			out, err = Derive(State{Record: Record{"birth_date": dayBefore}, Claims: s.Union()}, deriveInput(s, today))
			require.NoError(t, err)
			assert.Equal(t, false, out.Record[name])
		})
	}
}

func TestDeriveLeapDayBirth(t *testing.T) {
	s := issuerSchema("age_over_18")
	st := State{Record: Record{"birth_date": "2000-02-29"}, Claims: s.Union()}

	out, err := Derive(st, deriveInput(s, time.Date(2018, 2, 28, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, false, out.Record["age_over_18"])

	out, err = Derive(st, deriveInput(s, time.Date(2018, 3, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, true, out.Record["age_over_18"])
}

func TestDeriveMalformedBirthDate(t *testing.T) {
	s := issuerSchema("age_over_18")
	for _, birth := range []interface{}{"01/02/2000", "", 20000101} {
		_, err := Derive(State{Record: Record{"birth_date": birth}, Claims: s.Union()}, deriveInput(s, fixedNow))
		var malformed *MalformedFieldError
		require.True(t, errors.As(err, &malformed), "birth_date %v", birth)
		assert.Equal(t, "birth_date", malformed.Field)
	}
}

func TestDeriveSkipsClaimsOutsideIssuerView(t *testing.T) {
	s := issuerSchema("issue_date")
	out, err := Derive(State{Record: Record{"birth_date": "2000-01-01"}, Claims: s.Union()}, deriveInput(s, fixedNow))
	require.NoError(t, err)
	assert.Equal(t, Record{"birth_date": "2000-01-01", "issue_date": "2024-01-01"}, out.Record)
}

func TestDeriveIssuerClaims(t *testing.T) {
	s := issuerSchema(
		"un_distinguishing_sign", "issuance_date", "expiry_date", "issuing_authority",
		"issuing_authority_unicode", "issuing_jurisdiction", "credential_type",
		"verification", "wallet_name", "wallet_link", "aal", "sub",
	)
	out, err := Derive(State{Record: Record{}, Claims: s.Union()}, deriveInput(s, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	assert.Equal(t, Record{
		"un_distinguishing_sign":    "P",
		"issuance_date":             "2024-01-01",
		"expiry_date":               "2024-01-31",
		"issuing_authority":         "Authority",
		"issuing_authority_unicode": "Authority",
		"issuing_jurisdiction":      "EU",
		"credential_type":           "PID",
		"verification": map[string]interface{}{
			"trust_framework": "eidas",
			"assurance_level": "high",
			"evidence": []interface{}{
				map[string]interface{}{
					"type": "vouch",
					"time": "2024-01-01T09:30:00Z",
					"attestation": map[string]interface{}{
						"type":             "digital_attestation",
						"date_of_issuance": "2024-01-01T09:30:00Z",
						"voucher":          map[string]interface{}{"organization": "Org"},
					},
				},
			},
		},
		"wallet_name": "EUDI Wallet",
		"wallet_link": "https://github.com/eu-digital-identity-wallet",
		"aal":         "high",
		"sub":         "id-1",
	}, out.Record)

	assert.True(t, out.Claims.Mandatory.Has("credential_type"))
	assert.False(t, s.Union().Mandatory.Has("credential_type"))
}

func TestDeriveVerificationReferenceNumber(t *testing.T) {
	s := issuerSchema("verification")
	s.IssuerConfig.Verification = &schema.Verification{
		TrustFramework:  "it_spid",
		AssuranceLevel:  "substantial",
		ReferenceNumber: "REF-1",
	}
	out, err := Derive(State{Record: Record{}, Claims: s.Union()}, deriveInput(s, fixedNow))
	require.NoError(t, err)

	v := out.Record["verification"].(map[string]interface{})
	assert.Equal(t, "it_spid", v["trust_framework"])
	assert.Equal(t, "substantial", v["assurance_level"])
	evidence := v["evidence"].([]interface{})[0].(map[string]interface{})
	attestation := evidence["attestation"].(map[string]interface{})
	assert.Equal(t, "REF-1", attestation["reference_number"])
}

func TestDeriveDistinguishingSign(t *testing.T) {
	s := issuerSchema("un_distinguishing_sign")

	in := deriveInput(s, fixedNow)
	in.Country = "XX"
	_, err := Derive(State{Record: Record{}, Claims: s.Union()}, in)
	assert.True(t, errors.Is(err, country.ErrUnknownCountry))

	in.Countries = nil
	_, err = Derive(State{Record: Record{}, Claims: s.Union()}, in)
	assert.Error(t, err)

	// only mDL carries a sign, other doctypes never consult the registry
	s.DocType = document.EudiPid
	out, err := Derive(State{Record: Record{}, Claims: s.Union()}, in)
	require.NoError(t, err)
	assert.Equal(t, "", out.Record["un_distinguishing_sign"])
}

func TestDerivePromotesAgeOver18(t *testing.T) {
	s := issuerSchema("issuance_date")
	out, err := Derive(State{Record: Record{"age_over_18": true}, Claims: s.Union()}, deriveInput(s, fixedNow))
	require.NoError(t, err)
	assert.True(t, out.Claims.Optional.Has("age_over_18"))
	assert.Equal(t, true, out.Record["age_over_18"])

	out, err = Derive(State{Record: Record{}, Claims: s.Union()}, deriveInput(s, fixedNow))
	require.NoError(t, err)
	assert.False(t, out.Claims.Optional.Has("age_over_18"))
}

func TestDeriveIdempotent(t *testing.T) {
	catalog, err := schema.DefaultCatalog()
	require.NoError(t, err)
	s, err := catalog.Resolve(document.IsoMDL, document.FormatMdoc)
	require.NoError(t, err)

	in := deriveInput(s, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	in.NewID = nil
	st := State{Record: Record{"birth_date": "1990-05-20", "family_name": "Costa"}, Claims: s.Union()}

	first, err := Derive(st, in)
	require.NoError(t, err)
	second, err := Derive(st, in)
	require.NoError(t, err)

	assert.NotEqual(t, first.Record["sub"], second.Record["sub"])
	delete(first.Record, "sub")
	delete(second.Record, "sub")
	assert.Equal(t, first, second)

	// the input snapshot is never written to
	assert.Equal(t, Record{"birth_date": "1990-05-20", "family_name": "Costa"}, st.Record)
}

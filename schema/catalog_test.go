package schema

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kokukuma/mdoc-issuer/document"
	"github.com/kokukuma/mdoc-issuer/mdoc"
)

func TestDefaultCatalogResolve(t *testing.T) {
	catalog, err := DefaultCatalog()
	require.NoError(t, err)

	tests := []struct {
		name       string
		docType    mdoc.DocType
		format     document.Format
		wantID     string
		namespaces []mdoc.NameSpace
	}{
		{
			name:       "pid mdoc",
			docType:    document.EudiPid,
			format:     document.FormatMdoc,
			wantID:     "eu.europa.ec.eudi.pid_mdoc",
			namespaces: []mdoc.NameSpace{document.EUDIPID1},
		},
		{
			name:       "pid sd-jwt",
			docType:    document.EudiPid,
			format:     document.FormatSDJWT,
			wantID:     "eu.europa.ec.eudi.pid_vc_sd_jwt",
			namespaces: []mdoc.NameSpace{mdoc.NameSpace(document.EudiPid)},
		},
		{
			name:       "mDL",
			docType:    document.IsoMDL,
			format:     document.FormatMdoc,
			wantID:     "org.iso.18013.5.1.mDL",
			namespaces: []mdoc.NameSpace{document.ISO1801351, "org.iso.18013.5.1.IT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := catalog.Resolve(tt.docType, tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, s.ID)
			assert.Equal(t, tt.namespaces, s.NameSpaces())
			assert.NotEmpty(t, s.Metadata)
		})
	}
}

func TestResolveErrors(t *testing.T) {
	catalog, err := DefaultCatalog()
	require.NoError(t, err)

	_, err = catalog.Resolve(document.IsoMDL, document.FormatSDJWT)
	var de *UnknownDoctypeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, document.IsoMDL, de.DocType)
	assert.Equal(t, document.FormatSDJWT, de.Format)

	_, err = catalog.Resolve("org.example.unknown", document.FormatMdoc)
	assert.True(t, errors.As(err, &de))

	_, err = catalog.Resolve(document.EudiPid, document.FormatUnknown)
	var fe *document.UnsupportedFormatError
	assert.True(t, errors.As(err, &fe))
}

func TestDefaultCatalogClaims(t *testing.T) {
	catalog, err := DefaultCatalog()
	require.NoError(t, err)

	mdl, err := catalog.Resolve(document.IsoMDL, document.FormatMdoc)
	require.NoError(t, err)

	iso := mdl.Namespaces[0]
	assert.True(t, iso.Mandatory.Has("driving_privileges"))
	assert.True(t, iso.Issuer.Has("un_distinguishing_sign"))
	assert.False(t, iso.Issuer.Has("family_name"))

	it := mdl.Namespaces[1]
	assert.Empty(t, it.Mandatory)
	assert.Equal(t, ClaimSet{"sub", "verification"}, it.Issuer)

	assert.Equal(t, 365, mdl.IssuerConfig.Validity)
	require.NotNil(t, mdl.IssuerConfig.Verification)
	assert.Equal(t, "it_spid", mdl.IssuerConfig.Verification.TrustFramework)
	assert.Equal(t, "Ministero dell'Interno", mdl.IssuerConfig.OrganizationName)

	pda1, err := catalog.Resolve("eu.europa.ec.eudi.pda1.1", document.FormatSDJWT)
	require.NoError(t, err)
	union := pda1.Union()
	assert.False(t, union.Mandatory.Has(AtLeastOneOf))
	assert.False(t, union.Optional.Has(AtLeastOneOf))
	assert.True(t, union.Issuer.Has("credential_type"))
	assert.False(t, union.Mandatory.Has("credential_type"))
	assert.Equal(t, "PDA1", pda1.IssuerConfig.CredentialType)

	wua, err := catalog.Resolve("eu.europa.ec.eudi.wallet_attestation.1", document.FormatSDJWT)
	require.NoError(t, err)
	require.NotNil(t, wua.IssuerConfig.WalletAttestation)
	assert.Equal(t, "EUDI Reference Wallet", wua.IssuerConfig.WalletAttestation.WalletName)
}

// Categories of the built-in catalog are not disjoint: issuer-filled dates
// and authorities are also mandatory, derived booleans are also optional.
// Assembly resolves this by precedence, so the overlaps are pinned here.
func TestDefaultCatalogOverlaps(t *testing.T) {
	catalog, err := DefaultCatalog()
	require.NoError(t, err)

	ages := []string{
		"age_over_13", "age_over_16", "age_over_18", "age_over_21", "age_over_25",
		"age_over_60", "age_over_62", "age_over_65", "age_over_68",
	}
	pidOverlaps := append(append([]string{}, ages...),
		"expiry_date", "issuance_date", "issuing_authority", "issuing_jurisdiction")

	want := map[string]map[mdoc.NameSpace][]string{
		"eu.europa.ec.eudi.pid_mdoc": {
			document.EUDIPID1: pidOverlaps,
		},
		"eu.europa.ec.eudi.pid_vc_sd_jwt": {
			mdoc.NameSpace(document.EudiPid): pidOverlaps,
		},
		"org.iso.18013.5.1.mDL": {
			document.ISO1801351: {
				"age_over_18", "age_over_21", "expiry_date", "issue_date", "issuing_authority",
				"issuing_authority_unicode", "issuing_jurisdiction", "un_distinguishing_sign",
			},
		},
		"eu.europa.ec.eudi.pda1_sd_jwt_vc": {
			"eu.europa.ec.eudi.pda1.1": {"expiry_date", "issuance_date"},
		},
		"eu.europa.ec.eudi.wallet_attestation_sd_jwt_vc": {
			"eu.europa.ec.eudi.wallet_attestation.1": {"expiry_date", "issuance_date"},
		},
	}

	supported := catalog.Supported()
	require.Len(t, supported, len(want))
	for _, s := range supported {
		assert.Equal(t, want[s.ID], s.Overlaps(), s.ID)
	}
}

func TestParseCatalogValidation(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{
			name:    "not an object",
			data:    `[]`,
			wantErr: "credentials are not valid",
		},
		{
			name:    "missing issuer_config",
			data:    `{"credential_configurations_supported":{"a":{"format":"mso_mdoc","doctype":"d","claims":[]}}}`,
			wantErr: "issuer_config",
		},
		{
			name: "sd-jwt without organization",
			data: `{"credential_configurations_supported":{"a":{"format":"dc+sd-jwt","doctype":"d","claims":[],
				"issuer_config":{"validity":1}}}}`,
			wantErr: "organization_name",
		},
		{
			name: "unknown format",
			data: `{"credential_configurations_supported":{"a":{"format":"ldp_vc","doctype":"d","claims":[],
				"issuer_config":{"validity":1}}}}`,
			wantErr: "unsupported credential format",
		},
		{
			name: "mdoc path without namespace",
			data: `{"credential_configurations_supported":{"a":{"format":"mso_mdoc","doctype":"d",
				"claims":[{"path":["family_name"],"mandatory":true}],"issuer_config":{"validity":1}}}}`,
			wantErr: "[namespace, claim]",
		},
		{
			name: "duplicate doctype and format",
			data: `{"credential_configurations_supported":{
				"a":{"format":"mso_mdoc","doctype":"d","claims":[],"issuer_config":{"validity":1}},
				"b":{"format":"mdoc","doctype":"d","claims":[],"issuer_config":{"validity":1}}}}`,
			wantErr: "both define doctype d",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseCatalogCategories(t *testing.T) {
	data := `{"credential_configurations_supported":{"cfg":{
		"format":"mso_mdoc","doctype":"d",
		"claims":[
			{"path":["ns1","family_name"],"mandatory":true},
			{"path":["ns1","at_least_one_of"],"mandatory":true},
			{"path":["ns1","nickname"],"mandatory":false},
			{"path":["ns2","issue_date"],"mandatory":true,"source":"issuer"},
			{"path":["ns2","sub"],"source":"issuer"},
			{"path":["ns2","note"]}
		],
		"issuer_config":{"validity":30,"issuing_authority":"X"}}}}`

	catalog, err := ParseCatalog([]byte(data))
	require.NoError(t, err)

	s, ok := catalog.Get("cfg")
	require.True(t, ok)
	require.Len(t, s.Namespaces, 2)

	assert.Equal(t, mdoc.NameSpace("ns1"), s.Namespaces[0].Namespace)
	assert.Equal(t, ClaimSet{"family_name"}, s.Namespaces[0].Mandatory)
	assert.Equal(t, ClaimSet{"nickname"}, s.Namespaces[0].Optional)

	assert.Equal(t, ClaimSet{"issue_date"}, s.Namespaces[1].Mandatory)
	assert.Equal(t, ClaimSet{"issue_date", "sub"}, s.Namespaces[1].Issuer)
	assert.False(t, s.Union().Optional.Has("note"))

	assert.Equal(t, 30, s.IssuerConfig.Validity)
	assert.Equal(t, "X", s.IssuerConfig.IssuingAuthority)
}

func TestLoadCatalog(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, defaultCatalog, 0o600))

	catalog, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Len(t, catalog.Supported(), 5)
}

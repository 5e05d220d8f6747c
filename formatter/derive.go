package formatter

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kokukuma/mdoc-issuer/document"
	"github.com/kokukuma/mdoc-issuer/schema"
)

const dateLayout = "2006-01-02"

const (
	defaultJurisdiction   = "EU"
	defaultTrustFramework = "eidas"
	defaultAssurance      = "high"
	defaultWalletName     = "EUDI Wallet"
	defaultWalletLink     = "https://github.com/eu-digital-identity-wallet"
	defaultAAL            = "high"
)

// DistinguishingSigns maps an issuing country to its UN distinguishing sign.
type DistinguishingSigns interface {
	DistinguishingSign(code string) (string, error)
}

// Input carries everything derivation and assembly read besides the record.
type Input struct {
	Schema    *schema.CredentialSchema
	Country   string
	Today     time.Time
	Now       time.Time
	NewID     func() string
	Countries DistinguishingSigns
}

func (in Input) newID() string {
	if in.NewID == nil {
		return uuid.NewString()
	}
	return in.NewID()
}

// Derive fills every issuer-derived claim the schema's issuer view lists.
// Claims outside that view are never added to the record.
func Derive(st State, in Input) (State, error) {
	if in.Schema == nil {
		return State{}, errors.New("no credential schema")
	}

	out := st.clone()
	rec := out.Record
	issuer := out.Claims.Issuer
	cfg := in.Schema.IssuerConfig

	if err := deriveAges(rec, issuer, in.Today); err != nil {
		return State{}, err
	}

	if rec.Has(string(document.EudiAgeOver18)) {
		out.Claims.Optional = out.Claims.Optional.Add(string(document.EudiAgeOver18))
	}

	if issuer.Has(string(document.IsoUnDistinguishingSign)) {
		sign, err := distinguishingSign(in)
		if err != nil {
			return State{}, err
		}
		rec[string(document.IsoUnDistinguishingSign)] = sign
	}

	today := in.Today.Format(dateLayout)
	for _, name := range []string{string(document.EudiIssuanceDate), string(document.IsoIssueDate)} {
		if issuer.Has(name) {
			rec[name] = today
		}
	}
	if issuer.Has(string(document.EudiExpiryDate)) {
		rec[string(document.EudiExpiryDate)] = in.Today.AddDate(0, 0, cfg.Validity).Format(dateLayout)
	}

	for _, name := range []string{string(document.EudiIssuingAuthority), string(document.IssuingAuthorityUnicode)} {
		if issuer.Has(name) {
			rec[name] = cfg.IssuingAuthority
		}
	}
	if issuer.Has(string(document.EudiIssuingJurisdiction)) {
		rec[string(document.EudiIssuingJurisdiction)] = orDefault(cfg.IssuingJurisdiction, defaultJurisdiction)
	}

	if issuer.Has(string(document.CredentialTypeElement)) {
		rec[string(document.CredentialTypeElement)] = cfg.CredentialType
		out.Claims.Mandatory = out.Claims.Mandatory.Add(string(document.CredentialTypeElement))
	}

	if issuer.Has(string(document.Verification)) {
		rec[string(document.Verification)] = verification(cfg, in.Now)
	}

	var wallet schema.WalletAttestation
	if cfg.WalletAttestation != nil {
		wallet = *cfg.WalletAttestation
	}
	if issuer.Has(string(document.WalletName)) {
		rec[string(document.WalletName)] = orDefault(wallet.WalletName, defaultWalletName)
	}
	if issuer.Has(string(document.WalletLink)) {
		rec[string(document.WalletLink)] = orDefault(wallet.WalletLink, defaultWalletLink)
	}
	if issuer.Has(string(document.AAL)) {
		rec[string(document.AAL)] = orDefault(wallet.AAL, defaultAAL)
	}

	if issuer.Has(string(document.Subject)) {
		rec[string(document.Subject)] = in.newID()
	}

	return out, nil
}

func deriveAges(rec Record, issuer schema.ClaimSet, today time.Time) error {
	var wanted []int
	for _, threshold := range document.AgeThresholds {
		name, err := document.AgeOver(threshold)
		if err != nil {
			return err
		}
		if issuer.Has(string(name)) {
			wanted = append(wanted, threshold)
		}
	}
	birth, ok := rec[string(document.EudiBirthDate)]
	if len(wanted) == 0 || !ok {
		return nil
	}

	age, err := ageAt(birth, today)
	if err != nil {
		return err
	}
	for _, threshold := range wanted {
		name, _ := document.AgeOver(threshold)
		rec[string(name)] = age >= threshold
	}
	return nil
}

// ageAt returns the age in whole years on today, counting a birthday as
// reached on its calendar date.
func ageAt(birth interface{}, today time.Time) (int, error) {
	s, ok := birth.(string)
	if !ok {
		return 0, &MalformedFieldError{
			Field: string(document.EudiBirthDate),
			Err:   fmt.Errorf("expected a date string, got %T", birth),
		}
	}
	b, err := time.Parse(dateLayout, s)
	if err != nil {
		return 0, &MalformedFieldError{Field: string(document.EudiBirthDate), Err: err}
	}

	age := today.Year() - b.Year()
	if today.Month() < b.Month() || (today.Month() == b.Month() && today.Day() < b.Day()) {
		age--
	}
	return age, nil
}

func distinguishingSign(in Input) (string, error) {
	if in.Schema.DocType != document.IsoMDL {
		return "", nil
	}
	if in.Countries == nil {
		return "", errors.New("no country registry configured")
	}
	sign, err := in.Countries.DistinguishingSign(in.Country)
	if err != nil {
		return "", fmt.Errorf("failed to derive %s: %w", document.IsoUnDistinguishingSign, err)
	}
	return sign, nil
}

func verification(cfg schema.IssuerConfig, now time.Time) map[string]interface{} {
	var v schema.Verification
	if cfg.Verification != nil {
		v = *cfg.Verification
	}
	ts := now.UTC().Format(time.RFC3339)

	attestation := map[string]interface{}{
		"type":             "digital_attestation",
		"date_of_issuance": ts,
		"voucher": map[string]interface{}{
			"organization": cfg.OrganizationName,
		},
	}
	if v.ReferenceNumber != "" {
		attestation["reference_number"] = v.ReferenceNumber
	}

	return map[string]interface{}{
		"trust_framework": orDefault(v.TrustFramework, defaultTrustFramework),
		"assurance_level": orDefault(v.AssuranceLevel, defaultAssurance),
		"evidence": []interface{}{
			map[string]interface{}{
				"type":        "vouch",
				"time":        ts,
				"attestation": attestation,
			},
		},
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

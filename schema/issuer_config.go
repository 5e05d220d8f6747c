package schema

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// IssuerConfig holds the issuer_config block of a credential configuration.
type IssuerConfig struct {
	Validity            int                `mapstructure:"validity" json:"validity"`
	IssuingAuthority    string             `mapstructure:"issuing_authority" json:"issuing_authority,omitempty"`
	IssuingJurisdiction string             `mapstructure:"issuing_jurisdiction" json:"issuing_jurisdiction,omitempty"`
	OrganizationName    string             `mapstructure:"organization_name" json:"organization_name,omitempty"`
	OrganizationID      string             `mapstructure:"organization_id" json:"organization_id,omitempty"`
	CredentialType      string             `mapstructure:"credential_type" json:"credential_type,omitempty"`
	WalletAttestation   *WalletAttestation `mapstructure:"wallet_attestation" json:"wallet_attestation,omitempty"`
	Verification        *Verification      `mapstructure:"verification" json:"verification,omitempty"`
}

type WalletAttestation struct {
	WalletName string `mapstructure:"wallet_name" json:"wallet_name,omitempty"`
	WalletLink string `mapstructure:"wallet_link" json:"wallet_link,omitempty"`
	AAL        string `mapstructure:"aal" json:"aal,omitempty"`
}

type Verification struct {
	TrustFramework  string `mapstructure:"trust_framework" json:"trust_framework,omitempty"`
	AssuranceLevel  string `mapstructure:"assurance_level" json:"assurance_level,omitempty"`
	ReferenceNumber string `mapstructure:"reference_number" json:"reference_number,omitempty"`
}

func decodeIssuerConfig(raw map[string]interface{}) (IssuerConfig, error) {
	var cfg IssuerConfig

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return cfg, fmt.Errorf("failed to create issuer_config decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return cfg, fmt.Errorf("failed to decode issuer_config: %w", err)
	}
	if cfg.Validity < 0 {
		return cfg, fmt.Errorf("issuer_config validity must be non-negative: %d", cfg.Validity)
	}
	return cfg, nil
}

package formatter

import (
	"encoding/json"
	"errors"
	"sort"

	"github.com/samber/lo"

	"github.com/kokukuma/mdoc-issuer/document"
	"github.com/kokukuma/mdoc-issuer/mdoc"
	"github.com/kokukuma/mdoc-issuer/schema"
)

// Payload is the unsigned credential content handed to the signing service.
type Payload struct {
	Format     document.Format
	NameSpaces mdoc.IssuerNameSpaces
	SDJWT      *SDJWTPayload
}

type SDJWTPayload struct {
	Evidence []Evidence            `json:"evidence"`
	Claims   map[string]interface{} `json:"claims"`
}

type Evidence struct {
	Type   string         `json:"type"`
	Source EvidenceSource `json:"source"`
}

type EvidenceSource struct {
	OrganizationName string `json:"organization_name"`
	OrganizationID   string `json:"organization_id"`
	CountryCode      string `json:"country_code"`
}

func (p *Payload) MarshalJSON() ([]byte, error) {
	switch p.Format {
	case document.FormatMdoc:
		return json.Marshal(p.NameSpaces)
	case document.FormatSDJWT:
		return json.Marshal(p.SDJWT)
	default:
		return nil, &document.UnsupportedFormatError{Format: p.Format.String()}
	}
}

// Assemble builds the payload for the schema's format. Mandatory claims
// missing from the record are reported together and no payload is returned.
func Assemble(st State, in Input) (*Payload, error) {
	if in.Schema == nil {
		return nil, errors.New("no credential schema")
	}

	switch in.Schema.Format {
	case document.FormatMdoc:
		return assembleMdoc(st, in)
	case document.FormatSDJWT:
		return assembleSDJWT(st, in)
	default:
		return nil, &document.UnsupportedFormatError{Format: in.Schema.Format.String()}
	}
}

func assembleMdoc(st State, in Input) (*Payload, error) {
	nameSpaces := mdoc.IssuerNameSpaces{}
	var missing []string

	for _, ns := range in.Schema.Namespaces {
		items := mdoc.IssuerSignedItems{}
		missing = append(missing, merge(st.Record, ns.Claims, func(name string, v interface{}) {
			items[mdoc.ElementIdentifier(name)] = mdoc.ElementValue(v)
		})...)
		nameSpaces[ns.Namespace] = items
	}

	if err := missingError(missing); err != nil {
		return nil, err
	}
	return &Payload{Format: document.FormatMdoc, NameSpaces: nameSpaces}, nil
}

func assembleSDJWT(st State, in Input) (*Payload, error) {
	claims := map[string]interface{}{}
	missing := merge(st.Record, st.Claims, func(name string, v interface{}) {
		claims[name] = v
	})
	if err := missingError(missing); err != nil {
		return nil, err
	}

	countryCode := in.Country
	if c, ok := st.Record[string(document.EudiIssuingCountry)].(string); ok && c != "" {
		countryCode = c
	}

	cfg := in.Schema.IssuerConfig
	return &Payload{
		Format: document.FormatSDJWT,
		SDJWT: &SDJWTPayload{
			Evidence: []Evidence{{
				Type: string(in.Schema.DocType),
				Source: EvidenceSource{
					OrganizationName: cfg.OrganizationName,
					OrganizationID:   cfg.OrganizationID,
					CountryCode:      countryCode,
				},
			}},
			Claims: claims,
		},
	}, nil
}

// merge copies claims category by category in schema.Precedence order, so a
// later category overwrites an earlier one. It returns the mandatory claims
// absent from rec.
func merge(rec Record, claims schema.Claims, set func(name string, v interface{})) []string {
	var missing []string
	for _, category := range schema.Precedence {
		for _, name := range claims.Get(category) {
			v, ok := rec[name]
			if !ok {
				if category == schema.Mandatory {
					missing = append(missing, name)
				}
				continue
			}
			set(name, v)
		}
	}
	return missing
}

func missingError(missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	fields := lo.Uniq(missing)
	sort.Strings(fields)
	return &MissingRequiredFieldError{Fields: fields}
}

package document

import (
	"fmt"
	"strings"
)

// Format is the credential encoding requested from the signing service.
type Format int

const (
	FormatUnknown Format = iota

	// ISO/IEC 18013-5 mobile document, CBOR encoded
	FormatMdoc

	// SD-JWT based Verifiable Credentials
	FormatSDJWT
)

type CredentialType string

const (
	CredentialTypeMDOC  CredentialType = "mso_mdoc"
	CredentialTypeSDJWT CredentialType = "dc+sd-jwt"
)

var formatAliases = map[string]Format{
	string(CredentialTypeMDOC):  FormatMdoc,
	"mdoc":                      FormatMdoc,
	string(CredentialTypeSDJWT): FormatSDJWT,
	"vc+sd-jwt":                 FormatSDJWT,
	"sd_jwt":                    FormatSDJWT,
	"vc_sd_jwt":                 FormatSDJWT,
}

// UnsupportedFormatError is returned when a format string names neither mdoc nor SD-JWT.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported credential format: %q", e.Format)
}

func ParseFormat(s string) (Format, error) {
	f, ok := formatAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return FormatUnknown, &UnsupportedFormatError{Format: s}
	}
	return f, nil
}

// CredentialType returns the wire name of the format.
func (f Format) CredentialType() CredentialType {
	switch f {
	case FormatMdoc:
		return CredentialTypeMDOC
	case FormatSDJWT:
		return CredentialTypeSDJWT
	default:
		return ""
	}
}

func (f Format) String() string {
	if ct := f.CredentialType(); ct != "" {
		return string(ct)
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

func (f Format) MarshalText() ([]byte, error) {
	if f.CredentialType() == "" {
		return nil, &UnsupportedFormatError{Format: f.String()}
	}
	return []byte(f.CredentialType()), nil
}

func (f *Format) UnmarshalText(b []byte) error {
	parsed, err := ParseFormat(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

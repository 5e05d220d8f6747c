package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/kokukuma/mdoc-issuer/document"
	"github.com/kokukuma/mdoc-issuer/internal/log"
	"github.com/kokukuma/mdoc-issuer/mdoc"
)

var logger = log.New("schema")

//go:embed catalog.schema.json
var catalogJSONSchema string

//go:embed credentials.json
var defaultCatalog []byte

var catalogSchemaLoader = gojsonschema.NewStringLoader(catalogJSONSchema)

// Resolver looks up the schema for a doctype in a given format.
type Resolver interface {
	Resolve(docType mdoc.DocType, format document.Format) (*CredentialSchema, error)
}

// UnknownDoctypeError is returned when no configuration exists for the
// requested doctype and format.
type UnknownDoctypeError struct {
	DocType mdoc.DocType
	Format  document.Format
}

func (e *UnknownDoctypeError) Error() string {
	return fmt.Sprintf("no credential configuration for doctype %q in format %s", e.DocType, e.Format)
}

type catalogKey struct {
	docType mdoc.DocType
	format  document.Format
}

// Catalog is the read-only set of credential configurations.
type Catalog struct {
	schemas map[catalogKey]*CredentialSchema
	ids     []string
	byID    map[string]*CredentialSchema
}

type catalogFile struct {
	Configurations map[string]json.RawMessage `json:"credential_configurations_supported"`
}

type configuration struct {
	Format       string                 `json:"format"`
	DocType      string                 `json:"doctype"`
	Claims       []claimDescription     `json:"claims"`
	IssuerConfig map[string]interface{} `json:"issuer_config"`
}

type claimDescription struct {
	Path      []string `json:"path"`
	Mandatory *bool    `json:"mandatory,omitempty"`
	Source    string   `json:"source,omitempty"`
}

func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// DefaultCatalog returns the built-in PID, mDL, PDA1 and wallet attestation configurations.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	result, err := gojsonschema.Validate(catalogSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to validate credentials: %w", err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("%s", describeSchemaValidationError(result))
	}

	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credentials: %w", err)
	}

	catalog := &Catalog{
		schemas: map[catalogKey]*CredentialSchema{},
		byID:    map[string]*CredentialSchema{},
	}

	ids := make([]string, 0, len(file.Configurations))
	for id := range file.Configurations {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		raw := file.Configurations[id]

		s, err := parseConfiguration(id, raw)
		if err != nil {
			return nil, err
		}

		key := catalogKey{docType: s.DocType, format: s.Format}
		if existing, ok := catalog.schemas[key]; ok {
			return nil, fmt.Errorf("credential configurations %s and %s both define doctype %s in format %s",
				existing.ID, id, s.DocType, s.Format)
		}

		catalog.schemas[key] = s
		catalog.byID[id] = s
		catalog.ids = append(catalog.ids, id)

		logger.Info("load credential configuration",
			log.WithID(id), log.WithDocType(string(s.DocType)), log.WithFormat(s.Format.String()))
	}

	return catalog, nil
}

func parseConfiguration(id string, raw json.RawMessage) (*CredentialSchema, error) {
	var cfg configuration
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential configuration %s: %w", id, err)
	}

	format, err := document.ParseFormat(cfg.Format)
	if err != nil {
		return nil, fmt.Errorf("credential configuration %s: %w", id, err)
	}

	issuerConfig, err := decodeIssuerConfig(cfg.IssuerConfig)
	if err != nil {
		return nil, fmt.Errorf("credential configuration %s: %w", id, err)
	}

	namespaces, err := groupClaims(mdoc.DocType(cfg.DocType), format, cfg.Claims)
	if err != nil {
		return nil, fmt.Errorf("credential configuration %s: %w", id, err)
	}

	return &CredentialSchema{
		ID:           id,
		DocType:      mdoc.DocType(cfg.DocType),
		Format:       format,
		Namespaces:   namespaces,
		IssuerConfig: issuerConfig,
		Metadata:     raw,
	}, nil
}

// groupClaims splits claim descriptions into categories per namespace, in
// order of first appearance. SD-JWT claims share one namespace named after
// the doctype.
func groupClaims(docType mdoc.DocType, format document.Format, claims []claimDescription) ([]NamespaceClaims, error) {
	var namespaces []NamespaceClaims
	index := map[mdoc.NameSpace]int{}

	for _, c := range claims {
		ns, name, err := claimPath(docType, format, c.Path)
		if err != nil {
			return nil, err
		}

		i, ok := index[ns]
		if !ok {
			i = len(namespaces)
			index[ns] = i
			namespaces = append(namespaces, NamespaceClaims{Namespace: ns})
		}
		n := &namespaces[i]

		if c.Mandatory != nil {
			if *c.Mandatory {
				n.Mandatory = n.Mandatory.Add(name)
			} else {
				n.Optional = n.Optional.Add(name)
			}
		}
		if c.Source == "issuer" {
			n.Issuer = n.Issuer.Add(name)
		}
	}

	for i := range namespaces {
		namespaces[i].Mandatory = namespaces[i].Mandatory.Without(AtLeastOneOf)
		namespaces[i].Optional = namespaces[i].Optional.Without(AtLeastOneOf)
	}

	return namespaces, nil
}

func claimPath(docType mdoc.DocType, format document.Format, path []string) (mdoc.NameSpace, string, error) {
	switch format {
	case document.FormatMdoc:
		if len(path) != 2 {
			return "", "", fmt.Errorf("mdoc claim path must be [namespace, claim]: %v", path)
		}
		return mdoc.NameSpace(path[0]), path[1], nil
	default:
		if len(path) == 0 {
			return "", "", fmt.Errorf("empty claim path")
		}
		return mdoc.NameSpace(docType), path[0], nil
	}
}

func describeSchemaValidationError(result *gojsonschema.Result) string {
	var b strings.Builder
	b.WriteString("credentials are not valid:\n")
	for _, desc := range result.Errors() {
		fmt.Fprintf(&b, "- %s\n", desc)
	}
	return b.String()
}

func (c *Catalog) Resolve(docType mdoc.DocType, format document.Format) (*CredentialSchema, error) {
	if format.CredentialType() == "" {
		return nil, &document.UnsupportedFormatError{Format: format.String()}
	}

	s, ok := c.schemas[catalogKey{docType: docType, format: format}]
	if !ok {
		return nil, &UnknownDoctypeError{DocType: docType, Format: format}
	}
	return s, nil
}

// Get returns a configuration by its id.
func (c *Catalog) Get(id string) (*CredentialSchema, bool) {
	s, ok := c.byID[id]
	return s, ok
}

// Supported returns the configurations in id order.
func (c *Catalog) Supported() []*CredentialSchema {
	supported := make([]*CredentialSchema, 0, len(c.ids))
	for _, id := range c.ids {
		supported = append(supported, c.byID[id])
	}
	return supported
}

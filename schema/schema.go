// Package schema resolves which claims a credential configuration requires,
// accepts and fills in itself.
package schema

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/kokukuma/mdoc-issuer/document"
	"github.com/kokukuma/mdoc-issuer/mdoc"
)

// AtLeastOneOf is a catalog pseudo-claim, never a real element.
const AtLeastOneOf = "at_least_one_of"

type Category int

const (
	Mandatory Category = iota
	Optional
	Issuer
)

// Precedence is the order in which categories are copied into a payload.
// Later categories overwrite earlier ones.
var Precedence = []Category{Mandatory, Optional, Issuer}

func (c Category) String() string {
	switch c {
	case Mandatory:
		return "mandatory"
	case Optional:
		return "optional"
	case Issuer:
		return "issuer"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

// ClaimSet is an ordered set of claim names. Operations return new sets.
type ClaimSet []string

func NewClaimSet(names ...string) ClaimSet {
	return ClaimSet(lo.Uniq(names))
}

func (c ClaimSet) Has(name string) bool {
	return lo.Contains(c, name)
}

func (c ClaimSet) Add(names ...string) ClaimSet {
	return NewClaimSet(append(append([]string{}, c...), names...)...)
}

func (c ClaimSet) Without(names ...string) ClaimSet {
	return ClaimSet(lo.Without([]string(c), names...))
}

func (c ClaimSet) Union(o ClaimSet) ClaimSet {
	return c.Add(o...)
}

// Claims groups claim names by category.
type Claims struct {
	Mandatory ClaimSet `json:"mandatory"`
	Optional  ClaimSet `json:"optional"`
	Issuer    ClaimSet `json:"issuer"`
}

func (c Claims) Get(category Category) ClaimSet {
	switch category {
	case Mandatory:
		return c.Mandatory
	case Optional:
		return c.Optional
	case Issuer:
		return c.Issuer
	default:
		return nil
	}
}

func (c Claims) Union(o Claims) Claims {
	return Claims{
		Mandatory: c.Mandatory.Union(o.Mandatory),
		Optional:  c.Optional.Union(o.Optional),
		Issuer:    c.Issuer.Union(o.Issuer),
	}
}

// Overlaps returns the names listed in more than one category, sorted.
func (c Claims) Overlaps() []string {
	seen := map[string]int{}
	for _, category := range Precedence {
		for _, name := range c.Get(category) {
			seen[name]++
		}
	}
	overlaps := lo.Keys(lo.PickBy(seen, func(_ string, n int) bool { return n > 1 }))
	sort.Strings(overlaps)
	return overlaps
}

type NamespaceClaims struct {
	Namespace mdoc.NameSpace `json:"namespace"`
	Claims
}

// CredentialSchema is one entry of the credential catalog. It is never
// modified after the catalog is loaded.
type CredentialSchema struct {
	ID           string
	DocType      mdoc.DocType
	Format       document.Format
	Namespaces   []NamespaceClaims
	IssuerConfig IssuerConfig

	// Metadata is the raw configuration, forwarded to the signing service.
	Metadata json.RawMessage
}

func (s *CredentialSchema) NameSpaces() []mdoc.NameSpace {
	return lo.Map(s.Namespaces, func(n NamespaceClaims, _ int) mdoc.NameSpace { return n.Namespace })
}

// Union merges the claims of every namespace into doctype-level views.
func (s *CredentialSchema) Union() Claims {
	var union Claims
	for _, ns := range s.Namespaces {
		union = union.Union(ns.Claims)
	}
	return union
}

// Overlaps reports, per namespace, claims that appear in more than one category.
func (s *CredentialSchema) Overlaps() map[mdoc.NameSpace][]string {
	overlaps := map[mdoc.NameSpace][]string{}
	for _, ns := range s.Namespaces {
		if names := ns.Overlaps(); len(names) > 0 {
			overlaps[ns.Namespace] = names
		}
	}
	return overlaps
}

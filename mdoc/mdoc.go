package mdoc

import (
	"fmt"
	"sort"
)

type DocType string

type NameSpace string

type ElementIdentifier string

type ElementValue interface{}

// IssuerNameSpaces is the unsigned, namespace-keyed element set handed to the
// signing service. Every namespace of the doctype is present, even when empty.
type IssuerNameSpaces map[NameSpace]IssuerSignedItems

type IssuerSignedItems map[ElementIdentifier]ElementValue

func (i IssuerNameSpaces) GetNameSpaces() []NameSpace {
	nss := []NameSpace{}
	for ns := range i {
		nss = append(nss, ns)
	}
	sort.Slice(nss, func(a, b int) bool { return nss[a] < nss[b] })
	return nss
}

func (i IssuerNameSpaces) GetElementValue(namespace NameSpace, elementIdentifier ElementIdentifier) (ElementValue, error) {
	items, exists := i[namespace]
	if !exists {
		return nil, fmt.Errorf("namespace %s not found", namespace)
	}
	value, exists := items[elementIdentifier]
	if !exists {
		return nil, fmt.Errorf("element %s not found in namespace %s", elementIdentifier, namespace)
	}
	return value, nil
}

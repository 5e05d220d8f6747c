// Package country holds the countries an issuer serves.
package country

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

//go:embed countries.json
var defaultCountries []byte

var ErrUnknownCountry = errors.New("country not supported")

type Country struct {
	Code                 string `json:"code"`
	Name                 string `json:"name"`
	UNDistinguishingSign string `json:"un_distinguishing_sign"`
}

// Registry is read-only after construction.
type Registry struct {
	countries map[string]Country
}

type registryFile struct {
	Countries map[string]Country `json:"countries"`
}

func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read countries file %s: %w", path, err)
	}
	return Parse(data)
}

func Default() (*Registry, error) {
	return Parse(defaultCountries)
}

func Parse(data []byte) (*Registry, error) {
	var file registryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal countries: %w", err)
	}
	if len(file.Countries) == 0 {
		return nil, errors.New("no countries configured")
	}
	return NewRegistry(file.Countries), nil
}

func NewRegistry(countries map[string]Country) *Registry {
	r := &Registry{countries: make(map[string]Country, len(countries))}
	for code, c := range countries {
		code = strings.ToUpper(code)
		c.Code = code
		r.countries[code] = c
	}
	return r
}

func (r *Registry) Lookup(code string) (Country, error) {
	c, ok := r.countries[strings.ToUpper(code)]
	if !ok {
		return Country{}, fmt.Errorf("%w: %q", ErrUnknownCountry, code)
	}
	return c, nil
}

func (r *Registry) Supports(code string) bool {
	_, err := r.Lookup(code)
	return err == nil
}

func (r *Registry) DistinguishingSign(code string) (string, error) {
	c, err := r.Lookup(code)
	if err != nil {
		return "", err
	}
	return c.UNDistinguishingSign, nil
}

// All returns the countries ordered by code.
func (r *Registry) All() []Country {
	all := make([]Country, 0, len(r.countries))
	for _, c := range r.countries {
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })
	return all
}

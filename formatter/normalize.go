package formatter

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"github.com/kokukuma/mdoc-issuer/document"
	"github.com/kokukuma/mdoc-issuer/mdoc"
)

// Composite elements arrive from forms as JSON text or as a one-element list.
var compositeElements = []mdoc.ElementIdentifier{
	document.IsoDrivingPrivileges,
	document.PlacesOfWork,
	document.Legislation,
	document.EmploymentDetails,
	document.CompetentInstitution,
	document.CredentialHolder,
	document.CredentialSubject,
}

// Repeatable composite elements keep every list entry.
var repeatableElements = []mdoc.ElementIdentifier{
	document.PlacesOfWork,
	document.EmploymentDetails,
}

var numericElements = []mdoc.ElementIdentifier{
	document.IsoAgeInYears,
	document.IsoAgeBirthYear,
}

// Normalize coerces composite and numeric claims into their structured form.
func Normalize(st State) (State, error) {
	out := st.clone()

	for _, id := range compositeElements {
		name := string(id)
		if !out.Claims.Mandatory.Has(name) && !out.Claims.Optional.Has(name) {
			continue
		}
		v, ok := out.Record[name]
		if !ok {
			continue
		}
		value, err := normalizeComposite(id, v)
		if err != nil {
			return State{}, err
		}
		out.Record[name] = value
	}

	for _, id := range numericElements {
		name := string(id)
		s, ok := out.Record[name].(string)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return State{}, &InvalidNumberError{Field: name, Value: s, Err: err}
		}
		out.Record[name] = n
	}

	return out, nil
}

func normalizeComposite(id mdoc.ElementIdentifier, v interface{}) (interface{}, error) {
	if s, ok := v.(string); ok {
		if !gjson.Valid(s) {
			return nil, &MalformedFieldError{Field: string(id), Err: errors.New("invalid JSON")}
		}
		return jsonValue(gjson.Parse(s)), nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice || lo.Contains(repeatableElements, id) {
		return v, nil
	}
	if rv.Len() == 0 {
		return nil, &MalformedFieldError{Field: string(id), Err: errors.New("empty list")}
	}
	return rv.Index(0).Interface(), nil
}

// jsonValue converts parsed JSON, keeping integer literals as exact integers.
func jsonValue(r gjson.Result) interface{} {
	switch {
	case r.IsObject():
		m := make(map[string]interface{})
		r.ForEach(func(k, v gjson.Result) bool {
			m[k.String()] = jsonValue(v)
			return true
		})
		return m
	case r.IsArray():
		items := r.Array()
		out := make([]interface{}, len(items))
		for i, item := range items {
			out[i] = jsonValue(item)
		}
		return out
	case r.Type == gjson.Number && !strings.ContainsAny(r.Raw, ".eE"):
		if i, err := strconv.ParseInt(r.Raw, 10, 64); err == nil {
			return i
		}
		if u, err := strconv.ParseUint(r.Raw, 10, 64); err == nil {
			return u
		}
		return r.Num
	default:
		return r.Value()
	}
}

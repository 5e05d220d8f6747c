// Package formatter maps submitted attributes onto the claim layout of a
// credential configuration.
package formatter

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kokukuma/mdoc-issuer/document"
	"github.com/kokukuma/mdoc-issuer/internal/log"
	"github.com/kokukuma/mdoc-issuer/mdoc"
	"github.com/kokukuma/mdoc-issuer/schema"
)

var logger = log.New("formatter")

type Formatter struct {
	resolver  schema.Resolver
	countries DistinguishingSigns
	now       func() time.Time
	newID     func() string
	logger    *log.Log
}

type Option func(*Formatter)

func WithClock(now func() time.Time) Option {
	return func(f *Formatter) {
		f.now = now
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(f *Formatter) {
		f.newID = newID
	}
}

func WithLogger(l *log.Log) Option {
	return func(f *Formatter) {
		f.logger = l
	}
}

func New(resolver schema.Resolver, countries DistinguishingSigns, opts ...Option) *Formatter {
	f := &Formatter{
		resolver:  resolver,
		countries: countries,
		now:       time.Now,
		newID:     uuid.NewString,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type Request struct {
	DocType string
	Format  string
	Country string
	Data    map[string]interface{}

	// Today overrides the issuance date. The clock's UTC date is used when zero.
	Today time.Time
}

type Result struct {
	Schema  *schema.CredentialSchema
	Payload *Payload
}

// Format resolves the configuration for the request and runs derivation,
// normalization and assembly over a copy of its data.
func (f *Formatter) Format(req Request) (*Result, error) {
	format, err := document.ParseFormat(req.Format)
	if err != nil {
		return nil, err
	}
	s, err := f.resolver.Resolve(mdoc.DocType(req.DocType), format)
	if err != nil {
		return nil, err
	}

	now := f.now()
	today := req.Today
	if today.IsZero() {
		today = now.UTC()
	}
	in := Input{
		Schema:    s,
		Country:   req.Country,
		Today:     time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC),
		Now:       now,
		NewID:     f.newID,
		Countries: f.countries,
	}

	st := State{Record: Record(req.Data).Clone(), Claims: s.Union()}

	st, err = Derive(st, in)
	if err != nil {
		return nil, fmt.Errorf("derive: %w", err)
	}
	st, err = Normalize(st)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	payload, err := Assemble(st, in)
	if err != nil {
		return nil, fmt.Errorf("assemble: %w", err)
	}

	f.logger.Debug("payload assembled",
		log.WithDocType(req.DocType),
		log.WithFormat(format.String()),
		log.WithClaims(st.Record.Names()),
	)
	if f.logger.IsEnabled(log.DEBUG) {
		f.logger.Debug("payload dump", log.WithPayload(payload))
	}

	return &Result{Schema: s, Payload: payload}, nil
}

package server

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrIssuanceNotFound = errors.New("issuance not found")

type IssuanceStatus string

const (
	StatusPending  IssuanceStatus = "pending"
	StatusIssued   IssuanceStatus = "issued"
	StatusRejected IssuanceStatus = "rejected"
	StatusFailed   IssuanceStatus = "failed"
)

// Issuance is the status record of one credential request. Credentials and
// claim values are never kept.
type Issuance struct {
	ID        string         `json:"request_id"`
	DocType   string         `json:"doctype"`
	Format    string         `json:"format"`
	Country   string         `json:"country"`
	Status    IssuanceStatus `json:"status"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

const (
	DefaultIssuanceTTL      = 24 * time.Hour
	DefaultIssuanceCapacity = 10000
)

// Issuances keeps status records for at most ttl after creation. When the
// store is full the oldest record is evicted.
type Issuances struct {
	mu        sync.RWMutex
	issuances map[string]*Issuance
	order     []string
	ttl       time.Duration
	capacity  int
	now       func() time.Time
}

type StoreOption func(*Issuances)

func WithIssuanceTTL(ttl time.Duration) StoreOption {
	return func(s *Issuances) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithIssuanceCapacity(capacity int) StoreOption {
	return func(s *Issuances) {
		if capacity > 0 {
			s.capacity = capacity
		}
	}
}

func NewIssuances(now func() time.Time, opts ...StoreOption) *Issuances {
	if now == nil {
		now = time.Now
	}
	s := &Issuances{
		issuances: make(map[string]*Issuance),
		ttl:       DefaultIssuanceTTL,
		capacity:  DefaultIssuanceCapacity,
		now:       now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Issuances) save(data *Issuance) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evict(data.CreatedAt)

	data.ID = uuid.New().String()
	s.issuances[data.ID] = data
	s.order = append(s.order, data.ID)

	return data.ID
}

// evict drops expired records and makes room for one more. Records are
// ordered by creation, so both run from the front.
func (s *Issuances) evict(now time.Time) {
	n := 0
	for ; n < len(s.order); n++ {
		issuance := s.issuances[s.order[n]]
		if !s.expired(issuance, now) && len(s.order)-n < s.capacity {
			break
		}
		delete(s.issuances, s.order[n])
	}
	s.order = append(s.order[:0], s.order[n:]...)
}

func (s *Issuances) expired(issuance *Issuance, now time.Time) bool {
	return now.Sub(issuance.CreatedAt) >= s.ttl
}

// Len returns the number of records held.
func (s *Issuances) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.issuances)
}

func (s *Issuances) NewIssuance(docType, format, country string) Issuance {
	now := s.now()
	issuance := &Issuance{
		DocType:   docType,
		Format:    format,
		Country:   country,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.save(issuance)
	return *issuance
}

func (s *Issuances) Complete(id string) error {
	return s.update(id, StatusIssued, "")
}

func (s *Issuances) Reject(id string, reason error) error {
	return s.update(id, StatusRejected, reason.Error())
}

func (s *Issuances) Fail(id string, reason error) error {
	return s.update(id, StatusFailed, reason.Error())
}

func (s *Issuances) update(id string, status IssuanceStatus, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	issuance, ok := s.issuances[id]
	if !ok || s.expired(issuance, s.now()) {
		return ErrIssuanceNotFound
	}
	issuance.Status = status
	issuance.Error = reason
	issuance.UpdatedAt = s.now()
	return nil
}

// GetIssuance returns a copy of the record.
func (s *Issuances) GetIssuance(id string) (Issuance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	issuance, ok := s.issuances[id]
	if !ok || s.expired(issuance, s.now()) {
		return Issuance{}, ErrIssuanceNotFound
	}
	return *issuance, nil
}

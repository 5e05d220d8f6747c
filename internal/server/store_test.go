package server

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuances(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewIssuances(func() time.Time { return now })

	issued := store.NewIssuance("eu.europa.ec.eudi.pid.1", "mso_mdoc", "PT")
	rejected := store.NewIssuance("eu.europa.ec.eudi.pid.1", "dc+sd-jwt", "PT")
	assert.NotEqual(t, issued.ID, rejected.ID)
	assert.Equal(t, StatusPending, issued.Status)

	now = now.Add(time.Minute)
	require.NoError(t, store.Complete(issued.ID))
	require.NoError(t, store.Reject(rejected.ID, errors.New("missing required fields: family_name")))

	got, err := store.GetIssuance(issued.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusIssued, got.Status)
	assert.Equal(t, now, got.UpdatedAt)
	assert.True(t, got.CreatedAt.Before(got.UpdatedAt))

	got, err = store.GetIssuance(rejected.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, got.Status)
	assert.Equal(t, "missing required fields: family_name", got.Error)

	// copies do not alias the stored record
	got.Status = StatusFailed
	again, err := store.GetIssuance(rejected.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, again.Status)
}

func TestIssuancesNotFound(t *testing.T) {
	store := NewIssuances(nil)

	_, err := store.GetIssuance("unknown")
	assert.ErrorIs(t, err, ErrIssuanceNotFound)
	assert.ErrorIs(t, store.Fail("unknown", errors.New("boom")), ErrIssuanceNotFound)
}

func TestIssuancesExpire(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewIssuances(func() time.Time { return now }, WithIssuanceTTL(time.Hour))

	old := store.NewIssuance("org.iso.18013.5.1.mDL", "mso_mdoc", "FC")

	now = now.Add(30 * time.Minute)
	recent := store.NewIssuance("org.iso.18013.5.1.mDL", "mso_mdoc", "FC")

	now = now.Add(30 * time.Minute)
	_, err := store.GetIssuance(old.ID)
	assert.ErrorIs(t, err, ErrIssuanceNotFound)
	assert.ErrorIs(t, store.Complete(old.ID), ErrIssuanceNotFound)

	_, err = store.GetIssuance(recent.ID)
	require.NoError(t, err)

	// expired records are dropped on the next write
	assert.Equal(t, 2, store.Len())
	store.NewIssuance("org.iso.18013.5.1.mDL", "mso_mdoc", "FC")
	assert.Equal(t, 2, store.Len())
}

func TestIssuancesCapacity(t *testing.T) {
	store := NewIssuances(nil, WithIssuanceCapacity(3))

	var ids []string
	for i := 0; i < 10; i++ {
		ids = append(ids, store.NewIssuance("eu.europa.ec.eudi.pid.1", "mso_mdoc", "PT").ID)
	}

	assert.Equal(t, 3, store.Len())
	for _, id := range ids[:7] {
		_, err := store.GetIssuance(id)
		assert.ErrorIs(t, err, ErrIssuanceNotFound)
	}
	for _, id := range ids[7:] {
		_, err := store.GetIssuance(id)
		assert.NoError(t, err)
	}
}

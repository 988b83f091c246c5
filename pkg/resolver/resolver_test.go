package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paystream-hq/payflow/pkg/models"
)

// mockLookup records calls and serves a fixed identifier table.
type mockLookup struct {
	entries map[string]common.Address
	err     error
	calls   int
}

func (m *mockLookup) Resolve(_ context.Context, identifier string) (common.Address, bool, error) {
	m.calls++
	if m.err != nil {
		return common.Address{}, false, m.err
	}
	addr, ok := m.entries[identifier]
	return addr, ok, nil
}

func TestResolveAddressPassthrough(t *testing.T) {
	lookup := &mockLookup{}
	r := New(lookup, nil)

	addr, err := r.Resolve(context.Background(), "0x1234567890abcdef1234567890abcdef12345678")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678"), addr)

	// Address-shaped identifiers must never hit the identity service.
	assert.Equal(t, 0, lookup.calls)
}

func TestResolvePhoneIdentifier(t *testing.T) {
	want := common.HexToAddress("0xAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAa")
	lookup := &mockLookup{entries: map[string]common.Address{
		"+254712345678": want,
	}}
	r := New(lookup, nil)

	addr, err := r.Resolve(context.Background(), "+254712345678")
	require.NoError(t, err)
	assert.Equal(t, want, addr)
	assert.Equal(t, 1, lookup.calls)
}

func TestResolveUnknownIdentifier(t *testing.T) {
	r := New(&mockLookup{entries: map[string]common.Address{}}, nil)

	_, err := r.Resolve(context.Background(), "+254700000000")
	assert.ErrorIs(t, err, models.ErrUnresolvedRecipient)
}

func TestResolveEmptyIdentifier(t *testing.T) {
	lookup := &mockLookup{}
	r := New(lookup, nil)

	_, err := r.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, models.ErrUnresolvedRecipient)
	assert.Equal(t, 0, lookup.calls)
}

func TestResolveLookupError(t *testing.T) {
	r := New(&mockLookup{err: errors.New("identity service down")}, nil)

	_, err := r.Resolve(context.Background(), "+254712345678")
	require.Error(t, err)

	// A transport failure is not the same as "no mapping exists".
	assert.NotErrorIs(t, err, models.ErrUnresolvedRecipient)
}

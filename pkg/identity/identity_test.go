package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/identities/resolve", r.URL.Path)
		assert.Equal(t, "+254712345678", r.URL.Query().Get("identifier"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"address":"0x1234567890abcdef1234567890abcdef12345678"}`))
	}))
	defer server.Close()

	client := New(server.URL, nil)
	addr, found, err := client.Resolve(context.Background(), "+254712345678")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678"), addr)
}

func TestResolveNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL, nil)
	_, found, err := client.Resolve(context.Background(), "+254700000000")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestResolveServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(server.URL, nil)
	_, _, err := client.Resolve(context.Background(), "+254712345678")
	assert.Error(t, err)
}

func TestResolveInvalidAddress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"address":"not-an-address"}`))
	}))
	defer server.Close()

	client := New(server.URL, nil)
	_, _, err := client.Resolve(context.Background(), "+254712345678")
	assert.Error(t, err)
}

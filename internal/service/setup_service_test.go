package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/makerlabExp/pickupConnect/internal/dto"
)

func TestSetupValidateAcceptsWorkingBackend(t *testing.T) {
	var gotPath, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("apikey")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("[]"))
	}))
	defer server.Close()

	svc := NewSetupService(testValidator(), testLogger())
	result := svc.Validate(context.Background(), dto.SetupCredentials{URL: server.URL, Key: "anon-key-123"})

	require.True(t, result.Valid)
	require.Equal(t, "/rest/v1/students", gotPath)
	require.Equal(t, "anon-key-123", gotKey)
}

func TestSetupValidateRejectsBadCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	svc := NewSetupService(testValidator(), testLogger())
	result := svc.Validate(context.Background(), dto.SetupCredentials{URL: server.URL, Key: "wrong-key-1"})

	require.False(t, result.Valid)
	require.Contains(t, result.Message, "401")
}

func TestSetupValidateUnreachableBackend(t *testing.T) {
	svc := NewSetupService(testValidator(), testLogger())
	result := svc.Validate(context.Background(), dto.SetupCredentials{URL: "http://127.0.0.1:1", Key: "some-key-99"})

	require.False(t, result.Valid)
	require.NotEmpty(t, result.Message)
}

func TestSetupValidateMissingFields(t *testing.T) {
	svc := NewSetupService(testValidator(), testLogger())
	result := svc.Validate(context.Background(), dto.SetupCredentials{})
	require.False(t, result.Valid)
}

func TestMagicLinkRoundTrip(t *testing.T) {
	svc := NewSetupService(testValidator(), testLogger())

	creds := dto.SetupCredentials{URL: "https://backend.example.com", Key: "anon-key-123"}
	link, err := svc.EncodeMagicLink(creds, "https://pickup.example.com/")
	require.NoError(t, err)
	require.NotEmpty(t, link.Config)
	require.Contains(t, link.Link, "https://pickup.example.com/?config=")

	decoded, err := svc.DecodeMagicLink(link.Config)
	require.NoError(t, err)
	require.Equal(t, creds, decoded)
}

func TestDecodeMagicLinkRepairsSpaces(t *testing.T) {
	svc := NewSetupService(testValidator(), testLogger())

	creds := dto.SetupCredentials{URL: "https://backend.example.com", Key: "anon-key-123"}
	link, err := svc.EncodeMagicLink(creds, "https://pickup.example.com")
	require.NoError(t, err)

	// Plus signs arrive as spaces when the blob travels unescaped.
	mangled := make([]byte, len(link.Config))
	copy(mangled, link.Config)
	for i := range mangled {
		if mangled[i] == '+' {
			mangled[i] = ' '
		}
	}

	decoded, err := svc.DecodeMagicLink(string(mangled))
	require.NoError(t, err)
	require.Equal(t, creds, decoded)
}

func TestDecodeMagicLinkRejectsGarbage(t *testing.T) {
	svc := NewSetupService(testValidator(), testLogger())

	_, err := svc.DecodeMagicLink("!!!not-base64!!!")
	require.Error(t, err)

	_, err = svc.DecodeMagicLink("bm90IGpzb24=")
	require.Error(t, err)
}

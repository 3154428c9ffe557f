package postalcode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientLookup(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"cep":"20040-002","logradouro":"Rua da Assembleia","bairro":"Centro","localidade":"Rio de Janeiro","uf":"rj"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/ws/", time.Second)
	addr, err := client.Lookup(context.Background(), "20040-002")
	require.NoError(t, err)

	assert.Equal(t, "/ws/20040002/json/", gotPath)
	assert.Equal(t, Address{
		PostalCode:   "20040002",
		Street:       "Rua da Assembleia",
		Neighborhood: "Centro",
		City:         "Rio de Janeiro",
		State:        "RJ",
	}, addr)
}

func TestClientLookup_NotFoundMarker(t *testing.T) {
	for _, body := range []string{`{"erro":true}`, `{"erro":"true"}`} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))

		_, err := NewClient(srv.URL, time.Second).Lookup(context.Background(), "99999999")
		assert.ErrorIs(t, err, ErrNotFound, body)
		srv.Close()
	}
}

func TestClientLookup_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/00000000/json/":
			w.WriteHeader(http.StatusBadGateway)
		case "/11111111/json/":
			_, _ = w.Write([]byte(`not json`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()
	client := NewClient(srv.URL, time.Second)

	_, err := client.Lookup(context.Background(), "0000-0000")
	assert.ErrorIs(t, err, ErrLookupUnavailable)

	_, err = client.Lookup(context.Background(), "11111111")
	assert.ErrorIs(t, err, ErrLookupBadResponse)

	_, err = client.Lookup(context.Background(), "22222222")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = client.Lookup(context.Background(), "1234")
	assert.ErrorIs(t, err, ErrInvalidPostalCode)
}

func TestClientLookup_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewClient(srv.URL, 50*time.Millisecond).Lookup(context.Background(), "01310100")
	assert.ErrorIs(t, err, ErrLookupUnavailable)
}

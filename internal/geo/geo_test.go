package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/1.2.3.4", r.URL.Path)
		w.Write([]byte(`{"success": true, "country": "India", "city": "Chennai"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	obs := client.Lookup(context.Background(), "1.2.3.4")
	assert.Equal(t, Observation{Country: "India", City: "Chennai"}, obs)
}

func TestLookup_UnsuccessfulResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "message": "reserved range"}`))
	}))
	defer srv.Close()

	obs := NewClient(srv.URL, time.Second).Lookup(context.Background(), "127.0.0.1")
	assert.Equal(t, Unknown, obs)
}

func TestLookup_MissingFieldsDegradeToUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true, "country": "Germany"}`))
	}))
	defer srv.Close()

	obs := NewClient(srv.URL, time.Second).Lookup(context.Background(), "1.2.3.4")
	assert.Equal(t, Observation{Country: "Germany", City: "Unknown"}, obs)
}

func TestLookup_NeverFails(t *testing.T) {
	t.Run("empty ip", func(t *testing.T) {
		obs := NewClient("http://unused.invalid", time.Second).Lookup(context.Background(), "")
		assert.Equal(t, Unknown, obs)
	})

	t.Run("unreachable server", func(t *testing.T) {
		obs := NewClient("http://127.0.0.1:1", 100*time.Millisecond).Lookup(context.Background(), "1.2.3.4")
		assert.Equal(t, Unknown, obs)
	})

	t.Run("garbage body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		}))
		defer srv.Close()

		obs := NewClient(srv.URL, time.Second).Lookup(context.Background(), "1.2.3.4")
		assert.Equal(t, Unknown, obs)
	})
}

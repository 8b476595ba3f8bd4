package bluesky

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionBody struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type recordBody struct {
	Repo       string `json:"repo"`
	Collection string `json:"collection"`
	Record     struct {
		Type      string   `json:"$type"`
		Text      string   `json:"text"`
		CreatedAt string   `json:"createdAt"`
		Langs     []string `json:"langs"`
	} `json:"record"`
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("")
	if c.host != DefaultHost {
		t.Fatalf("expected host %s, got %s", DefaultHost, c.host)
	}
	if c.client == nil || c.client.Timeout != 10*time.Second {
		t.Fatalf("expected 10s default HTTP client")
	}

	c = NewClient("https://pds.example.com/")
	assert.Equal(t, "https://pds.example.com", c.host)
}

func TestWithHTTPClientNilIgnored(t *testing.T) {
	c := NewClient("", WithHTTPClient(nil))
	assert.NotNil(t, c.client)

	custom := &http.Client{}
	c = NewClient("", WithHTTPClient(custom))
	assert.Same(t, custom, c.client)
}

func TestLoginAndPost(t *testing.T) {
	var gotLogin sessionBody
	var gotRecord recordBody
	var loginAuth, gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		switch r.URL.Path {
		case "/xrpc/com.atproto.server.createSession":
			loginAuth = r.Header.Get("Authorization")
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotLogin))
			_ = json.NewEncoder(w).Encode(map[string]string{
				"accessJwt":  "access-token",
				"refreshJwt": "refresh-token",
				"handle":     "feedback.bsky.social",
				"did":        "did:plc:abc123",
			})
		case "/xrpc/com.atproto.repo.createRecord":
			gotAuth = r.Header.Get("Authorization")
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotRecord))
			_ = json.NewEncoder(w).Encode(map[string]string{
				"uri": "at://did:plc:abc123/app.bsky.feed.post/3k",
				"cid": "bafy",
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithLanguages("en"))
	c.now = func() time.Time { return time.Date(2024, 1, 1, 12, 30, 0, 5e6, time.FixedZone("AEST", 10*3600)) }
	ctx := context.Background()

	require.NoError(t, c.Login(ctx, "feedback.bsky.social", "app-password"))
	assert.Equal(t, sessionBody{Identifier: "feedback.bsky.social", Password: "app-password"}, gotLogin)
	assert.Empty(t, loginAuth)
	assert.Equal(t, "did:plc:abc123", c.DID())

	require.NoError(t, c.Post(ctx, "Great job\n— Alex • 2024-01-01"))
	assert.Equal(t, "Bearer access-token", gotAuth)
	assert.Equal(t, "did:plc:abc123", gotRecord.Repo)
	assert.Equal(t, "app.bsky.feed.post", gotRecord.Collection)
	assert.Equal(t, "app.bsky.feed.post", gotRecord.Record.Type)
	assert.Equal(t, "Great job\n— Alex • 2024-01-01", gotRecord.Record.Text)
	assert.Equal(t, "2024-01-01T02:30:00.005Z", gotRecord.Record.CreatedAt)
	assert.Equal(t, []string{"en"}, gotRecord.Record.Langs)
}

func TestLoginBadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"AuthenticationRequired","message":"Invalid identifier or password"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	err := c.Login(context.Background(), "someone", "wrong")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "AuthenticationRequired", apiErr.Code)
	assert.Equal(t, "", c.DID())
}

func TestLoginIncompleteSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"handle":"x"}`))
	}))
	defer srv.Close()

	assert.Error(t, NewClient(srv.URL).Login(context.Background(), "x", "y"))
}

func TestPostRequiresLogin(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")
	assert.ErrorIs(t, c.Post(context.Background(), "hi"), ErrNotLoggedIn)
}

func TestPostServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/xrpc/com.atproto.server.createSession" {
			_, _ = w.Write([]byte(`{"accessJwt":"a","did":"did:plc:x"}`))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	require.NoError(t, c.Login(context.Background(), "x", "y"))
	err := c.Post(context.Background(), "hi")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "bluesky returned status: 502", apiErr.Error())
}

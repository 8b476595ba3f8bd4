// Package bluesky logs in with an app password and creates text posts,
// using indigo's XRPC client and generated lexicon calls.
package bluesky

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	comatproto "github.com/bluesky-social/indigo/api/atproto"
	appbsky "github.com/bluesky-social/indigo/api/bsky"
	lexutil "github.com/bluesky-social/indigo/lex/util"
	"github.com/bluesky-social/indigo/xrpc"
)

const (
	DefaultHost = "https://bsky.social"

	postCollection = "app.bsky.feed.post"

	// createdAt layout used across atproto records.
	timestampLayout = "2006-01-02T15:04:05.000Z"
)

// ErrNotLoggedIn is returned by Post before a successful Login.
var ErrNotLoggedIn = errors.New("bluesky: not logged in")

// APIError is a non-2xx XRPC response.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("bluesky returned status: %d", e.StatusCode)
	}
	return fmt.Sprintf("bluesky returned status %d: %s: %s", e.StatusCode, e.Code, e.Message)
}

type Client struct {
	host   string
	client *http.Client
	langs  []string
	now    func() time.Time

	mu   sync.Mutex
	auth *xrpc.AuthInfo
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.client = httpClient
		}
	}
}

// WithLanguages tags every post with the given BCP-47 language codes.
func WithLanguages(langs ...string) Option {
	return func(c *Client) {
		c.langs = append([]string(nil), langs...)
	}
}

func NewClient(host string, opts ...Option) *Client {
	if host == "" {
		host = DefaultHost
	}
	c := &Client{
		host:   strings.TrimRight(host, "/"),
		client: &http.Client{Timeout: 10 * time.Second},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// xrpcClient returns a client bound to auth; nil auth sends no token.
func (c *Client) xrpcClient(auth *xrpc.AuthInfo) *xrpc.Client {
	return &xrpc.Client{Client: c.client, Host: c.host, Auth: auth}
}

// Login opens a session for handle with an app password.
func (c *Client) Login(ctx context.Context, handle, password string) error {
	out, err := comatproto.ServerCreateSession(ctx, c.xrpcClient(nil), &comatproto.ServerCreateSession_Input{
		Identifier: handle,
		Password:   password,
	})
	if err != nil {
		return fmt.Errorf("login as %s: %w", handle, apiError(err))
	}
	if out.AccessJwt == "" || out.Did == "" {
		return fmt.Errorf("login as %s: session response missing token or did", handle)
	}
	c.mu.Lock()
	c.auth = &xrpc.AuthInfo{
		AccessJwt:  out.AccessJwt,
		RefreshJwt: out.RefreshJwt,
		Handle:     out.Handle,
		Did:        out.Did,
	}
	c.mu.Unlock()
	return nil
}

// DID returns the account DID of the current session, or "".
func (c *Client) DID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.auth == nil {
		return ""
	}
	return c.auth.Did
}

// Post publishes text as a new feed post.
func (c *Client) Post(ctx context.Context, text string) error {
	c.mu.Lock()
	auth := c.auth
	c.mu.Unlock()
	if auth == nil {
		return ErrNotLoggedIn
	}

	post := &appbsky.FeedPost{
		LexiconTypeID: postCollection,
		Text:          text,
		CreatedAt:     c.now().UTC().Format(timestampLayout),
		Langs:         c.langs,
	}
	_, err := comatproto.RepoCreateRecord(ctx, c.xrpcClient(auth), &comatproto.RepoCreateRecord_Input{
		Repo:       auth.Did,
		Collection: postCollection,
		Record:     &lexutil.LexiconTypeDecoder{Val: post},
	})
	if err != nil {
		return fmt.Errorf("create post: %w", apiError(err))
	}
	return nil
}

// apiError flattens indigo's status and XRPC error body into an APIError.
// Transport errors are returned as they are.
func apiError(err error) error {
	var xe *xrpc.Error
	if !errors.As(err, &xe) {
		return err
	}
	out := &APIError{StatusCode: xe.StatusCode}
	var body *xrpc.XRPCError
	if errors.As(err, &body) {
		out.Code, out.Message = body.ErrStr, body.Message
	}
	return out
}

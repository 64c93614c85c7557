// Package bluesky is a small XRPC client for the three PDS calls the bot
// makes: createSession, uploadBlob and createRecord.
package bluesky

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dghubble/sling"

	"github.com/mikequentel/ukiyobot/internal/model"
)

const DefaultService = "https://bsky.social"

// APIError is a non-2xx XRPC answer.
type APIError struct {
	Method     string
	StatusCode int
	Code       string // XRPC error name, e.g. "AuthenticationRequired"
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" || e.Message != "" {
		return fmt.Sprintf("bluesky: %s: HTTP %d: %s: %s", e.Method, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("bluesky: %s: HTTP %d", e.Method, e.StatusCode)
}

// Session is the result of a login. It lives for one run.
type Session struct {
	DID        string
	Handle     string
	AccessJwt  string
	RefreshJwt string
}

type Client struct {
	base *sling.Sling
}

// NewClient returns a client for the PDS at service. A nil httpClient
// means http.DefaultClient.
func NewClient(httpClient *http.Client, service string) *Client {
	if service == "" {
		service = DefaultService
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	base := sling.New().
		Client(httpClient).
		Base(strings.TrimRight(service, "/")+"/xrpc/").
		Set("Accept", "application/json")
	return &Client{base: base}
}

// CreateSession logs in with an identifier (handle or email) and password.
func (c *Client) CreateSession(ctx context.Context, identifier, password string) (*Session, error) {
	const method = "com.atproto.server.createSession"

	var out model.CreateSessionResp
	err := c.do(ctx, method, c.base.New().Post(method).BodyJSON(model.CreateSessionReq{
		Identifier: identifier,
		Password:   password,
	}), &out)
	if err != nil {
		return nil, err
	}
	if out.AccessJwt == "" || out.DID == "" {
		return nil, fmt.Errorf("bluesky: %s: response missing accessJwt or did", method)
	}
	return &Session{
		DID:        out.DID,
		Handle:     out.Handle,
		AccessJwt:  out.AccessJwt,
		RefreshJwt: out.RefreshJwt,
	}, nil
}

// UploadBlob sends raw bytes to the PDS and returns the blob descriptor to
// embed in a record.
func (c *Client) UploadBlob(ctx context.Context, data []byte, mimeType, accessJwt string) (model.Blob, error) {
	const method = "com.atproto.repo.uploadBlob"

	var out model.UploadBlobResp
	s := c.base.New().
		Post(method).
		Set("Content-Type", mimeType).
		Set("Authorization", "Bearer "+accessJwt).
		Body(bytes.NewReader(data))
	if err := c.do(ctx, method, s, &out); err != nil {
		return model.Blob{}, err
	}
	if out.Blob == nil {
		return model.Blob{}, fmt.Errorf("bluesky: %s: response missing blob", method)
	}
	return *out.Blob, nil
}

// CreatePost writes an app.bsky.feed.post record to the session's repo and
// returns the new record's URI.
func (c *Client) CreatePost(ctx context.Context, sess *Session, post model.PostRecord) (string, error) {
	const method = "com.atproto.repo.createRecord"
	if sess == nil {
		return "", errors.New("bluesky: createRecord without a session")
	}

	post.Type = model.PostCollection
	if post.CreatedAt == "" {
		post.CreatedAt = FormatTime(time.Now())
	}

	var out model.CreateRecordResp
	s := c.base.New().
		Post(method).
		Set("Authorization", "Bearer "+sess.AccessJwt).
		BodyJSON(model.CreateRecordReq{
			Repo:       sess.DID,
			Collection: model.PostCollection,
			Record:     post,
		})
	if err := c.do(ctx, method, s, &out); err != nil {
		return "", err
	}
	return out.URI, nil
}

// FormatTime renders t the way atproto datetimes are usually written:
// UTC, millisecond precision.
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

func (c *Client) do(ctx context.Context, method string, s *sling.Sling, out any) error {
	req, err := s.Request()
	if err != nil {
		return fmt.Errorf("bluesky: %s: build request: %w", method, err)
	}

	var xerr model.XRPCError
	resp, err := s.Do(req.WithContext(ctx), out, &xerr)
	if resp != nil && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		return &APIError{Method: method, StatusCode: resp.StatusCode, Code: xerr.Error, Message: xerr.Message}
	}
	if err != nil {
		return fmt.Errorf("bluesky: %s: %w", method, err)
	}
	return nil
}

// Package replication establishes live, retrying, filtered bidirectional
// replication between the local store and the per-user remote database.
package replication

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gabrielpoca/journal/internal/common"
	"github.com/gabrielpoca/journal/internal/store/migrate"
)

// ErrConflict is returned by PutDoc when the remote rejects a revision.
var ErrConflict = errors.New("document update conflict")

// UserDatabaseName maps a username to its remote database. The encoding is
// stable and reversible so the same user always lands in the same database.
func UserDatabaseName(username string) string {
	return "userdb-" + hex.EncodeToString([]byte(username))
}

// Remote is the subset of the remote document API replication needs.
// CouchClient is the HTTP implementation; tests may substitute their own.
type Remote interface {
	// Ping verifies the database is reachable with the session's credentials.
	Ping(ctx context.Context) error

	// GetDoc fetches a document and its revision. common.ErrNotFound when absent.
	GetDoc(ctx context.Context, id string) (migrate.Doc, string, error)

	// PutDoc writes a document under the given revision ("" for a new
	// document) and returns the assigned revision. ErrConflict when the
	// revision is stale.
	PutDoc(ctx context.Context, id, rev string, doc migrate.Doc) (string, error)

	// Changes reads the database change feed.
	Changes(ctx context.Context, opts ChangesOptions) (*ChangesResult, error)
}

// CouchClient talks to one per-user CouchDB database over HTTP. Requests
// authenticate via proxy-auth headers carrying the session's username and
// token.
type CouchClient struct {
	dbURL    string
	username string
	token    string
	http     *http.Client
}

// NewCouchClient builds a client for the user's database under baseURL.
func NewCouchClient(baseURL, username, token string) (*CouchClient, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse remote url: %w", err)
	}
	return &CouchClient{
		dbURL:    base.JoinPath(UserDatabaseName(username)).String(),
		username: username,
		token:    token,
		http:     &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// DatabaseURL returns the fully resolved per-user database address.
func (c *CouchClient) DatabaseURL() string { return c.dbURL }

func (c *CouchClient) do(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	u := c.dbURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Auth-CouchDB-UserName", c.username)
	req.Header.Set("X-Auth-CouchDB-Token", c.token)

	return c.http.Do(req)
}

func (c *CouchClient) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "", nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("remote database returned %s", resp.Status)
	}
	return nil
}

func (c *CouchClient) GetDoc(ctx context.Context, id string) (migrate.Doc, string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, "", common.ErrNotFound
	default:
		return nil, "", fmt.Errorf("get %s: remote returned %s", id, resp.Status)
	}

	var doc migrate.Doc
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", id, err)
	}
	rev, _ := doc["_rev"].(string)
	return doc, rev, nil
}

func (c *CouchClient) PutDoc(ctx context.Context, id, rev string, doc migrate.Doc) (string, error) {
	payload := make(migrate.Doc, len(doc)+2)
	for k, v := range doc {
		payload[k] = v
	}
	payload["_id"] = id
	if rev != "" {
		payload["_rev"] = rev
	} else {
		delete(payload, "_rev")
	}

	resp, err := c.do(ctx, http.MethodPut, "/"+url.PathEscape(id), nil, payload)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusAccepted, http.StatusOK:
	case http.StatusConflict:
		return "", fmt.Errorf("put %s: %w", id, ErrConflict)
	default:
		return "", fmt.Errorf("put %s: remote returned %s", id, resp.Status)
	}

	var result struct {
		Rev string `json:"rev"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode put response for %s: %w", id, err)
	}
	return result.Rev, nil
}

// ChangesOptions control one read of the change feed.
type ChangesOptions struct {
	// Since resumes the feed after a previously seen sequence, "" from the start.
	Since string
	// View restricts the feed through a design-document view ("ddoc/view").
	View string
	// Longpoll holds the request open until a change arrives or the remote
	// times out, giving live push behavior over plain HTTP.
	Longpoll bool
	// Timeout bounds a longpoll request on the remote side.
	Timeout time.Duration
	// Limit caps the number of returned rows, 0 for the remote default.
	Limit int
}

// Change is one row of the feed.
type Change struct {
	Seq     string
	ID      string
	Deleted bool
	Doc     migrate.Doc
}

// ChangesResult is a page of the feed plus the cursor to resume from.
type ChangesResult struct {
	Results []Change
	LastSeq string
}

func (c *CouchClient) Changes(ctx context.Context, opts ChangesOptions) (*ChangesResult, error) {
	query := url.Values{}
	query.Set("include_docs", "true")
	if opts.View != "" {
		query.Set("filter", "_view")
		query.Set("view", opts.View)
	}
	if opts.Since != "" {
		query.Set("since", opts.Since)
	}
	if opts.Longpoll {
		query.Set("feed", "longpoll")
		if opts.Timeout > 0 {
			query.Set("timeout", strconv.FormatInt(opts.Timeout.Milliseconds(), 10))
		}
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}

	resp, err := c.do(ctx, http.MethodGet, "/_changes", query, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("changes: remote returned %s", resp.Status)
	}

	var raw struct {
		Results []struct {
			Seq     json.RawMessage `json:"seq"`
			ID      string          `json:"id"`
			Deleted bool            `json:"deleted"`
			Doc     migrate.Doc     `json:"doc"`
		} `json:"results"`
		LastSeq json.RawMessage `json:"last_seq"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode changes: %w", err)
	}

	result := &ChangesResult{LastSeq: seqString(raw.LastSeq)}
	for _, row := range raw.Results {
		result.Results = append(result.Results, Change{
			Seq:     seqString(row.Seq),
			ID:      row.ID,
			Deleted: row.Deleted,
			Doc:     row.Doc,
		})
	}
	return result, nil
}

// seqString normalizes a feed sequence, which the remote may encode as a
// JSON number or string.
func seqString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

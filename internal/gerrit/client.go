package gerrit

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

// magic is the anti-XSSI prefix Gerrit puts in front of every JSON body.
const magic = ")]}'"

// Client talks to one Gerrit server over its authenticated REST prefix.
// It is stateless per request and safe for concurrent use.
type Client struct {
	base     string
	username string
	password string
	http     *http.Client
	debugf   func(format string, args ...any)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying http.Client (tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithDebugf installs a debug logger for request tracing.
func WithDebugf(f func(format string, args ...any)) Option {
	return func(c *Client) { c.debugf = f }
}

// New builds a client for the given normalized host and credentials.
func New(host, username, password string, opts ...Option) *Client {
	c := &Client{
		base:     strings.TrimSuffix(host, "/"),
		username: username,
		password: password,
		http:     &http.Client{Timeout: 60 * time.Second},
		debugf:   func(string, ...any) {},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// do executes one request against an /a/-prefixed path. When target is
// non-nil the response body is stripped of the anti-XSSI line and decoded
// into it; schema decoding failures surface as ParseError.
func (c *Client) do(ctx context.Context, method, path string, body any, target any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request for %s: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	u := c.base + "/a" + path
	c.debugf("gerrit: %s %s", method, u)

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", path, err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept-Encoding", "gzip")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Path: path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := c.readBody(resp)
	if err != nil {
		return &NetworkError{Path: path, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return &AuthError{Status: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &APIError{Status: resp.StatusCode, Path: path, Message: string(raw)}
	}

	if target == nil {
		return nil
	}
	payload := stripMagic(raw)
	if err := json.Unmarshal(payload, target); err != nil {
		return &ParseError{Endpoint: path, Detail: "malformed JSON response", Err: err}
	}
	return nil
}

// readBody drains the response, transparently inflating gzip bodies.
func (c *Client) readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	if strings.Contains(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("opening gzip body: %w", err)
		}
		defer gz.Close()
		r = gz
	}
	return io.ReadAll(r)
}

// stripMagic removes the `)]}'` line Gerrit prepends to JSON responses.
// A bare prefix without a newline is tolerated.
func stripMagic(body []byte) []byte {
	if !bytes.HasPrefix(body, []byte(magic)) {
		return body
	}
	rest := body[len(magic):]
	if i := bytes.IndexByte(rest, '\n'); i >= 0 && len(bytes.TrimSpace(rest[:i])) == 0 {
		return rest[i+1:]
	}
	return rest
}

func escape(s string) string { return url.PathEscape(s) }

// defaultListOptions are the o= options every change listing asks for.
var defaultListOptions = []string{"LABELS", "DETAILED_LABELS", "DETAILED_ACCOUNTS"}

func optionQuery(opts []string) string {
	var b strings.Builder
	for _, o := range opts {
		b.WriteString("&o=")
		b.WriteString(o)
	}
	return b.String()
}

// VerifyAuth probes the authenticated prefix; used by setup before
// persisting credentials.
func (c *Client) VerifyAuth(ctx context.Context) (*Account, error) {
	var acct Account
	if err := c.do(ctx, http.MethodGet, "/accounts/self", nil, &acct); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusForbidden {
			return nil, &AuthError{Status: apiErr.Status}
		}
		return nil, err
	}
	return &acct, nil
}

// ListChanges runs a change query with the standard listing options.
func (c *Client) ListChanges(ctx context.Context, query string) ([]Change, error) {
	path := "/changes/?q=" + url.QueryEscape(query) + optionQuery(defaultListOptions)
	var changes []Change
	if err := c.do(ctx, http.MethodGet, path, nil, &changes); err != nil {
		return nil, err
	}
	for i := range changes {
		if err := validateChange(&changes[i]); err != nil {
			return nil, &ParseError{Endpoint: path, Detail: err.Error()}
		}
	}
	return changes, nil
}

// GetChange fetches one change. Extra o= options may be supplied; the
// current revision and commit are always requested.
func (c *Client) GetChange(ctx context.Context, id string, opts ...string) (*Change, error) {
	all := append([]string{"CURRENT_REVISION", "CURRENT_COMMIT"}, opts...)
	path := "/changes/" + escape(id) + "?" + strings.TrimPrefix(optionQuery(all), "&")
	var change Change
	if err := c.do(ctx, http.MethodGet, path, nil, &change); err != nil {
		return nil, err
	}
	if err := validateChange(&change); err != nil {
		return nil, &ParseError{Endpoint: path, Detail: err.Error()}
	}
	return &change, nil
}

// GetChangeWithMessages fetches a change with its message stream, for the
// build-status watcher.
func (c *Client) GetChangeWithMessages(ctx context.Context, id string) (*Change, error) {
	path := "/changes/" + escape(id) + "?o=MESSAGES"
	var change Change
	if err := c.do(ctx, http.MethodGet, path, nil, &change); err != nil {
		return nil, err
	}
	return &change, nil
}

// GetRevision fetches one revision of a change. rev is a patchset number
// or "current".
func (c *Client) GetRevision(ctx context.Context, id, rev string) (*Revision, error) {
	path := "/changes/" + escape(id) + "/revisions/" + escape(rev) + "/review"
	var change Change
	if err := c.do(ctx, http.MethodGet, path, nil, &change); err != nil {
		return nil, err
	}
	for _, r := range change.Revisions {
		if r.Ref != "" && !ChangeRefRE.MatchString(r.Ref) {
			return nil, &ParseError{Endpoint: path, Detail: fmt.Sprintf("invalid change ref %q", r.Ref)}
		}
		rev := r
		return &rev, nil
	}
	return nil, &ParseError{Endpoint: path, Detail: "response carried no revision"}
}

// GetPatch fetches the unified diff for a revision. Gerrit serves the
// patch endpoint base64-encoded.
func (c *Client) GetPatch(ctx context.Context, id, rev string) (string, error) {
	path := "/changes/" + escape(id) + "/revisions/" + escape(rev) + "/patch"
	u := c.base + "/a" + path
	c.debugf("gerrit: GET %s", u)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("building request for %s: %w", path, err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &NetworkError{Path: path, Err: err}
	}
	defer resp.Body.Close()
	raw, err := c.readBody(resp)
	if err != nil {
		return "", &NetworkError{Path: path, Err: err}
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return "", &AuthError{Status: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &APIError{Status: resp.StatusCode, Path: path, Message: string(raw)}
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return "", &ParseError{Endpoint: path, Detail: "patch is not valid base64", Err: err}
	}
	return string(decoded), nil
}

// ListFiles returns the files touched by a revision, excluding the
// commit-message pseudo-file.
func (c *Client) ListFiles(ctx context.Context, id, rev string) (map[string]FileInfo, error) {
	path := "/changes/" + escape(id) + "/revisions/" + escape(rev) + "/files"
	files := map[string]FileInfo{}
	if err := c.do(ctx, http.MethodGet, path, nil, &files); err != nil {
		return nil, err
	}
	delete(files, "/COMMIT_MSG")
	delete(files, "/MERGE_LIST")
	return files, nil
}

// GetComments returns all published comments, flattened with Path set.
// The server keys comments by path; flattening a map would reorder them
// per run, so the result is sorted by updated time ascending, with path
// and line as tie-breakers.
func (c *Client) GetComments(ctx context.Context, id string) ([]Comment, error) {
	path := "/changes/" + escape(id) + "/comments"
	byPath := map[string][]Comment{}
	if err := c.do(ctx, http.MethodGet, path, nil, &byPath); err != nil {
		return nil, err
	}
	var all []Comment
	for p, comments := range byPath {
		for _, cm := range comments {
			cm.Path = p
			all = append(all, cm)
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Updated != all[j].Updated {
			return all[i].Updated < all[j].Updated
		}
		if all[i].Path != all[j].Path {
			return all[i].Path < all[j].Path
		}
		return all[i].Line < all[j].Line
	})
	return all, nil
}

// GetMessages returns the change's message stream in server order.
func (c *Client) GetMessages(ctx context.Context, id string) ([]Message, error) {
	path := "/changes/" + escape(id) + "/messages"
	var msgs []Message
	if err := c.do(ctx, http.MethodGet, path, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// AddReviewer adds a reviewer or CC to a change.
func (c *Client) AddReviewer(ctx context.Context, id string, in ReviewerInput) error {
	return c.do(ctx, http.MethodPost, "/changes/"+escape(id)+"/reviewers", in, nil)
}

// RemoveReviewer removes a reviewer from a change.
func (c *Client) RemoveReviewer(ctx context.Context, id, reviewer, notify string) error {
	body := map[string]string{}
	if notify != "" {
		body["notify"] = notify
	}
	return c.do(ctx, http.MethodPost, "/changes/"+escape(id)+"/reviewers/"+escape(reviewer)+"/delete", body, nil)
}

// PostReview posts votes, a message, and/or inline comments in one call.
func (c *Client) PostReview(ctx context.Context, id string, in ReviewInput) error {
	return c.do(ctx, http.MethodPost, "/changes/"+escape(id)+"/revisions/current/review", in, nil)
}

// SubmitChange submits a change.
func (c *Client) SubmitChange(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/changes/"+escape(id)+"/submit", struct{}{}, nil)
}

// AbandonChange abandons a change with an optional message.
func (c *Client) AbandonChange(ctx context.Context, id, message string) error {
	body := map[string]string{}
	if message != "" {
		body["message"] = message
	}
	return c.do(ctx, http.MethodPost, "/changes/"+escape(id)+"/abandon", body, nil)
}

// RestoreChange restores an abandoned change.
func (c *Client) RestoreChange(ctx context.Context, id, message string) error {
	body := map[string]string{}
	if message != "" {
		body["message"] = message
	}
	return c.do(ctx, http.MethodPost, "/changes/"+escape(id)+"/restore", body, nil)
}

// RebaseChange rebases a change, optionally onto an explicit base.
func (c *Client) RebaseChange(ctx context.Context, id, base string) error {
	body := map[string]string{}
	if base != "" {
		body["base"] = base
	}
	return c.do(ctx, http.MethodPost, "/changes/"+escape(id)+"/rebase", body, nil)
}

// GetTopic returns the change's topic ("" when unset).
func (c *Client) GetTopic(ctx context.Context, id string) (string, error) {
	var topic string
	if err := c.do(ctx, http.MethodGet, "/changes/"+escape(id)+"/topic", nil, &topic); err != nil {
		return "", err
	}
	return topic, nil
}

// SetTopic sets the change's topic.
func (c *Client) SetTopic(ctx context.Context, id, topic string) error {
	return c.do(ctx, http.MethodPut, "/changes/"+escape(id)+"/topic", map[string]string{"topic": topic}, nil)
}

// DeleteTopic clears the change's topic.
func (c *Client) DeleteTopic(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/changes/"+escape(id)+"/topic", nil, nil)
}

// ListProjects lists projects, optionally filtered by a substring match.
func (c *Client) ListProjects(ctx context.Context, pattern string) (map[string]Project, error) {
	q := url.Values{}
	q.Set("d", "")
	if pattern != "" {
		q.Set("m", pattern)
	}
	path := "/projects/?" + q.Encode()
	projects := map[string]Project{}
	if err := c.do(ctx, http.MethodGet, path, nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// GroupQuery carries the optional filters of the groups list endpoint.
type GroupQuery struct {
	Pattern string
	Owned   bool
	Project string
	User    string
	Limit   int
}

// ListGroups lists groups visible to the caller.
func (c *Client) ListGroups(ctx context.Context, q GroupQuery) (map[string]Group, error) {
	v := url.Values{}
	if q.Pattern != "" {
		v.Set("m", q.Pattern)
	}
	if q.Owned {
		v.Set("owned", "")
	}
	if q.Project != "" {
		v.Set("p", q.Project)
	}
	if q.User != "" {
		v.Set("user", q.User)
	}
	if q.Limit > 0 {
		v.Set("n", fmt.Sprintf("%d", q.Limit))
	}
	path := "/groups/"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}
	groups := map[string]Group{}
	if err := c.do(ctx, http.MethodGet, path, nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// GetGroupDetail fetches a group with members and includes.
func (c *Client) GetGroupDetail(ctx context.Context, id string) (*Group, error) {
	var g Group
	if err := c.do(ctx, http.MethodGet, "/groups/"+escape(id)+"/detail", nil, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// GetGroupMembers lists the direct members of a group.
func (c *Client) GetGroupMembers(ctx context.Context, id string) ([]Account, error) {
	var members []Account
	if err := c.do(ctx, http.MethodGet, "/groups/"+escape(id)+"/members", nil, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// validateChange enforces the fields every command depends on.
func validateChange(ch *Change) error {
	switch {
	case ch.ID == "":
		return fmt.Errorf("change missing id")
	case ch.Number <= 0:
		return fmt.Errorf("change %q missing _number", ch.ID)
	case ch.Project == "":
		return fmt.Errorf("change %d missing project", ch.Number)
	case ch.Status != StatusNew && ch.Status != StatusMerged && ch.Status != StatusAbandoned:
		return fmt.Errorf("change %d has unknown status %q", ch.Number, ch.Status)
	}
	for sha, rev := range ch.Revisions {
		if rev.Ref != "" && !ChangeRefRE.MatchString(rev.Ref) {
			return fmt.Errorf("revision %s has invalid ref %q", sha, rev.Ref)
		}
	}
	return nil
}

// Package gerrit implements the authenticated REST adapter for a Gerrit
// code-review server: transport, anti-XSSI framing, typed decoding, and
// the error taxonomy commands rely on.
package gerrit

import "regexp"

// Change statuses returned by the server.
const (
	StatusNew       = "NEW"
	StatusMerged    = "MERGED"
	StatusAbandoned = "ABANDONED"
)

// Reviewer states.
const (
	StateReviewer = "REVIEWER"
	StateCC       = "CC"
)

// Comment sides.
const (
	SideRevision = "REVISION"
	SideParent   = "PARENT"
)

// ChangeRefRE validates Gerrit change refs ("refs/changes/NN/NNNN/N").
// Anything fetched into a local repository must match it first.
var ChangeRefRE = regexp.MustCompile(`^refs/changes/\d{2}/\d+/\d+$`)

// Account is a Gerrit AccountInfo.
type Account struct {
	AccountID int    `json:"_account_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Username  string `json:"username,omitempty"`
}

// Display returns the friendliest available identity for an account.
func (a *Account) Display() string {
	if a == nil {
		return "unknown"
	}
	if a.Name != "" {
		return a.Name
	}
	if a.Username != "" {
		return a.Username
	}
	if a.Email != "" {
		return a.Email
	}
	return "unknown"
}

// Approval is an ApprovalInfo: an account plus its vote.
type Approval struct {
	Account
	Value int    `json:"value,omitempty"`
	Date  string `json:"date,omitempty"`
}

// Label is a LabelInfo.
type Label struct {
	Optional     bool       `json:"optional,omitempty"`
	Blocking     bool       `json:"blocking,omitempty"`
	Value        int        `json:"value,omitempty"`
	DefaultValue int        `json:"default_value,omitempty"`
	Approved     *Account   `json:"approved,omitempty"`
	Rejected     *Account   `json:"rejected,omitempty"`
	All          []Approval `json:"all,omitempty"`
}

// Fetch is a FetchInfo entry under a revision.
type Fetch struct {
	URL string `json:"url,omitempty"`
	Ref string `json:"ref,omitempty"`
}

// CommitMessagePart is the commit section of a RevisionInfo.
type CommitMessagePart struct {
	Subject string `json:"subject,omitempty"`
	Message string `json:"message,omitempty"`
}

// Revision is a RevisionInfo.
type Revision struct {
	Number   int                `json:"_number"`
	Ref      string             `json:"ref,omitempty"`
	Created  string             `json:"created,omitempty"`
	Uploader *Account           `json:"uploader,omitempty"`
	Fetch    map[string]Fetch   `json:"fetch,omitempty"`
	Commit   *CommitMessagePart `json:"commit,omitempty"`
}

// Message is a MessageInfo. RevisionNumber is a pointer because the
// build-status interpreter must distinguish "absent" from zero.
type Message struct {
	ID             string   `json:"id"`
	Message        string   `json:"message"`
	Date           string   `json:"date"`
	Author         *Account `json:"author,omitempty"`
	RevisionNumber *int     `json:"_revision_number,omitempty"`
	Tag            string   `json:"tag,omitempty"`
}

// CommentRange is a CommentRange. Lines are 1-based, characters 0-based.
type CommentRange struct {
	StartLine      int `json:"start_line"`
	StartCharacter int `json:"start_character,omitempty"`
	EndLine        int `json:"end_line"`
	EndCharacter   int `json:"end_character,omitempty"`
}

// Comment is a CommentInfo. Path is filled in client-side from the map key
// the list endpoint groups by.
type Comment struct {
	ID         string        `json:"id"`
	Path       string        `json:"path,omitempty"`
	Line       int           `json:"line,omitempty"`
	Range      *CommentRange `json:"range,omitempty"`
	Message    string        `json:"message"`
	Author     *Account      `json:"author,omitempty"`
	Updated    string        `json:"updated,omitempty"`
	Unresolved *bool         `json:"unresolved,omitempty"`
	InReplyTo  string        `json:"in_reply_to,omitempty"`
	Side       string        `json:"side,omitempty"`
	PatchSet   int           `json:"patch_set,omitempty"`
}

// CommentInput is the posting shape for one inline comment. Exactly one of
// Line or Range must be set.
type CommentInput struct {
	Path       string        `json:"path,omitempty"`
	Line       int           `json:"line,omitempty"`
	Range      *CommentRange `json:"range,omitempty"`
	Message    string        `json:"message"`
	Side       string        `json:"side,omitempty"`
	InReplyTo  string        `json:"in_reply_to,omitempty"`
	Unresolved *bool         `json:"unresolved,omitempty"`
}

// ReviewInput is the body of POST …/revisions/current/review.
type ReviewInput struct {
	Message  string                    `json:"message,omitempty"`
	Labels   map[string]int            `json:"labels,omitempty"`
	Comments map[string][]CommentInput `json:"comments,omitempty"`
}

// ReviewerInput is the body of POST …/reviewers.
type ReviewerInput struct {
	Reviewer string `json:"reviewer"`
	State    string `json:"state,omitempty"`
	Notify   string `json:"notify,omitempty"`
}

// Change is a ChangeInfo. The client treats it as immutable for the
// duration of one command.
type Change struct {
	ID              string               `json:"id"`
	ChangeID        string               `json:"change_id"`
	Number          int                  `json:"_number"`
	Subject         string               `json:"subject"`
	Status          string               `json:"status"`
	Project         string               `json:"project"`
	Branch          string               `json:"branch"`
	Topic           string               `json:"topic,omitempty"`
	Created         string               `json:"created,omitempty"`
	Updated         string               `json:"updated,omitempty"`
	Owner           *Account             `json:"owner,omitempty"`
	Reviewers       map[string][]Account `json:"reviewers,omitempty"`
	Labels          map[string]Label     `json:"labels,omitempty"`
	Submittable     *bool                `json:"submittable,omitempty"`
	WorkInProgress  bool                 `json:"work_in_progress,omitempty"`
	CurrentRevision string               `json:"current_revision,omitempty"`
	Revisions       map[string]Revision  `json:"revisions,omitempty"`
	Insertions      int                  `json:"insertions,omitempty"`
	Deletions       int                  `json:"deletions,omitempty"`
	Messages        []Message            `json:"messages,omitempty"`
}

// CurrentRevisionInfo returns the RevisionInfo for current_revision, when
// the response carried one.
func (c *Change) CurrentRevisionInfo() (Revision, bool) {
	if c.CurrentRevision == "" || c.Revisions == nil {
		return Revision{}, false
	}
	rev, ok := c.Revisions[c.CurrentRevision]
	return rev, ok
}

// FileInfo is a FileInfo from the files endpoint. Status is one of
// Gerrit's single-letter codes (A, D, R, C, W) or empty for modified.
type FileInfo struct {
	Status        string `json:"status,omitempty"`
	Binary        bool   `json:"binary,omitempty"`
	OldPath       string `json:"old_path,omitempty"`
	LinesInserted int    `json:"lines_inserted,omitempty"`
	LinesDeleted  int    `json:"lines_deleted,omitempty"`
}

// Project is a ProjectInfo from the list endpoint.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	State       string `json:"state,omitempty"`
	Description string `json:"description,omitempty"`
}

// GroupOptions is a GroupOptionsInfo.
type GroupOptions struct {
	VisibleToAll bool `json:"visible_to_all,omitempty"`
}

// Group is a GroupInfo; the detail endpoint adds Members and Includes.
type Group struct {
	ID          string        `json:"id"`
	Name        string        `json:"name,omitempty"`
	GroupID     int           `json:"group_id,omitempty"`
	URL         string        `json:"url,omitempty"`
	Owner       string        `json:"owner,omitempty"`
	OwnerID     string        `json:"owner_id,omitempty"`
	Description string        `json:"description,omitempty"`
	Options     *GroupOptions `json:"options,omitempty"`
	CreatedOn   string        `json:"created_on,omitempty"`
	Members     []Account     `json:"members,omitempty"`
	Includes    []Group       `json:"includes,omitempty"`
}

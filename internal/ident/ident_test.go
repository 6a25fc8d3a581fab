package ident

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	validID := "I" + strings.Repeat("0123456789abcdef", 2) + strings.Repeat("af", 4)
	tests := []struct {
		in    string
		kind  Kind
		value string
	}{
		{"12345", Number, "12345"},
		{"  12345\n", Number, "12345"},
		{"007", Number, "7"},
		{"0", Invalid, ""},
		{"", Invalid, ""},
		{"   ", Invalid, ""},
		{"-3", Invalid, ""},
		{"12a45", Invalid, ""},
		{validID, ChangeID, validID},
		{strings.ToUpper(validID), Invalid, ""},
		{"I123", Invalid, ""},
		{"refs/changes/45/12345/2", Invalid, ""},
	}
	for _, tt := range tests {
		ref := Classify(tt.in)
		assert.Equal(t, tt.kind, ref.Kind, "input %q", tt.in)
		if tt.kind != Invalid {
			assert.Equal(t, tt.value, ref.Value, "input %q", tt.in)
		}
	}
}

func TestClassifyIdempotent(t *testing.T) {
	for _, in := range []string{" 00100 ", "I0000000000000000000000000000000000000abc", "junk"} {
		once := Classify(in)
		if once.Kind == Invalid {
			continue
		}
		twice := Classify(once.Value)
		assert.Equal(t, once, twice, "input %q", in)
	}
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		in       string
		number   string
		patchset int
		ok       bool
	}{
		{"https://gerrit.example.com/c/proj/+/12345", "12345", 0, true},
		{"https://gerrit.example.com/c/proj/+/12345/3", "12345", 3, true},
		{"https://gerrit.example.com/c/group/proj/+/12345/", "12345", 0, true},
		{"http://gerrit.example.com/#/c/proj/+/999", "999", 0, true},
		{"https://gerrit.example.com/c/+/42", "42", 0, true},
		{"https://gerrit.example.com/c/proj/+/0012", "12", 0, true},
		{"https://gerrit.example.com/dashboard", "", 0, false},
		{"12345", "", 0, false},
		{"ssh://gerrit.example.com/c/proj/+/12345", "", 0, false},
	}
	for _, tt := range tests {
		p, ok := ParseURL(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		if tt.ok {
			assert.Equal(t, tt.number, p.ChangeNumber, "input %q", tt.in)
			assert.Equal(t, tt.patchset, p.Patchset, "input %q", tt.in)
		}
	}
}

func TestChangeURLRoundTrip(t *testing.T) {
	u := ChangeURL("gerrit.example.com", "proj", 12345, 3)
	assert.Equal(t, "https://gerrit.example.com/c/proj/+/12345/3", u)

	p, ok := ParseURL(u)
	require.True(t, ok)
	assert.Equal(t, "12345", p.ChangeNumber)
	assert.Equal(t, 3, p.Patchset)
}

func TestFromCommitMessage(t *testing.T) {
	id := "I7e6bd99cb1045f5b1a1f4b96c8a1a8e4fe19f4aa"
	tests := []struct {
		name string
		msg  string
		want string
	}{
		{"footer", "subject\n\nbody\n\nChange-Id: " + id + "\n", id},
		{"crlf", "subject\r\n\r\nChange-Id: " + id + "\r\n", id},
		{"case insensitive key", "subject\n\nchange-id: " + id, id},
		{"first of two", "Change-Id: " + id + "\nChange-Id: I0000000000000000000000000000000000000000\n", id},
		{"inline ignored", "see Change-Id: nothing\nand also Change-Id: " + id + " trailing", ""},
		{"absent", "subject\n\nbody\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromCommitMessage(tt.msg))
		})
	}
}

func TestNormalizeHost(t *testing.T) {
	assert.Equal(t, "https://gerrit.example.com", NormalizeHost("gerrit.example.com/"))
	assert.Equal(t, "http://gerrit.example.com", NormalizeHost("http://gerrit.example.com"))
	assert.Equal(t, "https://example.com/gerrit", NormalizeHost("example.com/gerrit/"))
	assert.Equal(t, "", NormalizeHost("  "))
}

type fakeHead struct {
	msg string
	err error
}

func (f fakeHead) HeadCommitMessage() (string, error) { return f.msg, f.err }

func TestResolve(t *testing.T) {
	id := "I7e6bd99cb1045f5b1a1f4b96c8a1a8e4fe19f4aa"

	r, err := Resolve("https://g.example/c/proj/+/12345/3", nil)
	require.NoError(t, err)
	assert.Equal(t, Number, r.Ref.Kind)
	assert.Equal(t, "12345", r.Ref.Value)
	assert.Equal(t, 3, r.Patchset)

	r, err = Resolve("678", nil)
	require.NoError(t, err)
	assert.Equal(t, Number, r.Ref.Kind)

	r, err = Resolve(id, nil)
	require.NoError(t, err)
	assert.Equal(t, ChangeID, r.Ref.Kind)

	_, err = Resolve("%%%", nil)
	assert.Error(t, err)

	r, err = Resolve("", fakeHead{msg: "subject\n\nChange-Id: " + id + "\n"})
	require.NoError(t, err)
	assert.Equal(t, id, r.Ref.Value)

	_, err = Resolve("", fakeHead{msg: "no footer"})
	assert.True(t, errors.Is(err, ErrNoChangeID))

	_, err = Resolve("", nil)
	assert.True(t, errors.Is(err, ErrNoChangeID))
}

package gitx

import "regexp"

// Everything interpolated into a git invocation is validated first.
// Spawns always use argv arrays; these checks are the second fence.
var (
	refNameRE   = regexp.MustCompile(`^[A-Za-z0-9_\-./]+$`)
	changeRefRE = regexp.MustCompile(`^refs/changes/\d{2}/\d+/\d+$`)
)

// ValidateRefName accepts branch and remote names.
func ValidateRefName(what, name string) error {
	if name == "" || !refNameRE.MatchString(name) {
		return &InvalidInputError{What: what, Value: name}
	}
	return nil
}

// ValidateChangeRef accepts only strict Gerrit change refs
// ("refs/changes/NN/NNNN/N").
func ValidateChangeRef(ref string) error {
	if !changeRefRE.MatchString(ref) {
		return &InvalidInputError{What: "gerrit ref", Value: ref}
	}
	return nil
}

package correlate

import (
	"regexp"
	"strings"
)

var (
	// defaultName matches host generated names such as "Oval 3" that have not
	// been propagated yet.
	defaultName = regexp.MustCompile(`^[^\[]\D+\s\d+$`)

	// bracketedName matches a default name already wrapped as "[Oval 3]".
	bracketedName = regexp.MustCompile(`^\[\D+\s\d+\]$`)

	// namePrefix captures everything before the numeric suffix, space included.
	namePrefix = regexp.MustCompile(`^([^\[]\D+\s)\d+$`)
)

// IsDefaultName reports whether name follows the host's auto-naming pattern
// and is not bracket-wrapped.
func IsDefaultName(name string) bool {
	return defaultName.MatchString(name)
}

// IsBracketed reports whether name is a bracket-wrapped default name.
func IsBracketed(name string) bool {
	return bracketedName.MatchString(name)
}

// Bracket wraps name in brackets unless it already is.
func Bracket(name string) string {
	if strings.HasPrefix(name, "[") && strings.HasSuffix(name, "]") {
		return name
	}
	return "[" + name + "]"
}

// TargetName is the name a pasted shape takes when it is matched to an
// original called name: default names are bracket-wrapped so a later pass
// does not treat them as default again, explicit names are kept verbatim.
func TargetName(name string) string {
	if IsDefaultName(name) {
		return "[" + name + "]"
	}
	return name
}

// SameNameClass reports whether the current name of a pasted shape and the
// name of an original belong to the same name class.
//
// Two default names are equal when their word prefixes are equal, ignoring the
// number. Two explicit names must be identical. A default name never equals an
// explicit one. The original may carry brackets from an earlier propagation;
// they are ignored unless the pasted name carries them too.
func SameNameClass(pasted, original string) bool {
	if !IsBracketed(pasted) && IsBracketed(original) && len(original) > 2 {
		original = original[1 : len(original)-1]
	}

	pastedDefault := IsDefaultName(pasted)
	originalDefault := IsDefaultName(original)

	switch {
	case !pastedDefault && !originalDefault:
		return pasted == original
	case pastedDefault && originalDefault:
		return prefixOf(pasted) == prefixOf(original)
	default:
		return false
	}
}

func prefixOf(name string) string {
	m := namePrefix.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	return m[1]
}

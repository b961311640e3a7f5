// Package pathname maps instance names to legal file and directory names.
//
// Names are normalized according to a Policy, which describes the characters
// and names reserved by a target platform. Siblings are tracked with a Table so
// that two instances under the same parent never receive the same segment.
// The mapping is deterministic but lossy: the original name cannot always be
// recovered from the segment.
package pathname

import (
	"runtime"
	"strings"
)

// Policy describes the naming rules of a target filesystem.
type Policy struct {
	// Name identifies the policy.
	Name string

	// Reserved contains characters that may not appear in a segment.
	Reserved string

	// Controls indicates whether C0 control characters and DEL are reserved.
	Controls bool

	// ReservedNames contains names that may not be used as a segment, or as
	// the part of a segment before the first period. Compared
	// case-insensitively.
	ReservedNames []string

	// Substitute replaces each reserved character.
	Substitute rune

	// Placeholder is used when a name is empty after normalization.
	Placeholder string

	// TrimTrailing indicates whether trailing spaces and periods are
	// removed.
	TrimTrailing bool

	// CaseInsensitive indicates whether the filesystem treats names that
	// differ only by case as the same name.
	CaseInsensitive bool

	// MaxLength is the maximum length of a name in bytes, including any
	// collision suffix and extension. Zero means unlimited.
	MaxLength int
}

var windowsNames = []string{
	"CON", "PRN", "AUX", "NUL",
	"COM1", "COM2", "COM3", "COM4", "COM5", "COM6", "COM7", "COM8", "COM9",
	"LPT1", "LPT2", "LPT3", "LPT4", "LPT5", "LPT6", "LPT7", "LPT8", "LPT9",
}

// Windows is the naming policy of Windows filesystems.
var Windows = Policy{
	Name:            "windows",
	Reserved:        `<>:"/\|?*`,
	Controls:        true,
	ReservedNames:   windowsNames,
	Substitute:      '_',
	Placeholder:     "unnamed",
	TrimTrailing:    true,
	CaseInsensitive: true,
	MaxLength:       255,
}

// POSIX is the naming policy of POSIX filesystems.
var POSIX = Policy{
	Name:        "posix",
	Reserved:    "/\x00",
	Substitute:  '_',
	Placeholder: "unnamed",
	MaxLength:   255,
}

// Portable produces names that are legal on every supported platform. It
// applies the rules of Windows, which are a superset of the others.
var Portable = func() Policy {
	p := Windows
	p.Name = "portable"
	return p
}()

// Host returns the policy of the current operating system.
func Host() Policy {
	switch runtime.GOOS {
	case "windows":
		return Windows
	case "darwin", "ios":
		// Default volumes are case-insensitive.
		p := POSIX
		p.CaseInsensitive = true
		return p
	default:
		return POSIX
	}
}

// Lookup returns the policy with the given name: "windows", "posix",
// "portable", or "host".
func Lookup(name string) (p Policy, ok bool) {
	switch strings.ToLower(name) {
	case "windows":
		return Windows, true
	case "posix":
		return POSIX, true
	case "portable", "":
		return Portable, true
	case "host":
		return Host(), true
	}
	return Policy{}, false
}

// WithReservedNames returns a copy of the policy with additional reserved
// names.
func (p Policy) WithReservedNames(names ...string) Policy {
	reserved := make([]string, 0, len(p.ReservedNames)+len(names))
	reserved = append(reserved, p.ReservedNames...)
	reserved = append(reserved, names...)
	p.ReservedNames = reserved
	return p
}

func (p Policy) isReservedChar(r rune) bool {
	if p.Controls && (r < 0x20 || r == 0x7F) {
		return true
	}
	return strings.ContainsRune(p.Reserved, r)
}

func (p Policy) isReservedName(s string) bool {
	for _, name := range p.ReservedNames {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

func (p Policy) substitute() rune {
	if p.Substitute == 0 || p.isReservedChar(p.Substitute) {
		return '_'
	}
	return p.Substitute
}

func (p Policy) placeholder() string {
	if p.Placeholder == "" {
		return "unnamed"
	}
	return p.Placeholder
}

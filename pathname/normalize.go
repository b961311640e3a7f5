package pathname

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Clean returns name as a legal segment under the policy, without regard to
// siblings.
func (p Policy) Clean(name string) string {
	return p.clean(name, 0)
}

// clean is Clean, leaving room more bytes within MaxLength for whatever is
// appended to the segment.
func (p Policy) clean(name string, room int) string {
	sub := p.substitute()

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if p.isReservedChar(r) {
			b.WriteRune(sub)
		} else {
			b.WriteRune(r)
		}
	}
	s := p.trim(b.String())

	stem, ext := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		stem, ext = s[:i], s[i:]
	}
	if p.isReservedName(stem) || p.isReservedName(strings.TrimRight(stem, " ")) {
		s = stem + "_" + ext
	}
	s = p.truncate(s, room)

	if s == "" {
		return p.truncate(p.placeholder(), room)
	}
	// "." and ".." name the current and parent directories.
	if strings.Trim(s, ".") == "" {
		return strings.Repeat(string(sub), len(s))
	}
	return s
}

// truncate shortens s on a rune boundary so that room more bytes fit within
// MaxLength. At least one byte of s is kept when possible.
func (p Policy) truncate(s string, room int) string {
	if p.MaxLength <= 0 {
		return s
	}
	n := max(p.MaxLength-room, 1)
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return p.trim(s[:n])
}

func (p Policy) trim(s string) string {
	if p.TrimTrailing {
		return strings.TrimRight(s, " .")
	}
	return s
}

// Table records the names used by the children of one parent. A Table must
// not be shared between parents, or used concurrently.
type Table struct {
	policy Policy
	fold   cases.Caser
	seen   map[string]bool
	// next holds the collision suffix to try first for a base segment.
	next map[string]int
}

// NewTable returns an empty table that normalizes names with the given
// policy.
func NewTable(policy Policy) *Table {
	return &Table{
		policy: policy,
		fold:   cases.Fold(),
		seen:   map[string]bool{},
		next:   map[string]int{},
	}
}

// Policy returns the policy of the table.
func (t *Table) Policy() Policy {
	return t.policy
}

func (t *Table) key(s string) string {
	if t.policy.CaseInsensitive {
		return t.fold.String(s)
	}
	return s
}

// Normalize returns a legal segment for name that is distinct from every
// name previously recorded by the table. The first use of a segment is
// returned unchanged. Later uses receive a numeric suffix, starting at 2.
func (t *Table) Normalize(name string) string {
	return t.NormalizeFile(name, "")
}

// NormalizeFile is like Normalize for an entry that occupies the segment
// followed by each of exts, such as a source file and its meta file. Every
// such name is checked against the table and recorded. The segment is
// shortened so that the longest name, collision suffix included, fits
// within the MaxLength of the policy.
func (t *Table) NormalizeFile(name string, exts ...string) string {
	if len(exts) == 0 {
		exts = []string{""}
	}
	room := 0
	for _, ext := range exts {
		room = max(room, len(ext))
	}
	s := t.policy.clean(name, room)
	base := t.key(s)
	for n := t.next[base]; ; n++ {
		if n == 1 {
			continue
		}
		candidate := s
		if n > 1 {
			suffix := "_" + strconv.Itoa(n)
			candidate = t.policy.truncate(s, room+len(suffix)) + suffix
		}
		if t.free(candidate, exts) {
			t.next[base] = n
			for _, ext := range exts {
				t.seen[t.key(candidate+ext)] = true
			}
			return candidate
		}
	}
}

func (t *Table) free(segment string, exts []string) bool {
	for _, ext := range exts {
		if t.seen[t.key(segment+ext)] {
			return false
		}
	}
	return true
}

// Reserve marks a name as used without normalizing it, so that later names
// do not receive it.
func (t *Table) Reserve(segment string) {
	t.seen[t.key(segment)] = true
}

// Len returns the number of distinct names recorded.
func (t *Table) Len() int {
	return len(t.seen)
}

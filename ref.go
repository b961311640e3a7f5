package rbxrojo

import (
	"strings"

	"github.com/hashicorp/go-uuid"
)

// PropRef names a reference property whose referent is looked up once the
// whole tree is known.
type PropRef struct {
	Instance  *Instance
	Property  string
	Reference string
}

// References maps referent strings to the instances they identify.
type References map[string]*Instance

// Resolve sets the property named by propRef to the instance its reference
// identifies. It reports false when a non-empty reference has no referent,
// in which case the property is set to an empty reference.
func (refs References) Resolve(propRef PropRef) bool {
	inst := propRef.Instance
	if refs == nil || inst == nil {
		return false
	}
	var referent *Instance
	if !IsEmptyReference(propRef.Reference) {
		if referent = refs[propRef.Reference]; referent == nil {
			inst.Set(propRef.Property, ValueReference{})
			return false
		}
	}
	inst.Set(propRef.Property, ValueReference{Instance: referent})
	return true
}

// Get returns the referent string of instance and registers it in refs. An
// instance with an empty reference, or one whose reference is already taken
// by another instance, is given a fresh reference first.
func (refs References) Get(instance *Instance) string {
	switch {
	case instance == nil:
		return ""
	case refs == nil:
		return instance.Reference
	}
	for {
		ref := instance.Reference
		if other, taken := refs[ref]; !IsEmptyReference(ref) && (!taken || other == instance) {
			refs[ref] = instance
			return ref
		}
		instance.Reference = GenerateReference()
	}
}

// IsEmptyReference reports whether ref refers to nothing.
func IsEmptyReference(ref string) bool {
	return ref == "" || ref == "null" || ref == "nil"
}

// GenerateReference returns a new random referent, formed by "RBX" followed
// by the 32 upper-case hex digits of a UUID.
func GenerateReference() string {
	id, err := uuid.GenerateUUID()
	if err != nil {
		panic("rbxrojo: generate reference: " + err.Error())
	}
	return "RBX" + strings.ToUpper(strings.ReplaceAll(id, "-", ""))
}

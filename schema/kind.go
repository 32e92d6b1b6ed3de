package schema

import "strings"

// Kind is the closed set of scalar kinds a field may carry.
type Kind int

const (
	// KindAny accepts every value unchanged.
	KindAny Kind = iota
	// KindText is a string.
	KindText
	// KindInteger is a whole number.
	KindInteger
	// KindFloat is a floating point number.
	KindFloat
	// KindFlag is a boolean.
	KindFlag
	// KindSequence is an ordered list.
	KindSequence
	// KindRecord is a string keyed object, optionally with a nested descriptor.
	KindRecord
)

// String returns the canonical kind name.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindFlag:
		return "flag"
	case KindSequence:
		return "sequence"
	case KindRecord:
		return "record"
	default:
		return "any"
	}
}

// JSONType returns the JSON Schema type keyword, or "" for KindAny.
func (k Kind) JSONType() string {
	switch k {
	case KindText:
		return "string"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "number"
	case KindFlag:
		return "boolean"
	case KindSequence:
		return "array"
	case KindRecord:
		return "object"
	default:
		return ""
	}
}

// KindOf maps a configured type name to a Kind. The mapping is total:
// unrecognized names yield KindAny.
func KindOf(name string) Kind {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "str", "string", "text":
		return KindText
	case "int", "integer":
		return KindInteger
	case "float", "number", "double":
		return KindFloat
	case "bool", "boolean", "flag":
		return KindFlag
	case "list", "array", "sequence":
		return KindSequence
	case "dict", "object", "record", "map":
		return KindRecord
	default:
		return KindAny
	}
}

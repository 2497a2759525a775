// Package diag defines the error taxonomy shared by every threemf package
// and the warning sink used by the relaxed reader.
package diag

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error by how the caller should react to it.
type Kind int

// Error kinds.
const (
	KindUnknown        Kind = iota
	KindMalformedInput      // XML syntax, truncated container, content type mismatch
	KindSchemaViolation     // attribute/structure rules of the 3MF schema
	KindResource            // internal consistency loss between resources
	KindIO                  // stream read/write/seek failure
	KindUserAborted         // caller-initiated cancellation
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindMalformedInput:
		return "MalformedInput"
	case KindSchemaViolation:
		return "SchemaViolation"
	case KindResource:
		return "ResourceError"
	case KindIO:
		return "IOError"
	case KindUserAborted:
		return "UserAborted"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Code is a sentinel error identifying one failure condition.
// Codes are compared with errors.Is.
type Code struct {
	kind        Kind
	name        string
	recoverable bool
}

func newCode(kind Kind, name string, recoverable bool) *Code {
	return &Code{kind: kind, name: name, recoverable: recoverable}
}

// Error implements error.
func (c *Code) Error() string { return c.name }

// Kind returns the kind the code belongs to.
func (c *Code) Kind() Kind { return c.kind }

// Recoverable reports whether a relaxed reader may turn the code into a warning.
func (c *Code) Recoverable() bool { return c.recoverable }

// Malformed input.
var (
	ErrMalformedXML        = newCode(KindMalformedInput, "malformed XML", false)
	ErrMalformedPackage    = newCode(KindMalformedInput, "malformed package", false)
	ErrContentTypeMismatch = newCode(KindMalformedInput, "content type mismatch", false)
	ErrMissingModelPart    = newCode(KindMalformedInput, "missing model part", false)
)

// Schema violations. The recoverable ones can be downgraded to warnings.
var (
	ErrMissingRequiredAttribute     = newCode(KindSchemaViolation, "missing required attribute", true)
	ErrDuplicateAttribute           = newCode(KindSchemaViolation, "duplicate attribute", true)
	ErrInvalidAttributeValue        = newCode(KindSchemaViolation, "invalid attribute value", true)
	ErrNumberOutOfRange             = newCode(KindSchemaViolation, "number out of range", true)
	ErrMissingVolumeDataAttribute   = newCode(KindSchemaViolation, "missing volume data attribute", true)
	ErrDuplicateVolumeDataAttribute = newCode(KindSchemaViolation, "duplicate volume data attribute", true)
	ErrDuplicateMetadata            = newCode(KindSchemaViolation, "duplicate metadata", true)
	ErrUnknownElement               = newCode(KindSchemaViolation, "unknown element", true)
	ErrInvalidUUID                  = newCode(KindSchemaViolation, "invalid UUID", true)
	ErrSlicesZNotIncreasing         = newCode(KindSchemaViolation, "slices Z not increasing", true)
	ErrInvalidPolygon               = newCode(KindSchemaViolation, "invalid slice polygon", true)

	ErrInvalidIndex                 = newCode(KindSchemaViolation, "invalid index", false)
	ErrInvalidArgument              = newCode(KindSchemaViolation, "invalid argument", false)
	ErrCircularReference            = newCode(KindSchemaViolation, "circular reference", false)
	ErrReferenceTooDeep             = newCode(KindSchemaViolation, "reference too deep", false)
	ErrForwardReference             = newCode(KindSchemaViolation, "forward reference", false)
	ErrInvalidResourceID            = newCode(KindSchemaViolation, "invalid resource ID", false)
	ErrRequiredExtensionUnsupported = newCode(KindSchemaViolation, "required extension not supported", false)
)

// Resource errors.
var (
	ErrDuplicateResourceID  = newCode(KindResource, "duplicate resource ID", false)
	ErrResourceNotFound     = newCode(KindResource, "resource not found", false)
	ErrInvalidPropertyIndex = newCode(KindResource, "invalid property index", false)
	ErrResourceKindMismatch = newCode(KindResource, "resource kind mismatch", false)
)

// Stream and cancellation errors.
var (
	ErrIO          = newCode(KindIO, "I/O error", false)
	ErrUserAborted = newCode(KindUserAborted, "aborted by user", false)
)

// Error is a coded error with the part/element context it was raised in.
type Error struct {
	Code    *Code
	Context string
	Err     error
}

// Error implements error.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Code.name)
	if e.Context != "" {
		b.WriteString(": ")
		b.WriteString(e.Context)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the code and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Code}
	}
	return []error{e.Code, e.Err}
}

// New creates a coded error with a formatted context message.
func New(code *Code, format string, args ...any) error {
	return &Error{Code: code, Context: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and context to an underlying error.
// A nil err yields nil.
func Wrap(code *Code, err error, context string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Context: context, Err: err}
}

// CodeOf returns the first Code found in err's chain, or nil.
func CodeOf(err error) *Code {
	var c *Code
	if errors.As(err, &c) {
		return c
	}
	return nil
}

// KindOf returns the kind of err, or KindUnknown for uncoded errors.
func KindOf(err error) Kind {
	if c := CodeOf(err); c != nil {
		return c.kind
	}
	return KindUnknown
}

// IsRecoverable reports whether err may be recorded as a warning in relaxed mode.
func IsRecoverable(err error) bool {
	c := CodeOf(err)
	return c != nil && c.recoverable
}

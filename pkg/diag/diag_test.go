package diag

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMatchesCodeAndCause(t *testing.T) {
	err := Wrap(ErrIO, io.ErrUnexpectedEOF, "/3D/3dmodel.model")

	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, KindIO, KindOf(err))
	assert.Equal(t, "I/O error: /3D/3dmodel.model: unexpected EOF", err.Error())
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(ErrIO, nil, "ctx"))
}

func TestKindOfThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("reading object: %w", New(ErrCircularReference, "object %d", 4))

	assert.Equal(t, KindSchemaViolation, KindOf(err))
	assert.False(t, IsRecoverable(err))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindMalformedInput, "MalformedInput"},
		{KindSchemaViolation, "SchemaViolation"},
		{KindResource, "ResourceError"},
		{KindIO, "IOError"},
		{KindUserAborted, "UserAborted"},
		{Kind(42), "Unknown(42)"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.String())
		})
	}
}

func TestSinkStrict(t *testing.T) {
	s := NewSink(false)
	err := New(ErrMissingRequiredAttribute, "levelset channel")

	require.Error(t, s.Report(err))
	assert.Equal(t, 0, s.Len())
}

func TestSinkRelaxed(t *testing.T) {
	s := NewSink(true)

	require.NoError(t, s.Report(New(ErrMissingRequiredAttribute, "first")))
	require.NoError(t, s.Report(New(ErrDuplicateMetadata, "second")))
	require.Error(t, s.Report(New(ErrInvalidIndex, "face 3")))
	require.Error(t, s.Report(New(ErrDuplicateResourceID, "id 1")))

	require.Equal(t, 2, s.Len())
	assert.ErrorIs(t, s.Warning(0), ErrMissingRequiredAttribute)
	assert.ErrorIs(t, s.Warning(1), ErrDuplicateMetadata)
	assert.Nil(t, s.Warning(2))

	s.Reset()
	assert.Empty(t, s.Warnings())
}

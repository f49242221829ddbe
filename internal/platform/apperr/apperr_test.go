package apperr

import (
	stderrors "errors"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestInvalid(t *testing.T) {
	assert.NoError(t, Invalid(nil))

	cause := errors.New("name is required")
	err := Invalid(cause)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "name is required", err.Error())
}

func TestForbidden(t *testing.T) {
	err := Forbidden("read-only users cannot write")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NotErrorIs(t, err, ErrInvalidArgument)
	assert.Contains(t, err.Error(), "read-only users cannot write")
}

func TestMark_VisibleToBothErrorPackages(t *testing.T) {
	class := errors.New("write failed")
	other := errors.New("other")
	cause := errors.New("disk full")
	err := errors.Wrap(Mark(errors.Wrap(cause, "append"), class), "create")

	assert.True(t, stderrors.Is(err, class))
	assert.True(t, errors.Is(err, class))
	assert.True(t, stderrors.Is(err, cause))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, stderrors.Is(err, other))
	assert.False(t, errors.Is(err, other))
	assert.Equal(t, "create: append: disk full", err.Error())
}

func TestMark_Stacks(t *testing.T) {
	a := errors.New("a")
	b := errors.New("b")
	err := Mark(Mark(errors.New("boom"), a), b)

	assert.True(t, stderrors.Is(err, a))
	assert.True(t, stderrors.Is(err, b))
	assert.NoError(t, Mark(nil, a))
}

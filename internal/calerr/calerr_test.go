package calerr

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapfKeepsKind(t *testing.T) {
	err := Wrapf(ErrMalformedInput, nil, "column %q missing", "ut")
	assert.True(t, errors.Is(err, ErrMalformedInput))
	assert.False(t, errors.Is(err, ErrRender))
	assert.Contains(t, err.Error(), `column "ut" missing`)
	assert.Equal(t, ErrMalformedInput, Kind(err))
}

func TestWrapfKeepsCause(t *testing.T) {
	err := Wrapf(ErrOutputWrite, os.ErrPermission, "mkdir %s", "plots")
	assert.True(t, errors.Is(err, ErrOutputWrite))
	assert.True(t, errors.Is(err, os.ErrPermission))
	assert.Equal(t, ErrOutputWrite, Kind(err))
}

func TestKindUnknown(t *testing.T) {
	assert.Nil(t, Kind(errors.New("boom")))
	assert.Nil(t, Kind(nil))
}

package errs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAndKindOf(t *testing.T) {
	err := New(KindValidation, "bad statement", "Forbidden keyword: QCMDEXC")
	assert.True(t, Is(err, KindValidation))
	assert.False(t, Is(err, KindDatabase))
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, Details{"Forbidden keyword: QCMDEXC"}, DetailsOf(err))
}

func TestWrapPreservesKind(t *testing.T) {
	cause := assertErr("driver timeout")
	err := Wrap(KindDatabase, cause, "execute failed")
	assert.True(t, Is(err, KindDatabase))
}

func assertErr(msg string) error { return New(KindInternal, msg) }

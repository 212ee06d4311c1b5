package invariant

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssertPasses(t *testing.T) {
	assert.NotPanics(t, func() {
		Assert(true, "unreachable")
	})
}

func TestAssertFails(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic")
		}
		var v *Violation
		if !errors.As(recoverToError(r), &v) {
			t.Fatalf("expected *Violation, got %T", r)
		}
		assert.Contains(t, v.Message, "counter")
	}()
	Assert(false, "signal destroyed with nonzero counter: %d", 3)
}

func recoverToError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return nil
}

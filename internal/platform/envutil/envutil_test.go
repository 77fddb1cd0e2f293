package envutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDurationParsesGoDurationAndMillis(t *testing.T) {
	t.Setenv("CLUBOPS_TEST_DURATION", "750ms")
	assert.Equal(t, 750*time.Millisecond, Duration("CLUBOPS_TEST_DURATION", time.Second, nil))

	t.Setenv("CLUBOPS_TEST_DURATION", "1200")
	assert.Equal(t, 1200*time.Millisecond, Duration("CLUBOPS_TEST_DURATION", time.Second, nil))

	t.Setenv("CLUBOPS_TEST_DURATION", "soon")
	assert.Equal(t, time.Second, Duration("CLUBOPS_TEST_DURATION", time.Second, nil))
}

func TestIntAndBoolDefaults(t *testing.T) {
	t.Setenv("CLUBOPS_TEST_INT", "x")
	assert.Equal(t, 7, Int("CLUBOPS_TEST_INT", 7, nil))

	t.Setenv("CLUBOPS_TEST_INT", "42")
	assert.Equal(t, 42, Int("CLUBOPS_TEST_INT", 7, nil))

	t.Setenv("CLUBOPS_TEST_BOOL", "off")
	assert.False(t, Bool("CLUBOPS_TEST_BOOL", true))
	t.Setenv("CLUBOPS_TEST_BOOL", "")
	assert.True(t, Bool("CLUBOPS_TEST_BOOL", true))
}

func TestStringFallsBackOnBlank(t *testing.T) {
	t.Setenv("CLUBOPS_TEST_STRING", "   ")
	assert.Equal(t, "def", String("CLUBOPS_TEST_STRING", "def", nil))
}

package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvDuration(t *testing.T) {
	t.Setenv("POINTSX_TEST_DURATION", "90s")
	assert.Equal(t, 90*time.Second, EnvDuration("POINTSX_TEST_DURATION", time.Minute))

	t.Setenv("POINTSX_TEST_DURATION", "15")
	assert.Equal(t, 15*time.Second, EnvDuration("POINTSX_TEST_DURATION", time.Minute))

	t.Setenv("POINTSX_TEST_DURATION", "soon")
	assert.Equal(t, time.Minute, EnvDuration("POINTSX_TEST_DURATION", time.Minute))

	assert.Equal(t, time.Hour, EnvDuration("POINTSX_TEST_UNSET", time.Hour))
}

func TestEnvInts(t *testing.T) {
	t.Setenv("POINTSX_TEST_INTS", "1, 2,x,4")
	assert.Equal(t, []int{1, 2, 4}, EnvInts("POINTSX_TEST_INTS"))
	assert.Nil(t, EnvInts("POINTSX_TEST_UNSET"))
}

func TestEnvIntRejectsNonPositive(t *testing.T) {
	t.Setenv("POINTSX_TEST_INT", "-3")
	assert.Equal(t, 7, EnvInt("POINTSX_TEST_INT", 7))

	t.Setenv("POINTSX_TEST_FLOAT", "2.5")
	assert.Equal(t, 2.5, EnvFloat("POINTSX_TEST_FLOAT", 1))
}

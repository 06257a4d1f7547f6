package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateEnv(t *testing.T) {
	t.Setenv("SB_PRESENT", "x")
	t.Setenv("SB_MISSING_ONE", "")

	assert.NoError(t, ValidateEnv("SB_PRESENT"))

	err := ValidateEnv("SB_PRESENT", "SB_MISSING_ONE", "SB_MISSING_TWO")
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "SB_MISSING_ONE, SB_MISSING_TWO")
	}
}

func TestTypedGetters(t *testing.T) {
	t.Setenv("SB_INT", "42")
	t.Setenv("SB_BAD_INT", "forty")
	t.Setenv("SB_DUR", "90s")
	t.Setenv("SB_BOOL", "true")
	t.Setenv("SB_LIST", " a, ,b ,c")

	assert.Equal(t, 42, GetEnvInt("SB_INT", 1))
	assert.Equal(t, 1, GetEnvInt("SB_BAD_INT", 1))
	assert.Equal(t, 90*time.Second, GetEnvDuration("SB_DUR", time.Second))
	assert.Equal(t, time.Second, GetEnvDuration("SB_UNSET_DUR", time.Second))
	assert.True(t, GetEnvBool("SB_BOOL", false))
	assert.Equal(t, []string{"a", "b", "c"}, GetEnvList("SB_LIST", nil))
	assert.Equal(t, "fallback", GetEnvOrDefault("SB_UNSET", "fallback"))
}

func TestMustGetEnvPanics(t *testing.T) {
	assert.Panics(t, func() { MustGetEnv("SB_DEFINITELY_UNSET") })
}

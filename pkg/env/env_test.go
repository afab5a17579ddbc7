package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetFallsBackOnBlank(t *testing.T) {
	t.Setenv("VITORA_ENV_TEST", "  ")
	assert.Equal(t, "json", Get("VITORA_ENV_TEST", "json"))

	t.Setenv("VITORA_ENV_TEST", " console ")
	assert.Equal(t, "console", Get("VITORA_ENV_TEST", "json"))
}

func TestFirstReturnsEarliestSetKey(t *testing.T) {
	t.Setenv("VITORA_ENV_A", "")
	t.Setenv("VITORA_ENV_B", "rev-7")
	t.Setenv("VITORA_ENV_C", "other")

	val, ok := First("VITORA_ENV_A", "VITORA_ENV_B", "VITORA_ENV_C")
	assert.True(t, ok)
	assert.Equal(t, "rev-7", val)

	_, ok = First("VITORA_ENV_A")
	assert.False(t, ok)
}

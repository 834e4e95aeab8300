package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	name   string
	values map[string]interface{}
}

func (s *staticSource) GetValue(key string) interface{} {
	v, ok := s.values[key]
	if !ok {
		return nil
	}
	return v
}

func (s *staticSource) Name() string {
	return s.name
}

func TestSourcePrecedence(t *testing.T) {
	manager := NewConfigManager()
	opt := manager.RegisterOption("patchbot.test.opt", "testing option", 10)

	manager.Load()
	assert.Equal(t, 10, opt.GetInt(), "default used with no sources")
	assert.Nil(t, opt.ConfigSource)

	first := &staticSource{name: "first", values: map[string]interface{}{"patchbot.test.opt": "20"}}
	second := &staticSource{name: "second", values: map[string]interface{}{"patchbot.test.opt": "30"}}

	manager.AddSource(first)
	manager.Load()
	assert.Equal(t, 20, opt.GetInt())

	// later added sources override earlier ones
	manager.AddSource(second)
	manager.Load()
	assert.Equal(t, 30, opt.GetInt())
	require.NotNil(t, opt.ConfigSource)
	assert.Equal(t, "second", opt.ConfigSource.Name())
}

func TestEnvSource(t *testing.T) {
	os.Setenv("PATCHBOT_TEST_ENV_OPT", "enabled")
	defer os.Unsetenv("PATCHBOT_TEST_ENV_OPT")

	manager := NewConfigManager()
	opt := manager.RegisterOption("patchbot.test.env_opt", "testing option", false)
	manager.AddSource(&EnvSource{})
	manager.Load()

	assert.True(t, opt.GetBool())
}

func TestValueCoercion(t *testing.T) {
	boolCases := []struct {
		in       interface{}
		expected bool
	}{
		{"true", true},
		{"Yes", true},
		{"on", true},
		{"1", true},
		{"0", false},
		{"false", false},
		{"garbage", false},
		{1, true},
		{0, false},
		{true, true},
	}

	for _, c := range boolCases {
		assert.Equal(t, c.expected, boolVal(c.in), "boolVal(%v)", c.in)
	}

	assert.Equal(t, 42, intVal("42"))
	assert.Equal(t, 0, intVal("not a number"))
	assert.Equal(t, "42", strVal(42))
	assert.Equal(t, "str", strVal("str"))
}

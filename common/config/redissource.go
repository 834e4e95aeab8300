package config

import (
	"strings"

	"github.com/mediocregopher/radix/v3"
	"github.com/sirupsen/logrus"
)

// RedisConfigStore reads and writes options in the patchbot_config hash,
// option names are stored with the "patchbot." prefix stripped.
type RedisConfigStore struct {
	Pool *radix.Pool
}

func (rs *RedisConfigStore) GetValue(key string) interface{} {
	prefixStripped := strings.TrimPrefix(key, "patchbot.")

	var v string
	err := rs.Pool.Do(radix.Cmd(&v, "HGET", "patchbot_config", prefixStripped))
	if err != nil {
		logrus.WithError(err).Error("[redis_config_source] failed retrieving value")
		return nil
	}

	if v == "" {
		return nil
	}

	return v
}

func (rs *RedisConfigStore) SaveValue(key, value string) error {
	prefixStripped := strings.TrimPrefix(key, "patchbot.")

	err := rs.Pool.Do(radix.Cmd(nil, "HSET", "patchbot_config", prefixStripped, value))
	if err != nil {
		return err
	}

	return nil
}

func (rs *RedisConfigStore) Name() string {
	return "redis"
}

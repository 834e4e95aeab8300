package common

import (
	"time"

	"emperror.dev/errors"
	"github.com/mediocregopher/radix/v3"
)

var (
	ErrMaxLockAttemptsExceeded = errors.New("max lock attempts exceeded")
)

// TryLockRedisKey attempts to lock the key, expiring after maxLockDur seconds
// so that a crashed process doesn't hold it forever
func TryLockRedisKey(key string, maxLockDur int) (bool, error) {
	var resp string
	err := RedisPool.Do(radix.FlatCmd(&resp, "SET", key, true, "EX", maxLockDur, "NX"))
	if err != nil {
		return false, err
	}

	return resp == "OK", nil
}

// BlockingLockRedisKey blocks until it succeeded to lock the key
func BlockingLockRedisKey(key string, maxTryDuration time.Duration, maxLockDur int) error {
	started := time.Now()
	sleepDur := time.Millisecond * 100
	maxSleep := time.Second
	for {
		if maxTryDuration != 0 && time.Since(started) > maxTryDuration {
			return ErrMaxLockAttemptsExceeded
		}

		locked, err := TryLockRedisKey(key, maxLockDur)
		if err != nil {
			return ErrWithCaller(err)
		}

		if locked {
			return nil
		}

		time.Sleep(sleepDur)
		sleepDur *= 2
		if sleepDur > maxSleep {
			sleepDur = maxSleep
		}
	}
}

func UnlockRedisKey(key string) {
	RedisPool.Do(radix.Cmd(nil, "DEL", key))
}

package common

import (
	"github.com/mediocregopher/radix/v3"
)

// MultipleCmds runs all the commands in sequence on the pool
func MultipleCmds(cmds ...radix.CmdAction) error {
	for _, v := range cmds {
		err := RedisPool.Do(v)
		if err != nil {
			return err
		}
	}

	return nil
}

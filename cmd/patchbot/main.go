package main

import (
	"github.com/botlabs-gg/patchbot/commands"
	"github.com/botlabs-gg/patchbot/common/run"
	"github.com/botlabs-gg/patchbot/patchnotes"
)

func main() {
	run.Init()

	// Setup plugins
	commands.RegisterPlugin()
	patchnotes.RegisterPlugin()

	run.Run()
}

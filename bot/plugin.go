package bot

import (
	"sync"

	"github.com/botlabs-gg/patchbot/common"
)

// Fired when the bot is starting up, before the gateway connection is opened,
// register your discord handlers here
type BotInitHandler interface {
	BotInit()
}

// Fired when the bot is starting up, after the gateway connection is opened
type LateBotInitHandler interface {
	LateBotInit()
}

// BotStopperHandler runs when the bot is shutting down
// you need to call wg.Done when you have completed your plugin shutdown (stopped background workers)
type BotStopperHandler interface {
	StopBot(wg *sync.WaitGroup)
}

// bot plugin
var logger = common.GetPluginLogger(&botPlugin{})

type botPlugin struct {
}

func (p *botPlugin) PluginInfo() *common.PluginInfo {
	return &common.PluginInfo{
		Name:     "Bot Core",
		SysName:  "bot_core",
		Category: common.PluginCategoryCore,
	}
}

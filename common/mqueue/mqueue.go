package mqueue

import (
	"github.com/botlabs-gg/patchbot/common"
)

var logger = common.GetFixedPrefixLogger("mqueue")

type Plugin struct {
	server *MqueueServer
}

func (p *Plugin) PluginInfo() *common.PluginInfo {
	return &common.PluginInfo{
		Name:     "mqueue",
		SysName:  "mqueue",
		Category: common.PluginCategoryCore,
	}
}

func RegisterPlugin() {
	p := &Plugin{}
	common.RegisterPlugin(p)
}

// PluginWithSourceDisabler is implemented by sources that can disable
// the feed that generated a element, called when sending fails with a
// permanent discord error
type PluginWithSourceDisabler interface {
	common.Plugin

	DisableFeed(elem *QueuedElement, err error)
}

var sources = make(map[string]PluginWithSourceDisabler)

// RegisterSource registers a source, responsible for handling discord errors on its elements
func RegisterSource(name string, source PluginWithSourceDisabler) {
	sources[name] = source
}

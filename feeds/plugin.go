package feeds

import (
	"sync"

	"github.com/botlabs-gg/patchbot/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

var (
	MetricPostedMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "patchbot_feeds_posted_messages_total",
		Help: "Messages posted by the feeds",
	}, []string{"source"})
)

// Plugin is a feed plugin, which is ran on the feed workers
type Plugin interface {
	common.Plugin

	StartFeed()
	StopFeed(*sync.WaitGroup)
}

var (
	runningPlugins = make([]Plugin, 0)
)

// Run starts the feeds in which, or all feed plugins if which is empty
func Run(which []string) {
	for _, plugin := range common.Plugins {
		fp, ok := plugin.(Plugin)
		if !ok {
			continue
		}

		if len(which) > 0 && !common.ContainsStringSliceFold(which, plugin.PluginInfo().SysName) {
			continue
		}

		logrus.Info("Starting feed ", plugin.PluginInfo().Name)
		go fp.StartFeed()
		runningPlugins = append(runningPlugins, fp)
	}
}

func Stop(wg *sync.WaitGroup) {
	for _, plugin := range runningPlugins {
		logrus.Info("Stopping feed ", plugin.PluginInfo().Name)
		wg.Add(1)
		go plugin.StopFeed(wg)
	}
}

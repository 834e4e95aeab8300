// Package patchnotes polls the Steam news API for game updates and announces
// new patch notes to the servers subscribed to them.
package patchnotes

import (
	"sync"
	"time"

	"github.com/botlabs-gg/patchbot/common"
	"github.com/botlabs-gg/patchbot/common/mqueue"
	"github.com/botlabs-gg/patchbot/steamnews"
)

var (
	logger = common.GetPluginLogger(&Plugin{})

	steamClient = steamnews.NewClient(nil)
)

type Plugin struct {
	Stop         chan *sync.WaitGroup
	stopBGWorker chan *sync.WaitGroup

	// swapped out in tests
	fetchNews newsFetcher

	// next check times per guild, only touched by the feed loop
	nextDue map[int64]time.Time
}

func (p *Plugin) PluginInfo() *common.PluginInfo {
	return &common.PluginInfo{
		Name:     "Patch Notes",
		SysName:  "patchnotes",
		Category: common.PluginCategoryFeeds,
	}
}

func RegisterPlugin() {
	common.InitSchemas("patchnotes", DBSchemas...)

	p := &Plugin{
		fetchNews: fetchLatestNews,
		nextDue:   make(map[int64]time.Time),
	}

	common.RegisterPlugin(p)
	mqueue.RegisterSource("patchnotes", p)
}

type newsFetcher func(appID int64, count int) (*steamnews.AppNews, error)

func fetchLatestNews(appID int64, count int) (*steamnews.AppNews, error) {
	news, _, err := steamClient.News.ForApp(&steamnews.NewsForAppParams{
		AppID:     appID,
		Count:     count,
		MaxLength: newsFetchMaxLength,
	})
	return news, err
}

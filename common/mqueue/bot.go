package mqueue

import (
	"sync"

	"github.com/botlabs-gg/patchbot/bot"
	"github.com/botlabs-gg/patchbot/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var _ bot.LateBotInitHandler = (*Plugin)(nil)

// LateBotInit implements bot.LateBotInitHandler
func (p *Plugin) LateBotInit() {
	redisBackend := &RedisBackend{
		pool: common.RedisPool,
	}

	server := NewServer(redisBackend, &DiscordProcessor{})
	redisPubsub := RedisPushServer{
		pushwork:    server.PushWork,
		fullRefresh: server.refreshWork,
	}
	go server.Run()
	go redisPubsub.run()
	p.server = server

	logger.Info("Started mqueue server")
}

var _ bot.BotStopperHandler = (*Plugin)(nil)

// StopBot implements bot.BotStopperHandler
func (p *Plugin) StopBot(wg *sync.WaitGroup) {
	if p.server != nil {
		p.server.Stop <- wg
	} else {
		wg.Done()
	}
}

var metricsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "patchbot_mqueue_processed_total",
	Help: "Total mqueue elements processed",
}, []string{"source"})

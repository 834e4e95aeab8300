package patchnotes

import (
	"strings"
	"sync"
	"time"

	"github.com/botlabs-gg/patchbot/common"
	"github.com/botlabs-gg/patchbot/common/backgroundworkers"
	"github.com/mediocregopher/radix/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metricActiveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "patchbot_patchnotes_active_subscriptions",
	Help: "Enabled game subscriptions across all guilds",
})

var _ backgroundworkers.BackgroundWorkerPlugin = (*Plugin)(nil)

func (p *Plugin) RunBackgroundWorker() {
	p.stopBGWorker = make(chan *sync.WaitGroup)

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	p.updateSubscriptionGauge()

	for {
		select {
		case wg := <-p.stopBGWorker:
			wg.Done()
			return
		case <-ticker.C:
			p.vacuumMarkers()
			p.updateSubscriptionGauge()
		}
	}
}

func (p *Plugin) StopBackgroundWorker(wg *sync.WaitGroup) {
	if p.stopBGWorker != nil {
		p.stopBGWorker <- wg
	} else {
		wg.Done()
	}
}

// vacuumMarkers removes the last seen markers whose subscription no longer exists
func (p *Plugin) vacuumMarkers() {
	var subs []*GameSubscription
	err := common.GORM.Find(&subs).Error
	if err != nil {
		logger.WithError(err).Error("Failed loading game subscriptions for the marker vacuum")
		return
	}

	existing := make(map[string]bool, len(subs))
	for _, sub := range subs {
		existing[markerField(sub.GuildID, sub.AppID)] = true
	}

	var fields []string
	err = common.RedisPool.Do(radix.Cmd(&fields, "HKEYS", redisLastDateHash))
	if err != nil {
		logger.WithError(err).Error("Failed listing patch note markers")
		return
	}

	removed := 0
	for _, field := range fields {
		if existing[field] {
			continue
		}

		// sanity check the field shape before removing anything
		if !strings.Contains(field, ":") {
			continue
		}

		err = common.RedisPool.Do(radix.Cmd(nil, "HDEL", redisLastDateHash, field))
		if err != nil {
			logger.WithError(err).WithField("field", field).Error("Failed removing stale patch note marker")
			continue
		}

		common.RedisPool.Do(radix.Cmd(nil, "HDEL", redisLastGIDHash, field))
		removed++
	}

	if removed > 0 {
		logger.Infof("Removed %d stale patch note markers", removed)
	}
}

func (p *Plugin) updateSubscriptionGauge() {
	var count int
	err := common.GORM.Model(&GameSubscription{}).Where("enabled = ?", true).Count(&count).Error
	if err != nil {
		logger.WithError(err).Error("Failed counting enabled game subscriptions")
		return
	}

	metricActiveSubscriptions.Set(float64(count))
}

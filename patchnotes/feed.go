package patchnotes

import (
	"strconv"
	"sync"
	"time"

	"emperror.dev/errors"
	"github.com/botlabs-gg/patchbot/common"
	"github.com/botlabs-gg/patchbot/common/config"
	"github.com/botlabs-gg/patchbot/common/mqueue"
	"github.com/botlabs-gg/patchbot/feeds"
	"github.com/botlabs-gg/patchbot/steamnews"
	"github.com/mediocregopher/radix/v3"
	"github.com/prometheus/client_golang/prometheus"
)

var confPollInterval = config.RegisterOption("patchbot.patchnotes.poll_interval", "Seconds between checks for servers due another patch note poll", 60)

const (
	newsFetchCount     = 10
	newsFetchMaxLength = 500
)

const (
	redisLastDateHash = "patch_notes_last_date"
	redisLastGIDHash  = "patch_notes_last_gid"
)

func markerField(guildID string, appID int64) string {
	return guildID + ":" + strconv.FormatInt(appID, 10)
}

// swapped out in tests
var queueMessage = mqueue.QueueMessage

var _ feeds.Plugin = (*Plugin)(nil)

func (p *Plugin) StartFeed() {
	p.Stop = make(chan *sync.WaitGroup)
	go p.runFeedLoop()
}

func (p *Plugin) StopFeed(wg *sync.WaitGroup) {
	if p.Stop != nil {
		p.Stop <- wg
	} else {
		wg.Done()
	}
}

func (p *Plugin) runFeedLoop() {
	interval := confPollInterval.GetInt()
	if interval < 10 {
		interval = 10
	}

	ticker := time.NewTicker(time.Second * time.Duration(interval))
	defer ticker.Stop()

	for {
		select {
		case wg := <-p.Stop:
			wg.Done()
			return
		case <-ticker.C:
			p.pollFeeds()
		}
	}
}

func (p *Plugin) pollFeeds() {
	var subs []*GameSubscription
	err := common.GORM.Where("enabled = ?", true).Order("guild_id, app_id").Find(&subs).Error
	if err != nil {
		logger.WithError(err).Error("Failed loading game subscriptions")
		return
	}

	if len(subs) == 0 {
		return
	}

	grouped := make(map[string][]*GameSubscription)
	order := make([]string, 0)
	for _, sub := range subs {
		if _, ok := grouped[sub.GuildID]; !ok {
			order = append(order, sub.GuildID)
		}

		grouped[sub.GuildID] = append(grouped[sub.GuildID], sub)
	}

	now := time.Now()
	for _, g := range order {
		p.checkGuild(now, g, grouped[g])
	}
}

// checkGuild runs through a single guilds subscriptions if the guild is due for a check
func (p *Plugin) checkGuild(now time.Time, rawGuildID string, subs []*GameSubscription) {
	guildID, err := strconv.ParseInt(rawGuildID, 10, 64)
	if err != nil {
		logger.WithError(err).WithField("guild", rawGuildID).Error("Invalid guild id on game subscription")
		return
	}

	if due, ok := p.nextDue[guildID]; ok && now.Before(due) {
		return
	}

	conf, err := GetConfig(guildID)
	if err != nil {
		logger.WithError(err).WithField("guild", guildID).Error("Failed retrieving patch notes config")
		return
	}

	if !conf.AutoAnnounce {
		return
	}

	for _, sub := range subs {
		err = p.checkSubscription(conf, sub)
		if err != nil {
			logger.WithError(err).WithField("guild", guildID).WithField("app", sub.AppID).Warn("Failed checking for new patch notes")
		}
	}

	p.nextDue[guildID] = now.Add(time.Duration(conf.CheckInterval) * time.Second)
}

func (p *Plugin) checkSubscription(conf *GuildConfig, sub *GameSubscription) error {
	news, err := p.fetchNews(sub.AppID, newsFetchCount)
	if err != nil {
		return err
	}

	if len(news.NewsItems) == 0 {
		return nil
	}

	field := markerField(sub.GuildID, sub.AppID)

	var rawLast string
	err = common.RedisPool.Do(radix.Cmd(&rawLast, "HGET", redisLastDateHash, field))
	if err != nil {
		return errors.WithStackIf(err)
	}

	if rawLast == "" {
		// first check for this subscription, start tracking at the current
		// newest item without announcing the backlog
		return setLastSeen(field, news.NewsItems[0])
	}

	lastDate, err := strconv.ParseInt(rawLast, 10, 64)
	if err != nil {
		return errors.WithStackIf(err)
	}

	// the api returns them newest first
	newItems := make([]*steamnews.NewsItem, 0, len(news.NewsItems))
	for _, item := range news.NewsItems {
		if item.Date > lastDate {
			newItems = append(newItems, item)
		}
	}

	if len(newItems) == 0 {
		return nil
	}

	channelID := resolveAnnouncementChannel(conf, sub)
	if channelID == 0 {
		// no channel set up, leave the marker alone so these get announced
		// once one is configured
		return nil
	}

	// announce oldest first so the channel reads in order
	for i := len(newItems) - 1; i >= 0; i-- {
		item := newItems[i]

		err = queueMessage(&mqueue.QueuedElement{
			GuildID:      conf.GuildID,
			ChannelID:    channelID,
			Source:       "patchnotes",
			SourceItemID: strconv.FormatInt(int64(sub.ID), 10),
			MessageEmbed: CreatePatchNoteEmbed(sub.GameName, item),
		})
		if err != nil {
			return errors.WithStackIf(err)
		}

		// advance the marker per item, a failure further down the batch can
		// then not repost what was already queued
		err = setLastSeen(field, item)
		if err != nil {
			return errors.WithStackIf(err)
		}

		feeds.MetricPostedMessages.With(prometheus.Labels{"source": "patchnotes"}).Inc()
	}

	return nil
}

// resolveAnnouncementChannel resolves the channel announcements for a
// subscription go to, 0 if none is set up
func resolveAnnouncementChannel(conf *GuildConfig, sub *GameSubscription) int64 {
	raw := sub.ChannelID
	if raw == "" {
		raw = conf.AnnouncementChannel
	}

	if raw == "" {
		return 0
	}

	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}

	return parsed
}

func setLastSeen(field string, item *steamnews.NewsItem) error {
	err := common.MultipleCmds(
		radix.FlatCmd(nil, "HSET", redisLastDateHash, field, item.Date),
		radix.Cmd(nil, "HSET", redisLastGIDHash, field, item.GID),
	)
	return errors.WithStackIf(err)
}

func getLastSeenDate(guildID string, appID int64) int64 {
	var raw string
	err := common.RedisPool.Do(radix.Cmd(&raw, "HGET", redisLastDateHash, markerField(guildID, appID)))
	if err != nil || raw == "" {
		return 0
	}

	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}

	return parsed
}

func removeLastSeen(guildID string, appID int64) {
	field := markerField(guildID, appID)

	err := common.RedisPool.Do(radix.Cmd(nil, "HDEL", redisLastDateHash, field))
	if err != nil {
		logger.WithError(err).WithField("field", field).Error("Failed removing patch note marker")
	}

	err = common.RedisPool.Do(radix.Cmd(nil, "HDEL", redisLastGIDHash, field))
	if err != nil {
		logger.WithError(err).WithField("field", field).Error("Failed removing patch note marker")
	}
}

var _ mqueue.PluginWithSourceDisabler = (*Plugin)(nil)

// DisableFeed disables the subscription that produced the element, called by
// mqueue when the channel is gone or we lack permissions
func (p *Plugin) DisableFeed(elem *mqueue.QueuedElement, err error) {
	subID, convErr := strconv.ParseInt(elem.SourceItemID, 10, 64)
	if convErr != nil {
		logger.WithError(convErr).WithField("source_id", elem.SourceItemID).Error("Invalid subscription id, can't disable feed")
		return
	}

	updateErr := common.GORM.Model(&GameSubscription{}).Where("id = ?", subID).Update("enabled", false).Error
	if updateErr != nil {
		logger.WithError(updateErr).WithField("sub", subID).Error("Failed disabling game subscription")
		return
	}

	logger.WithError(err).WithField("sub", subID).Warn("Disabled game subscription after permanent discord error")
}

package patchnotes

import (
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"emperror.dev/errors"
	"github.com/botlabs-gg/patchbot/common"
	"github.com/botlabs-gg/patchbot/common/mqueue"
	"github.com/botlabs-gg/patchbot/common/testutils"
	"github.com/botlabs-gg/patchbot/steamnews"
	"github.com/jinzhu/gorm"
	"github.com/jonas747/discordgo/v2"
	"github.com/mediocregopher/radix/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if err := common.InitTestRedis(); err != nil {
		fmt.Println("Failed connecting to test redis server, not running tests: ", err)
		return
	}

	db, err := testutils.InitPQ([]string{"patch_notes_subscriptions", "patch_notes_configs"}, DBSchemas)
	if err != nil {
		fmt.Println("Failed connecting to test postgres database, not running tests: ", err)
		return
	}

	gormDB, err := gorm.Open("postgres", db)
	if err != nil {
		fmt.Println("Failed opening gorm over the test database: ", err)
		return
	}

	common.PQ = db
	common.GORM = gormDB

	os.Exit(m.Run())
}

func testPlugin(fetch newsFetcher) *Plugin {
	return &Plugin{
		fetchNews: fetch,
		nextDue:   make(map[int64]time.Time),
	}
}

func testConfig(guildID int64) *GuildConfig {
	return &GuildConfig{
		GuildID:             guildID,
		AnnouncementChannel: "200",
		AutoAnnounce:        true,
		CheckInterval:       DefaultCheckInterval,
	}
}

func testSubscription(id uint, guildID int64, appID int64) *GameSubscription {
	sub := &GameSubscription{
		GuildID:  discordgo.StrID(guildID),
		AppID:    appID,
		GameName: "Test Game",
		Enabled:  true,
	}
	sub.ID = id

	return sub
}

func testNewsItem(gid string, date int64, title string) *steamnews.NewsItem {
	return &steamnews.NewsItem{
		GID:      gid,
		Title:    title,
		URL:      "https://store.steampowered.com/news/" + gid,
		Contents: "Contents of " + title,
		Date:     date,
	}
}

// singleAppFetcher always serves the passed items for the passed app
func singleAppFetcher(appID int64, items ...*steamnews.NewsItem) newsFetcher {
	return func(reqApp int64, count int) (*steamnews.AppNews, error) {
		if reqApp != appID {
			return nil, steamnews.ErrAppNotFound
		}

		return &steamnews.AppNews{AppID: appID, NewsItems: items, Count: len(items)}, nil
	}
}

func swapQueue(f func(elem *mqueue.QueuedElement) error) func() {
	old := queueMessage
	queueMessage = f
	return func() {
		queueMessage = old
	}
}

func captureQueue() (*[]*mqueue.QueuedElement, func()) {
	queued := make([]*mqueue.QueuedElement, 0)
	restore := swapQueue(func(elem *mqueue.QueuedElement) error {
		queued = append(queued, elem)
		return nil
	})

	return &queued, restore
}

func clearMarkers(t *testing.T) {
	t.Helper()

	err := common.RedisPool.Do(radix.Cmd(nil, "DEL", redisLastDateHash, redisLastGIDHash))
	require.NoError(t, err)
}

func TestCheckSubscriptionQuietInit(t *testing.T) {
	clearMarkers(t)

	queued, restore := captureQueue()
	defer restore()

	p := testPlugin(singleAppFetcher(440,
		testNewsItem("30", 3000, "Third"),
		testNewsItem("20", 2000, "Second"),
		testNewsItem("10", 1000, "First"),
	))

	conf := testConfig(10)
	sub := testSubscription(1, 10, 440)

	err := p.checkSubscription(conf, sub)
	require.NoError(t, err)

	// nothing announced the first time around, only the marker is set
	assert.Len(t, *queued, 0)
	assert.Equal(t, int64(3000), getLastSeenDate(sub.GuildID, sub.AppID))
}

func TestCheckSubscriptionNewItems(t *testing.T) {
	clearMarkers(t)

	queued, restore := captureQueue()
	defer restore()

	p := testPlugin(singleAppFetcher(440,
		testNewsItem("40", 4000, "Fourth"),
		testNewsItem("30", 3000, "Third"),
		testNewsItem("20", 2000, "Second"),
		testNewsItem("10", 1000, "First"),
	))

	conf := testConfig(10)
	sub := testSubscription(1, 10, 440)

	require.NoError(t, setLastSeen(markerField(sub.GuildID, sub.AppID), testNewsItem("20", 2000, "Second")))

	err := p.checkSubscription(conf, sub)
	require.NoError(t, err)

	// only the two strictly newer items, oldest first
	require.Len(t, *queued, 2)
	assert.Contains(t, (*queued)[0].MessageEmbed.Fields[0].Value, "Contents of Third")
	assert.Contains(t, (*queued)[1].MessageEmbed.Fields[0].Value, "Contents of Fourth")

	for _, elem := range *queued {
		assert.Equal(t, int64(10), elem.GuildID)
		assert.Equal(t, int64(200), elem.ChannelID)
		assert.Equal(t, "patchnotes", elem.Source)
		assert.Equal(t, strconv.FormatInt(int64(sub.ID), 10), elem.SourceItemID)
		require.NotNil(t, elem.MessageEmbed)
	}

	assert.Equal(t, int64(4000), getLastSeenDate(sub.GuildID, sub.AppID))
}

func TestCheckSubscriptionNothingNew(t *testing.T) {
	clearMarkers(t)

	queued, restore := captureQueue()
	defer restore()

	p := testPlugin(singleAppFetcher(440,
		testNewsItem("30", 3000, "Third"),
		testNewsItem("20", 2000, "Second"),
	))

	conf := testConfig(10)
	sub := testSubscription(1, 10, 440)

	// marker at the newest item, an equal or older item is never reposted
	require.NoError(t, setLastSeen(markerField(sub.GuildID, sub.AppID), testNewsItem("30", 3000, "Third")))

	err := p.checkSubscription(conf, sub)
	require.NoError(t, err)

	assert.Len(t, *queued, 0)
	assert.Equal(t, int64(3000), getLastSeenDate(sub.GuildID, sub.AppID))
}

func TestCheckSubscriptionNoChannel(t *testing.T) {
	clearMarkers(t)

	queued, restore := captureQueue()
	defer restore()

	p := testPlugin(singleAppFetcher(440,
		testNewsItem("30", 3000, "Third"),
	))

	conf := testConfig(10)
	conf.AnnouncementChannel = ""
	sub := testSubscription(1, 10, 440)

	require.NoError(t, setLastSeen(markerField(sub.GuildID, sub.AppID), testNewsItem("20", 2000, "Second")))

	err := p.checkSubscription(conf, sub)
	require.NoError(t, err)

	// no channel resolvable, hold the marker so the item is announced once
	// a channel is set up
	assert.Len(t, *queued, 0)
	assert.Equal(t, int64(2000), getLastSeenDate(sub.GuildID, sub.AppID))
}

func TestCheckSubscriptionChannelOverride(t *testing.T) {
	clearMarkers(t)

	queued, restore := captureQueue()
	defer restore()

	p := testPlugin(singleAppFetcher(440,
		testNewsItem("30", 3000, "Third"),
	))

	conf := testConfig(10)
	sub := testSubscription(1, 10, 440)
	sub.ChannelID = "300"

	require.NoError(t, setLastSeen(markerField(sub.GuildID, sub.AppID), testNewsItem("20", 2000, "Second")))

	err := p.checkSubscription(conf, sub)
	require.NoError(t, err)

	require.Len(t, *queued, 1)
	assert.Equal(t, int64(300), (*queued)[0].ChannelID)
}

func TestResolveAnnouncementChannel(t *testing.T) {
	conf := testConfig(10)
	sub := testSubscription(1, 10, 440)

	assert.Equal(t, int64(200), resolveAnnouncementChannel(conf, sub))

	sub.ChannelID = "300"
	assert.Equal(t, int64(300), resolveAnnouncementChannel(conf, sub))

	sub.ChannelID = ""
	conf.AnnouncementChannel = ""
	assert.Equal(t, int64(0), resolveAnnouncementChannel(conf, sub))
}

func TestCheckGuildAutoAnnounceOff(t *testing.T) {
	clearMarkers(t)
	defer testutils.ClearTables(common.PQ, "patch_notes_subscriptions", "patch_notes_configs")

	queued, restore := captureQueue()
	defer restore()

	conf := testConfig(10)
	conf.AutoAnnounce = false
	require.NoError(t, SaveConfig(conf))

	fetches := 0
	p := testPlugin(func(appID int64, count int) (*steamnews.AppNews, error) {
		fetches++
		return &steamnews.AppNews{AppID: appID, NewsItems: []*steamnews.NewsItem{testNewsItem("30", 3000, "Third")}}, nil
	})

	p.checkGuild(time.Now(), "10", []*GameSubscription{testSubscription(1, 10, 440)})

	assert.Equal(t, 0, fetches)
	assert.Len(t, *queued, 0)
}

func TestCheckGuildNotDue(t *testing.T) {
	clearMarkers(t)
	defer testutils.ClearTables(common.PQ, "patch_notes_subscriptions", "patch_notes_configs")

	queued, restore := captureQueue()
	defer restore()

	require.NoError(t, SaveConfig(testConfig(10)))

	fetches := 0
	p := testPlugin(func(appID int64, count int) (*steamnews.AppNews, error) {
		fetches++
		return &steamnews.AppNews{AppID: appID}, nil
	})

	now := time.Now()
	p.nextDue[10] = now.Add(time.Minute * 10)

	p.checkGuild(now, "10", []*GameSubscription{testSubscription(1, 10, 440)})

	assert.Equal(t, 0, fetches)
	assert.Len(t, *queued, 0)
}

func TestCheckGuildSetsNextDue(t *testing.T) {
	clearMarkers(t)
	defer testutils.ClearTables(common.PQ, "patch_notes_subscriptions", "patch_notes_configs")

	_, restore := captureQueue()
	defer restore()

	conf := testConfig(10)
	conf.CheckInterval = 600
	require.NoError(t, SaveConfig(conf))

	p := testPlugin(singleAppFetcher(440, testNewsItem("30", 3000, "Third")))

	now := time.Now()
	p.checkGuild(now, "10", []*GameSubscription{testSubscription(1, 10, 440)})

	assert.Equal(t, now.Add(time.Second*600), p.nextDue[10])
}

func TestCheckGuildContinuesOnError(t *testing.T) {
	clearMarkers(t)
	defer testutils.ClearTables(common.PQ, "patch_notes_subscriptions", "patch_notes_configs")

	queued, restore := captureQueue()
	defer restore()

	require.NoError(t, SaveConfig(testConfig(10)))

	subBroken := testSubscription(1, 10, 570)
	subOK := testSubscription(2, 10, 440)

	require.NoError(t, setLastSeen(markerField(subOK.GuildID, subOK.AppID), testNewsItem("20", 2000, "Second")))

	p := testPlugin(func(appID int64, count int) (*steamnews.AppNews, error) {
		if appID == 570 {
			return nil, errors.New("steam is down for this app")
		}

		return &steamnews.AppNews{AppID: appID, NewsItems: []*steamnews.NewsItem{testNewsItem("30", 3000, "Third")}}, nil
	})

	p.checkGuild(time.Now(), "10", []*GameSubscription{subBroken, subOK})

	// the broken app does not stop the one after it
	require.Len(t, *queued, 1)
	assert.Equal(t, strconv.FormatInt(int64(subOK.ID), 10), (*queued)[0].SourceItemID)
}

func TestPollFeedsSkipsDisabled(t *testing.T) {
	clearMarkers(t)
	defer testutils.ClearTables(common.PQ, "patch_notes_subscriptions", "patch_notes_configs")

	queued, restore := captureQueue()
	defer restore()

	require.NoError(t, SaveConfig(testConfig(10)))

	enabled := &GameSubscription{GuildID: "10", AppID: 440, GameName: "Enabled Game", Enabled: true}
	disabled := &GameSubscription{GuildID: "10", AppID: 570, GameName: "Disabled Game", Enabled: false}
	require.NoError(t, common.GORM.Create(enabled).Error)
	require.NoError(t, common.GORM.Create(disabled).Error)

	fetched := make(map[int64]bool)
	p := testPlugin(func(appID int64, count int) (*steamnews.AppNews, error) {
		fetched[appID] = true
		return &steamnews.AppNews{AppID: appID, NewsItems: []*steamnews.NewsItem{testNewsItem("30", 3000, "Third")}}, nil
	})

	p.pollFeeds()

	assert.True(t, fetched[440])
	assert.False(t, fetched[570])
	assert.Len(t, *queued, 0) // first poll only initializes markers
	assert.Equal(t, int64(3000), getLastSeenDate("10", 440))
}

func TestDisableFeed(t *testing.T) {
	defer testutils.ClearTables(common.PQ, "patch_notes_subscriptions", "patch_notes_configs")

	sub := &GameSubscription{GuildID: "10", AppID: 440, GameName: "Test Game", Enabled: true}
	require.NoError(t, common.GORM.Create(sub).Error)

	p := testPlugin(nil)
	p.DisableFeed(&mqueue.QueuedElement{
		GuildID:      10,
		ChannelID:    200,
		Source:       "patchnotes",
		SourceItemID: strconv.FormatInt(int64(sub.ID), 10),
	}, errors.New("unknown channel"))

	var reloaded GameSubscription
	require.NoError(t, common.GORM.Where("id = ?", sub.ID).First(&reloaded).Error)
	assert.False(t, reloaded.Enabled)
}

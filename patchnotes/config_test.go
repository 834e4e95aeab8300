package patchnotes

import (
	"testing"

	"github.com/botlabs-gg/patchbot/common"
	"github.com/botlabs-gg/patchbot/common/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCheckInterval(t *testing.T) {
	cases := []struct {
		in       int
		expected int
	}{
		{0, DefaultCheckInterval},
		{100, MinCheckInterval},
		{300, 300},
		{900, 900},
		{86400, 86400},
		{200000, MaxCheckInterval},
	}

	for _, c := range cases {
		assert.Equal(t, c.expected, normalizeCheckInterval(c.in), "normalizeCheckInterval(%d)", c.in)
	}
}

func TestGetConfigDefault(t *testing.T) {
	defer testutils.ClearTables(common.PQ, "patch_notes_configs")

	conf, err := GetConfig(999)
	require.NoError(t, err)

	assert.Equal(t, int64(999), conf.GuildID)
	assert.Equal(t, "", conf.AnnouncementChannel)
	assert.True(t, conf.AutoAnnounce)
	assert.Equal(t, DefaultCheckInterval, conf.CheckInterval)
}

func TestSaveConfigClamps(t *testing.T) {
	defer testutils.ClearTables(common.PQ, "patch_notes_configs")

	conf := &GuildConfig{
		GuildID:       20,
		AutoAnnounce:  true,
		CheckInterval: 10,
	}
	require.NoError(t, SaveConfig(conf))
	assert.Equal(t, MinCheckInterval, conf.CheckInterval)

	reloaded, err := GetConfig(20)
	require.NoError(t, err)
	assert.Equal(t, MinCheckInterval, reloaded.CheckInterval)
}

func TestSaveConfigUpserts(t *testing.T) {
	defer testutils.ClearTables(common.PQ, "patch_notes_configs")

	conf := &GuildConfig{
		GuildID:             30,
		AnnouncementChannel: "500",
		AutoAnnounce:        true,
		CheckInterval:       600,
	}
	require.NoError(t, SaveConfig(conf))

	conf.AutoAnnounce = false
	require.NoError(t, SaveConfig(conf))

	reloaded, err := GetConfig(30)
	require.NoError(t, err)
	assert.False(t, reloaded.AutoAnnounce)
	assert.Equal(t, "500", reloaded.AnnouncementChannel)
	assert.Equal(t, 600, reloaded.CheckInterval)
}

func TestGetSubscriptionsSorted(t *testing.T) {
	defer testutils.ClearTables(common.PQ, "patch_notes_subscriptions")

	for _, appID := range []int64{570, 440, 730} {
		sub := &GameSubscription{GuildID: "40", AppID: appID, GameName: "Game", Enabled: true}
		require.NoError(t, common.GORM.Create(sub).Error)
	}

	other := &GameSubscription{GuildID: "41", AppID: 10, GameName: "Other guilds game", Enabled: true}
	require.NoError(t, common.GORM.Create(other).Error)

	subs, err := GetSubscriptions(40)
	require.NoError(t, err)

	require.Len(t, subs, 3)
	assert.Equal(t, int64(440), subs[0].AppID)
	assert.Equal(t, int64(570), subs[1].AppID)
	assert.Equal(t, int64(730), subs[2].AppID)
}

func TestFindSubscription(t *testing.T) {
	defer testutils.ClearTables(common.PQ, "patch_notes_subscriptions")

	created := &GameSubscription{GuildID: "50", AppID: 440, GameName: "Game", Enabled: true}
	require.NoError(t, common.GORM.Create(created).Error)

	sub, err := findSubscription(50, 440)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, created.ID, sub.ID)

	missing, err := findSubscription(50, 570)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

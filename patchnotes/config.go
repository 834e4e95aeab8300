package patchnotes

import (
	"emperror.dev/errors"
	"github.com/botlabs-gg/patchbot/common"
	"github.com/jinzhu/gorm"
	"github.com/jonas747/discordgo/v2"
)

const (
	DefaultCheckInterval = 900
	MinCheckInterval     = 300
	MaxCheckInterval     = 86400
)

// GetConfig returns the patch notes config for the guild, or a default one if
// the guild never set anything up
func GetConfig(guildID int64) (*GuildConfig, error) {
	var conf GuildConfig
	err := common.GORM.Where("guild_id = ?", guildID).First(&conf).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return &GuildConfig{
				GuildID:       guildID,
				AutoAnnounce:  true,
				CheckInterval: DefaultCheckInterval,
			}, nil
		}

		return nil, errors.WithStackIf(err)
	}

	conf.CheckInterval = normalizeCheckInterval(conf.CheckInterval)
	return &conf, nil
}

// SaveConfig clamps the check interval to its allowed range and upserts the config
func SaveConfig(conf *GuildConfig) error {
	conf.CheckInterval = normalizeCheckInterval(conf.CheckInterval)
	return errors.WithStackIf(common.GORM.Save(conf).Error)
}

func normalizeCheckInterval(seconds int) int {
	if seconds == 0 {
		return DefaultCheckInterval
	}

	if seconds < MinCheckInterval {
		return MinCheckInterval
	}

	if seconds > MaxCheckInterval {
		return MaxCheckInterval
	}

	return seconds
}

// GetSubscriptions returns all game subscriptions of the guild sorted by app id
func GetSubscriptions(guildID int64) ([]*GameSubscription, error) {
	var subs []*GameSubscription
	err := common.GORM.Where("guild_id = ?", discordgo.StrID(guildID)).Order("app_id").Find(&subs).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, errors.WithStackIf(err)
	}

	return subs, nil
}

func findSubscription(guildID int64, appID int64) (*GameSubscription, error) {
	var sub GameSubscription
	err := common.GORM.Where("guild_id = ? AND app_id = ?", discordgo.StrID(guildID), appID).First(&sub).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}

		return nil, errors.WithStackIf(err)
	}

	return &sub, nil
}

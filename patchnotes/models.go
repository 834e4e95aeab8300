package patchnotes

import (
	"time"

	"github.com/botlabs-gg/patchbot/common"
)

// GuildConfig is the server wide patch notes setup
type GuildConfig struct {
	GuildID   int64 `gorm:"primary_key"`
	CreatedAt time.Time
	UpdatedAt time.Time

	// Where announcements go unless a subscription overrides it, empty means not set
	AnnouncementChannel string

	AutoAnnounce  bool
	CheckInterval int
}

func (c *GuildConfig) TableName() string {
	return "patch_notes_configs"
}

// GameSubscription is a single guild following a single steam app
type GameSubscription struct {
	common.SmallModel

	GuildID  string
	AppID    int64
	GameName string

	// Overrides the guild wide announcement channel when set
	ChannelID string
	Enabled   bool
}

func (s *GameSubscription) TableName() string {
	return "patch_notes_subscriptions"
}

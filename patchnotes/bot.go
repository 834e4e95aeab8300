package patchnotes

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/botlabs-gg/patchbot/commands"
	"github.com/botlabs-gg/patchbot/common"
	"github.com/botlabs-gg/patchbot/steamnews"
	"github.com/jonas747/dcmd/v4"
	"github.com/jonas747/discordgo/v2"
	"github.com/jonas747/dstate/v4"
	"github.com/karlseguin/ccache"
)

const (
	defaultLatestCount = 3
	maxLatestCount     = 10
)

var appDetailsCache = ccache.New(ccache.Configure().MaxSize(1000).ItemsToPrune(10))

// getAppDetails returns the steam store details of an app, cached for an hour
func getAppDetails(appID int64) (*steamnews.AppDetails, error) {
	result, err := appDetailsCache.Fetch("app_details:"+strconv.FormatInt(appID, 10), time.Hour, func() (interface{}, error) {
		details, _, err := steamClient.Apps.Details(appID)
		if err != nil {
			return nil, err
		}

		return details, nil
	})

	if err != nil {
		return nil, err
	}

	return result.Value().(*steamnews.AppDetails), nil
}

func latestNewsCount(requested int) int {
	if requested > maxLatestCount {
		return maxLatestCount
	}

	if requested < 1 {
		return 1
	}

	return requested
}

var _ commands.CommandProvider = (*Plugin)(nil)

func (p *Plugin) AddCommands() {
	container, _ := commands.CommandSystem.Root.Sub("patchnotes", "pn")
	container.Description = "Steam patch note feeds"
	container.NotFound = commands.CommonContainerNotFoundHandler(container, "")

	cmdAdd := &commands.BotCommand{
		CmdCategory:     commands.CategoryPatchNotes,
		Name:            "Add",
		Aliases:         []string{"a", "sub"},
		Description:     "Subscribes this server to patch notes for a steam app",
		LongDescription: "The app is looked up on the steam storefront to make sure it exists.\nAnnouncements go to the channel given here, or to the server default from `patchnotes channel` when not set.",
		RequiredArgs:    1,
		Arguments: []*dcmd.ArgDef{
			&dcmd.ArgDef{Name: "appID", Type: dcmd.Int},
			&dcmd.ArgDef{Name: "channel", Type: dcmd.Channel},
		},
		RequireDiscordPerms: []int64{discordgo.PermissionManageServer},
		Plugin:              p,
		RunFunc: func(data *dcmd.Data) (interface{}, error) {
			appID := data.Args[0].Int64()

			details, err := getAppDetails(appID)
			if err != nil {
				if err == steamnews.ErrAppNotFound {
					return fmt.Sprintf("Could not find a steam app with the id `%d`", appID), nil
				}

				return nil, err
			}

			existing, err := findSubscription(data.GuildData.GS.ID, appID)
			if err != nil {
				return nil, err
			}

			if existing != nil {
				if !existing.Enabled {
					existing.Enabled = true
					err = common.GORM.Save(existing).Error
					if err != nil {
						return nil, err
					}

					return fmt.Sprintf("Re-enabled announcements for **%s**", existing.GameName), nil
				}

				return fmt.Sprintf("Already subscribed to **%s**", existing.GameName), nil
			}

			sub := &GameSubscription{
				GuildID:  discordgo.StrID(data.GuildData.GS.ID),
				AppID:    appID,
				GameName: details.Name,
				Enabled:  true,
			}

			if data.Args[1].Value != nil {
				cs := data.Args[1].Value.(*dstate.ChannelState)
				sub.ChannelID = discordgo.StrID(cs.ID)
			}

			err = common.GORM.Create(sub).Error
			if err != nil {
				return nil, err
			}

			// the first subscription also creates the config row
			conf, err := GetConfig(data.GuildData.GS.ID)
			if err == nil {
				err = SaveConfig(conf)
			}
			if err != nil {
				return nil, err
			}

			resp := fmt.Sprintf("Subscribed to patch notes for **%s**", details.Name)
			if sub.ChannelID != "" {
				resp += fmt.Sprintf(", announcing in <#%s>", sub.ChannelID)
			} else if conf.AnnouncementChannel == "" {
				resp += ", set an announcement channel with `patchnotes channel` to receive them"
			}

			return resp, nil
		},
	}

	cmdRemove := &commands.BotCommand{
		CmdCategory:  commands.CategoryPatchNotes,
		Name:         "Remove",
		Aliases:      []string{"rm", "unsub"},
		Description:  "Removes a patch note subscription from this server",
		RequiredArgs: 1,
		Arguments: []*dcmd.ArgDef{
			&dcmd.ArgDef{Name: "appID", Type: dcmd.Int},
		},
		RequireDiscordPerms: []int64{discordgo.PermissionManageServer},
		Plugin:              p,
		RunFunc: func(data *dcmd.Data) (interface{}, error) {
			appID := data.Args[0].Int64()

			sub, err := findSubscription(data.GuildData.GS.ID, appID)
			if err != nil {
				return nil, err
			}

			if sub == nil {
				return fmt.Sprintf("This server is not subscribed to the app `%d`, check `patchnotes list`", appID), nil
			}

			err = common.GORM.Delete(sub).Error
			if err != nil {
				return nil, err
			}

			// drop the markers so resubscribing later starts fresh
			removeLastSeen(sub.GuildID, sub.AppID)

			return fmt.Sprintf("Removed **%s**, no more patch notes from it", sub.GameName), nil
		},
	}

	cmdList := &commands.BotCommand{
		CmdCategory: commands.CategoryPatchNotes,
		Name:        "List",
		Aliases:     []string{"ls"},
		Description: "Lists the patch note subscriptions of this server",
		Plugin:      p,
		RunFunc: func(data *dcmd.Data) (interface{}, error) {
			subs, err := GetSubscriptions(data.GuildData.GS.ID)
			if err != nil {
				return nil, err
			}

			if len(subs) == 0 {
				return "No games subscribed, add one with `patchnotes add <appID>`", nil
			}

			conf, err := GetConfig(data.GuildData.GS.ID)
			if err != nil {
				return nil, err
			}

			var out strings.Builder
			for _, sub := range subs {
				out.WriteString(fmt.Sprintf("`%d` **%s**", sub.AppID, sub.GameName))

				switch {
				case sub.ChannelID != "":
					out.WriteString(" in <#" + sub.ChannelID + ">")
				case conf.AnnouncementChannel != "":
					out.WriteString(" in <#" + conf.AnnouncementChannel + ">")
				default:
					out.WriteString(" (no channel)")
				}

				if !sub.Enabled {
					out.WriteString(" (disabled)")
				}

				if last := getLastSeenDate(sub.GuildID, sub.AppID); last > 0 {
					out.WriteString(", last update " + time.Unix(last, 0).UTC().Format("2006-01-02"))
				}

				out.WriteString("\n")
			}

			state := "off"
			if conf.AutoAnnounce {
				state = "on"
			}

			return &discordgo.MessageEmbed{
				Title:       "🎮 Subscribed games",
				Description: out.String(),
				Color:       embedColor,
				Footer: &discordgo.MessageEmbedFooter{
					Text: fmt.Sprintf("Automatic announcements %s, checking every %d seconds", state, conf.CheckInterval),
				},
			}, nil
		},
	}

	cmdChannel := &commands.BotCommand{
		CmdCategory: commands.CategoryPatchNotes,
		Name:        "Channel",
		Description: "Sets the default announcement channel, clears it when no channel is given",
		Arguments: []*dcmd.ArgDef{
			&dcmd.ArgDef{Name: "channel", Type: dcmd.Channel},
		},
		RequireDiscordPerms: []int64{discordgo.PermissionManageServer},
		Plugin:              p,
		RunFunc: func(data *dcmd.Data) (interface{}, error) {
			conf, err := GetConfig(data.GuildData.GS.ID)
			if err != nil {
				return nil, err
			}

			if data.Args[0].Value == nil {
				conf.AnnouncementChannel = ""
				if err = SaveConfig(conf); err != nil {
					return nil, err
				}

				return "Cleared the default announcement channel, games without their own channel are paused", nil
			}

			cs := data.Args[0].Value.(*dstate.ChannelState)
			conf.AnnouncementChannel = discordgo.StrID(cs.ID)
			if err = SaveConfig(conf); err != nil {
				return nil, err
			}

			return fmt.Sprintf("New patch notes are now announced in <#%d>", cs.ID), nil
		},
	}

	cmdToggle := &commands.BotCommand{
		CmdCategory:         commands.CategoryPatchNotes,
		Name:                "Toggle",
		Description:         "Turns automatic announcements on or off",
		RequireDiscordPerms: []int64{discordgo.PermissionManageServer},
		Plugin:              p,
		RunFunc: func(data *dcmd.Data) (interface{}, error) {
			conf, err := GetConfig(data.GuildData.GS.ID)
			if err != nil {
				return nil, err
			}

			conf.AutoAnnounce = !conf.AutoAnnounce
			if err = SaveConfig(conf); err != nil {
				return nil, err
			}

			if conf.AutoAnnounce {
				return "Automatic announcements are now on", nil
			}

			return "Automatic announcements are now off", nil
		},
	}

	cmdInterval := &commands.BotCommand{
		CmdCategory:     commands.CategoryPatchNotes,
		Name:            "Interval",
		Description:     "Sets how often new patch notes are checked for, in seconds",
		LongDescription: fmt.Sprintf("Between %d and %d seconds, values out of range are clamped.", MinCheckInterval, MaxCheckInterval),
		RequiredArgs:    1,
		Arguments: []*dcmd.ArgDef{
			&dcmd.ArgDef{Name: "seconds", Type: dcmd.Int},
		},
		RequireDiscordPerms: []int64{discordgo.PermissionManageServer},
		Plugin:              p,
		RunFunc: func(data *dcmd.Data) (interface{}, error) {
			conf, err := GetConfig(data.GuildData.GS.ID)
			if err != nil {
				return nil, err
			}

			conf.CheckInterval = data.Args[0].Int()
			if err = SaveConfig(conf); err != nil {
				return nil, err
			}

			return fmt.Sprintf("Now checking for new patch notes every %d seconds", conf.CheckInterval), nil
		},
	}

	cmdLatest := &commands.BotCommand{
		CmdCategory:  commands.CategoryPatchNotes,
		Name:         "Latest",
		Aliases:      []string{"l", "news"},
		Description:  "Shows the latest patch notes for a steam app",
		RunInDM:      true,
		Cooldown:     5,
		RequiredArgs: 1,
		Arguments: []*dcmd.ArgDef{
			&dcmd.ArgDef{Name: "appID", Type: dcmd.Int},
			&dcmd.ArgDef{Name: "count", Type: dcmd.Int, Default: defaultLatestCount},
		},
		Plugin: p,
		RunFunc: func(data *dcmd.Data) (interface{}, error) {
			appID := data.Args[0].Int64()
			count := latestNewsCount(data.Args[1].Int())

			details, err := getAppDetails(appID)
			if err != nil {
				if err == steamnews.ErrAppNotFound {
					return fmt.Sprintf("Could not find a steam app with the id `%d`", appID), nil
				}

				return nil, err
			}

			news, err := p.fetchNews(appID, count)
			if err != nil {
				return nil, err
			}

			if len(news.NewsItems) == 0 {
				return fmt.Sprintf("No recent patch notes found for **%s**", details.Name), nil
			}

			items := news.NewsItems
			if len(items) > count {
				items = items[:count]
			}

			return CreateLatestNewsEmbed(details.Name, items), nil
		},
	}

	container.AddCommand(cmdAdd, cmdAdd.GetTrigger())
	container.AddCommand(cmdRemove, cmdRemove.GetTrigger())
	container.AddCommand(cmdList, cmdList.GetTrigger())
	container.AddCommand(cmdChannel, cmdChannel.GetTrigger())
	container.AddCommand(cmdToggle, cmdToggle.GetTrigger())
	container.AddCommand(cmdInterval, cmdInterval.GetTrigger())
	container.AddCommand(cmdLatest, cmdLatest.GetTrigger())
}

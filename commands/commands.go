package commands

import (
	"fmt"

	"github.com/botlabs-gg/patchbot/bot"
	"github.com/botlabs-gg/patchbot/common"
	"github.com/botlabs-gg/patchbot/common/config"
	"github.com/jonas747/dcmd/v4"
	"github.com/jonas747/discordgo/v2"
	"github.com/mediocregopher/radix/v3"
)

var logger = common.GetPluginLogger(&Plugin{})

var (
	confSetTyping     = config.RegisterOption("patchbot.commands.typing", "Whether to set typing or not when running commands", true)
	confDefaultPrefix = config.RegisterOption("patchbot.commands.default_prefix", "Command prefix used when a server has not set a custom one", "!")
)

// CommandSystem is the dcmd system all commands are registered on
var CommandSystem *dcmd.System

type Plugin struct{}

func (p *Plugin) PluginInfo() *common.PluginInfo {
	return &common.PluginInfo{
		Name:     "Commands",
		SysName:  "commands",
		Category: common.PluginCategoryCore,
	}
}

func RegisterPlugin() {
	plugin := &Plugin{}
	common.RegisterPlugin(plugin)

	err := common.GORM.AutoMigrate(&LoggedExecutedCommand{}).Error
	if err != nil {
		logger.WithError(err).Fatal("Failed migrating logged commands database")
	}
}

// CommandProvider is implemented by plugins that register their own commands
type CommandProvider interface {
	// This is where you should register your commands, called after all plugins have been registered
	AddCommands()
}

func InitCommands() {
	// Setup the command system
	CommandSystem = &dcmd.System{
		Root: &dcmd.Container{
			HelpTitleEmoji: "ℹ️",
			HelpColor:      0xbeff7a,
			RunInDM:        true,
			IgnoreBots:     true,
		},

		ResponseSender: &dcmd.StdResponseSender{LogErrors: true},
		Prefix:         &Plugin{},
		State:          bot.State,
	}

	// We have our own middleware before the argument parsing, this is to check for things such as
	// required permissions and cooldowns
	CommandSystem.Root.AddMidlewares(CmdHandlerMiddleware, dcmd.ArgParserMW)
	CommandSystem.Root.AddCommand(cmdHelp, cmdHelp.GetTrigger())
	CommandSystem.Root.AddCommand(cmdPrefix, cmdPrefix.GetTrigger())

	for _, v := range common.Plugins {
		if adder, ok := v.(CommandProvider); ok {
			adder.AddCommands()
		}
	}
}

var _ bot.BotInitHandler = (*Plugin)(nil)

func (p *Plugin) BotInit() {
	InitCommands()
	common.BotSession.AddHandler(CommandSystem.HandleMessageCreate)
}

func defaultCommandPrefix() string {
	return confDefaultPrefix.GetString()
}

// Prefix implements dcmd.PrefixProvider
func (p *Plugin) Prefix(data *dcmd.Data) string {
	if data.Source == dcmd.TriggerSourceDM {
		return defaultCommandPrefix()
	}

	prefix, err := GetCommandPrefix(data.GuildData.GS.ID)
	if err != nil {
		logger.WithError(err).WithField("guild", data.GuildData.GS.ID).Error("Failed fetching command prefix")
	}

	return prefix
}

// GetCommandPrefix returns the command prefix of the given server, falling back to
// the default prefix if the server has not set one
func GetCommandPrefix(guild int64) (string, error) {
	var prefix string
	err := common.RedisPool.Do(radix.Cmd(&prefix, "GET", "command_prefix:"+discordgo.StrID(guild)))
	if prefix == "" {
		prefix = defaultCommandPrefix()
	}

	return prefix, err
}

// CommonContainerNotFoundHandler is a common NotFound handler for command containers,
// it responds with fixedMessage, or a generic unknown subcommand message pointing at
// the container help if fixedMessage is empty.
func CommonContainerNotFoundHandler(container *dcmd.Container, fixedMessage string) func(data *dcmd.Data) (interface{}, error) {
	return func(data *dcmd.Data) (interface{}, error) {
		resp := fixedMessage
		if resp == "" {
			resp = fmt.Sprintf("Unknown `%s` subcommand, try `help %s` for a list of the available ones", container.Names[0], container.Names[0])
		}

		return resp, nil
	}
}

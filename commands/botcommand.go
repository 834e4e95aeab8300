package commands

import (
	"context"
	"time"

	"emperror.dev/errors"
	"github.com/botlabs-gg/patchbot/common"
	"github.com/jonas747/dcmd/v4"
	"github.com/jonas747/discordgo/v2"
	"github.com/mediocregopher/radix/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

var (
	CategoryGeneral = &dcmd.Category{
		Name:        "General",
		Description: "General & informational commands",
		HelpEmoji:   "ℹ️",
		EmbedColor:  0xe53939,
	}
	CategoryPatchNotes = &dcmd.Category{
		Name:        "Patch Notes",
		Description: "Steam patch note feeds",
		HelpEmoji:   "🎮",
		EmbedColor:  0xff6b35,
	}
)

var (
	RKeyCommandCooldown      = func(uID int64, cmd string) string { return "cmd_cd:" + discordgo.StrID(uID) + ":" + cmd }
	RKeyCommandCooldownGuild = func(gID int64, cmd string) string { return "cmd_guild_cd:" + discordgo.StrID(gID) + ":" + cmd }

	CommandExecTimeout = time.Minute
)

// BotCommand is a small extension over the dcmd command interfaces, it checks
// permission requirements and cooldowns before running and logs executions
type BotCommand struct {
	Name            string   // Name of command, what its called from
	Aliases         []string // Aliases which it can also be called from
	Description     string   // Description shown in non targetted help
	LongDescription string   // Longer description when this command was targetted

	Arguments      []*dcmd.ArgDef // Slice of argument definitions, data.Args will always be the same size as this slice (although the data may be nil)
	RequiredArgs   int            // Number of required arguments, ignored if combos is specified
	ArgumentCombos [][]int        // Slice of argument pairs, will override RequiredArgs if specified
	ArgSwitches    []*dcmd.ArgDef // Switches for the command to use

	Cooldown           int // Cooldown in seconds before a user can use it again
	GuildScopeCooldown int // Cooldown in seconds before anyone on the server can use it again

	CmdCategory *dcmd.Category

	RunInDM      bool // Set to enable this command in DM's
	HideFromHelp bool // Set to hide from help

	RequireDiscordPerms []int64 // Require users to have one of these permission sets to run the command

	Middlewares []dcmd.MiddleWareFunc

	// Run is ran when the command has successfully been parsed
	// It returns a reply and an error
	// the reply can have a type of string, *MessageEmbed or error
	RunFunc dcmd.RunFunc

	Plugin common.Plugin
}

// CmdWithCategory puts the command in a category, mostly used for the help generation
func (bc *BotCommand) Category() *dcmd.Category {
	return bc.CmdCategory
}

func (bc *BotCommand) Descriptions(data *dcmd.Data) (short, long string) {
	return bc.Description, bc.Description + "\n" + bc.LongDescription
}

func (bc *BotCommand) ArgDefs(data *dcmd.Data) (args []*dcmd.ArgDef, required int, combos [][]int) {
	return bc.Arguments, bc.RequiredArgs, bc.ArgumentCombos
}

func (bc *BotCommand) Switches() []*dcmd.ArgDef {
	return bc.ArgSwitches
}

var metricsExecutedCommands = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "patchbot_commands_total",
	Help: "Commands the bot executed",
}, []string{"name"})

func (bc *BotCommand) Run(data *dcmd.Data) (interface{}, error) {
	if !bc.RunInDM && data.Source == dcmd.TriggerSourceDM {
		return nil, nil
	}

	// Send typing to indicate the bot's working
	if confSetTyping.GetBool() {
		common.BotSession.ChannelTyping(data.ChannelID)
	}

	logger := bc.Logger(data)

	rawCommand := ""
	if data.TraditionalTriggerData != nil && data.TraditionalTriggerData.Message != nil {
		rawCommand = data.TraditionalTriggerData.Message.Content
	}

	// Track how long execution of a command took
	started := time.Now()
	defer func() {
		bc.logExecutionTime(time.Since(started), rawCommand, data.Author.Username)
	}()

	cmdFullName := bc.FindNameFromContainerChain(data.ContainerChain)

	// Set up log entry for later use
	logEntry := &LoggedExecutedCommand{
		UserID:    discordgo.StrID(data.Author.ID),
		ChannelID: discordgo.StrID(data.ChannelID),

		Command:    cmdFullName,
		RawCommand: rawCommand,
		TimeStamp:  time.Now(),
	}

	guildID := int64(0)
	if data.GuildData != nil {
		guildID = data.GuildData.GS.ID
		logEntry.GuildID = discordgo.StrID(guildID)
	}

	metricsExecutedCommands.With(prometheus.Labels{"name": cmdFullName}).Inc()

	logger.Info("Handling command: " + rawCommand)

	runCtx, cancelExec := context.WithTimeout(data.Context(), CommandExecTimeout)
	defer cancelExec()

	// Run the command
	r, cmdErr := bc.RunFunc(data.WithContext(runCtx))
	if cmdErr != nil {
		if errors.Cause(cmdErr) == context.Canceled || errors.Cause(cmdErr) == context.DeadlineExceeded {
			r = "Took longer than " + CommandExecTimeout.String() + " to handle command: `" + rawCommand + "`, Cancelled the command."
		}
	}

	if (r == nil || r == "") && cmdErr != nil {
		r = bc.humanizeError(cmdErr)
	}

	logEntry.ResponseTime = int64(time.Since(started))

	// set cooldowns
	if cmdErr == nil {
		err := bc.SetCooldowns(data.ContainerChain, data.Author.ID, guildID)
		if err != nil {
			logger.WithError(err).Error("Failed setting cooldown")
		}
	}

	// set cmdErr to nil if this was a user error to stop it from being recorded and logged as an actual error
	if cmdErr != nil && dcmd.IsUserError(cmdErr) {
		cmdErr = nil
	}

	// Create command log entry
	err := common.GORM.Create(logEntry).Error
	if err != nil {
		logger.WithError(err).Error("Failed creating command execution log")
	}

	return r, cmdErr
}

func (bc *BotCommand) humanizeError(err error) string {
	cause := errors.Cause(err)

	if uErr, ok := cause.(dcmd.UserError); ok && uErr.IsUserError() {
		return "Unable to run the command: " + cause.Error()
	}

	if restErr, ok := cause.(*discordgo.RESTError); ok && restErr.Message != nil && restErr.Message.Message != "" {
		if restErr.Response != nil && restErr.Response.StatusCode == 403 {
			return "The bot permissions has been incorrectly set up on this server for it to run this command: " + restErr.Message.Message
		}

		return "The bot was not able to perform the action, discord responded with: " + restErr.Message.Message
	}

	return "Something went wrong when running this command, either discord or the bot may be having issues."
}

const (
	ReasonError            = "An error occured"
	ReasonUserMissingPerms = "User is missing one or more permissions to run this command"
	ReasonCooldown         = "This command is on cooldown"
)

// checks if the specified user can execute the command
func (bc *BotCommand) checkCanExecuteCommand(data *dcmd.Data) (canExecute bool, resp string) {
	// Check guild specific requirements if not triggered from a DM
	if data.Source != dcmd.TriggerSourceDM {
		canExecute = false

		// This command has permission sets required, if the user has one of them then allow this command to be used
		if len(bc.RequireDiscordPerms) > 0 {
			member := data.GuildData.MS

			var roles []int64
			if member.Member != nil {
				roles = member.Member.Roles
			}

			perms, err := data.GuildData.GS.GetMemberPermissions(data.GuildData.CS.ID, member.User.ID, roles)
			if err != nil {
				resp = ReasonError
				return
			}

			foundMatch := false
			for _, permSet := range bc.RequireDiscordPerms {
				if permSet&perms == permSet {
					foundMatch = true
					break
				}
			}

			if !foundMatch {
				resp = ReasonUserMissingPerms
				return
			}
		}
	}

	guildID := int64(0)
	if data.GuildData != nil {
		guildID = data.GuildData.GS.ID
	}

	// Check the command cooldown
	cdLeft, err := bc.LongestCooldownLeft(data.ContainerChain, data.Author.ID, guildID)
	if err != nil {
		// Just pretend the cooldown is off...
		bc.Logger(data).WithError(err).Error("Failed checking command cooldown")
	}

	if cdLeft > 0 {
		resp = ReasonCooldown
		return
	}

	// If we got here then we can execute the command
	canExecute = true
	return
}

// CmdHandlerMiddleware gates command execution on permissions and cooldowns,
// it runs before the argument parsing
func CmdHandlerMiddleware(inner dcmd.RunFunc) dcmd.RunFunc {
	return func(data *dcmd.Data) (interface{}, error) {
		cmd, ok := data.Cmd.Command.(*BotCommand)
		if !ok {
			return inner(data)
		}

		canExecute, resp := cmd.checkCanExecuteCommand(data)
		if !canExecute {
			if resp != "" {
				return dcmd.NewTemporaryResponse(time.Second*10, resp, true), nil
			}

			return nil, nil
		}

		return inner(data)
	}
}

func (bc *BotCommand) logExecutionTime(dur time.Duration, raw string, sender string) {
	logger.Infof("Handled Command [%4dms] %s: %s", int(dur.Seconds()*1000), sender, raw)
}

// LongestCooldownLeft returns the longest cooldown for this command, either user scoped or guild scoped
func (bc *BotCommand) LongestCooldownLeft(cc []*dcmd.Container, userID int64, guildID int64) (int, error) {
	cdUser, err := bc.UserScopeCooldownLeft(cc, userID)
	if err != nil {
		return 0, err
	}

	cdGuild, err := bc.GuildScopeCooldownLeft(cc, guildID)
	if err != nil {
		return 0, err
	}

	if cdUser > cdGuild {
		return cdUser, nil
	}

	return cdGuild, nil
}

// UserScopeCooldownLeft returns the number of seconds before the command can be used again by this user
func (bc *BotCommand) UserScopeCooldownLeft(cc []*dcmd.Container, userID int64) (int, error) {
	if bc.Cooldown < 1 {
		return 0, nil
	}

	var ttl int
	err := common.RedisPool.Do(radix.Cmd(&ttl, "TTL", RKeyCommandCooldown(userID, bc.FindNameFromContainerChain(cc))))
	if err != nil {
		return 0, errors.WithStackIf(err)
	}

	return ttl, nil
}

// GuildScopeCooldownLeft returns the number of seconds before the command can be used again on this server
func (bc *BotCommand) GuildScopeCooldownLeft(cc []*dcmd.Container, guildID int64) (int, error) {
	if bc.GuildScopeCooldown < 1 {
		return 0, nil
	}

	var ttl int
	err := common.RedisPool.Do(radix.Cmd(&ttl, "TTL", RKeyCommandCooldownGuild(guildID, bc.FindNameFromContainerChain(cc))))
	if err != nil {
		return 0, errors.WithStackIf(err)
	}

	return ttl, nil
}

// SetCooldowns is a helper that sets both User and Guild cooldown
func (bc *BotCommand) SetCooldowns(cc []*dcmd.Container, userID int64, guildID int64) error {
	err := bc.SetCooldownUser(cc, userID)
	if err != nil {
		return errors.WithStackIf(err)
	}

	err = bc.SetCooldownGuild(cc, guildID)
	if err != nil {
		return errors.WithStackIf(err)
	}

	return nil
}

// SetCooldownUser sets the user scoped cooldown of the command as it's defined in the struct
func (bc *BotCommand) SetCooldownUser(cc []*dcmd.Container, userID int64) error {
	if bc.Cooldown < 1 {
		return nil
	}
	now := time.Now().Unix()

	err := common.RedisPool.Do(radix.FlatCmd(nil, "SET", RKeyCommandCooldown(userID, bc.FindNameFromContainerChain(cc)), now, "EX", bc.Cooldown))
	return errors.WithStackIf(err)
}

// SetCooldownGuild sets the guild scoped cooldown of the command as it's defined in the struct
func (bc *BotCommand) SetCooldownGuild(cc []*dcmd.Container, guildID int64) error {
	if bc.GuildScopeCooldown < 1 {
		return nil
	}

	now := time.Now().Unix()
	err := common.RedisPool.Do(radix.FlatCmd(nil, "SET", RKeyCommandCooldownGuild(guildID, bc.FindNameFromContainerChain(cc)), now, "EX", bc.GuildScopeCooldown))
	return errors.WithStackIf(err)
}

func (bc *BotCommand) Logger(data *dcmd.Data) *logrus.Entry {
	l := logger.WithField("cmd", bc.FindNameFromContainerChain(data.ContainerChain))
	if data != nil {
		l = l.WithField("user_n", data.Author.Username)
		l = l.WithField("user_id", data.Author.ID)
		l = l.WithField("channel", data.ChannelID)

		if data.GuildData != nil {
			l = l.WithField("guild", data.GuildData.GS.ID)
		}
	}

	return l
}

func (bc *BotCommand) GetTrigger() *dcmd.Trigger {
	trigger := dcmd.NewTrigger(bc.Name, bc.Aliases...).SetEnableInDM(bc.RunInDM).SetEnableInGuildChannels(true)
	trigger = trigger.SetHideFromHelp(bc.HideFromHelp)
	if len(bc.Middlewares) > 0 {
		trigger = trigger.SetMiddlewares(bc.Middlewares...)
	}
	return trigger
}

func (bc *BotCommand) FindNameFromContainerChain(cc []*dcmd.Container) string {
	name := ""
	for _, v := range cc {
		if len(v.Names) < 1 {
			continue
		}

		if name != "" {
			name += " "
		}

		name += v.Names[0]
	}

	if name != "" {
		name += " "
	}

	return name + bc.Name
}

package commands

import (
	"fmt"

	"github.com/botlabs-gg/patchbot/common"
	"github.com/jonas747/dcmd/v4"
	"github.com/jonas747/discordgo/v2"
	"github.com/mediocregopher/radix/v3"
)

var cmdPrefix = &BotCommand{
	Name:        "Prefix",
	Description: "Shows the command prefix of the current server, or changes it",
	CmdCategory: CategoryGeneral,
	Arguments: []*dcmd.ArgDef{
		{Name: "new-prefix", Type: dcmd.String},
	},

	RunFunc: func(data *dcmd.Data) (interface{}, error) {
		newPrefix := data.Args[0].Str()
		guildID := data.GuildData.GS.ID

		if newPrefix == "" {
			prefix, err := GetCommandPrefix(guildID)
			if err != nil {
				return nil, err
			}

			return fmt.Sprintf("Command prefix: `%s`", prefix), nil
		}

		member := data.GuildData.MS
		var roles []int64
		if member.Member != nil {
			roles = member.Member.Roles
		}

		perms, err := data.GuildData.GS.GetMemberPermissions(data.GuildData.CS.ID, member.User.ID, roles)
		if err != nil {
			return nil, err
		}

		if perms&discordgo.PermissionManageServer != discordgo.PermissionManageServer {
			return nil, dcmd.NewSimpleUserError("You need the `Manage Server` permission to change the command prefix")
		}

		if len(newPrefix) > 10 {
			return nil, dcmd.NewSimpleUserError("Command prefix is too long, max 10 characters")
		}

		err = common.RedisPool.Do(radix.Cmd(nil, "SET", "command_prefix:"+discordgo.StrID(guildID), newPrefix))
		if err != nil {
			return nil, err
		}

		return fmt.Sprintf("Set command prefix to `%s`", newPrefix), nil
	},
}

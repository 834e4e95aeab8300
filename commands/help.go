package commands

import (
	"fmt"

	"github.com/botlabs-gg/patchbot/common"
	"github.com/jonas747/dcmd/v4"
)

var cmdHelp = &BotCommand{
	Name:        "Help",
	Aliases:     []string{"commands", "h", "how", "command"},
	Description: "Shows help about all or one specific command",
	CmdCategory: CategoryGeneral,
	RunInDM:     true,
	Arguments: []*dcmd.ArgDef{
		{Name: "command", Type: dcmd.String},
	},

	RunFunc: cmdFuncHelp,
}

func CmdNotFound(search string) string {
	return fmt.Sprintf("Couldn't find command '%s'", search)
}

func cmdFuncHelp(data *dcmd.Data) (interface{}, error) {
	target := data.Args[0].Str()

	// Send the targetted help in the channel it was requested in
	resp := dcmd.GenerateTargettedHelp(target, data, data.ContainerChain[0], &dcmd.StdHelpFormatter{})

	if target != "" {
		if len(resp) != 1 {
			// Send command not found in same channel
			return CmdNotFound(target), nil
		}

		return resp, nil
	}

	// Send full help in DM
	channel, err := common.BotSession.UserChannelCreate(data.Author.ID)
	if err != nil {
		return "Something went wrong, maybe you have DMs disabled?", err
	}

	for _, embed := range resp {
		_, err = common.BotSession.ChannelMessageSendEmbed(channel.ID, embed)
		if err != nil {
			return "Something went wrong, maybe you have DMs disabled?", err
		}
	}

	if data.Source == dcmd.TriggerSourceDM {
		return nil, nil
	}

	return "You've got mail!", nil
}

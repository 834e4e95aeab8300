package bot

import (
	"sync"
	"time"

	"github.com/botlabs-gg/patchbot/common"
	"github.com/jonas747/discordgo/v2"
	"github.com/jonas747/dstate/v4"
	"github.com/jonas747/dstate/v4/inmemorytracker"
)

var (
	// When the bot was started
	Started = time.Now()
	Running bool

	// State keeps track of the guilds and channels were on
	State dstate.StateTracker

	stateTracker *inmemorytracker.InMemoryTracker
)

func setup() {
	stateTracker = inmemorytracker.NewInMemoryTracker(inmemorytracker.TrackerConfig{
		BotMemberID: common.BotUser.ID,
	}, 1)
	State = stateTracker

	common.BotSession.Intents = []discordgo.GatewayIntent{
		discordgo.GatewayIntentGuilds,
		discordgo.GatewayIntentGuildMessages,
		discordgo.GatewayIntentDirectMessages,
	}

	common.BotSession.AddHandler(stateTracker.HandleEvent)
	common.BotSession.AddHandler(handleReady)
}

// Run connects to the discord gateway and initializes all bot plugins,
// blocking until the gateway connection is open
func Run() {
	setup()

	logger.Info("Running bot")

	// Initialize all plugins, handlers need to be added before we connect
	for _, plugin := range common.Plugins {
		if initBot, ok := plugin.(BotInitHandler); ok {
			initBot.BotInit()
		}
	}

	Running = true

	err := common.BotSession.Open()
	if err != nil {
		logger.WithError(err).Fatal("Failed opening gateway connection")
	}

	go stateTracker.RunGCLoop(time.Second)

	// Initialize all plugins late
	for _, plugin := range common.Plugins {
		if initBot, ok := plugin.(LateBotInitHandler); ok {
			initBot.LateBotInit()
		}
	}
}

func handleReady(s *discordgo.Session, r *discordgo.Ready) {
	logger.Infof("Ready received! Connected to %d guilds", len(r.Guilds))
	s.UpdatePlayingStatus("Steam patch notes | v"+common.VERSION, discordgo.StatusOnline)
}

var stopOnce sync.Once

func StopAllPlugins(wg *sync.WaitGroup) {
	stopOnce.Do(func() {
		for _, v := range common.Plugins {
			stopper, ok := v.(BotStopperHandler)
			if !ok {
				continue
			}
			wg.Add(1)
			logger.Debug("Calling bot stopper for: ", v.PluginInfo().Name)
			go stopper.StopBot(wg)
		}
	})
}

func Stop(wg *sync.WaitGroup) {
	StopAllPlugins(wg)
	common.BotSession.Close()
	Running = false
	wg.Done()
}

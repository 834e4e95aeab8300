package run

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/botlabs-gg/patchbot/bot"
	"github.com/botlabs-gg/patchbot/common"
	"github.com/botlabs-gg/patchbot/common/backgroundworkers"
	"github.com/botlabs-gg/patchbot/common/config"
	"github.com/botlabs-gg/patchbot/common/mqueue"
	"github.com/botlabs-gg/patchbot/common/prom"
	"github.com/botlabs-gg/patchbot/common/sentryhook"
	"github.com/botlabs-gg/patchbot/feeds"
	"github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
)

var (
	flagRunBot        bool
	flagRunFeeds      string
	flagRunEverything bool
	flagRunBWC        bool

	flagDryRun bool

	flagLogTimestamp bool

	flagVersion bool
)

var confSentryDSN = config.RegisterOption("patchbot.sentry_dsn", "Sentry credentials for the sentry logging hook", "")

func init() {
	flag.BoolVar(&flagRunBot, "bot", false, "Set to run the discord bot")
	flag.StringVar(&flagRunFeeds, "feeds", "", "Which feeds to run, comma separated list (currently only patchnotes)")
	flag.BoolVar(&flagRunEverything, "all", false, "Set to run everything (discord bot, all feeds and the background workers)")
	flag.BoolVar(&flagRunBWC, "backgroundworkers", false, "Run the various background workers, atleast one process needs this")
	flag.BoolVar(&flagDryRun, "dry", false, "Do a dryrun, initialize all plugins but don't actually start anything")

	flag.BoolVar(&flagLogTimestamp, "ts", false, "Set to include timestamps in log")
	flag.BoolVar(&flagVersion, "version", false, "Print the version and exit")
}

func Init() {
	if !flag.Parsed() {
		flag.Parse()
	}

	if flagVersion {
		fmt.Println(common.VERSION)
		os.Exit(0)
	}

	common.AddLogHook(common.ContextHook{})

	common.SetLogFormatter(&log.TextFormatter{
		DisableTimestamp: !flagLogTimestamp && !common.Testing,
		ForceColors:      common.Testing,
		SortingFunc:      logrusSortingFunc,
	})

	if !flagRunBot && flagRunFeeds == "" && !flagRunEverything && !flagDryRun && !flagRunBWC {
		log.Error("Didnt specify what to run, see -h for more info")
		os.Exit(1)
	}

	log.Info("Starting patchbot version " + common.VERSION)

	err := common.CoreInit(true)
	if err != nil {
		log.WithError(err).Fatal("Failed running core init")
	}

	if confSentryDSN.GetString() != "" {
		addSentryHook()
	}

	err = common.Init()
	if err != nil {
		log.WithError(err).Fatal("Failed initializing")
	}

	log.Info("Starting plugins")
}

func Run() {
	if flagDryRun {
		log.Println("This is a dry run, exiting")
		return
	}

	prom.RegisterPlugin()

	if flagRunBot || flagRunEverything || flagRunBWC {
		mqueue.RegisterPlugin()
	}

	if flagRunBot || flagRunEverything {
		bot.Run()
	}

	if flagRunFeeds != "" || flagRunEverything {
		var runFeeds []string
		if !flagRunEverything {
			runFeeds = strings.Split(flagRunFeeds, ",")
		}
		go feeds.Run(runFeeds)
	}

	if flagRunBWC || flagRunEverything {
		go backgroundworkers.RunWorkers()
	}

	common.SetShutdownFunc(shutdown)
	listenSignal()
}

func listenSignal() {
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	<-c
	common.Shutdown()
}

func shutdown() {
	log.Info("SHUTTING DOWN...")

	shouldWait := false
	wg := new(sync.WaitGroup)

	if flagRunBot || flagRunEverything {
		wg.Add(1)

		go bot.Stop(wg)

		shouldWait = true
	}

	if flagRunFeeds != "" || flagRunEverything {
		feeds.Stop(wg)
		shouldWait = true
	}

	if flagRunBWC || flagRunEverything {
		backgroundworkers.StopWorkers(wg)
		shouldWait = true
	}

	if shouldWait {
		log.Info("Waiting for things to shut down...")
		wg.Wait()
	}

	log.Info("Sleeping for a second to allow work to finish")
	time.Sleep(time.Second)

	log.Info("Bye..")
	os.Exit(0)
}

func addSentryHook() {
	err := sentry.Init(sentry.ClientOptions{
		Dsn: confSentryDSN.GetString(),
	})

	if err == nil {
		hook := &sentryhook.Hook{}
		common.AddLogHook(hook)
		log.Info("Added Sentry Hook")
	} else {
		log.WithError(err).Error("Failed adding sentry hook")
	}
}

var logSortPriority = []string{
	"time",
	"level",
	"p",
	"msg",
	"stck",
}

func logrusSortingFunc(fields []string) {
	sort.Slice(fields, func(i, j int) bool {
		iPriority := findStringIndex(logSortPriority, fields[i])
		jPriority := findStringIndex(logSortPriority, fields[j])

		if iPriority != -1 && jPriority == -1 {
			return true
		} else if jPriority != -1 && iPriority == -1 {
			return false
		} else if iPriority == -1 && jPriority == -1 {
			return strings.Compare(fields[i], fields[j]) > 1
		}

		// both have a priority
		return iPriority < jPriority
	})
}

func findStringIndex(slice []string, s string) int {
	for i, v := range slice {
		if v == s {
			return i
		}
	}

	return -1
}

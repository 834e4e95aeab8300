package mqueue

import (
	"time"

	"emperror.dev/errors"
	"github.com/botlabs-gg/patchbot/common"
	"github.com/jonas747/discordgo/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

type DiscordProcessor struct {
}

func (d *DiscordProcessor) ProcessItem(resp chan *workResult, wi *workItem) {
	metricsProcessed.With(prometheus.Labels{"source": wi.Elem.Source}).Inc()

	retry := false
	defer func() {
		resp <- &workResult{
			item:  wi,
			retry: retry,
		}
	}()

	queueLogger := logger.WithField("mq_id", wi.Elem.ID)

	err := trySendNormal(queueLogger, wi.Elem)
	if err == nil {
		return
	}

	if e, ok := errors.Cause(err).(*discordgo.RESTError); ok {
		if (e.Response != nil && e.Response.StatusCode >= 400 && e.Response.StatusCode < 500) || (e.Message != nil && e.Message.Code != 0) {
			if source, ok := sources[wi.Elem.Source]; ok {
				maybeDisableFeed(source, wi.Elem, e)
			}

			return
		}
	}

	if c, _ := common.DiscordError(err); c != 0 {
		return
	}

	retry = true
	queueLogger.Warn("Non-discord related error when sending message, retrying. ", err)
	time.Sleep(time.Second)
}

var disableOnError = []int{
	discordgo.ErrCodeUnknownChannel,
	discordgo.ErrCodeMissingAccess,
	discordgo.ErrCodeMissingPermissions,
}

func maybeDisableFeed(source PluginWithSourceDisabler, elem *QueuedElement, err *discordgo.RESTError) {
	if err.Message == nil || !common.ContainsIntSlice(disableOnError, err.Message.Code) {
		// don't disable
		l := logger.WithError(err).WithField("source", elem.Source).WithField("sourceid", elem.SourceItemID)
		if elem.MessageEmbed != nil {
			serializedEmbed, _ := json.Marshal(elem.MessageEmbed)
			l = l.WithField("embed", serializedEmbed)
		}

		l.Error("error sending mqueue message")
		return
	}

	logger.WithError(err).Warnf("disabling feed item %s from %s", elem.SourceItemID, elem.Source)
	source.DisableFeed(elem, err)
}

func trySendNormal(l *logrus.Entry, elem *QueuedElement) (err error) {
	if elem.MessageStr == "" && elem.MessageEmbed == nil {
		l.Error("Empty send item received, skipping.")
		return
	}

	msg := &discordgo.MessageSend{}
	if elem.MessageStr != "" {
		msg.Content = elem.MessageStr
		msg.AllowedMentions = elem.AllowedMentions
	}
	if elem.MessageEmbed != nil {
		msg.Embed = elem.MessageEmbed
	}

	_, err = common.BotSession.ChannelMessageSendComplex(elem.ChannelID, msg)
	if err != nil {
		l.WithError(err).Errorf("Failed sending mqueue message %#v", msg)
	}

	return err
}

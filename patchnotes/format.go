package patchnotes

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/botlabs-gg/patchbot/common"
	"github.com/botlabs-gg/patchbot/steamnews"
	"github.com/jonas747/discordgo/v2"
	"github.com/microcosm-cc/bluemonday"
)

const (
	embedColor        = 0xff6b35
	embedBodyMaxRunes = 400
	embedFooterText   = "Powered by Steam API"
)

var (
	contentSanitizer = bluemonday.StrictPolicy()

	// steam news bodies mix html from external feeds with steams own bbcode
	bbcodeTags = regexp.MustCompile(`\[/?[a-zA-Z0-9*]+(?:=[^\]]*)?\]`)
)

// CleanPatchContents strips the markup patch note bodies show up with
func CleanPatchContents(raw string) string {
	out := contentSanitizer.Sanitize(raw)
	out = html.UnescapeString(out)
	out = bbcodeTags.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}

// CreatePatchNoteEmbed builds the announcement embed for a single patch note
func CreatePatchNoteEmbed(gameName string, item *steamnews.NewsItem) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:  gameName,
		Color:  embedColor,
		Fields: []*discordgo.MessageEmbedField{newsItemField(item)},
		Footer: &discordgo.MessageEmbedFooter{
			Text: embedFooterText,
		},
		Timestamp: time.Unix(item.Date, 0).UTC().Format(time.RFC3339),
	}
}

// CreateLatestNewsEmbed builds a single embed listing the passed patch notes,
// used by the latest command
func CreateLatestNewsEmbed(gameName string, items []*steamnews.NewsItem) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("🎮 %s Patch Notes", gameName),
		Color: embedColor,
		Footer: &discordgo.MessageEmbedFooter{
			Text: embedFooterText,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	for _, item := range items {
		embed.Fields = append(embed.Fields, newsItemField(item))
	}

	return embed
}

func newsItemField(item *steamnews.NewsItem) *discordgo.MessageEmbedField {
	date := time.Unix(item.Date, 0).UTC()

	body := common.CutStringShort(CleanPatchContents(item.Contents), embedBodyMaxRunes)
	if body == "" {
		body = "(no details)"
	}

	if item.URL != "" {
		body += "\n[Read More](" + item.URL + ")"
	}

	return &discordgo.MessageEmbedField{
		Name:   fmt.Sprintf("📅 %s (%s)", item.Title, date.Format("2006-01-02")),
		Value:  body,
		Inline: false,
	}
}

package mqueue

import (
	"time"

	"github.com/jonas747/discordgo/v2"
)

type QueuedElement struct {
	// The channel to send the message in
	ChannelID int64
	GuildID   int64

	ID int64

	// Where this feed originated from, responsible for handling discord specific errors
	Source string
	// Could be stuff like a patch note gid, youtube feed element id and so on
	SourceItemID string

	// The actual message as a simple string
	MessageStr string `json:",omitempty"`

	// The actual message as an embed
	MessageEmbed *discordgo.MessageEmbed `json:",omitempty"`

	AllowedMentions discordgo.AllowedMentions

	CreatedAt time.Time
}

// Storage is the backing store for queued elements
type Storage interface {
	GetFullQueue() ([]*workItem, error)
	AppendItem(elem *QueuedElement) error
	DelItem(item *workItem) error
	NextID() (next int64, err error)
}

package discord

import (
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

// Discord message and embed limits, in characters.
const (
	maxContentLen     = 2000
	maxTitleLen       = 256
	maxDescriptionLen = 4096
	maxFooterLen      = 2048
)

// EmbedBuilder turns a Story into a Discord embed.
type EmbedBuilder struct{}

// NewEmbedBuilder returns a new instance of EmbedBuilder.
func NewEmbedBuilder() *EmbedBuilder {
	return &EmbedBuilder{}
}

// BuildStoryEmbed shows the key takeaway as the title, the narrative as the
// body and the uploaded image inline.
func (b *EmbedBuilder) BuildStoryEmbed(post Story) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       truncate(post.KeyTakeaway, maxTitleLen),
		Description: truncate(post.Narrative, maxDescriptionLen),
		Color:       b.getColor(post.Mood),
	}
	if post.Filename != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: "attachment://" + post.Filename}
	}
	if tags := strings.Join(post.Hashtags, " "); tags != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: truncate(tags, maxFooterLen)}
	}
	return embed
}

func (b *EmbedBuilder) getColor(mood string) int {
	switch mood {
	case "tamparan":
		return 0xE53935 // Red
	case "stoic":
		return 0x607D8B // Blue Grey
	default:
		return 0xFFD700 // Gold
	}
}

// truncate cuts s to at most n runes, ending with an ellipsis when cut.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}

package discord

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// messageSender is the slice of *discordgo.Session the client needs.
type messageSender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Story is a composited image plus the copy that goes with it.
type Story struct {
	KeyTakeaway string
	Narrative   string
	Hashtags    []string
	Mood        string
	Image       []byte
	Filename    string
}

// Client posts finished stories to a Discord channel through the REST API.
type Client struct {
	session messageSender
	builder *EmbedBuilder
}

// NewClient initializes a new Discord REST client for a bot token.
func NewClient(token string) (*Client, error) {
	if token == "" {
		return nil, errors.New("discord bot token is required")
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	s.UserAgent = "DiscordBot (https://github.com/walljourney/mindset, 1.0.0)"
	return &Client{session: s, builder: NewEmbedBuilder()}, nil
}

// ShareStory uploads the story image as an attachment with an embed
// describing it and returns the created message ID.
func (c *Client) ShareStory(ctx context.Context, channelID, caption string, post Story) (string, error) {
	if channelID == "" {
		return "", errors.New("discord channel id is required")
	}
	if len(post.Image) == 0 {
		return "", errors.New("story has no image")
	}
	if post.Filename == "" {
		post.Filename = "story.png"
	}

	msg := &discordgo.MessageSend{
		Content: truncate(caption, maxContentLen),
		Embeds:  []*discordgo.MessageEmbed{c.builder.BuildStoryEmbed(post)},
		Files: []*discordgo.File{{
			Name:        post.Filename,
			ContentType: "image/png",
			Reader:      bytes.NewReader(post.Image),
		}},
	}

	sent, err := c.session.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("send story to channel %s: %w", channelID, err)
	}
	return sent.ID, nil
}

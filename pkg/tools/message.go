package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/aria-voice/aria/pkg/core/types"
)

const messageEmbedColor = 0x64c8c8

// DirectMessenger sends a direct message to a user. Satisfied by a Discord
// session; faked in tests.
type DirectMessenger interface {
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// MessageService sends longer replies to the user's phone as Discord
// direct messages.
type MessageService struct {
	session DirectMessenger
}

// NewMessageService creates a message service from a bot token.
func NewMessageService(botToken string) (*MessageService, error) {
	if botToken == "" {
		return &MessageService{}, nil
	}
	session, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return &MessageService{session: session}, nil
}

// NewMessageServiceWith creates a message service around an existing sender.
func NewMessageServiceWith(sender DirectMessenger) *MessageService {
	return &MessageService{session: sender}
}

// Descriptor declares the send_message_to_phone tool.
func (s *MessageService) Descriptor() types.ToolDescriptor {
	return types.ToolDescriptor{
		Name:        "send_message_to_phone",
		Description: "Send a text message to the user's phone.",
		Parameters: types.ObjectSchema(map[string]*types.Schema{
			"user_id": types.StringSchema("The numeric ID of the user to message."),
			"message": types.StringSchema("The message to send."),
		}, "user_id", "message"),
	}
}

// Handle implements the send_message_to_phone tool.
func (s *MessageService) Handle(ctx context.Context, args map[string]any) any {
	if s.session == nil {
		return Errorf("Discord bot token not found")
	}

	userID := stringArg(args, "user_id", "")
	if _, err := strconv.ParseInt(userID, 10, 64); err != nil {
		return Errorf("invalid user ID %q, must be an integer", userID)
	}

	message := stringArg(args, "message", "")
	if message == "" {
		return Errorf("message is required")
	}
	// The model sometimes escapes newlines inside string arguments.
	message = strings.ReplaceAll(message, `\n`, "\n")

	channel, err := s.session.UserChannelCreate(userID)
	if err != nil {
		return Errorf("failed to open direct message channel: %v", err)
	}

	embed := &discordgo.MessageEmbed{
		Description: message,
		Color:       messageEmbedColor,
	}
	if _, err := s.session.ChannelMessageSendEmbed(channel.ID, embed); err != nil {
		return Errorf("failed to send message: %v", err)
	}
	return fmt.Sprintf("Message sent to user %s", userID)
}

package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// Discord is the Chat implementation backed by a Discord gateway session
type Discord struct {
	session *discordgo.Session
	logger  *slog.Logger
}

// NewDiscord creates a Discord client for a bot token. Call Open to connect.
func NewDiscord(token string, logger *slog.Logger) (*Discord, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentGuildMessages |
		discordgo.IntentGuildMessageReactions |
		discordgo.IntentDirectMessages |
		discordgo.IntentDirectMessageReactions |
		discordgo.IntentMessageContent

	return &Discord{
		session: s,
		logger:  logger.With(slog.String("component", "discord")),
	}, nil
}

// Attach routes gateway events to b
func (d *Discord) Attach(b *Bot) {
	d.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		d.logger.Info("logged in", slog.String("user", r.User.Username))
		if err := s.UpdateGameStatus(0, "😀 "+b.prefix+"help"); err != nil {
			d.logger.Warn("failed to set status", slog.String("error", err.Error()))
		}
	})

	d.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || m.Author.Bot {
			return
		}
		b.HandleMessage(context.Background(), Message{
			ID:        m.ID,
			ChannelID: m.ChannelID,
			AuthorID:  m.Author.ID,
			Content:   m.Content,
		})
	})

	d.session.AddHandler(func(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
		if s.State.User != nil && r.UserID == s.State.User.ID {
			return
		}
		b.HandleReaction(context.Background(), Reaction{
			MessageID: r.MessageID,
			ChannelID: r.ChannelID,
			UserID:    r.UserID,
			Emoji:     r.Emoji.Name,
		})
	})
}

// Open connects to the gateway
func (d *Discord) Open() error {
	if err := d.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	return nil
}

// Close disconnects from the gateway
func (d *Discord) Close() error {
	return d.session.Close()
}

func (d *Discord) Reply(ctx context.Context, channelID, replyTo, text string) (string, error) {
	var (
		m   *discordgo.Message
		err error
	)
	if replyTo == "" {
		m, err = d.session.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx))
	} else {
		ref := &discordgo.MessageReference{MessageID: replyTo, ChannelID: channelID}
		m, err = d.session.ChannelMessageSendReply(channelID, text, ref, discordgo.WithContext(ctx))
	}
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	return m.ID, nil
}

func (d *Discord) Edit(ctx context.Context, channelID, messageID, text string) error {
	if _, err := d.session.ChannelMessageEdit(channelID, messageID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

func (d *Discord) React(ctx context.Context, channelID, messageID, emoji string) error {
	if err := d.session.MessageReactionAdd(channelID, messageID, emoji, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to add reaction: %w", err)
	}
	return nil
}

func (d *Discord) ClearReactions(ctx context.Context, channelID, messageID string) error {
	if err := d.session.MessageReactionsRemoveAll(channelID, messageID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to clear reactions: %w", err)
	}
	return nil
}

func (d *Discord) DisplayName(ctx context.Context, userID string) (string, error) {
	u, err := d.session.User(userID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	if u.GlobalName != "" {
		return u.GlobalName, nil
	}
	return u.Username, nil
}

package nineveh

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"golang.org/x/time/rate"
)

// GroupStore is the narrow facade over the Discord REST API that the group
// lifecycle code depends on. Method names and signatures mirror
// [discordgo.Session], so the live session satisfies the interface directly
// and tests can substitute a fake.
type GroupStore interface {
	// ChannelMessage fetches a single message by (channel, message) id.
	ChannelMessage(
		channelID string,
		messageID string,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)

	// ChannelMessages fetches a single page of a channel's history, most
	// recent first. Records are located by scanning this page; channels
	// whose history exceeds one page are out of scope.
	ChannelMessages(
		channelID string,
		limit int,
		beforeID string,
		afterID string,
		aroundID string,
		options ...discordgo.RequestOption,
	) ([]*discordgo.Message, error)

	ChannelMessageSendComplex(
		channelID string,
		data *discordgo.MessageSend,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)

	ChannelMessageEditComplex(
		m *discordgo.MessageEdit,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)

	ChannelMessageDelete(
		channelID string,
		messageID string,
		options ...discordgo.RequestOption,
	) error

	Channel(
		channelID string,
		options ...discordgo.RequestOption,
	) (*discordgo.Channel, error)

	GuildChannelCreateComplex(
		guildID string,
		data discordgo.GuildChannelCreateData,
		options ...discordgo.RequestOption,
	) (*discordgo.Channel, error)

	ChannelDelete(
		channelID string,
		options ...discordgo.RequestOption,
	) (*discordgo.Channel, error)

	GuildRoleCreate(
		guildID string,
		data *discordgo.RoleParams,
		options ...discordgo.RequestOption,
	) (*discordgo.Role, error)

	GuildRoleEdit(
		guildID string,
		roleID string,
		data *discordgo.RoleParams,
		options ...discordgo.RequestOption,
	) (*discordgo.Role, error)

	GuildRoleDelete(
		guildID string,
		roleID string,
		options ...discordgo.RequestOption,
	) error

	GuildMemberRoleAdd(
		guildID string,
		userID string,
		roleID string,
		options ...discordgo.RequestOption,
	) error

	GuildMemberRoleRemove(
		guildID string,
		userID string,
		roleID string,
		options ...discordgo.RequestOption,
	) error

	GuildMember(
		guildID string,
		userID string,
		options ...discordgo.RequestOption,
	) (*discordgo.Member, error)
}

// channelMessagePageSize is the page size requested when scanning channel
// history for records. 100 is the Discord maximum.
const channelMessagePageSize = 100

// isNotFound reports whether err is a Discord 404 - the message, channel or
// role was deleted out from under the operation.
func isNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		return restErr.Response.StatusCode == http.StatusNotFound
	}
	return false
}

// loggingStore wraps a GroupStore with structured logging and client-side
// request pacing. Pacing is deliberately coarse: one limiter across all
// routes, tuned well under Discord's global limit, so a burst of rollback
// deletions can't trip the remote rate limiter mid-cleanup.
type loggingStore struct {
	store   GroupStore
	logger  *slog.Logger
	limiter *rate.Limiter
}

func newLoggingStore(store GroupStore, logger *slog.Logger, rps float64) *loggingStore {
	return &loggingStore{
		store:   store,
		logger:  logger.With(loggerNameKey, "group_store"),
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (s *loggingStore) wait() {
	_ = s.limiter.Wait(context.Background())
}

func (s *loggingStore) ChannelMessage(
	channelID string,
	messageID string,
	options ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	s.wait()
	msg, err := s.store.ChannelMessage(channelID, messageID, options...)
	if err != nil {
		s.logger.Error(
			"error fetching message",
			tint.Err(err),
			"channel_id", channelID,
			"message_id", messageID,
		)
	}
	return msg, err
}

func (s *loggingStore) ChannelMessages(
	channelID string,
	limit int,
	beforeID string,
	afterID string,
	aroundID string,
	options ...discordgo.RequestOption,
) ([]*discordgo.Message, error) {
	s.wait()
	msgs, err := s.store.ChannelMessages(
		channelID, limit, beforeID, afterID, aroundID, options...,
	)
	if err != nil {
		s.logger.Error(
			"error fetching channel messages",
			tint.Err(err),
			"channel_id", channelID,
		)
	}
	return msgs, err
}

func (s *loggingStore) ChannelMessageSendComplex(
	channelID string,
	data *discordgo.MessageSend,
	options ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	s.wait()
	msg, err := s.store.ChannelMessageSendComplex(channelID, data, options...)
	if err != nil {
		s.logger.Error(
			"error posting message",
			tint.Err(err),
			"channel_id", channelID,
		)
	} else {
		s.logger.Debug(
			"posted message",
			"channel_id", channelID,
			"message_id", msg.ID,
		)
	}
	return msg, err
}

func (s *loggingStore) ChannelMessageEditComplex(
	m *discordgo.MessageEdit,
	options ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	s.wait()
	msg, err := s.store.ChannelMessageEditComplex(m, options...)
	if err != nil {
		s.logger.Error(
			"error editing message",
			tint.Err(err),
			"channel_id", m.Channel,
			"message_id", m.ID,
		)
	}
	return msg, err
}

func (s *loggingStore) ChannelMessageDelete(
	channelID string,
	messageID string,
	options ...discordgo.RequestOption,
) error {
	s.wait()
	err := s.store.ChannelMessageDelete(channelID, messageID, options...)
	if err != nil {
		s.logger.Error(
			"error deleting message",
			tint.Err(err),
			"channel_id", channelID,
			"message_id", messageID,
		)
	}
	return err
}

func (s *loggingStore) Channel(
	channelID string,
	options ...discordgo.RequestOption,
) (*discordgo.Channel, error) {
	s.wait()
	ch, err := s.store.Channel(channelID, options...)
	if err != nil {
		s.logger.Error(
			"error fetching channel",
			tint.Err(err),
			"channel_id", channelID,
		)
	}
	return ch, err
}

func (s *loggingStore) GuildChannelCreateComplex(
	guildID string,
	data discordgo.GuildChannelCreateData,
	options ...discordgo.RequestOption,
) (*discordgo.Channel, error) {
	s.wait()
	ch, err := s.store.GuildChannelCreateComplex(guildID, data, options...)
	if err != nil {
		s.logger.Error(
			"error creating channel",
			tint.Err(err),
			"guild_id", guildID,
			"name", data.Name,
		)
	} else {
		s.logger.Info(
			"created channel",
			"guild_id", guildID,
			"channel_id", ch.ID,
			"name", ch.Name,
		)
	}
	return ch, err
}

func (s *loggingStore) ChannelDelete(
	channelID string,
	options ...discordgo.RequestOption,
) (*discordgo.Channel, error) {
	s.wait()
	ch, err := s.store.ChannelDelete(channelID, options...)
	if err != nil {
		s.logger.Error(
			"error deleting channel",
			tint.Err(err),
			"channel_id", channelID,
		)
	} else {
		s.logger.Info("deleted channel", "channel_id", channelID)
	}
	return ch, err
}

func (s *loggingStore) GuildRoleCreate(
	guildID string,
	data *discordgo.RoleParams,
	options ...discordgo.RequestOption,
) (*discordgo.Role, error) {
	s.wait()
	role, err := s.store.GuildRoleCreate(guildID, data, options...)
	if err != nil {
		s.logger.Error(
			"error creating role",
			tint.Err(err),
			"guild_id", guildID,
			"name", data.Name,
		)
	} else {
		s.logger.Info(
			"created role",
			"guild_id", guildID,
			"role_id", role.ID,
			"name", role.Name,
		)
	}
	return role, err
}

func (s *loggingStore) GuildRoleEdit(
	guildID string,
	roleID string,
	data *discordgo.RoleParams,
	options ...discordgo.RequestOption,
) (*discordgo.Role, error) {
	s.wait()
	role, err := s.store.GuildRoleEdit(guildID, roleID, data, options...)
	if err != nil {
		s.logger.Error(
			"error editing role",
			tint.Err(err),
			"guild_id", guildID,
			"role_id", roleID,
		)
	}
	return role, err
}

func (s *loggingStore) GuildRoleDelete(
	guildID string,
	roleID string,
	options ...discordgo.RequestOption,
) error {
	s.wait()
	err := s.store.GuildRoleDelete(guildID, roleID, options...)
	if err != nil {
		s.logger.Error(
			"error deleting role",
			tint.Err(err),
			"guild_id", guildID,
			"role_id", roleID,
		)
	} else {
		s.logger.Info("deleted role", "guild_id", guildID, "role_id", roleID)
	}
	return err
}

func (s *loggingStore) GuildMemberRoleAdd(
	guildID string,
	userID string,
	roleID string,
	options ...discordgo.RequestOption,
) error {
	s.wait()
	err := s.store.GuildMemberRoleAdd(guildID, userID, roleID, options...)
	if err != nil {
		s.logger.Error(
			"error granting member role",
			tint.Err(err),
			"guild_id", guildID,
			"user_id", userID,
			"role_id", roleID,
		)
	}
	return err
}

func (s *loggingStore) GuildMemberRoleRemove(
	guildID string,
	userID string,
	roleID string,
	options ...discordgo.RequestOption,
) error {
	s.wait()
	err := s.store.GuildMemberRoleRemove(guildID, userID, roleID, options...)
	if err != nil {
		s.logger.Error(
			"error revoking member role",
			tint.Err(err),
			"guild_id", guildID,
			"user_id", userID,
			"role_id", roleID,
		)
	}
	return err
}

func (s *loggingStore) GuildMember(
	guildID string,
	userID string,
	options ...discordgo.RequestOption,
) (*discordgo.Member, error) {
	s.wait()
	member, err := s.store.GuildMember(guildID, userID, options...)
	if err != nil {
		s.logger.Error(
			"error fetching guild member",
			tint.Err(err),
			"guild_id", guildID,
			"user_id", userID,
		)
	}
	return member, err
}

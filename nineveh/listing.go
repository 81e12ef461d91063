package nineveh

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// The platform has no indexed lookup for "message whose embed title equals
// X", so records are located by scanning a single page of channel history
// and matching encoded keys.

// FindGroupByName returns the message in channelID whose first embed's
// title matches name exactly (case-sensitive, no normalization), or nil
// when no page-one message matches.
func FindGroupByName(
	store GroupStore,
	channelID string,
	name string,
) (*discordgo.Message, error) {
	messages, err := store.ChannelMessages(
		channelID, channelMessagePageSize, "", "", "",
	)
	if err != nil {
		return nil, err
	}
	for _, msg := range messages {
		if len(msg.Embeds) == 0 {
			continue
		}
		if msg.Embeds[0].Title == name {
			return msg, nil
		}
	}
	return nil, nil
}

// FindMasterList returns the master list record governing channelID: the
// message whose embed carries the group-manager-role field. Returns nil
// when the channel has no master list.
func FindMasterList(store GroupStore, channelID string) (*discordgo.Message, error) {
	messages, err := store.ChannelMessages(
		channelID, channelMessagePageSize, "", "", "",
	)
	if err != nil {
		return nil, err
	}
	for _, msg := range messages {
		if len(msg.Embeds) == 0 {
			continue
		}
		if _, ok := EmbedFields(msg.Embeds[0])[FieldGroupManagerRole]; ok {
			return msg, nil
		}
	}
	return nil, nil
}

// FindMemberField returns the roster field on a group record whose encoded
// identity matches userID, or nil if the user has no roster entry. Record
// metadata fields (leader, role, channel) are never treated as roster
// entries even though the leader field also carries a user mention.
func FindMemberField(
	embed *discordgo.MessageEmbed,
	userID string,
) *discordgo.MessageEmbedField {
	if embed == nil {
		return nil
	}
	for _, field := range embed.Fields {
		if field == nil || isRecordField(field.Name) {
			continue
		}
		id, err := UserIDFromMemberDescription(field.Value)
		if err != nil {
			continue
		}
		if id == userID {
			return field
		}
	}
	return nil
}

// rosterFields returns the roster entries of a group record, in listing
// order.
func rosterFields(embed *discordgo.MessageEmbed) []*discordgo.MessageEmbedField {
	if embed == nil {
		return nil
	}
	var members []*discordgo.MessageEmbedField
	for _, field := range embed.Fields {
		if field == nil || isRecordField(field.Name) {
			continue
		}
		if _, err := UserIDFromMemberDescription(field.Value); err != nil {
			continue
		}
		members = append(members, field)
	}
	return members
}

// recordEmbed returns the record embed of a fetched message. Record
// messages can lose their embed out from under the bot (anyone with
// manage-messages can strip embeds), so every fetch is checked before
// the embed is read.
func recordEmbed(msg *discordgo.Message) (*discordgo.MessageEmbed, error) {
	if msg == nil {
		return nil, errors.New("no record message")
	}
	if len(msg.Embeds) == 0 {
		return nil, fmt.Errorf("message %s has no record embed", msg.ID)
	}
	return msg.Embeds[0], nil
}

func isRecordField(name string) bool {
	switch name {
	case FieldGroupManagerRole,
		FieldGroupListChannel,
		FieldLogChannel,
		FieldGroupLeader,
		FieldGroupRole,
		FieldGroupChannel:
		return true
	}
	return false
}

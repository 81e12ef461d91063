package nineveh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
)

// User-facing validation and authorization failures. These surface to the
// user verbatim as ephemeral messages, so they read as sentences rather
// than conventional lowercase error strings.
var (
	ErrGroupNameExists = errors.New(
		"Group with that name already exists, pick a different name",
	)
	ErrNotGroupLeader = errors.New("You are not the leader of the group")
	ErrNoGroupsChannel = errors.New(
		"The group list is missing its groups channel",
	)
	ErrMasterListNotText = errors.New("Master list channel was not guild text")
)

// GroupMember is one roster entry.
type GroupMember struct {
	Username      string
	UserID        string
	CharacterInfo *CharacterInfo
}

// GroupInfo is the fully resolved state of a group after creation.
type GroupInfo struct {
	Name                   string
	Description            string
	GroupsChannelID        string
	GroupsChannelMessageID string
	RoleID                 string
	ChannelID              string
	LeaderID               string
	Members                []GroupMember
}

// CreateGroupInfo carries everything needed to create a group.
type CreateGroupInfo struct {
	GuildID             string
	MasterListChannelID string
	MasterListMessageID string
	GroupName           string
	GroupDescription    string

	// ExistingRoleID / ExistingChannelID, when set, adopt a caller-owned
	// role/channel instead of allocating new ones. Rollback only removes
	// what CreateGroup itself allocated, so adopted resources survive a
	// failed creation.
	ExistingRoleID    string
	ExistingChannelID string

	LeaderUserID   string
	LeaderUserName string
	CharacterInfo  *CharacterInfo
}

// MessageRef addresses a message either by a previously fetched object or
// by (channel, message) id pair, avoiding redundant refetching when the
// caller already holds the message.
type MessageRef struct {
	ChannelID string
	MessageID string
	Message   *discordgo.Message
}

func (r MessageRef) resolve(store GroupStore) (*discordgo.Message, error) {
	if r.Message != nil {
		return r.Message, nil
	}
	return store.ChannelMessage(r.ChannelID, r.MessageID)
}

// GroupManager implements the group lifecycle: create, delete, join, leave
// and leader transfer, each a sequence of remote calls against externally
// owned messages with compensating best-effort rollback. The remote API has
// no transactions, so partial failure during create is cleaned up by
// deleting whatever this attempt allocated, and multi-part deletes attempt
// every part regardless of individual failures.
type GroupManager struct {
	store  GroupStore
	logger *slog.Logger

	// applicationID is the bot's application (and bot user) id, granted
	// view permission on private group channels.
	applicationID string
}

func NewGroupManager(
	store GroupStore,
	logger *slog.Logger,
	applicationID string,
) *GroupManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &GroupManager{
		store:         store,
		logger:        logger.With(loggerNameKey, "group_manager"),
		applicationID: applicationID,
	}
}

// cleanupAction is one named best-effort cleanup step.
type cleanupAction struct {
	name string
	run  func() error
}

// ignoreNotFound treats a remote 404 as success: the thing being removed
// is already gone, which is the state the caller wanted.
func ignoreNotFound(err error) error {
	if isNotFound(err) {
		return nil
	}
	return err
}

// runCleanup attempts every action, collecting failures by action name.
// No failure halts the remaining actions and none is escalated: a partial
// cleanup failure must not mask the error that triggered the cleanup.
func runCleanup(logger *slog.Logger, actions []cleanupAction) map[string]string {
	failures := map[string]string{}
	for _, action := range actions {
		if action.run == nil {
			continue
		}
		if err := action.run(); err != nil {
			failures[action.name] = err.Error()
		}
	}
	for name, errMsg := range failures {
		logger.Error("cleanup action failed", "action", name, "error", errMsg)
	}
	return failures
}

// logChannelMessage posts an audit line to the master list's log channel,
// if one is configured. Audit failures are logged and swallowed: the
// operation being audited already succeeded.
func (m *GroupManager) logChannelMessage(
	ctx context.Context,
	masterListFields map[string]string,
	send *discordgo.MessageSend,
) {
	formatted, ok := masterListFields[FieldLogChannel]
	if !ok {
		return
	}
	logChannelID, ok := Unformat(formatted, PatternChannel)
	if !ok {
		m.logger.WarnContext(
			ctx,
			"log channel field is not a channel mention",
			"value", formatted,
		)
		return
	}
	if _, err := m.store.ChannelMessageSendComplex(logChannelID, send); err != nil {
		m.logger.ErrorContext(ctx, "error posting audit message", tint.Err(err))
	}
}

// CreateGroup creates a group: role, private channel, standalone listing
// in the groups channel, and summary entry appended to the master list
// channel, cross-linked to each other. On failure after the first remote
// mutation, everything this attempt allocated is rolled back best-effort;
// a role or channel supplied as pre-existing is never touched by rollback.
func (m *GroupManager) CreateGroup(
	ctx context.Context,
	info CreateGroupInfo,
) (*GroupInfo, error) {
	masterListMessage, err := m.store.ChannelMessage(
		info.MasterListChannelID, info.MasterListMessageID,
	)
	if err != nil {
		return nil, fmt.Errorf("error fetching master list record: %w", err)
	}
	if len(masterListMessage.Embeds) == 0 {
		return nil, ErrNoGroupsChannel
	}
	masterListFields := EmbedFields(masterListMessage.Embeds[0])

	groupsChannelID, ok := Unformat(
		masterListFields[FieldGroupListChannel], PatternChannel,
	)
	if !ok {
		return nil, ErrNoGroupsChannel
	}

	// Duplicate-name check is a hard precondition: it happens before any
	// mutation, and is not re-checked afterwards (the platform offers no
	// primitive to make it race-free).
	existing, err := FindGroupByName(m.store, info.MasterListChannelID, info.GroupName)
	if err != nil {
		return nil, fmt.Errorf("error scanning for existing groups: %w", err)
	}
	if existing != nil {
		return nil, ErrGroupNameExists
	}

	roleID := info.ExistingRoleID
	roleExistedBefore := roleID != ""
	groupChannelID := info.ExistingChannelID
	channelExistedBefore := groupChannelID != ""

	var listingMessage *discordgo.Message
	var summaryMessage *discordgo.Message

	fail := func(cause error) (*GroupInfo, error) {
		var cleanupRoleID, cleanupChannelID string
		if !roleExistedBefore {
			cleanupRoleID = roleID
		}
		if !channelExistedBefore {
			cleanupChannelID = groupChannelID
		}
		m.deleteGroupComponents(
			ctx,
			info.GuildID,
			summaryMessage,
			listingMessage,
			cleanupRoleID,
			cleanupChannelID,
		)
		return nil, cause
	}

	if roleID == "" {
		mentionable := true
		role, roleErr := m.store.GuildRoleCreate(
			info.GuildID,
			&discordgo.RoleParams{
				Name:        info.GroupName,
				Mentionable: &mentionable,
			},
		)
		if roleErr != nil {
			return fail(fmt.Errorf("error creating group role: %w", roleErr))
		}
		roleID = role.ID
	}

	if err = m.store.GuildMemberRoleAdd(
		info.GuildID, info.LeaderUserID, roleID,
	); err != nil {
		return fail(fmt.Errorf("error granting leader the group role: %w", err))
	}

	masterListChannel, err := m.store.Channel(info.MasterListChannelID)
	if err != nil {
		return fail(fmt.Errorf("error fetching master list channel: %w", err))
	}
	if masterListChannel.Type != discordgo.ChannelTypeGuildText {
		return fail(ErrMasterListNotText)
	}

	if groupChannelID == "" {
		groupChannel, chanErr := m.store.GuildChannelCreateComplex(
			info.GuildID,
			discordgo.GuildChannelCreateData{
				Name:     info.GroupName,
				Type:     discordgo.ChannelTypeGuildText,
				ParentID: masterListChannel.ParentID,
				PermissionOverwrites: []*discordgo.PermissionOverwrite{
					{
						// @everyone shares the guild's id
						ID:   info.GuildID,
						Type: discordgo.PermissionOverwriteTypeRole,
						Deny: discordgo.PermissionViewChannel,
					},
					{
						ID:    roleID,
						Type:  discordgo.PermissionOverwriteTypeRole,
						Allow: discordgo.PermissionViewChannel,
					},
					{
						ID:    m.applicationID,
						Type:  discordgo.PermissionOverwriteTypeMember,
						Allow: discordgo.PermissionViewChannel,
					},
				},
			},
		)
		if chanErr != nil {
			return fail(fmt.Errorf("error creating group channel: %w", chanErr))
		}
		groupChannelID = groupChannel.ID
	}

	leaderField := &discordgo.MessageEmbedField{
		Name:   FieldGroupLeader,
		Value:  mentionUser(info.LeaderUserID),
		Inline: true,
	}
	roleField := &discordgo.MessageEmbedField{
		Name:   FieldGroupRole,
		Value:  mentionRole(roleID),
		Inline: true,
	}
	channelField := &discordgo.MessageEmbedField{
		Name:   FieldGroupChannel,
		Value:  mentionChannel(groupChannelID),
		Inline: true,
	}
	leaderRosterField, ok := memberRosterField(
		info.LeaderUserName, info.LeaderUserID, info.CharacterInfo,
	)
	if !ok {
		return fail(fmt.Errorf(
			"leader name %q can't be encoded as a roster entry",
			info.LeaderUserName,
		))
	}

	listingMessage, err = m.store.ChannelMessageSendComplex(
		groupsChannelID,
		&discordgo.MessageSend{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       info.GroupName,
					Description: info.GroupDescription,
					Fields: []*discordgo.MessageEmbedField{
						leaderField, roleField, channelField, leaderRosterField,
					},
				},
			},
			Components: listingComponents(
				info.MasterListChannelID, info.MasterListMessageID,
			),
		},
	)
	if err != nil {
		return fail(fmt.Errorf("error posting group listing: %w", err))
	}

	summaryMessage, err = m.store.ChannelMessageSendComplex(
		info.MasterListChannelID,
		&discordgo.MessageSend{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       info.GroupName,
					Description: info.GroupDescription,
					URL: MessageURL(
						info.GuildID, groupsChannelID, listingMessage.ID,
					),
					Fields: []*discordgo.MessageEmbedField{
						leaderField, roleField,
					},
				},
			},
		},
	)
	if err != nil {
		return fail(fmt.Errorf("error posting summary entry: %w", err))
	}

	// Cross-link the listing back to the freshly posted summary entry, and
	// attach the Edit Group button now that the summary id is known.
	listingEmbed := listingMessage.Embeds[0]
	listingEmbed.URL = MessageURL(
		info.GuildID, info.MasterListChannelID, summaryMessage.ID,
	)
	listingComponentsWithEdit := listingComponentsFull(
		info.MasterListChannelID, info.MasterListMessageID, summaryMessage.ID,
	)
	if _, err = m.store.ChannelMessageEditComplex(
		&discordgo.MessageEdit{
			Channel:    listingMessage.ChannelID,
			ID:         listingMessage.ID,
			Embeds:     &[]*discordgo.MessageEmbed{listingEmbed},
			Components: &listingComponentsWithEdit,
		},
	); err != nil {
		return fail(fmt.Errorf("error cross-linking group listing: %w", err))
	}

	m.logChannelMessage(
		ctx,
		masterListFields,
		&discordgo.MessageSend{
			Content: fmt.Sprintf(
				"Group '%s' created with leader %s, role %s and channel %s",
				info.GroupName,
				mentionUser(info.LeaderUserID),
				mentionRole(roleID),
				mentionChannel(groupChannelID),
			),
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.Button{
							Style: discordgo.LinkButton,
							Label: "Go To Listing",
							URL: MessageURL(
								info.GuildID, groupsChannelID, listingMessage.ID,
							),
						},
					},
				},
			},
		},
	)

	return &GroupInfo{
		Name:                   info.GroupName,
		Description:            info.GroupDescription,
		GroupsChannelID:        groupsChannelID,
		GroupsChannelMessageID: listingMessage.ID,
		RoleID:                 roleID,
		ChannelID:              groupChannelID,
		LeaderID:               info.LeaderUserID,
		Members: []GroupMember{
			{
				Username:      info.LeaderUserName,
				UserID:        info.LeaderUserID,
				CharacterInfo: info.CharacterInfo,
			},
		},
	}, nil
}

// deleteGroupComponents removes a group's parts best-effort: summary
// entry, listing message, role and channel. Empty role/channel ids skip
// those parts. Used both by rollback and by explicit deletion.
func (m *GroupManager) deleteGroupComponents(
	ctx context.Context,
	guildID string,
	summaryMessage *discordgo.Message,
	listingMessage *discordgo.Message,
	roleID string,
	channelID string,
) map[string]string {
	var actions []cleanupAction

	if summaryMessage != nil {
		msg := summaryMessage
		actions = append(actions, cleanupAction{
			name: "delete summary entry",
			run: func() error {
				return ignoreNotFound(
					m.store.ChannelMessageDelete(msg.ChannelID, msg.ID),
				)
			},
		})
	}
	if listingMessage != nil {
		msg := listingMessage
		actions = append(actions, cleanupAction{
			name: "delete group listing",
			run: func() error {
				return ignoreNotFound(
					m.store.ChannelMessageDelete(msg.ChannelID, msg.ID),
				)
			},
		})
	}
	if roleID != "" {
		actions = append(actions, cleanupAction{
			name: "delete role",
			run: func() error {
				return ignoreNotFound(m.store.GuildRoleDelete(guildID, roleID))
			},
		})
	}
	if channelID != "" {
		actions = append(actions, cleanupAction{
			name: "delete channel",
			run: func() error {
				_, err := m.store.ChannelDelete(channelID)
				return ignoreNotFound(err)
			},
		})
	}

	return runCleanup(m.logger, actions)
}

// DeleteGroup removes a group's listing and summary entry, and optionally
// its role and channel. Deletion of one part never blocks deletion of the
// others.
func (m *GroupManager) DeleteGroup(
	ctx context.Context,
	guildID string,
	masterListChannelID string,
	masterListMessageID string,
	summaryMessageID string,
	groupsChannelID string,
	groupsMessageID string,
	deleteRole bool,
	deleteChannel bool,
) error {
	listingMessage, err := m.store.ChannelMessage(groupsChannelID, groupsMessageID)
	if err != nil {
		return fmt.Errorf("error fetching group listing: %w", err)
	}
	listingEmbed, err := recordEmbed(listingMessage)
	if err != nil {
		return err
	}
	groupName := listingEmbed.Title
	groupFields := EmbedFields(listingEmbed)

	masterListMessage, err := m.store.ChannelMessage(
		masterListChannelID, masterListMessageID,
	)
	if err != nil {
		return fmt.Errorf("error fetching master list record: %w", err)
	}
	masterListEmbed, err := recordEmbed(masterListMessage)
	if err != nil {
		return err
	}
	summaryMessage, err := m.store.ChannelMessage(
		masterListChannelID, summaryMessageID,
	)
	if err != nil {
		return fmt.Errorf("error fetching summary entry: %w", err)
	}

	var roleID, channelID string
	if deleteRole {
		roleID, _ = Unformat(groupFields[FieldGroupRole], PatternRole)
	}
	if deleteChannel {
		channelID, _ = Unformat(groupFields[FieldGroupChannel], PatternChannel)
	}

	m.deleteGroupComponents(
		ctx, guildID, summaryMessage, listingMessage, roleID, channelID,
	)

	var extra string
	switch {
	case deleteRole && deleteChannel:
		extra = " along with associated channel and role"
	case deleteRole:
		extra = " along with associated role, but not channel"
	case deleteChannel:
		extra = " along with associated channel, but not role"
	}

	m.logChannelMessage(
		ctx,
		EmbedFields(masterListEmbed),
		&discordgo.MessageSend{
			Content: fmt.Sprintf("Deleted group '%s'%s", groupName, extra),
		},
	)

	return nil
}

// AddToGroup grants the member the group role and appends their roster
// field to the group listing. The caller is expected to have already
// checked the user isn't a member.
func (m *GroupManager) AddToGroup(
	ctx context.Context,
	guildID string,
	masterListChannelID string,
	masterListMessageID string,
	memberID string,
	memberField *discordgo.MessageEmbedField,
	listingMessage *discordgo.Message,
	groupFields map[string]string,
) error {
	embed, err := recordEmbed(listingMessage)
	if err != nil {
		return err
	}
	roleID, ok := Unformat(groupFields[FieldGroupRole], PatternRole)
	if !ok {
		return fmt.Errorf(
			"group record %s has no role field", listingMessage.ID,
		)
	}

	if err := m.store.GuildMemberRoleAdd(guildID, memberID, roleID); err != nil {
		return fmt.Errorf("error granting group role: %w", err)
	}

	embed.Fields = append(embed.Fields, memberField)
	if _, err := m.store.ChannelMessageEditComplex(
		&discordgo.MessageEdit{
			Channel: listingMessage.ChannelID,
			ID:      listingMessage.ID,
			Embeds:  &listingMessage.Embeds,
		},
	); err != nil {
		return fmt.Errorf("error appending roster entry: %w", err)
	}

	masterListMessage, err := m.store.ChannelMessage(
		masterListChannelID, masterListMessageID,
	)
	if err != nil {
		return fmt.Errorf("error fetching master list record: %w", err)
	}
	masterListEmbed, err := recordEmbed(masterListMessage)
	if err != nil {
		return err
	}
	m.logChannelMessage(
		ctx,
		EmbedFields(masterListEmbed),
		&discordgo.MessageSend{
			Content: fmt.Sprintf(
				"%s has joined '%s'", mentionUser(memberID), embed.Title,
			),
		},
	)
	return nil
}

// RemoveFromGroup revokes the member's role and removes their roster entry
// from the listing. The role revoke happens regardless of whether a roster
// entry is found (revoking an unheld role is a no-op on the platform), so
// a half-consistent record still converges.
func (m *GroupManager) RemoveFromGroup(
	ctx context.Context,
	guildID string,
	masterListChannelID string,
	masterListMessageID string,
	groupsChannelID string,
	groupsMessageID string,
	memberID string,
) error {
	listingMessage, err := m.store.ChannelMessage(groupsChannelID, groupsMessageID)
	if err != nil {
		return fmt.Errorf("error fetching group listing: %w", err)
	}
	embed, err := recordEmbed(listingMessage)
	if err != nil {
		return err
	}
	groupFields := EmbedFields(embed)

	roleID, ok := Unformat(groupFields[FieldGroupRole], PatternRole)
	if !ok {
		return fmt.Errorf("group record %s has no role field", groupsMessageID)
	}
	if err = m.store.GuildMemberRoleRemove(
		guildID, memberID, roleID,
	); err != nil && !isNotFound(err) {
		return fmt.Errorf("error revoking group role: %w", err)
	}

	kept := make([]*discordgo.MessageEmbedField, 0, len(embed.Fields))
	for _, field := range embed.Fields {
		if field != nil && !isRecordField(field.Name) {
			if id, idErr := UserIDFromMemberDescription(field.Value); idErr == nil && id == memberID {
				continue
			}
		}
		kept = append(kept, field)
	}
	embed.Fields = kept

	if _, err = m.store.ChannelMessageEditComplex(
		&discordgo.MessageEdit{
			Channel: groupsChannelID,
			ID:      groupsMessageID,
			Embeds:  &[]*discordgo.MessageEmbed{embed},
		},
	); err != nil {
		return fmt.Errorf("error removing roster entry: %w", err)
	}

	if groupChannelID, hasChannel := Unformat(
		groupFields[FieldGroupChannel], PatternChannel,
	); hasChannel {
		if _, sendErr := m.store.ChannelMessageSendComplex(
			groupChannelID,
			&discordgo.MessageSend{
				Content: fmt.Sprintf(
					"%s has left the group", mentionUser(memberID),
				),
			},
		); sendErr != nil {
			m.logger.ErrorContext(
				ctx, "error posting departure notice", tint.Err(sendErr),
			)
		}
	}

	masterListMessage, err := m.store.ChannelMessage(
		masterListChannelID, masterListMessageID,
	)
	if err != nil {
		return fmt.Errorf("error fetching master list record: %w", err)
	}
	masterListEmbed, err := recordEmbed(masterListMessage)
	if err != nil {
		return err
	}
	m.logChannelMessage(
		ctx,
		EmbedFields(masterListEmbed),
		&discordgo.MessageSend{
			Content: fmt.Sprintf(
				"%s has left '%s'", mentionUser(memberID), embed.Title,
			),
		},
	)
	return nil
}

// ChangeGroupLeader updates the leader field in both the summary entry and
// the group listing. The caller must match the current leader field in
// BOTH copies: checking both means a divergence between the copies is
// surfaced and repaired rather than silently bypassed, and nothing is
// mutated unless both checks pass.
func (m *GroupManager) ChangeGroupLeader(
	ctx context.Context,
	callerUserID string,
	summaryRef MessageRef,
	listingRef MessageRef,
	newLeaderID string,
) error {
	summaryMessage, err := summaryRef.resolve(m.store)
	if err != nil {
		return fmt.Errorf("error fetching summary entry: %w", err)
	}
	listingMessage, err := listingRef.resolve(m.store)
	if err != nil {
		return fmt.Errorf("error fetching group listing: %w", err)
	}

	leaderFieldOf := func(msg *discordgo.Message) *discordgo.MessageEmbedField {
		if len(msg.Embeds) == 0 {
			return nil
		}
		for _, field := range msg.Embeds[0].Fields {
			if field != nil && field.Name == FieldGroupLeader {
				return field
			}
		}
		return nil
	}

	// Authorization pass over both copies before any mutation.
	for _, msg := range []*discordgo.Message{summaryMessage, listingMessage} {
		field := leaderFieldOf(msg)
		if field == nil {
			continue
		}
		if leaderID, ok := Unformat(field.Value, PatternUser); !ok || leaderID != callerUserID {
			return ErrNotGroupLeader
		}
	}

	for _, msg := range []*discordgo.Message{summaryMessage, listingMessage} {
		field := leaderFieldOf(msg)
		if field == nil {
			continue
		}
		field.Value = mentionUser(newLeaderID)
		if _, err = m.store.ChannelMessageEditComplex(
			&discordgo.MessageEdit{
				Channel: msg.ChannelID,
				ID:      msg.ID,
				Embeds:  &msg.Embeds,
			},
		); err != nil {
			return fmt.Errorf("error updating leader field: %w", err)
		}
	}

	return nil
}

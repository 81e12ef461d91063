package nineveh

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

const (
	commandCreateGroupList = "create-group-list"
	commandAddGroup        = "add-group"

	optionManagerRole   = "manager-role"
	optionGroupsChannel = "groups-channel"
	optionLogChannel    = "log-channel"

	optionGroupName    = "name"
	optionGroupLeader  = "leader"
	optionGroupChannel = "channel"
	optionGroupRole    = "role"
)

var adminPermission int64 = discordgo.PermissionAdministrator

// applicationCommands is the full command surface, registered via bulk
// overwrite so removed commands disappear on the next deploy.
var applicationCommands = []*discordgo.ApplicationCommand{
	{
		Name:                     commandCreateGroupList,
		Description:              "Create a group list record in this channel",
		DefaultMemberPermissions: &adminPermission,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionRole,
				Name:        optionManagerRole,
				Description: "Role allowed to create groups under this list",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionChannel,
				Name:        optionGroupsChannel,
				Description: "Channel where group listings are posted",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionChannel,
				Name:        optionLogChannel,
				Description: "Channel for group activity messages",
				Required:    false,
			},
		},
	},
	{
		Name: commandAddGroup,
		Description: "Migrate an existing role/channel pair into a group " +
			"under this channel's group list",
		DefaultMemberPermissions: &adminPermission,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        optionGroupName,
				Description: "Name of the group. Won't overwrite channel/role names.",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        optionGroupLeader,
				Description: "Leader of the group",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionChannel,
				Name:        optionGroupChannel,
				Description: "Existing channel of the group",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionRole,
				Name:        optionGroupRole,
				Description: "Existing role of the group",
				Required:    true,
			},
		},
	},
}

type commandHandlerFunc func(
	ctx context.Context,
	b *Nineveh,
	handler InteractionHandler,
	data discordgo.ApplicationCommandInteractionData,
) error

var commandHandlers = map[string]commandHandlerFunc{
	commandCreateGroupList: handleCreateGroupList,
	commandAddGroup:        handleAddGroupCommand,
}

func (b *Nineveh) handleCommand(
	ctx context.Context,
	handler InteractionHandler,
	data discordgo.ApplicationCommandInteractionData,
) error {
	handlerFunc, ok := commandHandlers[data.Name]
	if !ok {
		return fmt.Errorf("unknown command %q", data.Name)
	}
	return handlerFunc(ctx, b, handler, data)
}

// registerCommands overwrites the application's global command set.
func (b *Nineveh) registerCommands(ctx context.Context) error {
	registered, err := b.session.ApplicationCommandBulkOverwrite(
		b.config.Discord.ApplicationID,
		b.config.Discord.GuildID,
		applicationCommands,
	)
	if err != nil {
		return fmt.Errorf("error registering commands: %w", err)
	}
	for _, cmd := range registered {
		b.logger.InfoContext(
			ctx, "registered command", "name", cmd.Name, "id", cmd.ID,
		)
	}
	return nil
}

// handleCreateGroupList posts the master list record into the invoking
// channel. The record's Add Group button needs the record's own message id
// in its custom id, so the record is posted first and the button attached
// by a follow-up edit.
func handleCreateGroupList(
	ctx context.Context,
	b *Nineveh,
	handler InteractionHandler,
	data discordgo.ApplicationCommandInteractionData,
) error {
	i := handler.GetInteraction()

	var managerRoleID, groupsChannelID, logChannelID string
	for _, option := range data.Options {
		switch option.Name {
		case optionManagerRole:
			managerRoleID = option.RoleValue(nil, "").ID
		case optionGroupsChannel:
			groupsChannelID = option.ChannelValue(nil).ID
		case optionLogChannel:
			logChannelID = option.ChannelValue(nil).ID
		}
	}
	if managerRoleID == "" || groupsChannelID == "" {
		return fmt.Errorf(
			"command %s missing required options", commandCreateGroupList,
		)
	}

	fields := []*discordgo.MessageEmbedField{
		{
			Name:   FieldGroupManagerRole,
			Value:  mentionRole(managerRoleID),
			Inline: true,
		},
		{
			Name:   FieldGroupListChannel,
			Value:  mentionChannel(groupsChannelID),
			Inline: true,
		},
	}
	if logChannelID != "" {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   FieldLogChannel,
			Value:  mentionChannel(logChannelID),
			Inline: true,
		})
	}

	masterListMessage, err := b.store.ChannelMessageSendComplex(
		i.ChannelID,
		&discordgo.MessageSend{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title: "Group List",
					Description: "Groups created here are posted to " +
						mentionChannel(groupsChannelID),
					Fields: fields,
				},
			},
		},
	)
	if err != nil {
		return fmt.Errorf("error posting group list record: %w", err)
	}

	components := masterListButtonComponents(i.ChannelID, masterListMessage.ID)
	if _, err = b.store.ChannelMessageEditComplex(
		&discordgo.MessageEdit{
			Channel:    i.ChannelID,
			ID:         masterListMessage.ID,
			Components: &components,
		},
	); err != nil {
		return fmt.Errorf("error attaching group list button: %w", err)
	}

	return handler.Respond(ctx, ephemeralContent("Group list created"))
}

// handleAddGroupCommand migrates an already existing role/channel pair
// into a listed group: the group is created through the normal lifecycle
// with the role and channel adopted rather than allocated, so a failed
// creation rolls back only the record messages.
func handleAddGroupCommand(
	ctx context.Context,
	b *Nineveh,
	handler InteractionHandler,
	data discordgo.ApplicationCommandInteractionData,
) error {
	i := handler.GetInteraction()

	masterListMessage, err := FindMasterList(b.store, i.ChannelID)
	if err != nil {
		return fmt.Errorf("error locating group list record: %w", err)
	}
	if masterListMessage == nil {
		return handler.Respond(ctx, ephemeralContent(
			"This channel has no group list. Run /"+commandCreateGroupList+" first.",
		))
	}
	masterListEmbed, err := recordEmbed(masterListMessage)
	if err != nil {
		return err
	}
	if !canManageGroups(i.Member, EmbedFields(masterListEmbed)) {
		return ErrMissingManagerRole
	}

	var groupName, leaderID, channelID, roleID string
	for _, option := range data.Options {
		switch option.Name {
		case optionGroupName:
			groupName = option.StringValue()
		case optionGroupLeader:
			leaderID = option.UserValue(nil).ID
		case optionGroupChannel:
			channelID = option.ChannelValue(nil).ID
		case optionGroupRole:
			roleID = option.RoleValue(nil, "").ID
		}
	}
	if groupName == "" || leaderID == "" || channelID == "" || roleID == "" {
		return fmt.Errorf(
			"command %s missing required options", commandAddGroup,
		)
	}

	leader, err := b.store.GuildMember(i.GuildID, leaderID)
	if err != nil {
		return fmt.Errorf("error fetching group leader: %w", err)
	}
	leaderName := leader.Nick
	if leaderName == "" {
		leaderName = leader.User.Username
	}

	if err = handler.Respond(ctx, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	}); err != nil {
		return err
	}

	group, err := b.manager.CreateGroup(ctx, CreateGroupInfo{
		GuildID:             i.GuildID,
		MasterListChannelID: i.ChannelID,
		MasterListMessageID: masterListMessage.ID,
		GroupName:           groupName,
		ExistingRoleID:      roleID,
		ExistingChannelID:   channelID,
		LeaderUserID:        leaderID,
		LeaderUserName:      leaderName,
		CharacterInfo:       DefaultCharacterInfo(),
	})
	if err != nil {
		content := "Something went wrong migrating the group"
		if isUserFacing(err) {
			content = err.Error()
		}
		_ = handler.Edit(ctx, &discordgo.WebhookEdit{Content: &content})
		return err
	}

	content := fmt.Sprintf(
		"Migrated '%s': %s",
		group.Name,
		MessageURL(i.GuildID, group.GroupsChannelID, group.GroupsChannelMessageID),
	)
	return handler.Edit(ctx, &discordgo.WebhookEdit{Content: &content})
}

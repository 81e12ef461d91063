package nineveh

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"
)

// Component discriminators. These are baked into message components that
// persist in channels indefinitely, so a discriminator is never renamed or
// reused once shipped. Discriminators carrying four snowflake arguments are
// kept short enough that the worst-case 20-digit snowflakes still fit the
// 100-character custom id limit.
const (
	componentAddGroup           = "AddGroup"
	componentApplyToGroup       = "ApplyToGroup"
	componentAcceptApplication  = "AcceptApplication"
	componentLeaveGroup         = "LeaveGroup"
	componentConfirmLeaveGroup  = "ConfirmLeave"
	componentEditMemberDetails  = "EditMemberDetails"
	componentEditCharacter      = "EditCharacter"
	componentEditCharacterClass = "EditCharacterClass"
	componentEditGroup          = "EditGroup"
	componentEditGroupDetails   = "EditGroupDetails"
	componentKickGroupMember    = "KickGroupMember"
	componentDeleteGroup        = "DeleteGroup"
	componentConfirmDeleteGroup = "ConfirmDeleteGroup"
	componentChangeGroupLeader  = "ChangeGroupLeader"
	componentSubmitNewLeader    = "SubmitNewLeader"
)

// Deletion option bits carried through DeleteGroup custom ids.
const (
	channelDeleteBit = 1 << 1
	roleDeleteBit    = 1 << 2
)

// Authorization and validation failures shown to the invoking user.
var (
	ErrMissingManagerRole = errors.New(
		"You need the group manager role to do that",
	)
	ErrNotGroupMember     = errors.New("You are not a member of this group")
	ErrAlreadyGroupMember = errors.New(
		"You are already a member of this group",
	)
	ErrBadMemberName = errors.New(
		"Your name can't be stored in a group roster, it must be a single word",
	)
	ErrLeaderCannotLeave = errors.New(
		"Group leaders can't leave their own group. Transfer leadership or delete the group first",
	)
)

// componentHandlers routes message component interactions by discriminator.
// The table is package-level and never written after init, so the complete
// component surface is auditable in one place.
var componentHandlers = map[string]componentHandlerFunc{
	componentAddGroup:           handleAddGroup,
	componentApplyToGroup:       handleApplyToGroup,
	componentAcceptApplication:  handleAcceptApplication,
	componentLeaveGroup:         handleLeaveGroup,
	componentConfirmLeaveGroup:  handleConfirmLeaveGroup,
	componentEditMemberDetails:  handleEditMemberDetails,
	componentEditCharacter:      handleEditCharacter,
	componentEditCharacterClass: handleEditCharacterClass,
	componentEditGroup:          handleEditGroup,
	componentEditGroupDetails:   handleEditGroupDetails,
	componentKickGroupMember:    handleKickGroupMember,
	componentDeleteGroup:        handleDeleteGroup,
	componentConfirmDeleteGroup: handleConfirmDeleteGroup,
	componentChangeGroupLeader:  handleChangeGroupLeader,
	componentSubmitNewLeader:    handleSubmitNewLeader,
}

func argCountError(name string, args []string, want int) error {
	return fmt.Errorf(
		"component %s: got %d custom id args, want %d", name, len(args), want,
	)
}

// resolveListingFromSummary fetches a summary entry and follows its
// cross-link URL to the group listing's coordinates.
func resolveListingFromSummary(
	store GroupStore,
	masterListChannelID string,
	summaryMessageID string,
) (summary *discordgo.Message, listingChannelID, listingMessageID string, err error) {
	summary, err = store.ChannelMessage(masterListChannelID, summaryMessageID)
	if err != nil {
		return nil, "", "", fmt.Errorf("error fetching summary entry: %w", err)
	}
	if len(summary.Embeds) == 0 {
		return nil, "", "", fmt.Errorf(
			"summary entry %s has no record embed", summaryMessageID,
		)
	}
	listingChannelID, listingMessageID, ok := ParseMessageURL(summary.Embeds[0].URL)
	if !ok {
		return nil, "", "", fmt.Errorf(
			"summary entry %s has no listing link", summaryMessageID,
		)
	}
	return summary, listingChannelID, listingMessageID, nil
}

// listingComponents returns the button row attached to a freshly posted
// group listing, before the summary entry exists.
func listingComponents(
	masterListChannelID string,
	masterListMessageID string,
) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Style: discordgo.PrimaryButton,
					Label: "Apply To Group",
					CustomID: joinCustomID(
						componentApplyToGroup,
						masterListChannelID, masterListMessageID,
					),
				},
				discordgo.Button{
					Style: discordgo.SecondaryButton,
					Label: "Leave Group",
					CustomID: joinCustomID(
						componentLeaveGroup,
						masterListChannelID, masterListMessageID,
					),
				},
				discordgo.Button{
					Style:    discordgo.SecondaryButton,
					Label:    "Edit My Details",
					CustomID: joinCustomID(componentEditMemberDetails),
				},
			},
		},
	}
}

// listingComponentsFull is listingComponents plus the Edit Group button,
// which needs the summary entry's message id and so can only be attached
// after the summary is posted.
func listingComponentsFull(
	masterListChannelID string,
	masterListMessageID string,
	summaryMessageID string,
) []discordgo.MessageComponent {
	rows := listingComponents(masterListChannelID, masterListMessageID)
	row := rows[0].(discordgo.ActionsRow)
	row.Components = append(row.Components, discordgo.Button{
		Style: discordgo.SecondaryButton,
		Label: "Edit Group",
		CustomID: joinCustomID(
			componentEditGroup,
			masterListChannelID, masterListMessageID, summaryMessageID,
		),
	})
	rows[0] = row
	return rows
}

// masterListButtonComponents returns the single Add Group button attached
// to a master list record.
func masterListButtonComponents(
	masterListChannelID string,
	masterListMessageID string,
) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Style: discordgo.PrimaryButton,
					Label: "Add Group",
					CustomID: joinCustomID(
						componentAddGroup,
						masterListChannelID, masterListMessageID,
					),
				},
			},
		},
	}
}

// canManageGroups reports whether the member may create groups under the
// given master list: guild administrators always may, everyone else needs
// the master list's manager role.
func canManageGroups(
	member *discordgo.Member,
	masterListFields map[string]string,
) bool {
	if member == nil {
		return false
	}
	if member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	managerRoleID, ok := Unformat(
		masterListFields[FieldGroupManagerRole], PatternRole,
	)
	if !ok {
		return false
	}
	for _, roleID := range member.Roles {
		if roleID == managerRoleID {
			return true
		}
	}
	return false
}

// isGroupLeader reports whether the user is recorded as leader in the
// given group record fields.
func isGroupLeader(fields map[string]string, userID string) bool {
	leaderID, ok := Unformat(fields[FieldGroupLeader], PatternUser)
	return ok && leaderID == userID
}

// canEditGroup gates the group management surface: the recorded leader or
// a guild administrator.
func canEditGroup(
	member *discordgo.Member,
	groupFields map[string]string,
) bool {
	if member == nil {
		return false
	}
	if member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return isGroupLeader(groupFields, member.User.ID)
}

// handleAddGroup opens the new-group modal. Gated on group management
// permission so the modal isn't offered to users whose submission would be
// rejected anyway.
func handleAddGroup(
	ctx context.Context,
	b *Nineveh,
	handler InteractionHandler,
	args []string,
) error {
	if len(args) != 2 {
		return argCountError(componentAddGroup, args, 2)
	}
	masterListChannelID, masterListMessageID := args[0], args[1]

	i := handler.GetInteraction()
	masterListMessage, err := b.store.ChannelMessage(
		masterListChannelID, masterListMessageID,
	)
	if err != nil {
		return fmt.Errorf("error fetching master list record: %w", err)
	}
	masterListEmbed, err := recordEmbed(masterListMessage)
	if err != nil {
		return err
	}
	if !canManageGroups(i.Member, EmbedFields(masterListEmbed)) {
		return ErrMissingManagerRole
	}

	return handler.Respond(ctx, newGroupModal(
		masterListChannelID, masterListMessageID,
	))
}

// handleApplyToGroup opens the application modal, after checking the user
// isn't already on the roster.
func handleApplyToGroup(
	ctx context.Context,
	b *Nineveh,
	handler InteractionHandler,
	args []string,
) error {
	if len(args) != 2 {
		return argCountError(componentApplyToGroup, args, 2)
	}
	masterListChannelID, masterListMessageID := args[0], args[1]

	i := handler.GetInteraction()
	user := interactionUser(i)
	if i.Message != nil && len(i.Message.Embeds) > 0 {
		if FindMemberField(i.Message.Embeds[0], user.ID) != nil {
			return ErrAlreadyGroupMember
		}
	}
	if _, ok := FormatMemberInfo(user.Username, DefaultCharacterInfo()); !ok {
		return ErrBadMemberName
	}

	return handler.Respond(ctx, groupApplicationModal(
		masterListChannelID,
		masterListMessageID,
		i.Message.ChannelID,
		i.Message.ID,
	))
}

// handleAcceptApplication adds an applicant to the group. The button lives
// on the application message in the group's channel; the application
// embed's URL links back to the group listing.
func handleAcceptApplication(
	ctx context.Context,
	b *Nineveh,
	handler InteractionHandler,
	args []string,
) error {
	if len(args) != 3 {
		return argCountError(componentAcceptApplication, args, 3)
	}
	masterListChannelID, masterListMessageID := args[0], args[1]
	applicantID := args[2]

	i := handler.GetInteraction()

	// The application message embed is the applicant's roster field,
	// carried verbatim onto the listing, with a link to the listing.
	appMsg := i.Message
	if appMsg == nil || len(appMsg.Embeds) == 0 || len(appMsg.Embeds[0].Fields) == 0 {
		return fmt.Errorf("application message %s has no roster field", i.ID)
	}
	groupsChannelID, groupsMessageID, ok := ParseMessageURL(appMsg.Embeds[0].URL)
	if !ok {
		return fmt.Errorf(
			"application message %s has no listing link", appMsg.ID,
		)
	}
	memberField := appMsg.Embeds[0].Fields[0]

	listingMessage, err := b.store.ChannelMessage(groupsChannelID, groupsMessageID)
	if err != nil {
		return fmt.Errorf("error fetching group listing: %w", err)
	}
	listingEmbed, err := recordEmbed(listingMessage)
	if err != nil {
		return err
	}
	groupFields := EmbedFields(listingEmbed)
	if !canEditGroup(i.Member, groupFields) {
		return ErrNotGroupLeader
	}
	if FindMemberField(listingEmbed, applicantID) != nil {
		return handler.Respond(ctx, ephemeralContent(
			"They are already a member of this group",
		))
	}

	if err = b.manager.AddToGroup(
		ctx,
		i.GuildID,
		masterListChannelID,
		masterListMessageID,
		applicantID,
		memberField,
		listingMessage,
		groupFields,
	); err != nil {
		return err
	}

	// Retire the application message so the button can't fire twice.
	if err = b.store.ChannelMessageDelete(appMsg.ChannelID, appMsg.ID); err != nil {
		handler.Logger().WarnContext(
			ctx, "error deleting application message", "error", err,
		)
	}

	return handler.Respond(ctx, ephemeralContent(fmt.Sprintf(
		"Added %s to the group", mentionUser(applicantID),
	)))
}

// handleLeaveGroup asks for confirmation before removing the user.
func handleLeaveGroup(
	ctx context.Context,
	b *Nineveh,
	handler InteractionHandler,
	args []string,
) error {
	if len(args) != 2 {
		return argCountError(componentLeaveGroup, args, 2)
	}

	i := handler.GetInteraction()
	user := interactionUser(i)
	embed, err := recordEmbed(i.Message)
	if err != nil {
		return err
	}
	groupFields := EmbedFields(embed)

	if isGroupLeader(groupFields, user.ID) {
		return ErrLeaderCannotLeave
	}
	if FindMemberField(embed, user.ID) == nil {
		return ErrNotGroupMember
	}

	return handler.Respond(ctx, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("Leave '%s'?", embed.Title),
			Flags:   discordgo.MessageFlagsEphemeral,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.Button{
							Style: discordgo.DangerButton,
							Label: "Leave Group",
							CustomID: joinCustomID(
								componentConfirmLeaveGroup,
								args[0], args[1],
								i.Message.ChannelID, i.Message.ID,
							),
						},
					},
				},
			},
		},
	})
}

func handleConfirmLeaveGroup(
	ctx context.Context,
	b *Nineveh,
	handler InteractionHandler,
	args []string,
) error {
	if len(args) != 4 {
		return argCountError(componentConfirmLeaveGroup, args, 4)
	}
	masterListChannelID, masterListMessageID := args[0], args[1]
	groupsChannelID, groupsMessageID := args[2], args[3]

	i := handler.GetInteraction()
	user := interactionUser(i)

	if err := b.manager.RemoveFromGroup(
		ctx,
		i.GuildID,
		masterListChannelID,
		masterListMessageID,
		groupsChannelID,
		groupsMessageID,
		user.ID,
	); err != nil {
		return err
	}

	return handler.Respond(ctx, ephemeralContent("You have left the group"))
}

// handleEditMemberDetails shows the member's ephemeral editing surface:
// a button opening the character details modal and a class picker that
// writes straight to the listing. The class picker can't live in the
// modal because modals only hold text inputs.
func handleEditMemberDetails(
	ctx context.Context,
	b *Nineveh,
	handler InteractionHandler,
	args []string,
) error {
	i := handler.GetInteraction()
	user := interactionUser(i)
	embed, err := recordEmbed(i.Message)
	if err != nil {
		return err
	}

	field := FindMemberField(embed, user.ID)
	if field == nil {
		return ErrNotGroupMember
	}

	return handler.Respond(ctx, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "Edit your roster entry",
			Flags:   discordgo.MessageFlagsEphemeral,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.Button{
							Style: discordgo.PrimaryButton,
							Label: "Edit Character",
							CustomID: joinCustomID(
								componentEditCharacter,
								i.Message.ChannelID, i.Message.ID,
							),
						},
					},
				},
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						classSelectMenu(i.Message.ChannelID, i.Message.ID),
					},
				},
			},
		},
	})
}

// handleEditCharacter opens the character details modal prefilled from
// the user's current roster entry.
func handleEditCharacter(
	ctx context.Context,
	b *Nineveh,
	handler InteractionHandler,
	args []string,
) error {
	if len(args) != 2 {
		return argCountError(componentEditCharacter, args, 2)
	}
	groupsChannelID, groupsMessageID := args[0], args[1]

	i := handler.GetInteraction()
	user := interactionUser(i)
	listingMessage, err := b.store.ChannelMessage(groupsChannelID, groupsMessageID)
	if err != nil {
		return fmt.Errorf("error fetching group listing: %w", err)
	}
	embed, err := recordEmbed(listingMessage)
	if err != nil {
		return err
	}

	field := FindMemberField(embed, user.ID)
	if field == nil {
		return ErrNotGroupMember
	}
	_, info := UnformatMemberInfo(field.Name)
	if info == nil {
		info = DefaultCharacterInfo()
	}
	info.Notes = UnformatMemberDescription(field.Value)

	return handler.Respond(ctx, memberDetailsModal(
		groupsChannelID, groupsMessageID, info,
	))
}

// handleEditGroup shows the group management menu to the leader or an
// administrator.
func handleEditGroup(
	ctx context.Context,
	b *Nineveh,
	handler InteractionHandler,
	args []string,
) error {
	if len(args) != 3 {
		return argCountError(componentEditGroup, args, 3)
	}
	masterListChannelID, masterListMessageID := args[0], args[1]
	summaryMessageID := args[2]

	i := handler.GetInteraction()
	embed, err := recordEmbed(i.Message)
	if err != nil {
		return err
	}
	groupFields := EmbedFields(embed)
	if !canEditGroup(i.Member, groupFields) {
		return ErrNotGroupLeader
	}

	shared := []string{
		masterListChannelID, masterListMessageID, summaryMessageID,
	}
	return handler.Respond(ctx, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("Managing '%s'", embed.Title),
			Flags:   discordgo.MessageFlagsEphemeral,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.Button{
							Style: discordgo.SecondaryButton,
							Label: "Edit Details",
							CustomID: joinCustomID(
								componentEditGroupDetails, shared...,
							),
						},
						discordgo.Button{
							Style: discordgo.SecondaryButton,
							Label: "Change Leader",
							CustomID: joinCustomID(
								componentChangeGroupLeader, shared...,
							),
						},
						discordgo.Button{
							Style: discordgo.DangerButton,
							Label: "Delete Group",
							CustomID: joinCustomID(
								componentDeleteGroup,
								append(append([]string{}, shared...), "0")...,
							),
						},
					},
				},
			},
		},
	})
}

// handleEditGroupDetails opens the group name/description modal prefilled
// from the current listing. Leadership is re-checked against the listing
// rather than trusted from the management menu: the menu is ephemeral but
// its buttons outlive a leader transfer.
func handleEditGroupDetails(
	ctx context.Context,
	b *Nineveh,
	handler InteractionHandler,
	args []string,
) error {
	if len(args) != 3 {
		return argCountError(componentEditGroupDetails, args, 3)
	}
	masterListChannelID, summaryMessageID := args[0], args[2]

	_, groupsChannelID, groupsMessageID, err := resolveListingFromSummary(
		b.store, masterListChannelID, summaryMessageID,
	)
	if err != nil {
		return err
	}
	listingMessage, err := b.store.ChannelMessage(groupsChannelID, groupsMessageID)
	if err != nil {
		return fmt.Errorf("error fetching group listing: %w", err)
	}
	embed, err := recordEmbed(listingMessage)
	if err != nil {
		return err
	}
	if !canEditGroup(handler.GetInteraction().Member, EmbedFields(embed)) {
		return ErrNotGroupLeader
	}

	return handler.Respond(ctx, groupDetailsModal(
		args, embed.Title, embed.Description,
	))
}

// handleKickGroupMember is reserved space on the management surface.
// TODO(roster): needs a member select scoped to the roster fields before
// it can do anything.
func handleKickGroupMember(
	ctx context.Context,
	b *Nineveh,
	handler InteractionHandler,
	args []string,
) error {
	return handler.Respond(
		ctx, ephemeralContent("Kicking members isn't available yet"),
	)
}

// handleDeleteGroup renders the delete confirmation with two toggle
// buttons. The pending role/channel choices ride in the confirm button's
// flag argument, re-rendered on every toggle.
func handleDeleteGroup(
	ctx context.Context,
	b *Nineveh,
	handler InteractionHandler,
	args []string,
) error {
	if len(args) != 4 {
		return argCountError(componentDeleteGroup, args, 4)
	}
	flags, err := strconv.Atoi(args[3])
	if err != nil {
		return fmt.Errorf("bad delete flags %q: %w", args[3], err)
	}

	deleteChannel := flags&channelDeleteBit != 0
	deleteRole := flags&roleDeleteBit != 0

	toggleLabel := func(on bool, what string) string {
		if on {
			return "Will delete " + what
		}
		return "Will keep " + what
	}
	toggleStyle := func(on bool) discordgo.ButtonStyle {
		if on {
			return discordgo.DangerButton
		}
		return discordgo.SecondaryButton
	}

	base := args[:3]
	response := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content: "Delete this group? Choose what goes with it.",
			Flags:   discordgo.MessageFlagsEphemeral,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.Button{
							Style: toggleStyle(deleteChannel),
							Label: toggleLabel(deleteChannel, "channel"),
							CustomID: joinCustomID(
								componentDeleteGroup,
								append(
									append([]string{}, base...),
									strconv.Itoa(flags^channelDeleteBit),
								)...,
							),
						},
						discordgo.Button{
							Style: toggleStyle(deleteRole),
							Label: toggleLabel(deleteRole, "role"),
							CustomID: joinCustomID(
								componentDeleteGroup,
								append(
									append([]string{}, base...),
									strconv.Itoa(flags^roleDeleteBit),
								)...,
							),
						},
						discordgo.Button{
							Style: discordgo.DangerButton,
							Label: "Confirm Delete",
							CustomID: joinCustomID(
								componentConfirmDeleteGroup,
								append(
									append([]string{}, base...),
									strconv.Itoa(flags),
								)...,
							),
						},
					},
				},
			},
		},
	}
	return handler.Respond(ctx, response)
}

func handleConfirmDeleteGroup(
	ctx context.Context,
	b *Nineveh,
	handler InteractionHandler,
	args []string,
) error {
	if len(args) != 4 {
		return argCountError(componentConfirmDeleteGroup, args, 4)
	}
	masterListChannelID, masterListMessageID := args[0], args[1]
	summaryMessageID := args[2]
	flags, err := strconv.Atoi(args[3])
	if err != nil {
		return fmt.Errorf("bad delete flags %q: %w", args[3], err)
	}

	_, groupsChannelID, groupsMessageID, err := resolveListingFromSummary(
		b.store, masterListChannelID, summaryMessageID,
	)
	if err != nil {
		return err
	}

	i := handler.GetInteraction()
	if err = b.manager.DeleteGroup(
		ctx,
		i.GuildID,
		masterListChannelID,
		masterListMessageID,
		summaryMessageID,
		groupsChannelID,
		groupsMessageID,
		flags&roleDeleteBit != 0,
		flags&channelDeleteBit != 0,
	); err != nil {
		return err
	}

	content := "Group deleted"
	return handler.Respond(ctx, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Flags:      discordgo.MessageFlagsEphemeral,
			Components: []discordgo.MessageComponent{},
		},
	})
}

// handleChangeGroupLeader replaces the management menu with a user select.
func handleChangeGroupLeader(
	ctx context.Context,
	b *Nineveh,
	handler InteractionHandler,
	args []string,
) error {
	if len(args) != 3 {
		return argCountError(componentChangeGroupLeader, args, 3)
	}
	return handler.Respond(ctx, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content: "Pick the new leader",
			Flags:   discordgo.MessageFlagsEphemeral,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						newLeaderSelectMenu(args),
					},
				},
			},
		},
	})
}

// handleSubmitNewLeader applies the user select choice through the
// lifecycle manager, which authorizes against both record copies.
func handleSubmitNewLeader(
	ctx context.Context,
	b *Nineveh,
	handler InteractionHandler,
	args []string,
) error {
	if len(args) != 3 {
		return argCountError(componentSubmitNewLeader, args, 3)
	}
	masterListChannelID := args[0]
	summaryMessageID := args[2]

	summaryMessage, groupsChannelID, groupsMessageID, err := resolveListingFromSummary(
		b.store, masterListChannelID, summaryMessageID,
	)
	if err != nil {
		return err
	}

	i := handler.GetInteraction()
	data := i.MessageComponentData()
	if len(data.Values) != 1 {
		return fmt.Errorf("leader select returned %d values", len(data.Values))
	}
	newLeaderID := data.Values[0]

	if err = b.manager.ChangeGroupLeader(
		ctx,
		interactionUser(i).ID,
		MessageRef{
			ChannelID: masterListChannelID,
			MessageID: summaryMessageID,
			Message:   summaryMessage,
		},
		MessageRef{ChannelID: groupsChannelID, MessageID: groupsMessageID},
		newLeaderID,
	); err != nil {
		return err
	}

	return handler.Respond(ctx, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content: fmt.Sprintf(
				"%s is now the group leader", mentionUser(newLeaderID),
			),
			Flags:      discordgo.MessageFlagsEphemeral,
			Components: []discordgo.MessageComponent{},
		},
	})
}

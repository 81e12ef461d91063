package nineveh

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
)

// Modal discriminators. Like component discriminators these are stable
// wire identifiers.
const (
	modalSubmitNewGroup      = "SubmitNewGroup"
	modalSubmitApplication   = "SubmitApply"
	modalSubmitMemberDetails = "SubmitMemberDetails"
	modalSubmitGroupDetails  = "SubmitGroupDetails"
)

// Text input custom ids within modals.
const (
	inputGroupName        = "GroupName"
	inputGroupDescription = "GroupDescription"
	inputCharacterName    = "CharacterName"
	inputItemLevel        = "ItemLevel"
	inputNotes            = "Notes"
)

var modalHandlers = map[string]modalHandlerFunc{
	modalSubmitNewGroup:      handleSubmitNewGroup,
	modalSubmitApplication:   handleSubmitApplication,
	modalSubmitMemberDetails: handleSubmitMemberDetails,
	modalSubmitGroupDetails:  handleSubmitGroupDetails,
}

func textInput(
	customID string,
	label string,
	style discordgo.TextInputStyle,
	required bool,
	minLength int,
	maxLength int,
	value string,
) discordgo.ActionsRow {
	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID:  customID,
				Label:     label,
				Style:     style,
				Required:  required,
				MinLength: minLength,
				MaxLength: maxLength,
				Value:     value,
			},
		},
	}
}

func newGroupModal(
	masterListChannelID string,
	masterListMessageID string,
) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: joinCustomID(
				modalSubmitNewGroup, masterListChannelID, masterListMessageID,
			),
			Title: "New Group",
			Components: []discordgo.MessageComponent{
				textInput(
					inputGroupName, "Group Name",
					discordgo.TextInputShort, true, 3, 64, "",
				),
				textInput(
					inputGroupDescription, "Description",
					discordgo.TextInputParagraph, false, 0, 512, "",
				),
			},
		},
	}
}

// characterInputs is the shared character detail section of the
// application and edit-details modals. Class isn't here: it's picked
// from the class select menu, never typed.
func characterInputs(info *CharacterInfo) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		textInput(
			inputCharacterName, "Character Name",
			discordgo.TextInputShort, true, 2, 16, info.Name,
		),
		textInput(
			inputItemLevel, "Item Level",
			discordgo.TextInputShort, true, 3, 4, info.ItemLevel,
		),
		textInput(
			inputNotes, "Notes",
			discordgo.TextInputParagraph, false, 0, 256, info.Notes,
		),
	}
}

func groupApplicationModal(
	masterListChannelID string,
	masterListMessageID string,
	groupsChannelID string,
	groupsMessageID string,
) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: joinCustomID(
				modalSubmitApplication,
				masterListChannelID, masterListMessageID,
				groupsChannelID, groupsMessageID,
			),
			Title:      "Apply To Group",
			Components: characterInputs(DefaultCharacterInfo()),
		},
	}
}

func memberDetailsModal(
	groupsChannelID string,
	groupsMessageID string,
	info *CharacterInfo,
) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: joinCustomID(
				modalSubmitMemberDetails, groupsChannelID, groupsMessageID,
			),
			Title:      "Edit My Details",
			Components: characterInputs(info),
		},
	}
}

func groupDetailsModal(
	args []string,
	currentName string,
	currentDescription string,
) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: joinCustomID(modalSubmitGroupDetails, args...),
			Title:    "Edit Group",
			Components: []discordgo.MessageComponent{
				textInput(
					inputGroupName, "Group Name",
					discordgo.TextInputShort, true, 3, 64, currentName,
				),
				textInput(
					inputGroupDescription, "Description",
					discordgo.TextInputParagraph, false, 0, 512,
					currentDescription,
				),
			},
		},
	}
}

// modalInputValue walks a modal submission's component tree for the text
// input with the given custom id. Missing inputs yield the empty string,
// indistinguishable from a blank optional field, which is the behavior
// callers want.
func modalInputValue(
	data discordgo.ModalSubmitInteractionData,
	customID string,
) string {
	for _, row := range data.Components {
		actionsRow, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, component := range actionsRow.Components {
			input, ok := component.(*discordgo.TextInput)
			if !ok {
				continue
			}
			if input.CustomID == customID {
				return strings.TrimSpace(input.Value)
			}
		}
	}
	return ""
}

// characterInfoFromModal overlays the submitted character inputs onto
// base (nil base means the defaults). Class rides through from base
// untouched since it's only settable through the class picker.
func characterInfoFromModal(
	data discordgo.ModalSubmitInteractionData,
	base *CharacterInfo,
) *CharacterInfo {
	info := DefaultCharacterInfo()
	if base != nil {
		*info = *base
	}
	if v := modalInputValue(data, inputCharacterName); v != "" {
		info.Name = v
	}
	if v := modalInputValue(data, inputItemLevel); v != "" {
		info.ItemLevel = v
	}
	info.Notes = modalInputValue(data, inputNotes)
	return info
}

// handleSubmitNewGroup creates the group with the submitter as leader.
func handleSubmitNewGroup(
	ctx context.Context,
	b *Nineveh,
	handler InteractionHandler,
	args []string,
) error {
	if len(args) != 2 {
		return argCountError(modalSubmitNewGroup, args, 2)
	}
	masterListChannelID, masterListMessageID := args[0], args[1]

	i := handler.GetInteraction()
	user := interactionUser(i)
	data := i.ModalSubmitData()

	groupName := modalInputValue(data, inputGroupName)
	if groupName == "" {
		return handler.Respond(ctx, ephemeralContent("Group name is required"))
	}

	// Creation involves several remote calls, so acknowledge first and
	// deliver the result through an edit.
	if err := handler.Respond(ctx, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	}); err != nil {
		return err
	}

	group, err := b.manager.CreateGroup(ctx, CreateGroupInfo{
		GuildID:             i.GuildID,
		MasterListChannelID: masterListChannelID,
		MasterListMessageID: masterListMessageID,
		GroupName:           groupName,
		GroupDescription:    modalInputValue(data, inputGroupDescription),
		LeaderUserID:        user.ID,
		LeaderUserName:      user.Username,
		CharacterInfo:       DefaultCharacterInfo(),
	})
	if err != nil {
		content := "Something went wrong creating the group"
		if isUserFacing(err) {
			content = err.Error()
		}
		_ = handler.Edit(ctx, &discordgo.WebhookEdit{Content: &content})
		return err
	}

	content := fmt.Sprintf(
		"Created '%s': %s",
		group.Name,
		MessageURL(i.GuildID, group.GroupsChannelID, group.GroupsChannelMessageID),
	)
	return handler.Edit(ctx, &discordgo.WebhookEdit{Content: &content})
}

// handleSubmitApplication posts the application into the group's channel
// with an Accept button for the leader.
func handleSubmitApplication(
	ctx context.Context,
	b *Nineveh,
	handler InteractionHandler,
	args []string,
) error {
	if len(args) != 4 {
		return argCountError(modalSubmitApplication, args, 4)
	}
	masterListChannelID, masterListMessageID := args[0], args[1]
	groupsChannelID, groupsMessageID := args[2], args[3]

	i := handler.GetInteraction()
	user := interactionUser(i)
	info := characterInfoFromModal(i.ModalSubmitData(), nil)

	listingMessage, err := b.store.ChannelMessage(groupsChannelID, groupsMessageID)
	if err != nil {
		return fmt.Errorf("error fetching group listing: %w", err)
	}
	embed, err := recordEmbed(listingMessage)
	if err != nil {
		return err
	}
	if FindMemberField(embed, user.ID) != nil {
		return ErrAlreadyGroupMember
	}
	groupFields := EmbedFields(embed)
	groupChannelID, ok := Unformat(groupFields[FieldGroupChannel], PatternChannel)
	if !ok {
		return fmt.Errorf(
			"group record %s has no channel field", groupsMessageID,
		)
	}

	memberField, ok := memberRosterField(user.Username, user.ID, info)
	if !ok {
		return ErrBadMemberName
	}

	leaderMention := groupFields[FieldGroupLeader]
	if _, err = b.store.ChannelMessageSendComplex(
		groupChannelID,
		&discordgo.MessageSend{
			Content: fmt.Sprintf(
				"%s: %s wants to join '%s'",
				leaderMention, mentionUser(user.ID), embed.Title,
			),
			Embeds: []*discordgo.MessageEmbed{
				{
					Title: "Group Application",
					URL: MessageURL(
						i.GuildID, groupsChannelID, groupsMessageID,
					),
					Fields: []*discordgo.MessageEmbedField{memberField},
				},
			},
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.Button{
							Style: discordgo.SuccessButton,
							Label: "Accept",
							CustomID: joinCustomID(
								componentAcceptApplication,
								masterListChannelID,
								masterListMessageID,
								user.ID,
							),
						},
					},
				},
			},
		},
	); err != nil {
		return fmt.Errorf("error posting application: %w", err)
	}

	return handler.Respond(ctx, ephemeralContent(
		"Application submitted. The group leader will review it.",
	))
}

// handleSubmitMemberDetails rewrites the submitter's roster field on the
// listing in place.
func handleSubmitMemberDetails(
	ctx context.Context,
	b *Nineveh,
	handler InteractionHandler,
	args []string,
) error {
	if len(args) != 2 {
		return argCountError(modalSubmitMemberDetails, args, 2)
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

	_, current := UnformatMemberInfo(field.Name)
	info := characterInfoFromModal(i.ModalSubmitData(), current)
	name, ok := FormatMemberInfo(user.Username, info)
	if !ok {
		return ErrBadMemberName
	}
	field.Name = name
	field.Value = FormatMemberDescription(user.ID, info.Notes)

	if _, err = b.store.ChannelMessageEditComplex(
		&discordgo.MessageEdit{
			Channel: groupsChannelID,
			ID:      groupsMessageID,
			Embeds:  &listingMessage.Embeds,
		},
	); err != nil {
		return fmt.Errorf("error updating roster entry: %w", err)
	}

	return handler.Respond(ctx, ephemeralContent("Your details were updated"))
}

// handleSubmitGroupDetails renames a group: listing, summary entry and
// role all follow the new name. The rename is rejected when another group
// under the same master list already has it.
func handleSubmitGroupDetails(
	ctx context.Context,
	b *Nineveh,
	handler InteractionHandler,
	args []string,
) error {
	if len(args) != 3 {
		return argCountError(modalSubmitGroupDetails, args, 3)
	}
	masterListChannelID, masterListMessageID := args[0], args[1]
	summaryMessageID := args[2]

	i := handler.GetInteraction()
	data := i.ModalSubmitData()
	newName := modalInputValue(data, inputGroupName)
	newDescription := modalInputValue(data, inputGroupDescription)
	if newName == "" {
		return handler.Respond(ctx, ephemeralContent("Group name is required"))
	}

	summaryMessage, groupsChannelID, groupsMessageID, err := resolveListingFromSummary(
		b.store, masterListChannelID, summaryMessageID,
	)
	if err != nil {
		return err
	}
	listingMessage, err := b.store.ChannelMessage(groupsChannelID, groupsMessageID)
	if err != nil {
		return fmt.Errorf("error fetching group listing: %w", err)
	}
	listingEmbed, err := recordEmbed(listingMessage)
	if err != nil {
		return err
	}
	if !canEditGroup(i.Member, EmbedFields(listingEmbed)) {
		return ErrNotGroupLeader
	}

	oldName := listingEmbed.Title
	if newName != oldName {
		existing, findErr := FindGroupByName(
			b.store, masterListChannelID, newName,
		)
		if findErr != nil {
			return fmt.Errorf("error scanning for existing groups: %w", findErr)
		}
		if existing != nil {
			return ErrGroupNameExists
		}
	}

	for _, target := range []struct {
		channelID string
		message   *discordgo.Message
	}{
		{groupsChannelID, listingMessage},
		{masterListChannelID, summaryMessage},
	} {
		embed := target.message.Embeds[0]
		embed.Title = newName
		embed.Description = newDescription
		if _, err = b.store.ChannelMessageEditComplex(
			&discordgo.MessageEdit{
				Channel: target.channelID,
				ID:      target.message.ID,
				Embeds:  &target.message.Embeds,
			},
		); err != nil {
			return fmt.Errorf("error updating group record: %w", err)
		}
	}

	if newName != oldName {
		groupFields := EmbedFields(listingEmbed)
		if roleID, ok := Unformat(
			groupFields[FieldGroupRole], PatternRole,
		); ok {
			if _, roleErr := b.store.GuildRoleEdit(
				i.GuildID, roleID, &discordgo.RoleParams{Name: newName},
			); roleErr != nil {
				handler.Logger().WarnContext(
					ctx, "error renaming group role", tint.Err(roleErr),
				)
			}
		}

		masterListMessage, mlErr := b.store.ChannelMessage(
			masterListChannelID, masterListMessageID,
		)
		if mlErr == nil && len(masterListMessage.Embeds) > 0 {
			b.manager.logChannelMessage(
				ctx,
				EmbedFields(masterListMessage.Embeds[0]),
				&discordgo.MessageSend{
					Content: fmt.Sprintf(
						"Group '%s' was renamed to '%s'", oldName, newName,
					),
				},
			)
		}
	}

	return handler.Respond(ctx, ephemeralContent("Group details updated"))
}

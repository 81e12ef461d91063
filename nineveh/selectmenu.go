package nineveh

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// classNames is the fixed class roster offered by the class picker. The
// member-info line rejects anything outside `\w+`, so free-text class
// entry is never offered.
var classNames = []string{
	"Berserker", "Paladin", "Gunlancer", "Destroyer",
	"Striker", "Wardancer", "Scrapper", "Soulfist", "Glaivier",
	"Gunslinger", "Artillerist", "Deadeye", "Sharpshooter", "Machinist",
	"Bard", "Sorceress", "Arcanist", "Summoner",
	"Shadowhunter", "Deathblade", "Reaper",
}

func classSelectOptions() []discordgo.SelectMenuOption {
	options := make([]discordgo.SelectMenuOption, 0, len(classNames))
	for _, name := range classNames {
		options = append(options, discordgo.SelectMenuOption{
			Label: name,
			Value: name,
		})
	}
	return options
}

// classSelectMenu builds the class picker targeting a group listing's
// roster entry for whoever uses it.
func classSelectMenu(
	groupsChannelID string,
	groupsMessageID string,
) discordgo.SelectMenu {
	return discordgo.SelectMenu{
		MenuType: discordgo.StringSelectMenu,
		CustomID: joinCustomID(
			componentEditCharacterClass, groupsChannelID, groupsMessageID,
		),
		Placeholder: "Select class",
		Options:     classSelectOptions(),
	}
}

// newLeaderSelectMenu builds the user select for a leadership transfer.
// args carry the group coordinates through to the submit handler.
func newLeaderSelectMenu(args []string) discordgo.SelectMenu {
	return discordgo.SelectMenu{
		MenuType:    discordgo.UserSelectMenu,
		CustomID:    joinCustomID(componentSubmitNewLeader, args...),
		Placeholder: "New group leader",
	}
}

// markSelectedOptions sets option defaults on the message's select menu so
// a re-render of the message shows the current choice.
func markSelectedOptions(message *discordgo.Message, customID string, values []string) {
	if message == nil {
		return
	}
	selected := map[string]bool{}
	for _, v := range values {
		selected[v] = true
	}
	for _, row := range message.Components {
		actionsRow, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, component := range actionsRow.Components {
			menu, ok := component.(*discordgo.SelectMenu)
			if !ok || menu.CustomID != customID {
				continue
			}
			for idx := range menu.Options {
				menu.Options[idx].Default = selected[menu.Options[idx].Value]
			}
		}
	}
}

// handleEditCharacterClass writes the picked class into the user's
// member-info line on the group listing, then re-renders the picker with
// the choice marked as default.
func handleEditCharacterClass(
	ctx context.Context,
	b *Nineveh,
	handler InteractionHandler,
	args []string,
) error {
	if len(args) != 2 {
		return argCountError(componentEditCharacterClass, args, 2)
	}
	groupsChannelID, groupsMessageID := args[0], args[1]

	i := handler.GetInteraction()
	user := interactionUser(i)
	data := i.MessageComponentData()
	if len(data.Values) != 1 {
		return fmt.Errorf("class select returned %d values", len(data.Values))
	}

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

	username, info := UnformatMemberInfo(field.Name)
	if info == nil {
		username, info = user.Username, DefaultCharacterInfo()
	}
	info.Class = data.Values[0]
	name, ok := FormatMemberInfo(username, info)
	if !ok {
		return ErrBadMemberName
	}
	field.Name = name

	if _, err = b.store.ChannelMessageEditComplex(
		&discordgo.MessageEdit{
			Channel: groupsChannelID,
			ID:      groupsMessageID,
			Embeds:  &listingMessage.Embeds,
		},
	); err != nil {
		return fmt.Errorf("error updating roster entry: %w", err)
	}

	markSelectedOptions(i.Message, data.CustomID, data.Values)
	return handler.Respond(ctx, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    i.Message.Content,
			Flags:      discordgo.MessageFlagsEphemeral,
			Components: i.Message.Components,
		},
	})
}

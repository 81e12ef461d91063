package nineveh

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomIDRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name     string
		args     []string
		expected string
	}{
		{componentEditMemberDetails, nil, "EditMemberDetails"},
		{
			componentApplyToGroup,
			[]string{"1", "2"},
			"ApplyToGroup_1_2",
		},
		{
			componentDeleteGroup,
			[]string{"1", "2", "3", "6"},
			"DeleteGroup_1_2_3_6",
		},
	} {
		t.Run(
			tc.expected, func(t *testing.T) {
				customID := joinCustomID(tc.name, tc.args...)
				assert.Equal(t, tc.expected, customID)

				name, args := splitCustomID(customID)
				assert.Equal(t, tc.name, name)
				if len(tc.args) == 0 {
					assert.Empty(t, args)
				} else {
					assert.Equal(t, tc.args, args)
				}
			},
		)
	}
}

// Discord rejects component custom ids over 100 characters. Snowflakes are
// up to 20 digits, so every custom id layout must fit its worst case.
func TestCustomIDLengthBudget(t *testing.T) {
	snowflake := "99999999999999999999"

	longest := func(components []discordgo.MessageComponent) int {
		max := 0
		for _, row := range components {
			actionsRow, ok := row.(discordgo.ActionsRow)
			require.True(t, ok)
			for _, component := range actionsRow.Components {
				button, ok := component.(discordgo.Button)
				if !ok || button.Style == discordgo.LinkButton {
					continue
				}
				if len(button.CustomID) > max {
					max = len(button.CustomID)
				}
			}
		}
		return max
	}

	assert.LessOrEqual(
		t, longest(listingComponents(snowflake, snowflake)), 100,
	)
	assert.LessOrEqual(
		t, longest(listingComponentsFull(snowflake, snowflake, snowflake)), 100,
	)
	assert.LessOrEqual(
		t, longest(masterListButtonComponents(snowflake, snowflake)), 100,
	)

	// The widest ids in use: four snowflake args, and three plus a flag.
	assert.LessOrEqual(
		t,
		len(joinCustomID(
			componentConfirmLeaveGroup,
			snowflake, snowflake, snowflake, snowflake,
		)),
		100,
	)
	assert.LessOrEqual(
		t,
		len(joinCustomID(
			componentConfirmDeleteGroup, snowflake, snowflake, snowflake, "6",
		)),
		100,
	)
	assert.LessOrEqual(
		t,
		len(joinCustomID(
			componentDeleteGroup, snowflake, snowflake, snowflake, "6",
		)),
		100,
	)
	assert.LessOrEqual(
		t,
		len(joinCustomID(
			modalSubmitApplication,
			snowflake, snowflake, snowflake, snowflake,
		)),
		100,
	)
	assert.LessOrEqual(
		t,
		len(joinCustomID(
			componentAcceptApplication, snowflake, snowflake, snowflake,
		)),
		100,
	)
}

func TestListingComponentsFull(t *testing.T) {
	rows := listingComponentsFull("1", "2", "3")
	require.Len(t, rows, 1)
	row := rows[0].(discordgo.ActionsRow)
	require.Len(t, row.Components, 4)

	edit := row.Components[3].(discordgo.Button)
	assert.Equal(t, "Edit Group", edit.Label)
	assert.Equal(t, "EditGroup_1_2_3", edit.CustomID)
}

func TestResolveListingFromSummary(t *testing.T) {
	store := newFakeGroupStore()
	summaryMsg := seedChannelMessage(
		t, store, testMasterListChannelID,
		&discordgo.MessageEmbed{
			Title: "Valtan Raid",
			URL:   MessageURL(testGuildID, testGroupsChannelID, "800000000000000042"),
		},
	)

	summary, listingChannelID, listingMessageID, err := resolveListingFromSummary(
		store, testMasterListChannelID, summaryMsg.ID,
	)
	require.NoError(t, err)
	assert.Equal(t, summaryMsg.ID, summary.ID)
	assert.Equal(t, testGroupsChannelID, listingChannelID)
	assert.Equal(t, "800000000000000042", listingMessageID)

	_, _, _, err = resolveListingFromSummary(
		store, testMasterListChannelID, "800000000000000099",
	)
	assert.Error(t, err)

	unlinked := seedChannelMessage(
		t, store, testMasterListChannelID,
		&discordgo.MessageEmbed{Title: "no link"},
	)
	_, _, _, err = resolveListingFromSummary(
		store, testMasterListChannelID, unlinked.ID,
	)
	assert.ErrorContains(t, err, "no listing link")
}

func TestCanManageGroups(t *testing.T) {
	masterListFields := map[string]string{
		FieldGroupManagerRole: mentionRole(testManagerRoleID),
	}

	assert.False(t, canManageGroups(nil, masterListFields))

	member := &discordgo.Member{
		User:  &discordgo.User{ID: testMemberID},
		Roles: []string{"111", "222"},
	}
	assert.False(t, canManageGroups(member, masterListFields))

	member.Roles = append(member.Roles, testManagerRoleID)
	assert.True(t, canManageGroups(member, masterListFields))

	admin := &discordgo.Member{
		User:        &discordgo.User{ID: testMemberID},
		Permissions: discordgo.PermissionAdministrator,
	}
	assert.True(t, canManageGroups(admin, masterListFields))

	// A master list without a manager role admits administrators only.
	assert.False(t, canManageGroups(member, map[string]string{}))
	assert.True(t, canManageGroups(admin, map[string]string{}))
}

func TestCanEditGroup(t *testing.T) {
	groupFields := map[string]string{
		FieldGroupLeader: mentionUser(testLeaderID),
	}

	leader := &discordgo.Member{User: &discordgo.User{ID: testLeaderID}}
	assert.True(t, canEditGroup(leader, groupFields))

	other := &discordgo.Member{User: &discordgo.User{ID: testMemberID}}
	assert.False(t, canEditGroup(other, groupFields))

	admin := &discordgo.Member{
		User:        &discordgo.User{ID: testMemberID},
		Permissions: discordgo.PermissionAdministrator,
	}
	assert.True(t, canEditGroup(admin, groupFields))

	assert.False(t, canEditGroup(nil, groupFields))
}

func TestIsGroupLeader(t *testing.T) {
	fields := map[string]string{FieldGroupLeader: mentionUser("42")}
	assert.True(t, isGroupLeader(fields, "42"))
	assert.False(t, isGroupLeader(fields, "43"))
	assert.False(t, isGroupLeader(map[string]string{}, "42"))
}

func TestIsUserFacing(t *testing.T) {
	for _, err := range []error{
		ErrGroupNameExists,
		ErrNotGroupLeader,
		ErrNoGroupsChannel,
		ErrMasterListNotText,
		ErrMissingManagerRole,
		ErrNotGroupMember,
		ErrAlreadyGroupMember,
		ErrBadMemberName,
		ErrLeaderCannotLeave,
	} {
		assert.True(t, isUserFacing(err), err.Error())
		assert.True(
			t,
			isUserFacing(fmt.Errorf("wrapped: %w", err)),
			"wrapped sentinels stay user-facing",
		)
	}
	assert.False(t, isUserFacing(fmt.Errorf("database on fire")))
}

func TestInteractionUser(t *testing.T) {
	guildUser := &discordgo.User{ID: "1"}
	i := &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Member: &discordgo.Member{User: guildUser},
		},
	}
	assert.Equal(t, guildUser, interactionUser(i))

	dmUser := &discordgo.User{ID: "2"}
	i = &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{User: dmUser},
	}
	assert.Equal(t, dmUser, interactionUser(i))
}

func TestComponentAndModalTablesDisjoint(t *testing.T) {
	for name := range componentHandlers {
		assert.NotContains(t, modalHandlers, name)
	}
}

// stubInteractionHandler records responses in memory for dispatcher tests.
type stubInteractionHandler struct {
	interaction *discordgo.InteractionCreate
	responses   []*discordgo.InteractionResponse
	edits       []*discordgo.WebhookEdit
}

func (s *stubInteractionHandler) Respond(
	_ context.Context,
	response *discordgo.InteractionResponse,
) error {
	s.responses = append(s.responses, response)
	return nil
}

func (s *stubInteractionHandler) Edit(
	_ context.Context,
	edit *discordgo.WebhookEdit,
) error {
	s.edits = append(s.edits, edit)
	return nil
}

func (s *stubInteractionHandler) GetInteraction() *discordgo.InteractionCreate {
	return s.interaction
}

func (s *stubInteractionHandler) Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandleInteractionPing(t *testing.T) {
	b := &Nineveh{}
	handler := &stubInteractionHandler{
		interaction: &discordgo.InteractionCreate{
			Interaction: &discordgo.Interaction{
				Type: discordgo.InteractionPing,
			},
		},
	}

	b.handleInteraction(context.Background(), handler)

	require.Len(t, handler.responses, 1)
	assert.Equal(
		t, discordgo.InteractionResponsePong, handler.responses[0].Type,
	)
}

func TestHandleInteractionUnknownComponent(t *testing.T) {
	b := &Nineveh{}
	handler := &stubInteractionHandler{
		interaction: &discordgo.InteractionCreate{
			Interaction: &discordgo.Interaction{
				Type: discordgo.InteractionMessageComponent,
				Data: discordgo.MessageComponentInteractionData{
					CustomID: "NoSuchComponent_1_2",
				},
			},
		},
	}

	b.handleInteraction(context.Background(), handler)

	require.Len(t, handler.responses, 1)
	response := handler.responses[0]
	assert.Equal(
		t,
		discordgo.InteractionResponseChannelMessageWithSource,
		response.Type,
	)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, response.Data.Flags)
}

func TestRespondError(t *testing.T) {
	b := &Nineveh{}
	handler := &stubInteractionHandler{
		interaction: &discordgo.InteractionCreate{
			Interaction: &discordgo.Interaction{},
		},
	}

	b.respondError(context.Background(), handler, ErrNotGroupLeader)
	require.Len(t, handler.responses, 1)
	assert.Equal(
		t, ErrNotGroupLeader.Error(), handler.responses[0].Data.Content,
	)

	handler.responses = nil
	b.respondError(
		context.Background(), handler, fmt.Errorf("internal parse failure"),
	)
	require.Len(t, handler.responses, 1)
	assert.NotContains(
		t, handler.responses[0].Data.Content, "internal parse failure",
	)
}

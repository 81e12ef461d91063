package nineveh

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testExistingRoleID    = "910000000000000001"
	testExistingChannelID = "910000000000000002"
)

func addGroupCommandData(groupName string) discordgo.ApplicationCommandInteractionData {
	return discordgo.ApplicationCommandInteractionData{
		Name: commandAddGroup,
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{
				Name:  optionGroupName,
				Type:  discordgo.ApplicationCommandOptionString,
				Value: groupName,
			},
			{
				Name:  optionGroupLeader,
				Type:  discordgo.ApplicationCommandOptionUser,
				Value: testLeaderID,
			},
			{
				Name:  optionGroupChannel,
				Type:  discordgo.ApplicationCommandOptionChannel,
				Value: testExistingChannelID,
			},
			{
				Name:  optionGroupRole,
				Type:  discordgo.ApplicationCommandOptionRole,
				Value: testExistingRoleID,
			},
		},
	}
}

func addGroupCommandHandler() *stubInteractionHandler {
	return &stubInteractionHandler{
		interaction: &discordgo.InteractionCreate{
			Interaction: &discordgo.Interaction{
				Type:      discordgo.InteractionApplicationCommand,
				GuildID:   testGuildID,
				ChannelID: testMasterListChannelID,
				Member: &discordgo.Member{
					User:  &discordgo.User{ID: "910000000000000009"},
					Roles: []string{testManagerRoleID},
				},
			},
		},
	}
}

func seedExistingGroupResources(store *fakeGroupStore) {
	store.roles[testExistingRoleID] = &discordgo.Role{
		ID: testExistingRoleID, Name: "Raiders",
	}
	store.channels[testExistingChannelID] = &discordgo.Channel{
		ID:   testExistingChannelID,
		Type: discordgo.ChannelTypeGuildText,
	}
	store.members[testLeaderID] = &discordgo.Member{
		User: &discordgo.User{ID: testLeaderID, Username: "leader"},
	}
}

func TestAddGroupCommandMigratesExistingResources(t *testing.T) {
	store := newFakeGroupStore()
	seedMasterList(t, store)
	seedExistingGroupResources(store)
	manager := newTestManager(store)
	b := &Nineveh{store: store, manager: manager}

	handler := addGroupCommandHandler()
	err := handleAddGroupCommand(
		context.Background(), b, handler, addGroupCommandData("Valtan Raid"),
	)
	require.NoError(t, err)

	// The adopted role and channel were wired in, not reallocated.
	for _, mutation := range store.mutations {
		assert.NotContains(t, mutation, "create_role")
		assert.NotContains(t, mutation, "create_channel")
	}
	assert.True(t, store.memberRoles[testLeaderID][testExistingRoleID])

	listing, err := FindGroupByName(store, testGroupsChannelID, "Valtan Raid")
	require.NoError(t, err)
	require.NotNil(t, listing)
	fields := EmbedFields(listing.Embeds[0])
	assert.Equal(t, mentionRole(testExistingRoleID), fields[FieldGroupRole])
	assert.Equal(
		t, mentionChannel(testExistingChannelID), fields[FieldGroupChannel],
	)
	assert.NotNil(t, FindMemberField(listing.Embeds[0], testLeaderID))

	require.Len(t, handler.responses, 1)
	assert.Equal(
		t,
		discordgo.InteractionResponseDeferredChannelMessageWithSource,
		handler.responses[0].Type,
	)
	require.Len(t, handler.edits, 1)
	assert.Contains(t, *handler.edits[0].Content, "Migrated")
}

func TestAddGroupCommandRollbackKeepsAdoptedResources(t *testing.T) {
	store := newFakeGroupStore()
	seedMasterList(t, store)
	seedExistingGroupResources(store)
	store.failOn["ChannelMessageSendComplex"] = fmt.Errorf("boom")
	manager := newTestManager(store)
	b := &Nineveh{store: store, manager: manager}

	handler := addGroupCommandHandler()
	err := handleAddGroupCommand(
		context.Background(), b, handler, addGroupCommandData("Valtan Raid"),
	)
	require.Error(t, err)

	assert.Contains(t, store.roles, testExistingRoleID)
	assert.Contains(t, store.channels, testExistingChannelID)
}

func TestAddGroupCommandWithoutMasterList(t *testing.T) {
	store := newFakeGroupStore()
	seedExistingGroupResources(store)
	manager := newTestManager(store)
	b := &Nineveh{store: store, manager: manager}

	handler := addGroupCommandHandler()
	err := handleAddGroupCommand(
		context.Background(), b, handler, addGroupCommandData("Valtan Raid"),
	)
	require.NoError(t, err)

	require.Len(t, handler.responses, 1)
	assert.Contains(
		t, handler.responses[0].Data.Content, "no group list",
	)
}

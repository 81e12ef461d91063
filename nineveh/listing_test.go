package nineveh

import (
	"fmt"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedChannelMessage(
	t *testing.T,
	store *fakeGroupStore,
	channelID string,
	embed *discordgo.MessageEmbed,
) *discordgo.Message {
	t.Helper()
	msg, err := store.ChannelMessageSendComplex(
		channelID,
		&discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}},
	)
	require.NoError(t, err)
	return msg
}

func TestFindGroupByName(t *testing.T) {
	store := newFakeGroupStore()
	seedChannelMessage(
		t, store, testGroupsChannelID, &discordgo.MessageEmbed{Title: "Valtan Raid"},
	)
	want := seedChannelMessage(
		t, store, testGroupsChannelID, &discordgo.MessageEmbed{Title: "Vykas Raid"},
	)
	// Plain chatter without embeds is skipped, not matched.
	_, err := store.ChannelMessageSendComplex(
		testGroupsChannelID, &discordgo.MessageSend{Content: "Vykas Raid"},
	)
	require.NoError(t, err)

	found, err := FindGroupByName(store, testGroupsChannelID, "Vykas Raid")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, want.ID, found.ID)

	// Exact match only.
	found, err = FindGroupByName(store, testGroupsChannelID, "vykas raid")
	require.NoError(t, err)
	assert.Nil(t, found)

	found, err = FindGroupByName(store, testGroupsChannelID, "Brelshaza")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestFindMasterList(t *testing.T) {
	store := newFakeGroupStore()

	found, err := FindMasterList(store, testMasterListChannelID)
	require.NoError(t, err)
	assert.Nil(t, found, "empty channel has no master list")

	seedChannelMessage(
		t, store, testMasterListChannelID,
		&discordgo.MessageEmbed{Title: "unrelated announcement"},
	)
	want := seedChannelMessage(
		t, store, testMasterListChannelID,
		&discordgo.MessageEmbed{
			Title: "Group List",
			Fields: []*discordgo.MessageEmbedField{
				{Name: FieldGroupManagerRole, Value: mentionRole(testManagerRoleID)},
				{Name: FieldGroupListChannel, Value: mentionChannel(testGroupsChannelID)},
			},
		},
	)

	found, err = FindMasterList(store, testMasterListChannelID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, want.ID, found.ID)
}

func groupListingEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "Valtan Raid",
		Fields: []*discordgo.MessageEmbedField{
			{Name: FieldGroupLeader, Value: mentionUser("1")},
			{Name: FieldGroupRole, Value: mentionRole("2")},
			{Name: FieldGroupChannel, Value: mentionChannel("3")},
			{Name: "leader - Main <1445> [Bard]", Value: "<@1> igl"},
			{Name: "newbie - Alt <1415> [Sorceress]", Value: "<@4>"},
			{Name: "broken entry", Value: "no mention"},
		},
	}
}

func TestFindMemberField(t *testing.T) {
	embed := groupListingEmbed()

	field := FindMemberField(embed, "4")
	require.NotNil(t, field)
	assert.Equal(t, "newbie - Alt <1415> [Sorceress]", field.Name)

	// The leader record field carries user "1"'s mention, but only the
	// roster entry may match.
	field = FindMemberField(embed, "1")
	require.NotNil(t, field)
	assert.Equal(t, "leader - Main <1445> [Bard]", field.Name)

	assert.Nil(t, FindMemberField(embed, "999"))
	assert.Nil(t, FindMemberField(nil, "1"))
}

func TestRosterFields(t *testing.T) {
	members := rosterFields(groupListingEmbed())
	require.Len(t, members, 2)
	assert.Equal(t, "leader - Main <1445> [Bard]", members[0].Name)
	assert.Equal(t, "newbie - Alt <1415> [Sorceress]", members[1].Name)

	assert.Nil(t, rosterFields(nil))
}

func TestIsRecordField(t *testing.T) {
	for _, name := range []string{
		FieldGroupManagerRole,
		FieldGroupListChannel,
		FieldLogChannel,
		FieldGroupLeader,
		FieldGroupRole,
		FieldGroupChannel,
	} {
		assert.True(t, isRecordField(name), name)
	}
	assert.False(t, isRecordField("leader - Main <1445> [Bard]"))
	assert.False(t, isRecordField("group leader"))
}

func TestFindGroupByNameScansSinglePage(t *testing.T) {
	store := newFakeGroupStore()
	// Fill page one, then push the target past it.
	target := seedChannelMessage(
		t, store, testGroupsChannelID, &discordgo.MessageEmbed{Title: "Ancient"},
	)
	for n := 0; n < channelMessagePageSize; n++ {
		seedChannelMessage(
			t, store, testGroupsChannelID,
			&discordgo.MessageEmbed{Title: fmt.Sprintf("Filler %d", n)},
		)
	}

	found, err := FindGroupByName(store, testGroupsChannelID, "Ancient")
	require.NoError(t, err)
	assert.Nil(t, found, "message %s beyond page one is invisible", target.ID)
}

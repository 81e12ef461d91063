package nineveh

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// modalData builds a ModalSubmitInteractionData the way discordgo
// unmarshals one: pointer rows holding pointer text inputs.
func modalData(inputs map[string]string) discordgo.ModalSubmitInteractionData {
	var rows []discordgo.MessageComponent
	for customID, value := range inputs {
		rows = append(rows, &discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				&discordgo.TextInput{CustomID: customID, Value: value},
			},
		})
	}
	return discordgo.ModalSubmitInteractionData{Components: rows}
}

func TestModalInputValue(t *testing.T) {
	data := modalData(map[string]string{
		inputGroupName:        "  Valtan Raid  ",
		inputGroupDescription: "",
	})

	assert.Equal(t, "Valtan Raid", modalInputValue(data, inputGroupName))
	assert.Equal(t, "", modalInputValue(data, inputGroupDescription))
	assert.Equal(t, "", modalInputValue(data, inputCharacterName))
}

func TestCharacterInfoFromModal(t *testing.T) {
	info := characterInfoFromModal(modalData(map[string]string{
		inputCharacterName: "Sharpshot",
		inputItemLevel:     "1445",
		inputNotes:         "weekends only",
	}), nil)
	assert.Equal(t, "Sharpshot", info.Name)
	assert.Equal(t, "1445", info.ItemLevel)
	assert.Equal(t, DefaultCharacterClass, info.Class)
	assert.Equal(t, "weekends only", info.Notes)
}

// Class has no modal input; a resubmitted modal must not clobber it.
func TestCharacterInfoFromModalKeepsBaseClass(t *testing.T) {
	base := &CharacterInfo{
		Name:      "Sharpshot",
		ItemLevel: "1445",
		Class:     "Gunslinger",
		Notes:     "weekends only",
	}
	info := characterInfoFromModal(modalData(map[string]string{
		inputCharacterName: "Longshot",
		inputItemLevel:     "1460",
	}), base)
	assert.Equal(t, "Longshot", info.Name)
	assert.Equal(t, "1460", info.ItemLevel)
	assert.Equal(t, "Gunslinger", info.Class)
	assert.Equal(t, "", info.Notes)

	assert.Equal(t, "Sharpshot", base.Name, "base is not mutated")
}

func TestCharacterInfoFromModalDefaults(t *testing.T) {
	info := characterInfoFromModal(modalData(nil), nil)
	assert.Equal(t, DefaultCharacterName, info.Name)
	assert.Equal(t, DefaultItemLevel, info.ItemLevel)
	assert.Equal(t, DefaultCharacterClass, info.Class)
	assert.Equal(t, "", info.Notes)
}

func modalTextInputIDs(t *testing.T, response *discordgo.InteractionResponse) []string {
	t.Helper()
	require.Equal(t, discordgo.InteractionResponseModal, response.Type)
	var ids []string
	for _, row := range response.Data.Components {
		actionsRow, ok := row.(discordgo.ActionsRow)
		require.True(t, ok)
		for _, component := range actionsRow.Components {
			input, ok := component.(discordgo.TextInput)
			require.True(t, ok)
			ids = append(ids, input.CustomID)
		}
	}
	return ids
}

func TestNewGroupModal(t *testing.T) {
	response := newGroupModal("1", "2")
	assert.Equal(t, "SubmitNewGroup_1_2", response.Data.CustomID)
	ids := modalTextInputIDs(t, response)
	assert.Contains(t, ids, inputGroupName)
	assert.Contains(t, ids, inputGroupDescription)
}

func TestGroupApplicationModal(t *testing.T) {
	response := groupApplicationModal("1", "2", "3", "4")
	assert.Equal(t, "SubmitApply_1_2_3_4", response.Data.CustomID)
	ids := modalTextInputIDs(t, response)
	assert.Contains(t, ids, inputCharacterName)
	assert.Contains(t, ids, inputItemLevel)
	assert.Contains(t, ids, inputNotes)
	assert.NotContains(t, ids, "CharacterClass", "class is picker-only")
}

// modalInputBounds maps text input ids to their [min, max] length limits.
func modalInputBounds(
	t *testing.T,
	response *discordgo.InteractionResponse,
) map[string][2]int {
	t.Helper()
	bounds := map[string][2]int{}
	for _, row := range response.Data.Components {
		for _, component := range row.(discordgo.ActionsRow).Components {
			input := component.(discordgo.TextInput)
			bounds[input.CustomID] = [2]int{input.MinLength, input.MaxLength}
		}
	}
	return bounds
}

func TestModalInputLengthLimits(t *testing.T) {
	group := modalInputBounds(t, newGroupModal("1", "2"))
	assert.Equal(t, [2]int{3, 64}, group[inputGroupName])
	assert.Equal(t, [2]int{0, 512}, group[inputGroupDescription])

	edit := modalInputBounds(
		t, groupDetailsModal([]string{"1", "2", "3"}, "Valtan Raid", ""),
	)
	assert.Equal(t, [2]int{3, 64}, edit[inputGroupName])
	assert.Equal(t, [2]int{0, 512}, edit[inputGroupDescription])

	character := modalInputBounds(t, groupApplicationModal("1", "2", "3", "4"))
	assert.Equal(t, [2]int{2, 16}, character[inputCharacterName])
	assert.Equal(t, [2]int{3, 4}, character[inputItemLevel])
	assert.Equal(t, [2]int{0, 256}, character[inputNotes])
}

func TestMemberDetailsModalPrefills(t *testing.T) {
	response := memberDetailsModal(
		"3", "4",
		&CharacterInfo{Name: "Sharpshot", ItemLevel: "1445", Class: "Gunslinger"},
	)
	assert.Equal(t, "SubmitMemberDetails_3_4", response.Data.CustomID)

	values := map[string]string{}
	for _, row := range response.Data.Components {
		for _, component := range row.(discordgo.ActionsRow).Components {
			input := component.(discordgo.TextInput)
			values[input.CustomID] = input.Value
		}
	}
	assert.Equal(t, "Sharpshot", values[inputCharacterName])
	assert.Equal(t, "1445", values[inputItemLevel])
}

func TestGroupDetailsModalPrefills(t *testing.T) {
	response := groupDetailsModal(
		[]string{"1", "2", "3"}, "Valtan Raid", "Weekly clears",
	)
	assert.Equal(t, "SubmitGroupDetails_1_2_3", response.Data.CustomID)

	values := map[string]string{}
	for _, row := range response.Data.Components {
		for _, component := range row.(discordgo.ActionsRow).Components {
			input := component.(discordgo.TextInput)
			values[input.CustomID] = input.Value
		}
	}
	assert.Equal(t, "Valtan Raid", values[inputGroupName])
	assert.Equal(t, "Weekly clears", values[inputGroupDescription])
}

func TestSubmitMemberDetailsPreservesClass(t *testing.T) {
	store := newFakeGroupStore()
	masterListMessageID := seedMasterList(t, store)
	manager := newTestManager(store)
	group, _ := createTestGroup(t, store, manager, masterListMessageID)
	b := &Nineveh{store: store, manager: manager}

	handler := &stubInteractionHandler{
		interaction: &discordgo.InteractionCreate{
			Interaction: &discordgo.Interaction{
				Type: discordgo.InteractionModalSubmit,
				Data: modalData(map[string]string{
					inputCharacterName: "Longshot",
					inputItemLevel:     "1460",
					inputNotes:         "new notes",
				}),
				Member: &discordgo.Member{
					User: &discordgo.User{ID: testLeaderID, Username: "leader"},
				},
			},
		},
	}

	err := handleSubmitMemberDetails(
		context.Background(), b, handler,
		[]string{testGroupsChannelID, group.GroupsChannelMessageID},
	)
	require.NoError(t, err)

	_, listing := store.findMessage(
		testGroupsChannelID, group.GroupsChannelMessageID,
	)
	field := FindMemberField(listing.Embeds[0], testLeaderID)
	require.NotNil(t, field)
	_, info := UnformatMemberInfo(field.Name)
	require.NotNil(t, info)
	assert.Equal(t, "Longshot", info.Name)
	assert.Equal(t, "1460", info.ItemLevel)
	assert.Equal(t, "Gunslinger", info.Class, "class survives a modal edit")
}

func TestSubmitGroupDetailsRequiresLeader(t *testing.T) {
	store := newFakeGroupStore()
	masterListMessageID := seedMasterList(t, store)
	manager := newTestManager(store)
	_, summaryMessageID := createTestGroup(t, store, manager, masterListMessageID)
	b := &Nineveh{store: store, manager: manager}

	handler := &stubInteractionHandler{
		interaction: &discordgo.InteractionCreate{
			Interaction: &discordgo.Interaction{
				Type: discordgo.InteractionModalSubmit,
				Data: modalData(map[string]string{
					inputGroupName: "Hostile Rename",
				}),
				Member: &discordgo.Member{
					User: &discordgo.User{ID: testMemberID, Username: "newbie"},
				},
			},
		},
	}

	err := handleSubmitGroupDetails(
		context.Background(), b, handler,
		[]string{testMasterListChannelID, masterListMessageID, summaryMessageID},
	)
	require.ErrorIs(t, err, ErrNotGroupLeader)
	assert.Empty(t, store.mutations)
}

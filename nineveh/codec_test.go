package nineveh

import (
	"regexp"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatMemberInfoRoundTrip(t *testing.T) {
	info := &CharacterInfo{
		Name:      "Sharpshot",
		ItemLevel: "1445",
		Class:     "Gunslinger",
	}
	line, ok := FormatMemberInfo("leader", info)
	require.True(t, ok)
	assert.Equal(t, "leader - Sharpshot <1445> [Gunslinger]", line)

	username, parsed := UnformatMemberInfo(line)
	assert.Equal(t, "leader", username)
	require.NotNil(t, parsed)
	assert.Equal(t, info.Name, parsed.Name)
	assert.Equal(t, info.ItemLevel, parsed.ItemLevel)
	assert.Equal(t, info.Class, parsed.Class)
}

func TestFormatMemberInfoRejectsAmbiguousNames(t *testing.T) {
	for _, tc := range []struct {
		name     string
		username string
		info     *CharacterInfo
	}{
		{
			"space in username",
			"two words",
			&CharacterInfo{Name: "Char", ItemLevel: "1400", Class: "Bard"},
		},
		{
			"dash in character name",
			"user",
			&CharacterInfo{Name: "a-b", ItemLevel: "1400", Class: "Bard"},
		},
		{
			"non-numeric item level",
			"user",
			&CharacterInfo{Name: "Char", ItemLevel: "14k", Class: "Bard"},
		},
		{
			"bracket in class",
			"user",
			&CharacterInfo{Name: "Char", ItemLevel: "1400", Class: "[Bard]"},
		},
	} {
		t.Run(
			tc.name, func(t *testing.T) {
				_, ok := FormatMemberInfo(tc.username, tc.info)
				assert.False(t, ok)
			},
		)
	}
}

func TestFormatMemberInfoNilInfo(t *testing.T) {
	line, ok := FormatMemberInfo("solo", nil)
	require.True(t, ok)
	assert.Equal(t, "solo", line)
}

func TestUnformatMemberInfoMalformed(t *testing.T) {
	username, info := UnformatMemberInfo("just a display name")
	assert.Equal(t, "just a display name", username)
	assert.Nil(t, info)
}

func TestMemberDescription(t *testing.T) {
	withNotes := FormatMemberDescription("123456789", "can flex to support")
	assert.Equal(t, "<@123456789> can flex to support", withNotes)
	assert.Equal(t, "can flex to support", UnformatMemberDescription(withNotes))

	bare := FormatMemberDescription("123456789", "")
	assert.Equal(t, "<@123456789>", bare)
	assert.Equal(t, "", UnformatMemberDescription(bare))

	// Nickname-style mentions parse too.
	assert.Equal(t, "notes", UnformatMemberDescription("<@!42> notes"))
}

func TestUserIDFromMemberDescription(t *testing.T) {
	id, err := UserIDFromMemberDescription("<@123456789> some notes")
	require.NoError(t, err)
	assert.Equal(t, "123456789", id)

	id, err = UserIDFromMemberDescription("<@!123456789>")
	require.NoError(t, err)
	assert.Equal(t, "123456789", id)

	_, err = UserIDFromMemberDescription("no mention here")
	assert.Error(t, err)

	_, err = UserIDFromMemberDescription("trailing <@123456789>")
	assert.Error(t, err, "mention must lead the description")
}

func TestUnformat(t *testing.T) {
	for _, tc := range []struct {
		name       string
		formatted  string
		pattern    *regexp.Regexp
		expectedID string
		expectedOK bool
	}{
		{"user", "<@42>", PatternUser, "42", true},
		{"user nickname form", "<@!42>", PatternUser, "42", true},
		{"role", "<@&42>", PatternRole, "42", true},
		{"channel", "<#42>", PatternChannel, "42", true},
		{"role token against user pattern", "<@&42>", PatternUser, "", false},
		{"empty", "", PatternChannel, "", false},
		{"embedded in text", "see <#42> there", PatternChannel, "", false},
	} {
		t.Run(
			tc.name, func(t *testing.T) {
				id, ok := Unformat(tc.formatted, tc.pattern)
				assert.Equal(t, tc.expectedOK, ok)
				assert.Equal(t, tc.expectedID, id)
			},
		)
	}
}

func TestEmbedFields(t *testing.T) {
	assert.Empty(t, EmbedFields(nil))

	embed := &discordgo.MessageEmbed{
		Fields: []*discordgo.MessageEmbedField{
			{Name: FieldGroupLeader, Value: "<@1>"},
			nil,
			{Name: FieldGroupRole, Value: "<@&2>"},
			{Name: FieldGroupLeader, Value: "<@3>"},
		},
	}
	fields := EmbedFields(embed)
	assert.Len(t, fields, 2)
	assert.Equal(t, "<@&2>", fields[FieldGroupRole])
	// Last duplicate wins.
	assert.Equal(t, "<@3>", fields[FieldGroupLeader])
}

func TestMessageURLRoundTrip(t *testing.T) {
	url := MessageURL("1", "2", "3")
	assert.Equal(t, "https://discord.com/channels/1/2/3", url)

	channelID, messageID, ok := ParseMessageURL(url)
	require.True(t, ok)
	assert.Equal(t, "2", channelID)
	assert.Equal(t, "3", messageID)
}

func TestParseMessageURLRejectsForeignLinks(t *testing.T) {
	for _, url := range []string{
		"",
		"https://discord.com/channels/1/2",
		"https://example.com/channels/1/2/3",
		"https://discord.com/channels/1/2/3/4",
		"https://discord.com/channels/a/b/c",
	} {
		_, _, ok := ParseMessageURL(url)
		assert.False(t, ok, "url %q must not parse", url)
	}
}

func TestMemberRosterField(t *testing.T) {
	field, ok := memberRosterField(
		"newbie",
		"99",
		&CharacterInfo{
			Name:      "Deadeye",
			ItemLevel: "1415",
			Class:     "Deadeye",
			Notes:     "weekends only",
		},
	)
	require.True(t, ok)
	assert.Equal(t, "newbie - Deadeye <1415> [Deadeye]", field.Name)
	assert.Equal(t, "<@99> weekends only", field.Value)

	_, ok = memberRosterField("has spaces", "99", DefaultCharacterInfo())
	assert.False(t, ok)
}

func TestDefaultRosterField(t *testing.T) {
	field := defaultRosterField("newbie", "99")
	assert.Equal(t, "newbie - Character <0000> [None]", field.Name)
	assert.Equal(t, "<@99>", field.Value)

	// Unencodable usernames fall back to the bare layout.
	field = defaultRosterField("two words", "99")
	assert.Equal(t, "two words", field.Name)
	assert.Equal(t, "<@99>", field.Value)
}

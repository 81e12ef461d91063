package nineveh

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Embed field names used to encode group records into messages. These are
// the column names of the embed-as-database layout, so they must stay
// stable across releases - renaming one orphans every record written
// with the old name.
const (
	FieldGroupManagerRole = "Group Manager Role"
	FieldGroupListChannel = "Group List Channel"
	FieldLogChannel       = "Log Channel"
	FieldGroupLeader      = "Group Leader"
	FieldGroupRole        = "Group Role"
	FieldGroupChannel     = "Group Channel"
)

const (
	// DefaultCharacterName is the placeholder character name shown before a
	// user fills in their details. Submission handlers reject it.
	DefaultCharacterName = "Character"

	// DefaultItemLevel is the placeholder item level. Submission handlers
	// reject it.
	DefaultItemLevel = "0000"

	// DefaultCharacterClass is the placeholder class before one is picked
	// from the class select menu.
	DefaultCharacterClass = "None"
)

// Mention token patterns. Discord encodes references to users, roles and
// channels inline as `<@id>`, `<@&id>` and `<#id>`; record fields store ids
// in this form so they render as links, and must be unformatted back to raw
// ids before use.
var (
	PatternUser    = regexp.MustCompile(`^<@!?(\d+)>$`)
	PatternRole    = regexp.MustCompile(`^<@&(\d+)>$`)
	PatternChannel = regexp.MustCompile(`^<#(\d+)>$`)

	memberInfoPattern         = regexp.MustCompile(`^(\w+) - (\w+) <(\d+)> \[(\w+)\]$`)
	leadingUserMentionPattern = regexp.MustCompile(`^<@!?(\d+)>`)
	messageURLPattern         = regexp.MustCompile(
		`^https://discord\.com/channels/(\d+)/(\d+)/(\d+)$`,
	)
)

// CharacterInfo is one member's character details, encoded into the name of
// their roster field on a group listing.
type CharacterInfo struct {
	Name      string
	ItemLevel string
	Class     string

	// Notes is free text stored after the user mention in the roster
	// field's value. It never appears in the formatted member-info line.
	Notes string
}

// DefaultCharacterInfo returns placeholder character details for a user who
// hasn't entered any yet.
func DefaultCharacterInfo() *CharacterInfo {
	return &CharacterInfo{
		Name:      DefaultCharacterName,
		ItemLevel: DefaultItemLevel,
		Class:     DefaultCharacterClass,
	}
}

// FormatMemberInfo composes the member-info line stored as a roster field
// name: `username - character <itemlevel> [class]`. Returns ok=false when
// the composed line wouldn't survive a round trip through
// UnformatMemberInfo - e.g. a username or character name containing spaces,
// `-`, `<` or `[` - since an ambiguous line would corrupt the record on the
// next parse. A nil info formats as the bare username.
func FormatMemberInfo(username string, info *CharacterInfo) (string, bool) {
	if info == nil {
		return username, true
	}
	line := fmt.Sprintf(
		"%s - %s <%s> [%s]",
		username,
		info.Name,
		info.ItemLevel,
		info.Class,
	)
	if !memberInfoPattern.MatchString(line) {
		return "", false
	}
	return line, true
}

// UnformatMemberInfo is the inverse of FormatMemberInfo. Malformed input is
// tolerated: the whole line is returned as the username with nil character
// info, never an error.
func UnformatMemberInfo(formatted string) (string, *CharacterInfo) {
	m := memberInfoPattern.FindStringSubmatch(formatted)
	if m == nil {
		return formatted, nil
	}
	return m[1], &CharacterInfo{
		Name:      m[2],
		ItemLevel: m[3],
		Class:     m[4],
	}
}

// FormatMemberDescription composes a roster field value: the member's user
// mention, optionally followed by free-text notes.
func FormatMemberDescription(userID string, notes string) string {
	if notes == "" {
		return mentionUser(userID)
	}
	return fmt.Sprintf("%s %s", mentionUser(userID), notes)
}

// UnformatMemberDescription strips the leading user mention from a roster
// field value, returning the free-text notes. Input without a leading
// mention is returned unchanged.
func UnformatMemberDescription(description string) string {
	return strings.TrimSpace(
		leadingUserMentionPattern.ReplaceAllString(description, ""),
	)
}

// UserIDFromMemberDescription extracts the member's user id from a roster
// field value. Unlike the other unformat functions this fails loudly:
// it's the terminal parse before identity-bearing mutations (kicks, leader
// transfers, role revokes), and a record whose identity can't be recovered
// must not be silently matched or skipped into the wrong user.
func UserIDFromMemberDescription(description string) (string, error) {
	m := leadingUserMentionPattern.FindStringSubmatch(description)
	if m == nil {
		return "", fmt.Errorf(
			"no user mention at the start of member description %q",
			description,
		)
	}
	return m[1], nil
}

// EmbedFields flattens an embed's field list into a name -> value map.
// Duplicate field names collapse to the last occurrence. That's a known
// property of the encoding, not a bug: writers keep record field names
// unique per embed by construction (roster field names embed the username).
func EmbedFields(embed *discordgo.MessageEmbed) map[string]string {
	if embed == nil {
		return map[string]string{}
	}
	fields := make(map[string]string, len(embed.Fields))
	for _, f := range embed.Fields {
		if f == nil {
			continue
		}
		fields[f.Name] = f.Value
	}
	return fields
}

// Unformat extracts the id captured by pattern from a mention token.
// Returns ok=false when the token doesn't match - many record fields are
// optional, so an absent or malformed token is not an error here.
func Unformat(formatted string, pattern *regexp.Regexp) (string, bool) {
	m := pattern.FindStringSubmatch(formatted)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func mentionUser(userID string) string {
	return fmt.Sprintf("<@%s>", userID)
}

func mentionRole(roleID string) string {
	return fmt.Sprintf("<@&%s>", roleID)
}

func mentionChannel(channelID string) string {
	return fmt.Sprintf("<#%s>", channelID)
}

// MessageURL returns the canonical link to a message, used to cross-link a
// group's listing and its summary entry.
func MessageURL(guildID string, channelID string, messageID string) string {
	return fmt.Sprintf(
		"https://discord.com/channels/%s/%s/%s",
		guildID,
		channelID,
		messageID,
	)
}

// ParseMessageURL recovers the channel and message ids from a message
// link written by MessageURL. The cross-link URLs double as record state:
// custom ids are limited to 100 characters, so component handlers resolve
// the second record copy through the link instead of carrying both
// coordinate pairs in the id.
func ParseMessageURL(url string) (channelID string, messageID string, ok bool) {
	m := messageURLPattern.FindStringSubmatch(url)
	if m == nil {
		return "", "", false
	}
	return m[2], m[3], true
}

// memberRosterField builds the roster field for one member. Returns
// ok=false when the member-info line fails validation.
func memberRosterField(
	username string,
	userID string,
	info *CharacterInfo,
) (*discordgo.MessageEmbedField, bool) {
	name, ok := FormatMemberInfo(username, info)
	if !ok {
		return nil, false
	}
	notes := ""
	if info != nil {
		notes = info.Notes
	}
	return &discordgo.MessageEmbedField{
		Name:  name,
		Value: FormatMemberDescription(userID, notes),
	}, true
}

// defaultRosterField builds a placeholder roster field for a user with no
// character details entered yet.
func defaultRosterField(username string, userID string) *discordgo.MessageEmbedField {
	field, ok := memberRosterField(username, userID, DefaultCharacterInfo())
	if !ok {
		// Usernames with characters the format can't carry fall back
		// to the bare-username layout.
		return &discordgo.MessageEmbedField{
			Name:  username,
			Value: FormatMemberDescription(userID, ""),
		}
	}
	return field
}

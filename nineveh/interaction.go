package nineveh

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
)

// customIDSeparator joins a component discriminator with its arguments
// inside the platform's 100-character custom id budget. Snowflake ids and
// discriminators never contain it, so a plain split recovers the parts.
const customIDSeparator = "_"

// joinCustomID encodes a component discriminator plus positional arguments
// into a custom id.
func joinCustomID(name string, args ...string) string {
	if len(args) == 0 {
		return name
	}
	return name + customIDSeparator + strings.Join(args, customIDSeparator)
}

// splitCustomID recovers the discriminator and arguments from a custom id.
func splitCustomID(customID string) (string, []string) {
	parts := strings.Split(customID, customIDSeparator)
	return parts[0], parts[1:]
}

// InteractionHandler abstracts responding to an interaction, so command and
// component handlers run identically whether the interaction arrived over
// the gateway or the webhook server.
type InteractionHandler interface {
	// Respond sends the initial interaction response.
	Respond(ctx context.Context, response *discordgo.InteractionResponse) error

	// Edit updates the original interaction response.
	Edit(ctx context.Context, edit *discordgo.WebhookEdit) error

	// GetInteraction returns the interaction being handled.
	GetInteraction() *discordgo.InteractionCreate

	Logger() *slog.Logger
}

// GatewayHandler responds to interactions received over the gateway
// websocket, using the session's interaction endpoints.
type GatewayHandler struct {
	session     DiscordSessionHandler
	interaction *discordgo.InteractionCreate
	logger      *slog.Logger
}

func (g GatewayHandler) Respond(
	ctx context.Context,
	response *discordgo.InteractionResponse,
) error {
	err := g.session.InteractionRespond(g.interaction.Interaction, response)
	if err != nil {
		g.logger.ErrorContext(
			ctx, "error responding to interaction", tint.Err(err),
		)
	}
	return err
}

func (g GatewayHandler) Edit(
	ctx context.Context,
	edit *discordgo.WebhookEdit,
) error {
	_, err := g.session.InteractionResponseEdit(g.interaction.Interaction, edit)
	if err != nil {
		g.logger.ErrorContext(
			ctx, "error editing interaction response", tint.Err(err),
		)
	}
	return err
}

func (g GatewayHandler) GetInteraction() *discordgo.InteractionCreate {
	return g.interaction
}

func (g GatewayHandler) Logger() *slog.Logger {
	return g.logger
}

// ephemeralContent is shorthand for the usual ephemeral text reply.
func ephemeralContent(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}
}

// interactionUser returns the invoking user for both guild (Member) and DM
// (User) interactions.
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}

// componentHandlerFunc handles one message component interaction. args are
// the custom id arguments after the discriminator.
type componentHandlerFunc func(
	ctx context.Context,
	b *Nineveh,
	handler InteractionHandler,
	args []string,
) error

// modalHandlerFunc handles one modal submission.
type modalHandlerFunc func(
	ctx context.Context,
	b *Nineveh,
	handler InteractionHandler,
	args []string,
) error

// handleInteraction dispatches an incoming interaction. Component and modal
// custom ids are routed through fixed tables keyed on the discriminator, so
// the full routing surface is visible in one place and can't change at
// runtime.
func (b *Nineveh) handleInteraction(
	ctx context.Context,
	handler InteractionHandler,
) {
	i := handler.GetInteraction()
	logger := handler.Logger()

	switch i.Type {
	case discordgo.InteractionPing:
		_ = handler.Respond(ctx, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponsePong,
		})
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		logger = logger.With("command", data.Name)
		ctx = WithLogger(ctx, logger)
		if err := b.handleCommand(ctx, handler, data); err != nil {
			logger.ErrorContext(ctx, "command failed", tint.Err(err))
			b.respondError(ctx, handler, err)
		}
	case discordgo.InteractionMessageComponent:
		data := i.MessageComponentData()
		name, args := splitCustomID(data.CustomID)
		logger = logger.With("component", name)
		ctx = WithLogger(ctx, logger)
		handlerFunc, ok := componentHandlers[name]
		if !ok {
			logger.WarnContext(ctx, "unknown component", "custom_id", data.CustomID)
			_ = handler.Respond(
				ctx, ephemeralContent("That button isn't wired to anything."),
			)
			return
		}
		if err := handlerFunc(ctx, b, handler, args); err != nil {
			logger.ErrorContext(ctx, "component handler failed", tint.Err(err))
			b.respondError(ctx, handler, err)
		}
	case discordgo.InteractionModalSubmit:
		data := i.ModalSubmitData()
		name, args := splitCustomID(data.CustomID)
		logger = logger.With("modal", name)
		ctx = WithLogger(ctx, logger)
		handlerFunc, ok := modalHandlers[name]
		if !ok {
			logger.WarnContext(ctx, "unknown modal", "custom_id", data.CustomID)
			return
		}
		if err := handlerFunc(ctx, b, handler, args); err != nil {
			logger.ErrorContext(ctx, "modal handler failed", tint.Err(err))
			b.respondError(ctx, handler, err)
		}
	default:
		logger.WarnContext(ctx, "unhandled interaction type", "type", i.Type)
	}
}

// respondError reports a handler failure to the user. Validation and
// authorization errors carry user-facing text; everything else gets a
// generic line so internals don't leak into the channel.
func (b *Nineveh) respondError(
	ctx context.Context,
	handler InteractionHandler,
	err error,
) {
	content := "Something went wrong, try again in a moment."
	switch {
	case isUserFacing(err):
		content = err.Error()
	}
	if respondErr := handler.Respond(
		ctx, ephemeralContent(content),
	); respondErr != nil {
		// The initial response may already have been sent. Fall back to
		// editing it.
		_ = handler.Edit(ctx, &discordgo.WebhookEdit{Content: &content})
	}
}

// isUserFacing reports whether err's text was written for the invoking
// user rather than the logs.
func isUserFacing(err error) bool {
	for _, target := range []error{
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
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

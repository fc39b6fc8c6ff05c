package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"rentbot/internal/model"
	"rentbot/internal/storage"
)

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	u := &model.User{
		ID:        msg.From.ID,
		IsActive:  true,
		FirstName: msg.From.FirstName,
		LastName:  msg.From.LastName,
	}
	if err := b.store.UpsertUser(ctx, u); err != nil {
		b.log.Error("upsert user", "user_id", u.ID, "error", err)
		b.reply(msg.Chat.ID, "Something went wrong, please try again.")
		return
	}

	b.reply(msg.Chat.ID, `Welcome to Rent Bot!

Set a search filter and get notified about new rental listings.

Quick start:
1. /apartment алматы 1,2 100000-250000 — watch for apartments
2. /room астана f female — watch for room-sharing offers

One filter at a time; setting a new one replaces the old.
Use /help for the full command reference.`)
}

func (b *Bot) handleStop(ctx context.Context, chatID, userID int64) {
	if err := b.store.SetUserActive(ctx, userID, false); err != nil {
		b.log.Error("deactivate user", "user_id", userID, "error", err)
		b.reply(chatID, "Something went wrong, please try again.")
		return
	}
	b.reply(chatID, "Notifications paused. Send /start to resume.")
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Filters:
/apartment <city> <rooms> <min>-<max> [min_square] — watch apartments
  e.g. /apartment алматы 1,2 100000-250000 40
/room <city> <m|f> <male|female|any> [max_price] — watch room sharing
  e.g. /room астана f female 80000  (city "-" = any)
/filter — show your current filter
/clear — delete your filter

Account:
/start — register and resume notifications
/stop — pause notifications

A recipient has one filter; setting a new one replaces it.`)
}

func (b *Bot) handleApartment(ctx context.Context, chatID, userID int64, args string) {
	f, err := ParseApartmentArgs(args)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.setFilter(ctx, chatID, model.Recipient{Kind: model.KindUser, ID: userID}, model.Filter{
		Type:      model.FullApartment,
		Apartment: &f,
	})
}

func (b *Bot) handleRoom(ctx context.Context, chatID, userID int64, args string) {
	f, err := ParseRoomArgs(args)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.setFilter(ctx, chatID, model.Recipient{Kind: model.KindUser, ID: userID}, model.Filter{
		Type: model.RoomSharing,
		Room: &f,
	})
}

func (b *Bot) handleShowFilter(ctx context.Context, chatID, userID int64) {
	f, err := b.store.GetFilter(ctx, model.Recipient{Kind: model.KindUser, ID: userID})
	if errors.Is(err, storage.ErrNotFound) {
		b.reply(chatID, "No filter set. Use /apartment or /room to create one.")
		return
	}
	if err != nil {
		b.log.Error("get filter", "user_id", userID, "error", err)
		b.reply(chatID, "Something went wrong, please try again.")
		return
	}
	b.reply(chatID, FormatFilter(f))
}

func (b *Bot) handleClear(ctx context.Context, chatID, userID int64) {
	if err := b.store.DeleteFilter(ctx, model.Recipient{Kind: model.KindUser, ID: userID}); err != nil {
		b.log.Error("delete filter", "user_id", userID, "error", err)
		b.reply(chatID, "Something went wrong, please try again.")
		return
	}
	b.reply(chatID, "Filter deleted.")
}

func (b *Bot) handleCommunityApartment(ctx context.Context, chatID, userID int64, args string) {
	channelID, rest, ok := b.communityArgs(chatID, userID, args)
	if !ok {
		return
	}
	f, err := ParseApartmentArgs(rest)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.setFilter(ctx, chatID, model.Recipient{Kind: model.KindCommunity, ID: channelID}, model.Filter{
		Type:      model.FullApartment,
		Apartment: &f,
	})
}

func (b *Bot) handleCommunityRoom(ctx context.Context, chatID, userID int64, args string) {
	channelID, rest, ok := b.communityArgs(chatID, userID, args)
	if !ok {
		return
	}
	f, err := ParseRoomArgs(rest)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.setFilter(ctx, chatID, model.Recipient{Kind: model.KindCommunity, ID: channelID}, model.Filter{
		Type: model.RoomSharing,
		Room: &f,
	})
}

func (b *Bot) handleCommunityClear(ctx context.Context, chatID, userID int64, args string) {
	channelID, _, ok := b.communityArgs(chatID, userID, args)
	if !ok {
		return
	}
	r := model.Recipient{Kind: model.KindCommunity, ID: channelID}
	if err := b.store.DeleteFilter(ctx, r); err != nil {
		b.log.Error("delete community filter", "channel_id", channelID, "error", err)
		b.reply(chatID, "Something went wrong, please try again.")
		return
	}
	b.reply(chatID, fmt.Sprintf("Community filter for %d deleted.", channelID))
}

// communityArgs gates the /community commands on the admin list and splits
// off the channel ID argument.
func (b *Bot) communityArgs(chatID, userID int64, args string) (int64, string, bool) {
	if !b.cfg.IsAdmin(userID) {
		b.reply(chatID, "Admin only.")
		return 0, "", false
	}
	channelID, rest, err := ParseChannelIDArg(args)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return 0, "", false
	}
	return channelID, rest, true
}

func (b *Bot) setFilter(ctx context.Context, chatID int64, owner model.Recipient, f model.Filter) {
	f.Owner = owner
	if err := b.store.SetFilter(ctx, &f); err != nil {
		b.log.Error("set filter", "recipient", owner.ID, "error", err)
		b.reply(chatID, "Something went wrong, please try again.")
		return
	}
	b.reply(chatID, "Filter saved.\n\n"+FormatFilter(&f))
}

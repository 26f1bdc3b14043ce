package bot

import (
	"context"
	"fmt"
	"strings"

	"harborbook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

type PaginationParams struct {
	ChatID       int64
	MessageID    int // 0 if new message
	Page         int
	Title        string
	ItemPrefix   string
	PagePrefix   string
	BackCallback string
}

// renderPaginatedList draws one page of a selection list with nav buttons.
func (b *Bot) renderPaginatedList(params PaginationParams, totalCount, itemsPerPage int, renderer func(startIdx, endIdx int) (string, [][]tgbotapi.InlineKeyboardButton)) {
	if itemsPerPage <= 0 {
		itemsPerPage = b.config.Bot.PaginationSize
	}
	if itemsPerPage <= 0 {
		itemsPerPage = models.DefaultPaginationSize
	}

	startIdx := params.Page * itemsPerPage
	endIdx := startIdx + itemsPerPage
	if endIdx > totalCount {
		endIdx = totalCount
	}

	totalPages := (totalCount + itemsPerPage - 1) / itemsPerPage
	if params.Page >= totalPages && totalPages > 0 {
		params.Page = totalPages - 1
		startIdx = params.Page * itemsPerPage
		endIdx = totalCount
	}

	content, keyboard := renderer(startIdx, endIdx)

	var message strings.Builder
	message.WriteString(fmt.Sprintf("%s\n\n", params.Title))
	if totalPages > 1 {
		message.WriteString(fmt.Sprintf("Trang %d / %d\n\n", params.Page+1, totalPages))
	}
	message.WriteString(content)

	var navButtons []tgbotapi.InlineKeyboardButton
	if params.Page > 0 {
		navButtons = append(navButtons, tgbotapi.NewInlineKeyboardButtonData("⬅️ Trước", fmt.Sprintf("%s%d", params.PagePrefix, params.Page-1)))
	}
	if endIdx < totalCount {
		navButtons = append(navButtons, tgbotapi.NewInlineKeyboardButtonData("Sau ➡️", fmt.Sprintf("%s%d", params.PagePrefix, params.Page+1)))
	}
	if len(navButtons) > 0 {
		keyboard = append(keyboard, navButtons)
	}

	if params.BackCallback != "" {
		keyboard = append(keyboard, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("🏠 Về menu", params.BackCallback),
		})
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(keyboard...)

	if params.MessageID != 0 {
		if _, err := b.tgService.EditMessage(params.ChatID, params.MessageID, message.String(), &markup); err != nil {
			b.logger.Error().Err(err).Int64("chat_id", params.ChatID).Msg("edit paginated list error")
		}
		return
	}
	b.sendMarkdownKeyboard(params.ChatID, message.String(), markup)
}

func (b *Bot) sendBoatyardsPage(ctx context.Context, chatID int64, messageID int, token string, page int) {
	yards, err := b.gateway.ListBoatyards(ctx, token)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("list boatyards error")
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	if len(yards) == 0 {
		b.sendMessage(chatID, "Hiện chưa có xưởng nào hoạt động. Vui lòng quay lại sau.")
		return
	}

	params := PaginationParams{
		ChatID:       chatID,
		MessageID:    messageID,
		Page:         page,
		Title:        "⚓ *Chọn xưởng dịch vụ*",
		ItemPrefix:   "yard:",
		PagePrefix:   "yards_page:",
		BackCallback: "home",
	}

	b.renderPaginatedList(params, len(yards), b.config.Bot.PaginationSize, func(startIdx, endIdx int) (string, [][]tgbotapi.InlineKeyboardButton) {
		var content strings.Builder
		var keyboard [][]tgbotapi.InlineKeyboardButton

		for i, yard := range yards[startIdx:endIdx] {
			content.WriteString(fmt.Sprintf("%d. *%s*\n", startIdx+i+1, yard.Name))
			if yard.Address != "" {
				content.WriteString(fmt.Sprintf("   📍 %s\n", yard.Address))
			}
			if yard.Rating > 0 {
				content.WriteString(fmt.Sprintf("   ⭐ %.1f\n", yard.Rating))
			}
			content.WriteString("\n")

			btn := tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%d. %s", startIdx+i+1, yard.Name),
				params.ItemPrefix+yard.ID,
			)
			keyboard = append(keyboard, []tgbotapi.InlineKeyboardButton{btn})
		}

		return content.String(), keyboard
	})
}

// sendServicesScreen lists all services of the boatyard with toggle marks.
// Service catalogs are small, so no pagination here.
func (b *Bot) sendServicesScreen(ctx context.Context, chatID int64, messageID int, token, boatyardID string, selected []models.MarineService) {
	services, err := b.gateway.ListServices(ctx, token, boatyardID)
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	if len(services) == 0 {
		b.sendMessage(chatID, "Xưởng này hiện không có dịch vụ nào. Vui lòng chọn xưởng khác.")
		return
	}

	selectedIDs := make(map[string]bool, len(selected))
	var total int64
	for _, s := range selected {
		selectedIDs[s.ID] = true
		total += s.Price
	}

	var sb strings.Builder
	sb.WriteString("🛠 *Chọn dịch vụ*\n\nBấm để chọn hoặc bỏ chọn:\n")
	if total > 0 {
		sb.WriteString(fmt.Sprintf("\nTạm tính: %s₫\n", formatAmount(total)))
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, svc := range services {
		mark := "▫️"
		if selectedIDs[svc.ID] {
			mark = "✅"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%s %s — %s₫", mark, svc.Name, formatAmount(svc.Price)),
				"svc:"+svc.ID)))
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✔️ Xong", "svc_done")),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏠 Về menu", "home")),
	)
	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)

	if messageID != 0 {
		if _, err := b.tgService.EditMessage(chatID, messageID, sb.String(), &keyboard); err != nil {
			b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("edit services screen error")
		}
		return
	}
	b.sendMarkdownKeyboard(chatID, sb.String(), keyboard)
}

func (b *Bot) sendSlotsPage(ctx context.Context, chatID int64, messageID int, token, boatyardID string, page int) {
	slots, err := b.gateway.ListDockSlots(ctx, token, boatyardID)
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	if len(slots) == 0 {
		b.sendMessage(chatID, "Xưởng này hiện không còn bến trống. Vui lòng thử lại sau hoặc chọn xưởng khác.")
		return
	}

	params := PaginationParams{
		ChatID:       chatID,
		MessageID:    messageID,
		Page:         page,
		Title:        "⚓ *Chọn bến neo đậu*",
		ItemPrefix:   "slot:",
		PagePrefix:   "slots_page:",
		BackCallback: "home",
	}

	b.renderPaginatedList(params, len(slots), b.config.Bot.PaginationSize, func(startIdx, endIdx int) (string, [][]tgbotapi.InlineKeyboardButton) {
		var content strings.Builder
		var keyboard [][]tgbotapi.InlineKeyboardButton

		for i, slot := range slots[startIdx:endIdx] {
			content.WriteString(fmt.Sprintf("%d. *%s*\n", startIdx+i+1, slot.Name))
			if !slot.AssignedFrom.IsZero() && !slot.AssignedUntil.IsZero() {
				content.WriteString(fmt.Sprintf("   🕒 Trống: %s – %s\n",
					slot.AssignedFrom.Format("02.01 15:04"),
					slot.AssignedUntil.Format("02.01 15:04")))
			}
			content.WriteString("\n")

			btn := tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%d. %s", startIdx+i+1, slot.Name),
				params.ItemPrefix+slot.ID,
			)
			keyboard = append(keyboard, []tgbotapi.InlineKeyboardButton{btn})
		}

		return content.String(), keyboard
	})
}

func (b *Bot) sendShipsPage(ctx context.Context, chatID int64, messageID int, token string, page int) {
	ships, err := b.gateway.ListShips(ctx, token)
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	params := PaginationParams{
		ChatID:       chatID,
		MessageID:    messageID,
		Page:         page,
		Title:        "🛳 *Chọn tàu*",
		ItemPrefix:   "ship:",
		PagePrefix:   "ships_page:",
		BackCallback: "home",
	}

	b.renderPaginatedList(params, len(ships), b.config.Bot.PaginationSize, func(startIdx, endIdx int) (string, [][]tgbotapi.InlineKeyboardButton) {
		var content strings.Builder
		var keyboard [][]tgbotapi.InlineKeyboardButton

		for i, ship := range ships[startIdx:endIdx] {
			content.WriteString(fmt.Sprintf("%d. *%s* (%s)\n   %s\n\n",
				startIdx+i+1, ship.Name, ship.Registration, ship.ShipType))

			btn := tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%d. %s", startIdx+i+1, ship.Name),
				params.ItemPrefix+ship.ID,
			)
			keyboard = append(keyboard, []tgbotapi.InlineKeyboardButton{btn})
		}

		keyboard = append(keyboard, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("➕ Đăng ký tàu mới", "ship_new"),
		})
		return content.String(), keyboard
	})
}

package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"harborbook/internal/domain"
	"harborbook/internal/events"
	"harborbook/internal/models"
	"harborbook/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handlePay(ctx context.Context, chatID, userID int64) {
	session, ok := b.requireSession(ctx, chatID, userID)
	if !ok {
		return
	}
	state, err := b.flows.GetFlow(ctx, userID)
	if err != nil || state == nil || state.BookingID == "" {
		b.sendMessage(chatID, "Không có đặt chỗ nào để thanh toán. Dùng /book để bắt đầu.")
		return
	}

	paySession, err := b.payments.CreateSession(ctx, session.Token, domain.CreatePaymentParams{
		UserID:     userID,
		ChatID:     chatID,
		TargetID:   state.BookingID,
		TargetType: models.TargetBoatyard,
		Address:    state.Draft.BoatyardName,
		Amount:     state.Draft.ServicesTotal(),
	})
	if err != nil {
		if errors.Is(err, service.ErrPaymentInFlight) {
			b.sendMessage(chatID, "⏳ Phiên thanh toán đang được khởi tạo. Vui lòng chờ.")
			return
		}
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	b.sendPaymentScreen(chatID, 0, paySession)
}

func (b *Bot) sendPaymentScreen(chatID int64, messageID int, session models.PaymentSession) {
	text := fmt.Sprintf("💳 *Thanh toán đặt chỗ %s*\n\nSố tiền: %s₫\nNội dung: `%s`\n\nChọn cách thanh toán:",
		session.TargetID, formatAmount(session.Amount), session.Description)

	var rows [][]tgbotapi.InlineKeyboardButton
	if session.CheckoutURL != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🌐 Mở trang thanh toán", session.CheckoutURL)))
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏦 Chuyển khoản thủ công", "pay_manual")),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✖️ Đóng", "pay_close")),
	)
	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)

	if messageID != 0 {
		if _, err := b.tgService.EditMessage(chatID, messageID, text, &keyboard); err != nil {
			b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("edit payment screen error")
		}
		return
	}
	b.sendMarkdownKeyboard(chatID, text, keyboard)
}

// handleManualTransfer shows the static VietQR transfer details of the live
// session. Fields are backticked so a tap copies them.
func (b *Bot) handleManualTransfer(ctx context.Context, chatID int64, messageID int, userID int64) {
	session, ok := b.payments.ActiveSession(userID)
	if !ok {
		b.sendMessage(chatID, "Không có phiên thanh toán nào đang mở. Bấm «Thanh toán» để bắt đầu.")
		return
	}

	var sb strings.Builder
	sb.WriteString("🏦 *Chuyển khoản thủ công*\n\n")
	sb.WriteString(fmt.Sprintf("Ngân hàng (BIN): `%s`\n", session.Bin))
	sb.WriteString(fmt.Sprintf("Số tài khoản: `%s`\n", session.AccountNumber))
	sb.WriteString(fmt.Sprintf("Số tiền: `%d`\n", session.Amount))
	sb.WriteString(fmt.Sprintf("Nội dung: `%s`\n", session.Description))
	if session.QRCode != "" {
		sb.WriteString(fmt.Sprintf("\nMã VietQR:\n`%s`\n", session.QRCode))
	}
	sb.WriteString("\nSau khi chuyển khoản, bấm «Tôi đã chuyển khoản».")

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Tôi đã chuyển khoản", "paid_manual")),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Quay lại", "pay"),
			tgbotapi.NewInlineKeyboardButtonData("✖️ Đóng", "pay_close")),
	)

	if messageID != 0 {
		if _, err := b.tgService.EditMessage(chatID, messageID, sb.String(), &keyboard); err != nil {
			b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("edit manual transfer screen error")
		}
		return
	}
	b.sendMarkdownKeyboard(chatID, sb.String(), keyboard)
}

// handleManualPaid records the self-report; the outcome message itself comes
// from the payment event so it is sent exactly once.
func (b *Bot) handleManualPaid(ctx context.Context, chatID, userID int64) {
	if _, err := b.payments.DeclareManualPaid(ctx, userID); err != nil {
		if errors.Is(err, service.ErrNoActiveSession) {
			b.sendMessage(chatID, "Không có phiên thanh toán nào đang mở.")
			return
		}
		b.sendMessage(chatID, b.getErrorMessage(err))
	}
}

func (b *Bot) handlePayClose(ctx context.Context, chatID, userID int64) {
	if err := b.payments.Abandon(ctx, userID); err != nil {
		if errors.Is(err, service.ErrNoActiveSession) {
			b.sendMainMenu(ctx, chatID, userID)
			return
		}
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💳 Thanh toán", "pay"),
			tgbotapi.NewInlineKeyboardButtonData("🏠 Về menu", "home")),
	)
	b.sendMarkdownKeyboard(chatID,
		"Đã đóng màn hình thanh toán. Đặt chỗ vẫn đang chờ; bạn có thể thanh toán lại bất cứ lúc nào.",
		keyboard)
}

// NotifyPaymentOutcome renders the terminal payment screen for the user. It
// is subscribed to the payment events on the bus, so every settled attempt
// produces exactly one message regardless of where the verdict came from.
func (b *Bot) NotifyPaymentOutcome(event *events.Event) error {
	var payload events.PaymentEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		b.logger.Error().Err(err).Str("event_type", event.Type).Msg("decode payment event")
		return err
	}
	if payload.ChatID == 0 {
		return nil
	}

	switch models.OutcomeResult(payload.Result) {
	case models.OutcomeSuccess:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = b.flows.ClearFlow(ctx, payload.UserID)

		text := fmt.Sprintf("✅ *Thanh toán thành công!*\n\nĐặt chỗ %s đã được thanh toán %s₫.\nCảm ơn bạn đã sử dụng HarborBook.",
			payload.BookingID, formatAmount(payload.Amount))
		b.sendMarkdownKeyboard(payload.ChatID, text, tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🏠 Về menu chính", "home"))))

	case models.OutcomeFailure:
		text := fmt.Sprintf("❌ *Thanh toán đã bị hủy*\n\nĐặt chỗ %s chưa được thanh toán. Bạn có thể thử lại.",
			payload.BookingID)
		b.sendMarkdownKeyboard(payload.ChatID, text, tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🔄 Thử lại", "retry"),
				tgbotapi.NewInlineKeyboardButtonData("🏠 Về menu", "home"))))

	case models.OutcomePendingVerify:
		text := fmt.Sprintf("🕓 *Đang chờ xác minh chuyển khoản*\n\nChúng tôi sẽ xác nhận đặt chỗ %s ngay khi nhận được tiền. Bạn sẽ nhận thông báo tại đây.",
			payload.BookingID)
		b.sendMarkdownKeyboard(payload.ChatID, text, tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🏠 Về menu", "home"))))
	}

	return nil
}

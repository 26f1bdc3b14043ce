package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"harborbook/internal/models"
	"harborbook/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

func (b *Bot) handleCallbackQuery(ctx context.Context, update tgbotapi.Update) {
	callback := update.CallbackQuery
	data := callback.Data
	userID := callback.From.ID
	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID

	// Answer right away so the client drops the spinner.
	if err := b.tgService.AnswerCallback(callback.ID, ""); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("answer callback error")
	}

	if b.users.IsBlacklisted(userID) {
		return
	}

	switch {
	case data == "home":
		_ = b.flows.ClearFlow(ctx, userID)
		b.sendMainMenu(ctx, chatID, userID)

	case data == "book":
		b.startBooking(ctx, chatID, userID)

	case data == "login":
		b.setLoginState(userID, &loginState{step: "email"})
		b.sendMessage(chatID, "🔑 Nhập email tài khoản HarborBook của bạn:")

	case data == "contacts":
		b.showContacts(chatID)

	case data == "mybooking":
		b.showCurrentBooking(ctx, chatID, userID)

	case strings.HasPrefix(data, "yards_page:"):
		page, _ := strconv.Atoi(strings.TrimPrefix(data, "yards_page:"))
		if session, ok := b.requireSession(ctx, chatID, userID); ok {
			b.sendBoatyardsPage(ctx, chatID, messageID, session.Token, page)
		}

	case strings.HasPrefix(data, "yard:"):
		b.handleBoatyardSelected(ctx, chatID, userID, strings.TrimPrefix(data, "yard:"))

	case strings.HasPrefix(data, "svc:"):
		b.handleServiceToggled(ctx, callback, strings.TrimPrefix(data, "svc:"))

	case data == "svc_done":
		b.handleServicesDone(ctx, chatID, userID)

	case strings.HasPrefix(data, "slots_page:"):
		page, _ := strconv.Atoi(strings.TrimPrefix(data, "slots_page:"))
		b.resendSlotsPage(ctx, chatID, messageID, userID, page)

	case strings.HasPrefix(data, "slot:"):
		b.handleSlotSelected(ctx, chatID, userID, strings.TrimPrefix(data, "slot:"))

	case strings.HasPrefix(data, "ships_page:"):
		page, _ := strconv.Atoi(strings.TrimPrefix(data, "ships_page:"))
		if session, ok := b.requireSession(ctx, chatID, userID); ok {
			b.sendShipsPage(ctx, chatID, messageID, session.Token, page)
		}

	case strings.HasPrefix(data, "ship:"):
		b.handleShipSelected(ctx, chatID, userID, strings.TrimPrefix(data, "ship:"))

	case data == "ship_new":
		if err := b.flows.SetStep(ctx, userID, models.StepRegisterShip); err != nil {
			b.sendMessage(chatID, b.getErrorMessage(err))
			return
		}
		b.sendMessage(chatID, "🛳 Nhập thông tin tàu theo mẫu:\nTên tàu; Số đăng ký; Loại tàu\nVí dụ: Hải Âu; VN-1234; Tàu cá")

	case data == "window":
		b.handleChangeWindow(ctx, chatID, userID)

	case data == "submit":
		b.handleSubmit(ctx, chatID, userID)

	case data == "pay" || data == "retry":
		b.handlePay(ctx, chatID, userID)

	case data == "pay_manual":
		b.handleManualTransfer(ctx, chatID, messageID, userID)

	case data == "paid_manual":
		b.handleManualPaid(ctx, chatID, userID)

	case data == "pay_close":
		b.handlePayClose(ctx, chatID, userID)
	}
}

func (b *Bot) handleBoatyardSelected(ctx context.Context, chatID, userID int64, boatyardID string) {
	session, ok := b.requireSession(ctx, chatID, userID)
	if !ok {
		return
	}

	yards, err := b.gateway.ListBoatyards(ctx, session.Token)
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	var selected *models.Boatyard
	for i := range yards {
		if yards[i].ID == boatyardID {
			selected = &yards[i]
			break
		}
	}
	if selected == nil {
		b.sendMessage(chatID, "Không tìm thấy xưởng đã chọn. Vui lòng chọn lại.")
		return
	}

	_, err = b.flows.Contribute(ctx, userID, models.StepSelectService, models.BookingDraft{
		BoatyardID:   selected.ID,
		BoatyardName: selected.Name,
	})
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	b.sendServicesScreen(ctx, chatID, 0, session.Token, selected.ID, nil)
}

func (b *Bot) handleServiceToggled(ctx context.Context, callback *tgbotapi.CallbackQuery, serviceID string) {
	userID := callback.From.ID
	chatID := callback.Message.Chat.ID

	session, ok := b.requireSession(ctx, chatID, userID)
	if !ok {
		return
	}

	state, err := b.flows.GetFlow(ctx, userID)
	if err != nil || state == nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	services, err := b.gateway.ListServices(ctx, session.Token, state.Draft.BoatyardID)
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	selected := toggleService(state.Draft.Services, services, serviceID)
	if len(selected) == 0 {
		// The draft keeps at least one service once any is picked.
		_ = b.tgService.AnswerCallback(callback.ID, "Cần chọn ít nhất một dịch vụ")
		return
	}

	state, err = b.flows.Contribute(ctx, userID, models.StepSelectService, models.BookingDraft{Services: selected})
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	b.sendServicesScreen(ctx, chatID, callback.Message.MessageID, session.Token, state.Draft.BoatyardID, state.Draft.Services)
}

// toggleService flips one service in the selection, preserving order.
func toggleService(selected []models.MarineService, available []models.MarineService, serviceID string) []models.MarineService {
	for i, s := range selected {
		if s.ID == serviceID {
			out := make([]models.MarineService, 0, len(selected)-1)
			out = append(out, selected[:i]...)
			return append(out, selected[i+1:]...)
		}
	}
	for _, s := range available {
		if s.ID == serviceID {
			return append(append([]models.MarineService(nil), selected...), s)
		}
	}
	return selected
}

func (b *Bot) handleServicesDone(ctx context.Context, chatID, userID int64) {
	state, err := b.flows.GetFlow(ctx, userID)
	if err != nil || state == nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	if len(state.Draft.Services) == 0 {
		b.sendMessage(chatID, "Chọn ít nhất một dịch vụ trước khi tiếp tục.")
		return
	}

	if err := b.flows.SetStep(ctx, userID, models.StepSelectSlot); err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	b.resendSlotsPage(ctx, chatID, 0, userID, 0)
}

func (b *Bot) resendSlotsPage(ctx context.Context, chatID int64, messageID int, userID int64, page int) {
	session, ok := b.requireSession(ctx, chatID, userID)
	if !ok {
		return
	}
	state, err := b.flows.GetFlow(ctx, userID)
	if err != nil || state == nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	b.sendSlotsPage(ctx, chatID, messageID, session.Token, state.Draft.BoatyardID, page)
}

func (b *Bot) handleSlotSelected(ctx context.Context, chatID, userID int64, slotID string) {
	session, ok := b.requireSession(ctx, chatID, userID)
	if !ok {
		return
	}
	state, err := b.flows.GetFlow(ctx, userID)
	if err != nil || state == nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	slots, err := b.gateway.ListDockSlots(ctx, session.Token, state.Draft.BoatyardID)
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	var selected *models.DockSlot
	for i := range slots {
		if slots[i].ID == slotID {
			selected = &slots[i]
			break
		}
	}
	if selected == nil {
		b.sendMessage(chatID, "Bến này không còn trống. Vui lòng chọn bến khác.")
		b.sendSlotsPage(ctx, chatID, 0, session.Token, state.Draft.BoatyardID, 0)
		return
	}

	if _, err := b.flows.Contribute(ctx, userID, models.StepSelectShip, models.BookingDraft{Slot: selected}); err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	b.sendShipsPage(ctx, chatID, 0, session.Token, 0)
}

func (b *Bot) handleShipSelected(ctx context.Context, chatID, userID int64, shipID string) {
	session, ok := b.requireSession(ctx, chatID, userID)
	if !ok {
		return
	}

	ships, err := b.gateway.ListShips(ctx, session.Token)
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	var selected *models.Ship
	for i := range ships {
		if ships[i].ID == shipID {
			selected = &ships[i]
			break
		}
	}
	if selected == nil {
		b.sendMessage(chatID, "Không tìm thấy tàu đã chọn. Vui lòng chọn lại.")
		return
	}

	state, err := b.flows.Contribute(ctx, userID, models.StepTimeWindow, models.BookingDraft{Ship: selected})
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	// A draft that already carries its time window got here from the
	// confirm screen; go straight back to confirmation.
	if !state.Draft.StartTime.IsZero() && !state.Draft.EndTime.IsZero() {
		_ = b.flows.SetStep(ctx, userID, models.StepConfirm)
		b.sendConfirmScreen(ctx, chatID, userID, state.Draft)
		return
	}

	b.promptTimeWindow(chatID, state.Draft.Slot)
}

func (b *Bot) handleChangeWindow(ctx context.Context, chatID, userID int64) {
	state, err := b.flows.GetFlow(ctx, userID)
	if err != nil || state == nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	if err := b.flows.SetStep(ctx, userID, models.StepTimeWindow); err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	b.promptTimeWindow(chatID, state.Draft.Slot)
}

func (b *Bot) sendConfirmScreen(ctx context.Context, chatID, userID int64, draft models.BookingDraft) {
	if err := b.flows.ValidateDraft(draft); err != nil {
		var vErr *service.ValidationError
		if errors.As(err, &vErr) && vErr.Field == "ship" {
			// Missing ship is recoverable: detour to ship selection, the
			// pick re-enters confirmation with the rest of the draft kept.
			session, ok := b.requireSession(ctx, chatID, userID)
			if !ok {
				return
			}
			if err := b.flows.SetStep(ctx, userID, models.StepSelectShip); err != nil {
				b.sendMessage(chatID, b.getErrorMessage(err))
				return
			}
			b.sendMessage(chatID, "🛳 Bạn chưa chọn tàu. Chọn tàu để tiếp tục xác nhận.")
			b.sendShipsPage(ctx, chatID, 0, session.Token, 0)
			return
		}
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Xác nhận đặt chỗ", "submit")),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🕒 Đổi khung giờ", "window"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Hủy", "home")),
	)
	b.sendMarkdownKeyboard(chatID, renderConfirmText(draft), keyboard)
}

func renderConfirmText(draft models.BookingDraft) string {
	var sb strings.Builder
	sb.WriteString("🧾 *Xác nhận đặt chỗ*\n\n")
	sb.WriteString(fmt.Sprintf("⚓ Xưởng: %s\n", draft.BoatyardName))
	sb.WriteString("🛠 Dịch vụ:\n")
	for _, s := range draft.Services {
		sb.WriteString(fmt.Sprintf("  • %s — %s₫\n", s.Name, formatAmount(s.Price)))
	}
	if draft.Ship != nil {
		sb.WriteString(fmt.Sprintf("🛳 Tàu: %s (%s)\n", draft.Ship.Name, draft.Ship.Registration))
	}
	if draft.Slot != nil {
		sb.WriteString(fmt.Sprintf("⚓ Bến: %s\n", draft.Slot.Name))
	}
	sb.WriteString(fmt.Sprintf("🕒 Thời gian: %s – %s\n",
		draft.StartTime.Format(timeWindowLayout),
		draft.EndTime.Format("15:04")))
	sb.WriteString(fmt.Sprintf("\n💰 Tạm tính: %s₫", formatAmount(draft.ServicesTotal())))
	return sb.String()
}

func (b *Bot) handleSubmit(ctx context.Context, chatID, userID int64) {
	session, ok := b.requireSession(ctx, chatID, userID)
	if !ok {
		return
	}
	state, err := b.flows.GetFlow(ctx, userID)
	if err != nil || state == nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	booking, err := b.orchestrator.Submit(ctx, session.Token, userID, state.Draft)
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	if err := b.flows.SetBooking(ctx, userID, booking.ID); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("booking_id", booking.ID).Msg("set booking error")
	}
	_ = b.flows.SetStep(ctx, userID, models.StepPayment)

	b.sendPaymentOptions(chatID, booking)
}

func (b *Bot) sendPaymentOptions(chatID int64, booking *models.Booking) {
	text := fmt.Sprintf("✅ Đặt chỗ *%s* đã được tạo.\nTrạng thái: %s\n💰 Tổng: %s₫",
		booking.ID, bookingStatusLabel(booking.Status), formatAmount(booking.TotalAmount))

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💳 Thanh toán", "pay")),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏠 Để sau", "home")),
	)
	b.sendMarkdownKeyboard(chatID, text, keyboard)
}

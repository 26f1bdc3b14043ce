package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"harborbook/internal/gateway"
	"harborbook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const timeWindowLayout = "02.01.2006 15:04"

func (b *Bot) handleMessage(ctx context.Context, update tgbotapi.Update) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	text := strings.TrimSpace(update.Message.Text)
	l := zerolog.Ctx(ctx)

	l.Debug().
		Int64("user_id", userID).
		Str("username", update.Message.From.UserName).
		Str("text", text).
		Msg("Handling message")

	switch {
	case text == "/start":
		b.setLoginState(userID, nil)
		_ = b.flows.ClearFlow(ctx, userID)
		b.sendMainMenu(ctx, chatID, userID)
		return

	case text == "/help":
		b.sendHelp(chatID)
		return

	case text == "/book":
		b.startBooking(ctx, chatID, userID)
		return

	case text == "/cancel":
		b.setLoginState(userID, nil)
		_ = b.flows.ClearFlow(ctx, userID)
		b.sendMessage(chatID, "Đã hủy thao tác hiện tại.")
		b.sendMainMenu(ctx, chatID, userID)
		return

	case text == "/login":
		b.setLoginState(userID, &loginState{step: "email"})
		b.sendMessage(chatID, "🔑 Nhập email tài khoản HarborBook của bạn:")
		return

	case text == "/logout":
		if err := b.sessions.ClearSession(ctx, userID); err != nil {
			l.Error().Err(err).Int64("user_id", userID).Msg("clear session error")
		}
		_ = b.flows.ClearFlow(ctx, userID)
		b.sendMessage(chatID, "🚪 Đã đăng xuất. Dùng /login để đăng nhập lại.")
		return

	case text == "/mybooking":
		b.showCurrentBooking(ctx, chatID, userID)
		return

	case text == "/export" && b.users.IsManager(userID):
		b.handleExport(ctx, chatID)
		return
	}

	if st, ok := b.loginStateFor(userID); ok {
		b.handleLoginInput(ctx, chatID, userID, st, text)
		return
	}

	state, err := b.flows.GetFlow(ctx, userID)
	if err != nil || state == nil {
		b.sendMainMenu(ctx, chatID, userID)
		return
	}

	switch state.Step {
	case models.StepRegisterShip:
		b.handleShipInput(ctx, chatID, userID, text)
	case models.StepTimeWindow:
		b.handleTimeWindowInput(ctx, chatID, userID, text)
	default:
		b.sendMainMenu(ctx, chatID, userID)
	}
}

func (b *Bot) sendMainMenu(ctx context.Context, chatID, userID int64) {
	session, _ := b.sessions.GetSession(ctx, userID)

	var greeting string
	if session != nil {
		greeting = fmt.Sprintf("⚓ *HarborBook*\n\nXin chào, %s! Bạn muốn làm gì?", session.Username)
	} else {
		greeting = "⚓ *HarborBook*\n\nĐặt dịch vụ sửa chữa và neo đậu cho tàu của bạn.\nĐăng nhập để bắt đầu."
	}

	rows := [][]tgbotapi.InlineKeyboardButton{
		{tgbotapi.NewInlineKeyboardButtonData("🛠 Đặt dịch vụ", "book")},
		{tgbotapi.NewInlineKeyboardButtonData("📋 Đặt chỗ của tôi", "mybooking")},
	}
	if session == nil {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔑 Đăng nhập", "login")))
	}
	if len(b.config.ManagersContacts) > 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📞 Liên hệ hỗ trợ", "contacts")))
	}

	b.sendMarkdownKeyboard(chatID, greeting, tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) sendHelp(chatID int64) {
	b.sendMarkdown(chatID, strings.Join([]string{
		"*Các lệnh:*",
		"/book — bắt đầu đặt dịch vụ",
		"/mybooking — xem đặt chỗ hiện tại",
		"/login — đăng nhập tài khoản HarborBook",
		"/logout — đăng xuất",
		"/cancel — hủy thao tác hiện tại",
	}, "\n"))
}

func (b *Bot) showContacts(chatID int64) {
	if len(b.config.ManagersContacts) == 0 {
		b.sendMessage(chatID, "Hiện chưa có thông tin liên hệ.")
		return
	}
	b.sendMessage(chatID, "📞 Liên hệ hỗ trợ:\n"+strings.Join(b.config.ManagersContacts, "\n"))
}

// requireSession returns the marketplace login of the user, prompting for
// /login when there is none.
func (b *Bot) requireSession(ctx context.Context, chatID, userID int64) (*models.UserSession, bool) {
	session, err := b.sessions.GetSession(ctx, userID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("get session error")
		b.sendMessage(chatID, "❌ Có lỗi khi kiểm tra phiên đăng nhập. Vui lòng thử lại.")
		return nil, false
	}
	if session == nil || session.Token == "" {
		b.sendMessage(chatID, "🔑 Bạn cần đăng nhập trước. Dùng /login để đăng nhập.")
		return nil, false
	}
	return session, true
}

func (b *Bot) handleLoginInput(ctx context.Context, chatID, userID int64, st *loginState, text string) {
	switch st.step {
	case "email":
		if !strings.Contains(text, "@") {
			b.sendMessage(chatID, "Email không hợp lệ. Vui lòng nhập lại:")
			return
		}
		st.email = text
		st.step = "password"
		b.setLoginState(userID, st)
		b.sendMessage(chatID, "Nhập mật khẩu:")

	case "password":
		b.setLoginState(userID, nil)

		result, err := b.gateway.Login(ctx, st.email, text)
		if err != nil {
			if apiErr, ok := gateway.AsAPIError(err); ok && apiErr.IsAuth() {
				b.sendMessage(chatID, "❌ Email hoặc mật khẩu không đúng. Dùng /login để thử lại.")
			} else {
				b.sendMessage(chatID, b.getErrorMessage(err))
			}
			return
		}

		session := &models.UserSession{
			TelegramID: userID,
			Token:      result.Token,
			Role:       result.Role,
			Username:   result.Username,
			Email:      result.Email,
			UpdatedAt:  time.Now(),
		}
		if err := b.sessions.SaveSession(ctx, session); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("save session error")
			b.sendMessage(chatID, "❌ Không lưu được phiên đăng nhập. Vui lòng thử lại.")
			return
		}

		b.sendMessage(chatID, fmt.Sprintf("✅ Đăng nhập thành công. Xin chào, %s!", result.Username))
		b.sendMainMenu(ctx, chatID, userID)
	}
}

func (b *Bot) startBooking(ctx context.Context, chatID, userID int64) {
	session, ok := b.requireSession(ctx, chatID, userID)
	if !ok {
		return
	}

	if _, err := b.flows.BeginFlow(ctx, userID, chatID); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("begin flow error")
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	b.sendBoatyardsPage(ctx, chatID, 0, session.Token, 0)
}

// handleShipInput parses "Tên tàu; Số đăng ký; Loại tàu" and registers the
// vessel with the marketplace.
func (b *Bot) handleShipInput(ctx context.Context, chatID, userID int64, text string) {
	req, err := parseShipInput(text)
	if err != nil {
		b.sendMessage(chatID, "Định dạng chưa đúng. Nhập theo mẫu:\nTên tàu; Số đăng ký; Loại tàu\nVí dụ: Hải Âu; VN-1234; Tàu cá")
		return
	}

	session, ok := b.requireSession(ctx, chatID, userID)
	if !ok {
		return
	}

	ship, err := b.gateway.RegisterShip(ctx, session.Token, req)
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	state, err := b.flows.Contribute(ctx, userID, models.StepTimeWindow, models.BookingDraft{Ship: ship})
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	b.sendMessage(chatID, fmt.Sprintf("🛳 Đã đăng ký tàu %s (%s).", ship.Name, ship.Registration))
	b.promptTimeWindow(chatID, state.Draft.Slot)
}

func parseShipInput(text string) (gateway.RegisterShipRequest, error) {
	parts := strings.Split(text, ";")
	if len(parts) != 3 {
		parts = strings.Split(text, "\n")
	}
	if len(parts) != 3 {
		return gateway.RegisterShipRequest{}, fmt.Errorf("expected 3 fields, got %d", len(parts))
	}

	req := gateway.RegisterShipRequest{
		Name:         strings.TrimSpace(parts[0]),
		Registration: strings.TrimSpace(parts[1]),
		ShipType:     strings.TrimSpace(parts[2]),
	}
	if req.Name == "" || req.Registration == "" || req.ShipType == "" {
		return gateway.RegisterShipRequest{}, fmt.Errorf("empty field")
	}
	return req, nil
}

func (b *Bot) promptTimeWindow(chatID int64, slot *models.DockSlot) {
	var sb strings.Builder
	sb.WriteString("🕒 Nhập khung giờ theo mẫu:\n`25.12.2025 08:00-17:00`")
	if slot != nil && !slot.AssignedFrom.IsZero() && !slot.AssignedUntil.IsZero() {
		sb.WriteString(fmt.Sprintf("\n\nBến %s trống từ %s đến %s.",
			slot.Name,
			slot.AssignedFrom.Format(timeWindowLayout),
			slot.AssignedUntil.Format(timeWindowLayout)))
	}
	b.sendMarkdown(chatID, sb.String())
}

func (b *Bot) handleTimeWindowInput(ctx context.Context, chatID, userID int64, text string) {
	start, end, err := parseTimeWindow(text)
	if err != nil {
		b.sendMessage(chatID, "Khung giờ chưa đúng định dạng. Nhập theo mẫu: 25.12.2025 08:00-17:00")
		return
	}

	state, err := b.flows.Contribute(ctx, userID, models.StepConfirm, models.BookingDraft{
		StartTime: start,
		EndTime:   end,
	})
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	b.sendConfirmScreen(ctx, chatID, userID, state.Draft)
}

// parseTimeWindow reads "DD.MM.YYYY HH:MM-HH:MM"; both times fall on the
// given date.
func parseTimeWindow(text string) (time.Time, time.Time, error) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("expected date and time range")
	}

	hours := strings.Split(fields[1], "-")
	if len(hours) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("expected time range HH:MM-HH:MM")
	}

	start, err := time.ParseInLocation(timeWindowLayout, fields[0]+" "+strings.TrimSpace(hours[0]), time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.ParseInLocation(timeWindowLayout, fields[0]+" "+strings.TrimSpace(hours[1]), time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end is not after start")
	}
	return start, end, nil
}

func (b *Bot) showCurrentBooking(ctx context.Context, chatID, userID int64) {
	session, ok := b.requireSession(ctx, chatID, userID)
	if !ok {
		return
	}

	state, err := b.flows.GetFlow(ctx, userID)
	if err != nil || state == nil || state.BookingID == "" {
		b.sendMessage(chatID, "Bạn chưa có đặt chỗ nào đang theo dõi. Dùng /book để bắt đầu.")
		return
	}

	booking, err := b.gateway.GetBooking(ctx, session.Token, state.BookingID)
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	b.sendMarkdownKeyboard(chatID, renderBookingStatus(booking), tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💳 Thanh toán", "pay"),
			tgbotapi.NewInlineKeyboardButtonData("🏠 Về menu", "home"),
		),
	))
}

func renderBookingStatus(booking *models.Booking) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 *Đặt chỗ %s*\n\n", booking.ID))
	sb.WriteString(fmt.Sprintf("Trạng thái: %s\n", bookingStatusLabel(booking.Status)))
	if booking.BoatyardName != "" {
		sb.WriteString(fmt.Sprintf("⚓ Xưởng: %s\n", booking.BoatyardName))
	}
	if booking.ShipName != "" {
		sb.WriteString(fmt.Sprintf("🛳 Tàu: %s\n", booking.ShipName))
	}
	if !booking.StartTime.IsZero() {
		sb.WriteString(fmt.Sprintf("🕒 %s – %s\n",
			booking.StartTime.Format(timeWindowLayout),
			booking.EndTime.Format("15:04")))
	}
	sb.WriteString(fmt.Sprintf("💰 Tổng: %s₫", formatAmount(booking.TotalAmount)))
	return sb.String()
}

func bookingStatusLabel(status string) string {
	switch status {
	case models.BookingPending:
		return "⏳ Chờ thanh toán"
	case models.BookingConfirmed:
		return "✅ Đã xác nhận"
	case models.BookingCanceled:
		return "❌ Đã hủy"
	default:
		return status
	}
}

// formatAmount groups digits by dots the way Vietnamese amounts are written.
func formatAmount(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var sb strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			sb.WriteByte('.')
		}
		sb.WriteRune(r)
	}
	if neg {
		return "-" + sb.String()
	}
	return sb.String()
}

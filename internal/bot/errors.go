package bot

import (
	"errors"
	"net/http"

	"harborbook/internal/gateway"
	"harborbook/internal/service"
)

// getErrorMessage maps service and gateway errors to the user-facing text.
func (b *Bot) getErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, gateway.ErrNetwork) {
		return "⚠️ Không kết nối được tới máy chủ. Vui lòng kiểm tra mạng và thử lại."
	}

	if apiErr, ok := gateway.AsAPIError(err); ok {
		switch {
		case apiErr.IsAuth():
			return "🔑 Phiên đăng nhập đã hết hạn. Dùng /login để đăng nhập lại."
		case apiErr.StatusCode == http.StatusConflict:
			return "⚠️ Bến đã được đặt trong khung giờ này. Vui lòng chọn khung giờ hoặc bến khác."
		case apiErr.StatusCode >= http.StatusInternalServerError:
			return "⚠️ Máy chủ đang gặp sự cố. Vui lòng thử lại sau ít phút."
		}
		if apiErr.Message != "" {
			return "⚠️ " + apiErr.Message
		}
		return "⚠️ Yêu cầu bị từ chối. Vui lòng kiểm tra lại thông tin."
	}

	var vErr *service.ValidationError
	if errors.As(err, &vErr) {
		return validationMessage(vErr)
	}

	switch {
	case errors.Is(err, service.ErrNoActiveFlow):
		return "Bạn chưa bắt đầu đặt dịch vụ. Dùng /book để bắt đầu."
	case errors.Is(err, service.ErrSubmitInFlight):
		return "⏳ Đặt chỗ của bạn đang được xử lý. Vui lòng chờ."
	case errors.Is(err, service.ErrPaymentInFlight):
		return "⏳ Phiên thanh toán đang được khởi tạo. Vui lòng chờ."
	case errors.Is(err, service.ErrNoActiveSession):
		return "Không có phiên thanh toán nào đang mở."
	}

	return "❌ Có lỗi xảy ra khi xử lý yêu cầu. Vui lòng thử lại hoặc liên hệ hỗ trợ."
}

func validationMessage(err *service.ValidationError) string {
	switch err.Field {
	case "boatyard":
		return "⚠️ Bạn chưa chọn xưởng dịch vụ."
	case "services":
		return "⚠️ Chọn ít nhất một dịch vụ trước khi xác nhận."
	case "dock_slot":
		return "⚠️ Bạn chưa chọn bến neo đậu."
	case "ship":
		return "⚠️ Bạn chưa chọn tàu."
	case "time_window":
		return "⚠️ Khung giờ chưa hợp lệ. Kiểm tra lại thời gian bắt đầu, kết thúc và khung trống của bến."
	default:
		return "⚠️ Thông tin đặt chỗ chưa đầy đủ. Vui lòng kiểm tra lại."
	}
}

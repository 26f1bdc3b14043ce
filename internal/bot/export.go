package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"harborbook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xuri/excelize/v2"
)

const outcomesSheet = "Thanh toán"

func (b *Bot) handleExport(ctx context.Context, chatID int64) {
	path, err := b.exportOutcomes(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("export outcomes error")
		b.sendMessage(chatID, "❌ Không xuất được báo cáo. Vui lòng thử lại.")
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	if _, err := b.tgService.Send(doc); err != nil {
		b.logger.Error().Err(err).Str("file_path", path).Msg("send export error")
		b.sendMessage(chatID, "❌ Không gửi được tệp báo cáo.")
	}
}

// exportOutcomes writes the full outcome journal to an xlsx file and returns
// its path.
func (b *Bot) exportOutcomes(ctx context.Context) (string, error) {
	if err := os.MkdirAll(b.config.Exports.Path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	records, err := b.journal.ListOutcomes(ctx, time.Time{})
	if err != nil {
		return "", fmt.Errorf("error listing outcomes: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(outcomesSheet)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	headers := []string{"ID", "Đặt chỗ", "Kết quả", "Số tiền", "Thông báo", "Thời gian"}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(outcomesSheet, cell, header)
		_ = f.SetCellStyle(outcomesSheet, cell, cell, headerStyle)
	}

	for i, record := range records {
		row := i + 2
		_ = f.SetCellValue(outcomesSheet, fmt.Sprintf("A%d", row), record.ID)
		_ = f.SetCellValue(outcomesSheet, fmt.Sprintf("B%d", row), record.BookingID)
		_ = f.SetCellValue(outcomesSheet, fmt.Sprintf("C%d", row), outcomeLabel(record.Result))
		_ = f.SetCellValue(outcomesSheet, fmt.Sprintf("D%d", row), record.Amount)
		_ = f.SetCellValue(outcomesSheet, fmt.Sprintf("E%d", row), record.Message)
		_ = f.SetCellValue(outcomesSheet, fmt.Sprintf("F%d", row), record.CreatedAt.Format("02.01.2006 15:04"))
	}

	_ = f.SetColWidth(outcomesSheet, "A", "A", 8)
	_ = f.SetColWidth(outcomesSheet, "B", "B", 20)
	_ = f.SetColWidth(outcomesSheet, "C", "C", 18)
	_ = f.SetColWidth(outcomesSheet, "D", "D", 14)
	_ = f.SetColWidth(outcomesSheet, "E", "E", 40)
	_ = f.SetColWidth(outcomesSheet, "F", "F", 20)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("outcomes_export_%s.xlsx", time.Now().Format("2006-01-02_15-04-05"))
	filePath := filepath.Join(b.config.Exports.Path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	b.logger.Info().Str("file_path", filePath).Int("records", len(records)).Msg("Excel file created")
	return filePath, nil
}

func outcomeLabel(result models.OutcomeResult) string {
	switch result {
	case models.OutcomeSuccess:
		return "Thành công"
	case models.OutcomeFailure:
		return "Đã hủy"
	case models.OutcomePendingVerify:
		return "Chờ xác minh"
	default:
		return string(result)
	}
}

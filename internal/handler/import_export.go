package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/stanrainier/stan-finance-tracker/internal/models"
	"github.com/stanrainier/stan-finance-tracker/internal/util"
)

type ImportExportHandler struct {
	DB *gorm.DB
}

func NewImportExportHandler(db *gorm.DB) *ImportExportHandler {
	return &ImportExportHandler{
		DB: db,
	}
}

var exportHeaders = []string{"Date", "Type", "Account", "Category", "Amount", "Description", "Payable"}

func exportRow(e *models.Transaction) []string {
	return []string{
		e.DateIncurred.Format("2006-01-02"),
		e.Type,
		e.AccountName,
		e.Category,
		e.Amount.StringFixed(2),
		e.Description,
		e.PayableName,
	}
}

func (h *ImportExportHandler) loadEntries(c *gin.Context) ([]models.Transaction, bool) {
	user, ok := currentUser(c)
	if !ok {
		return nil, false
	}
	var entries []models.Transaction
	if err := h.DB.WithContext(c.Request.Context()).
		Where("user_id = ?", user.UID).
		Order("date_incurred DESC, created_at DESC").
		Find(&entries).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return nil, false
	}
	return entries, true
}

// ExportCSV 导出流水为 CSV
func (h *ImportExportHandler) ExportCSV(c *gin.Context) {
	entries, ok := h.loadEntries(c)
	if !ok {
		return
	}

	// 设置响应头
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"transactions_%s.csv\"",
		time.Now().Format("20060102")))

	// UTF-8 BOM, so Excel picks the right encoding for ₱ and names
	_, _ = c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	_ = writer.Write(exportHeaders)
	for i := range entries {
		_ = writer.Write(exportRow(&entries[i]))
	}
	writer.Flush()
}

// ExportXLSX 导出流水为 XLSX
func (h *ImportExportHandler) ExportXLSX(c *gin.Context) {
	entries, ok := h.loadEntries(c)
	if !ok {
		return
	}

	f := excelize.NewFile()
	defer f.Close()
	sheetName := "Transactions"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "could not create sheet")
		return
	}

	// 设置表头
	for i, title := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, title)
	}

	// 写入数据；金额写成数字，方便在表格里求和
	for idx := range entries {
		e := &entries[idx]
		row := exportRow(e)
		for col, v := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, idx+2)
			if col == 4 {
				amount, _ := e.Amount.Float64()
				_ = f.SetCellValue(sheetName, cell, amount)
				continue
			}
			_ = f.SetCellValue(sheetName, cell, v)
		}
	}

	// 设置列宽
	_ = f.SetColWidth(sheetName, "A", "A", 12)
	_ = f.SetColWidth(sheetName, "B", "C", 14)
	_ = f.SetColWidth(sheetName, "D", "D", 20)
	_ = f.SetColWidth(sheetName, "E", "E", 12)
	_ = f.SetColWidth(sheetName, "F", "F", 30)
	_ = f.SetColWidth(sheetName, "G", "G", 16)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"transactions_%s.xlsx\"",
		time.Now().Format("20060102")))

	if err := f.Write(c.Writer); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "export failed")
	}
}

package api

import (
	"bytes"
	"testing"
	"time"

	"moneytrack/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func exportRouter(userID uint) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewExportHandler()
	router := gin.New()
	router.Use(setUserIDMiddleware(userID))
	router.GET("/export/csv", h.ExportCSV)
	router.GET("/export/json", h.ExportJSON)
	router.GET("/export/excel", h.ExportExcel)
	return router
}

func expectExportRows(mock sqlmock.Sqlmock) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.Local)
	mock.ExpectQuery("SELECT \\* FROM `transactions` WHERE transactions.user_id = \\?").
		WillReturnRows(sqlmock.NewRows(transactionCols).
			AddRow(2, 1, 7, "5000.00", models.TypeIncome, now, "一月工资", now, now).
			AddRow(1, 1, 3, "99.99", models.TypeExpense, now, "午餐", now, now))
	mock.ExpectQuery("SELECT \\* FROM `categories` WHERE `categories`.`id` IN").
		WillReturnRows(sqlmock.NewRows(categoryCols).
			AddRow(3, 1, "餐饮", models.TypeExpense, "#ef4444", now, now).
			AddRow(7, 1, "工资", models.TypeIncome, "#10b981", now, now))
}

func TestExportHandler_ExportCSV(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	expectExportRows(mock)

	w := doJSON(exportRouter(1), "GET", "/export/csv?start_time=2024-01-01&end_time=2024-01-31", "")

	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	body := w.Body.String()
	assert.True(t, len(body) > 3 && body[:3] == "\xEF\xBB\xBF")
	assert.Contains(t, body, "ID,时间,类型,分类,金额,备注")
	assert.Contains(t, body, "支出,餐饮,99.99,午餐")
	assert.Contains(t, body, "收入,工资,5000.00,一月工资")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExportHandler_ExportCSV_MissingParams(t *testing.T) {
	w := doJSON(exportRouter(1), "GET", "/export/csv", "")
	assert.Equal(t, 400, w.Code)
}

func TestExportHandler_ExportCSV_ReversedRange(t *testing.T) {
	w := doJSON(exportRouter(1), "GET", "/export/csv?start_time=2024-02-01&end_time=2024-01-01", "")
	assert.Equal(t, 400, w.Code)
}

func TestExportHandler_ExportJSON(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	expectExportRows(mock)

	w := doJSON(exportRouter(1), "GET", "/export/json?start_time=2024-01-01&end_time=2024-01-31", "")

	assert.Equal(t, 200, w.Code)
	data := decodeResponse(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["total_count"])
	summary := data["summary"].(map[string]interface{})
	assert.Equal(t, "5000", summary["income"])
	assert.Equal(t, "4900.01", summary["balance"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExportHandler_ExportExcel(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	expectExportRows(mock)

	w := doJSON(exportRouter(1), "GET", "/export/excel?start_time=2024-01-01&end_time=2024-01-31", "")

	assert.Equal(t, 200, w.Code)
	book, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer book.Close()

	header, err := book.GetCellValue("收支记录", "E1")
	require.NoError(t, err)
	assert.Equal(t, "金额", header)
	category, err := book.GetCellValue("收支记录", "D3")
	require.NoError(t, err)
	assert.Equal(t, "餐饮", category)
	summary, err := book.GetCellValue("收支记录", "F4")
	require.NoError(t, err)
	assert.Equal(t, "共 2 条记录", summary)
	require.NoError(t, mock.ExpectationsWereMet())
}

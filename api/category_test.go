package api

import (
	"testing"
	"time"

	"moneytrack/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var categoryCols = []string{"id", "user_id", "name", "type", "color", "created_at", "updated_at"}

func categoryRouter(userID uint) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewCategoryHandler()
	router := gin.New()
	router.Use(setUserIDMiddleware(userID))
	router.GET("/categories", h.List)
	router.POST("/categories", h.Create)
	router.PUT("/categories/:id", h.Update)
	router.DELETE("/categories/:id", h.Delete)
	return router
}

func TestCategoryHandler_List(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery("SELECT \\* FROM `categories` WHERE user_id = \\? AND type = \\? ORDER BY name ASC").
		WithArgs(1, models.TypeIncome).
		WillReturnRows(sqlmock.NewRows(categoryCols).
			AddRow(7, 1, "工资", models.TypeIncome, "#10b981", now, now).
			AddRow(8, 1, "奖金", models.TypeIncome, "#06b6d4", now, now))

	w := doJSON(categoryRouter(1), "GET", "/categories?type=income", "")

	assert.Equal(t, 200, w.Code)
	data := decodeResponse(t, w)["data"].([]interface{})
	assert.Len(t, data, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryHandler_List_InvalidType(t *testing.T) {
	w := doJSON(categoryRouter(1), "GET", "/categories?type=transfer", "")
	assert.Equal(t, 400, w.Code)
}

func TestCategoryHandler_Create_Duplicate(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `categories`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	w := doJSON(categoryRouter(1), "POST", "/categories", `{"name":"餐饮","type":"expense"}`)

	assert.Equal(t, 409, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryHandler_Create(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `categories`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `categories`").
		WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectCommit()

	w := doJSON(categoryRouter(1), "POST", "/categories", `{"name":"宠物","type":"expense","color":"#f97316"}`)

	assert.Equal(t, 200, w.Code)
	data := decodeResponse(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(12), data["id"])
	assert.Equal(t, "宠物", data["name"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryHandler_Update_NotFound(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT \\* FROM `categories` WHERE id = \\? AND user_id = \\?").
		WithArgs(99, 1).
		WillReturnRows(sqlmock.NewRows(categoryCols))

	w := doJSON(categoryRouter(1), "PUT", "/categories/99", `{"name":"新名字"}`)

	assert.Equal(t, 404, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryHandler_Delete_InUse(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `categories` WHERE id = \\? AND user_id = \\?").
		WithArgs(3, 1).
		WillReturnRows(sqlmock.NewRows(categoryCols).AddRow(3, 1, "餐饮", models.TypeExpense, "#ef4444", now, now))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `transactions` WHERE category_id = \\?").
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectRollback()

	w := doJSON(categoryRouter(1), "DELETE", "/categories/3", "")

	assert.Equal(t, 409, w.Code)
	assert.Contains(t, decodeResponse(t, w)["message"], "4 条交易记录")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryHandler_Delete_InvalidID(t *testing.T) {
	w := doJSON(categoryRouter(1), "DELETE", "/categories/abc", "")
	assert.Equal(t, 400, w.Code)
}

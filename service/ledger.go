package service

import (
	"errors"
	"fmt"
	"strings"

	"moneytrack/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultCategoryColor 未指定颜色时使用
const DefaultCategoryColor = "#64748b"

// HashPassword bcrypt 加密
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("密码加密失败: %w", err)
	}
	return string(hashed), nil
}

// CheckPassword 校验密码
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// RegisterUser 注册用户，同一事务内创建用户和默认分类
func RegisterUser(db *gorm.DB, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	var existing models.User
	err := db.Where("username = ?", username).First(&existing).Error
	if err == nil {
		return nil, ErrUsernameTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	err = db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}

	hashed, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := models.User{Username: username, Email: email, Password: hashed}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		categories := models.NewDefaultCategories(user.ID)
		return tx.Create(&categories).Error
	})
	if err != nil {
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}
	return &user, nil
}

// Authenticate 用户名或邮箱登录
func Authenticate(db *gorm.DB, login, password string) (*models.User, error) {
	var user models.User
	if err := db.Where("username = ? OR email = ?", login, login).First(&user).Error; err != nil {
		return nil, ErrNotFound
	}
	if !CheckPassword(user.Password, password) {
		return nil, ErrNotFound
	}
	return &user, nil
}

// ListCategories 用户的分类，按名称排序；txType 为空时返回全部
func ListCategories(db *gorm.DB, userID uint, txType string) ([]models.Category, error) {
	var list []models.Category
	q := db.Where("user_id = ?", userID)
	if txType != "" {
		q = q.Where("type = ?", txType)
	}
	if err := q.Order("name ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("查询分类失败: %w", err)
	}
	return list, nil
}

// GetCategory 获取属于该用户的分类
func GetCategory(db *gorm.DB, userID, id uint) (*models.Category, error) {
	var cat models.Category
	err := db.Where("id = ? AND user_id = ?", id, userID).First(&cat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询分类失败: %w", err)
	}
	return &cat, nil
}

func categoryNameTaken(db *gorm.DB, userID uint, name, txType string, excludeID uint) (bool, error) {
	var n int64
	q := db.Model(&models.Category{}).Where("user_id = ? AND name = ? AND type = ?", userID, name, txType)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, fmt.Errorf("查询分类失败: %w", err)
	}
	return n > 0, nil
}

// CreateCategory 新建分类，(用户, 名称, 类型) 不可重复
func CreateCategory(db *gorm.DB, userID uint, name, txType, color string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if !models.ValidType(txType) {
		return nil, ErrInvalidType
	}
	taken, err := categoryNameTaken(db, userID, name, txType, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrCategoryExists
	}

	if color == "" {
		color = DefaultCategoryColor
	}
	cat := models.Category{UserID: userID, Name: name, Type: txType, Color: color}
	if err := db.Create(&cat).Error; err != nil {
		return nil, fmt.Errorf("创建分类失败: %w", err)
	}
	return &cat, nil
}

// RenameCategory 修改分类名称和颜色，类型不变
func RenameCategory(db *gorm.DB, userID, id uint, name, color string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	cat, err := GetCategory(db, userID, id)
	if err != nil {
		return nil, err
	}
	if name != cat.Name {
		taken, err := categoryNameTaken(db, userID, name, cat.Type, cat.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrCategoryExists
		}
	}

	updates := map[string]interface{}{"name": name}
	if color != "" {
		updates["color"] = color
	}
	if err := db.Model(cat).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("更新分类失败: %w", err)
	}
	cat.Name = name
	if color != "" {
		cat.Color = color
	}
	return cat, nil
}

// DeleteCategory 删除分类；仍被交易或预算引用时拒绝
// 计数与删除在同一事务内，外键为 RESTRICT，并发写入的引用会让删除失败而不是被级联删除
func DeleteCategory(db *gorm.DB, userID, id uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		cat, err := GetCategory(tx, userID, id)
		if err != nil {
			return err
		}

		var txCount int64
		if err := tx.Model(&models.Transaction{}).Where("category_id = ?", cat.ID).Count(&txCount).Error; err != nil {
			return fmt.Errorf("查询交易失败: %w", err)
		}
		if txCount > 0 {
			return fmt.Errorf("%w: 仍有 %d 条交易记录使用该分类", ErrCategoryInUse, txCount)
		}

		var budgetCount int64
		if err := tx.Model(&models.Budget{}).Where("category_id = ?", cat.ID).Count(&budgetCount).Error; err != nil {
			return fmt.Errorf("查询预算失败: %w", err)
		}
		if budgetCount > 0 {
			return fmt.Errorf("%w: 仍有 %d 条预算使用该分类", ErrCategoryInUse, budgetCount)
		}

		if err := tx.Delete(cat).Error; err != nil {
			return fmt.Errorf("删除分类失败: %w", err)
		}
		return nil
	})
}

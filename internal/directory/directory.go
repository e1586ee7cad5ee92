package directory

import (
	"github.com/youssef-attai/flask-chat-app/internal/models"
	"gorm.io/gorm"
)

// Directory 提供用户的只读查询，写入由注册流程负责。
type Directory struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

func (d *Directory) FindByID(id uint) (models.User, error) {
	var user models.User
	if err := d.db.First(&user, id).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (d *Directory) FindByUsername(name string) (models.User, error) {
	var user models.User
	if err := d.db.Where("username = ?", name).First(&user).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

package payment

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/onlinestore/fulfillment/internal/model"
)

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) (*GormRepository, error) {
	if err := db.AutoMigrate(&model.Payment{}); err != nil {
		return nil, err
	}
	return &GormRepository{db: db}, nil
}

func (r *GormRepository) Create(ctx context.Context, payment *model.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *GormRepository) Get(ctx context.Context, id string) (model.Payment, error) {
	var payment model.Payment
	err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Payment{}, &model.NotFoundError{Resource: "payment", ID: id}
	}
	return payment, err
}

func (r *GormRepository) FindByOrder(ctx context.Context, orderID string) ([]model.Payment, error) {
	var payments []model.Payment
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Find(&payments).Error
	return payments, err
}

func (r *GormRepository) Save(ctx context.Context, payment *model.Payment) error {
	return r.db.WithContext(ctx).Save(payment).Error
}

func (r *GormRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&model.Payment{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &model.NotFoundError{Resource: "payment", ID: id}
	}
	return nil
}

package department

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	FindAll(ctx context.Context) ([]Department, error)
	FindByID(ctx context.Context, id string) (*Department, error)
	Seed(ctx context.Context, names []string) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindAll(ctx context.Context) ([]Department, error) {
	var depts []Department
	err := r.db.WithContext(ctx).
		Order("name ASC").
		Find(&depts).Error
	return depts, err
}

func (r *repository) FindByID(ctx context.Context, id string) (*Department, error) {
	var dept Department
	err := r.db.WithContext(ctx).First(&dept, "id = ?", id).Error
	return &dept, err
}

// Seed inserts the master department list, skipping names that already exist.
func (r *repository) Seed(ctx context.Context, names []string) error {
	for _, name := range names {
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&Department{}).
			Where("name = ?", name).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := r.db.WithContext(ctx).Create(&Department{
			ID:   uuid.New(),
			Name: name,
		}).Error; err != nil {
			return err
		}
	}
	return nil
}

package task

import (
	"context"

	"gorm.io/gorm"
)

// Repository is the persistence boundary for Task entities.
type Repository interface {
	CreateBatch(ctx context.Context, tasks []Task) error
	FindByMeetingID(ctx context.Context, meetingID string) ([]Task, error)
}

// GormRepository implements Repository against a *gorm.DB pool.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new GORM-backed task repository.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) CreateBatch(ctx context.Context, tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&tasks).Error
}

func (r *GormRepository) FindByMeetingID(ctx context.Context, meetingID string) ([]Task, error) {
	var tasks []Task
	err := r.db.WithContext(ctx).Where("meeting_id = ?", meetingID).Order("created_at ASC").Find(&tasks).Error
	return tasks, err
}

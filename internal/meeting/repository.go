package meeting

import (
	"context"

	pkgerrors "meetscribe/internal/errors"

	"gorm.io/gorm"
)

// Repository is the persistence boundary for Meeting aggregates.
type Repository interface {
	Create(ctx context.Context, m *Meeting) error
	FindByID(ctx context.Context, id string) (*Meeting, error)
	Update(ctx context.Context, m *Meeting) error
	// IncrementTranscribeDone atomically increments transcribe_done,
	// capped at transcribe_total, and returns the post-increment value.
	// The cap keeps transcribe_done <= transcribe_total when a chunk
	// message is redelivered after its increment already landed (the
	// completion barrier itself is driven by the cache keycount, which a
	// re-run leaves stable).
	IncrementTranscribeDone(ctx context.Context, id string) (int, error)
	// SaveKeyNotes writes only the key_notes column, so a concurrent
	// task-extraction job on the same meeting cannot be clobbered by a
	// full-row save.
	SaveKeyNotes(ctx context.Context, id string, notes []KeyNote) error
	// IncrementSummarizeDone atomically increments summarize_done,
	// capped at summarize_total the same way IncrementTranscribeDone is,
	// and returns the post-increment value. The extraction job that
	// observes done == total calls MarkCompleted (itself a no-op once the
	// meeting has left summarized, so a redelivered job is harmless).
	IncrementSummarizeDone(ctx context.Context, id string) (int, error)
	// MarkCompleted advances a summarized meeting to completed. A no-op
	// for any other status, so racing extraction jobs cannot double-fire
	// the transition.
	MarkCompleted(ctx context.Context, id string) error
	FindByOwner(ctx context.Context, ownerID string) ([]Meeting, error)
}

// GormRepository implements Repository against a *gorm.DB pool.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new GORM-backed meeting repository.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Create(ctx context.Context, m *Meeting) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *GormRepository) FindByID(ctx context.Context, id string) (*Meeting, error) {
	var m Meeting
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, &pkgerrors.NotFoundError{Kind: "meeting", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *GormRepository) Update(ctx context.Context, m *Meeting) error {
	result := r.db.WithContext(ctx).Save(m)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &pkgerrors.NotFoundError{Kind: "meeting", ID: m.GetID()}
	}
	return nil
}

func (r *GormRepository) IncrementTranscribeDone(ctx context.Context, id string) (int, error) {
	result := r.db.WithContext(ctx).Model(&Meeting{}).
		Where("id = ?", id).
		UpdateColumn("transcribe_done", gorm.Expr("LEAST(transcribe_done + 1, transcribe_total)"))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, &pkgerrors.NotFoundError{Kind: "meeting", ID: id}
	}

	var m Meeting
	if err := r.db.WithContext(ctx).Select("transcribe_done").First(&m, "id = ?", id).Error; err != nil {
		return 0, err
	}
	return m.TranscribeDone, nil
}

func (r *GormRepository) SaveKeyNotes(ctx context.Context, id string, notes []KeyNote) error {
	result := r.db.WithContext(ctx).Model(&Meeting{}).
		Where("id = ?", id).
		Update("key_notes", notes)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &pkgerrors.NotFoundError{Kind: "meeting", ID: id}
	}
	return nil
}

func (r *GormRepository) IncrementSummarizeDone(ctx context.Context, id string) (int, error) {
	result := r.db.WithContext(ctx).Model(&Meeting{}).
		Where("id = ?", id).
		UpdateColumn("summarize_done", gorm.Expr("LEAST(summarize_done + 1, summarize_total)"))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, &pkgerrors.NotFoundError{Kind: "meeting", ID: id}
	}

	var m Meeting
	if err := r.db.WithContext(ctx).Select("summarize_done").First(&m, "id = ?", id).Error; err != nil {
		return 0, err
	}
	return m.SummarizeDone, nil
}

func (r *GormRepository) MarkCompleted(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&Meeting{}).
		Where("id = ? AND status = ?", id, StatusSummarized).
		Update("status", StatusCompleted).Error
}

func (r *GormRepository) FindByOwner(ctx context.Context, ownerID string) ([]Meeting, error) {
	var meetings []Meeting
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&meetings).Error
	return meetings, err
}

package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"municipality/internal/models"
)

// priorityRank sorts priorities by severity in SQL
const priorityRank = "CASE priority WHEN 'URGENT' THEN 4 WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 WHEN 'LOW' THEN 1 ELSE 0 END DESC"

type announcementRepository struct {
	db *gorm.DB
}

func (r *announcementRepository) Create(ctx context.Context, announcement *models.Announcement) error {
	if err := r.db.WithContext(ctx).Create(announcement).Error; err != nil {
		return duplicate(err, "failed to create announcement")
	}
	return nil
}

func (r *announcementRepository) GetByID(ctx context.Context, id uint) (*models.Announcement, error) {
	var announcement models.Announcement
	if err := r.db.WithContext(ctx).First(&announcement, id).Error; err != nil {
		return nil, notFound(err, "failed to get announcement")
	}
	return &announcement, nil
}

func (r *announcementRepository) Update(ctx context.Context, announcement *models.Announcement) error {
	if err := r.db.WithContext(ctx).Save(announcement).Error; err != nil {
		return errors.Wrap(err, "failed to update announcement")
	}
	return nil
}

func (r *announcementRepository) ListActive(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, error) {
	query := r.db.WithContext(ctx).Model(&models.Announcement{}).Where("is_active = ?", true)
	if len(filter.Categories) > 0 {
		query = query.Where("category IN ?", filter.Categories)
	}
	if filter.ExcludeCategory != "" {
		query = query.Where("category <> ?", filter.ExcludeCategory)
	}
	if len(filter.Priorities) > 0 {
		query = query.Where("priority IN ?", filter.Priorities)
	}
	if filter.IssuedSince != nil {
		query = query.Where("issue_date >= ?", *filter.IssuedSince)
	}
	if filter.UnexpiredAt != nil {
		query = query.Where("(expiry_date IS NULL OR expiry_date > ?)", *filter.UnexpiredAt)
	}
	if filter.EventFrom != nil || filter.EventTo != nil {
		query = query.Where("event_date IS NOT NULL")
	}
	if filter.EventFrom != nil {
		query = query.Where("event_date >= ?", *filter.EventFrom)
	}
	if filter.EventTo != nil {
		query = query.Where("event_date <= ?", *filter.EventTo)
	}

	switch filter.Order {
	case models.OrderByPriority:
		query = query.Order(priorityRank).Order("issue_date DESC, id DESC")
	case models.OrderByEventDate:
		query = query.Order("event_date ASC, id ASC")
	default:
		query = query.Order("issue_date DESC, id DESC")
	}

	var announcements []models.Announcement
	if err := paginate(query, filter.Skip, filter.Limit).Find(&announcements).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list announcements")
	}
	return announcements, nil
}

func (r *announcementRepository) CountActiveByCategory(ctx context.Context) (map[models.AnnouncementCategory]int64, error) {
	var rows []struct {
		Category models.AnnouncementCategory
		Count    int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Announcement{}).
		Select("category, COUNT(*) AS count").
		Where("is_active = ?", true).
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to count announcements")
	}

	counts := make(map[models.AnnouncementCategory]int64, len(rows))
	for _, row := range rows {
		counts[row.Category] = row.Count
	}
	return counts, nil
}

type feedbackRepository struct {
	db *gorm.DB
}

func (r *feedbackRepository) Create(ctx context.Context, feedback *models.Feedback) error {
	if err := r.db.WithContext(ctx).Create(feedback).Error; err != nil {
		return duplicate(err, "failed to create feedback")
	}
	return nil
}

func (r *feedbackRepository) ListByCitizen(ctx context.Context, citizenID uint) ([]models.Feedback, error) {
	var feedback []models.Feedback
	err := r.db.WithContext(ctx).
		Where("citizen_id = ?", citizenID).
		Order("created_at DESC, id DESC").
		Find(&feedback).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list citizen feedback")
	}
	return feedback, nil
}

func (r *feedbackRepository) List(ctx context.Context, skip, limit int) ([]models.Feedback, error) {
	var feedback []models.Feedback
	if err := paginate(r.db.WithContext(ctx).Order("created_at DESC, id DESC"), skip, limit).Find(&feedback).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list feedback")
	}
	return feedback, nil
}

func (r *feedbackRepository) RatingCounts(ctx context.Context) (map[int]int64, error) {
	var rows []struct {
		Rating int
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Feedback{}).
		Select("rating, COUNT(*) AS count").
		Group("rating").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to count feedback ratings")
	}

	counts := make(map[int]int64, len(rows))
	for _, row := range rows {
		counts[row.Rating] = row.Count
	}
	return counts, nil
}

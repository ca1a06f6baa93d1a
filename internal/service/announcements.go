package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"municipality/internal/apperr"
	"municipality/internal/events"
	"municipality/internal/models"
)

const (
	defaultAnnouncementLimit = 50
	defaultPublicLimit       = 10
	defaultEventWindowDays   = 7
	maxEventWindowDays       = 30
	homepageSectionLimit     = 5
)

// AnnouncementService publishes municipal news, events and notices and
// serves the public views over them
type AnnouncementService struct {
	Deps
	notifier Notifier
	logger   *zap.Logger
}

// NewAnnouncementService creates an announcement service
func NewAnnouncementService(deps Deps, notifier Notifier) *AnnouncementService {
	deps = deps.withDefaults()
	return &AnnouncementService{
		Deps:     deps,
		notifier: notifier,
		logger:   deps.Logger.Named("announcement_service"),
	}
}

// Create publishes an announcement written by employeeID. HIGH and URGENT
// announcements are also sent to every active citizen as a notification.
func (s *AnnouncementService) Create(ctx context.Context, employeeID uint, payload models.CreateAnnouncementPayload) (*models.Announcement, error) {
	if !payload.Category.Valid() {
		return nil, apperr.Validation("Invalid announcement category: %s", payload.Category)
	}
	priority := payload.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if priority.Rank() == 0 {
		return nil, apperr.Validation("Invalid announcement priority: %s", priority)
	}

	announcement := &models.Announcement{
		Title:         strings.TrimSpace(payload.Title),
		Content:       payload.Content,
		Category:      payload.Category,
		Priority:      priority,
		IssueDate:     s.Clock(),
		ExpiryDate:    payload.ExpiryDate,
		IsActive:      true,
		CreatedBy:     employeeID,
		EventDate:     payload.EventDate,
		EventLocation: payload.EventLocation,
	}
	if err := s.Store.Announcements().Create(ctx, announcement); err != nil {
		return nil, storeErr(err, "failed to create announcement")
	}

	s.logger.Info("Announcement created",
		zap.Uint("announcement_id", announcement.ID),
		zap.String("category", string(announcement.Category)),
		zap.String("priority", string(announcement.Priority)))
	s.publish(ctx, events.AnnouncementPublished, announcementKey(announcement.ID), announcement)

	if priority.Broadcast() {
		s.broadcast(ctx, announcement)
	}
	return announcement, nil
}

// broadcast notifies every citizen with an active account
func (s *AnnouncementService) broadcast(ctx context.Context, announcement *models.Announcement) {
	citizens, err := s.Store.Citizens().ListActiveIDs(ctx)
	if err != nil {
		s.logger.Warn("Failed to list citizens for broadcast",
			zap.Uint("announcement_id", announcement.ID),
			zap.Error(err))
		return
	}
	for _, citizenID := range citizens {
		s.notifier.Notify(ctx, announcementNotice(citizenID, announcement))
	}
	s.logger.Info("Announcement broadcast",
		zap.Uint("announcement_id", announcement.ID),
		zap.Int("recipients", len(citizens)))
}

// Active lists unexpired announcements, most important first. A nil
// category lists every category.
func (s *AnnouncementService) Active(ctx context.Context, category *models.AnnouncementCategory, skip, limit int) ([]models.Announcement, error) {
	now := s.Clock()
	filter := models.AnnouncementFilter{UnexpiredAt: &now, Order: models.OrderByPriority}
	if category != nil {
		if !category.Valid() {
			return nil, apperr.Validation("Invalid announcement category: %s", *category)
		}
		filter.Categories = []models.AnnouncementCategory{*category}
	}
	if limit <= 0 {
		limit = defaultAnnouncementLimit
	}
	filter.Skip, filter.Limit = clampPage(skip, limit)
	return s.list(ctx, filter)
}

// UpcomingEvents lists events taking place within the next days. days
// outside 1..30 falls back to a week.
func (s *AnnouncementService) UpcomingEvents(ctx context.Context, days int) ([]models.Announcement, error) {
	if days < 1 || days > maxEventWindowDays {
		days = defaultEventWindowDays
	}
	now := s.Clock()
	until := now.AddDate(0, 0, days)
	return s.list(ctx, models.AnnouncementFilter{
		Categories: []models.AnnouncementCategory{models.AnnouncementEvent},
		EventFrom:  &now,
		EventTo:    &until,
		Order:      models.OrderByEventDate,
	})
}

// Get returns an active announcement with the name of its author
func (s *AnnouncementService) Get(ctx context.Context, id uint) (*models.AnnouncementDetail, error) {
	announcement, err := s.Store.Announcements().GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Announcement not found")
	}
	if !announcement.IsActive {
		return nil, apperr.NotFound("Announcement not found")
	}

	detail := &models.AnnouncementDetail{Announcement: *announcement}
	if name := employeeName(ctx, s.Store, &announcement.CreatedBy); name != nil {
		detail.CreatedByName = *name
	}
	return detail, nil
}

// Update changes the fields set in payload
func (s *AnnouncementService) Update(ctx context.Context, id uint, payload models.UpdateAnnouncementPayload) (*models.Announcement, error) {
	announcement, err := s.Store.Announcements().GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Announcement not found")
	}

	if payload.Title != nil {
		announcement.Title = strings.TrimSpace(*payload.Title)
	}
	if payload.Content != nil {
		announcement.Content = *payload.Content
	}
	if payload.Category != nil {
		if !payload.Category.Valid() {
			return nil, apperr.Validation("Invalid announcement category: %s", *payload.Category)
		}
		announcement.Category = *payload.Category
	}
	if payload.Priority != nil {
		if payload.Priority.Rank() == 0 {
			return nil, apperr.Validation("Invalid announcement priority: %s", *payload.Priority)
		}
		announcement.Priority = *payload.Priority
	}
	if payload.ExpiryDate != nil {
		announcement.ExpiryDate = payload.ExpiryDate
	}
	if payload.IsActive != nil {
		announcement.IsActive = *payload.IsActive
	}
	if payload.EventDate != nil {
		announcement.EventDate = payload.EventDate
	}
	if payload.EventLocation != nil {
		announcement.EventLocation = payload.EventLocation
	}

	if err := s.Store.Announcements().Update(ctx, announcement); err != nil {
		return nil, storeErr(err, "failed to update announcement")
	}
	s.logger.Info("Announcement updated", zap.Uint("announcement_id", id))
	return announcement, nil
}

// Deactivate hides an announcement from every listing
func (s *AnnouncementService) Deactivate(ctx context.Context, id uint) error {
	announcement, err := s.Store.Announcements().GetByID(ctx, id)
	if err != nil {
		return lookupErr(err, "Announcement not found")
	}
	announcement.IsActive = false
	if err := s.Store.Announcements().Update(ctx, announcement); err != nil {
		return storeErr(err, "failed to deactivate announcement")
	}
	s.logger.Info("Announcement deactivated", zap.Uint("announcement_id", id))
	return nil
}

// Homepage collects the sections of the public landing page
func (s *AnnouncementService) Homepage(ctx context.Context) (*models.Homepage, error) {
	now := s.Clock()
	weekAgo := now.AddDate(0, 0, -7)
	monthAhead := now.AddDate(0, 0, maxEventWindowDays)

	page := &models.Homepage{LastUpdated: now}
	sections := []struct {
		into   *[]models.Announcement
		filter models.AnnouncementFilter
	}{
		{&page.LatestNews, models.AnnouncementFilter{Categories: categories(models.AnnouncementNews), IssuedSince: &weekAgo}},
		{&page.UpcomingEvents, models.AnnouncementFilter{Categories: categories(models.AnnouncementEvent), EventFrom: &now, EventTo: &monthAhead, Order: models.OrderByEventDate}},
		{&page.UrgentAnnouncements, models.AnnouncementFilter{Priorities: []models.AnnouncementPriority{models.PriorityUrgent}}},
		{&page.EmergencyNotices, models.AnnouncementFilter{Categories: categories(models.AnnouncementEmergency)}},
		{&page.RecentTenders, models.AnnouncementFilter{Categories: categories(models.AnnouncementTender)}},
		{&page.MaintenanceNotices, models.AnnouncementFilter{Categories: categories(models.AnnouncementMaintenance)}},
	}
	for _, section := range sections {
		filter := section.filter
		filter.UnexpiredAt = &now
		filter.Limit = homepageSectionLimit
		announcements, err := s.list(ctx, filter)
		if err != nil {
			return nil, err
		}
		*section.into = announcements
	}
	return page, nil
}

// News lists news issued within the last days
func (s *AnnouncementService) News(ctx context.Context, days, limit int) ([]models.Announcement, error) {
	if days <= 0 {
		days = defaultEventWindowDays
	}
	now := s.Clock()
	since := now.AddDate(0, 0, -days)
	return s.list(ctx, models.AnnouncementFilter{
		Categories:  categories(models.AnnouncementNews),
		IssuedSince: &since,
		UnexpiredAt: &now,
		Limit:       publicLimit(limit),
	})
}

// Events lists events by date. upcomingOnly drops events already held.
func (s *AnnouncementService) Events(ctx context.Context, upcomingOnly bool, limit int) ([]models.Announcement, error) {
	filter := models.AnnouncementFilter{
		Categories: categories(models.AnnouncementEvent),
		Order:      models.OrderByEventDate,
		Limit:      publicLimit(limit),
	}
	if upcomingOnly {
		now := s.Clock()
		filter.EventFrom = &now
	}
	return s.list(ctx, filter)
}

// Tenders lists tenders. activeOnly drops expired tenders.
func (s *AnnouncementService) Tenders(ctx context.Context, activeOnly bool, limit int) ([]models.Announcement, error) {
	filter := models.AnnouncementFilter{
		Categories: categories(models.AnnouncementTender),
		Limit:      publicLimit(limit),
	}
	if activeOnly {
		now := s.Clock()
		filter.UnexpiredAt = &now
	}
	return s.list(ctx, filter)
}

// Emergencies lists emergency notices and urgent notices of other
// categories, each up to limit
func (s *AnnouncementService) Emergencies(ctx context.Context, limit int) (*models.EmergencyNotices, error) {
	if limit <= 0 {
		limit = homepageSectionLimit
	}
	now := s.Clock()

	emergencies, err := s.list(ctx, models.AnnouncementFilter{
		Categories:  categories(models.AnnouncementEmergency),
		UnexpiredAt: &now,
		Order:       models.OrderByPriority,
		Limit:       limit,
	})
	if err != nil {
		return nil, err
	}
	urgent, err := s.list(ctx, models.AnnouncementFilter{
		ExcludeCategory: models.AnnouncementEmergency,
		Priorities:      []models.AnnouncementPriority{models.PriorityUrgent},
		UnexpiredAt:     &now,
		Limit:           limit,
	})
	if err != nil {
		return nil, err
	}

	return &models.EmergencyNotices{
		Emergencies: emergencies,
		Urgent:      urgent,
		Total:       len(emergencies) + len(urgent),
	}, nil
}

// Statistics counts active announcements per category, listing every
// category even when it has none
func (s *AnnouncementService) Statistics(ctx context.Context) (*models.AnnouncementStatistics, error) {
	counts, err := s.Store.Announcements().CountActiveByCategory(ctx)
	if err != nil {
		return nil, storeErr(err, "failed to count announcements")
	}

	stats := &models.AnnouncementStatistics{ByCategory: make(map[models.AnnouncementCategory]int64, len(models.AnnouncementCategories))}
	for _, category := range models.AnnouncementCategories {
		stats.ByCategory[category] = counts[category]
		stats.TotalActive += counts[category]
	}
	return stats, nil
}

func (s *AnnouncementService) list(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, error) {
	announcements, err := s.Store.Announcements().ListActive(ctx, filter)
	if err != nil {
		return nil, storeErr(err, "failed to list announcements")
	}
	return announcements, nil
}

func categories(c ...models.AnnouncementCategory) []models.AnnouncementCategory {
	return c
}

func publicLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return defaultPublicLimit
	}
	return limit
}

func announcementKey(id uint) string {
	return fmt.Sprintf("announcement-%d", id)
}

// announcementNotice tells a citizen about a high priority announcement
func announcementNotice(citizenID uint, announcement *models.Announcement) models.Notification {
	return models.Notification{
		CitizenID:        citizenID,
		Title:            announcement.Title,
		Message:          fmt.Sprintf("[%s] %s", announcement.Category, summarize(announcement.Content, 200)),
		NotificationType: models.NotificationAnnouncement,
		AnnouncementID:   uintPtr(announcement.ID),
	}
}

// summarize cuts text to at most n runes
func summarize(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}

package service

import (
	"context"
	"fmt"

	"turnstile/internal/logger"
	"turnstile/internal/models"
	"turnstile/internal/repository"
	"turnstile/internal/search"
)

// EventService serves the catalog surface. Postgres is the source of truth;
// Elasticsearch provides ranked text search and is updated best-effort on
// writes.
type EventService struct {
	eventRepo     *repository.EventRepository
	inventoryRepo *repository.InventoryRepository
	es            *search.ElasticsearchClient
}

func NewEventService(eventRepo *repository.EventRepository, inventoryRepo *repository.InventoryRepository, es *search.ElasticsearchClient) *EventService {
	return &EventService{
		eventRepo:     eventRepo,
		inventoryRepo: inventoryRepo,
		es:            es,
	}
}

func (s *EventService) Create(ctx context.Context, req *models.CreateEventRequest) (*models.CreateEventResponse, error) {
	eventType := req.Type
	if eventType == "" {
		eventType = "concert"
	}

	event := &models.Event{
		Title:         req.Title,
		Description:   req.Description,
		Type:          eventType,
		DatetimeStart: req.DatetimeStart,
		Venue:         req.Venue,
		Artist:        req.Artist,
	}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	if err := s.inventoryRepo.CreateCategories(ctx, event.ID, req.Categories); err != nil {
		return nil, fmt.Errorf("failed to create categories: %w", err)
	}

	if s.es != nil {
		if err := s.es.IndexEvent(ctx, event); err != nil {
			// Search lags behind the catalog until the next index write;
			// the event itself is fully created
			logger.WithContext(ctx).Error("Failed to index event",
				"error", err,
				"event_id", event.ID)
		}
	}

	return &models.CreateEventResponse{ID: event.ID}, nil
}

func (s *EventService) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	return s.eventRepo.GetByID(ctx, id)
}

func (s *EventService) List(ctx context.Context, query string, page, pageSize int) (models.ListEventsResponse, error) {
	var (
		events []models.Event
		err    error
	)

	if s.es != nil {
		events, err = s.es.Search(ctx, query, page, pageSize)
		if err != nil {
			logger.WithContext(ctx).Error("Search index unavailable, falling back to database",
				"error", err)
			events, err = s.eventRepo.List(ctx, query, page, pageSize)
		}
	} else {
		events, err = s.eventRepo.List(ctx, query, page, pageSize)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	result := make(models.ListEventsResponse, len(events))
	for i, event := range events {
		result[i] = models.ListEventsResponseItem{
			ID:            event.ID,
			Title:         event.Title,
			Venue:         event.Venue,
			Artist:        event.Artist,
			DatetimeStart: event.DatetimeStart,
		}
	}

	return result, nil
}

func (s *EventService) ListCategories(ctx context.Context, eventID int64) (models.ListCategoriesResponse, error) {
	categories, err := s.inventoryRepo.ListCategories(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	result := make(models.ListCategoriesResponse, len(categories))
	for i, ec := range categories {
		result[i] = models.ListCategoriesResponseItem{
			Category:      ec.Category,
			UnitPrice:     ec.UnitPrice,
			TotalCapacity: ec.TotalCapacity,
			Remaining:     ec.Remaining,
		}
	}

	return result, nil
}

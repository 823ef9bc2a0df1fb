// Package storage is the durable store behind the request hub. Every status
// change is a conditional UPDATE so concurrent processes need no shared lock.
package storage

import (
	"context"
	"errors"
	"fmt"

	"floodrescue/backend/internal/apperr"
	"floodrescue/backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type Storage interface {
	CreateRequest(ctx context.Context, r *models.Request) error
	GetRequest(ctx context.Context, id string) (*models.Request, error)
	ListRequests(ctx context.Context) ([]models.Request, error)
	FindRequestsByPhone(ctx context.Context, phone string) ([]models.Request, error)
	CountRequests(ctx context.Context) (int64, error)

	// UpdateRequestIf writes columns of r only while the stored status is
	// still expected. It reports whether the row was written.
	UpdateRequestIf(ctx context.Context, r *models.Request, expected models.Status, columns ...string) (bool, error)
	// DeleteRequestIf removes the request and its chat log only while the
	// stored status is still expected.
	DeleteRequestIf(ctx context.Context, id string, expected models.Status) (bool, error)

	AppendMessage(ctx context.Context, msg *models.ChatMessage) error

	CreateResponder(ctx context.Context, p *models.ResponderProfile) error
	GetResponder(ctx context.Context, id string) (*models.ResponderProfile, error)
	UpdateResponder(ctx context.Context, p *models.ResponderProfile, columns ...string) error
}

type Service struct {
	DB *gorm.DB
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// Open connects to the database selected by driver ("postgres" or "sqlite").
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// One connection keeps in-memory databases shared and serialises writers.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// AutoMigrate creates or updates the tables of every stored model.
func (s *Service) AutoMigrate() error {
	return s.DB.AutoMigrate(
		&models.Request{},
		&models.ChatMessage{},
		&models.ResponderProfile{},
	)
}

func byTimestamp(desc bool) clause.OrderByColumn {
	return clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: desc}
}

// withMessages preloads the chat log in display order.
func withMessages(db *gorm.DB) *gorm.DB {
	return db.Preload("Messages", func(tx *gorm.DB) *gorm.DB {
		return tx.Order(byTimestamp(false)).Order("id asc")
	})
}

// notFound maps gorm.ErrRecordNotFound to apperr.ErrNotFound.
func notFound(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Wrap(apperr.KindNotFound, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

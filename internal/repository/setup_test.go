package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/healthythako/booking-service/internal/model"
	"github.com/healthythako/booking-service/pkg/pg"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *pg.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        pg.UTCNow,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(Tables()...))
	return pg.NewFromGorm(db, db)
}

func newBooking(clientID, providerID uuid.UUID, status model.BookingStatus) *model.Booking {
	return &model.Booking{
		ClientID:        clientID,
		ProviderID:      providerID,
		ProviderType:    model.ProviderTrainer,
		ScheduledAt:     time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		DurationMinutes: 60,
		SessionMode:     model.SessionInPerson,
		PackageType:     "single",
		Amount:          decimal.NewFromInt(1000),
		Status:          status,
	}
}

func mustCreateBooking(t *testing.T, repo *BookingRepository, b *model.Booking) *model.Booking {
	created, err := repo.Create(context.Background(), b)
	require.NoError(t, err)
	return created
}

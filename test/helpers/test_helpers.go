package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/healthythako/booking-service/internal/auth"
	"github.com/healthythako/booking-service/internal/model"
	"github.com/healthythako/booking-service/internal/repository"
	"github.com/healthythako/booking-service/pkg/pg"
	"github.com/healthythako/booking-service/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	TestJWTSecret = "test-secret"
	TestJWTIssuer = "test"
)

func SetupTestDB(t *testing.T) *pg.DB {
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

	require.NoError(t, db.AutoMigrate(repository.Tables()...))
	return pg.NewFromGorm(db, db)
}

// SetupTestRedis starts a miniredis and returns an adapter bound to it.
// Adapters are cached by name, so every test gets its own.
func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr := miniredis.RunT(t)

	adapter, err := redis.NewRedisAdapter(t.Name()+"-"+mr.Addr(), "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = adapter.Client().Close() })

	return mr, adapter
}

func NewSession(role model.Role) *model.Session {
	id := uuid.New()
	return &model.Session{
		UserID: id,
		Role:   role,
		Email:  id.String()[:8] + "@example.com",
	}
}

func IssueToken(t *testing.T, s *model.Session) string {
	token, err := auth.New(TestJWTSecret, TestJWTIssuer).Issue(*s, time.Hour)
	require.NoError(t, err)
	return token
}

func CreateTestBooking(t *testing.T, db *pg.DB, b *model.Booking) *model.Booking {
	created, err := repository.NewBookingRepository(db).Create(context.Background(), b)
	require.NoError(t, err)
	return created
}

func CreateTestTransaction(t *testing.T, db *pg.DB, txn *model.Transaction) *model.Transaction {
	created, err := repository.NewTransactionRepository(db).Create(context.Background(), txn)
	require.NoError(t, err)
	return created
}

func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func AssertEventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	if !WaitForCondition(t, timeout, condition) {
		t.Fatal(msg)
	}
}

func ContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func Ptr[T any](v T) *T {
	return &v
}

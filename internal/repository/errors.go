package repository

import "errors"

var (
	ErrNotFound         = errors.New("record not found")
	ErrConcurrentUpdate = errors.New("concurrent update detected")
	ErrDuplicate        = errors.New("record already exists")
)

// Tables lists every entity, in dependency order, for AutoMigrate in tests.
func Tables() []any {
	return []any{
		&BookingEntity{},
		&ReviewEntity{},
		&TransactionEntity{},
		&NotificationEntity{},
		&OutboxEntity{},
	}
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

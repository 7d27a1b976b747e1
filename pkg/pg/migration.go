package pg

import (
	"io/fs"

	"github.com/healthythako/booking-service/pkg/logger"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
)

// Migrate applies every pending goose migration found in dir. When migrations
// is non-nil, dir is resolved inside that filesystem instead of on disk.
func Migrate(cfg Config, migrations fs.FS, dir string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "goose dialect")
	}
	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{})

	db, err := newSqlConnection(cfg)
	if err != nil {
		return errors.Wrap(err, "open postgres")
	}
	defer db.Close()

	if err = goose.Up(db, dir); err != nil {
		return errors.Wrap(err, "goose up")
	}
	version, err := goose.GetDBVersion(db)
	if err == nil {
		logger.Info("migrations applied", "version", version)
	}
	return nil
}

type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...interface{}) {
	logger.GetLogger().Printf(format, v...)
}

func (gooseLogger) Fatalf(format string, v ...interface{}) {
	logger.Panic("goose fatal", "detail", format, "args", v)
}

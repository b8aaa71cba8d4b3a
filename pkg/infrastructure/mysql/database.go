package mysql

import (
	"context"
	"embed"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const (
	errDuplicateEntry = 1062
	orderNumberKey    = "uq_order_number"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Config struct {
	User     string
	Password string
	Host     string
	Name     string
	MaxConn  int
}

func Open(cfg Config) (*sqlx.DB, error) {
	dsn := mysql.NewConfig()
	dsn.User = cfg.User
	dsn.Passwd = cfg.Password
	dsn.Net = "tcp"
	dsn.Addr = cfg.Host
	dsn.DBName = cfg.Name
	dsn.ParseTime = true
	dsn.MultiStatements = true
	dsn.Loc = time.UTC

	db, err := sqlx.Open("mysql", dsn.FormatDSN())
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	db.SetMaxOpenConns(cfg.MaxConn)
	db.SetMaxIdleConns(cfg.MaxConn)
	db.SetConnMaxLifetime(time.Hour)
	return db, nil
}

// Migrate applies every embedded migration that has not run yet.
func Migrate(db *sqlx.DB) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return errors.Wrap(err, "failed to load migrations")
	}
	driver, err := migratemysql.WithInstance(db.DB, &migratemysql.Config{})
	if err != nil {
		return errors.Wrap(err, "failed to create migration driver")
	}
	m, err := migrate.NewWithInstance("iofs", source, "mysql", driver)
	if err != nil {
		return errors.Wrap(err, "failed to create migrator")
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "failed to apply migrations")
	}
	return nil
}

func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = errors.Wrap(tx.Commit(), "failed to commit transaction")
	}()

	return fn(tx)
}

func isDuplicateKey(err error, key string) bool {
	var mysqlErr *mysql.MySQLError
	if !errors.As(err, &mysqlErr) {
		return false
	}
	return mysqlErr.Number == errDuplicateEntry && strings.Contains(mysqlErr.Message, key)
}

package db

import (
  "fmt"
  "strings"
  "gorm.io/driver/postgres"
  "gorm.io/driver/sqlite"
  "gorm.io/gorm"
  "github.com/metroflow/induction-backend/internal/types"
  "github.com/metroflow/induction-backend/internal/utils"
  "github.com/metroflow/induction-backend/internal/logger"
)

type Service struct {
  db  *gorm.DB
  log *logger.Logger
}

// NewService connects to the configured database. Postgres is the
// production dialect; DB_DRIVER=sqlite switches to a file (or in-memory)
// database for local runs and tests.
func NewService(log *logger.Logger) (*Service, error) {
  serviceLog := log.With("service", "DBService")

  driver := strings.ToLower(utils.GetEnv("DB_DRIVER", "postgres", log))

  var (
    conn *gorm.DB
    err  error
  )
  switch driver {
  case "sqlite":
    dsn := utils.GetEnv("SQLITE_DSN", "file::memory:?cache=shared", log)
    log.Info("Connecting to SQLite...", "dsn", dsn)
    conn, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{})
  default:
    postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
    postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
    postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
    postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
    postgresName := utils.GetEnv("POSTGRES_NAME", "induction", log)

    dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)
    log.Info("Connecting to Postgres...")
    conn, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
      DisableForeignKeyConstraintWhenMigrating: true,
    })
  }
  if err != nil {
    log.Error("Failed to connect to database", "driver", driver, "error", err)
    return nil, fmt.Errorf("Failed to connect to database: %w", err)
  }

  return &Service{db: conn, log: serviceLog}, nil
}

func (s *Service) AutoMigrateAll() error {
  s.log.Info("Auto migrating tables...")
  err := s.db.AutoMigrate(
    &types.AuditRecord{},
  )
  if err != nil {
    s.log.Error("Auto migration failed", "error", err)
    return err
  }
  return nil
}

func (s *Service) DB() *gorm.DB {
  return s.db
}

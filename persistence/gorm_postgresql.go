// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wfunc/gombiful/logger"
	"github.com/wfunc/gombiful/models"
	"github.com/wfunc/gombiful/store"
)

// GormPostgreSQL keeps session documents in a JSONB column and applies
// patches with jsonb_set in a single UPDATE.
type GormPostgreSQL struct {
	db          *gorm.DB
	notifier    *Notifier
	idleTimeout time.Duration
}

// gormWriter routes gorm's logger through zap.
type gormWriter struct{}

func (gormWriter) Printf(format string, args ...interface{}) {
	logger.Log.Infof(format, args...)
}

// Open connects with the pool settings used by the server.
func Open(opts Options) (*gorm.DB, error) {
	gormLogger := gormlogger.New(gormWriter{}, gormlogger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
	db, err := gorm.Open(postgres.Open(opts.ConnString()), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	maxOpen := opts.MaxOpenConn
	if maxOpen <= 0 {
		maxOpen = 25
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db, nil
}

// NewGormPostgreSQL connects, migrates the schema and starts listening for
// document changes.
func NewGormPostgreSQL(opts Options) (*GormPostgreSQL, error) {
	db, err := Open(opts)
	if err != nil {
		return nil, err
	}
	if err := AutoMigrate(db); err != nil {
		closeDB(db)
		return nil, err
	}

	p := &GormPostgreSQL{db: db, idleTimeout: opts.IdleTimeout}
	p.notifier, err = NewNotifier(opts.ConnString(), p.snapshot)
	if err != nil {
		closeDB(db)
		return nil, err
	}
	return p, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// AutoMigrate creates the tables and the change-notification trigger.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.GormGameDocument{}, &models.GormGameRecord{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := db.Exec(notifyTriggerSQL).Error; err != nil {
		return fmt.Errorf("install notify trigger: %w", err)
	}
	return nil
}

const notifyTriggerSQL = `
CREATE OR REPLACE FUNCTION gombiful_notify_game() RETURNS trigger AS $$
BEGIN
	IF TG_OP = 'DELETE' THEN
		PERFORM pg_notify('` + NotifyChannel + `', OLD.room_code);
	ELSE
		PERFORM pg_notify('` + NotifyChannel + `', NEW.room_code);
	END IF;
	RETURN NULL;
END;
$$ LANGUAGE plpgsql;
DROP TRIGGER IF EXISTS games_notify ON games;
CREATE TRIGGER games_notify AFTER INSERT OR UPDATE OR DELETE ON games
	FOR EACH ROW EXECUTE FUNCTION gombiful_notify_game();`

func (p *GormPostgreSQL) Get(ctx context.Context, code string) (*models.GameSession, error) {
	var row models.GormGameDocument
	if err := p.db.WithContext(ctx).Where("room_code = ?", code).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	doc := row.Data
	doc.Normalize()
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (p *GormPostgreSQL) Create(ctx context.Context, doc *models.GameSession) error {
	doc.Normalize()
	if err := doc.Validate(); err != nil {
		return err
	}
	row := models.GormGameDocument{RoomCode: doc.RoomCode, Data: *doc}
	result := p.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return store.ErrExists
	}
	return nil
}

func (p *GormPostgreSQL) Update(ctx context.Context, code string, patch store.Patch) error {
	expr, args, err := BuildPatchExpr(patch)
	if err != nil {
		return err
	}
	args = append(args, time.Now(), code)
	result := p.db.WithContext(ctx).Exec(
		"UPDATE games SET data = "+expr+", updated_at = ? WHERE room_code = ?", args...)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (p *GormPostgreSQL) Delete(ctx context.Context, code string) error {
	return p.db.WithContext(ctx).Where("room_code = ?", code).Delete(&models.GormGameDocument{}).Error
}

func (p *GormPostgreSQL) Subscribe(ctx context.Context, code string) (<-chan store.Snapshot, error) {
	feed := store.NewFeed()
	p.notifier.Add(code, feed)
	feed.Push(p.snapshot(ctx, code))

	go func() {
		<-ctx.Done()
		p.notifier.Remove(code, feed)
		feed.Close()
	}()
	return feed.C(), nil
}

func (p *GormPostgreSQL) snapshot(ctx context.Context, code string) store.Snapshot {
	doc, err := p.Get(ctx, code)
	return store.Snapshot{Session: doc, Err: err}
}

// Reap deletes sessions idle for longer than the idle timeout.
func (p *GormPostgreSQL) Reap(ctx context.Context) (int, error) {
	if p.idleTimeout <= 0 {
		return 0, nil
	}
	result := p.db.WithContext(ctx).
		Where("updated_at < ?", time.Now().Add(-p.idleTimeout)).
		Delete(&models.GormGameDocument{})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		logger.Log.Infow("reaped idle sessions", "count", result.RowsAffected)
	}
	return int(result.RowsAffected), nil
}

// SaveResult appends a finished game to game_records.
func (p *GormPostgreSQL) SaveResult(ctx context.Context, rec *models.GormGameRecord) error {
	return p.db.WithContext(ctx).Create(rec).Error
}

// ListResults returns the newest records first.
func (p *GormPostgreSQL) ListResults(ctx context.Context, limit int) ([]models.GormGameRecord, error) {
	var out []models.GormGameRecord
	q := p.db.WithContext(ctx).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	p.notifier.Close()
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// BuildPatchExpr turns a patch into one nested jsonb expression over the
// data column, with its bind arguments in placeholder order.
func BuildPatchExpr(patch store.Patch) (string, []interface{}, error) {
	expr := "data"
	var args []interface{}
	for _, op := range patch {
		if len(op.Path) == 0 {
			return "", nil, errors.New("persistence: empty patch path")
		}
		for _, part := range op.Path {
			if part == "" || strings.Contains(part, ".") {
				return "", nil, fmt.Errorf("persistence: invalid path segment %q", part)
			}
		}
		if op.Delete {
			expr = fmt.Sprintf("(%s #- string_to_array(?, '.'))", expr)
			args = append(args, op.Path.String())
			continue
		}
		val, err := op.Encode()
		if err != nil {
			return "", nil, fmt.Errorf("persistence: encode %s: %w", op.Path, err)
		}
		expr = fmt.Sprintf("jsonb_set(%s, string_to_array(?, '.'), CAST(? AS jsonb), true)", expr)
		args = append(args, op.Path.String(), string(val))
	}
	return expr, args, nil
}

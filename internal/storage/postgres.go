package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/op-quiz-backend/internal/player"
)

type playerRow struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	Score     int    `gorm:"not null;default:0"`
	Correct   int    `gorm:"not null;default:0"`
	Attempted int    `gorm:"not null;default:0"`
}

func (playerRow) TableName() string { return "players" }

// Postgres runs gorm on top of a pgx connection pool.
type Postgres struct {
	pool  *pgxpool.Pool
	sqlDB *sql.DB
	db    *gorm.DB
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		sqlDB.Close()
		pool.Close()
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	if err := db.WithContext(ctx).AutoMigrate(&playerRow{}); err != nil {
		sqlDB.Close()
		pool.Close()
		return nil, fmt.Errorf("migrate players: %w", err)
	}

	return &Postgres{pool: pool, sqlDB: sqlDB, db: db}, nil
}

func (p *Postgres) ReadAll(ctx context.Context) ([]player.Player, error) {
	var rows []playerRow
	if err := p.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}

	players := make([]player.Player, 0, len(rows))
	for _, r := range rows {
		players = append(players, player.Player(r))
	}
	return players, nil
}

func (p *Postgres) WriteAll(ctx context.Context, players []player.Player) error {
	rows := make([]playerRow, 0, len(players))
	for _, pl := range players {
		rows = append(rows, playerRow(pl))
	}

	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&playerRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}

func (p *Postgres) Close() error {
	err := p.sqlDB.Close()
	p.pool.Close()
	return err
}

package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq"

	"github.com/wfunc/gravesugoroku/models"
)

// PostgreSQL 数据库实现
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 初始化表结构
	if err := initTables(ctx, db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS rounds (
            id SERIAL PRIMARY KEY,
            table_id VARCHAR(64) NOT NULL,
            turn INTEGER NOT NULL,
            player INTEGER NOT NULL,
            total_steps INTEGER NOT NULL DEFAULT 0,
            counts JSONB NOT NULL,
            fallen INTEGER NOT NULL DEFAULT 0,
            reason VARCHAR(32) NOT NULL DEFAULT '',
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS matches (
            id SERIAL PRIMARY KEY,
            table_id VARCHAR(64) UNIQUE NOT NULL,
            player_count INTEGER NOT NULL,
            winner INTEGER NOT NULL,
            turns INTEGER NOT NULL DEFAULT 0,
            started_at TIMESTAMP NOT NULL,
            finished_at TIMESTAMP NOT NULL
        )
    `)
	return err
}

// SaveRound 保存投掷记录
func (p *PostgreSQL) SaveRound(ctx context.Context, rec models.RoundRecord) error {
	counts, err := json.Marshal(rec.Counts)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
        INSERT INTO rounds (table_id, turn, player, total_steps, counts, fallen, reason)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, rec.TableID, rec.Turn, rec.Player, rec.TotalSteps, counts, rec.Fallen, rec.Reason)
	return err
}

// SaveMatch 保存比赛结果
func (p *PostgreSQL) SaveMatch(ctx context.Context, rec models.MatchRecord) error {
	_, err := p.db.ExecContext(ctx, `
        INSERT INTO matches (table_id, player_count, winner, turns, started_at, finished_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (table_id) DO NOTHING
    `, rec.TableID, rec.PlayerCount, rec.Winner, rec.Turns, rec.StartedAt, rec.FinishedAt)
	return err
}

// ListMatches 最近的比赛
func (p *PostgreSQL) ListMatches(ctx context.Context, limit int) ([]models.MatchRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
        SELECT table_id, player_count, winner, turns, started_at, finished_at
        FROM matches ORDER BY finished_at DESC LIMIT $1
    `, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MatchRecord
	for rows.Next() {
		var m models.MatchRecord
		if err := rows.Scan(&m.TableID, &m.PlayerCount, &m.Winner, &m.Turns, &m.StartedAt, &m.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}

package persistence

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wfunc/gravesugoroku/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold: time.Second,   // 慢SQL阈值
			LogLevel:      logger.Silent, // 日志级别
			Colorful:      false,         // 禁用彩色打印
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	// 获取通用数据库对象 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := db.AutoMigrate(&models.GormRound{}, &models.GormMatch{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

// SaveRound 保存投掷记录
func (p *GormPostgreSQL) SaveRound(ctx context.Context, rec models.RoundRecord) error {
	round := models.NewGormRound(rec)
	return p.db.WithContext(ctx).Create(&round).Error
}

// SaveMatch 保存比赛结果
func (p *GormPostgreSQL) SaveMatch(ctx context.Context, rec models.MatchRecord) error {
	match := models.NewGormMatch(rec)
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rounds int64
		if err := tx.Model(&models.GormRound{}).Where("table_id = ?", rec.TableID).Count(&rounds).Error; err != nil {
			return err
		}
		if match.Turns == 0 {
			match.Turns = int(rounds)
		}
		return tx.Create(&match).Error
	})
}

// ListMatches 最近的比赛
func (p *GormPostgreSQL) ListMatches(ctx context.Context, limit int) ([]models.MatchRecord, error) {
	var rows []models.GormMatch
	err := p.db.WithContext(ctx).
		Order("finished_at DESC").
		Limit(clampLimit(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]models.MatchRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Record())
	}
	return out, nil
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

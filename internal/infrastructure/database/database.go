package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/wolfitem/news-collector/internal/infrastructure/logger"
)

// Database 定义数据库接口
type Database interface {
	// Init 初始化数据库
	Init() error
	// Close 关闭数据库连接
	Close() error
	// Exec 执行SQL语句
	Exec(query string, args ...interface{}) (sql.Result, error)
	// QueryRow 查询单行数据
	QueryRow(query string, args ...interface{}) *sql.Row
	// InTx 在事务中执行fn，fn返回错误时回滚
	InTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// SQLiteDatabase 实现Database接口的SQLite数据库
type SQLiteDatabase struct {
	db         *sql.DB
	dbFilePath string
}

// NewSQLiteDatabase 创建一个新的SQLite数据库实例
func NewSQLiteDatabase(dbFilePath string) *SQLiteDatabase {
	return &SQLiteDatabase{
		dbFilePath: dbFilePath,
	}
}

// Init 打开数据库并创建文章索引表
func (s *SQLiteDatabase) Init() error {
	logger.Info("初始化文章索引库", "db_path", s.dbFilePath)

	if err := os.MkdirAll(filepath.Dir(s.dbFilePath), 0755); err != nil {
		return fmt.Errorf("创建数据库目录失败: %w", err)
	}

	db, err := sql.Open("sqlite3", s.dbFilePath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return fmt.Errorf("打开数据库连接失败: %w", err)
	}
	// sqlite只允许一个写连接
	db.SetMaxOpenConns(1)
	s.db = db

	if err := db.Ping(); err != nil {
		s.closeOnInitError()
		return fmt.Errorf("数据库连接测试失败: %w", err)
	}

	if err := s.createTables(); err != nil {
		s.closeOnInitError()
		return fmt.Errorf("创建数据库表失败: %w", err)
	}

	logger.Info("文章索引库初始化成功")
	return nil
}

// createTables 创建文章索引表，同一天内以去重标识唯一
func (s *SQLiteDatabase) createTables() error {
	articleTableSQL := `
	CREATE TABLE IF NOT EXISTS articles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		stored_date TEXT NOT NULL,
		identity_key TEXT NOT NULL,
		query TEXT NOT NULL,
		title TEXT NOT NULL,
		link TEXT NOT NULL DEFAULT '',
		published TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		snippet TEXT NOT NULL DEFAULT '',
		fetched_at TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (stored_date, identity_key)
	);
	CREATE INDEX IF NOT EXISTS idx_articles_query ON articles(query);
	`

	if _, err := s.db.Exec(articleTableSQL); err != nil {
		return err
	}
	logger.Debug("数据库表创建成功")
	return nil
}

// closeOnInitError 初始化失败时释放已打开的连接
func (s *SQLiteDatabase) closeOnInitError() {
	if err := s.db.Close(); err != nil {
		logger.Warn("关闭数据库失败", "error", err)
	}
	s.db = nil
}

// Close 关闭数据库连接
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		logger.Info("关闭数据库连接")
		return s.db.Close()
	}
	return nil
}

// Exec 执行SQL语句
func (s *SQLiteDatabase) Exec(query string, args ...interface{}) (sql.Result, error) {
	return s.db.Exec(query, args...)
}

// QueryRow 查询单行数据
func (s *SQLiteDatabase) QueryRow(query string, args ...interface{}) *sql.Row {
	return s.db.QueryRow(query, args...)
}

// InTx 在事务中执行fn
func (s *SQLiteDatabase) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}

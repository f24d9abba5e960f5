package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/wolfitem/news-collector/internal/domain/model"
	"github.com/wolfitem/news-collector/internal/domain/service"
	"github.com/wolfitem/news-collector/internal/infrastructure/logger"
)

// ArticleRepository 文章索引存储库，镜像每日存储中被接受的新文章
type ArticleRepository interface {
	// SaveArticles 保存某次存储产生的新文章，返回实际插入数量
	SaveArticles(date string, result model.FeedResult) (int, error)
	// CountByDate 返回某天索引的文章数
	CountByDate(date string) (int, error)
}

// SQLiteArticleRepository 实现ArticleRepository接口的SQLite存储库
type SQLiteArticleRepository struct {
	db Database
}

// NewSQLiteArticleRepository 创建一个新的SQLite文章存储库
func NewSQLiteArticleRepository(db Database) *SQLiteArticleRepository {
	return &SQLiteArticleRepository{
		db: db,
	}
}

// SaveArticles 在一个事务中写入文章，已存在的标识被忽略
func (r *SQLiteArticleRepository) SaveArticles(date string, result model.FeedResult) (int, error) {
	query := `
	INSERT OR IGNORE INTO articles (stored_date, identity_key, query, title, link, published, source, snippet, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	inserted := 0
	err := r.db.InTx(context.Background(), func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(query)
		if err != nil {
			return fmt.Errorf("准备插入语句失败: %w", err)
		}
		defer stmt.Close()

		for _, a := range result.Articles {
			res, err := stmt.Exec(date, service.IdentityKey(a), result.Query, a.Title, a.Link, a.Published, a.Source, a.Snippet, result.FetchedAt)
			if err != nil {
				return fmt.Errorf("保存文章失败: %w", err)
			}
			if n, err := res.RowsAffected(); err == nil {
				inserted += int(n)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.Debug("文章索引写入完成", "date", date, "query", result.Query, "inserted", inserted)
	return inserted, nil
}

// CountByDate 返回某天的索引文章数
func (r *SQLiteArticleRepository) CountByDate(date string) (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM articles WHERE stored_date = ?", date).Scan(&count); err != nil {
		return 0, fmt.Errorf("统计文章失败: %w", err)
	}
	return count, nil
}

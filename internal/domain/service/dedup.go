package service

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/wolfitem/news-collector/internal/domain/model"
)

// ContentDigest 基于标题与发布时间生成内容摘要
func ContentDigest(title, published string) string {
	hasher := sha256.New()
	hasher.Write([]byte(strings.TrimSpace(title) + "|" + strings.TrimSpace(published)))
	return hex.EncodeToString(hasher.Sum(nil))
}

// IdentityKey 返回文章的去重标识：有链接时为链接，否则为内容摘要
func IdentityKey(article model.Article) string {
	if link := strings.TrimSpace(article.Link); link != "" {
		return link
	}
	return ContentDigest(article.Title, article.Published)
}

// SameArticle 判断两篇文章是否相同。
// 双方都有链接时只比较链接；任一方缺少链接时比较内容摘要。
func SameArticle(a, b model.Article) bool {
	linkA := strings.TrimSpace(a.Link)
	linkB := strings.TrimSpace(b.Link)
	if linkA != "" && linkB != "" {
		return linkA == linkB
	}
	return ContentDigest(a.Title, a.Published) == ContentDigest(b.Title, b.Published)
}

// IsDuplicate 判断文章是否已存在于当天的任一FeedResult中
func IsDuplicate(article model.Article, existing []model.FeedResult) bool {
	for _, feed := range existing {
		for _, other := range feed.Articles {
			if SameArticle(article, other) {
				return true
			}
		}
	}
	return false
}

// FilterResult 去重结果
type FilterResult struct {
	New        []model.Article
	Duplicates []model.Article
}

// Filter 将传入文章与已有数据比较，拆分为新文章与重复文章。
// 同一批次中后出现的相同文章也视为重复。
func Filter(incoming []model.Article, existing []model.FeedResult) FilterResult {
	var result FilterResult
	for _, article := range incoming {
		if IsDuplicate(article, existing) || containsArticle(result.New, article) {
			result.Duplicates = append(result.Duplicates, article)
			continue
		}
		result.New = append(result.New, article)
	}
	return result
}

func containsArticle(articles []model.Article, article model.Article) bool {
	for _, other := range articles {
		if SameArticle(article, other) {
			return true
		}
	}
	return false
}

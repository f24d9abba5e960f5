package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/atom"
	"github.com/mmcdole/gofeed/rss"

	"github.com/wolfitem/news-collector/internal/domain/model"
	"github.com/wolfitem/news-collector/internal/infrastructure/logger"
)

// 同义字段按优先级排列
var (
	DateFields    = []string{"published", "pubDate", "updated", "dc:date"}
	ContentFields = []string{"summary", "description", "content"}
)

// Entry 标准化后的feed条目，键为feed中的原始字段名
type Entry map[string]string

// First 返回候选字段中第一个非空的值
func (e Entry) First(fields ...string) string {
	for _, field := range fields {
		if v := strings.TrimSpace(e[field]); v != "" {
			return e[field]
		}
	}
	return ""
}

// parsedFeed 解码后的feed
type parsedFeed struct {
	link    string
	entries []Entry
}

// FeedParser 将原始feed内容解析为FeedResult
type FeedParser interface {
	Parse(raw string, keyword string) model.FeedResult
}

type feedParser struct {
	now func() time.Time
}

// NewFeedParser 创建feed解析器
func NewFeedParser() FeedParser {
	return &feedParser{now: time.Now}
}

// Parse 解析feed；内容为空或结构错误时返回空结果而不是错误
func (p *feedParser) Parse(raw string, keyword string) model.FeedResult {
	log := logger.With("query", keyword)

	if strings.TrimSpace(raw) == "" {
		log.Warn("RSS内容为空")
		return p.emptyResult(keyword)
	}

	feed, err := decodeFeed(raw)
	if err != nil {
		log.Warn("RSS解析失败", "error", err)
		return p.emptyResult(keyword)
	}
	if len(feed.entries) == 0 {
		log.Warn("feed中没有条目")
		return p.emptyResult(keyword)
	}

	articles := make([]model.Article, 0, len(feed.entries))
	for _, entry := range feed.entries {
		article := articleFromEntry(entry)
		if !IsValidArticle(article) {
			log.Debug("丢弃无效文章", "title", article.Title)
			continue
		}
		articles = append(articles, article)
	}

	log.Info("RSS解析完成", "entries", len(feed.entries), "valid_articles", len(articles))
	return model.FeedResult{
		FetchedAt: p.timestamp(),
		Query:     keyword,
		SourceURL: strings.TrimSpace(feed.link),
		Articles:  articles,
	}
}

func (p *feedParser) emptyResult(keyword string) model.FeedResult {
	return model.FeedResult{
		FetchedAt: p.timestamp(),
		Query:     keyword,
		SourceURL: "",
		Articles:  []model.Article{},
	}
}

func (p *feedParser) timestamp() string {
	return p.now().UTC().Format(model.TimestampLayout)
}

// articleFromEntry 从标准化条目中提取文章字段
func articleFromEntry(entry Entry) model.Article {
	link := strings.TrimSpace(entry["link"])
	content := entry.First(ContentFields...)

	source := CleanText(entry["source"], 0)
	if source == "" {
		source = publisherFromMarkup(content)
	}
	if source == "" {
		source = ExtractDomain(link)
	}

	return model.Article{
		Title:     CleanText(entry["title"], 0),
		Link:      link,
		Published: NormalizeDate(entry.First(DateFields...)),
		Source:    source,
		Snippet:   CleanText(content, SnippetMaxLength),
	}
}

// publisherFromMarkup 提取摘要HTML中 <font> 标注的发布者（Google News 的描述格式）
func publisherFromMarkup(markup string) string {
	if !strings.Contains(markup, "<font") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	return CollapseWhitespace(doc.Find("font").Last().Text())
}

// decodeFeed 根据类型选择解析器，并把条目转换为Entry
func decodeFeed(raw string) (*parsedFeed, error) {
	switch gofeed.DetectFeedType(strings.NewReader(raw)) {
	case gofeed.FeedTypeRSS:
		return decodeRSS(raw)
	case gofeed.FeedTypeAtom:
		return decodeAtom(raw)
	default:
		return decodeUniversal(raw)
	}
}

func decodeRSS(raw string) (*parsedFeed, error) {
	feed, err := (&rss.Parser{}).Parse(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("解析RSS失败: %w", err)
	}

	result := &parsedFeed{link: feed.Link}
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		entry := Entry{
			"title":       item.Title,
			"link":        item.Link,
			"pubDate":     item.PubDate,
			"description": item.Description,
			"content":     item.Content,
		}
		if item.Source != nil {
			entry["source"] = item.Source.Title
		}
		if item.DublinCoreExt != nil && len(item.DublinCoreExt.Date) > 0 {
			entry["dc:date"] = item.DublinCoreExt.Date[0]
		}
		result.entries = append(result.entries, entry)
	}
	return result, nil
}

func decodeAtom(raw string) (*parsedFeed, error) {
	feed, err := (&atom.Parser{}).Parse(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("解析Atom失败: %w", err)
	}

	result := &parsedFeed{link: alternateLink(feed.Links)}
	for _, item := range feed.Entries {
		if item == nil {
			continue
		}
		entry := Entry{
			"title":     item.Title,
			"link":      alternateLink(item.Links),
			"published": item.Published,
			"updated":   item.Updated,
			"summary":   item.Summary,
		}
		if item.Content != nil {
			entry["content"] = item.Content.Value
		}
		if item.Source != nil {
			entry["source"] = item.Source.Title
		}
		result.entries = append(result.entries, entry)
	}
	return result, nil
}

func decodeUniversal(raw string) (*parsedFeed, error) {
	feed, err := gofeed.NewParser().ParseString(raw)
	if err != nil {
		return nil, fmt.Errorf("解析feed失败: %w", err)
	}

	result := &parsedFeed{link: feed.Link}
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		result.entries = append(result.entries, Entry{
			"title":       item.Title,
			"link":        item.Link,
			"published":   item.Published,
			"updated":     item.Updated,
			"description": item.Description,
			"content":     item.Content,
		})
	}
	return result, nil
}

// alternateLink 优先返回 rel="alternate" 的链接
func alternateLink(links []*atom.Link) string {
	var first string
	for _, l := range links {
		if l == nil || l.Href == "" {
			continue
		}
		if l.Rel == "" || l.Rel == "alternate" {
			return l.Href
		}
		if first == "" {
			first = l.Href
		}
	}
	return first
}

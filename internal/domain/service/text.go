package service

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/net/publicsuffix"

	"github.com/wolfitem/news-collector/internal/domain/model"
)

// SnippetMaxLength 摘要最大长度
const SnippetMaxLength = 300

const ellipsis = "..."

var (
	tagPattern        = regexp.MustCompile(`<[^>]+>`)
	entityPattern     = regexp.MustCompile(`&[a-zA-Z0-9#]+;`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// feed中常见的时间格式，优先按固定格式解析
var dateLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	time.RFC1123,
	time.RFC1123Z,
	time.RFC822,
	time.RFC822Z,
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"02 Jan 2006 15:04:05 MST",
	"02 Jan 2006 15:04:05 -0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// StripHTML 用正则去除标签，标签替换为空格
func StripHTML(text string) string {
	return tagPattern.ReplaceAllString(text, " ")
}

// StripEntities 去除HTML字符实体
func StripEntities(text string) string {
	return entityPattern.ReplaceAllString(text, " ")
}

// CollapseWhitespace 将连续空白合并为单个空格并去除首尾空白
func CollapseWhitespace(text string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

// Truncate 按字符截断，超长时追加省略号
func Truncate(text string, maxLen int) string {
	runes := []rune(text)
	if maxLen <= 0 || len(runes) <= maxLen {
		return text
	}
	return strings.TrimRight(string(runes[:maxLen]), " \t\r\n") + ellipsis
}

// CleanText 去标签、去实体、合并空白，maxLen>0时截断
func CleanText(text string, maxLen int) string {
	if text == "" {
		return ""
	}
	cleaned := CollapseWhitespace(StripEntities(StripHTML(text)))
	return Truncate(cleaned, maxLen)
}

// NormalizeDate 将日期统一为 YYYY-MM-DDTHH:MM:SSZ，解析失败时返回去除空白的原文
func NormalizeDate(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if t, ok := parseDate(trimmed); ok {
		return t.UTC().Format(model.TimestampLayout)
	}
	return trimmed
}

func parseDate(value string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	t, err := dateparse.ParseIn(value, time.UTC)
	// 缺少年份时 dateparse 给出公元0年，视为无法解析
	if err != nil || t.Year() == 0 {
		return time.Time{}, false
	}
	return t, true
}

// ExtractDomain 返回链接的可注册域名，无法识别公共后缀时退回主机名
func ExtractDomain(link string) string {
	if link == "" {
		return ""
	}
	parsed, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return ""
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

package service

import (
	"net/url"
	"strings"
)

const (
	// GoogleNewsSearchURL Google News RSS 搜索地址
	GoogleNewsSearchURL = "https://news.google.com/rss/search"

	DefaultLanguage = "en"
	DefaultCountry  = "IN"
)

// BuildURL 根据关键词与地区构造搜索RSS地址
func BuildURL(keyword, language, country string) string {
	if language == "" {
		language = DefaultLanguage
	}
	if country == "" {
		country = DefaultCountry
	}

	var b strings.Builder
	b.WriteString(GoogleNewsSearchURL)
	b.WriteString("?q=")
	b.WriteString(url.QueryEscape(keyword))
	b.WriteString("&hl=")
	b.WriteString(url.QueryEscape(language))
	b.WriteString("&gl=")
	b.WriteString(url.QueryEscape(country))
	b.WriteString("&ceid=")
	b.WriteString(url.QueryEscape(country + ":" + language))
	return b.String()
}

// BuildSearchURL 使用默认地区构造搜索地址
func BuildSearchURL(keyword string) string {
	return BuildURL(keyword, DefaultLanguage, DefaultCountry)
}

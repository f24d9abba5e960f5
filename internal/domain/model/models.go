package model

import "time"

// TimestampLayout 统一的UTC时间戳格式
const TimestampLayout = "2006-01-02T15:04:05Z"

// DateLayout 每日存储文件使用的日期格式
const DateLayout = "2006-01-02"

// Article 表示一篇标准化后的新闻文章
type Article struct {
	Title     string `json:"title"`     // 文章标题
	Link      string `json:"link"`      // 原文链接
	Published string `json:"published"` // 发布时间（ISO-8601 UTC，无法解析时保留原文）
	Source    string `json:"source"`    // 发布者
	Snippet   string `json:"snippet"`   // 纯文本摘要
}

// FeedResult 表示一次关键词抓取与解析的结果
type FeedResult struct {
	FetchedAt string    `json:"fetched_at"` // 抓取时间
	Query     string    `json:"query"`      // 查询关键词
	SourceURL string    `json:"source_url"` // Feed级别的链接
	Articles  []Article `json:"articles"`   // 有效文章列表
}

// StoreStats 单次存储操作的统计
type StoreStats struct {
	NewArticles     int `json:"new_articles"`
	DuplicatesFound int `json:"duplicates_found"`
	TotalArticles   int `json:"total_articles"`
}

// DailyStats 某一天存储文件的统计
type DailyStats struct {
	Date          string `json:"date"`
	TotalFeeds    int    `json:"total_feeds"`
	TotalArticles int    `json:"total_articles"`
}

// KeywordGroup 关键词分组
type KeywordGroup struct {
	Name  string   `json:"name" yaml:"name"`
	Terms []string `json:"terms" yaml:"terms"`
}

// RunState 采集运行的状态
type RunState string

const (
	RunStateIdle      RunState = "idle"
	RunStateRunning   RunState = "running"
	RunStateCompleted RunState = "completed"
	RunStateFailed    RunState = "failed"
)

// RunProgress 运行进度，Running状态下记录当前分组与关键词下标
type RunProgress struct {
	State        RunState
	GroupIndex   int
	KeywordIndex int
}

// KeywordResult 单个关键词的处理结果
type KeywordResult struct {
	Keyword       string
	Fetched       int
	NewArticles   int
	Duplicates    int
	Err           error
	SkippedEmpty  bool
	FetchDuration time.Duration
}

// RunSummary 一次采集运行的汇总，由各关键词结果折叠得到
type RunSummary struct {
	RunID             string    `json:"run_id"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
	TotalArticles     int       `json:"total_articles"`
	NewArticles       int       `json:"total_new_articles"`
	Duplicates        int       `json:"total_duplicates"`
	KeywordsProcessed int       `json:"total_keywords"`
	Errors            int       `json:"errors"`
	SuccessRate       float64   `json:"success_rate"`
	DurationSeconds   float64   `json:"duration_seconds"`
	State             RunState  `json:"state"`
	Interrupted       bool      `json:"interrupted"`
}

// Add 将一个关键词结果折叠进汇总，返回新的汇总
func (s RunSummary) Add(r KeywordResult) RunSummary {
	s.KeywordsProcessed++
	if r.Err != nil {
		s.Errors++
		return s
	}
	s.TotalArticles += r.Fetched
	s.NewArticles += r.NewArticles
	s.Duplicates += r.Duplicates
	return s
}

// Finish 计算耗时与成功率
func (s RunSummary) Finish(end time.Time) RunSummary {
	s.FinishedAt = end
	s.DurationSeconds = end.Sub(s.StartedAt).Seconds()
	if s.KeywordsProcessed > 0 {
		s.SuccessRate = float64(s.KeywordsProcessed-s.Errors) / float64(s.KeywordsProcessed) * 100
	} else {
		s.SuccessRate = 0
	}
	return s
}

// NetworkConfig 网络相关配置
type NetworkConfig struct {
	TimeoutSeconds         int     // 请求超时时间
	MaxRetries             int     // 最大重试次数（不含首次请求）
	BackoffFactor          float64 // 退避倍数
	InitialBackoffSeconds  float64 // 首次重试等待时间
	KeywordPauseSeconds    float64 // 关键词之间的暂停
	GroupPauseMinutes      float64 // 分组之间的暂停
	RequestDelayMinSeconds float64 // 请求前随机延迟下限
	RequestDelayMaxSeconds float64 // 请求前随机延迟上限
	UserAgent              string  // User-Agent
	AcceptLanguage         string  // Accept-Language
	ProxyURL               string  // 代理地址，由配置层从环境变量读取后注入
	Language               string  // hl参数
	Country                string  // gl参数
	Concurrency            int     // 并发抓取数量，<=1 表示顺序执行
	RequestsPerMinute      int     // 每分钟请求上限，<=0 表示不限制
}

// Timeout 返回请求超时时间
func (c NetworkConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// KeywordPause 返回关键词之间的暂停时间
func (c NetworkConfig) KeywordPause() time.Duration {
	return seconds(c.KeywordPauseSeconds)
}

// GroupPause 返回分组之间的暂停时间
func (c NetworkConfig) GroupPause() time.Duration {
	return seconds(c.GroupPauseMinutes * 60)
}

// InitialBackoff 返回首次重试等待时间
func (c NetworkConfig) InitialBackoff() time.Duration {
	return seconds(c.InitialBackoffSeconds)
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// StorageConfig 存储相关配置
type StorageConfig struct {
	BaseDir      string // 每日JSON存储目录
	JSONLDir     string // JSONL输出目录，为空时使用BaseDir
	OutputDir    string // 统计文件输出目录
	CleanupDays  int    // 文件保留天数
	CreateJSONL  bool   // 是否输出JSONL
	StatsEnabled bool   // 是否输出关键词统计文件
}

// DatabaseConfig 包含数据库的配置信息
type DatabaseConfig struct {
	Enabled  bool   // 是否启用文章索引库
	FilePath string // 数据库文件路径
}

// ScheduleConfig 定时任务配置
type ScheduleConfig struct {
	Times          []string // 每日执行时间，HH:MM
	Timezone       string   // 时区
	CleanupEnabled bool     // 每次定时运行后是否清理过期文件
}

// CollectorConfig 采集器完整配置
type CollectorConfig struct {
	Network       NetworkConfig
	Storage       StorageConfig
	Database      DatabaseConfig
	Schedule      ScheduleConfig
	FeedsFile     string         // 关键词配置文件
	KeywordGroups []KeywordGroup // 启动时加载的关键词分组
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gilliek/go-opml/opml"
	"gopkg.in/yaml.v3"

	"github.com/wolfitem/news-collector/internal/domain/model"
	"github.com/wolfitem/news-collector/internal/infrastructure/logger"
)

// ErrUnsupportedFormat 关键词文件格式不支持
var ErrUnsupportedFormat = errors.New("不支持的关键词文件格式")

// groupNode 关键词分组配置项，可以是单独的关键词字符串，也可以是 {name, terms}
type groupNode struct {
	model.KeywordGroup
}

// UnmarshalYAML 支持字符串和映射两种写法
func (g *groupNode) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		term := strings.TrimSpace(value.Value)
		g.KeywordGroup = model.KeywordGroup{Name: term, Terms: []string{term}}
		return nil
	case yaml.MappingNode:
		var group model.KeywordGroup
		if err := value.Decode(&group); err != nil {
			return err
		}
		g.KeywordGroup = group
		return nil
	default:
		return fmt.Errorf("第%d行: 关键词分组必须是字符串或映射", value.Line)
	}
}

// feedsFile 关键词文件结构
type feedsFile struct {
	KeywordGroups []groupNode `yaml:"keyword_groups"`
}

// LoadKeywordGroups 按扩展名加载关键词分组，.opml 使用OPML解析，其余按YAML/JSON解析
func LoadKeywordGroups(path string) ([]model.KeywordGroup, error) {
	logger.Info("加载关键词配置", "file", path)
	defer logger.TimeTrack("LoadKeywordGroups")()

	var (
		groups []model.KeywordGroup
		err    error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".opml", ".xml":
		groups, err = loadOPML(path)
	case ".yaml", ".yml", ".json":
		groups, err = loadYAML(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, err
	}

	groups = NormalizeGroups(groups)
	logger.Info("关键词配置加载完成", "file", path, "groups", len(groups))
	return groups, nil
}

func loadYAML(path string) ([]model.KeywordGroup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取关键词文件失败: %w", err)
	}
	return ParseKeywordGroups(data)
}

// ParseKeywordGroups 解析YAML/JSON内容；既可以是 keyword_groups 映射，也可以是顶层列表
func ParseKeywordGroups(data []byte) ([]model.KeywordGroup, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("解析关键词文件失败: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	var nodes []groupNode
	root := doc.Content[0]
	if root.Kind == yaml.SequenceNode {
		if err := root.Decode(&nodes); err != nil {
			return nil, fmt.Errorf("解析关键词分组失败: %w", err)
		}
	} else {
		var f feedsFile
		if err := root.Decode(&f); err != nil {
			return nil, fmt.Errorf("解析关键词分组失败: %w", err)
		}
		nodes = f.KeywordGroups
	}

	groups := make([]model.KeywordGroup, 0, len(nodes))
	for _, n := range nodes {
		groups = append(groups, n.KeywordGroup)
	}
	return groups, nil
}

// loadOPML 顶层outline为分组，其子outline为关键词
func loadOPML(path string) ([]model.KeywordGroup, error) {
	doc, err := opml.NewOPMLFromFile(path)
	if err != nil {
		logger.Error("解析OPML文件失败", "file", path, "error", err)
		return nil, fmt.Errorf("解析OPML文件失败: %w", err)
	}

	var groups []model.KeywordGroup
	for _, outline := range doc.Outlines() {
		group := model.KeywordGroup{Name: outlineLabel(outline)}
		if len(outline.Outlines) == 0 {
			group.Terms = []string{group.Name}
		}
		group.Terms = append(group.Terms, collectTerms(outline.Outlines)...)
		groups = append(groups, group)
	}
	return groups, nil
}

// collectTerms 递归收集叶子outline作为关键词
func collectTerms(outlines []opml.Outline) []string {
	var terms []string
	for _, o := range outlines {
		if len(o.Outlines) > 0 {
			terms = append(terms, collectTerms(o.Outlines)...)
			continue
		}
		terms = append(terms, outlineLabel(o))
	}
	return terms
}

func outlineLabel(o opml.Outline) string {
	if label := strings.TrimSpace(o.Text); label != "" {
		return label
	}
	return strings.TrimSpace(o.Title)
}

// NormalizeGroups 去掉空关键词并补全默认分组名
func NormalizeGroups(groups []model.KeywordGroup) []model.KeywordGroup {
	result := make([]model.KeywordGroup, 0, len(groups))
	for i, g := range groups {
		terms := make([]string, 0, len(g.Terms))
		for _, t := range g.Terms {
			if t = strings.TrimSpace(t); t != "" {
				terms = append(terms, t)
			}
		}
		name := strings.TrimSpace(g.Name)
		if name == "" {
			name = fmt.Sprintf("Group %d", i+1)
		}
		result = append(result, model.KeywordGroup{Name: name, Terms: terms})
	}
	return result
}

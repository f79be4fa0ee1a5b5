package match

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// ErrEmptyVocabulary 词表为空
var ErrEmptyVocabulary = errors.New("词表为空")

// defaultEntries 内置果实名称
var defaultEntries = []string{
	"Rocket-Rocket Fruit",
	"Spin-Spin Fruit",
	"Blade-Blade Fruit",
	"Spring-Spring Fruit",
	"Bomb-Bomb Fruit",
	"Smoke-Smoke Fruit",
	"Spike-Spike Fruit",
	"Flame-Flame Fruit",
	"Ice-Ice Fruit",
	"Sand-Sand Fruit",
	"Dark-Dark Fruit",
	"Eagle-Eagle Fruit",
	"Diamond-Diamond Fruit",
	"Light-Light Fruit",
	"Rubber-Rubber Fruit",
	"Ghost-Ghost Fruit",
	"Magma-Magma Fruit",
	"Quake-Quake Fruit",
	"Buddha-Buddha Fruit",
	"Love-Love Fruit",
	"Creation-Creation Fruit",
	"Spider-Spider Fruit",
	"Sound-Sound Fruit",
	"Phoenix-Phoenix Fruit",
	"Portal-Portal Fruit",
	"Lightning-Lightning Fruit",
	"Pain-Pain Fruit",
	"Blizzard-Blizzard Fruit",
	"Gravity-Gravity Fruit",
	"Mammoth-Mammoth Fruit",
	"Dough-Dough Fruit",
	"Shadow-Shadow Fruit",
	"Venom-Venom Fruit",
}

// Vocabulary 有序词表，加载后只读
type Vocabulary struct {
	entries    []string
	normalized []string
}

// NewVocabulary 从条目创建词表
// 空白条目被忽略，规范化后重复的条目只保留第一个
func NewVocabulary(entries []string) (*Vocabulary, error) {
	kept := lo.UniqBy(lo.Filter(entries, func(e string, _ int) bool {
		return Normalize(e) != ""
	}), Normalize)
	if len(kept) == 0 {
		return nil, ErrEmptyVocabulary
	}
	return &Vocabulary{
		entries:    kept,
		normalized: lo.Map(kept, func(e string, _ int) string { return Normalize(e) }),
	}, nil
}

// DefaultVocabulary 内置词表
func DefaultVocabulary() *Vocabulary {
	v, _ := NewVocabulary(defaultEntries)
	return v
}

type vocabularyFile struct {
	Entries []string `yaml:"entries"`
}

// LoadVocabulary 从 YAML 文件加载词表
//
// 文件格式:
//
//	entries:
//	  - Flame-Flame Fruit
//	  - Ice-Ice Fruit
func LoadVocabulary(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取词表失败: %w", err)
	}

	var file vocabularyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("解析词表失败: %w", err)
	}

	v, err := NewVocabulary(file.Entries)
	if err != nil {
		return nil, fmt.Errorf("词表 %s: %w", path, err)
	}
	return v, nil
}

// Len 条目数
func (v *Vocabulary) Len() int {
	return len(v.entries)
}

// Entries 返回条目副本
func (v *Vocabulary) Entries() []string {
	return append([]string(nil), v.entries...)
}

// Normalize 去首尾空白、转小写、合并内部空白
func Normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// 包 rules 负责加载并提供上游页面的解析规则（rules.yaml），
// 以预设名（如 default/legacy2019）组织 CSS 选择器，用于运动员主页与学校名单页解析。
// 页面改版时只需修改 rules.yaml，不必改代码。
package rules

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rules 表示全部规则集合：键为预设名，值为具体规则。
type Rules struct {
	Presets map[string]Preset `yaml:",inline"`
}

// Preset 为单个页面版本的解析规则集合。
type Preset struct {
	BioPage    *BioPage    `yaml:"bio_page"`
	RosterPage *RosterPage `yaml:"roster_page"`
}

// BioPage 描述旧版运动员主页：
// - season：每个赛季的容器；season_id/grade/school_link 在容器内取值
// - table：容器内每个距离的成绩表；heading 为距离标题（如 "5,000 Meters"）
// - row：表内每行成绩；place/result/date/meet/meet_link 在行内取值
// 取值表达式支持 "选择器@属性" 与 "||" 回退（语法见 selector 包）。
type BioPage struct {
	Name       string `yaml:"name"`
	Gender     string `yaml:"gender"`
	Season     string `yaml:"season"`
	SeasonID   string `yaml:"season_id"`
	Grade      string `yaml:"grade"`
	SchoolLink string `yaml:"school_link"`
	Table      string `yaml:"table"`
	Heading    string `yaml:"heading"`
	Row        string `yaml:"row"`
	Place      string `yaml:"place"`
	Result     string `yaml:"result"`
	Date       string `yaml:"date"`
	Meet       string `yaml:"meet"`
	MeetLink   string `yaml:"meet_link"`
}

// RosterPage 描述学校赛季最佳名单页：
// - distance：每个距离分区
// - men/women：分区内按性别的子列表
// - row/profile_link：子列表每行与运动员主页链接
type RosterPage struct {
	Distance    string `yaml:"distance"`
	Men         string `yaml:"men"`
	Women       string `yaml:"women"`
	Row         string `yaml:"row"`
	ProfileLink string `yaml:"profile_link"`
}

// Default 返回内置的 default 预设，对应目前已知的上游页面结构。
func Default() Preset {
	return Preset{
		BioPage: &BioPage{
			Name:       "h2.athlete-name||h1",
			Gender:     "#athlete@data-gender||.gender",
			Season:     "div.season",
			SeasonID:   "@data-season||.season-header .year",
			Grade:      ".season-header .grade",
			SchoolLink: ".season-header a.school@href||a[href*='SchoolID']@href",
			Table:      "div.distance",
			Heading:    "h5",
			Row:        "table tr",
			Place:      "td.place||td:nth-child(1)",
			Result:     "td.result||td:nth-child(2)",
			Date:       "td.date||td:nth-child(3)",
			Meet:       "td.meet a||td:nth-child(4) a",
			MeetLink:   "td.meet a@href||td:nth-child(4) a@href",
		},
		RosterPage: &RosterPage{
			Distance:    "div.distance",
			Men:         "div#M_",
			Women:       "div#F_",
			Row:         "tr",
			ProfileLink: "td:nth-child(3) > *:first-child@href",
		},
	}
}

func Load(path string) (*Rules, error) {
	// 从文件加载 YAML 到 Rules.Presets
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules %s: %w", path, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	var r Rules
	if err := yaml.Unmarshal(b, &r.Presets); err != nil {
		return nil, fmt.Errorf("unmarshal rules %s: %w", path, err)
	}
	return &r, nil
}

// GetPreset 按名称获取预设（不区分大小写），若为空或不存在则回退到 "default"。
func (r *Rules) GetPreset(name string) (Preset, bool) {
	if r == nil || len(r.Presets) == 0 {
		return Preset{}, false
	}
	if name == "" {
		name = "default"
	}
	if p, ok := r.Presets[name]; ok {
		return p, true
	}
	// 不区分大小写匹配
	lower := strings.ToLower(name)
	for k, v := range r.Presets {
		if strings.ToLower(k) == lower {
			return v, true
		}
	}
	if p, ok := r.Presets["default"]; ok {
		return p, true
	}
	return Preset{}, false
}

// Resolve 取预设并用内置默认值补齐缺失的页面规则；r 为 nil 时直接返回默认值。
func (r *Rules) Resolve(name string) Preset {
	def := Default()
	p, ok := r.GetPreset(name)
	if !ok {
		return def
	}
	if p.BioPage == nil {
		p.BioPage = def.BioPage
	}
	if p.RosterPage == nil {
		p.RosterPage = def.RosterPage
	}
	return p
}

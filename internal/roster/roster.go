// 包 roster 解析学校赛季最佳名单页，按性别返回去重后的运动员 ID（保持首次出现顺序）。
// 行中缺少主页链接说明上游页面结构已变化，返回 ErrLayout，不做静默跳过。
package roster

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"xc-athletes/internal/fetch"
	"xc-athletes/internal/logx"
	"xc-athletes/internal/metrics"
	"xc-athletes/internal/racetime"
	"xc-athletes/internal/rules"
	"xc-athletes/internal/selector"
)

// ErrLayout 表示名单页结构与规则不符（如行内缺少主页链接）。
var ErrLayout = errors.New("roster page layout changed")

// Team 为学校某赛季的名单。
type Team struct {
	Men   []string `json:"men"`
	Women []string `json:"women"`
}

// Len 返回两份名单的总人数。
func (t Team) Len() int { return len(t.Men) + len(t.Women) }

// All 按先男后女返回全部 ID。
func (t Team) All() []string {
	out := make([]string, 0, t.Len())
	out = append(out, t.Men...)
	return append(out, t.Women...)
}

// Extract 遍历各距离分区下的男女子列表，提取运动员 ID。
func Extract(doc *goquery.Document, rp *rules.RosterPage) (Team, error) {
	if rp == nil {
		rp = rules.Default().RosterPage
	}
	team := Team{Men: []string{}, Women: []string{}}
	men, women := newSet(), newSet()
	var err error
	doc.Find(rp.Distance).EachWithBreak(func(_ int, sec *goquery.Selection) bool {
		if err = collect(sec.Find(rp.Men), rp, men, &team.Men); err != nil {
			return false
		}
		err = collect(sec.Find(rp.Women), rp, women, &team.Women)
		return err == nil
	})
	if err != nil {
		return Team{}, err
	}
	return team, nil
}

func collect(list *goquery.Selection, rp *rules.RosterPage, seen set, out *[]string) error {
	var err error
	list.Find(rp.Row).EachWithBreak(func(i int, row *goquery.Selection) bool {
		link := selector.Value(row, rp.ProfileLink)
		if link == "" {
			err = fmt.Errorf("row %d: missing profile link: %w", i, ErrLayout)
			return false
		}
		ids := racetime.NumericGroups(link, 1)
		if len(ids) == 0 {
			err = fmt.Errorf("row %d: no athlete id in %q: %w", i, link, ErrLayout)
			return false
		}
		if seen.add(ids[0]) {
			*out = append(*out, ids[0])
		}
		return true
	})
	return err
}

type set map[string]struct{}

func newSet() set { return set{} }

// add 返回是否为新元素。
func (s set) add(id string) bool {
	if _, ok := s[id]; ok {
		return false
	}
	s[id] = struct{}{}
	return true
}

// Client 抓取学校名单页。
type Client struct {
	HTTP    *fetch.Client
	Path    string
	Rules   *rules.RosterPage
	Metrics *metrics.Manager
}

// SchoolAthletes 请求 ?SchoolID=&S= 名单页并提取名单。
// 网络错误与结构错误都向上返回，由调用方决定如何上报。
func (c *Client) SchoolAthletes(ctx context.Context, schoolID, season string) (Team, error) {
	schoolID, season = strings.TrimSpace(schoolID), strings.TrimSpace(season)
	if schoolID == "" || season == "" {
		return Team{}, errors.New("schoolId and season required")
	}
	q := url.Values{}
	q.Set("SchoolID", schoolID)
	q.Set("S", season)
	doc, err := c.HTTP.GetHTML(ctx, c.Path, q)
	if err != nil {
		c.Metrics.RosterFetched("school", "fetch_error", 0)
		return Team{}, fmt.Errorf("roster %s/%s: %w", schoolID, season, err)
	}
	team, err := Extract(doc, c.Rules)
	if err != nil {
		c.Metrics.RosterFetched("school", "layout_error", 0)
		logx.Errorf("名单页结构异常：学校=%s 赛季=%s：%v", schoolID, season, err)
		return Team{}, fmt.Errorf("roster %s/%s: %w", schoolID, season, err)
	}
	c.Metrics.RosterFetched("school", "ok", team.Len())
	logx.Infof("名单解析完成：学校=%s 赛季=%s 男=%d 女=%d", schoolID, season, len(team.Men), len(team.Women))
	return team, nil
}

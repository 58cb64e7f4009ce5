// 包 races 通过上游结果接口枚举某场比赛（race/division）或整场赛会（meet）的运动员 ID。
// 访问令牌由调用方提供并原样透传；任何网络或解析错误只记录日志并返回空列表。
package races

import (
	"context"
	"net/url"
	"strings"

	"xc-athletes/internal/fetch"
	"xc-athletes/internal/logx"
	"xc-athletes/internal/metrics"
	"xc-athletes/internal/normalize"
)

// Paths 为上游接口路径。
type Paths struct {
	RaceResults    string
	MeetEvents     string
	MeetAllResults string
}

// Client 枚举比赛参赛者。LevelMask 用于筛选赛会中的组别（4 为高中组）。
type Client struct {
	HTTP      *fetch.Client
	Paths     Paths
	LevelMask int
	Metrics   *metrics.Manager
}

type result struct {
	AthleteID normalize.Flex `json:"AthleteID"`
	Result    string         `json:"Result"`
}

type resultsBody struct {
	Results []result `json:"results"`
}

type event struct {
	IDMeetDiv normalize.Flex `json:"IDMeetDiv"`
	LevelMask int            `json:"LevelMask"`
	DivName   string         `json:"DivName"`
}

type eventsBody struct {
	Events []event `json:"events"`
}

// RaceAthletes 返回某场比赛完赛运动员的 ID（排除 DNS/DNF），失败时返回空列表。
func (c *Client) RaceAthletes(ctx context.Context, raceID, token string) []string {
	var body resultsBody
	err := c.HTTP.PostJSON(ctx, c.Paths.RaceResults, token, map[string]string{"divId": raceID}, &body)
	if err != nil {
		logx.Warnf("获取比赛成绩失败：race=%s：%v", raceID, err)
		c.Metrics.RosterFetched("race", "error", 0)
		return []string{}
	}
	ids := finishers(body.Results)
	c.Metrics.RosterFetched("race", "ok", len(ids))
	logx.Debugf("比赛 %s：%d 名运动员", raceID, len(ids))
	return ids
}

// MeetAthletes 列出赛会中符合 LevelMask 的组别，逐个获取参赛者并按顺序拼接。
// 同一运动员出现在多个组别时不去重。
func (c *Client) MeetAthletes(ctx context.Context, meetID, token string) []string {
	var body eventsBody
	if err := c.HTTP.GetJSON(ctx, withMeet(c.Paths.MeetEvents, meetID), token, &body); err != nil {
		logx.Warnf("获取赛会组别失败：meet=%s：%v", meetID, err)
		c.Metrics.RosterFetched("meet", "error", 0)
		return []string{}
	}
	out := []string{}
	for _, ev := range body.Events {
		if ev.LevelMask != c.LevelMask {
			continue
		}
		div := ev.IDMeetDiv.String()
		if div == "" {
			continue
		}
		logx.Debugf("赛会 %s 组别 %s（%s）", meetID, div, ev.DivName)
		out = append(out, c.RaceAthletes(ctx, div, token)...)
	}
	c.Metrics.RosterFetched("meet", "ok", len(out))
	return out
}

// MeetAllResults 使用整场结果接口，一次取得赛会全部成绩（排除 DNS/DNF）。
func (c *Client) MeetAllResults(ctx context.Context, meetID, token string) []string {
	var body resultsBody
	if err := c.HTTP.GetJSON(ctx, withMeet(c.Paths.MeetAllResults, meetID), token, &body); err != nil {
		logx.Warnf("获取赛会全部成绩失败：meet=%s：%v", meetID, err)
		c.Metrics.RosterFetched("meet_all", "error", 0)
		return []string{}
	}
	ids := finishers(body.Results)
	c.Metrics.RosterFetched("meet_all", "ok", len(ids))
	return ids
}

func finishers(results []result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		switch strings.ToUpper(strings.TrimSpace(r.Result)) {
		case "DNS", "DNF":
			continue
		}
		if id := r.AthleteID.String(); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func withMeet(path, meetID string) string {
	if meetID == "" {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "meetId=" + url.QueryEscape(meetID)
}

package normalize

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"xc-athletes/internal/fetch"
	"xc-athletes/internal/logx"
	"xc-athletes/internal/metrics"
	"xc-athletes/internal/model"
)

// IDPlaceholder 为上游路径模板中的运动员 ID 占位符。
const IDPlaceholder = "{athleteId}"

// Source 按运动员 ID 抓取原始载荷。
type Source interface {
	Fetch(ctx context.Context, athleteID string) (Payload, error)
}

// BioAPISource 从 JSON bio 接口抓取。
type BioAPISource struct {
	Client *fetch.Client
	Path   string
}

func (s BioAPISource) Fetch(ctx context.Context, athleteID string) (Payload, error) {
	var bio BioData
	if err := s.Client.GetJSON(ctx, expand(s.Path, athleteID), "", &bio); err != nil {
		return nil, fmt.Errorf("fetch bio %s: %w", athleteID, err)
	}
	return JSONPayload{Bio: bio}, nil
}

// BioPageSource 抓取旧版运动员主页 HTML。
type BioPageSource struct {
	Client *fetch.Client
	Path   string
}

func (s BioPageSource) Fetch(ctx context.Context, athleteID string) (Payload, error) {
	doc, err := s.Client.GetHTML(ctx, expand(s.Path, athleteID), nil)
	if err != nil {
		return nil, fmt.Errorf("fetch bio page %s: %w", athleteID, err)
	}
	return HTMLPayload{Doc: doc}, nil
}

func expand(tmpl, athleteID string) string {
	return strings.ReplaceAll(tmpl, IDPlaceholder, url.QueryEscape(athleteID))
}

// Fetcher 组合抓取与归一化。
type Fetcher struct {
	Source     Source
	Normalizer *Normalizer
	Metrics    *metrics.Manager
}

// FetchAthlete 抓取并归一化一名运动员；任何失败都记录日志并返回空记录，不向上传播。
func (f *Fetcher) FetchAthlete(ctx context.Context, athleteID string) model.AthleteRecord {
	athleteID = strings.TrimSpace(athleteID)
	if athleteID == "" {
		return model.AthleteRecord{}
	}
	p, err := f.Source.Fetch(ctx, athleteID)
	if err != nil {
		logx.Warnf("抓取运动员失败：%s：%v", athleteID, err)
		f.Metrics.AthleteFetched(sourceLabel(f.Source), "fetch_error")
		return model.AthleteRecord{}
	}
	rec, err := f.Normalizer.Normalize(athleteID, p)
	if err != nil {
		if errors.Is(err, ErrEmptyPayload) {
			logx.Warnf("运动员数据为空：%s", athleteID)
		} else {
			logx.Warnf("解析运动员失败：%s：%v", athleteID, err)
		}
		f.Metrics.AthleteFetched(SourceName(p), "parse_error")
		return model.AthleteRecord{}
	}
	logx.Debugf("运动员解析完成：%s（%s），赛季=%d", athleteID, rec.Name, len(rec.Results))
	f.Metrics.AthleteFetched(SourceName(p), "ok")
	return rec
}

func sourceLabel(s Source) string {
	switch s.(type) {
	case BioAPISource, *BioAPISource:
		return "json"
	case BioPageSource, *BioPageSource:
		return "html"
	default:
		return "custom"
	}
}

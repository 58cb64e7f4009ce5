package ingest

import (
	"context"
	"fmt"

	"xc-athletes/internal/logx"
	"xc-athletes/internal/model"
	"xc-athletes/internal/roster"
)

// Saver 写入一名运动员并返回抓取到的记录。
type Saver interface {
	SaveAthlete(ctx context.Context, athleteID string) model.AthleteRecord
}

// RaceSource 枚举比赛/赛会参赛者，失败时返回空列表。
type RaceSource interface {
	RaceAthletes(ctx context.Context, raceID, token string) []string
	MeetAthletes(ctx context.Context, meetID, token string) []string
	MeetAllResults(ctx context.Context, meetID, token string) []string
}

// RosterSource 获取学校赛季名单，结构错误需要向上返回。
type RosterSource interface {
	SchoolAthletes(ctx context.Context, schoolID, season string) (roster.Team, error)
}

// Runner 按顺序处理一批运动员：同一批次内不并发写入，保证上游请求速率有界。
type Runner struct {
	Saver  Saver
	Races  RaceSource
	Roster RosterSource
}

// ScrapeRace 抓取某场比赛的全部完赛运动员。
func (r *Runner) ScrapeRace(ctx context.Context, raceID, token string) (model.BatchSummary, error) {
	ids := r.Races.RaceAthletes(ctx, raceID, token)
	logx.Infof("比赛 %s：待处理 %d 名运动员", raceID, len(ids))
	return r.saveAll(ctx, ids)
}

// ScrapeMeet 抓取赛会全部组别；allResults 为 true 时改用整场结果接口。
func (r *Runner) ScrapeMeet(ctx context.Context, meetID, token string, allResults bool) (model.BatchSummary, error) {
	var ids []string
	if allResults {
		ids = r.Races.MeetAllResults(ctx, meetID, token)
	} else {
		ids = r.Races.MeetAthletes(ctx, meetID, token)
	}
	logx.Infof("赛会 %s：待处理 %d 名运动员", meetID, len(ids))
	return r.saveAll(ctx, ids)
}

// ScrapeSchool 抓取学校某赛季名单中的全部运动员（先男后女）。
func (r *Runner) ScrapeSchool(ctx context.Context, schoolID, season string) (model.BatchSummary, error) {
	team, err := r.Roster.SchoolAthletes(ctx, schoolID, season)
	if err != nil {
		return model.BatchSummary{}, fmt.Errorf("school roster: %w", err)
	}
	logx.Infof("学校 %s 赛季 %s：待处理 %d 名运动员", schoolID, season, team.Len())
	return r.saveAll(ctx, team.All())
}

// saveAll 逐个写入并计数；上下文取消时停止并返回已完成部分的计数。
func (r *Runner) saveAll(ctx context.Context, ids []string) (model.BatchSummary, error) {
	sum := model.BatchSummary{TotalAthletes: len(ids)}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return sum, fmt.Errorf("batch interrupted after %d athletes: %w", sum.AthletesAdded, err)
		}
		if rec := r.Saver.SaveAthlete(ctx, id); !rec.Empty() {
			sum.AthletesAdded++
		} else {
			logx.Warnf("运动员 %s 未写入", id)
		}
	}
	logx.Infof("批次完成：新增/更新 %d / 共 %d", sum.AthletesAdded, sum.TotalAthletes)
	return sum, nil
}

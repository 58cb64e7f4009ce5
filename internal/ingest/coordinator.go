// 包 ingest 负责主流程编排：
// - Coordinator：按运动员 ID 抓取最新数据并与存储中的记录对账（更新或插入）
// - Runner：由比赛/赛会/学校名单得到 ID 列表，按顺序逐个写库并汇总计数
package ingest

import (
	"context"

	"xc-athletes/internal/logx"
	"xc-athletes/internal/metrics"
	"xc-athletes/internal/model"
)

// Store 为 Coordinator 依赖的文档存储操作。
type Store interface {
	FindAthlete(ctx context.Context, athleteID string) ([]model.StoredAthlete, error)
	InsertAthlete(ctx context.Context, rec model.AthleteRecord) (string, error)
	UpdateAthlete(ctx context.Context, docID string, rec model.AthleteRecord) error
}

// Fetcher 抓取并归一化一名运动员，失败时返回空记录。
type Fetcher interface {
	FetchAthlete(ctx context.Context, athleteID string) model.AthleteRecord
}

// Coordinator 持有存储与抓取器。
type Coordinator struct {
	Store   Store
	Fetcher Fetcher
	Metrics *metrics.Manager
}

// SaveAthlete 查找已有记录并抓取最新数据：
// 已存在时整体覆盖第一条记录的 pr5k 与 results，否则在抓取成功时插入新记录。
// 每次调用最多一次写入；抓取失败时不写入。写入失败只记录日志，仍返回抓取到的记录。
func (c *Coordinator) SaveAthlete(ctx context.Context, athleteID string) model.AthleteRecord {
	log := logx.Component("ingest").With("athlete", athleteID)
	existing, findErr := c.Store.FindAthlete(ctx, athleteID)
	if findErr != nil {
		log.Warn("查找运动员失败", "err", findErr)
	}
	fresh := c.Fetcher.FetchAthlete(ctx, athleteID)
	if fresh.Empty() {
		c.Metrics.Upsert(metrics.OpSkip)
		return fresh
	}
	// 查找失败时无法判断插入还是更新，不写入，避免产生重复文档
	if findErr != nil {
		c.Metrics.Upsert(metrics.OpError)
		return fresh
	}

	if len(existing) > 0 {
		if len(existing) > 1 {
			log.Warn("存在多条记录，仅更新第一条", "docs", len(existing))
		}
		if err := c.Store.UpdateAthlete(ctx, existing[0].ID, fresh); err != nil {
			log.Warn("更新运动员失败", "err", err)
			c.Metrics.Upsert(metrics.OpError)
			return fresh
		}
		log.Info("已更新运动员", "name", fresh.Name, "pr5k", fresh.PersonalBest5k)
		c.Metrics.Upsert(metrics.OpUpdate)
		return fresh
	}

	if _, err := c.Store.InsertAthlete(ctx, fresh); err != nil {
		log.Warn("写入运动员失败", "err", err)
		c.Metrics.Upsert(metrics.OpError)
		return fresh
	}
	log.Info("已新增运动员", "name", fresh.Name, "pr5k", fresh.PersonalBest5k)
	c.Metrics.Upsert(metrics.OpInsert)
	return fresh
}

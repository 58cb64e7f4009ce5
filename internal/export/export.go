// 包 export 负责导出：将库中运动员写为 JSON 文件，以及把前端提交的二维数据写成 CSV。
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"xc-athletes/internal/model"
)

// Source 为导出所需的只读存储操作。
type Source interface {
	ListAthletes(ctx context.Context) ([]model.AthleteRecord, error)
	Stats(ctx context.Context) (model.Stats, error)
}

// ToJSON 查询统计与全部运动员并写入 JSON 文件（带缩进格式）。
func ToJSON(ctx context.Context, s Source, path string) error {
	athletes, err := s.ListAthletes(ctx)
	if err != nil {
		return fmt.Errorf("list athletes: %w", err)
	}
	stats, err := s.Stats(ctx)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	return write(path, model.Export{Stats: stats, Athletes: athletes})
}

// ToJSONData 直接将内存中的运动员（如 --dry-run 结果）写成 JSON，统计按内存数据计算。
func ToJSONData(athletes []model.AthleteRecord, path string) error {
	schools := map[string]struct{}{}
	withPR := 0
	for _, a := range athletes {
		if a.SchoolID != "" {
			schools[a.SchoolID] = struct{}{}
		}
		if a.PersonalBest5k > 0 {
			withPR++
		}
	}
	st := model.Stats{
		AthletesTotal: len(athletes),
		SchoolsTotal:  len(schools),
		WithPR5k:      withPR,
		UpdatedAt:     time.Now(),
	}
	if athletes == nil {
		athletes = []model.AthleteRecord{}
	}
	return write(path, model.Export{Stats: st, Athletes: athletes})
}

func write(path string, out model.Export) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode json to %s: %w", path, err)
	}
	return nil
}

// 包 api 提供 REST 接口：按学校/赛会查询库中运动员，触发比赛/赛会/学校抓取，以及 CSV 导出。
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"xc-athletes/internal/logx"
	"xc-athletes/internal/metrics"
	"xc-athletes/internal/model"
)

// Queries 为查询接口依赖的存储操作。
type Queries interface {
	FindAthlete(ctx context.Context, athleteID string) ([]model.StoredAthlete, error)
	AthletesBySchoolSeason(ctx context.Context, schoolID, season string) ([]model.AthleteRecord, error)
	AthletesByMeet(ctx context.Context, meetID string) ([]model.AthleteRecord, error)
	Stats(ctx context.Context) (model.Stats, error)
}

// Scraper 为抓取接口依赖的批量执行器。
type Scraper interface {
	ScrapeRace(ctx context.Context, raceID, token string) (model.BatchSummary, error)
	ScrapeMeet(ctx context.Context, meetID, token string, allResults bool) (model.BatchSummary, error)
	ScrapeSchool(ctx context.Context, schoolID, season string) (model.BatchSummary, error)
}

// Options 为 Server 构造参数。
type Options struct {
	Queries     Queries
	Scraper     Scraper
	OutputDir   string
	CORSOrigins []string
	Metrics     *metrics.Manager
}

// Server 持有处理器所需的全部依赖。
type Server struct {
	q         Queries
	scraper   Scraper
	outputDir string
	origins   []string
	metrics   *metrics.Manager
}

func NewServer(o Options) *Server {
	return &Server{
		q:         o.Queries,
		scraper:   o.Scraper,
		outputDir: o.OutputDir,
		origins:   o.CORSOrigins,
		metrics:   o.Metrics,
	}
}

// envelope 为错误等结构化响应的外层。
type envelope map[string]any

// writeJSON 编码并写出 JSON 响应。
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	js, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "Internal Server Error: Failed to marshal JSON", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(js); err != nil {
		logx.Debugf("写响应失败：%v", err)
	}
}

// errorJSON 以 {"error": "..."} 格式返回错误，默认 500。
func (s *Server) errorJSON(w http.ResponseWriter, err error, status ...int) {
	code := http.StatusInternalServerError
	if len(status) > 0 {
		code = status[0]
	}
	s.writeJSON(w, code, envelope{"error": err.Error()})
}

// 包 model 定义运动员成绩的归一化数据模型（运动员/赛季/比赛）以及导出结构。
package model

import "time"

const (
	// NoPersonalBest 表示没有 5000 米成绩记录。
	NoPersonalBest float64 = -1
	// UnknownRaceID 在上游数据无法给出 raceId 时使用，不使用空字符串。
	UnknownRaceID = "unknown"
)

// AthleteRecord 为持久化的基本单元，athleteId 全局唯一。
type AthleteRecord struct {
	AthleteID      string         `json:"athleteId"`
	Name           string         `json:"name"`
	Gender         string         `json:"gender"`
	PersonalBest5k float64        `json:"pr5k"`
	SchoolID       string         `json:"schoolId"`
	Results        []SeasonRecord `json:"results"`
}

// Empty 报告记录是否为抓取失败产生的空记录。
func (a AthleteRecord) Empty() bool { return a.AthleteID == "" }

// Season 按赛季标识查找，未找到返回 nil。
func (a *AthleteRecord) Season(season string) *SeasonRecord {
	for i := range a.Results {
		if a.Results[i].Season == season {
			return &a.Results[i]
		}
	}
	return nil
}

// SeasonRecord 为一个赛季的成绩，meets 按日期升序。
type SeasonRecord struct {
	Season string       `json:"season"`
	Grade  string       `json:"grade"`
	Meets  []MeetResult `json:"meets"`
}

// MeetResult 为单场比赛成绩。
type MeetResult struct {
	Place            int       `json:"place"`
	Time             float64   `json:"time"`
	TimeReadable     string    `json:"timeReadable"`
	Date             time.Time `json:"date"`
	MeetName         string    `json:"meetName"`
	MeetID           string    `json:"meetId"`
	RaceID           string    `json:"raceId"`
	Distance         string    `json:"distance"`
	IsSeasonRecord   bool      `json:"isSr"`
	IsPersonalRecord bool      `json:"isPr"`
}

// StoredAthlete 为存储中的一条文档：ID 为存储生成的句柄，用于更新。
type StoredAthlete struct {
	ID        string        `json:"_id"`
	Record    AthleteRecord `json:"record"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// BatchSummary 为批量抓取接口的返回体。
type BatchSummary struct {
	AthletesAdded int `json:"athletesAdded"`
	TotalAthletes int `json:"totalAthletes"`
}

// Stats 为存储统计信息。
type Stats struct {
	AthletesTotal int       `json:"athletes_total"`
	SchoolsTotal  int       `json:"schools_total"`
	WithPR5k      int       `json:"with_pr5k"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Export 为 export 命令写出的 JSON 顶层结构。
type Export struct {
	Stats    Stats           `json:"stats"`
	Athletes []AthleteRecord `json:"athletes"`
}

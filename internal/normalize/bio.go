package normalize

import (
	"fmt"
	"strconv"
	"strings"

	"dario.cat/mergo"

	"xc-athletes/internal/model"
	"xc-athletes/internal/racetime"
)

// pbDistance 为 bio 接口中 5000 米的距离值（米）。
const pbDistance = 5000

// meetEntry 为比赛目录项；Result 为合并到该比赛上的成绩字段。
type meetEntry struct {
	MeetName string
	EndDate  string
	Result   resultFields
}

// resultFields 的字段需导出以便 mergo 合并；同一比赛的后一条成绩整体覆盖前一条，零值同样覆盖。
type resultFields struct {
	Place        int
	Time         float64
	TimeReadable string
	Distance     string
	Season       string
	SeasonRecord bool
	PersonalBest bool
	Seen         bool
}

// fromBio 将 bio 文档转换为运动员记录：
// 先按 grades 建赛季桶，再把成绩合并到比赛目录（后写覆盖），最后按赛季分桶并按日期排序。
func fromBio(athleteID string, bio BioData) (model.AthleteRecord, error) {
	name := strings.TrimSpace(bio.Athlete.FirstName + " " + bio.Athlete.LastName)
	if name == "" && len(bio.ResultsXC) == 0 && bio.Grades.Len() == 0 {
		return model.AthleteRecord{}, fmt.Errorf("athlete %s: bio has no athlete data: %w", athleteID, ErrEmptyPayload)
	}

	b := newBuckets()
	for _, key := range bio.Grades.Keys {
		g, _ := bio.Grades.Get(key)
		b.ensure(seasonFromKey(key), gradeLabel(g))
	}

	var entries Ordered[meetEntry]
	for _, key := range bio.Meets.Keys {
		m, _ := bio.Meets.Get(key)
		entries.Set(key, meetEntry{MeetName: m.MeetName, EndDate: m.EndDate})
	}

	pb := model.NoPersonalBest
	for _, r := range bio.ResultsXC {
		dist := r.Distance.String()
		t := r.SortValue.Float()
		readable := racetime.Readable(r.Result)
		if t <= 0 {
			t = racetime.Seconds(readable)
		}
		if r.PersonalBest && r.Distance.Float() == pbDistance && t > 0 {
			pb = t
		}
		sr, pr := racetime.Marks(r.Result)
		fields := resultFields{
			Place:        r.Place.Int(),
			Time:         t,
			TimeReadable: readable,
			Distance:     distanceLabel(dist),
			Season:       r.SeasonID.String(),
			SeasonRecord: sr || r.SeasonBest,
			PersonalBest: pr || r.PersonalBest,
			Seen:         true,
		}
		key := r.MeetID.String()
		cur, _ := entries.Get(key)
		if err := mergo.Merge(&cur.Result, fields, mergo.WithOverride, mergo.WithOverwriteWithEmptyValue); err != nil {
			return model.AthleteRecord{}, fmt.Errorf("athlete %s: merge meet %s: %w", athleteID, key, err)
		}
		entries.Set(key, cur)
	}

	for _, key := range entries.Keys {
		e, _ := entries.Get(key)
		res := e.Result
		// 目录中没有成绩引用的比赛不归入任何赛季
		if !res.Seen {
			continue
		}
		sr := b.ensure(res.Season, "")
		sr.Meets = append(sr.Meets, model.MeetResult{
			Place:            res.Place,
			Time:             res.Time,
			TimeReadable:     res.TimeReadable,
			Date:             racetime.ParseDate(e.EndDate, yearRe.FindString(res.Season)),
			MeetName:         e.MeetName,
			MeetID:           key,
			RaceID:           model.UnknownRaceID,
			Distance:         res.Distance,
			IsSeasonRecord:   res.SeasonRecord,
			IsPersonalRecord: res.PersonalBest,
		})
	}

	return model.AthleteRecord{
		AthleteID:      athleteID,
		Name:           name,
		Gender:         genderCode(bio.Athlete.Gender),
		PersonalBest5k: pb,
		SchoolID:       bio.Athlete.SchoolID.String(),
		Results:        b.results(),
	}, nil
}

// buckets 为按插入顺序排列的赛季桶。
type buckets struct {
	order []string
	by    map[string]*model.SeasonRecord
}

func newBuckets() *buckets {
	return &buckets{by: map[string]*model.SeasonRecord{}}
}

// ensure 返回赛季桶，不存在时创建；已存在且年级为空时补上年级。
func (b *buckets) ensure(season, grade string) *model.SeasonRecord {
	if sr, ok := b.by[season]; ok {
		if sr.Grade == "" {
			sr.Grade = grade
		}
		return sr
	}
	sr := &model.SeasonRecord{Season: season, Grade: grade, Meets: []model.MeetResult{}}
	b.by[season] = sr
	b.order = append(b.order, season)
	return sr
}

func (b *buckets) results() []model.SeasonRecord {
	out := make([]model.SeasonRecord, 0, len(b.order))
	for _, s := range b.order {
		sr := *b.by[s]
		sortMeets(sr.Meets)
		out = append(out, sr)
	}
	return out
}

// seasonFromKey 取 grades 键中下划线后的赛季部分（"12345_2021" -> "2021"）。
func seasonFromKey(key string) string {
	if _, season, ok := strings.Cut(key, "_"); ok {
		return season
	}
	return key
}

// gradeLabel 将年级数字转为 "11th Grade"；非数字时原样返回。
func gradeLabel(g Flex) string {
	s := g.String()
	if s == "" {
		return ""
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return s
	}
	return racetime.Ordinal(n) + " Grade"
}

// distanceLabel 将数字距离转为 "5000 Meters"。
func distanceLabel(d string) string {
	if d == "" {
		return ""
	}
	if _, err := strconv.ParseFloat(d, 64); err == nil {
		return d + " Meters"
	}
	return racetime.Distance(d)
}

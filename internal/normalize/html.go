package normalize

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"xc-athletes/internal/model"
	"xc-athletes/internal/racetime"
	"xc-athletes/internal/selector"
)

// pbHeading 为计算 5000 米个人最佳时匹配的距离标题（原始文本，含千位分隔符）。
const pbHeading = "5,000 Meters"

var yearRe = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// htmlAcc 为遍历赛季容器时携带的累积状态。
type htmlAcc struct {
	schoolID string
	pb       float64
	seasons  []model.SeasonRecord
}

// seasonHeader 为赛季容器头部的取值结果。
type seasonHeader struct {
	id         string
	grade      string
	schoolLink string
}

// raceTable 为赛季内某个距离的成绩表。
type raceTable struct {
	heading string
	rows    *goquery.Selection
}

func (n *Normalizer) fromHTML(athleteID string, p HTMLPayload) (model.AthleteRecord, error) {
	if p.Doc == nil {
		return model.AthleteRecord{}, fmt.Errorf("athlete %s: nil document: %w", athleteID, ErrEmptyPayload)
	}
	root := p.Doc.Selection
	name := selector.Value(root, n.bio.Name)
	containers := root.Find(n.bio.Season)
	if name == "" && containers.Length() == 0 {
		return model.AthleteRecord{}, fmt.Errorf("athlete %s: no name or season on bio page: %w", athleteID, ErrEmptyPayload)
	}

	acc := htmlAcc{pb: model.NoPersonalBest}
	containers.Each(func(i int, s *goquery.Selection) {
		acc = n.readSeason(acc, i, s)
	})
	if acc.seasons == nil {
		acc.seasons = []model.SeasonRecord{}
	}
	return model.AthleteRecord{
		AthleteID:      athleteID,
		Name:           name,
		Gender:         genderCode(selector.Value(root, n.bio.Gender)),
		PersonalBest5k: acc.pb,
		SchoolID:       acc.schoolID,
		Results:        acc.seasons,
	}, nil
}

// readSeason 处理一个赛季容器并返回更新后的累积状态。
// 学校 ID 只取第一个赛季；同一赛季 ID 再次出现时合并到已有条目。
func (n *Normalizer) readSeason(acc htmlAcc, idx int, s *goquery.Selection) htmlAcc {
	h := n.header(s)
	if idx == 0 {
		if ids := racetime.NumericGroups(h.schoolLink, 1); len(ids) > 0 {
			acc.schoolID = ids[0]
		}
	}
	year := yearRe.FindString(h.id)

	var meets []model.MeetResult
	for _, t := range n.tables(s) {
		distance := racetime.Distance(t.heading)
		t.rows.Each(func(_ int, row *goquery.Selection) {
			m, ok := n.resultRow(row, year)
			if !ok {
				return
			}
			m.Distance = distance
			if t.heading == pbHeading && m.IsPersonalRecord && m.Time > 0 {
				if acc.pb < 0 || m.Time < acc.pb {
					acc.pb = m.Time
				}
			}
			meets = append(meets, m)
		})
	}

	if existing := seasonIndex(acc.seasons, h.id); existing >= 0 {
		sr := &acc.seasons[existing]
		sr.Meets = append(sr.Meets, meets...)
		if sr.Grade == "" {
			sr.Grade = h.grade
		}
		sortMeets(sr.Meets)
		return acc
	}
	if meets == nil {
		meets = []model.MeetResult{}
	}
	sortMeets(meets)
	acc.seasons = append(acc.seasons, model.SeasonRecord{Season: h.id, Grade: h.grade, Meets: meets})
	return acc
}

func (n *Normalizer) header(s *goquery.Selection) seasonHeader {
	return seasonHeader{
		id:         selector.Value(s, n.bio.SeasonID),
		grade:      selector.Value(s, n.bio.Grade),
		schoolLink: selector.Value(s, n.bio.SchoolLink),
	}
}

func (n *Normalizer) tables(s *goquery.Selection) []raceTable {
	var out []raceTable
	s.Find(n.bio.Table).Each(func(_ int, t *goquery.Selection) {
		heading := selector.OwnText(t.Find(n.bio.Heading).First())
		if heading == "" {
			heading = selector.Value(t, n.bio.Heading)
		}
		out = append(out, raceTable{heading: heading, rows: t.Find(n.bio.Row)})
	})
	return out
}

// resultRow 读取一行成绩；没有单元格的行（表头）返回 false。
func (n *Normalizer) resultRow(row *goquery.Selection, seasonYear string) (model.MeetResult, bool) {
	if row.Find("td").Length() == 0 {
		return model.MeetResult{}, false
	}
	raw := selector.Value(row, n.bio.Result)
	readable := racetime.Readable(raw)
	sr, pr := racetime.Marks(raw)
	m := model.MeetResult{
		Place:            leadingInt(selector.Value(row, n.bio.Place)),
		Time:             racetime.Seconds(readable),
		TimeReadable:     readable,
		Date:             racetime.ParseDate(selector.Value(row, n.bio.Date), seasonYear),
		MeetName:         selector.Value(row, n.bio.Meet),
		RaceID:           model.UnknownRaceID,
		IsSeasonRecord:   sr,
		IsPersonalRecord: pr,
	}
	ids := racetime.NumericGroups(selector.Value(row, n.bio.MeetLink), 2)
	if len(ids) > 0 {
		m.MeetID = ids[0]
	}
	if len(ids) > 1 {
		m.RaceID = ids[1]
	}
	return m, true
}

func seasonIndex(seasons []model.SeasonRecord, id string) int {
	for i := range seasons {
		if seasons[i].Season == id {
			return i
		}
	}
	return -1
}

// sortMeets 按日期升序，日期相同保持原顺序。
func sortMeets(meets []model.MeetResult) {
	sort.SliceStable(meets, func(i, j int) bool { return meets[i].Date.Before(meets[j].Date) })
}

// leadingInt 取文本中的第一个数字分组（"3." -> 3），没有时为 0。
func leadingInt(s string) int {
	ids := racetime.NumericGroups(s, 1)
	if len(ids) == 0 {
		return 0
	}
	return Flex(ids[0]).Int()
}

// genderCode 将 "Male"/"f" 等统一为单字符大写代码。
func genderCode(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1])
}

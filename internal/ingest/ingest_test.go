package ingest_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"xc-athletes/internal/fetch"
	"xc-athletes/internal/ingest"
	"xc-athletes/internal/logx"
	"xc-athletes/internal/model"
	"xc-athletes/internal/normalize"
	"xc-athletes/internal/races"
	"xc-athletes/internal/roster"
	"xc-athletes/internal/rules"
	"xc-athletes/internal/store"
)

// fakeFetcher 按 ID 返回预置记录，未预置的视为抓取失败。
type fakeFetcher struct {
	recs  map[string]model.AthleteRecord
	calls []string
}

func (f *fakeFetcher) FetchAthlete(_ context.Context, id string) model.AthleteRecord {
	f.calls = append(f.calls, id)
	return f.recs[id]
}

func rec(id string, pr float64, season string) model.AthleteRecord {
	return model.AthleteRecord{
		AthleteID: id, Name: "A" + id, Gender: "M", PersonalBest5k: pr, SchoolID: "408",
		Results: []model.SeasonRecord{{Season: season, Grade: "9th Grade", Meets: []model.MeetResult{}}},
	}
}

func openDB(t *testing.T) *store.SQLite {
	t.Helper()
	s, err := store.OpenSQLite(filepath.Join(t.TempDir(), "t.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAthlete_InsertsExactlyOnce(t *testing.T) {
	db := openDB(t)
	c := &ingest.Coordinator{Store: db, Fetcher: &fakeFetcher{recs: map[string]model.AthleteRecord{"1": rec("1", 1000, "2021")}}}
	got := c.SaveAthlete(context.Background(), "1")
	require.Equal(t, "1", got.AthleteID)

	docs, err := db.FindAthlete(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, docs, 1)

	// 再次调用走更新分支，不产生第二条文档
	c.SaveAthlete(context.Background(), "1")
	docs, err = db.FindAthlete(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, docs, 1)
}

func TestSaveAthlete_OverwritesPersonalBest(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	_, err := db.InsertAthlete(ctx, rec("2", 950, "2020"))
	require.NoError(t, err)

	// 新值比旧值差：整体覆盖，不取最小值
	c := &ingest.Coordinator{Store: db, Fetcher: &fakeFetcher{recs: map[string]model.AthleteRecord{"2": rec("2", 1010, "2021")}}}
	got := c.SaveAthlete(ctx, "2")
	require.Equal(t, 1010.0, got.PersonalBest5k)

	docs, err := db.FindAthlete(ctx, "2")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, 1010.0, docs[0].Record.PersonalBest5k)
	require.Len(t, docs[0].Record.Results, 1)
	require.Equal(t, "2021", docs[0].Record.Results[0].Season)
}

func TestSaveAthlete_FailedFetchLeavesStoreUnchanged(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	_, err := db.InsertAthlete(ctx, rec("3", 990, "2020"))
	require.NoError(t, err)

	c := &ingest.Coordinator{Store: db, Fetcher: &fakeFetcher{}}
	require.True(t, c.SaveAthlete(ctx, "3").Empty())
	require.True(t, c.SaveAthlete(ctx, "4").Empty())

	docs, err := db.FindAthlete(ctx, "3")
	require.NoError(t, err)
	require.Equal(t, 990.0, docs[0].Record.PersonalBest5k)
	none, err := db.FindAthlete(ctx, "4")
	require.NoError(t, err)
	require.Empty(t, none)
}

// failingStore 查找正常，写入总是失败。
type failingStore struct{ *store.Memory }

func (failingStore) InsertAthlete(context.Context, model.AthleteRecord) (string, error) {
	return "", errors.New("disk full")
}

func TestSaveAthlete_WriteFailureStillReturnsRecord(t *testing.T) {
	st := failingStore{store.NewMemory()}
	c := &ingest.Coordinator{Store: st, Fetcher: &fakeFetcher{recs: map[string]model.AthleteRecord{"5": rec("5", 1000, "2021")}}}
	got := c.SaveAthlete(context.Background(), "5")
	require.Equal(t, "5", got.AthleteID)
	require.Equal(t, 0, st.Len())
}

// 写入失败的运动员仍计入 athletesAdded：计数表示抓取成功的人数
func TestRunner_WriteFailureStillCounted(t *testing.T) {
	st := failingStore{store.NewMemory()}
	c := &ingest.Coordinator{Store: st, Fetcher: &fakeFetcher{recs: map[string]model.AthleteRecord{
		"5": rec("5", 1000, "2021"),
		"6": rec("6", 1100, "2021"),
	}}}
	r := &ingest.Runner{Saver: c, Races: fakeRaces{race: []string{"5", "6", "7"}}}
	sum, err := r.ScrapeRace(context.Background(), "1", "tok")
	require.NoError(t, err)
	require.Equal(t, model.BatchSummary{AthletesAdded: 2, TotalAthletes: 3}, sum)
	require.Equal(t, 0, st.Len())
}

func TestSaveAthlete_LogsWithComponentAttrs(t *testing.T) {
	var buf bytes.Buffer
	logx.Init(logx.Options{Level: "info", Format: "pretty", Locale: "en", Color: "never", Out: &buf})
	t.Cleanup(func() { logx.Init(logx.Options{Level: "off"}) })

	c := &ingest.Coordinator{Store: failingStore{store.NewMemory()}, Fetcher: &fakeFetcher{recs: map[string]model.AthleteRecord{"5": rec("5", 1000, "2021")}}}
	c.SaveAthlete(context.Background(), "5")
	out := buf.String()
	require.Contains(t, out, "[WARN] 写入运动员失败")
	require.Contains(t, out, "component=ingest")
	require.Contains(t, out, "athlete=5")
	require.Contains(t, out, "err=disk full")
}

type fakeRaces struct{ race, meet, all []string }

func (f fakeRaces) RaceAthletes(context.Context, string, string) []string   { return f.race }
func (f fakeRaces) MeetAthletes(context.Context, string, string) []string   { return f.meet }
func (f fakeRaces) MeetAllResults(context.Context, string, string) []string { return f.all }

type fakeRoster struct {
	team roster.Team
	err  error
}

func (f fakeRoster) SchoolAthletes(context.Context, string, string) (roster.Team, error) {
	return f.team, f.err
}

func TestRunner_MeetAndSchool(t *testing.T) {
	mem := store.NewMemory()
	ff := &fakeFetcher{recs: map[string]model.AthleteRecord{"1": rec("1", 1, "2021"), "2": rec("2", 2, "2021")}}
	r := &ingest.Runner{
		Saver:  &ingest.Coordinator{Store: mem, Fetcher: ff},
		Races:  fakeRaces{meet: []string{"1", "2", "2", "9"}, all: []string{"1"}},
		Roster: fakeRoster{team: roster.Team{Men: []string{"1"}, Women: []string{"2", "8"}}},
	}
	ctx := context.Background()

	sum, err := r.ScrapeMeet(ctx, "m", "tok", false)
	require.NoError(t, err)
	require.Equal(t, model.BatchSummary{AthletesAdded: 3, TotalAthletes: 4}, sum)
	// 重复的 "2" 走更新分支
	require.Equal(t, 2, mem.Len())

	sum, err = r.ScrapeMeet(ctx, "m", "tok", true)
	require.NoError(t, err)
	require.Equal(t, model.BatchSummary{AthletesAdded: 1, TotalAthletes: 1}, sum)

	sum, err = r.ScrapeSchool(ctx, "408", "2021")
	require.NoError(t, err)
	require.Equal(t, model.BatchSummary{AthletesAdded: 2, TotalAthletes: 3}, sum)
	require.Equal(t, []string{"1", "2", "8"}, ff.calls[len(ff.calls)-3:])

	r.Roster = fakeRoster{err: roster.ErrLayout}
	_, err = r.ScrapeSchool(ctx, "408", "2021")
	require.True(t, errors.Is(err, roster.ErrLayout))
}

func TestRunner_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &ingest.Runner{
		Saver: &ingest.Coordinator{Store: store.NewMemory(), Fetcher: &fakeFetcher{}},
		Races: fakeRaces{race: []string{"1", "2"}},
	}
	sum, err := r.ScrapeRace(ctx, "r", "tok")
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, sum.AthletesAdded)
	require.Equal(t, 2, sum.TotalAthletes)
}

// 比赛返回 [A, B]，A 抓取成功、B 抓取失败：新增 1，共 2。
func TestEndToEnd_RaceWithOneFailedAthlete(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/Meet/GetResultsData", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"AthleteID":101,"Result":"16:00.0"},{"AthleteID":102,"Result":"16:10.0"}]}`))
	})
	mux.HandleFunc("/api/v1/AthleteBio/GetAthleteBioData", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("athleteId") != "101" {
			http.Error(w, "upstream down", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"athlete":{"FirstName":"Ann","LastName":"B","Gender":"F","SchoolID":7},
			"grades":{"x_2021":10},"meets":{"55":{"MeetName":"Dual","EndDate":"2021-09-01"}},
			"resultsXC":[{"MeetID":55,"Place":1,"SortValue":960,"Result":"16:00.0","Distance":5000,"SeasonID":2021,"PersonalBest":true}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	hc, err := fetch.New(fetch.Options{BaseURL: srv.URL, Timeout: 2 * time.Second})
	require.NoError(t, err)
	db := openDB(t)
	r := &ingest.Runner{
		Saver: &ingest.Coordinator{
			Store: db,
			Fetcher: &normalize.Fetcher{
				Source:     normalize.BioAPISource{Client: hc, Path: "/api/v1/AthleteBio/GetAthleteBioData?athleteId={athleteId}&sport=xc"},
				Normalizer: normalize.New(rules.Default()),
			},
		},
		Races: &races.Client{HTTP: hc, Paths: races.Paths{RaceResults: "/api/v1/Meet/GetResultsData"}, LevelMask: 4},
	}
	sum, err := r.ScrapeRace(context.Background(), "900", "tok")
	require.NoError(t, err)
	require.Equal(t, model.BatchSummary{AthletesAdded: 1, TotalAthletes: 2}, sum)

	docs, err := db.FindAthlete(context.Background(), "101")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, 960.0, docs[0].Record.PersonalBest5k)
	require.Equal(t, "7", docs[0].Record.SchoolID)
	none, err := db.FindAthlete(context.Background(), "102")
	require.NoError(t, err)
	require.Empty(t, none)
}

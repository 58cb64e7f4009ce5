package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"xc-athletes/internal/api"
	"xc-athletes/internal/export"
	"xc-athletes/internal/ingest"
	"xc-athletes/internal/logx"
	"xc-athletes/internal/model"
	"xc-athletes/internal/store"
)

var (
	scrapeToken  string
	scrapeAll    bool
	scrapeDryRun bool
	dryRunOut    string
	athleteLive  bool
	rosterJSON   bool
)

func init() {
	scrapeCmd.PersistentFlags().StringVar(&scrapeToken, "token", "", "upstream access token (Anettokens header)")
	scrapeCmd.PersistentFlags().BoolVar(&scrapeDryRun, "dry-run", false, "keep results in memory instead of writing the database")
	scrapeCmd.PersistentFlags().StringVar(&dryRunOut, "out", "", "with --dry-run, write scraped athletes to this JSON file")
	scrapeMeetCmd.Flags().BoolVar(&scrapeAll, "all-results", false, "use the whole-meet results endpoint instead of per-division results")
	scrapeCmd.AddCommand(scrapeRaceCmd, scrapeMeetCmd, scrapeSchoolCmd)

	athleteShowCmd.Flags().BoolVar(&athleteLive, "live", false, "fetch from upstream instead of the database")
	athleteCmd.AddCommand(athleteShowCmd)

	rosterCmd.Flags().BoolVar(&rosterJSON, "json", false, "print the roster as JSON")

	rootCmd.AddCommand(serveCmd, scrapeCmd, athleteCmd, exportCmd, rosterCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		st, err := a.openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		ctx := cmd.Context()
		if a.cfg.ResetOnStart {
			if err := st.Reset(ctx); err != nil {
				logx.Warnf("启动清理数据库失败：%v", err)
			} else {
				logx.Infof("已清理数据库表（athletes）")
			}
		}
		handler := api.NewServer(api.Options{
			Queries:     st,
			Scraper:     a.runner(st),
			OutputDir:   a.cfg.OutputDir,
			CORSOrigins: a.cfg.CORSOrigins,
			Metrics:     a.metrics,
		}).Routes()
		srv := &http.Server{
			Addr:              a.cfg.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		errCh := make(chan error, 1)
		go func() {
			logx.Infof("服务启动：%s（数据源=%s）", a.cfg.Addr, a.cfg.Source)
			errCh <- srv.ListenAndServe()
		}()
		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}
		logx.Infof("正在关闭服务…")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape athletes from a race, a meet or a school roster and store them.",
}

var scrapeRaceCmd = &cobra.Command{
	Use:   "race <raceId>",
	Short: "Scrape every finisher of one race (division).",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScrape(cmd.Context(), func(ctx context.Context, r *ingest.Runner) (model.BatchSummary, error) {
			return r.ScrapeRace(ctx, args[0], scrapeToken)
		})
	},
}

var scrapeMeetCmd = &cobra.Command{
	Use:   "meet <meetId>",
	Short: "Scrape every high-school division of a meet.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScrape(cmd.Context(), func(ctx context.Context, r *ingest.Runner) (model.BatchSummary, error) {
			return r.ScrapeMeet(ctx, args[0], scrapeToken, scrapeAll)
		})
	},
}

var scrapeSchoolCmd = &cobra.Command{
	Use:   "school <schoolId> <season>",
	Short: "Scrape every athlete on a school's season roster.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScrape(cmd.Context(), func(ctx context.Context, r *ingest.Runner) (model.BatchSummary, error) {
			return r.ScrapeSchool(ctx, args[0], args[1])
		})
	},
}

// runScrape 组装存储（数据库或 --dry-run 内存）并执行一次批量抓取。
func runScrape(ctx context.Context, fn func(context.Context, *ingest.Runner) (model.BatchSummary, error)) error {
	a, err := setup()
	if err != nil {
		return err
	}
	var (
		st  ingest.Store
		mem *store.Memory
	)
	if scrapeDryRun {
		mem = store.NewMemory()
		st = mem
		logx.Infof("dry-run：结果仅保存在内存中")
	} else {
		db, err := a.openStore()
		if err != nil {
			return err
		}
		defer db.Close()
		st = db
	}
	sum, err := fn(ctx, a.runner(st))
	if err != nil {
		return err
	}
	fmt.Printf("athletesAdded=%d totalAthletes=%d\n", sum.AthletesAdded, sum.TotalAthletes)
	if mem != nil && dryRunOut != "" {
		if err := export.ToJSONData(mem.Snapshot(), dryRunOut); err != nil {
			return fmt.Errorf("export json: %w", err)
		}
		logx.Infof("已导出 %s", dryRunOut)
	}
	return nil
}

var athleteCmd = &cobra.Command{
	Use:   "athlete",
	Short: "Inspect a single athlete.",
}

var athleteShowCmd = &cobra.Command{
	Use:   "show <athleteId>",
	Short: "Print an athlete's seasons and meets as a table.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		var rec model.AthleteRecord
		if athleteLive {
			rec = a.fetcher().FetchAthlete(cmd.Context(), args[0])
		} else {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			docs, err := st.FindAthlete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(docs) > 0 {
				rec = docs[0].Record
			}
		}
		if rec.Empty() {
			return fmt.Errorf("athlete %s not found", args[0])
		}
		renderAthlete(rec)
		return nil
	},
}

func renderAthlete(rec model.AthleteRecord) {
	pr := "-"
	if rec.PersonalBest5k > 0 {
		pr = fmt.Sprintf("%.1fs", rec.PersonalBest5k)
	}
	fmt.Printf("%s (%s)  gender=%s  school=%s  5k PR=%s\n", rec.Name, rec.AthleteID, rec.Gender, rec.SchoolID, pr)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Season", "Grade", "Date", "Meet", "Distance", "Time", "Place", "Marks", "Meet/Race"})
	for _, s := range rec.Results {
		for _, m := range s.Meets {
			date := ""
			if !m.Date.IsZero() {
				date = m.Date.Format("2006-01-02")
			}
			t.AppendRow(table.Row{s.Season, s.Grade, date, m.MeetName, m.Distance, m.TimeReadable, m.Place, marks(m), m.MeetID + "/" + m.RaceID})
		}
		if len(s.Meets) == 0 {
			t.AppendRow(table.Row{s.Season, s.Grade, "", "", "", "", "", "", ""})
		}
		t.AppendSeparator()
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func marks(m model.MeetResult) string {
	var out []string
	if m.IsSeasonRecord {
		out = append(out, "SR")
	}
	if m.IsPersonalRecord {
		out = append(out, "PR")
	}
	return strings.Join(out, " ")
}

var exportCmd = &cobra.Command{
	Use:   "export [path]",
	Short: "Write every stored athlete with summary stats to a JSON file.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		path := "athletes.json"
		if len(args) == 1 {
			path = args[0]
		}
		st, err := a.openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		if err := export.ToJSON(cmd.Context(), st, path); err != nil {
			return err
		}
		logx.Infof("已导出 %s", path)
		return nil
	},
}

var rosterCmd = &cobra.Command{
	Use:   "roster <schoolId> <season>",
	Short: "Print the athlete ids on a school's season roster without storing anything.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		team, err := a.roster().SchoolAthletes(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if rosterJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(team)
		}
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"#", "Men", "Women"})
		for i := 0; i < max(len(team.Men), len(team.Women)); i++ {
			row := table.Row{i + 1, "", ""}
			if i < len(team.Men) {
				row[1] = team.Men[i]
			}
			if i < len(team.Women) {
				row[2] = team.Women[i]
			}
			t.AppendRow(row)
		}
		t.AppendFooter(table.Row{"", len(team.Men), len(team.Women)})
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}

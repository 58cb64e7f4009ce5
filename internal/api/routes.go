package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Routes 注册中间件与全部路由。
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("API works!"))
	})
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	// 查询库中数据
	r.Get("/Athletes/School/{schoolId}/{season}", s.handleSchoolAthletes)
	r.Get("/Athletes/Meet/{meetId}", s.handleMeetAthletes)
	r.Get("/Athletes/{athleteId}", s.handleAthlete)
	// 旧接口，保留兼容
	r.Post("/getSchoolAthletes", s.handleLegacySchoolAthletes)
	r.Post("/getMeetAthletes", s.handleLegacyMeetAthletes)

	// 从上游抓取并写库
	r.Post("/scrapeRaceAthletes", s.handleScrapeRace)
	r.Post("/scrapeMeetAthletes", s.handleScrapeMeet)
	r.Post("/scrapeSchoolAthletes", s.handleScrapeSchool)

	r.Post("/toCSV", s.handleToCSV)
	return r
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"xc-athletes/internal/export"
	"xc-athletes/internal/logx"
	"xc-athletes/internal/model"
	"xc-athletes/internal/normalize"
	"xc-athletes/internal/roster"
)

// 请求体中的 ID 既可能是数字也可能是字符串
type schoolRequest struct {
	SchoolID normalize.Flex `json:"schoolId"`
	Season   normalize.Flex `json:"season"`
}

type meetRequest struct {
	MeetID     normalize.Flex `json:"meetId"`
	JSONToken  string         `json:"jsonToken"`
	AllResults bool           `json:"allResults"`
}

type raceRequest struct {
	RaceID    normalize.Flex `json:"raceId"`
	JSONToken string         `json:"jsonToken"`
}

type csvRequest struct {
	Data [][]json.RawMessage `json:"data"`
	Stat string              `json:"stat"`
}

func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.New("bad request: could not decode JSON")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st, err := s.q.Stats(r.Context())
	if err != nil {
		s.errorJSON(w, err, http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"status": "ok", "stats": st})
}

func (s *Server) handleSchoolAthletes(w http.ResponseWriter, r *http.Request) {
	schoolID, season := chi.URLParam(r, "schoolId"), chi.URLParam(r, "season")
	list, err := s.q.AthletesBySchoolSeason(r.Context(), schoolID, season)
	if err != nil {
		logx.Errorf("查询学校运动员失败：学校=%s 赛季=%s：%v", schoolID, season, err)
		s.errorJSON(w, err)
		return
	}
	if len(list) == 0 {
		s.errorJSON(w, fmt.Errorf("no athletes were found from school %s and season %s", schoolID, season), http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleMeetAthletes(w http.ResponseWriter, r *http.Request) {
	meetID := chi.URLParam(r, "meetId")
	list, err := s.q.AthletesByMeet(r.Context(), meetID)
	if err != nil {
		logx.Errorf("查询赛会运动员失败：%s：%v", meetID, err)
		s.errorJSON(w, err)
		return
	}
	if len(list) == 0 {
		s.errorJSON(w, fmt.Errorf("no athletes were found from meet %s", meetID), http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleAthlete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "athleteId")
	docs, err := s.q.FindAthlete(r.Context(), id)
	if err != nil {
		s.errorJSON(w, err)
		return
	}
	if len(docs) == 0 {
		s.errorJSON(w, fmt.Errorf("athlete %s not found", id), http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, docs[0].Record)
}

func (s *Server) handleLegacySchoolAthletes(w http.ResponseWriter, r *http.Request) {
	var req schoolRequest
	if err := decode(r, &req); err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}
	list, err := s.q.AthletesBySchoolSeason(r.Context(), req.SchoolID.String(), req.Season.String())
	if err != nil {
		s.errorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nonNil(list))
}

func (s *Server) handleLegacyMeetAthletes(w http.ResponseWriter, r *http.Request) {
	var req meetRequest
	if err := decode(r, &req); err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}
	list, err := s.q.AthletesByMeet(r.Context(), req.MeetID.String())
	if err != nil {
		s.errorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nonNil(list))
}

func (s *Server) handleScrapeRace(w http.ResponseWriter, r *http.Request) {
	var req raceRequest
	if err := decode(r, &req); err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}
	if req.RaceID == "" {
		s.errorJSON(w, errors.New("raceId is required"), http.StatusBadRequest)
		return
	}
	sum, err := s.scraper.ScrapeRace(r.Context(), req.RaceID.String(), req.JSONToken)
	s.writeSummary(w, sum, err)
}

func (s *Server) handleScrapeMeet(w http.ResponseWriter, r *http.Request) {
	var req meetRequest
	if err := decode(r, &req); err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}
	if req.MeetID == "" {
		s.errorJSON(w, errors.New("meetId is required"), http.StatusBadRequest)
		return
	}
	sum, err := s.scraper.ScrapeMeet(r.Context(), req.MeetID.String(), req.JSONToken, req.AllResults)
	s.writeSummary(w, sum, err)
}

func (s *Server) handleScrapeSchool(w http.ResponseWriter, r *http.Request) {
	var req schoolRequest
	if err := decode(r, &req); err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}
	if req.SchoolID == "" || req.Season == "" {
		s.errorJSON(w, errors.New("schoolId and season are required"), http.StatusBadRequest)
		return
	}
	sum, err := s.scraper.ScrapeSchool(r.Context(), req.SchoolID.String(), req.Season.String())
	s.writeSummary(w, sum, err)
}

// writeSummary 写出批次计数；名单页结构变化返回 502，便于运维发现。
func (s *Server) writeSummary(w http.ResponseWriter, sum model.BatchSummary, err error) {
	if err != nil {
		logx.Errorf("批量抓取失败：%v", err)
		if errors.Is(err, roster.ErrLayout) {
			s.errorJSON(w, err, http.StatusBadGateway)
			return
		}
		s.errorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleToCSV(w http.ResponseWriter, r *http.Request) {
	var req csvRequest
	if err := decode(r, &req); err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}
	path, err := export.ToCSV(s.outputDir, strings.TrimSpace(req.Stat), req.Data)
	if err != nil {
		logx.Errorf("写 CSV 失败：%v", err)
		s.errorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"file": path, "rows": len(req.Data)})
}

func nonNil(list []model.AthleteRecord) []model.AthleteRecord {
	if list == nil {
		return []model.AthleteRecord{}
	}
	return list
}

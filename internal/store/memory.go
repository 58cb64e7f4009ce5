package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"xc-athletes/internal/model"
)

// Memory 为内存文档存储，用于 --dry-run 抓取：不落库，结束后可取快照。
type Memory struct {
	mu   sync.Mutex
	docs []model.StoredAthlete
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) FindAthlete(_ context.Context, athleteID string) ([]model.StoredAthlete, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.StoredAthlete
	for _, d := range m.docs {
		if d.Record.AthleteID == athleteID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *Memory) InsertAthlete(_ context.Context, rec model.AthleteRecord) (string, error) {
	if rec.AthleteID == "" {
		return "", errors.New("athlete.athleteId required")
	}
	now := time.Now()
	d := model.StoredAthlete{ID: uuid.NewString(), Record: rec, CreatedAt: now, UpdatedAt: now}
	m.mu.Lock()
	m.docs = append(m.docs, d)
	m.mu.Unlock()
	return d.ID, nil
}

// UpdateAthlete 与 SQLite 相同：覆盖 pr5k 与 results，schoolId 非空时覆盖。
func (m *Memory) UpdateAthlete(_ context.Context, docID string, rec model.AthleteRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.docs {
		if m.docs[i].ID != docID {
			continue
		}
		r := &m.docs[i].Record
		r.PersonalBest5k = rec.PersonalBest5k
		r.Results = rec.Results
		if rec.SchoolID != "" {
			r.SchoolID = rec.SchoolID
		}
		m.docs[i].UpdatedAt = time.Now()
		return nil
	}
	return fmt.Errorf("update athlete %s: %w", docID, ErrNotFound)
}

// Snapshot 返回全部记录副本，按姓名排序。
func (m *Memory) Snapshot() []model.AthleteRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.AthleteRecord, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, d.Record)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len 返回文档数（含同一 athleteId 的重复文档）。
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

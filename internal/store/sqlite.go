// 包 store 提供运动员文档存储（SQLite），包含表迁移/查找/插入/更新/查询/清理等操作。
// 每位运动员一行，results 以 JSON 文档保存，查询借助 json_each 展开。
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"xc-athletes/internal/model"
)

// ErrNotFound 表示按句柄更新时文档不存在。
var ErrNotFound = errors.New("athlete document not found")

// SQLite 封装 *sql.DB，基于 modernc.org/sqlite（纯 Go 实现）。
type SQLite struct {
	db *sql.DB
}

// OpenSQLite 打开 SQLite 数据库并执行自动迁移。
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// Reset 清空运动员表（不删除数据库文件）。
func (s *SQLite) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM athletes`); err != nil {
		return fmt.Errorf("delete athletes: %w", err)
	}
	return nil
}

// migrate 执行建表语句，保持幂等。
// athlete_id 不加唯一约束：唯一性由 ingest 在应用层保证。
func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS athletes (
            doc_id TEXT PRIMARY KEY,
            athlete_id TEXT NOT NULL,
            name TEXT,
            gender TEXT,
            pr5k REAL,
            school_id TEXT,
            results TEXT,
            created_at TIMESTAMP,
            updated_at TIMESTAMP
        );`,
		`CREATE INDEX IF NOT EXISTS idx_athletes_athlete_id ON athletes(athlete_id);`,
		`CREATE INDEX IF NOT EXISTS idx_athletes_school_id ON athletes(school_id);`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("exec migrate: %w", err)
		}
	}
	return nil
}

const selectCols = `SELECT doc_id, athlete_id, COALESCE(name,''), COALESCE(gender,''), COALESCE(pr5k,-1), COALESCE(school_id,''), COALESCE(results,'[]'), created_at, updated_at FROM athletes`

// FindAthlete 按 athleteId 查找文档，按创建时间排序，可能返回 0 或多条。
func (s *SQLite) FindAthlete(ctx context.Context, athleteID string) ([]model.StoredAthlete, error) {
	return s.query(ctx, selectCols+` WHERE athlete_id = ? ORDER BY created_at`, athleteID)
}

// InsertAthlete 新建文档并返回生成的句柄。
func (s *SQLite) InsertAthlete(ctx context.Context, rec model.AthleteRecord) (string, error) {
	if rec.AthleteID == "" {
		return "", errors.New("athlete.athleteId required")
	}
	results, err := encodeResults(rec.Results)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	now := time.Now()
	_, err = s.db.ExecContext(ctx, `INSERT INTO athletes(doc_id, athlete_id, name, gender, pr5k, school_id, results, created_at, updated_at)
        VALUES(?,?,?,?,?,?,?,?,?)`,
		id, rec.AthleteID, rec.Name, rec.Gender, rec.PersonalBest5k, rec.SchoolID, results, now, now)
	if err != nil {
		return "", fmt.Errorf("insert athlete %s: %w", rec.AthleteID, err)
	}
	return id, nil
}

// UpdateAthlete 按句柄整体覆盖 pr5k、results 与 schoolId（每次抓取全量替换，不做赛季级合并）。
func (s *SQLite) UpdateAthlete(ctx context.Context, docID string, rec model.AthleteRecord) error {
	results, err := encodeResults(rec.Results)
	if err != nil {
		return err
	}
	schoolID := rec.SchoolID
	res, err := s.db.ExecContext(ctx, `UPDATE athletes SET pr5k = ?, results = ?,
        school_id = CASE WHEN ? = '' THEN school_id ELSE ? END, updated_at = ? WHERE doc_id = ?`,
		rec.PersonalBest5k, results, schoolID, schoolID, time.Now(), docID)
	if err != nil {
		return fmt.Errorf("update athlete %s: %w", docID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update athlete %s: %w", docID, err)
	}
	if n == 0 {
		return fmt.Errorf("update athlete %s: %w", docID, ErrNotFound)
	}
	return nil
}

// AthletesBySchoolSeason 返回某学校在某赛季有成绩的运动员。
func (s *SQLite) AthletesBySchoolSeason(ctx context.Context, schoolID, season string) ([]model.AthleteRecord, error) {
	docs, err := s.query(ctx, selectCols+` WHERE school_id = ? AND EXISTS (
            SELECT 1 FROM json_each(athletes.results) s WHERE json_extract(s.value, '$.season') = ?)
        ORDER BY name`, schoolID, season)
	return records(docs), err
}

// AthletesByMeet 返回参加过某场比赛的运动员。
func (s *SQLite) AthletesByMeet(ctx context.Context, meetID string) ([]model.AthleteRecord, error) {
	docs, err := s.query(ctx, selectCols+` WHERE EXISTS (
            SELECT 1 FROM json_each(athletes.results) s, json_each(s.value, '$.meets') m
            WHERE json_extract(m.value, '$.meetId') = ?)
        ORDER BY name`, meetID)
	return records(docs), err
}

// ListAthletes 返回全部运动员，按姓名排序。
func (s *SQLite) ListAthletes(ctx context.Context) ([]model.AthleteRecord, error) {
	docs, err := s.query(ctx, selectCols+` ORDER BY name`)
	return records(docs), err
}

// Stats 统计汇总：运动员总数、学校数、有 5000 米成绩的人数。
func (s *SQLite) Stats(ctx context.Context) (model.Stats, error) {
	var st model.Stats
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1), COUNT(DISTINCT NULLIF(school_id,'')), COUNT(CASE WHEN pr5k > 0 THEN 1 END) FROM athletes`).
		Scan(&st.AthletesTotal, &st.SchoolsTotal, &st.WithPR5k)
	if err != nil {
		return st, fmt.Errorf("count athletes: %w", err)
	}
	st.UpdatedAt = time.Now()
	return st, nil
}

func (s *SQLite) query(ctx context.Context, q string, args ...any) ([]model.StoredAthlete, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query athletes: %w", err)
	}
	defer rows.Close()
	var out []model.StoredAthlete
	for rows.Next() {
		var d model.StoredAthlete
		var results string
		var createdAt, updatedAt sql.NullTime
		r := &d.Record
		if err := rows.Scan(&d.ID, &r.AthleteID, &r.Name, &r.Gender, &r.PersonalBest5k, &r.SchoolID, &results, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan athletes: %w", err)
		}
		if err := json.Unmarshal([]byte(results), &r.Results); err != nil {
			return nil, fmt.Errorf("decode results of %s: %w", r.AthleteID, err)
		}
		if createdAt.Valid {
			d.CreatedAt = createdAt.Time
		}
		if updatedAt.Valid {
			d.UpdatedAt = updatedAt.Time
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate athletes: %w", err)
	}
	return out, nil
}

func encodeResults(results []model.SeasonRecord) (string, error) {
	if results == nil {
		results = []model.SeasonRecord{}
	}
	b, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("encode results: %w", err)
	}
	return string(b), nil
}

func records(docs []model.StoredAthlete) []model.AthleteRecord {
	out := make([]model.AthleteRecord, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Record)
	}
	return out
}

package export_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"xc-athletes/internal/export"
	"xc-athletes/internal/model"
	"xc-athletes/internal/store"
)

func TestToJSON_FromStore(t *testing.T) {
	dir := t.TempDir()
	st, err := store.OpenSQLite(filepath.Join(dir, "t.db"))
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()
	for _, a := range []model.AthleteRecord{
		{AthleteID: "1", Name: "B", SchoolID: "408", PersonalBest5k: 1000},
		{AthleteID: "2", Name: "A", SchoolID: "408", PersonalBest5k: model.NoPersonalBest},
	} {
		_, err := st.InsertAthlete(ctx, a)
		require.NoError(t, err)
	}

	out := filepath.Join(dir, "out", "athletes.json")
	require.NoError(t, export.ToJSON(ctx, st, out))
	b, err := os.ReadFile(out)
	require.NoError(t, err)
	var got model.Export
	require.NoError(t, json.Unmarshal(b, &got))
	require.Equal(t, 2, got.Stats.AthletesTotal)
	require.Equal(t, 1, got.Stats.SchoolsTotal)
	require.Equal(t, 1, got.Stats.WithPR5k)
	require.Equal(t, "A", got.Athletes[0].Name)
}

func TestToJSONData_Empty(t *testing.T) {
	out := filepath.Join(t.TempDir(), "dry.json")
	require.NoError(t, export.ToJSONData(nil, out))
	b, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Contains(t, string(b), `"athletes": []`)
}

func TestToCSV(t *testing.T) {
	dir := t.TempDir()
	var rows [][]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(`[[1002.3, "16:42.3"], ["x,y", null], [960, 1]]`), &rows))

	path, err := export.ToCSV(dir, "time", rows)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "time.csv"), path)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "Avg. Time,Predicted Time\n1002.3,16:42.3\n\"x,y\",\n960,1\n", string(b))

	path, err = export.ToCSV(dir, "anything", nil)
	require.NoError(t, err)
	require.Equal(t, "sr.csv", filepath.Base(path))
	b, err = os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "Time,SR\n", string(b))
}

package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// 统计类型对应的文件名与表头
const (
	StatTime = "time"
	StatSR   = "sr"
)

var csvHeaders = map[string][]string{
	StatTime: {"Avg. Time", "Predicted Time"},
	StatSR:   {"Time", "SR"},
}

// CSVFile 返回统计类型对应的文件名：time 写 time.csv，其余写 sr.csv。
func CSVFile(stat string) string {
	if stat == StatTime {
		return "time.csv"
	}
	return "sr.csv"
}

// ToCSV 将二维数据写入 dir 下的 CSV 文件并返回文件路径。单元格可以是数字或字符串。
func ToCSV(dir, stat string, rows [][]json.RawMessage) (string, error) {
	key := StatSR
	if stat == StatTime {
		key = StatTime
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	path := filepath.Join(dir, CSVFile(stat))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(csvHeaders[key]); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		rec := make([]string, len(row))
		for j, cell := range row {
			rec[j] = cellString(cell)
		}
		if err := w.Write(rec); err != nil {
			return "", fmt.Errorf("write row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush %s: %w", path, err)
	}
	return path, nil
}

// cellString 字符串去掉引号，数字保持原文，null 为空。
func cellString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if f, err := strconv.ParseFloat(n.String(), 64); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return n.String()
	}
	if string(raw) == "null" {
		return ""
	}
	return string(raw)
}

package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrEmptyPayload 表示载荷中没有可识别的运动员信息（整体解析失败）。
var ErrEmptyPayload = errors.New("empty athlete payload")

// Payload 为上游运动员数据的两种形态：旧版主页 HTML 或新版 JSON bio。
type Payload interface {
	sourceName() string
}

// HTMLPayload 为旧版运动员主页的 DOM。
type HTMLPayload struct {
	Doc *goquery.Document
}

func (HTMLPayload) sourceName() string { return "html" }

// JSONPayload 为 bio 接口返回的文档。
type JSONPayload struct {
	Bio BioData
}

func (JSONPayload) sourceName() string { return "json" }

// SourceName 返回载荷来源名（html/json），用于日志与指标标签。
func SourceName(p Payload) string {
	if p == nil {
		return "none"
	}
	return p.sourceName()
}

// BioData 为 bio 接口中与越野成绩相关的部分。
type BioData struct {
	Athlete   BioAthlete       `json:"athlete"`
	Grades    Ordered[Flex]    `json:"grades"`
	Meets     Ordered[BioMeet] `json:"meets"`
	ResultsXC []BioResult      `json:"resultsXC"`
}

type BioAthlete struct {
	FirstName string `json:"FirstName"`
	LastName  string `json:"LastName"`
	Gender    string `json:"Gender"`
	SchoolID  Flex   `json:"SchoolID"`
}

// BioMeet 为比赛目录中的一项，键为 meetId。
type BioMeet struct {
	MeetName string `json:"MeetName"`
	EndDate  string `json:"EndDate"`
}

// BioResult 为一条越野成绩。SortValue 为秒数，Result 为展示文本。
type BioResult struct {
	MeetID       Flex   `json:"MeetID"`
	Place        Flex   `json:"Place"`
	SortValue    Flex   `json:"SortValue"`
	Result       string `json:"Result"`
	Distance     Flex   `json:"Distance"`
	SeasonID     Flex   `json:"SeasonID"`
	PersonalBest bool   `json:"PersonalBest"`
	SeasonBest   bool   `json:"SeasonBest"`
}

// Flex 接受 JSON 字符串、数字、布尔或 null，统一保存为字符串。
// 上游同一字段时而为数字时而为字符串，单个字段类型不符时不应使整条记录失败。
type Flex string

func (f *Flex) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || string(b) == "null":
		*f = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = Flex(strings.TrimSpace(s))
	case b[0] == '{' || b[0] == '[':
		*f = ""
	default:
		*f = Flex(b)
	}
	return nil
}

func (f Flex) String() string { return string(f) }

// Int 返回整数值，无法解析时为 0。
func (f Flex) Int() int {
	if n, err := strconv.Atoi(string(f)); err == nil {
		return n
	}
	return int(f.Float())
}

// Float 返回浮点值，无法解析或为 NaN/Inf 时为 0。
func (f Flex) Float() float64 {
	v, err := strconv.ParseFloat(string(f), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Ordered 按文档中出现的顺序解码 JSON 对象，重复键保留首次位置、取最后的值。
type Ordered[T any] struct {
	Keys   []string
	Values map[string]T
}

func (o *Ordered[T]) UnmarshalJSON(b []byte) error {
	o.Keys = nil
	o.Values = map[string]T{}
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := kt.(string)
		var v T
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("decode %q: %w", key, err)
		}
		o.Set(key, v)
	}
	_, err = dec.Token()
	return err
}

// Set 写入键值，新键追加到末尾。
func (o *Ordered[T]) Set(key string, v T) {
	if o.Values == nil {
		o.Values = map[string]T{}
	}
	if _, ok := o.Values[key]; !ok {
		o.Keys = append(o.Keys, key)
	}
	o.Values[key] = v
}

func (o Ordered[T]) Get(key string) (T, bool) {
	v, ok := o.Values[key]
	return v, ok
}

func (o Ordered[T]) Len() int { return len(o.Keys) }

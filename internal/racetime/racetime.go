// 包 racetime 负责比赛成绩文本的解析：
// - Seconds："M+:SS(.f)" 转为秒数，无法解析时返回 0
// - Readable/Marks：去掉成绩末尾的 SR/PR 标记并识别标记
// - Distance/ParseDate：距离与日期文本归一化
package racetime

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// 秒数部分只接受十进制数字，排除 NaN/Inf 与指数写法
var secondsPart = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// Seconds 将 "16:42.3" 转为 1002.3；无冒号或非数字部分时返回 0，不报错。
func Seconds(read string) float64 {
	mins, secs, ok := strings.Cut(strings.TrimSpace(read), ":")
	if !ok || mins == "" || !secondsPart.MatchString(secs) {
		return 0
	}
	for _, r := range mins {
		if r < '0' || r > '9' {
			return 0
		}
	}
	m, err := strconv.ParseFloat(mins, 64)
	if err != nil {
		return 0
	}
	s, err := strconv.ParseFloat(secs, 64)
	if err != nil {
		return 0
	}
	return m*60 + s
}

// 成绩后缀：数字之后的字母/空白/星号（如 "16:42.3 PR"、"17:01.0SR"）
var trailingMarks = regexp.MustCompile(`^(.*\d)[\s*A-Za-z]+$`)

// Readable 去掉成绩末尾的标记字母；不含数字的文本（DNF/DNS）原样返回。
func Readable(raw string) string {
	s := strings.TrimSpace(raw)
	if m := trailingMarks.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

// Marks 通过子串匹配识别赛季最佳（SR）与个人最佳（PR）标记。
func Marks(raw string) (sr, pr bool) {
	up := strings.ToUpper(raw)
	return strings.Contains(up, "SR"), strings.Contains(up, "PR")
}

// Distance 去掉千位分隔符："5,000 Meters" -> "5000 Meters"。
func Distance(raw string) string {
	return strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
}

// 带年份的常见格式
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"Jan 2, 2006",
	"January 2, 2006",
	"Mon, Jan 2, 2006",
	"1/2/2006",
}

// 不带年份的格式，需要赛季年份补全
var shortLayouts = []string{
	"Jan 2",
	"January 2",
	"Mon, Jan 2",
	"1/2",
}

// ParseDate 解析比赛日期；文本无年份时使用 seasonYear（4 位年份）补全。
// 无法解析时返回零值，排序时排在最前。
func ParseDate(raw, seasonYear string) time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t
		}
	}
	year, err := strconv.Atoi(seasonYear)
	if err != nil || len(seasonYear) != 4 {
		return time.Time{}
	}
	for _, l := range shortLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return time.Date(year, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
	}
	return time.Time{}
}

// 第一个/第二个数字分组，用于从链接中取 ID
var digits = regexp.MustCompile(`[0-9]+`)

// NumericGroups 返回 URL 中前 n 个数字分组。
func NumericGroups(link string, n int) []string {
	return digits.FindAllString(link, n)
}

// Ordinal 返回 "9th"/"1st" 等序数写法。
func Ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}

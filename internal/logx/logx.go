// 包 logx 是对标准库 slog 的薄封装：
// - 支持级别/格式/语言/颜色配置
// - 提供 pretty 输出（[调试]/[信息]/[警告]/[错误] 或英文标签）
// - 通过 Debugf/Infof/Warnf/Errorf 暴露；Component 返回带组件名的 *slog.Logger
package logx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Options 为日志初始化参数，对应 settings.yaml 中的 LOG_* 字段。
type Options struct {
	Level  string // debug|info|warn|error|off
	Format string // text|json|pretty
	Locale string // zh-CN|en
	Color  string // auto|always|never
	Out    io.Writer
}

// Init 初始化全局日志器；Out 为空时写到标准输出。
func Init(o Options) {
	out := o.Out
	if out == nil {
		out = os.Stdout
	}
	lv := parseLevel(o.Level)
	opts := &slog.HandlerOptions{Level: lv}
	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(o.Format)) {
	case "json":
		handler = slog.NewJSONHandler(out, opts)
	case "pretty", "":
		handler = NewPrettyHandler(out, lv, o.Locale, o.Color)
	default:
		handler = slog.NewTextHandler(out, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// silent 高于所有级别，用于关闭输出
const silent slog.Level = 100

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "none", "silent", "off":
		return silent
	default:
		return slog.LevelInfo
	}
}

func Debugf(format string, v ...any) { slog.Debug(fmt.Sprintf(format, v...)) }
func Infof(format string, v ...any)  { slog.Info(fmt.Sprintf(format, v...)) }
func Warnf(format string, v ...any)  { slog.Warn(fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...any) { slog.Error(fmt.Sprintf(format, v...)) }

// Component 返回带 component 属性的日志器，属性在 pretty 输出中展开为 k=v。
func Component(name string) *slog.Logger {
	return slog.Default().With("component", name)
}

// PrettyHandler 为人读的单行输出：时间 + 等级 + 消息 + k=v 属性。
type PrettyHandler struct {
	w      io.Writer
	level  slog.Level
	locale string
	color  bool
	mu     *sync.Mutex
	attrs  []slog.Attr
	group  string
}

// NewPrettyHandler 创建 pretty Handler。
func NewPrettyHandler(w io.Writer, lv slog.Level, locale string, colorMode string) *PrettyHandler {
	if w == nil {
		w = os.Stdout
	}
	if locale == "" {
		locale = "zh-CN"
	}
	return &PrettyHandler{w: w, level: lv, locale: locale, mu: &sync.Mutex{}, color: shouldColor(w, colorMode)}
}

func (h *PrettyHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level && h.level < silent
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	buf.WriteString(ts.Format("2006-01-02 15:04:05"))
	buf.WriteByte(' ')
	lvl := levelLabel(h.locale, r.Level)
	if h.color {
		lvl = colorize(lvl, r.Level)
	}
	buf.WriteString(lvl)
	buf.WriteByte(' ')
	buf.WriteString(r.Message)
	writeAttr := func(a slog.Attr) {
		buf.WriteByte(' ')
		if h.group != "" {
			buf.WriteString(h.group + ".")
		}
		buf.WriteString(a.Key)
		buf.WriteByte('=')
		buf.WriteString(a.Value.String())
	}
	for _, a := range h.attrs {
		writeAttr(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(a)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *h
	cp.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &cp
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	cp := *h
	if cp.group == "" {
		cp.group = name
	} else {
		cp.group += "." + name
	}
	return &cp
}

var labels = map[bool]map[slog.Level]string{
	true: {
		slog.LevelDebug: "[调试]",
		slog.LevelInfo:  "[信息]",
		slog.LevelWarn:  "[警告]",
		slog.LevelError: "[错误]",
	},
	false: {
		slog.LevelDebug: "[DEBUG]",
		slog.LevelInfo:  "[INFO]",
		slog.LevelWarn:  "[WARN]",
		slog.LevelError: "[ERROR]",
	},
}

func levelLabel(locale string, l slog.Level) string {
	zh := strings.HasPrefix(strings.ToLower(locale), "zh")
	if s, ok := labels[zh][l]; ok {
		return s
	}
	return fmt.Sprintf("[L%d]", l)
}

// shouldColor 判断是否启用颜色：遵循 LOG_COLOR 与 NO_COLOR。
func shouldColor(w io.Writer, mode string) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "always":
		return true
	case "auto", "":
		// 仅在字符设备上启用彩色输出
		if f, ok := w.(*os.File); ok {
			if fi, err := f.Stat(); err == nil {
				return fi.Mode()&os.ModeCharDevice != 0
			}
		}
	}
	return false
}

func colorize(s string, l slog.Level) string {
	code := "0"
	switch l {
	case slog.LevelDebug:
		code = "90"
	case slog.LevelInfo:
		code = "36"
	case slog.LevelWarn:
		code = "33"
	case slog.LevelError:
		code = "31"
	}
	return "\x1b[" + code + "m" + s + "\x1b[0m"
}

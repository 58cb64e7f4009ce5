package logx_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"xc-athletes/internal/logx"
)

func TestLogx_PrettyZH_Info(t *testing.T) {
	var buf bytes.Buffer
	logx.Init(logx.Options{Level: "debug", Format: "pretty", Locale: "zh-CN", Color: "never", Out: &buf})
	logx.Infof("hello %s", "world")
	require.Contains(t, buf.String(), "[信息] hello world")
}

func TestLogx_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logx.Init(logx.Options{Level: "warn", Format: "pretty", Locale: "zh-CN", Color: "never", Out: &buf})
	logx.Infof("should not print")
	logx.Warnf("warn on")
	require.NotContains(t, buf.String(), "should not print")
	require.Contains(t, buf.String(), "[警告]")
}

func TestLogx_OffSilencesEverything(t *testing.T) {
	var buf bytes.Buffer
	logx.Init(logx.Options{Level: "off", Format: "pretty", Out: &buf})
	logx.Errorf("boom")
	require.Empty(t, buf.String())
}

func TestLogx_EnglishLabelsAndColor(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	var buf bytes.Buffer
	logx.Init(logx.Options{Level: "info", Format: "pretty", Locale: "en", Color: "always", Out: &buf})
	logx.Errorf("boom %d", 1)
	require.Contains(t, buf.String(), "[ERROR]")
	require.Contains(t, buf.String(), "\x1b[31m")
}

func TestLogx_ComponentAttrs(t *testing.T) {
	var buf bytes.Buffer
	logx.Init(logx.Options{Level: "info", Format: "pretty", Locale: "en", Color: "never", Out: &buf})
	logx.Component("ingest").Info("saved", "athlete", "123")
	out := buf.String()
	require.Contains(t, out, "component=ingest")
	require.Contains(t, out, "athlete=123")
}

func TestLogx_WithGroupPrefixesKeys(t *testing.T) {
	var buf bytes.Buffer
	h := logx.NewPrettyHandler(&buf, slog.LevelInfo, "en", "never")
	slog.New(h).WithGroup("g").Info("hello", "k", "v")
	require.True(t, strings.Contains(buf.String(), "g.k=v"), buf.String())
}

func TestLogx_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logx.Init(logx.Options{Level: "info", Format: "json", Out: &buf})
	logx.Infof("x")
	require.Contains(t, buf.String(), `"msg":"x"`)
}

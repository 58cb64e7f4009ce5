// 命令行入口：
// - 加载 .env、settings.yaml、rules.yaml，初始化日志、HTTP 客户端与数据库
// - serve 启动 REST 服务；scrape 直接在命令行执行抓取
// - athlete/roster 用于调试单个运动员或学校名单，export 导出 JSON
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	configPath string
	rulesPath  string
	envPath    string
)

var rootCmd = &cobra.Command{
	Use:           "xc-athletes",
	Short:         "xc-athletes scrapes cross-country results and serves normalized athlete records.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "settings.yaml", "path to settings.yaml (missing file uses defaults)")
	pf.StringVar(&rulesPath, "rules", "rules.yaml", "path to rules.yaml (optional)")
	pf.StringVar(&envPath, "env", ".env", "path to .env (optional)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

// errSilent 表示错误已经以提示的形式输出过，退出时不再重复打印。
var errSilent = errors.New("reported")

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "readaloud",
		Short:         "把选中的 Markdown 文本朗读出来并归档音频",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/readaloud.yaml", "配置文件路径")
	cmd.AddCommand(
		newSpeakCmd(),
		newSettingsCmd(),
		newArchiveCmd(),
		newServeCmd(),
	)
	return cmd
}

func main() {
	// .env 不存在时忽略
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errSilent) {
			fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		}
		os.Exit(1)
	}
}

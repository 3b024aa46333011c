package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iabetor/readaloud/internal/audio"
	"github.com/iabetor/readaloud/internal/host"
	"github.com/iabetor/readaloud/internal/pipeline"
)

func newSpeakCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "speak [text...]",
		Short: "朗读文本（参数、--file 或标准输入）",
		Example: `  readaloud speak "Hello world"
  readaloud speak --file note.md --play
  pbpaste | readaloud speak --output hello.mp3`,
		RunE: runSpeak,
	}
	cmd.Flags().StringP("file", "f", "", "从文件读取文本")
	cmd.Flags().BoolP("play", "p", false, "合成后通过默认输出设备播放")
	cmd.Flags().Float32("volume", 1, "播放音量系数")
	cmd.Flags().Bool("mono", false, "以单声道播放")
	cmd.Flags().StringP("output", "o", "", "另存一份音频到该路径")
	return cmd
}

func runSpeak(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	play, _ := cmd.Flags().GetBool("play")
	volume, _ := cmd.Flags().GetFloat32("volume")
	mono, _ := cmd.Flags().GetBool("mono")
	output, _ := cmd.Flags().GetString("output")

	var src pipeline.TextSource
	switch {
	case file != "" && len(args) > 0:
		return fmt.Errorf("--file 与文本参数不能同时使用")
	case file != "":
		src = host.FileSource{Path: file}
	case len(args) > 0:
		src = host.ArgsSource{Args: args}
	default:
		src = host.ReaderSource{R: cmd.InOrStdin()}
	}

	a, err := loadApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := a.openSettings()
	if err != nil {
		return err
	}
	deps, err := a.buildDeps(store, host.NewWriterNotifier(cmd.ErrOrStderr()), nil)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	res, err := pipeline.New(deps).SpeakSelection(ctx, src)
	if err != nil {
		// 提示已经输出到 stderr
		return errSilent
	}

	out := cmd.OutOrStdout()
	if res.Artifact != nil {
		fmt.Fprintf(out, "已归档: %s\n", res.Artifact.Path)
	}
	if res.Handle.Duration > 0 {
		fmt.Fprintf(out, "时长: %.1fs (%d Hz)\n", res.Handle.Duration.Seconds(), res.Handle.SampleRate)
	}

	if output != "" {
		if err := os.WriteFile(output, res.Handle.Data, 0644); err != nil {
			return fmt.Errorf("写入 %s 失败: %w", output, err)
		}
		fmt.Fprintf(out, "已保存: %s\n", output)
	}

	if !play {
		return nil
	}

	channels := 2
	if mono {
		channels = 1
	}
	player, err := audio.NewPlayer(channels, volume)
	if err != nil {
		return err
	}
	defer player.Close()

	if err := player.PlayHandle(ctx, res.Handle); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// signalContext 在收到 SIGINT/SIGTERM 时取消。
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

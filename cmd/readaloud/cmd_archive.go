package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/iabetor/readaloud/internal/archive"
)

func newArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "查看已归档的音频",
	}
	cmd.AddCommand(newArchiveListCmd())
	return cmd
}

func newArchiveListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "按时间倒序列出归档索引",
		Args:  cobra.NoArgs,
		RunE:  runArchiveList,
	}
	cmd.Flags().IntP("limit", "n", 20, "最多显示的条数，0 表示全部")
	return cmd
}

func runArchiveList(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	a, err := loadApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.cfg.Archive.Index {
		fmt.Fprintln(cmd.ErrOrStderr(), "归档索引未启用，请在配置文件中设置 archive.index: true")
	}

	db, err := a.openDB()
	if err != nil {
		return err
	}
	entries, err := archive.NewIndex(db).List(cmd.Context(), limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "暂无归档记录")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tBACKEND\tSIZE\tPATH")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			e.CreatedAt.Format(time.DateTime), e.Backend, e.Size, e.Path)
	}
	return w.Flush()
}

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/iabetor/readaloud/internal/settings"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "查看或修改插件设置",
	}
	cmd.AddCommand(
		newSettingsShowCmd(),
		newSettingsSetCmd(),
	)
	return cmd
}

func newSettingsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "列出所有设置项",
		Args:  cobra.NoArgs,
		RunE:  runSettingsShow,
	}
	cmd.Flags().Bool("reveal", false, "显示完整的 API key")
	return cmd
}

func newSettingsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <field> <value>",
		Short: "修改一个设置项并立即保存",
		Example: `  readaloud settings set elevenLabsAPIKey xi-...
  readaloud settings set naturalSounding true`,
		Args: cobra.ExactArgs(2),
		RunE: runSettingsSet,
	}
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	reveal, _ := cmd.Flags().GetBool("reveal")

	a, err := loadApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := a.openSettings()
	if err != nil {
		return err
	}
	cur := store.Current()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FIELD\tNAME\tVALUE")
	for _, f := range settings.Fields() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", f.Key, f.Name, cur.Value(f.Key, reveal))
	}
	return w.Flush()
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]
	if _, ok := settings.LookupField(key); !ok {
		return fmt.Errorf("未知设置项 %q", key)
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
	updated, err := store.Set(key, value)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, updated.Value(key, false))
	return nil
}

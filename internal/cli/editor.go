package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"flutterstrap/internal/config"
	"flutterstrap/internal/editor"
)

var editorMerge bool

func newEditorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "editor",
		Short: "Rewrite .vscode/settings.json and launch.json for the local SDKs",
		Args:  cobra.NoArgs,
		RunE:  runEditor,
	}
	cmd.Flags().BoolVar(&editorMerge, "merge", false, "Keep unrelated keys in existing files instead of overwriting them")
	return cmd
}

func runEditor(cmd *cobra.Command, _ []string) error {
	pp, resolved, err := loadProject()
	if err != nil {
		return err
	}

	mode := resolved.Config.Editor.Mode
	if editorMerge {
		mode = config.EditorMerge
	}

	files, err := editor.Write(pp, editor.Options{Mode: mode})
	if err != nil {
		return err
	}

	if outputJSON {
		data, err := json.MarshalIndent(struct {
			Mode  string   `json:"mode"`
			Files []string `json:"files"`
		}{mode, files}, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	for _, file := range files {
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s)\n", file, mode)
	}
	return nil
}

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"flutterstrap/internal/paths"
	"flutterstrap/internal/tools"
	"flutterstrap/internal/tui"
)

var statusStrict bool

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show which managed components are present",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
	cmd.Flags().BoolVar(&statusStrict, "strict", false, "Exit non-zero when a required component is missing")
	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	pp, resolved, err := loadProject()
	if err != nil {
		return err
	}

	statuses := tools.Detect(cmd.Context(), tools.Env{Paths: pp, Config: resolved.Config})

	if outputJSON {
		if err := writeStatusJSON(cmd.OutOrStdout(), pp.Root, statuses); err != nil {
			return err
		}
	} else {
		writeStatusTable(cmd.OutOrStdout(), pp, statuses)
	}

	if statusStrict {
		return missingComponents(statuses)
	}
	return nil
}

// missingComponents joins one error per component that is neither present
// nor deliberately skipped.
func missingComponents(statuses []tools.Status) error {
	var errs []error
	for _, st := range statuses {
		if st.Installed || st.Skipped {
			continue
		}
		detail := st.Error
		if detail == "" {
			detail = "expected " + st.Marker
		}
		errs = append(errs, fmt.Errorf("%w: %s: %s", tools.ErrMissingMarker, st.Tool, detail))
	}
	return errors.Join(errs...)
}

func writeStatusTable(w io.Writer, pp paths.ProjectPaths, statuses []tools.Status) {
	fmt.Fprintf(w, "Project: %s\n", pp.Root)

	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "COMPONENT\tSTATUS\tVERSION\tPATH")
	for _, st := range statuses {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			st.Tool,
			tui.NonEmptyOrDash(string(st.Action)),
			tui.NonEmptyOrDash(st.Version),
			tui.NonEmptyOrDash(st.Path),
		)
	}
	tw.Flush()

	for _, st := range statuses {
		if st.Error != "" {
			fmt.Fprintf(w, "  %s: %s\n", st.Tool, st.Error)
		}
		for _, note := range st.Notes {
			fmt.Fprintf(w, "  %s: %s\n", st.Tool, strings.TrimSpace(note))
		}
	}
}

func writeStatusJSON(w io.Writer, root string, statuses []tools.Status) error {
	payload := struct {
		Project    string         `json:"project"`
		Components []tools.Status `json:"components"`
	}{
		Project:    root,
		Components: statuses,
	}
	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode status json: %w", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}

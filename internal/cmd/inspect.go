package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/statsig-io/ruid/internal/app"
	"github.com/statsig-io/ruid/internal/ruid"
	"github.com/statsig-io/ruid/internal/ruid/usecase"
)

func newDecodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <id>...",
		Short: "Print the fields of ids using the configured layout and epoch",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			clock := usecase.NewClockAdapter(nil, settings.Epoch, settings.Layout)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

			for i, raw := range args {
				id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
				if err != nil {
					return fmt.Errorf("id %q is not an unsigned 64-bit integer", raw)
				}

				if i > 0 {
					fmt.Fprintln(w)
				}

				f := settings.Layout.Unpack(id)
				rows := [][2]string{
					{"id", strconv.FormatUint(id, 10)},
					{"timestamp", strconv.FormatUint(f.Timestamp, 10)},
					{"time", clock.Time(f.Timestamp).Format(time.RFC3339Nano)},
					{"sequence", strconv.FormatUint(f.Sequence, 10)},
					{"cluster", strconv.FormatUint(f.ClusterID, 10)},
					{"node", strconv.FormatUint(f.NodeID, 10)},
				}
				writeRows(w, rows)
			}

			return w.Flush()
		},
	}
}

func newLayoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "layout",
		Short: "Print the configured id layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			l := settings.Layout
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			writeRows(w, [][2]string{
				{"layout", l.String() + " (timestamp/cluster/node/sequence)"},
				{"epoch", settings.Epoch.Format(time.RFC3339) + " (" + strconv.FormatInt(settings.Epoch.UnixMilli(), 10) + ")"},
				{"max timestamp", strconv.FormatUint(l.MaxTimestamp, 10) + "ms, until " + settings.Epoch.Add(time.Duration(l.MaxTimestamp)*time.Millisecond).Format(time.RFC3339)},
				{"max sequence", strconv.FormatUint(l.MaxSequence, 10)},
				{"max cluster", strconv.FormatUint(l.MaxCluster, 10)},
				{"max node", strconv.FormatUint(l.MaxNode, 10)},
				{"shifts", fmt.Sprintf("timestamp=%d sequence=%d cluster=%d", l.TimestampShift, l.SequenceShift, l.ClusterShift)},
				{"skew tolerance", strconv.FormatUint(settings.SkewToleranceMs, 10) + "ms"},
				{"identity", settings.Identity.Strategy},
			})

			return w.Flush()
		},
	}
}

func loadSettings(cmd *cobra.Command) (ruid.Settings, error) {
	path, _ := cmd.Flags().GetString("config")

	cfg, err := app.LoadConfig(app.Options{ConfigPath: path})
	if err != nil {
		return ruid.Settings{}, err
	}
	defer func() {
		_ = cfg.Close()
	}()

	return ruid.LoadSettings(cfg)
}

func writeRows(w io.Writer, rows [][2]string) {
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}
}

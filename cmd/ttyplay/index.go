package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pkt.systems/ttyplay/internal/appconfig"
	"pkt.systems/ttyplay/internal/index"
)

func newIndexCmd() *cobra.Command {
	var cfgPath string
	var landmarks bool
	cmd := &cobra.Command{
		Use:   "index FILE...",
		Short: "Print the segments and landmarks of recordings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			ix, err := index.Build(cmd.Context(), args, index.Options{
				Marker:     []byte(cfg.Playback.Marker),
				MaxPayload: cfg.Playback.MaxRecordBytes,
			})
			if err != nil {
				return err
			}
			return printIndex(cmd.OutOrStdout(), ix, landmarks)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVarP(&landmarks, "landmarks", "l", false, "list every landmark")
	return cmd
}

func printIndex(w io.Writer, ix *index.Index, landmarks bool) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEGMENT\tSTART\tEND\tRECORDS\tLANDMARKS\tBYTES\tFILE")
	for _, seg := range ix.Segments {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t%s\n",
			seg.Pos, seg.Start, seg.End, seg.Records, seg.LastLandmark-seg.FirstLandmark+1, seg.Size, seg.Path)
	}
	if landmarks {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "LANDMARK\tSEGMENT\tSTART\tEND\tOFFSET\tMARKER")
		for i, lm := range ix.Landmarks {
			marker := "-"
			if !lm.Synthetic {
				marker = fmt.Sprint(lm.MarkerOffset)
			}
			fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%d\t%s\n", i, lm.Segment, lm.Start, lm.End, lm.RecordOffset, marker)
		}
	}
	fmt.Fprintf(tw, "\ntotal %s in %d segments, %d markers\n", ix.End(), len(ix.Segments), ix.Markers())
	return tw.Flush()
}

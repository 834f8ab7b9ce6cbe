package cli

import (
	"fmt"
	"os"

	"bergbridge/internal/payload"
	"bergbridge/internal/rle"
	"bergbridge/internal/spool"

	"github.com/spf13/cobra"
)

var decodeOpts struct {
	width    int
	spoolDir string
}

var decodeCmd = &cobra.Command{
	Use:   "decode <payload file>",
	Short: "Decode a printer payload offline and show its metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		blob, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		p, err := payload.Decoder{DefaultWidth: decodeOpts.width}.Decode(ctx, blob)
		if err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		bits, err := rle.Decompressor{}.Decompress(ctx, p.RLE.Data)
		if err != nil {
			return fmt.Errorf("decompress raster: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "print id:  %d\n", p.PrintID)
		fmt.Fprintf(out, "version:   %d\n", p.Version)
		fmt.Fprintf(out, "face:      %t\n", p.Flags.Face)
		fmt.Fprintf(out, "width:     %d\n", p.Width)
		fmt.Fprintf(out, "rle bytes: %d\n", len(p.RLE.Data))
		fmt.Fprintf(out, "pixels:    %d (%d rows, %d left over)\n", len(bits), len(bits)/p.Width, len(bits)%p.Width)

		if decodeOpts.spoolDir == "" {
			return nil
		}
		sink, err := spool.NewFileSink(decodeOpts.spoolDir)
		if err != nil {
			return err
		}
		path, err := sink.Write(ctx, bits, p)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "spooled:   %s\n", path)
		return nil
	},
}

func init() {
	decodeCmd.Flags().IntVar(&decodeOpts.width, "width", payload.DefaultWidth, "row width for payloads that leave it unset")
	decodeCmd.Flags().StringVar(&decodeOpts.spoolDir, "spool-dir", "", "also write the bitmap to this spool directory")
	rootCmd.AddCommand(decodeCmd)
}

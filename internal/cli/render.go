package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deckwork/ipkey/pkg/errors"
	"github.com/deckwork/ipkey/pkg/keyimage"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output  string // output file path, empty means stdout
	lines   int    // display mode: 1, 2, or 4 lines
	status  bool   // render as a status word instead of an address
	dataURI bool   // emit a base64 data URI instead of raw SVG
}

// renderCommand creates the render command. It draws the same 144x144
// key image the deck shows, which makes layout changes reviewable
// without a connected device.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{lines: 1}

	cmd := &cobra.Command{
		Use:   "render [text]",
		Short: "Render a key image to SVG",
		Long: `Render the key image for an address or status word to SVG.

Addresses honor the --lines layout; status words are drawn at a fixed
size, the way confirmations appear on the deck:

  ipkey render 203.0.113.77 --lines 4 -o key.svg
  ipkey render Copied! --status`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.status {
				if err := errors.ValidateLines(opts.lines); err != nil {
					return err
				}
			}
			return runRender(cmd, args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().IntVarP(&opts.lines, "lines", "l", opts.lines, "address layout: 1, 2, or 4 lines")
	cmd.Flags().BoolVar(&opts.status, "status", false, "render a status word at fixed size")
	cmd.Flags().BoolVar(&opts.dataURI, "data-uri", false, "emit a base64 data URI")

	return cmd
}

// runRender renders the image and writes it to the requested destination.
func runRender(cmd *cobra.Command, text string, opts *renderOpts) error {
	var img keyimage.Image
	if opts.status {
		img = keyimage.RenderStatus(text)
	} else {
		img = keyimage.RenderAddress(text, keyimage.ParseDisplayMode(opts.lines))
	}

	body := string(img.SVG())
	if opts.dataURI {
		body = img.DataURI()
	}

	if opts.output == "" {
		if opts.dataURI {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), body)
			return err
		}
		_, err := cmd.OutOrStdout().Write([]byte(body))
		return err
	}

	if err := os.WriteFile(opts.output, []byte(body), 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "writing %s", opts.output)
	}
	printFile(opts.output)
	return nil
}

package cli

import (
	"github.com/spf13/cobra"

	"github.com/deckwork/ipkey/pkg/clipboard"
	"github.com/deckwork/ipkey/pkg/publicip"
)

// copyCommand creates the copy command.
func (c *CLI) copyCommand() *cobra.Command {
	var flags lookupFlags

	cmd := &cobra.Command{
		Use:   "copy [address]",
		Short: "Copy the public IPv4 address to the clipboard",
		Long: `Copy the public IPv4 address to the system clipboard.

Without an argument the address is resolved first, exactly as the key
press on the deck does it. An explicit address skips the lookup:

  ipkey copy
  ipkey copy 203.0.113.77`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			text := ""
			if len(args) == 1 {
				addr, err := publicip.ParseAddress(args[0])
				if err != nil {
					return err
				}
				text = addr.String()
			} else {
				client, err := flags.client()
				if err != nil {
					return err
				}
				spinner := newSpinner(ctx, "Resolving public address...")
				addr, err := client.Fetch(ctx)
				if err != nil {
					spinner.StopWithError("Lookup failed")
					return err
				}
				spinner.Stop()
				text = addr.String()
			}

			clip := clipboard.New()
			if err := clip.Copy(ctx, text); err != nil {
				return err
			}

			printSuccess("Copied %s", StyleHighlight.Render(text))
			printDetail("clipboard backend: %s", clip.Name())
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

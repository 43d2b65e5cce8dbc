package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/deckwork/ipkey/pkg/buildinfo"
	"github.com/deckwork/ipkey/pkg/deck"
	"github.com/deckwork/ipkey/pkg/errors"
)

// manifestCommand creates the manifest command. The host discovers
// plugins through a manifest.json next to the binary; generating it
// from code keeps the action UUID and version in one place.
func (c *CLI) manifestCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Print the plugin manifest.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m := deck.DefaultManifest(buildinfo.Version)
			if err := m.Validate(); err != nil {
				return err
			}

			body, err := json.MarshalIndent(m, "", "  ")
			if err != nil {
				return err
			}
			body = append(body, '\n')

			if output == "" {
				_, err := cmd.OutOrStdout().Write(body)
				return err
			}
			if err := os.WriteFile(output, body, 0o644); err != nil {
				return errors.Wrap(errors.ErrCodeInternal, err, "writing %s", output)
			}
			printFile(output)
			printKeyValue("Action", deck.ActionAddress)
			printKeyValue("Version", m.Version)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	return cmd
}

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/satriahrh/arunika-actor/adapters/tts"
)

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List ElevenLabs voices",
	Long: `List the voices available to ELEVEN_LABS_API_KEY. Set ELEVEN_LABS_VOICE_ID
to one of the ids to use it with tts.mode elevenlabs.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eleven, err := tts.NewElevenLabsTTS(tts.NewElevenLabsConfigFromEnv(), logger.Named("tts"))
		if err != nil {
			return err
		}

		voices, err := eleven.GetAvailableVoices(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCATEGORY")
		for _, v := range voices {
			fmt.Fprintf(w, "%v\t%v\t%v\n", v["voice_id"], v["name"], v["category"])
		}
		return w.Flush()
	},
}

package cli

import (
	"bergbridge/internal/config"

	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	settings = config.New()
)

var rootCmd = &cobra.Command{
	Use:   "bergbridge",
	Short: "Bridge between a remote command service and little printer hardware",
	Long: `bergbridge relays little printer commands received over TCP to a print sink.

Print commands are decoded, run-length expanded and spooled as PBM bitmaps.
Every command is answered with a status code carrying its command id.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "optional yaml config file")
}

func loadConfig() (*config.Config, error) {
	return config.Load(settings, cfgFile)
}

// bindFlag ties a command flag to a viper key so flags override file and env values.
func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := settings.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		panic(err)
	}
}

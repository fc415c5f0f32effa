package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/lgggrade/internal/lgg"
	"github.com/MeKo-Tech/lgggrade/internal/node"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "lgg",
	Short: "Lift/gamma/gain color grading",
	Long: `lgg applies a three-wheel lift/gamma/gain color grade to images and
MBTiles tilesets.

Each wheel takes a hue, a saturation, a strength and a luma offset. Lift moves
the shadows, gamma bends the midtones and gain scales the highlights. Wheels can
be set with flags, a YAML config file, LGGGRADE_* environment variables or a
snapshot file written by a previous run.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.Bool("verbose", false, "Enable debug logging")
	flags.String("look", "", "Snapshot JSON to start from; wheel flags override its values")

	for _, in := range node.InputTypes() {
		flags.Float64(flagName(in), in.Range.Default,
			fmt.Sprintf("%s %s [%g, %g]", in.Role, in.Field, in.Range.Min, in.Range.Max))
	}
	for _, role := range lgg.Roles {
		flags.String(string(role)+"-wheel", "", fmt.Sprintf("%s hue/sat as a wheel offset \"x,y\" (overrides hue and sat)", role))
	}

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"log_level", "log-level"},
		{"verbose", "verbose"},
		{"look", "look"},
	}
	for _, in := range node.InputTypes() {
		bindFlags = append(bindFlags, struct {
			key  string
			flag string
		}{configKey(in), flagName(in)})
	}
	for _, role := range lgg.Roles {
		bindFlags = append(bindFlags, struct {
			key  string
			flag string
		}{"grade." + string(role) + ".wheel", string(role) + "-wheel"})
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, flags.Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

// flagName is the CLI flag of an input, e.g. "gamma-strength".
func flagName(in node.Input) string {
	return string(in.Role) + "-" + in.Field
}

// configKey is the viper key of an input, e.g. "grade.gamma.strength".
func configKey(in node.Input) string {
	return "grade." + string(in.Role) + "." + in.Field
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("LGGGRADE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

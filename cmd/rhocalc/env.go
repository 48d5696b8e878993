package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const globalPrefix = "rhocalc"

// checkEnvironmentVariables fills every flag the user did not set from the
// environment: RHOCALC_<FLAG> for global flags and RHOCALC_<CMD>_<FLAG> for
// the flags of a subcommand. Dashes in flag names become underscores.
func checkEnvironmentVariables(command *cobra.Command) error {
	var errs []string
	errs = append(errs, mapEnv(globalPrefix, command.Root().PersistentFlags())...)
	if command != command.Root() {
		errs = append(errs, mapEnv(fmt.Sprintf("%s_%s", globalPrefix, command.Name()), command.LocalFlags())...)
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("error mapping environment variables to command flags: %s", strings.Join(errs, "; "))
}

func mapEnv(prefix string, flags *pflag.FlagSet) []string {
	var errs []string
	v := viper.New()
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()
	flags.VisitAll(func(f *pflag.Flag) {
		configName := strings.ReplaceAll(f.Name, "-", "_")
		if !f.Changed && v.IsSet(configName) {
			if err := flags.Set(f.Name, fmt.Sprintf("%v", v.Get(configName))); err != nil {
				errs = append(errs, err.Error())
			}
		}
	})
	return errs
}

package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var envKeyReplacer = strings.NewReplacer("-", "_")

func InitConfig() {
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()
}

// Flags is the set of flags a command declares, each one is readable
// through viper under its Name
type Flags []FlagData

func (f Flags) AddToCommand(command *cobra.Command, persistent ...bool) {
	for _, flag := range f {
		flag.AddToCommand(command, persistent...)
	}
}

func (f Flags) Append(more Flags) Flags {
	return append(append(Flags{}, f...), more...)
}

// BindViper must run in PreRun so commands sharing a flag name do not
// overwrite each other's bindings
func (f Flags) BindViper(command *cobra.Command, persistent ...bool) {
	for _, flag := range f {
		flag.BindViper(command, persistent...)
	}
}

// FlagData declares one flag. Its value is resolved from the command
// line first, then from the environment variable derived from Name
// (database-url reads DATABASE_URL), then from Env in order, then from
// DefaultValue
type FlagData struct {
	Name         string
	Short        rune
	DefaultValue any
	Usage        string
	Type         FlagType

	// Env lists legacy or platform wide variable names that also set
	// this flag
	Env []string
}

type FlagType string

type flagRegistrar func(flags *pflag.FlagSet, f *FlagData)

var flagRegistrars = map[FlagType]flagRegistrar{
	FlagTypeBool: func(flags *pflag.FlagSet, f *FlagData) {
		flags.BoolP(f.Name, f.shorthand(), f.DefaultValue.(bool), f.Usage)
	},
	FlagTypeDuration: func(flags *pflag.FlagSet, f *FlagData) {
		flags.DurationP(f.Name, f.shorthand(), f.DefaultValue.(time.Duration), f.Usage)
	},
	FlagTypeFloat: func(flags *pflag.FlagSet, f *FlagData) {
		flags.Float64P(f.Name, f.shorthand(), f.DefaultValue.(float64), f.Usage)
	},
	FlagTypeInteger: func(flags *pflag.FlagSet, f *FlagData) {
		flags.IntP(f.Name, f.shorthand(), f.DefaultValue.(int), f.Usage)
	},
	FlagTypeString: func(flags *pflag.FlagSet, f *FlagData) {
		flags.StringP(f.Name, f.shorthand(), f.DefaultValue.(string), f.Usage)
	},
	FlagTypeStringSlice: func(flags *pflag.FlagSet, f *FlagData) {
		flags.StringSliceP(f.Name, f.shorthand(), f.DefaultValue.([]string), f.Usage)
	},
}

func (f *FlagData) shorthand() string {
	if f.Short == 0 {
		return ""
	}
	return string(f.Short)
}

// EnvNames lists every environment variable read for this flag, in
// order of precedence
func (f *FlagData) EnvNames() []string {
	return append([]string{strings.ToUpper(envKeyReplacer.Replace(f.Name))}, f.Env...)
}

// AddToCommand registers the flag during init(). Panics on an unknown
// Type or a DefaultValue of the wrong type since both are programming
// errors
func (f *FlagData) AddToCommand(command *cobra.Command, persistent ...bool) {
	register, ok := flagRegistrars[f.Type]
	if !ok {
		panic(fmt.Sprintf("unknown FlagType[%s] for flag[%s]", f.Type, f.Name))
	}
	register(f.flagSet(command, persistent...), f)
	if len(f.Env) > 0 {
		flag := f.flagSet(command, persistent...).Lookup(f.Name)
		flag.Usage = fmt.Sprintf("%s (env: %s)", flag.Usage, strings.Join(f.EnvNames(), ", "))
	}
}

func (f *FlagData) BindViper(command *cobra.Command, persistent ...bool) {
	viper.BindPFlag(f.Name, f.flagSet(command, persistent...).Lookup(f.Name))
	viper.BindEnv(append([]string{f.Name}, f.EnvNames()...)...)
}

func (f *FlagData) flagSet(command *cobra.Command, persistent ...bool) *pflag.FlagSet {
	if len(persistent) > 0 && persistent[0] {
		return command.PersistentFlags()
	}
	return command.Flags()
}

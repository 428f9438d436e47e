package config

import (
	"github.com/spf13/pflag"
)

// Flags are the command-line overrides. They are applied last.
type Flags struct {
	fs         *pflag.FlagSet
	ConfigFile string
	EnvFile    string
	Host       string
	Port       int
	Driver     string
}

// BindFlags registers the gateway flags on fs.
func BindFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVarP(&f.ConfigFile, "config", "c", "", "path to a YAML configuration file")
	fs.StringVar(&f.EnvFile, "env-file", "", "path to a dotenv file")
	fs.StringVar(&f.Host, "host", "", "HTTP listen host")
	fs.IntVarP(&f.Port, "port", "p", 0, "HTTP listen port")
	fs.StringVar(&f.Driver, "driver", "", "document store driver (mongodb or memory)")
	return f
}

// LoadOptions returns the file locations given on the command line.
func (f *Flags) LoadOptions() LoadOptions {
	return LoadOptions{ConfigFile: f.ConfigFile, EnvFile: f.EnvFile}
}

// Apply overrides cfg with the flags that were set explicitly.
func (f *Flags) Apply(cfg *Config) {
	if f.fs.Changed("host") {
		cfg.Server.Host = f.Host
	}
	if f.fs.Changed("port") {
		cfg.Server.Port = f.Port
	}
	if f.fs.Changed("driver") {
		cfg.Store.Driver = f.Driver
	}
}

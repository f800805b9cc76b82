package config

import (
	"errors"
	"fmt"
	"os"

	"dotmac/internal/common"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var Global global

type global struct {
	ApiUrl     string  `json:"apiUrl" yaml:"apiUrl" mapstructure:"api-url"`
	SourcePath *string `json:"sourcePath" yaml:"sourcePath"`
}

func (g *global) IsGlobalConfigExists() bool {
	return g.SourcePath != nil
}

// LoadGlobal reads the cli configuration file at `from`, a missing file
// is not an error and leaves defaults in place
func LoadGlobal(from string) error {
	logrus.Debugf("loading global configuration from path[%s]...", from)
	from, err := common.ToAbsolutePath(from)
	if err != nil {
		return fmt.Errorf("failed to resolve configuration path: %w", err)
	}

	fi, err := os.Stat(from)
	if errors.Is(err, os.ErrNotExist) {
		logrus.Debugf("config file not found at path[%s], defaults will be used", from)
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to stat configuration file: %w", err)
	} else if fi.IsDir() {
		logrus.Warnf("config file path[%s] led to a directory, defaults will be used", from)
		return nil
	}
	viper.SetConfigFile(from)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read configuration file: %w", err)
	}
	if err := viper.Unmarshal(&Global); err != nil {
		return fmt.Errorf("failed to parse configuration file: %w", err)
	}
	Global.SourcePath = &from

	return nil
}

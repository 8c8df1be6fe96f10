package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/erc7824/aa-signers/pkg/log"
	"github.com/erc7824/aa-signers/signer/lit"
)

const (
	configDirPathEnv     = "LITSIGNER_CONFIG_DIR_PATH"
	defaultConfigDirPath = "."
)

type Config struct {
	Log log.Config
	Lit lit.Config
	// CommandTimeout bounds every REPL command.
	CommandTimeout time.Duration `env:"LITSIGNER_COMMAND_TIMEOUT" env-default:"1m"`
}

// LoadConfig reads <config dir>/.env, when there is one, and then the
// environment. Variables already set in the environment win over .env.
func LoadConfig() (Config, bool, error) {
	configDirPath := os.Getenv(configDirPathEnv)
	if configDirPath == "" {
		configDirPath = defaultConfigDirPath
	}

	dotEnvLoaded := godotenv.Load(filepath.Join(configDirPath, ".env")) == nil

	var conf Config
	if err := cleanenv.ReadEnv(&conf); err != nil {
		return Config{}, dotEnvLoaded, err
	}
	return conf, dotEnvLoaded, nil
}

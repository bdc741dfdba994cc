package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	yaml "gopkg.in/yaml.v2"
)

// reading config error is fatal, and exits main thread
func processError(err error) {
	fmt.Println(err)
	os.Exit(2)
}

func readFile(cfg *Configuration) {
	f, err := os.Open("config.yml")
	if err != nil {
		processError(err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	err = decoder.Decode(cfg)
	if err != nil {
		processError(err)
	}
}

func readEnv(cfg *Configuration) {
	err := envconfig.Process("", cfg)
	if err != nil {
		processError(err)
	}
}

func applyDefaults(cfg *Configuration) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Circle.APIBase == "" {
		cfg.Circle.APIBase = "https://api.circle.com"
	}
	if cfg.Circle.IrisBase == "" {
		cfg.Circle.IrisBase = "https://iris-api-sandbox.circle.com"
	}
	if cfg.Bridge.PollIntervalSec == 0 {
		cfg.Bridge.PollIntervalSec = 2
	}
	if cfg.Bridge.MaxConcurrentRuns == 0 {
		cfg.Bridge.MaxConcurrentRuns = 16
	}
}

func Init() {
	readFile(&Config)
	readEnv(&Config)
	applyDefaults(&Config)
}

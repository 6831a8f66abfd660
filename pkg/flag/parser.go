// Copyright 2025 Alibaba Group Holding Ltd.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package flag

import (
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alibaba/opensandbox/procmon/pkg/log"
)

const (
	configFileEnv     = "PROCMON_CONFIG"
	portEnv           = "PORT"
	accessTokenEnv    = "PROCMON_ACCESS_TOKEN"
	streamIntervalEnv = "PROCMON_STREAM_INTERVAL"

	defaultPort           = 3000
	defaultLogLevel       = 6
	defaultStreamInterval = 5 * time.Second
)

// fileConfig mirrors the optional YAML file named by PROCMON_CONFIG.
type fileConfig struct {
	Port           int    `yaml:"port"`
	LogLevel       *int   `yaml:"log_level"`
	AccessToken    string `yaml:"access_token"`
	StreamInterval string `yaml:"stream_interval"`
}

// InitFlags registers CLI flags, config file and env overrides.
func InitFlags() {
	setDefaults()

	if path := os.Getenv(configFileEnv); path != "" {
		if err := loadConfigFile(path); err != nil {
			stdlog.Panicf("Failed to load config file %s: %v", path, err)
		}
	}

	if err := applyEnv(); err != nil {
		stdlog.Panic(err)
	}

	flag.IntVar(&ServerPort, "port", ServerPort, "Server listening port (default: 3000)")
	flag.IntVar(&ServerLogLevel, "log-level", ServerLogLevel, "Server log level (0=LevelEmergency, 1=LevelAlert, 2=LevelCritical, 3=LevelError, 4=LevelWarning, 5=LevelNotice, 6=LevelInformational, 7=LevelDebug, default: 6)")
	flag.StringVar(&ServerAccessToken, "access-token", ServerAccessToken, "Server access token for API authentication")
	flag.DurationVar(&StreamInterval, "stream-interval", StreamInterval, "Delay between process snapshots pushed to streaming clients (default: 5s)")

	// Parse flags - these will override the file and environment values if provided
	flag.Parse()

	if StreamInterval <= 0 {
		stdlog.Panicf("Invalid stream interval %v: must be positive", StreamInterval)
	}

	log.Info("Server port is: %d", ServerPort)
	log.Info("Stream interval is: %v", StreamInterval)
}

func setDefaults() {
	ServerPort = defaultPort
	ServerLogLevel = defaultLogLevel
	ServerAccessToken = ""
	StreamInterval = defaultStreamInterval
}

func loadConfigFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("invalid yaml: %w", err)
	}

	if cfg.Port != 0 {
		ServerPort = cfg.Port
	}
	if cfg.LogLevel != nil {
		ServerLogLevel = *cfg.LogLevel
	}
	if cfg.AccessToken != "" {
		ServerAccessToken = cfg.AccessToken
	}
	if cfg.StreamInterval != "" {
		interval, err := time.ParseDuration(cfg.StreamInterval)
		if err != nil {
			return fmt.Errorf("invalid stream_interval: %w", err)
		}
		StreamInterval = interval
	}
	return nil
}

func applyEnv() error {
	if port := os.Getenv(portEnv); port != "" {
		value, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("failed to parse %s from env: %w", portEnv, err)
		}
		ServerPort = value
	}

	if token := os.Getenv(accessTokenEnv); token != "" {
		ServerAccessToken = token
	}

	if interval := os.Getenv(streamIntervalEnv); interval != "" {
		duration, err := time.ParseDuration(interval)
		if err != nil {
			return fmt.Errorf("failed to parse %s from env: %w", streamIntervalEnv, err)
		}
		StreamInterval = duration
	}
	return nil
}

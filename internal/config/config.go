package config

import (
	"os"
	"time"

	"quizmatch-service/internal/domain"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Match struct {
		QuestionsPerRound int `yaml:"questionsPerRound"`
		MaxRounds         int `yaml:"maxRounds"`
		PointsPerCorrect  int `yaml:"pointsPerCorrect"`
	} `yaml:"match"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Rules resolves the match section against the defaults; zero values fall
// back so a partial config stays playable.
func (c Config) Rules() domain.Rules {
	rules := domain.DefaultRules()
	if c.Match.QuestionsPerRound > 0 {
		rules.QuestionsPerRound = c.Match.QuestionsPerRound
	}
	if c.Match.MaxRounds > 0 {
		rules.MaxRounds = c.Match.MaxRounds
	}
	if c.Match.PointsPerCorrect > 0 {
		rules.PointsPerCorrect = c.Match.PointsPerCorrect
	}
	return rules
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

package indexclientprofile

import "time"

type Config struct {
	Index   string
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Index:   "clients",
		Timeout: 20 * time.Second,
	}
}

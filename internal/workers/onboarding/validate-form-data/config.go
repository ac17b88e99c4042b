package validateformdata

import "time"

type Config struct {
	Timeout time.Duration
	// FailOnInvalid throws FORM_VALIDATION_FAILED instead of completing
	// with isValid=false.
	FailOnInvalid bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout:       10 * time.Second,
		FailOnInvalid: true,
	}
}

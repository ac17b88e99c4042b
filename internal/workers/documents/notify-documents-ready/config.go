package notifydocumentsready

import "time"

type Config struct {
	EmailEnabled bool
	SMSEnabled   bool
	// SMSPriorityThreshold is the lowest priority that also triggers an SMS.
	SMSPriorityThreshold string
	Timeout              time.Duration
}

func LoadConfig() *Config {
	return &Config{
		EmailEnabled:         true,
		SMSPriorityThreshold: PriorityHigh,
		Timeout:              30 * time.Second,
	}
}

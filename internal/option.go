package internal

// Option configures the archive organizer before Run starts serving.
type Option func(*application)

type application struct {
	config *Config
}

// WithConfig overrides the default configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

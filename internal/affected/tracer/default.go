package tracer

import (
	"sync"

	"github.com/kolkov/goaffected/internal/affected/config"
	"github.com/kolkov/goaffected/internal/affected/hostrt"
)

var (
	defaultOnce   sync.Once
	defaultTracer *Tracer
	defaultErr    error
)

// Default returns the process-wide tracer attached to hostrt.Default().
//
// It is built once, on first use, from config.Discover. A construction
// error is returned on every call; it is not retried.
func Default() (*Tracer, error) {
	defaultOnce.Do(func() {
		cfg, err := config.Discover()
		if err != nil {
			defaultErr = err
			return
		}
		opts, err := OptionsFromConfig(cfg)
		if err != nil {
			defaultErr = err
			return
		}
		opts.Interpreter = hostrt.Default()
		defaultTracer, defaultErr = New(opts)
	})
	return defaultTracer, defaultErr
}

// OptionsFromConfig maps a loaded configuration onto tracer options.
// The interpreter is left unset.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	strategy, err := ParseStrategy(cfg.Strategy)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Strategy:        strategy,
		Exclude:         cfg.Exclude,
		GoMod:           cfg.GoMod,
		SyntheticMarker: cfg.SyntheticMarker,
		Logger:          cfg.Logger(nil),
	}, nil
}

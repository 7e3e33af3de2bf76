package agent

import (
	"github.com/nerrad567/ventoagent/internal/registry"
	"github.com/nerrad567/ventoagent/internal/subsystems/gpio"
	"github.com/nerrad567/ventoagent/internal/subsystems/system"
)

// DefaultProviders returns the built-in subsystems: system always, gpio
// only when isPi reports a Raspberry Pi.
func DefaultProviders(opts system.Options, isPi func() bool) ([]registry.Provider, error) {
	sys, err := system.New(opts)
	if err != nil {
		return nil, err
	}

	providers := []registry.Provider{sys}
	if isPi != nil && isPi() {
		gp := gpio.NewDefault()
		if opts.Logger != nil {
			gp.Controller().SetLogger(opts.Logger)
		}
		providers = append(providers, gp)
	}
	return providers, nil
}

package suite

import (
	"fmt"

	"github.com/themizzi/storecheck/internal/browser"
	"github.com/themizzi/storecheck/internal/browser/pwpage"
	"github.com/themizzi/storecheck/internal/browser/rodpage"
	"github.com/themizzi/storecheck/internal/config"
)

// Launch starts the browser driver selected by cfg.Driver
func Launch(cfg *config.SuiteConfig) (browser.Launcher, error) {
	switch cfg.Driver {
	case config.DriverPlaywright:
		l, err := pwpage.Launch(pwpage.Options{
			Headless:          cfg.Headless,
			ActionTimeout:     cfg.Timeouts.Command,
			NavigationTimeout: cfg.Timeouts.PageLoad,
			Install:           cfg.InstallBrowsers,
		})
		if err != nil {
			return nil, err
		}
		return l, nil
	case config.DriverRod:
		l, err := rodpage.Launch(rodpage.Options{
			Headless:          cfg.Headless,
			NoSandbox:         cfg.NoSandbox,
			Stealth:           cfg.Stealth,
			ActionTimeout:     cfg.Timeouts.Command,
			NavigationTimeout: cfg.Timeouts.PageLoad,
		})
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}
}

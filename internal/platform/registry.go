package platform

import (
	"fmt"
	"strings"

	"taxman/internal/config"
	"taxman/internal/log"
)

// builders is the closed set of storefront adapters.
var builders = map[string]func(*config.Config, *config.Settings, *log.Logger) Platform{
	appStoreName:  func(c *config.Config, s *config.Settings, l *log.Logger) Platform { return NewAppStore(c, s, l) },
	playStoreName: func(c *config.Config, s *config.Settings, l *log.Logger) Platform { return NewPlayStore(c, s, l) },
	playPassName:  func(c *config.Config, s *config.Settings, l *log.Logger) Platform { return NewPlayPass(c, s, l) },
	steamName:     func(c *config.Config, s *config.Settings, l *log.Logger) Platform { return NewSteam(c, s, l) },
	nintendoName:  func(c *config.Config, s *config.Settings, l *log.Logger) Platform { return NewNintendo(c, s, l) },
}

// defaultOrder keeps runs and reports deterministic.
var defaultOrder = []string{appStoreName, nintendoName, playPassName, playStoreName, steamName}

// Names lists every known platform.
func Names() []string {
	out := make([]string, len(defaultOrder))
	copy(out, defaultOrder)
	return out
}

// Resolve builds adapters for the requested platform names, or all of
// them when none are named.
func Resolve(names []string, cfg *config.Config, settings *config.Settings, lg *log.Logger) ([]Platform, error) {
	if len(names) == 0 {
		names = Names()
	}
	out := make([]Platform, 0, len(names))
	for _, name := range names {
		build, ok := builders[name]
		if !ok {
			return nil, fmt.Errorf("unknown platform %q (known: %s)", name, strings.Join(Names(), ", "))
		}
		out = append(out, build(cfg, settings, lg))
	}
	return out, nil
}

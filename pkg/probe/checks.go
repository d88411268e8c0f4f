package probe

import (
	"context"
	"fmt"

	"qiblago/pkg/config"
	"qiblago/pkg/geo"
	"qiblago/pkg/qibla"
	"qiblago/pkg/sensor"
)

// ConfigCheck validates the loaded configuration.
func ConfigCheck(cfg *config.Config) Probe {
	return Probe{
		Name:     "Configuration",
		Check:    func(context.Context) error { return cfg.Validate() },
		Critical: true,
	}
}

// BearingCheck verifies a bearing can be computed from observer to the calculator's target.
// Non-critical: a bad static location only means the client must push its own fix.
func BearingCheck(calc *qibla.Calculator, observer geo.Point) Probe {
	return Probe{
		Name: "Qibla Bearing",
		Check: func(context.Context) error {
			_, err := calc.Bearing(observer)
			return err
		},
	}
}

// SourceCheck starts the heading source and waits for its first sample.
func SourceCheck(src sensor.Source) Probe {
	return Probe{
		Name: "Heading Source",
		Check: func(ctx context.Context) error {
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			ch, err := src.Start(ctx)
			if err != nil {
				return err
			}
			select {
			case _, ok := <-ch:
				if !ok {
					return fmt.Errorf("%s: %w", src.Name(), sensor.ErrNoSamples)
				}
				return nil
			case <-ctx.Done():
				return fmt.Errorf("%s: no sample before timeout: %w", src.Name(), ctx.Err())
			}
		},
		Critical: true,
	}
}

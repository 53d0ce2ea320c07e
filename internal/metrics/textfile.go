package metrics

import (
	"fmt"

	prom "github.com/prometheus/client_golang/prometheus"
)

// WriteTextfile writes every metric of reg to path in the text exposition format,
// suitable for the node exporter textfile collector.
func WriteTextfile(reg *prom.Registry, path string) error {
	if reg == nil {
		return fmt.Errorf("metrics: nil registry")
	}
	if err := prom.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("metrics: write textfile %s: %w", path, err)
	}
	return nil
}

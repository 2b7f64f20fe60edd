// Package main は 負荷試験ツールのエントリーポイントを提供します。
package main

import (
	"fmt"
	"os"

	"github.com/amakane-hakari/ttlmap/loadtest/attacker"
	"github.com/amakane-hakari/ttlmap/loadtest/config"
	"github.com/amakane-hakari/ttlmap/loadtest/scenario"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("[INFO] base-url=%s rate=%d duration=%s read-ratio=%.2f badge-ratio=%.2f keys=%d value-size=%d read-only=%v\n",
		cfg.BaseURL, cfg.Rate, cfg.Duration, cfg.ReadRatio, cfg.BadgeRatio, cfg.Keys, cfg.ValueSize, cfg.DisablePUT)

	gen := scenario.NewGenerator(scenario.Params{
		BaseURL:    cfg.BaseURL,
		Keys:       cfg.Keys,
		ReadRatio:  cfg.ReadRatio,
		BadgeRatio: cfg.BadgeRatio,
		ValueSize:  cfg.ValueSize,
		ReadOnly:   cfg.DisablePUT,
	})

	r := attacker.Runner{
		Rate:     cfg.Rate,
		Duration: cfg.Duration,
		Timeout:  cfg.Timeout,
		Name:     cfg.Name,
		Output:   cfg.Output,
	}

	summary, err := r.Run(gen.Targeter())
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	if summary.Success < 1 {
		fmt.Fprintf(os.Stderr, "[WARN] success ratio %.4f\n", summary.Success)
	}
}

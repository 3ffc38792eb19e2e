package main

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/paramtree/paramtree-go/pkg/model"
)

// simulationInterval is how often device statistics are updated.
const simulationInterval = 5 * time.Second

// runSimulation acts as the device: it advances DeviceInfo.UpTime and
// bumps every statistics counter in the tree.
func runSimulation(ctx context.Context, tree *model.Tree, logger *slog.Logger) {
	logger.Info("simulation enabled", "interval", simulationInterval)

	start := time.Now()
	upTime := tree.Def().Name + ".DeviceInfo.UpTime"
	if _, err := tree.Get(upTime); err != nil {
		upTime = ""
	}

	ticker := time.NewTicker(simulationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if upTime != "" {
				if err := tree.SetInternal(upTime, uint32(time.Since(start)/time.Second)); err != nil {
					logger.Warn("simulation: updating uptime", "error", err)
				}
			}
			counters := 0
			tree.Walk(func(n *model.Node) bool {
				for _, pd := range n.Def().Parameters {
					if !pd.Type.IsCounter() {
						continue
					}
					if err := tree.IncrementCounter(n.Path()+pd.Name, uint64(rand.Int63n(1500))+1); err != nil {
						logger.Debug("simulation: counter", "path", n.Path()+pd.Name, "error", err)
						continue
					}
					counters++
				}
				return true
			})
			logger.Debug("simulation tick", "counters", counters)
		}
	}
}

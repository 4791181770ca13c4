package commands

import (
	"fmt"

	"github.com/dgwcamk/radiosim/cmd/radiosim/config"
	"github.com/dgwcamk/radiosim/radio/flow"
	"github.com/dgwcamk/radiosim/radio/intersched"
	"github.com/dgwcamk/radiosim/radio/intrasched"
	"github.com/dgwcamk/radiosim/radio/simulation"
	"github.com/dgwcamk/radiosim/radio/slice"
	"github.com/dgwcamk/radiosim/radio/user"
)

// userSE records the constant spectral efficiency to reapply to a user
// every TTI, since the CLI has no trace-loader collaborator wired in.
type userSE struct {
	user *user.User
	se   float64
}

// buildSimulation constructs a Simulation, its basestations, slices and
// users from cfg, and returns the list of (user, constant SE) pairs the
// run loop must re-apply every tick.
func buildSimulation(cfg *config.Config) (*simulation.Simulation, []userSE, error) {
	sim, err := simulation.New(simulation.Config{Option5G: cfg.Option5G, Parallel: cfg.Parallel})
	if err != nil {
		return nil, nil, fmt.Errorf("create simulation: %w", err)
	}

	var users []userSE
	for _, bsCfg := range cfg.BaseStations {
		scheduler, err := buildScheduler(bsCfg, sim.RBBandwidth())
		if err != nil {
			return nil, nil, fmt.Errorf("basestation %s: %w", bsCfg.DisplayName, err)
		}

		bs, err := sim.AddBaseStation(simulation.AddBaseStationConfig{
			DisplayName: bsCfg.DisplayName,
			Bandwidth:   bsCfg.Bandwidth,
			RBsPerRBG:   bsCfg.RBsPerRBG,
			WindowMax:   bsCfg.WindowMax,
			Seed:        bsCfg.Seed,
			Scheduler:   scheduler,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("add basestation %s: %w", bsCfg.DisplayName, err)
		}

		for _, slCfg := range bsCfg.Slices {
			sl, err := bs.AddSlice(slice.Config{
				Type:         slice.Type(slCfg.Type),
				Requirements: slCfg.Requirements,
			}, intrasched.NewRoundRobin())
			if err != nil {
				return nil, nil, fmt.Errorf("add slice to %s: %w", bsCfg.DisplayName, err)
			}

			for _, uCfg := range slCfg.Users {
				count := uCfg.Count
				if count <= 0 {
					count = 1
				}
				for i := 0; i < count; i++ {
					u, err := bs.AddUser(sl.ID(), user.Config{
						MaxLat:         uCfg.MaxLat,
						BufferSize:     uCfg.BufferSize,
						PktSize:        uCfg.PktSize,
						FlowType:       flow.Poisson,
						FlowThroughput: uCfg.FlowThroughput,
						TTI:            sim.TTI(),
						WindowMax:      uCfg.WindowMax,
					})
					if err != nil {
						return nil, nil, fmt.Errorf("add user to slice %d: %w", sl.ID(), err)
					}
					u.SetSpectralEfficiency(uCfg.SpectralEfficiency)
					users = append(users, userSE{user: u, se: uCfg.SpectralEfficiency})
				}
			}
		}
	}
	return sim, users, nil
}

// buildScheduler constructs the inter-slice scheduler named by
// bsCfg.Scheduler. rbBandwidth is the simulation's derived per-resource-block
// bandwidth in Hz, needed by OptimalHeuristic to size per-RBG throughput.
func buildScheduler(bsCfg config.BaseStationConfig, rbBandwidth float64) (intersched.Scheduler, error) {
	switch bsCfg.Scheduler {
	case "round_robin":
		return intersched.NewRoundRobin(), nil
	case "optimal_heuristic":
		h := intersched.NewOptimalHeuristic(rbBandwidth, bsCfg.RBsPerRBG, bsCfg.WindowMax)
		h.UseAllResources = bsCfg.UseAllResources
		return h, nil
	case "fixed":
		alloc := make(map[int]int, len(bsCfg.FixedAllocation))
		for sliceIDStr, n := range bsCfg.FixedAllocation {
			var sliceID int
			if _, err := fmt.Sscanf(sliceIDStr, "%d", &sliceID); err != nil {
				return nil, fmt.Errorf("fixed_allocation key %q is not a slice id: %w", sliceIDStr, err)
			}
			alloc[sliceID] = n
		}
		return intersched.NewFixed(alloc), nil
	default:
		return nil, fmt.Errorf("unrecognized scheduler %q", bsCfg.Scheduler)
	}
}

package action

import "github.com/hacksh-LesMiddleMen/grr/pkg/message"

// Registry is the static name to action table. The set is fixed once
// NewRegistry returns; there is no dynamic registration.
type Registry struct {
	actions map[string]*Registration
}

// NewRegistry builds the full action set over the given collaborators.
func NewRegistry(deps Deps) *Registry {
	deps.defaults()

	r := &Registry{actions: map[string]*Registration{}}
	add := func(reg *Registration) {
		r.actions[reg.Name] = reg
	}

	add(&Registration{Name: "Echo", Run: echo})
	add(&Registration{Name: "GetHostname", Run: getHostname})
	add(&Registration{Name: "GetPlatformInfo", Run: getPlatformInfo})
	add(&Registration{Name: "GetClientInfo", Run: getClientInfo})
	add(&Registration{Name: "GetConfig", Run: getConfig(deps)})
	add(&Registration{Name: "UpdateConfig", Run: updateConfig(deps)})
	add(&Registration{Name: "GetClientStats", Run: getClientStats(deps)})
	add(&Registration{
		Name: "GetClientStatsAuto",
		Run:  getClientStats(deps),
		Dest: Destination{
			WellKnownSession: message.StatsSessionID,
			Priority:         message.PriorityLow,
		},
	})
	add(&Registration{
		Name: "SendStartupInfo",
		Run:  sendStartupInfo,
		Dest: Destination{
			WellKnownSession: message.StartupSessionID,
			Priority:         message.PriorityLow,
		},
	})
	add(&Registration{Name: "Kill", Run: kill(deps), Terminal: true})
	add(&Registration{Name: "Hang", Run: hang(deps)})
	add(&Registration{Name: "BusyHang", Run: busyHang})
	add(&Registration{Name: "Bloat", Run: bloat(deps)})

	return r
}

// Lookup resolves a request name, ErrUnknownAction when outside the set.
func (r *Registry) Lookup(name string) (*Registration, error) {
	reg, ok := r.actions[name]
	if !ok {
		return nil, ErrUnknownAction
	}
	return reg, nil
}

// Names lists the registered action names, for diagnostics.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	return names
}

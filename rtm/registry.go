package rtm

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Supported engine names. The registry only accepts constructors for these;
// anything else is a configuration error surfaced with the valid set.
const (
	EngineModtran     = "modtran"
	EngineSixS        = "sixs"
	EngineKernelFlows = "kernel_flows"
	EngineSRTMnet     = "srtmnet"
)

// SupportedEngineNames contains all engine names the registry accepts.
var SupportedEngineNames = []string{
	EngineModtran,
	EngineSixS,
	EngineKernelFlows,
	EngineSRTMnet,
}

// EngineConstructor builds an Engine from its configuration and the resolved
// layered parameters.
type EngineConstructor func(cfg EngineConfig, params EngineParams) (Engine, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]EngineConstructor{}
)

// RegisterEngine installs a constructor for one of the supported engine
// names. Registering an unsupported name is a programming error and is
// rejected. Re-registering a name replaces the previous constructor, which
// lets tests substitute synthetic engines.
func RegisterEngine(name string, ctor EngineConstructor) error {
	if !isSupportedEngine(name) {
		return fmt.Errorf("cannot register engine %q: must be one of: %s",
			name, validEngineNames())
	}
	if ctor == nil {
		return fmt.Errorf("cannot register engine %q: nil constructor", name)
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = ctor
	return nil
}

// lookupEngine resolves a configured engine name to its constructor.
func lookupEngine(name string) (EngineConstructor, error) {
	if !isSupportedEngine(name) {
		return nil, fmt.Errorf("invalid radiative transfer engine choice: got %q; must be one of: %s",
			name, validEngineNames())
	}
	registryMu.RLock()
	defer registryMu.RUnlock()
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("radiative transfer engine %q has no registered constructor; registered: %s",
			name, registeredEngineNamesLocked())
	}
	return ctor, nil
}

func isSupportedEngine(name string) bool {
	for _, s := range SupportedEngineNames {
		if name == s {
			return true
		}
	}
	return false
}

func validEngineNames() string {
	return strings.Join(SupportedEngineNames, ", ")
}

// registeredEngineNamesLocked assumes the caller holds registryMu.
func registeredEngineNamesLocked() string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}

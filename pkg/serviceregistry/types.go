package serviceregistry

import (
	"sort"

	"github.com/core-tools/hsu-siat/pkg/clientfactory"
	"github.com/core-tools/hsu-siat/pkg/endpoints"
)

// Re-export for convenience
type ServiceName = endpoints.ServiceName
type Client = clientfactory.Client

// Entry is the construction result for one service: a client or the error that prevented it
type Entry struct {
	URL    string
	Client Client
	Err    error
}

// OK reports whether the entry holds a usable client
func (e Entry) OK() bool {
	return e.Err == nil && e.Client != nil
}

// ServiceMap holds one entry per endpoint, usable or not
type ServiceMap map[ServiceName]Entry

// Client returns the client for name, nil when missing or failed
func (m ServiceMap) Client(name ServiceName) Client {
	entry, ok := m[name]
	if !ok || !entry.OK() {
		return nil
	}
	return entry.Client
}

func (m ServiceMap) Names() []ServiceName {
	names := make([]ServiceName, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Failed returns the sorted names of entries without a usable client
func (m ServiceMap) Failed() []ServiceName {
	var failed []ServiceName
	for _, name := range m.Names() {
		if !m[name].OK() {
			failed = append(failed, name)
		}
	}
	return failed
}

// Ready returns the sorted names of entries with a usable client
func (m ServiceMap) Ready() []ServiceName {
	var ready []ServiceName
	for _, name := range m.Names() {
		if m[name].OK() {
			ready = append(ready, name)
		}
	}
	return ready
}

// Clone copies the map; clients are shared, not rebuilt
func (m ServiceMap) Clone() ServiceMap {
	clone := make(ServiceMap, len(m))
	for name, entry := range m {
		clone[name] = entry
	}
	return clone
}

// Summary counts usable and failed entries
func (m ServiceMap) Summary() (ready, failed int) {
	for _, entry := range m {
		if entry.OK() {
			ready++
		} else {
			failed++
		}
	}
	return
}

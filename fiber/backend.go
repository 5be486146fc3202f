package fiber

import (
	"path"
	"path/filepath"
	goruntime "runtime"
	"sort"
	"strings"
	"sync"

	"github.com/wippyai/fibers/errors"
)

// BackendKey identifies the platform a native backend is built for.
type BackendKey struct {
	OS   string
	Arch string
	ABI  string
	Libc string // linux only: glibc or musl
}

// String renders the key as os-arch-abi[-libc].
func (k BackendKey) String() string {
	parts := []string{k.OS, k.Arch, k.ABI}
	if k.Libc != "" {
		parts = append(parts, k.Libc)
	}
	return strings.Join(parts, "-")
}

// ParseBackendKey parses the String form of a key.
func ParseBackendKey(s string) (BackendKey, error) {
	parts := strings.Split(s, "-")
	if len(parts) < 3 || len(parts) > 4 {
		return BackendKey{}, errors.InvalidInput(errors.PhaseResolve, "backend key must be os-arch-abi[-libc]: "+s)
	}
	k := BackendKey{OS: parts[0], Arch: parts[1], ABI: parts[2]}
	if len(parts) == 4 {
		k.Libc = parts[3]
	}
	return k, nil
}

// CurrentKey describes the running process.
func CurrentKey() BackendKey {
	k := BackendKey{
		OS:   goruntime.GOOS,
		Arch: goruntime.GOARCH,
		ABI:  abiVersion(goruntime.Version()),
	}
	if k.OS == "linux" {
		k.Libc = detectLibc()
	}
	return k
}

// abiVersion trims a toolchain version to major.minor: go1.25.4 -> go1.25.
func abiVersion(v string) string {
	if !strings.HasPrefix(v, "go") {
		return "devel"
	}
	parts := strings.SplitN(v, ".", 3)
	if len(parts) < 2 {
		return v
	}
	minor, _, _ := strings.Cut(parts[1], "rc")
	minor, _, _ = strings.Cut(minor, "beta")
	minor, _, _ = strings.Cut(minor, " ")
	return parts[0] + "." + minor
}

var muslLoaders = "/lib/ld-musl-*.so.1"

func detectLibc() string {
	if m, _ := filepath.Glob(muslLoaders); len(m) > 0 {
		return "musl"
	}
	return "glibc"
}

// BackendFactory builds the native switcher for a runtime.
type BackendFactory func(rt *Runtime) Switcher

var (
	backendsMu sync.RWMutex
	backends   = map[string]BackendFactory{
		"*": newGoroutineSwitcher,
	}
)

// RegisterBackend registers factory for keys matching pattern. Patterns use
// path.Match syntax against BackendKey.String; "*" matches every key.
func RegisterBackend(pattern string, factory BackendFactory) error {
	if _, err := path.Match(pattern, ""); err != nil {
		return errors.Wrap(errors.PhaseResolve, errors.KindInvalidInput, err, "backend pattern "+pattern)
	}
	if factory == nil {
		return errors.InvalidInput(errors.PhaseResolve, "nil backend factory")
	}
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[pattern] = factory
	return nil
}

// UnregisterBackend removes the factory registered under pattern.
func UnregisterBackend(pattern string) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	delete(backends, pattern)
}

// ResolveBackend finds the factory for key. An exact registration wins,
// then the longest matching pattern.
func ResolveBackend(key BackendKey) (BackendFactory, error) {
	name := key.String()

	backendsMu.RLock()
	defer backendsMu.RUnlock()

	if f, ok := backends[name]; ok {
		return f, nil
	}

	patterns := make([]string, 0, len(backends))
	for p := range backends {
		patterns = append(patterns, p)
	}
	sort.Slice(patterns, func(i, j int) bool {
		if len(patterns[i]) != len(patterns[j]) {
			return len(patterns[i]) > len(patterns[j])
		}
		return patterns[i] < patterns[j]
	})
	for _, p := range patterns {
		if ok, _ := path.Match(p, name); ok {
			return backends[p], nil
		}
	}
	return nil, errors.MissingBackend(name, nil)
}

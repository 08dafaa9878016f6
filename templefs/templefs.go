// Package templefs maps TempleOS-style paths onto the host filesystem.
//
// Two trees exist: the read-only vendored TempleOS tree, addressed with
// the "::/" prefix, and a writable overlay root that mirrors the
// TempleOS root for everything else. Writes into "::/" are always
// refused.
package templefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// ErrVendorWrite is returned for any write aimed at the vendored tree.
var ErrVendorWrite = errors.New("refusing to write into ::/ (vendored TempleOS tree)")

// vendorProbe is the file whose presence marks a TempleOS tree.
const vendorProbe = "Kernel/FontStd.HC"

// systemVendorRoot is the fixed fallback location for the vendored tree.
const systemVendorRoot = "/usr/share/templelinux/TempleOS"

// Config is the filesystem-related environment surface.
type Config struct {
	// Root is the writable overlay root.
	Root string `envconfig:"TEMPLE_ROOT"`
	// TempleOSRoot overrides vendored-tree discovery.
	TempleOSRoot string `envconfig:"TEMPLEOS_ROOT"`
	// LinuxRunAllow is the comma/whitespace separated host-command allowlist.
	LinuxRunAllow string `envconfig:"TEMPLE_LINUX_RUN_ALLOW"`
}

// ConfigFromEnv decodes Config from the process environment.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("templefs: config: %w", err)
	}
	return cfg, nil
}

// DefaultOverlayRoot returns the overlay root: TEMPLE_ROOT if set,
// otherwise ~/.templelinux.
func DefaultOverlayRoot() string {
	if v := strings.TrimSpace(os.Getenv("TEMPLE_ROOT")); v != "" {
		return v
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".templelinux")
	}
	return ".templelinux"
}

// DiscoverVendorRoot finds the vendored TempleOS tree: the
// TEMPLEOS_ROOT override first, then a walk up from the working
// directory and the executable directory looking for
// third_party/TempleOS, then the fixed system path.
func DiscoverVendorRoot() (string, bool) {
	if v := strings.TrimSpace(os.Getenv("TEMPLEOS_ROOT")); v != "" {
		return v, true
	}

	var bases []string
	if cwd, err := os.Getwd(); err == nil {
		bases = append(bases, cwd)
	}
	if exe, err := os.Executable(); err == nil {
		bases = append(bases, filepath.Dir(exe))
	}

	for _, base := range bases {
		dir := base
		for i := 0; i < 8; i++ {
			candidate := filepath.Join(dir, "third_party", "TempleOS")
			if fileExists(filepath.Join(candidate, vendorProbe)) {
				return candidate, true
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	if fileExists(filepath.Join(systemVendorRoot, vendorProbe)) {
		return systemVendorRoot, true
	}
	return "", false
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Normalize collapses "."/".."/empty components of a temple-space path
// and never escapes above the root.
func Normalize(path string) string {
	var parts []string
	for _, comp := range strings.Split(path, "/") {
		switch comp {
		case "", ".":
		case "..":
			if len(parts) > 0 {
				parts = parts[:len(parts)-1]
			}
		default:
			parts = append(parts, comp)
		}
	}
	if len(parts) == 0 {
		return "/"
	}
	return "/" + strings.Join(parts, "/")
}

// Resolver maps temple-space specs to host paths relative to a current
// directory inside the overlay.
type Resolver struct {
	// OverlayRoot is the writable host directory mirroring "/".
	OverlayRoot string
	// VendorRoot is the read-only TempleOS tree backing "::/", empty if
	// undiscovered.
	VendorRoot string
	// Cwd is the current temple-space directory, e.g. "/Home".
	Cwd string
}

// NewResolver builds a resolver with the given roots and "/Home" as the
// working directory.
func NewResolver(overlayRoot, vendorRoot string) *Resolver {
	return &Resolver{OverlayRoot: overlayRoot, VendorRoot: vendorRoot, Cwd: "/Home"}
}

// absSpec resolves ~, relative, and absolute temple-space specs into a
// normalized absolute temple-space path. "::/" specs pass through.
func (r *Resolver) absSpec(spec string) string {
	spec = strings.TrimSpace(spec)
	if strings.HasPrefix(spec, "::/") {
		return spec
	}

	var abs string
	switch {
	case spec == "~":
		abs = "/Home"
	case strings.HasPrefix(spec, "~/"):
		abs = "/Home/" + spec[2:]
	case strings.HasPrefix(spec, "/"):
		abs = spec
	default:
		base := strings.TrimRight(r.Cwd, "/")
		if base == "" {
			abs = "/" + spec
		} else {
			abs = base + "/" + spec
		}
	}
	return Normalize(abs)
}

// ResolveRead maps a spec to a host path for reading. Overlay paths
// that do not exist fall back to the same path inside the vendored
// tree, so vendored content shows through the overlay.
func (r *Resolver) ResolveRead(spec string) (string, error) {
	abs := r.absSpec(spec)
	if rest, ok := strings.CutPrefix(abs, "::/"); ok {
		if r.VendorRoot == "" {
			return "", errors.New("templefs: TempleOS tree not found (needed for ::/ paths)")
		}
		return filepath.Join(r.VendorRoot, filepath.FromSlash(rest)), nil
	}

	rel := filepath.FromSlash(strings.TrimPrefix(abs, "/"))
	overlay := filepath.Join(r.OverlayRoot, rel)
	if fileExists(overlay) {
		return overlay, nil
	}
	if r.VendorRoot != "" {
		vendored := filepath.Join(r.VendorRoot, rel)
		if fileExists(vendored) {
			return vendored, nil
		}
	}
	return overlay, nil
}

// ResolveWrite maps a spec to a host path for writing. Vendored-tree
// targets are refused.
func (r *Resolver) ResolveWrite(spec string) (string, error) {
	spec = strings.TrimSpace(spec)
	if strings.HasPrefix(spec, "::/") {
		return "", ErrVendorWrite
	}
	abs := r.absSpec(spec)
	rel := filepath.FromSlash(strings.TrimPrefix(abs, "/"))
	return filepath.Join(r.OverlayRoot, rel), nil
}

// AbsDir resolves a spec into a normalized temple-space directory for
// Cd. "::/X" transparently rebases to the overlay's "/X".
func (r *Resolver) AbsDir(spec string) (string, error) {
	spec = strings.TrimSpace(spec)
	if rest, ok := strings.CutPrefix(spec, "::/"); ok {
		spec = "/" + rest
	}
	return r.absSpec(spec), nil
}

// ResolveSource resolves an #include spec for the preprocessor:
// "::/rel" against the vendored tree, absolute host paths verbatim, and
// relative paths against the including file's directory. A missing
// extension tries HC, HH, then H.
func ResolveSource(spec, baseDir, vendorRoot string) (string, error) {
	var base string
	switch {
	case strings.HasPrefix(spec, "::/"):
		if vendorRoot == "" {
			return "", errors.New("templefs: TEMPLEOS_ROOT is not set and a TempleOS tree could not be discovered")
		}
		base = filepath.Join(vendorRoot, filepath.FromSlash(strings.TrimPrefix(spec, "::/")))
	case filepath.IsAbs(spec):
		base = spec
	default:
		base = filepath.Join(baseDir, filepath.FromSlash(spec))
	}

	if fileExists(base) {
		return base, nil
	}
	if filepath.Ext(base) == "" {
		for _, ext := range []string{"HC", "HH", "H"} {
			candidate := base + "." + ext
			if fileExists(candidate) {
				return candidate, nil
			}
		}
	}
	return "", fmt.Errorf("templefs: include not found: %s", spec)
}

// RunAllowlist returns the lowercase basenames allowed for LinuxRun:
// the TEMPLE_LINUX_RUN_ALLOW environment variable if set, otherwise the
// overlay's Cfg/LinuxRunAllow.txt (one entry per line, '#' comments).
// An empty result means the bridge is disabled.
func RunAllowlist(overlayRoot string) []string {
	if v := strings.TrimSpace(os.Getenv("TEMPLE_LINUX_RUN_ALLOW")); v != "" {
		var out []string
		for _, tok := range strings.FieldsFunc(v, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == '\n'
		}) {
			tok = strings.TrimSpace(tok)
			if tok != "" {
				out = append(out, strings.ToLower(tok))
			}
		}
		return out
	}

	if overlayRoot == "" {
		return nil
	}
	text, err := os.ReadFile(filepath.Join(overlayRoot, "Cfg", "LinuxRunAllow.txt"))
	if err != nil {
		return nil
	}
	var out []string
	for _, line := range strings.Split(string(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, strings.ToLower(line))
	}
	return out
}

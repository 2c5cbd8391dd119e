package scanner

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/mod/semver"

	lerrors "github.com/standardbeagle/jslibsig/internal/errors"
)

// VersionDir is one <package>/<version> directory of a reference corpus.
// Scoped packages live one level deeper as @scope/<package>/<version>.
type VersionDir struct {
	Namespace string
	Package   string
	Version   string
	Path      string
}

// Name returns the package name with its scope, if any.
func (v VersionDir) Name() string {
	if v.Namespace == "" {
		return v.Package
	}
	return v.Namespace + "/" + v.Package
}

// VersionDirs lists the version directories under packagesRoot. When only is
// non-empty it restricts the result to that package ("name" or "@scope/name").
// Results are ordered by package, then by semantic version.
func VersionDirs(packagesRoot, only string) ([]VersionDir, error) {
	entries, err := os.ReadDir(packagesRoot)
	if err != nil {
		return nil, lerrors.NewFileError("read", packagesRoot, err)
	}

	var out []VersionDir
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if strings.HasPrefix(e.Name(), "@") {
			scopeDir := filepath.Join(packagesRoot, e.Name())
			pkgs, err := os.ReadDir(scopeDir)
			if err != nil {
				return nil, lerrors.NewFileError("read", scopeDir, err)
			}
			for _, p := range pkgs {
				if !p.IsDir() {
					continue
				}
				dirs, err := packageVersions(filepath.Join(scopeDir, p.Name()), e.Name(), p.Name())
				if err != nil {
					return nil, err
				}
				out = append(out, dirs...)
			}
			continue
		}
		dirs, err := packageVersions(filepath.Join(packagesRoot, e.Name()), "", e.Name())
		if err != nil {
			return nil, err
		}
		out = append(out, dirs...)
	}

	if only != "" {
		filtered := out[:0]
		for _, v := range out {
			if v.Name() == only || v.Package == only {
				filtered = append(filtered, v)
			}
		}
		out = filtered
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name() != out[j].Name() {
			return out[i].Name() < out[j].Name()
		}
		return CompareVersions(out[i].Version, out[j].Version) < 0
	})
	return out, nil
}

func packageVersions(dir, namespace, pkg string) ([]VersionDir, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, lerrors.NewFileError("read", dir, err)
	}
	var out []VersionDir
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		out = append(out, VersionDir{
			Namespace: namespace,
			Package:   pkg,
			Version:   e.Name(),
			Path:      filepath.Join(dir, e.Name()),
		})
	}
	return out, nil
}

// CompareVersions orders two version strings. Valid semantic versions, with
// or without a leading "v", sort by precedence and after anything invalid;
// invalid versions sort lexically among themselves.
func CompareVersions(a, b string) int {
	ca, cb := canonical(a), canonical(b)
	switch {
	case ca != "" && cb != "":
		if c := semver.Compare(ca, cb); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	case ca != "":
		return 1
	case cb != "":
		return -1
	}
	return strings.Compare(a, b)
}

func canonical(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return v
}

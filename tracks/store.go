package tracks

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"pfeifer.dev/trackd/params"
	"pfeifer.dev/trackd/utils"
	"pfeifer.dev/trackd/waypoint"
)

const EXTENSION = ".json"

func Load(path string) (TrackSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TrackSpec{}, errors.Wrapf(err, "could not read track %s", path)
	}
	spec, err := Parse(data)
	if err != nil {
		return spec, errors.Wrapf(err, "track %s", path)
	}
	if spec.Name == "" {
		spec.Name = strings.TrimSuffix(filepath.Base(path), EXTENSION)
	}
	return spec, nil
}

func Save(path string, spec TrackSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		return errors.Wrap(err, "could not encode track")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o775); err != nil {
		return errors.Wrap(err, "could not create track directory")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o664), "could not write track %s", path)
}

// Resolve returns the file a named track lives in. Names that already look
// like paths are returned unchanged.
func Resolve(name string) string {
	if strings.HasSuffix(name, EXTENSION) || strings.ContainsRune(name, os.PathSeparator) {
		return name
	}
	return filepath.Join(params.TracksPath, name+EXTENSION)
}

// Find looks a track up on disk first, then among the builtins.
func Find(name string) (TrackSpec, error) {
	path := Resolve(name)
	spec, err := Load(path)
	if err == nil {
		return spec, nil
	}
	if builtin, ok := Builtin[name]; ok {
		return builtin, nil
	}
	return spec, err
}

type built struct {
	path *waypoint.Path
	err  error
}

// builtinPaths caches built builtin tracks. Paths are immutable so every
// loader can share them.
var builtinPaths = lo.MapValues(Builtin, func(_ TrackSpec, _ string) *utils.Curry[built] {
	return &utils.Curry[built]{}
})

// LoadPath finds and builds a named track. Files in TracksPath shadow the
// builtins.
func LoadPath(name string) (*waypoint.Path, error) {
	spec, err := Load(Resolve(name))
	if err != nil {
		cache, ok := builtinPaths[name]
		if !ok {
			return nil, err
		}
		b := cache.Value(func() built {
			path, err := Builtin[name].Build()
			return built{path: path, err: err}
		})
		return b.path, b.err
	}
	path, err := spec.Build()
	if err != nil {
		return nil, err
	}
	slog.Debug("loaded track", "name", spec.Name, "samples", path.Len(), "length", path.Length())
	return path, nil
}

// List returns every track name available, builtins included.
func List() []string {
	names := BuiltinNames()
	entries, err := os.ReadDir(params.TracksPath)
	if err != nil && !os.IsNotExist(err) {
		slog.Warn("could not list tracks", "error", err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != EXTENSION {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), EXTENSION))
	}
	names = lo.Uniq(names)
	slices.Sort(names)
	return names
}

package pipeline

import (
	"log/slog"
	"sort"

	"github.com/mdegans/mce/errors"
	"github.com/mdegans/mce/media"
)

// BuildNodes turns a GraphDescription into live nodes using the framework's
// factory. Absent entries are skipped without error. Properties are applied
// in sorted key order so that failures are reproducible.
//
// Duplicate names are permitted by the framework but are almost always a
// caller error, so they are logged at warn level rather than failed.
//
// BuildNodes does not link the nodes or add them to any container.
func BuildNodes(f media.Framework, desc GraphDescription, logger *slog.Logger) ([]media.Node, error) {
	if f == nil {
		return nil, errors.ErrNoFramework
	}

	nodes := make([]media.Node, 0, len(desc))
	seen := make(map[string]bool, len(desc))

	for _, d := range desc {
		if d.Absent() {
			continue
		}

		logger.Debug("creating node", "type", d.Type, "name", d.Name)
		node, err := f.NewNode(d.Type, d.Name)
		if err != nil {
			logger.Error("failed to create node", "type", d.Type, "name", d.Name, "error", err)
			return nil, &errors.NodeCreationError{Type: d.Type, Name: d.Name, Err: err}
		}

		keys := make([]string, 0, len(d.Properties))
		for k := range d.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := node.SetProperty(k, d.Properties[k]); err != nil {
				return nil, errors.WrapInvalid(err, "builder", "BuildNodes",
					"set property "+k+" on "+d.Name)
			}
		}

		if seen[d.Name] {
			logger.Warn("duplicate node name, this may lead to unexpected behavior",
				"name", d.Name)
		}
		seen[d.Name] = true
		nodes = append(nodes, node)
	}

	return nodes, nil
}

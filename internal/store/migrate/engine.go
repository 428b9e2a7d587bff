// Package migrate implements per-collection document schema migrations.
//
// Each collection carries an integer schema version. A document persisted
// under an older version is upgraded through every intermediate step, in
// order, before it is exposed to any query. Steps are pure transforms over
// the document's map representation.
package migrate

import (
	"fmt"

	"github.com/gabrielpoca/journal/internal/common"
)

// Doc is the generic map representation a migration step operates on.
type Doc = map[string]any

// Step upgrades a document from version V-1 to version V. Steps must be pure:
// no I/O, no mutation of the input (return a new map or a modified copy).
type Step func(Doc) Doc

// Identity is the explicit no-op step used to keep version numbering
// contiguous when a schema bump required no document changes.
func Identity(doc Doc) Doc { return doc }

// Engine applies the ordered migration chain of one collection.
type Engine struct {
	collection string
	current    int
	steps      map[int]Step
}

// NewEngine validates and builds the migration chain for a collection at
// schema version current. Steps must be defined for every version 1..current;
// a gap is a configuration error and fails here, at setup time, never later
// against live data.
func NewEngine(collection string, current int, steps map[int]Step) (*Engine, error) {
	if current < 0 {
		return nil, fmt.Errorf("%w: collection %s: negative version %d", common.ErrMigrationConfig, collection, current)
	}
	for v := 1; v <= current; v++ {
		if steps[v] == nil {
			return nil, fmt.Errorf("%w: collection %s: missing step for version %d", common.ErrMigrationConfig, collection, v)
		}
	}
	for v := range steps {
		if v < 1 || v > current {
			return nil, fmt.Errorf("%w: collection %s: step %d outside 1..%d", common.ErrMigrationConfig, collection, v, current)
		}
	}
	return &Engine{collection: collection, current: current, steps: steps}, nil
}

// Current returns the collection's current schema version.
func (e *Engine) Current() int { return e.current }

// Apply upgrades doc from the given version to the current one, running each
// step in strict ascending order. A document already at (or beyond) the
// current version is returned unchanged.
func (e *Engine) Apply(doc Doc, from int) (Doc, error) {
	if from < 0 {
		return nil, fmt.Errorf("%w: collection %s: document version %d", common.ErrMigrationConfig, e.collection, from)
	}
	for v := from + 1; v <= e.current; v++ {
		doc = e.steps[v](doc)
	}
	return doc, nil
}

package drover

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregateSimpleKeepsPerUnitValues(t *testing.T) {
	results := []interface{}{1.0, 2.0, 3.0}
	assert.Equal(t, results, aggregate(ModeSimple, results))
}

func TestAggregateExtendedFlattensSequences(t *testing.T) {
	results := []interface{}{
		[]interface{}{1.0, 2.0},
		[]interface{}{3.0, 4.0},
		[]interface{}{5.0},
	}
	assert.Equal(t, []interface{}{1.0, 2.0, 3.0, 4.0, 5.0}, aggregate(ModeExtended, results))
}

func TestAggregateExtendedCollectsScalars(t *testing.T) {
	// Per-chunk aggregation tasks return one value per unit; the shape is
	// decided by the first result, not assumed.
	results := []interface{}{10.0, 20.0, 5.0}
	assert.Equal(t, results, aggregate(ModeExtended, results))
}

func TestAggregateEmpty(t *testing.T) {
	assert.Equal(t, []interface{}{}, aggregate(ModeExtended, nil))
	assert.Equal(t, []interface{}{}, aggregate(ModeSimple, []interface{}{}))
}

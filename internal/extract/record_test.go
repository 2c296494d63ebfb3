package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_String(t *testing.T) {
	rec, err := Extract(`{"STEP-3": {"요약": "고민"}, "n": 3.5, "obj": {"편": "학이"}}`)
	require.NoError(t, err)

	s, err := rec.String("STEP-3", "요약")
	require.NoError(t, err)
	assert.Equal(t, "고민", s)

	s, err = rec.String("n")
	require.NoError(t, err)
	assert.Equal(t, "3.5", s)

	s, err = rec.String("obj")
	require.NoError(t, err)
	assert.Equal(t, `{"편":"학이"}`, s)
}

func TestRecord_MissingKeyIsSchemaError(t *testing.T) {
	rec := Record{"STEP-4": map[string]any{"부족함": "인내"}}

	_, err := rec.String("STEP-4", "하위개념")
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "STEP-4.하위개념", schemaErr.Path)
	assert.Equal(t, "is missing", schemaErr.Reason)
}

func TestRecord_NullCountsAsMissing(t *testing.T) {
	rec, err := Extract(`{"STEP-3": null}`)
	require.NoError(t, err)

	_, err = rec.String("STEP-3", "요약")
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "STEP-3", schemaErr.Path)
}

func TestRecord_NonObjectParent(t *testing.T) {
	rec := Record{"STEP-3": "요약 없이 문자열"}

	_, err := rec.String("STEP-3", "요약")
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "STEP-3", schemaErr.Path)
	assert.Equal(t, "is not an object", schemaErr.Reason)
}

func TestRecord_Bool(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    bool
		wantErr bool
	}{
		{"bool true", true, true, false},
		{"bool false", false, false, false},
		{"quoted True", "True", true, false},
		{"quoted false", " false ", false, false},
		{"garbage", "maybe", false, true},
		{"number", float64(1), false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Record{"STEP-2": tt.value}.Bool("STEP-2")
			if tt.wantErr {
				var schemaErr *SchemaError
				require.True(t, errors.As(err, &schemaErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

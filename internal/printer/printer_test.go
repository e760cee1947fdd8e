package printer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	t.Cleanup(SetOutput(&out, &errOut))
	return &out, &errOut
}

func TestError(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		_, errOut := capture(t)
		err := Error("Test Error", "This is a test error", []string{})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
		assert.Contains(t, errOut.String(), "This is a test error")
	})

	t.Run("single suggestion is printed plainly", func(t *testing.T) {
		_, errOut := capture(t)
		err := Error("Test Error", "Explanation", []string{"Try this fix"})
		require.Equal(t, "Test Error", err.Error())
		assert.Contains(t, errOut.String(), "Try this fix")
		assert.NotContains(t, errOut.String(), "Either:")
	})

	t.Run("multiple suggestions are numbered", func(t *testing.T) {
		_, errOut := capture(t)
		err := Error("Test Error", "Explanation", []string{
			"First option",
			"Second option",
		})
		require.Equal(t, "Test Error", err.Error())
		assert.Contains(t, errOut.String(), "Either:")
		assert.Contains(t, errOut.String(), "  2. Second option")
	})
}

func TestErrorWithContext(t *testing.T) {
	_, errOut := capture(t)
	context := map[string]string{
		"Source": "bicomap.csv",
		"Field":  "volume",
	}
	err := ErrorWithContext("Test Error", "Explanation", context, []string{"Fix it"})
	require.Error(t, err)
	require.Equal(t, "Test Error", err.Error())

	s := errOut.String()
	assert.Less(t, bytes.Index([]byte(s), []byte("Field:")), bytes.Index([]byte(s), []byte("Source:")),
		"context keys are printed in sorted order")
}

func TestMessages(t *testing.T) {
	out, _ := capture(t)

	Success("loaded %d rows\n", 3)
	Warning("no numeric values\n")
	Step("fetching\n")
	Metric("Filtered Events", 12)

	s := out.String()
	assert.Contains(t, s, "✓ loaded 3 rows")
	assert.Contains(t, s, "⚠️  no numeric values")
	assert.Contains(t, s, "→ fetching")
	assert.Contains(t, s, "Filtered Events: ")
	assert.Contains(t, s, "12\n")
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	err := Table(&buf, []string{"location", "volume"}, [][]string{
		{"Canaday", "3"},
		{"Erdman", "8"},
	})
	require.NoError(t, err)

	s := buf.String()
	assert.Contains(t, s, "Canaday")
	assert.Contains(t, s, "Erdman")
	assert.Contains(t, strings.ToLower(s), "volume")
}

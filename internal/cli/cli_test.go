package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"
)

const shirtYAML = `
id: 42
store_id: 7
name: T-Shirt
attributes:
  - id: 1
    name: Color
    values:
      - {id: 10, value: Red}
      - {id: 11, value: Blue}
  - id: 2
    name: Size
    values:
      - {id: 20, value: S}
      - {id: 21, value: M}
variants:
  - id: 100
    product_id: 42
    sku: "7|42|color-blue|size-s"
    price: "19.99"
    stock_quantity: 5
    is_active: true
`

func writeProduct(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shirt.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := New()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestKey_Valid(t *testing.T) {
	path := writeProduct(t, shirtYAML)

	out, err := run(t, "key", "-f", path, "--select", "size=s", "--select", "Color=BLUE")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "7|42|color-blue|size-s", lines[0])
	assert.Equal(t, "valid: variant 100, price 19.99, stock 5", lines[1])
}

func TestKey_UnavailableForOtherStore(t *testing.T) {
	path := writeProduct(t, shirtYAML)

	out, err := run(t, "key", "-f", path, "--store", "8", "--select", "Color=Blue", "--select", "Size=S")
	require.NoError(t, err)
	assert.Contains(t, out, "8|42|color-blue|size-s")
	assert.Contains(t, out, "unavailable")
}

func TestKey_Incomplete(t *testing.T) {
	path := writeProduct(t, shirtYAML)

	out, err := run(t, "key", "-f", path, "--select", "Color=Blue")
	require.NoError(t, err)
	assert.Contains(t, out, "7|42|color-blue\n")
	assert.Contains(t, out, "incomplete: 1 of 2 attributes selected")
}

func TestKey_Errors(t *testing.T) {
	path := writeProduct(t, shirtYAML)
	noStore := writeProduct(t, strings.Replace(shirtYAML, "store_id: 7", "store_id: 0", 1))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown attribute", []string{"key", "-f", path, "--select", "Fit=Slim"}, `no attribute "Fit"`},
		{"unknown value", []string{"key", "-f", path, "--select", "Color=Green"}, `has no value "Green"`},
		{"malformed selection", []string{"key", "-f", path, "--select", "option-1-11"}, "expected Attribute=Value"},
		{"no store id", []string{"key", "-f", noStore}, "positive store id is required"},
		{"missing file", []string{"key", "-f", filepath.Join(t.TempDir(), "nope.yaml")}, "reading product file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCombinations_Table(t *testing.T) {
	path := writeProduct(t, shirtYAML)

	out, err := run(t, "combinations", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "7|42|color-red|size-s")
	assert.Contains(t, out, "Color: Blue, Size: M")
	assert.Contains(t, out, "100")
}

func TestCombinations_JSONAndYAML(t *testing.T) {
	path := writeProduct(t, shirtYAML)

	out, err := run(t, "combinations", "-f", path, "-o", "json")
	require.NoError(t, err)
	var rows []combinationRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 4)
	assert.Equal(t, "7|42|color-blue|size-s", rows[2].Key)
	require.NotNil(t, rows[2].VariantID)
	assert.Equal(t, int64(100), *rows[2].VariantID)
	assert.Nil(t, rows[3].VariantID)

	out, err = run(t, "combinations", "-f", path, "-o", "yaml")
	require.NoError(t, err)
	rows = nil
	require.NoError(t, yaml.Unmarshal([]byte(out), &rows))
	assert.Len(t, rows, 4)

	_, err = run(t, "combinations", "-f", path, "-o", "xml")
	assert.ErrorContains(t, err, "unknown output format")
}

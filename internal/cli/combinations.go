package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"storefront-variant-service/internal/domain"
	"storefront-variant-service/internal/variant"
)

type EncodingType string

const (
	EncodingTable EncodingType = "table"
	EncodingJSON  EncodingType = "json"
	EncodingYAML  EncodingType = "yaml"
)

// combinationRow is a combination plus the variant declared for it, if any.
type combinationRow struct {
	variant.Combination
	VariantID *int64 `json:"variant_id,omitempty"`
	Stock     *int32 `json:"stock,omitempty"`
}

func newCombinationsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "combinations",
		Aliases: []string{"combos"},
		Short:   "List every attribute combination of a product with its canonical key",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output, err := cmd.Flags().GetString(FlagOutput)
			if err != nil {
				return err
			}
			storeID, product, err := storeAndProduct(cmd)
			if err != nil {
				return err
			}
			rows, err := combinationRows(storeID, product)
			if err != nil {
				return err
			}
			data, err := encodeCombinations(EncodingType(output), rows)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringP(FlagOutput, FlagOutputShr, string(EncodingTable), "output format: table, json or yaml")
	return cmd
}

func combinationRows(storeID int64, product *domain.Product) ([]combinationRow, error) {
	combos, err := variant.Combinations(storeID, product.ID, product.Attributes)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]domain.Variant, len(product.Variants))
	for _, v := range product.Variants {
		byKey[v.SKU] = v
	}
	rows := make([]combinationRow, len(combos))
	for i, c := range combos {
		rows[i] = combinationRow{Combination: c}
		if v, ok := byKey[c.Key]; ok {
			id, stock := v.ID, v.StockQuantity
			rows[i].VariantID, rows[i].Stock = &id, &stock
		}
	}
	return rows, nil
}

func encodeCombinations(output EncodingType, rows []combinationRow) ([]byte, error) {
	switch output {
	case EncodingJSON:
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case EncodingYAML:
		return yaml.Marshal(rows)
	case EncodingTable:
		return encodeCombinationsAsTable(rows), nil
	default:
		return nil, fmt.Errorf("unknown output format: %q", output)
	}
}

func encodeCombinationsAsTable(rows []combinationRow) []byte {
	var buf bytes.Buffer
	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.AppendHeader(table.Row{"Combination", "Key", "Variant", "Stock"})
	for _, r := range rows {
		variantID, stock := "-", "-"
		if r.VariantID != nil {
			variantID = fmt.Sprint(*r.VariantID)
			stock = fmt.Sprint(*r.Stock)
		}
		t.AppendRow(table.Row{strings.Join(r.Labels, ", "), r.Key, variantID, stock})
	}
	style := table.StyleLight
	style.Options.DrawBorder = false
	t.SetStyle(style)
	t.Render()
	return buf.Bytes()
}

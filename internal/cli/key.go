package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"storefront-variant-service/internal/variant"
)

func newKeyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "key",
		Short:   "Print the canonical key for a selection and the variant it resolves to",
		Example: `  variantctl key -f shirt.yaml --store 7 --select Color=Blue --select Size=S`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			storeID, product, err := storeAndProduct(cmd)
			if err != nil {
				return err
			}
			choices, err := cmd.Flags().GetStringArray(FlagSelect)
			if err != nil {
				return err
			}
			sel, err := parseSelection(choices, product.Attributes)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			res, err := variant.Resolve(cmd.Context(), variant.StaticStoreID(storeID), product, sel)
			if err != nil {
				return err
			}
			switch res.Status {
			case variant.StatusIncomplete:
				fmt.Fprintln(out, variant.BuildCanonicalKey(storeID, product.ID, sel, product.Attributes))
				fmt.Fprintf(out, "incomplete: %d of %d attributes selected\n", res.Selected, res.Required)
			case variant.StatusValid:
				fmt.Fprintln(out, res.Key)
				fmt.Fprintf(out, "valid: variant %d, price %s, stock %d\n", res.Variant.ID, res.Variant.Price.String(), res.Variant.StockQuantity)
			default:
				fmt.Fprintln(out, res.Key)
				fmt.Fprintln(out, "unavailable: no variant declared for this combination")
			}
			return nil
		},
	}
	cmd.Flags().StringArray(FlagSelect, nil, "chosen value as Attribute=Value (repeatable)")
	return cmd
}

// Package cli implements variantctl, a tool for computing variant keys from
// product definition files without a running service.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"storefront-variant-service/internal/domain"
)

const (
	FlagFile      = "file"
	FlagStore     = "store"
	FlagSelect    = "select"
	FlagOutput    = "output"
	FlagOutputShr = "o"
)

// New returns the variantctl root command.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "variantctl",
		Short:             "Compute canonical variant keys for storefront products",
		SilenceUsage:      true,
		DisableAutoGenTag: true,
	}
	cmd.PersistentFlags().StringP(FlagFile, "f", "", "product definition file (YAML or JSON)")
	cmd.PersistentFlags().Int64(FlagStore, 0, "store id used in keys (defaults to the file's store_id)")
	_ = cmd.MarkPersistentFlagRequired(FlagFile)

	cmd.AddCommand(newKeyCommand(), newCombinationsCommand())
	return cmd
}

// loadProduct reads a product definition file.
func loadProduct(path string) (*domain.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading product file: %w", err)
	}
	var p domain.Product
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding product file %s: %w", path, err)
	}
	if p.ID <= 0 {
		return nil, fmt.Errorf("product file %s: id must be a positive integer", path)
	}
	return &p, nil
}

// storeAndProduct loads the product and the store id the keys are built for.
// The store id is never guessed.
func storeAndProduct(cmd *cobra.Command) (int64, *domain.Product, error) {
	path, err := cmd.Flags().GetString(FlagFile)
	if err != nil {
		return 0, nil, err
	}
	p, err := loadProduct(path)
	if err != nil {
		return 0, nil, err
	}
	storeID, err := cmd.Flags().GetInt64(FlagStore)
	if err != nil {
		return 0, nil, err
	}
	if !cmd.Flags().Changed(FlagStore) {
		storeID = p.StoreID
	}
	if storeID <= 0 {
		return 0, nil, fmt.Errorf("a positive store id is required: pass --%s or set store_id in the product file", FlagStore)
	}
	return storeID, p, nil
}

// parseSelection maps "Attribute=Value" flags onto attribute and value ids.
// Names are matched case-insensitively.
func parseSelection(args []string, attrs []domain.Attribute) (domain.Selection, error) {
	sel := domain.Selection{}
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(name) == "" || strings.TrimSpace(value) == "" {
			return nil, fmt.Errorf("invalid selection %q: expected Attribute=Value", arg)
		}
		c, err := lookupChoice(attrs, strings.TrimSpace(name), strings.TrimSpace(value))
		if err != nil {
			return nil, err
		}
		sel.Choose(c)
	}
	return sel, nil
}

func lookupChoice(attrs []domain.Attribute, name, value string) (domain.Choice, error) {
	for _, attr := range attrs {
		if !strings.EqualFold(attr.Name, name) {
			continue
		}
		for _, v := range attr.Values {
			if strings.EqualFold(v.Value, value) {
				return domain.Choice{AttributeID: attr.ID, ValueID: v.ID}, nil
			}
		}
		return domain.Choice{}, fmt.Errorf("attribute %q has no value %q", attr.Name, value)
	}
	return domain.Choice{}, fmt.Errorf("product has no attribute %q", name)
}

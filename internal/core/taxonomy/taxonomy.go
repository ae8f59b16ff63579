// Package taxonomy loads the category tree rulings are classified against.
package taxonomy

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/juristcu/juristcu-api/internal/core/domain"
)

//go:embed criterios.yaml
var defaultYAML []byte

var (
	defaultOnce sync.Once
	defaultTax  domain.Taxonomy
	defaultErr  error
)

// Default returns the taxonomy shipped with the binary. It is parsed once.
func Default() (domain.Taxonomy, error) {
	defaultOnce.Do(func() {
		defaultTax, defaultErr = Parse(defaultYAML)
	})
	return defaultTax, defaultErr
}

func Parse(raw []byte) (domain.Taxonomy, error) {
	var tax domain.Taxonomy
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&tax); err != nil {
		return domain.Taxonomy{}, fmt.Errorf("decode taxonomy yaml: %w", err)
	}
	if err := Validate(tax); err != nil {
		return domain.Taxonomy{}, err
	}
	return tax, nil
}

func Validate(tax domain.Taxonomy) error {
	if len(tax.Categories) == 0 {
		return errors.New("taxonomy has no categories")
	}
	seenCat := make(map[string]struct{}, len(tax.Categories))
	for _, cat := range tax.Categories {
		name := strings.TrimSpace(cat.Name)
		if name == "" {
			return errors.New("category with empty name")
		}
		if _, dup := seenCat[name]; dup {
			return fmt.Errorf("duplicate category %q", name)
		}
		seenCat[name] = struct{}{}

		if len(cat.Subcategories) == 0 {
			return fmt.Errorf("category %q has no subcategories", name)
		}
		seenSub := make(map[string]struct{}, len(cat.Subcategories))
		for _, sub := range cat.Subcategories {
			subName := strings.TrimSpace(sub.Name)
			if subName == "" {
				return fmt.Errorf("category %q: subcategory with empty name", name)
			}
			if _, dup := seenSub[subName]; dup {
				return fmt.Errorf("category %q: duplicate subcategory %q", name, subName)
			}
			seenSub[subName] = struct{}{}
			if len(sub.Criteria) == 0 {
				return fmt.Errorf("subcategory %q has no criteria", subName)
			}
			for i, criterion := range sub.Criteria {
				if strings.TrimSpace(criterion) == "" {
					return fmt.Errorf("subcategory %q: criterion %d is empty", subName, i+1)
				}
			}
		}
	}
	return nil
}

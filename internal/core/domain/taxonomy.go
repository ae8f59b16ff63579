package domain

// Taxonomy is the fixed category tree every document is evaluated against.
// Order matters: scans walk categories, subcategories and criteria as listed.
type Taxonomy struct {
	Categories []Category `yaml:"categorias"`
}

type Category struct {
	Name          string        `yaml:"nome"`
	Subcategories []Subcategory `yaml:"subcategorias"`
}

type Subcategory struct {
	Name     string   `yaml:"nome"`
	Criteria []string `yaml:"criterios"`
}

// SubcategoryRef addresses one subcategory inside the taxonomy.
type SubcategoryRef struct {
	Category    string
	Subcategory string
	Criteria    []string
}

// Plan flattens the taxonomy into the sequence of subcategories a scan evaluates.
func (t Taxonomy) Plan() []SubcategoryRef {
	var plan []SubcategoryRef
	for _, cat := range t.Categories {
		for _, sub := range cat.Subcategories {
			plan = append(plan, SubcategoryRef{
				Category:    cat.Name,
				Subcategory: sub.Name,
				Criteria:    sub.Criteria,
			})
		}
	}
	return plan
}

func (t Taxonomy) CategoryNames() []string {
	names := make([]string, 0, len(t.Categories))
	for _, cat := range t.Categories {
		names = append(names, cat.Name)
	}
	return names
}

func (t Taxonomy) CriteriaCount() int {
	total := 0
	for _, cat := range t.Categories {
		for _, sub := range cat.Subcategories {
			total += len(sub.Criteria)
		}
	}
	return total
}

package connector

import (
	"context"
	"strings"

	contractx "github.com/tanakach/callcenter/agent/contract"
)

// Product is one catalog entry. Sections map topic keywords to manual text.
type Product struct {
	Name     string
	Category string
	Sections map[string]string
}

// Catalog is the read-only product list. It also serves as the pure
// product-reference detector agents use to fill CustomerContext.
type Catalog struct {
	products []Product
}

func NewCatalog(products []Product) *Catalog {
	return &Catalog{products: products}
}

// DefaultCatalog is the demo product line-up.
func DefaultCatalog() *Catalog {
	return NewCatalog([]Product{
		{Name: "A68 Air", Category: "tablet", Sections: map[string]string{
			"battery": "The A68 Air runs up to 12 hours of mixed use per charge. Charging to full takes about 2.5 hours with the bundled adapter.",
			"screen":  "The A68 Air has a 10.9 inch LCD. If the screen stays black after charging, hold power and volume-up for 10 seconds to force a restart.",
			"support": "A68 Air support desk: 0120-100-868, weekdays 9:00-18:00.",
		}},
		{Name: "B27 Max", Category: "smartwatch", Sections: map[string]string{
			"battery": "The B27 Max lasts about 5 days per charge with always-on display off.",
			"pairing": "To pair the B27 Max, enable Bluetooth on your phone and hold the side button for 3 seconds.",
			"support": "B27 Max support desk: 0120-200-272, weekdays 9:00-18:00.",
		}},
		{Name: "C82 Lite", Category: "smartphone", Sections: map[string]string{
			"battery": "The C82 Lite has a 4500mAh battery, typically a full day of use.",
			"support": "C82 Lite support desk: 0120-300-824, weekdays 9:00-18:00.",
		}},
		{Name: "D47 Air", Category: "smart speaker", Sections: map[string]string{
			"setup":   "Plug in the D47 Air and follow the companion app; setup takes about 3 minutes.",
			"support": "D47 Air support desk: 0120-400-474.",
		}},
		{Name: "E51 Mini", Category: "smartphone", Sections: map[string]string{
			"battery": "The E51 Mini has a 3200mAh battery suited to light use.",
		}},
		{Name: "F29 Pro", Category: "smart speaker", Sections: map[string]string{
			"audio": "The F29 Pro supports stereo pairing with a second F29 Pro unit.",
		}},
		{Name: "G81 Standard", Category: "smartphone", Sections: map[string]string{
			"battery": "The G81 Standard has a 5000mAh battery, up to two days of use.",
		}},
		{Name: "H61 Air", Category: "wireless earbuds", Sections: map[string]string{
			"battery": "The H61 Air plays 6 hours per charge, 24 hours with the case.",
			"pairing": "Open the H61 Air case near your phone to start pairing.",
		}},
		{Name: "I79 Pro", Category: "wireless earbuds", Sections: map[string]string{
			"battery": "The I79 Pro plays 8 hours per charge with noise cancelling off.",
		}},
		{Name: "J87 Max", Category: "game console", Sections: map[string]string{
			"setup":   "Connect the J87 Max over HDMI and sign in; system updates install automatically.",
			"support": "J87 Max support desk: 0120-900-878.",
		}},
	})
}

// Detect finds a product reference mentioned in free text. Matching is
// case-insensitive and tolerates the short form ("b27" for "B27 Max").
func (c *Catalog) Detect(text string) (string, bool) {
	lowered := strings.ToLower(text)
	for _, p := range c.products {
		name := strings.ToLower(p.Name)
		if strings.Contains(lowered, name) {
			return p.Name, true
		}
		if short := strings.Fields(name); len(short) > 0 && strings.Contains(lowered, short[0]) {
			return p.Name, true
		}
	}
	return "", false
}

func (c *Catalog) Product(ref string) (Product, bool) {
	lowered := strings.ToLower(strings.TrimSpace(ref))
	for _, p := range c.products {
		if strings.ToLower(p.Name) == lowered {
			return p, true
		}
	}
	return Product{}, false
}

// KnowledgeBase answers product and FAQ lookups from the catalog. It is the
// read-only knowledge connector; the router is its only caller.
type KnowledgeBase struct {
	catalog *Catalog
	faq     map[string]string
}

var _ contractx.Knowledge = (*KnowledgeBase)(nil)

func NewKnowledgeBase(catalog *Catalog) *KnowledgeBase {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &KnowledgeBase{
		catalog: catalog,
		faq: map[string]string{
			"warranty": "All products carry a one-year limited warranty from the purchase date.",
			"shipping": "Orders placed before 15:00 ship the same business day.",
			"return":   "Unopened products can be returned within 30 days of delivery.",
		},
	}
}

// Lookup resolves a query against the product manual sections, falling back
// to the FAQ entries. A miss is reported as found=false, not as an error.
func (k *KnowledgeBase) Lookup(ctx context.Context, productRef, query string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	lowered := strings.ToLower(query)

	if ref := strings.TrimSpace(productRef); ref != "" {
		product, ok := k.catalog.Product(ref)
		if !ok {
			if detected, found := k.catalog.Detect(ref); found {
				product, ok = k.catalog.Product(detected)
			}
		}
		if ok {
			for topic, text := range product.Sections {
				if strings.Contains(lowered, topic) {
					return text, true, nil
				}
			}
		}
	}

	for topic, text := range k.faq {
		if strings.Contains(lowered, topic) {
			return text, true, nil
		}
	}

	return "", false, nil
}

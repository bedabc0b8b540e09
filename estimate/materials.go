package estimate

import "github.com/shopspring/decimal"

// Material is a catalog entry used to prefill line items when building an
// estimate. Rates are default suggestions; the user can override them per
// line.
type Material struct {
	Name     string
	Category string
	Unit     string
	Rate     decimal.Decimal
	Kind     Kind
}

// Suggestions returns the built-in material catalog for a work category.
func Suggestions(kind Kind) []Material {
	var out []Material
	for _, m := range catalog {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

var catalog = []Material{
	{Name: "Copper Wire 1.5mm", Category: "Wiring", Unit: "m", Rate: decimal.NewFromFloat(18.50), Kind: KindElectrical},
	{Name: "Copper Wire 2.5mm", Category: "Wiring", Unit: "m", Rate: decimal.NewFromFloat(28.00), Kind: KindElectrical},
	{Name: "Modular Switch", Category: "Fittings", Unit: "pc", Rate: decimal.NewFromFloat(45.00), Kind: KindElectrical},
	{Name: "MCB 16A", Category: "Protection", Unit: "pc", Rate: decimal.NewFromFloat(220.00), Kind: KindElectrical},
	{Name: "Ceiling Fan Point", Category: "Points", Unit: "pt", Rate: decimal.NewFromFloat(350.00), Kind: KindElectrical},
	{Name: "PVC Pipe 1in", Category: "Piping", Unit: "m", Rate: decimal.NewFromFloat(60.00), Kind: KindPlumbing},
	{Name: "CPVC Elbow", Category: "Fittings", Unit: "pc", Rate: decimal.NewFromFloat(25.00), Kind: KindPlumbing},
	{Name: "Ball Valve", Category: "Valves", Unit: "pc", Rate: decimal.NewFromFloat(180.00), Kind: KindPlumbing},
	{Name: "Basin Faucet", Category: "Fixtures", Unit: "pc", Rate: decimal.NewFromFloat(550.00), Kind: KindPlumbing},
}

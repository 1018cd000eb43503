package fuzzy

// Suitability is an output linguistic category
type Suitability string

const (
	VeryUnsuitable Suitability = "very-unsuitable"
	Unsuitable     Suitability = "low"
	Adequate       Suitability = "adequate"
	Suitable       Suitability = "suitable"
	VerySuitable   Suitability = "very-suitable"
)

// Suitabilities returns the output categories from worst to best
func Suitabilities() []Suitability {
	return []Suitability{VeryUnsuitable, Unsuitable, Adequate, Suitable, VerySuitable}
}

// Aggregate maps output categories to their activation strength. Categories
// without an active rule have no entry.
type Aggregate map[Suitability]float64

// Firing records one active rule and its strength
type Firing struct {
	Service ServiceLevel `json:"service"`
	Price   PriceLevel   `json:"price"`
	Output  Suitability  `json:"output"`
	Alpha   float64      `json:"alpha"`
}

// RuleTable maps every (service, price) pair to an output category.
// Rows follow ServiceLevels order, columns PriceLevels order.
type RuleTable [3][3]Suitability

var serviceIndex = map[ServiceLevel]int{ServiceLow: 0, ServiceMedium: 1, ServiceHigh: 2}

var priceIndex = map[PriceLevel]int{PriceCheap: 0, PriceMedium: 1, PriceExpensive: 2}

// StandardRules is the suitability rule base.
func StandardRules() RuleTable {
	return RuleTable{
		//        cheap         medium      expensive
		{Adequate, Unsuitable, VeryUnsuitable}, // low
		{Suitable, Adequate, Unsuitable},       // medium
		{VerySuitable, Suitable, Adequate},     // high
	}
}

// Consequent returns the output category for an antecedent pair
func (rt RuleTable) Consequent(s ServiceLevel, p PriceLevel) (Suitability, bool) {
	si, ok := serviceIndex[s]
	if !ok {
		return "", false
	}
	pi, ok := priceIndex[p]
	if !ok {
		return "", false
	}
	return rt[si][pi], true
}

// Infer applies min-max inference. Each pair with both degrees above zero
// fires with alpha = min(service, price), and each output category keeps the
// largest alpha among its rules. Firings are returned in rule table order.
func (rt RuleTable) Infer(service Degrees[ServiceLevel], price Degrees[PriceLevel]) (Aggregate, []Firing) {
	out := make(Aggregate)
	var fired []Firing

	for si, s := range ServiceLevels() {
		sd := service[s]
		if sd <= 0 {
			continue
		}
		for pi, p := range PriceLevels() {
			pd := price[p]
			if pd <= 0 {
				continue
			}
			alpha := min(sd, pd)
			cat := rt[si][pi]
			fired = append(fired, Firing{Service: s, Price: p, Output: cat, Alpha: alpha})
			if prev, ok := out[cat]; !ok || alpha > prev {
				out[cat] = alpha
			}
		}
	}

	return out, fired
}

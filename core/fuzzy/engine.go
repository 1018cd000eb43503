package fuzzy

// Evaluation is the full trace of scoring one (service, price) pair.
// Evaluations may be shared between callers and must be treated as read-only.
type Evaluation struct {
	Service Degrees[ServiceLevel] `json:"service"`
	Price   Degrees[PriceLevel]   `json:"price"`
	Firings []Firing              `json:"firings"`
	Output  Aggregate             `json:"output"`
	Score   float64               `json:"score"`
}

// Degenerate reports whether no rule fired, which happens when either input
// lies outside every membership shape. The score is then 0.
func (e Evaluation) Degenerate() bool {
	return len(e.Output) == 0
}

// Evaluator scores a single (service, price) pair
type Evaluator interface {
	Evaluate(service, price float64) Evaluation
}

// Engine runs fuzzification, inference and defuzzification with one profile.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	profile Profile
}

// NewEngine creates an engine for a profile
func NewEngine(profile Profile) *Engine {
	return &Engine{profile: profile}
}

// Profile returns the engine's profile
func (e *Engine) Profile() Profile {
	return e.profile
}

// Evaluate scores one pair
func (e *Engine) Evaluate(service, price float64) Evaluation {
	sd := e.profile.Service.Fuzzify(service)
	pd := e.profile.Price.Fuzzify(price)
	agg, fired := e.profile.Rules.Infer(sd, pd)

	return Evaluation{
		Service: sd,
		Price:   pd,
		Firings: fired,
		Output:  agg,
		Score:   e.profile.Anchors.Defuzzify(agg),
	}
}

var _ Evaluator = (*Engine)(nil)

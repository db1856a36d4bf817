package domain

// StrategyKind names a scoring strategy.
type StrategyKind string

const (
	StrategyThreshold      StrategyKind = "threshold_based"
	StrategyConditional    StrategyKind = "conditional"
	StrategyRecommendation StrategyKind = "recommendation_based"
	StrategyPercentage     StrategyKind = "percentage_based"
	StrategyMixed          StrategyKind = "mixed"
)

// Result keys with special meaning.
const (
	ResultMandatory       = "mandatory"
	ResultCriticalFailure = "critical_failure"
	ResultDefault         = "default"
	ResultCompleted       = "completed"
)

// Scoring is implemented only by the strategy variants in this package.
type Scoring interface {
	Kind() StrategyKind
	Templates() map[string]ResultTemplate
	scoring()
}

// ThresholdScoring sums option scores and maps the total onto ranges.
type ThresholdScoring struct {
	Thresholds RangeSet
	Results    map[string]ResultTemplate
}

// ConditionalScoring resolves a result key carried by the terminating option.
type ConditionalScoring struct {
	Results map[string]ResultTemplate
}

// RecommendationScoring picks replace over repair.
type RecommendationScoring struct {
	Results map[string]ResultTemplate
}

// PercentageScoring maps the share of correct answers onto ranges on [0,1].
type PercentageScoring struct {
	Thresholds RangeSet
	Results    map[string]ResultTemplate
}

// MixedScoring evaluates ordered rules; the first full match wins.
type MixedScoring struct {
	Rules   []Rule
	Results map[string]ResultTemplate
}

// InsuranceScoring is the mixed-strategy cost calculator.
type InsuranceScoring struct {
	Roles             InsuranceRoles
	DefaultEstimate   float64
	AssumedDeductible float64
	Results           map[string]ResultTemplate
}

// InsuranceRoles maps each calculator input to a question id.
type InsuranceRoles struct {
	State        string `json:"state,omitempty" yaml:"state"`
	CoverageType string `json:"coverageType,omitempty" yaml:"coverageType"`
	DamageCause  string `json:"damageCause,omitempty" yaml:"damageCause"`
	Deductible   string `json:"deductible,omitempty" yaml:"deductible"`
	ServiceType  string `json:"serviceType,omitempty" yaml:"serviceType"`
	FullGlass    string `json:"fullGlass,omitempty" yaml:"fullGlass"`
	PriorClaims  string `json:"priorClaims,omitempty" yaml:"priorClaims"`
}

// ids returns the role question ids in fixed position order.
func (r InsuranceRoles) ids() []string {
	return []string{r.State, r.CoverageType, r.DamageCause, r.Deductible, r.ServiceType, r.FullGlass, r.PriorClaims}
}

// Rule is a conjunction of answer conditions leading to a result key.
type Rule struct {
	If   map[string]Expected
	Then string
}

// Expected is one acceptable value or a set of acceptable values.
type Expected []string

// Accepts reports whether v is acceptable.
func (e Expected) Accepts(v string) bool {
	for _, s := range e {
		if s == v {
			return true
		}
	}
	return false
}

func (s ThresholdScoring) Kind() StrategyKind      { return StrategyThreshold }
func (s ConditionalScoring) Kind() StrategyKind    { return StrategyConditional }
func (s RecommendationScoring) Kind() StrategyKind { return StrategyRecommendation }
func (s PercentageScoring) Kind() StrategyKind     { return StrategyPercentage }
func (s MixedScoring) Kind() StrategyKind          { return StrategyMixed }
func (s InsuranceScoring) Kind() StrategyKind      { return StrategyMixed }

func (s ThresholdScoring) Templates() map[string]ResultTemplate      { return s.Results }
func (s ConditionalScoring) Templates() map[string]ResultTemplate    { return s.Results }
func (s RecommendationScoring) Templates() map[string]ResultTemplate { return s.Results }
func (s PercentageScoring) Templates() map[string]ResultTemplate     { return s.Results }
func (s MixedScoring) Templates() map[string]ResultTemplate          { return s.Results }
func (s InsuranceScoring) Templates() map[string]ResultTemplate      { return s.Results }

func (ThresholdScoring) scoring()      {}
func (ConditionalScoring) scoring()    {}
func (RecommendationScoring) scoring() {}
func (PercentageScoring) scoring()     {}
func (MixedScoring) scoring()          {}
func (InsuranceScoring) scoring()      {}

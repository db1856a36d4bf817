package domain

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Document is the authored, serializable form of a quiz definition. It is
// stored as-is (YAML files, Postgres JSONB, Redis cache) and turned into a
// Quiz by Compile.
type Document struct {
	ID          string        `json:"id" yaml:"id"`
	Slug        string        `json:"slug" yaml:"slug"`
	Title       string        `json:"title" yaml:"title"`
	Description string        `json:"description,omitempty" yaml:"description"`
	Icon        string        `json:"icon,omitempty" yaml:"icon"`
	Duration    int           `json:"duration,omitempty" yaml:"duration"`
	Priority    int           `json:"priority,omitempty" yaml:"priority"`
	Featured    bool          `json:"featured,omitempty" yaml:"featured"`
	Questions   []QuestionDoc `json:"questions" yaml:"questions"`
	Scoring     ScoringDoc    `json:"scoring" yaml:"scoring"`
	Metadata    Metadata      `json:"metadata,omitempty" yaml:"metadata"`
}

// QuestionDoc also accepts the site's original field names: text or question
// for the prompt and type for the kind.
type QuestionDoc struct {
	ID          string      `json:"id" yaml:"id"`
	Prompt      string      `json:"prompt,omitempty" yaml:"prompt"`
	Text        string      `json:"text,omitempty" yaml:"text"`
	Question    string      `json:"question,omitempty" yaml:"question"`
	Description string      `json:"description,omitempty" yaml:"description"`
	Kind        string      `json:"kind,omitempty" yaml:"kind"`
	Type        string      `json:"type,omitempty" yaml:"type"`
	Required    bool        `json:"required,omitempty" yaml:"required"`
	Placeholder string      `json:"placeholder,omitempty" yaml:"placeholder"`
	Options     []OptionDoc `json:"options,omitempty" yaml:"options"`
}

// OptionDoc is the flat authored option; only the attributes relevant to the
// quiz's strategy are read when compiling.
type OptionDoc struct {
	ID                 string        `json:"id" yaml:"id"`
	Label              string        `json:"label,omitempty" yaml:"label"`
	Text               string        `json:"text,omitempty" yaml:"text"`
	Value              string        `json:"value,omitempty" yaml:"value"`
	Score              *float64      `json:"score,omitempty" yaml:"score"`
	Flags              []string      `json:"flags,omitempty" yaml:"flags"`
	Recommendation     string        `json:"recommendation,omitempty" yaml:"recommendation"`
	Flag               string        `json:"flag,omitempty" yaml:"flag"`
	EndQuiz            bool          `json:"endQuiz,omitempty" yaml:"endQuiz"`
	Result             string        `json:"result,omitempty" yaml:"result"`
	EndsQuizWithResult string        `json:"endsQuizWithResult,omitempty" yaml:"endsQuizWithResult"`
	Insurance          *InsuranceDoc `json:"insurance,omitempty" yaml:"insurance"`
}

type InsuranceDoc struct {
	State               string   `json:"state,omitempty" yaml:"state"`
	ZeroDeductibleLaw   bool     `json:"zeroDeductibleLaw,omitempty" yaml:"zeroDeductibleLaw"`
	GlassRiderAvailable bool     `json:"glassRiderAvailable,omitempty" yaml:"glassRiderAvailable"`
	Covered             bool     `json:"covered,omitempty" yaml:"covered"`
	IncludesCollision   bool     `json:"includesCollision,omitempty" yaml:"includesCollision"`
	CoverageClass       string   `json:"coverageClass,omitempty" yaml:"coverageClass"`
	Deductible          *float64 `json:"deductible,omitempty" yaml:"deductible"`
	ServiceType         string   `json:"serviceType,omitempty" yaml:"serviceType"`
	EstimatedCost       *float64 `json:"estimatedCost,omitempty" yaml:"estimatedCost"`
	WaivesDeductible    bool     `json:"waivesDeductible,omitempty" yaml:"waivesDeductible"`
	FullGlass           bool     `json:"fullGlass,omitempty" yaml:"fullGlass"`
	PriorClaims         bool     `json:"priorClaims,omitempty" yaml:"priorClaims"`
}

type ScoringDoc struct {
	Type               string                    `json:"type" yaml:"type"`
	Calculator         string                    `json:"calculator,omitempty" yaml:"calculator"`
	SeverityThresholds RangeSet                  `json:"severityThresholds,omitempty" yaml:"severityThresholds"`
	Thresholds         RangeSet                  `json:"thresholds,omitempty" yaml:"thresholds"`
	Results            map[string]ResultTemplate `json:"results,omitempty" yaml:"results"`
	ResultMessages     map[string]ResultTemplate `json:"resultMessages,omitempty" yaml:"resultMessages"`
	Rules              []RuleDoc                 `json:"rules,omitempty" yaml:"rules"`
	Logic              *LogicDoc                 `json:"logic,omitempty" yaml:"logic"`
	Insurance          *InsuranceConfigDoc       `json:"insurance,omitempty" yaml:"insurance"`
}

type LogicDoc struct {
	Rules []RuleDoc `json:"rules" yaml:"rules"`
}

type RuleDoc struct {
	If   map[string]Expected `json:"if" yaml:"if"`
	Then string              `json:"then" yaml:"then"`
}

type InsuranceConfigDoc struct {
	Questions         InsuranceRoles `json:"questions,omitempty" yaml:"questions"`
	DefaultEstimate   *float64       `json:"defaultEstimate,omitempty" yaml:"defaultEstimate"`
	AssumedDeductible *float64       `json:"assumedDeductible,omitempty" yaml:"assumedDeductible"`
}

// ParseJSON decodes and compiles a JSON quiz document.
func ParseJSON(data []byte) (Quiz, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Quiz{}, &DefinitionError{Reason: "malformed document: " + err.Error()}
	}
	return Compile(doc)
}

// ParseYAML decodes and compiles a YAML quiz document.
func ParseYAML(data []byte) (Quiz, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Quiz{}, &DefinitionError{Reason: "malformed document: " + err.Error()}
	}
	return Compile(doc)
}

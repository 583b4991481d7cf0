package model

// InputKind is the declared type of a template input.
type InputKind string

const (
	InputString  InputKind = "string"
	InputBoolean InputKind = "boolean"
	InputNumber  InputKind = "number"
	InputEnum    InputKind = "enum"
)

// String implements fmt.Stringer.
func (k InputKind) String() string {
	return string(k)
}

// TemplateFile is the on-disk catalog document (k8s-style declarative format)
type TemplateFile struct {
	APIVersion string     `yaml:"apiVersion" json:"apiVersion"`
	Kind       string     `yaml:"kind" json:"kind"`
	Metadata   Metadata   `yaml:"metadata" json:"metadata"`
	Templates  []Template `yaml:"templates" json:"templates"`
}

// Metadata holds standard object metadata
type Metadata struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

// Template is a named, reusable pipeline definition with declared inputs,
// required secret references and conditional jobs. Immutable after catalog load.
type Template struct {
	Name        string      `yaml:"name" json:"name"`
	Description string      `yaml:"description" json:"description"`
	Inputs      []InputSpec `yaml:"inputs" json:"inputs"`
	Secrets     []string    `yaml:"secrets,omitempty" json:"secrets,omitempty"`
	Jobs        []JobSpec   `yaml:"jobs" json:"jobs"`
}

// Input returns the InputSpec with the given name, or nil.
func (t *Template) Input(name string) *InputSpec {
	for i := range t.Inputs {
		if t.Inputs[i].Name == name {
			return &t.Inputs[i]
		}
	}
	return nil
}

// Job returns the JobSpec with the given id, or nil.
func (t *Template) Job(id string) *JobSpec {
	for i := range t.Jobs {
		if t.Jobs[i].ID == id {
			return &t.Jobs[i]
		}
	}
	return nil
}

// InputSpec declares one typed template input.
// If Required is true no Default is permitted; an enum Default must be one of
// Allowed. Both are enforced at catalog load.
type InputSpec struct {
	Name        string      `yaml:"name" json:"name"`
	Description string      `yaml:"description,omitempty" json:"description,omitempty"`
	Kind        InputKind   `yaml:"kind" json:"kind"`
	Required    bool        `yaml:"required,omitempty" json:"required,omitempty"`
	Default     interface{} `yaml:"default,omitempty" json:"default,omitempty"`
	Allowed     []string    `yaml:"allowed,omitempty" json:"allowed,omitempty"`
}

// JobSpec defines a single job within a template. DependsOn may only
// reference job ids declared earlier in the template, which keeps the
// declared relation trivially acyclic.
type JobSpec struct {
	ID          string     `yaml:"id" json:"id"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	DependsOn   []string   `yaml:"dependsOn,omitempty" json:"dependsOn,omitempty"`
	Condition   string     `yaml:"condition,omitempty" json:"condition,omitempty"`
	Command     string     `yaml:"command" json:"command"`
	Timeout     string     `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Gates       []GateSpec `yaml:"gates,omitempty" json:"gates,omitempty"`
}

// Comparator is a gate comparison operator.
type Comparator string

const (
	CompareGTE Comparator = ">="
	CompareLTE Comparator = "<="
	CompareEQ  Comparator = "=="
)

// GateSpec is a pass/fail policy check applied to a metric reported by a job.
// Threshold is either a numeric literal or an "inputs.<name>" reference
// resolved against the invocation's ResolvedConfig.
type GateSpec struct {
	Metric     string     `yaml:"metric" json:"metric"`
	Comparator Comparator `yaml:"comparator" json:"comparator"`
	Threshold  string     `yaml:"threshold" json:"threshold"`
}

// ResolvedConfig maps input names to concrete typed values (string, bool or
// float64). Produced once per invocation and never mutated afterwards.
type ResolvedConfig map[string]interface{}

// Clone returns an independent copy. Values are scalars, so a shallow copy
// of the map is a full copy.
func (rc ResolvedConfig) Clone() ResolvedConfig {
	out := make(ResolvedConfig, len(rc))
	for k, v := range rc {
		out[k] = v
	}
	return out
}

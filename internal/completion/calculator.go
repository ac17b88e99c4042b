package completion

// Result is the completion state of one document for one client.
type Result struct {
	DocumentType  DocumentType       `json:"documentType"`
	Label         string             `json:"label"`
	FilledFields  int                `json:"filledFields"`
	TotalFields   int                `json:"totalFields"`
	MissingFields []FieldRequirement `json:"missingFields"`
	Percentage    int                `json:"percentage"`
	IsReady       bool               `json:"isReady"`
}

// SectionMissing groups missing requirements under a form section.
type SectionMissing struct {
	Section string             `json:"section"`
	Fields  []FieldRequirement `json:"fields"`
}

// DocumentRef names a document in summaries.
type DocumentRef struct {
	Type  DocumentType `json:"type"`
	Label string       `json:"label"`
}

type Summary struct {
	Overall        int           `json:"overall"`
	DocumentsReady int           `json:"documentsReady"`
	DocumentsTotal int           `json:"documentsTotal"`
	Ready          []DocumentRef `json:"ready"`
	Missing        []DocumentRef `json:"missing"`
	MandatoryReady bool          `json:"mandatoryReady"`
}

// Calculator evaluates flat client data against a Registry.
type Calculator struct {
	registry *Registry
}

// NewCalculator returns a calculator over reg, or the default registry when reg is nil.
func NewCalculator(reg *Registry) *Calculator {
	if reg == nil {
		reg = DefaultRegistry()
	}
	return &Calculator{registry: reg}
}

func (c *Calculator) Registry() *Registry {
	return c.registry
}

// IsFilled reports whether a flat value counts as provided. Only absent,
// nil and the empty string are missing.
func IsFilled(data map[string]interface{}, key string) bool {
	v, ok := data[key]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok && s == "" {
		return false
	}
	return true
}

// Percentage rounds filled/total*100 half up. The result never reaches
// 100 while a field is missing, and a document without requirements is 100.
func Percentage(filled, total int) int {
	if total <= 0 {
		return 100
	}
	pct := (filled*200 + total) / (2 * total)
	if filled < total && pct > 99 {
		pct = 99
	}
	return pct
}

// Calculate evaluates one document type.
func (c *Calculator) Calculate(data map[string]interface{}, t DocumentType) (Result, error) {
	def, err := c.registry.Definition(t)
	if err != nil {
		return Result{}, err
	}
	return evaluate(data, def), nil
}

func evaluate(data map[string]interface{}, def DocumentDefinition) Result {
	res := Result{
		DocumentType:  def.Type,
		Label:         def.Label,
		TotalFields:   len(def.Fields),
		MissingFields: []FieldRequirement{},
	}

	for _, f := range def.Fields {
		if IsFilled(data, f.Key) {
			res.FilledFields++
			continue
		}
		res.MissingFields = append(res.MissingFields, f)
	}

	res.Percentage = Percentage(res.FilledFields, res.TotalFields)
	res.IsReady = res.Percentage == 100
	return res
}

// CalculateAll evaluates every registered document in registry order.
func (c *Calculator) CalculateAll(data map[string]interface{}) []Result {
	out := make([]Result, 0, len(c.registry.defs))
	for _, def := range c.registry.defs {
		out = append(out, evaluate(data, def))
	}
	return out
}

// CalculateTypes evaluates the given types, or all of them when none are given.
func (c *Calculator) CalculateTypes(data map[string]interface{}, types ...DocumentType) ([]Result, error) {
	if len(types) == 0 {
		return c.CalculateAll(data), nil
	}
	out := make([]Result, 0, len(types))
	for _, t := range types {
		res, err := c.Calculate(data, t)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func (c *Calculator) ReadyDocuments(data map[string]interface{}) []DocumentType {
	var ready []DocumentType
	for _, res := range c.CalculateAll(data) {
		if res.IsReady {
			ready = append(ready, res.DocumentType)
		}
	}
	return ready
}

// MissingBySection groups missing fields by section across the given types
// (all types when none are given). A key is listed once, under the section
// where it first appears.
func (c *Calculator) MissingBySection(data map[string]interface{}, types ...DocumentType) ([]SectionMissing, error) {
	results, err := c.CalculateTypes(data, types...)
	if err != nil {
		return nil, err
	}
	return GroupMissing(results), nil
}

// GroupMissing groups the missing fields of already computed results.
func GroupMissing(results []Result) []SectionMissing {
	var groups []SectionMissing
	sectionIdx := make(map[string]int)
	seen := make(map[string]struct{})

	for _, res := range results {
		for _, f := range res.MissingFields {
			if _, dup := seen[f.Key]; dup {
				continue
			}
			seen[f.Key] = struct{}{}

			i, ok := sectionIdx[f.Section]
			if !ok {
				i = len(groups)
				sectionIdx[f.Section] = i
				groups = append(groups, SectionMissing{Section: f.Section})
			}
			groups[i].Fields = append(groups[i].Fields, f)
		}
	}
	return groups
}

// Overall is the rounded mean percentage, 0 for no results.
func Overall(results []Result) int {
	if len(results) == 0 {
		return 0
	}
	sum := 0
	for _, r := range results {
		sum += r.Percentage
	}
	n := len(results)
	return (sum*2 + n) / (2 * n)
}

// Summarize evaluates every document and condenses the outcome.
func (c *Calculator) Summarize(data map[string]interface{}) Summary {
	return c.SummarizeResults(c.CalculateAll(data))
}

// SummarizeResults condenses results computed elsewhere.
func (c *Calculator) SummarizeResults(results []Result) Summary {
	s := Summary{
		Overall:        Overall(results),
		DocumentsTotal: len(results),
		Ready:          []DocumentRef{},
		Missing:        []DocumentRef{},
		MandatoryReady: true,
	}

	readyByType := make(map[DocumentType]bool, len(results))
	for _, r := range results {
		ref := DocumentRef{Type: r.DocumentType, Label: r.Label}
		readyByType[r.DocumentType] = r.IsReady
		if r.IsReady {
			s.Ready = append(s.Ready, ref)
			s.DocumentsReady++
		} else {
			s.Missing = append(s.Missing, ref)
		}
	}

	for _, t := range c.registry.MandatoryTypes() {
		if ready, evaluated := readyByType[t]; evaluated && !ready {
			s.MandatoryReady = false
		}
	}

	return s
}

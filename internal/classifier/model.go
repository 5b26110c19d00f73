package classifier

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"math"
	"os"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pbaille/mindspace/internal/domain"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed model/mood.json
var defaultModel []byte

//go:embed model/schema.json
var modelSchema []byte

const schemaURL = "mem://model.schema.json"

// smoothing is the additive (Laplace) smoothing constant
const smoothing = 1.0

// artifact is the on-disk model format
type artifact struct {
	Name    string                        `json:"name"`
	Version int                           `json:"version"`
	Labels  []string                      `json:"labels"`
	Priors  map[string]float64            `json:"priors,omitempty"`
	Tokens  map[string]map[string]float64 `json:"tokens"`
}

// Model is a loaded multinomial naive-Bayes text model
type Model struct {
	name      string
	labels    []string
	logPriors []float64
	// logLikelihood[i][token] for labels[i]
	logLikelihood []map[string]float64
	vocabulary    map[string]struct{}
}

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(modelSchema))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse model schema")
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, goerr.Wrap(err, "failed to add model schema")
	}
	sch, err := c.Compile(schemaURL)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to compile model schema")
	}
	return sch, nil
})

// LoadModel reads a model artifact from path; an empty path loads the bundled model.
// Every failure wraps ErrModelLoad.
func LoadModel(path string) (*Model, error) {
	data := defaultModel
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, goerr.Wrap(modelLoadError(err), "failed to read model artifact", goerr.V("path", path))
		}
		data = b
	}

	m, err := ParseModel(data)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load model artifact", goerr.V("path", path))
	}
	return m, nil
}

// ParseModel validates and compiles a model artifact
func ParseModel(data []byte) (*Model, error) {
	sch, err := compileSchema()
	if err != nil {
		return nil, modelLoadError(err)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, goerr.Wrap(modelLoadError(err), "model artifact is not valid JSON")
	}
	if err := sch.Validate(inst); err != nil {
		return nil, goerr.Wrap(modelLoadError(err), "model artifact does not match schema")
	}

	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, goerr.Wrap(modelLoadError(err), "failed to decode model artifact")
	}

	return compile(a)
}

func compile(a artifact) (*Model, error) {
	index := make(map[string]int, len(a.Labels))
	for i, l := range a.Labels {
		index[l] = i
	}
	for l := range a.Tokens {
		if _, ok := index[l]; !ok {
			return nil, goerr.Wrap(ErrModelLoad, "token table for undeclared label", goerr.V("label", l))
		}
	}
	for l := range a.Priors {
		if _, ok := index[l]; !ok {
			return nil, goerr.Wrap(ErrModelLoad, "prior for undeclared label", goerr.V("label", l))
		}
	}

	m := &Model{
		name:          a.Name,
		labels:        append([]string(nil), a.Labels...),
		logPriors:     make([]float64, len(a.Labels)),
		logLikelihood: make([]map[string]float64, len(a.Labels)),
		vocabulary:    make(map[string]struct{}),
	}

	// tokens that normalize to the same key share one count
	merged := make(map[string]map[string]float64, len(a.Tokens))
	for l, counts := range a.Tokens {
		mc := make(map[string]float64, len(counts))
		for tok, c := range counts {
			key := normalizeToken(tok)
			if key == "" {
				continue
			}
			mc[key] += c
			m.vocabulary[key] = struct{}{}
		}
		merged[l] = mc
	}
	v := float64(len(m.vocabulary))

	var priorSum float64
	for _, l := range a.Labels {
		priorSum += priorFor(a, l)
	}

	for i, l := range a.Labels {
		m.logPriors[i] = math.Log(priorFor(a, l) / priorSum)

		counts := merged[l]
		var total float64
		for _, c := range counts {
			total += c
		}
		denom := total + smoothing*v

		ll := make(map[string]float64, len(m.vocabulary))
		for tok := range m.vocabulary {
			ll[tok] = math.Log(smoothing / denom)
		}
		for tok, c := range counts {
			ll[tok] = math.Log((c + smoothing) / denom)
		}
		m.logLikelihood[i] = ll
	}

	return m, nil
}

func priorFor(a artifact, label string) float64 {
	if len(a.Priors) == 0 {
		return 1
	}
	if p, ok := a.Priors[label]; ok {
		return p
	}
	// labels without an explicit prior get the smallest declared one
	low := math.Inf(1)
	for _, p := range a.Priors {
		low = math.Min(low, p)
	}
	return low
}

// Name returns the artifact's declared name
func (m *Model) Name() string {
	return m.name
}

// Labels returns the model's label set in declaration order
func (m *Model) Labels() []string {
	return append([]string(nil), m.labels...)
}

// Rank scores text against every label and returns the full distribution,
// most probable first. Probabilities sum to 1. Ties keep declaration order.
func (m *Model) Rank(text string) []domain.Hypothesis {
	scores := append([]float64(nil), m.logPriors...)
	for _, tok := range Tokenize(text) {
		if _, ok := m.vocabulary[tok]; !ok {
			continue
		}
		for i := range scores {
			scores[i] += m.logLikelihood[i][tok]
		}
	}

	best := math.Inf(-1)
	for _, s := range scores {
		best = math.Max(best, s)
	}
	var sum float64
	probs := make([]float64, len(scores))
	for i, s := range scores {
		probs[i] = math.Exp(s - best)
		sum += probs[i]
	}

	out := make([]domain.Hypothesis, len(m.labels))
	for i, l := range m.labels {
		out[i] = domain.Hypothesis{Label: l, Probability: probs[i] / sum}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Probability > out[j].Probability
	})
	return out
}

// Tokenize lowercases text and splits it into word tokens, keeping inner apostrophes
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\'' && r != '’'
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if tok := normalizeToken(f); tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func normalizeToken(s string) string {
	s = strings.ReplaceAll(s, "’", "'")
	return strings.Trim(strings.ToLower(s), "'")
}

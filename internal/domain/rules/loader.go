package rules

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/platewatch/internal/domain/model"
)

//go:embed default_rules.yaml
var defaultRules []byte

// document mirrors one entry of the rules YAML.
type document struct {
	ID               int      `koanf:"id"`
	Name             string   `koanf:"name"`
	Trend            string   `koanf:"trend"`
	TrendDescription string   `koanf:"trend_description"`
	Metrics          []string `koanf:"metrics"`
	Threshold        *float64 `koanf:"threshold"`
	Recommendations  struct {
		WeightRoom     []string `koanf:"weight_room"`
		Field          []string `koanf:"field"`
		Interpretation string   `koanf:"interpretation"`
		ExecutionNote  string   `koanf:"execution_note"`
	} `koanf:"recommendations"`
}

// bytesProvider feeds an in-memory YAML document to koanf.
type bytesProvider []byte

func (b bytesProvider) ReadBytes() ([]byte, error) { return b, nil }

func (b bytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("bytes provider does not support Read")
}

// Load reads a rule table from a YAML file.
func Load(ctx context.Context, path string) (*Table, error) {
	return load(ctx, file.Provider(path), path)
}

// Parse reads a rule table from YAML bytes.
func Parse(ctx context.Context, b []byte) (*Table, error) {
	return load(ctx, bytesProvider(b), "inline")
}

// Default returns the embedded rule table for the standard CMJ and IMTP categories.
func Default(ctx context.Context) (*Table, error) {
	return load(ctx, bytesProvider(defaultRules), "embedded")
}

func load(_ context.Context, p koanf.Provider, source string) (*Table, error) {
	k := koanf.New(".")
	if err := k.Load(p, yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadRules, source, err)
	}
	if !k.Exists("rules") {
		return nil, fmt.Errorf("%w: %s: no rules key", ErrInvalidRule, source)
	}
	var docs []document
	if err := k.UnmarshalWithConf("rules", &docs, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadRules, source, err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: %s: empty rule table", ErrInvalidRule, source)
	}

	rs := make([]Rule, 0, len(docs))
	for i := range docs {
		r, err := docs[i].rule()
		if err != nil {
			return nil, err
		}
		rs = append(rs, r)
	}
	return NewTable(rs...)
}

// rule converts a document into the matching Rule variant.
func (d *document) rule() (Rule, error) {
	meta := Meta{
		ID:               d.ID,
		Name:             strings.TrimSpace(d.Name),
		TrendDescription: d.TrendDescription,
		Recommendations: Recommendations{
			WeightRoom:     d.Recommendations.WeightRoom,
			Field:          d.Recommendations.Field,
			Interpretation: d.Recommendations.Interpretation,
			ExecutionNote:  d.Recommendations.ExecutionNote,
		},
	}
	trend, err := model.ParseTrend(d.Trend)
	if err != nil {
		return nil, invalid(d.ID, "%v", err)
	}
	if len(d.Metrics) == 0 {
		return nil, invalid(d.ID, "empty metric list")
	}

	if trend == model.TrendAbsolute {
		if d.Threshold == nil {
			return nil, invalid(d.ID, "absolute rule without threshold")
		}
		if len(d.Metrics) != 1 {
			return nil, invalid(d.ID, "absolute rule takes exactly one metric, got %d", len(d.Metrics))
		}
		return AbsoluteRule{Info: meta, Metric: d.Metrics[0], Threshold: *d.Threshold}, nil
	}
	return ComparativeRule{Info: meta, Direction: trend, Names: d.Metrics}, nil
}

package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/skyplan-dev/skyplan/pkg/models"
)

// stubProvider is a minimal provider for registry tests.
type stubProvider struct {
	id      string
	inputs  []string
	outputs []string
}

func (s *stubProvider) ID() string                { return s.id }
func (s *stubProvider) RequiredInputs() []string  { return s.inputs }
func (s *stubProvider) ProducedOutputs() []string { return s.outputs }
func (s *stubProvider) CanProcess(c models.Context) bool {
	return c.Has(s.inputs...)
}
func (s *stubProvider) Invoke(ctx context.Context, c models.Context) (map[string]any, error) {
	out := map[string]any{}
	for _, k := range s.outputs {
		out[k] = true
	}
	return out, nil
}

func entry(id string, deps []string, inputs, outputs []string, outcomes ...models.Outcome) Entry {
	return Entry{
		Descriptor: Descriptor{
			ID:        id,
			Inputs:    inputs,
			Outputs:   outputs,
			DependsOn: deps,
			Outcomes:  outcomes,
		},
		Provider: &stubProvider{id: id, inputs: inputs, outputs: outputs},
	}
}

func TestNewAndDescribe(t *testing.T) {
	r, err := New(
		entry("launch", nil, nil, []string{"launch_data", "site"}, "launch_data"),
		entry("weather", []string{"launch"}, []string{"site"}, []string{"weather_conditions"}, "weather_conditions"),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ids := r.IDs()
	if len(ids) != 2 || ids[0] != "launch" || ids[1] != "weather" {
		t.Errorf("IDs = %v, want [launch weather]", ids)
	}

	d, err := r.Describe("weather")
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if d.Priority != 1 {
		t.Errorf("weather priority = %d, want registration order 1", d.Priority)
	}
	if len(d.DependsOn) != 1 || d.DependsOn[0] != "launch" {
		t.Errorf("weather deps = %v", d.DependsOn)
	}
}

func TestUnknownCapability(t *testing.T) {
	r, err := New(entry("launch", nil, nil, []string{"launch_data"}, "launch_data"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := r.Describe("nope"); !errors.Is(err, ErrUnknownCapability) {
		t.Errorf("Describe(nope) = %v, want ErrUnknownCapability", err)
	}
	if _, err := r.Resolve("nope"); !errors.Is(err, ErrUnknownCapability) {
		t.Errorf("Resolve(nope) = %v, want ErrUnknownCapability", err)
	}
}

func TestCyclicDependencyRejected(t *testing.T) {
	_, err := New(
		entry("a", []string{"b"}, nil, []string{"out_a"}, "out_a"),
		entry("b", []string{"a"}, nil, []string{"out_b"}, "out_b"),
	)
	if !errors.Is(err, ErrCyclicDependency) {
		t.Errorf("expected ErrCyclicDependency, got %v", err)
	}
}

func TestOverlappingOutputsRejected(t *testing.T) {
	_, err := New(
		entry("a", nil, nil, []string{"shared"}, "shared"),
		entry("b", nil, nil, []string{"shared"}),
	)
	if err == nil {
		t.Fatal("expected error for overlapping output keys")
	}
}

func TestOutcomeMustMatchOutputKey(t *testing.T) {
	_, err := New(entry("a", nil, nil, []string{"out_a"}, "something_else"))
	if err == nil {
		t.Fatal("expected error for outcome without matching output key")
	}
}

func TestUnregisteredDependencyRejected(t *testing.T) {
	_, err := New(entry("weather", []string{"launch"}, nil, []string{"weather_conditions"}, "weather_conditions"))
	if err == nil {
		t.Fatal("expected error for dependency on unregistered capability")
	}
}

func TestOutcomeProviderFirstRegisteredWins(t *testing.T) {
	r, err := New(
		entry("a", nil, nil, []string{"data"}, "data"),
		entry("b", nil, nil, []string{"other"}, "other"),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	id, ok := r.OutcomeProvider("data")
	if !ok || id != "a" {
		t.Errorf("OutcomeProvider(data) = %q, %v", id, ok)
	}
	if _, ok := r.OutcomeProvider("missing"); ok {
		t.Error("expected no provider for unknown outcome")
	}
}

func TestBuiltinRegistry(t *testing.T) {
	r, err := Builtin(BuiltinConfig{WeatherAPIKey: "w", NewsAPIKey: "n"})
	if err != nil {
		t.Fatalf("Builtin failed: %v", err)
	}

	ids := r.IDs()
	want := []string{"launch", "weather", "news", "market"}
	if len(ids) != len(want) {
		t.Fatalf("IDs = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("IDs[%d] = %s, want %s", i, ids[i], want[i])
		}
	}

	if id, ok := r.OutcomeProvider(OutcomeWeather); !ok || id != "weather" {
		t.Errorf("OutcomeProvider(weather) = %q, %v", id, ok)
	}
}

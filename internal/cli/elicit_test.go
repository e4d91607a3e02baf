package cli

import (
	"bytes"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/cocosci/fishchain/internal/condition"
	"github.com/cocosci/fishchain/internal/elicit"
	"github.com/cocosci/fishchain/internal/estimate"
)

func newTestSession(t *testing.T, cfg elicit.Config) (*session, *bytes.Buffer) {
	t.Helper()
	cond, err := condition.DefaultTable().Lookup("0")
	if err != nil {
		t.Fatal(err)
	}
	collector, err := elicit.New(cond, cfg)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	return &session{
		collector: collector,
		estimator: estimate.NewEstimator(estimate.Tails95),
		out:       &out,
	}, &out
}

func TestSession_SubmitAfterFixingInput(t *testing.T) {
	s, out := newTestSession(t, elicit.MessageConfig(0))

	script := strings.Join([]string{
		"set purple 5",
		"set dark grey 2",
		"set yellow 1",
		"set cyan 2",
		"bogus",
		"set cyan lots",
		"submit",
		"conf 4",
		"submit",
		"show",
	}, "\n")

	resp, err := s.run(strings.NewReader(script))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if resp == nil {
		t.Fatalf("expected a response, output:\n%s", out.String())
	}

	if resp.Values["dark grey"] != 2 || resp.Values["purple"] != 5 {
		t.Errorf("unexpected values: %v", resp.Values)
	}
	if resp.Confidence == nil || *resp.Confidence != 4 {
		t.Errorf("expected confidence 4, got %v", resp.Confidence)
	}

	text := out.String()
	for _, want := range []string{"unknown command \"bogus\"", "input is not a number", "Please fill in all of the values"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output:\n%s", want, text)
		}
	}
}

func TestSession_BelowFloorWarningThenSend(t *testing.T) {
	s, out := newTestSession(t, elicit.MessageConfig(2))

	script := strings.Join([]string{
		"set purple 5",
		"reveal dark grey",
		"reveal yellow",
		"reveal cyan",
		"reveal information",
		"submit",
		"submit",
	}, "\n")

	resp, err := s.run(strings.NewReader(script))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if resp == nil {
		t.Fatalf("expected a response after confirming, output:\n%s", out.String())
	}
	if len(resp.Values) != 1 || resp.Values["purple"] != 5 {
		t.Errorf("expected only purple, got %v", resp.Values)
	}
	if resp.Confidence != nil {
		t.Errorf("expected hidden confidence, got %v", *resp.Confidence)
	}
	if !strings.Contains(out.String(), "fewer values than you are allowed") {
		t.Errorf("expected below-floor warning, output:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "revealed 1 of 2") {
		t.Errorf("expected reveal counter, output:\n%s", out.String())
	}
}

func TestSession_QuitDiscards(t *testing.T) {
	s, _ := newTestSession(t, elicit.FractionConfig(4))

	resp, err := s.run(strings.NewReader("set purple 0.7\nquit\nsubmit\n"))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if resp != nil {
		t.Errorf("expected no response after quit, got %+v", resp)
	}
	if s.collector.Phase() != elicit.PhaseDiscarded {
		t.Errorf("expected discarded phase, got %v", s.collector.Phase())
	}
}

func TestSession_EndOfInputDiscards(t *testing.T) {
	s, _ := newTestSession(t, elicit.FractionConfig(4))

	resp, err := s.run(strings.NewReader("set purple 0.7\n"))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if resp != nil {
		t.Error("expected no response at end of input")
	}
	if s.collector.Phase() != elicit.PhaseDiscarded {
		t.Errorf("expected discarded phase, got %v", s.collector.Phase())
	}
}

func TestObserveLake(t *testing.T) {
	cond, _ := condition.DefaultTable().Lookup("0")

	catches := observeLake(rand.New(rand.NewPCG(1, 2)), cond, 4)
	if len(catches) != len(cond.Observations)+4 {
		t.Fatalf("expected %d catches, got %d", len(cond.Observations)+4, len(catches))
	}
	for _, c := range catches {
		if cond.IndexOf(c) < 0 {
			t.Errorf("catch %q is not a category of lake %s", c, cond.ID)
		}
	}

	again := observeLake(rand.New(rand.NewPCG(1, 2)), cond, 4)
	if strings.Join(again, ",") != strings.Join(catches, ",") {
		t.Error("expected the same seed to give the same catches")
	}

	var out bytes.Buffer
	printCatches(&out, nil)
	if out.Len() != 0 {
		t.Errorf("expected no output for no catches, got %q", out.String())
	}
}

package prompt

import (
	"strings"
	"testing"
)

func TestBuildGeneration(t *testing.T) {
	p := BuildGeneration("Backend Engineer", "Builds Go services", "Go, Postgres", 4)

	for _, want := range []string{
		"Backend Engineer",
		"Builds Go services",
		"Go, Postgres",
		"Experience: 4",
		"Generate 5 interview Q&A JSON array",
		`"question"`,
		`"answer"`,
	} {
		if !strings.Contains(p, want) {
			t.Errorf("generation prompt missing %q\nprompt:\n%s", want, p)
		}
	}
}

func TestBuildGenerationEmptyInputs(t *testing.T) {
	// Empty inputs are not rejected; the prompt still forms.
	p := BuildGeneration("", "", "", 0)
	if !strings.Contains(p, "Role: \n") {
		t.Errorf("expected empty role line, got:\n%s", p)
	}
	if !strings.Contains(p, "Experience: 0") {
		t.Errorf("expected zero experience line, got:\n%s", p)
	}
}

func TestBuildScoring(t *testing.T) {
	p := BuildScoring("What is a goroutine?", "A lightweight thread.", "Some kind of thread")

	for _, want := range []string{
		`Question: "What is a goroutine?"`,
		`User Answer: "Some kind of thread"`,
		`Correct Answer: "A lightweight thread."`,
		"Rate answer 1-10",
		`{ "ratings": number, "feedback": string }`,
	} {
		if !strings.Contains(p, want) {
			t.Errorf("scoring prompt missing %q\nprompt:\n%s", want, p)
		}
	}
}

package score

import (
	"fmt"
	"strings"
)

const systemPrompt = "You are a rigorous teaching assistant for a C++ programming course. " +
	"Score C++ assignments per criterion against the rubric, give suggestions for improvement, " +
	"and answer with strict JSON only."

const promptTemplate = `Score the following C++ code and suggest improvements.

Rubric:
- Compilability (20 points): whether the code compiles on the first try, kinds and number of errors
- Correctness (50 points): whether the code solves the problem, soundness of the logic
- Code quality (20 points): naming, structure, complexity, redundancy; no exception handling required
- Documentation and readability (10 points): comment quality, clarity of the code

Problem:
%s

Student code:
` + "```cpp" + `
%s
` + "```" + `

Compile log: %s
Test results: %s

Answer strictly in this JSON format:
{
  "scores": {
    "compilability": <0-20>,
    "correctness": <0-50>,
    "code_quality": <0-20>,
    "readability": <0-10>
  },
  "total": <0-100>,
  "rationale": "<detailed reasoning>",
  "suggestions": ["<suggestion 1>", "<suggestion 2>"],
  "confidence": <0.0-1.0>
}

Make sure the total equals the sum of the criteria and that the suggestions are concrete and actionable.`

func buildPrompt(sub Submission) string {
	log := strings.TrimSpace(sub.CompileLog)
	if log == "" {
		log = "no compile errors"
	}
	return fmt.Sprintf(promptTemplate, sub.Problem, sub.Source, log, testSummary(sub.Tests))
}

func testSummary(tests map[string]bool) string {
	if len(tests) == 0 {
		return "no test cases"
	}
	passed := 0
	for _, ok := range tests {
		if ok {
			passed++
		}
	}
	return fmt.Sprintf("passed %d/%d test cases", passed, len(tests))
}

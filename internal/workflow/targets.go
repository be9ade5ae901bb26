package workflow

import (
	"fmt"
	"strings"

	"github.com/slrkit/slrkit/internal/segment"
	"github.com/slrkit/slrkit/internal/storage"
)

// PromptInput is what a target needs to build its prompt.
type PromptInput struct {
	Topic  string
	Count  int
	Format string
	Review storage.Review
}

// Target is one kind of item a run can generate.
type Target struct {
	Name         string
	Phase        storage.Phase
	Strategy     segment.Strategy
	DefaultCount int
	Prompt       func(in PromptInput) string
	// Materialize stores texts under the review and returns how many
	// records were created.
	Materialize func(store Store, reviewID int64, texts []string) (int, error)
}

// ResearchQuestions generates research questions during problem
// formulation.
var ResearchQuestions = Target{
	Name:         "research questions",
	Phase:        storage.PhaseProblemFormulation,
	Strategy:     segment.DelimiterTagged{},
	DefaultCount: 10,
	Prompt:       researchQuestionPrompt,
	Materialize: func(store Store, reviewID int64, texts []string) (int, error) {
		created, err := store.CreateResearchQuestions(reviewID, texts)
		return len(created), err
	},
}

// SearchQueries generates query strings for digital libraries.
var SearchQueries = Target{
	Name:         "search queries",
	Phase:        storage.PhaseQueryStringDefinition,
	Strategy:     segment.NumberedLines{},
	DefaultCount: 3,
	Prompt:       searchQueryPrompt,
	Materialize: func(store Store, reviewID int64, texts []string) (int, error) {
		created, err := store.CreateSearchQueries(reviewID, texts)
		return len(created), err
	},
}

const exampleQuestions = `--1-- How do researchers design and conduct AI-related studies in research software engineering, and which research methods are most common?
--2-- What ethical issues do researchers face when developing AI software, and how are bias, explainability, and fairness addressed?
--3-- How does funding and institutional support influence the sustainability of AI research software?
--4-- How are the FAIR principles implemented in AI-related research software, and what challenges hinder compliance?`

// formatInstructions tells the model how to number its output so the
// chosen strategy can split it.
func formatInstructions(format, noun string, count int) string {
	var b strings.Builder
	b.WriteString("Use the following format exactly:\n")
	if format == "tagged" {
		fmt.Fprintf(&b, "--1-- <%s #1>\n--2-- <%s #2>\n...\n(Up to --%d--)\n", noun, noun, count)
	} else {
		fmt.Fprintf(&b, "1. <%s #1>\n2. <%s #2>\n...\n(Up to %d.)\n", noun, noun, count)
	}
	return b.String()
}

func exampleFor(format string) string {
	if format == "tagged" {
		return exampleQuestions
	}
	lines := segment.DelimiterTagged{}.Split(exampleQuestions)
	for i, line := range lines {
		lines[i] = fmt.Sprintf("%d. %s", i+1, line)
	}
	return strings.Join(lines, "\n")
}

func researchQuestionPrompt(in PromptInput) string {
	var b strings.Builder
	b.WriteString("You are an expert in research.\n")
	b.WriteString("Below is an example of the style we would like for the questions:\n")
	b.WriteString("--------------------\n")
	b.WriteString(exampleFor(in.Format))
	b.WriteString("\n--------------------\n\n")
	fmt.Fprintf(&b, "Now, please generate %d possible research questions based on the following topic:\n%q\n\n", in.Count, in.Topic)
	if in.Review.ProblemStatement != "" {
		fmt.Fprintf(&b, "The review addresses this problem:\n%s\n\n", in.Review.ProblemStatement)
	}
	b.WriteString(formatInstructions(in.Format, "Question", in.Count))
	b.WriteString("\nOnly output the questions in that format, do not provide extra commentary.\n")
	return b.String()
}

func searchQueryPrompt(in PromptInput) string {
	var b strings.Builder
	b.WriteString("You are an expert in systematic literature reviews.\n")
	fmt.Fprintf(&b, "Please generate %d advanced boolean search queries for digital libraries on the topic:\n%q\n\n", in.Count, in.Topic)
	if in.Review.ProblemStatement != "" {
		fmt.Fprintf(&b, "The review addresses this problem:\n%s\n\n", in.Review.ProblemStatement)
	}
	b.WriteString("Each query must fit on a single line and use AND, OR and quoted phrases.\n")
	b.WriteString(formatInstructions(in.Format, "Query", in.Count))
	b.WriteString("\nOnly output the queries in that format, do not provide extra commentary.\n")
	return b.String()
}

package segment

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"testing"
)

func TestNumberedLinesSplit(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "two questions",
			input: "1. How does X affect Y?\n2. What role does Z play?",
			want:  []string{"How does X affect Y?", "What role does Z play?"},
		},
		{
			name:  "continuation lines are space joined",
			input: "1. How does pair programming\naffect defect rates\n2. Second",
			want:  []string{"How does pair programming affect defect rates", "Second"},
		},
		{
			name:  "preamble is discarded",
			input: "Here are your questions:\n\n1. First\n2. Second",
			want:  []string{"First", "Second"},
		},
		{
			name:  "decimal numbers do not open items",
			input: "1. Why do\n2.5% of teams fail?",
			want:  []string{"Why do 2.5% of teams fail?"},
		},
		{
			name:  "no space after the dot",
			input: "1.How does X affect Y?\n2.What role does Z play?",
			want:  []string{"How does X affect Y?", "What role does Z play?"},
		},
		{
			name:  "leading decimal continues the open item",
			input: "1. Why is\n3.14 is pi\n2. Next",
			want:  []string{"Why is 3.14 is pi", "Next"},
		},
		{
			name:  "empty numbered line dropped",
			input: "1.\n2. Kept",
			want:  []string{"Kept"},
		},
		{
			name:  "numbered line with empty body picks up continuation",
			input: "1.\nBody on next line\n2. Kept",
			want:  []string{"Body on next line", "Kept"},
		},
		{
			name:  "windows line endings",
			input: "1. A\r\n2. B\r\n",
			want:  []string{"A", "B"},
		},
		{
			name:  "identical items are kept",
			input: "1. Same\n2. Same",
			want:  []string{"Same", "Same"},
		},
		{
			name:  "no numbered lines",
			input: "just some prose\nwith no items",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NumberedLines{}.Split(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNumberedLinesCountMatchesPrefixedLines(t *testing.T) {
	var b strings.Builder
	for i := 1; i <= 12; i++ {
		b.WriteString("Intro noise\n")
		b.WriteString(strings.Repeat(" ", i%3))
		b.WriteString(strconv.Itoa(i) + ". item " + strconv.Itoa(i) + "\n")
		b.WriteString("continued\n")
	}

	got := NumberedLines{}.Split(b.String())
	if len(got) != 12 {
		t.Fatalf("expected 12 items, got %d: %q", len(got), got)
	}
	for i, item := range got {
		want := "item " + strconv.Itoa(i+1) + " continued Intro noise"
		if i == len(got)-1 {
			want = "item " + strconv.Itoa(i+1) + " continued"
		}
		if item != want {
			t.Errorf("item %d = %q, want %q", i+1, item, want)
		}
	}
}

func TestDelimiterTaggedSplit(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "tags removed",
			input: "--1-- How do researchers design studies?\n--2-- What ethical issues arise?",
			want:  []string{"How do researchers design studies?", "What ethical issues arise?"},
		},
		{
			name:  "continuation until next boundary",
			input: "--1-- First part\nsecond part\n\nthird part\n--2-- Next",
			want:  []string{"First part second part third part", "Next"},
		},
		{
			name:  "only the first tag is stripped",
			input: "--3-- Trade-offs -- performance vs. ethics --",
			want:  []string{"Trade-offs -- performance vs. ethics --"},
		},
		{
			name:  "text before tag is kept",
			input: "Q --1-- text",
			want:  []string{"Q text"},
		},
		{
			name:  "bare tag line opens an item",
			input: "--1--\nBody\n--2--",
			want:  []string{"Body"},
		},
		{
			name:  "single dash pair is not a boundary",
			input: "--1-- A\nwell-known -- issue",
			want:  []string{"A well-known -- issue"},
		},
		{
			name:  "preamble discarded",
			input: "<think>\nreasoning\n</think>\n--1-- A",
			want:  []string{"A"},
		},
		{
			name:  "nothing parsed",
			input: "no tags here",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DelimiterTagged{}.Split(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitReportsParseEmpty(t *testing.T) {
	for _, s := range []Strategy{NumberedLines{}, DelimiterTagged{}} {
		t.Run(s.Name(), func(t *testing.T) {
			items, err := Split(s, "   \n\n")
			if !errors.Is(err, ErrParseEmpty) {
				t.Fatalf("expected ErrParseEmpty, got %v", err)
			}
			if items != nil {
				t.Errorf("expected nil items, got %q", items)
			}
		})
	}
}

func TestByName(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"numbered", "numbered", false},
		{"TAGGED", "tagged", false},
		{" tagged ", "tagged", false},
		{"bullets", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ByName(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ByName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if err == nil && s.Name() != tt.want {
				t.Errorf("ByName(%q) = %q, want %q", tt.name, s.Name(), tt.want)
			}
		})
	}
}

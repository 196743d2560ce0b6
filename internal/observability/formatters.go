// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/fitcheck/internal/pipeline"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// printList appends up to maxItemsToShow items as bullets.
func printList(sb *strings.Builder, header string, items []string, limit int) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(header + "\n")
	count := min(len(items), limit)
	for i := 0; i < count; i++ {
		item := items[i]
		if len(item) > 50 {
			item = item[:47] + "..."
		}
		sb.WriteString(fmt.Sprintf("  • %s\n", item))
	}
	if len(items) > limit {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(items)-limit))
	}
}

// PrintClassification outputs a human-readable summary of the query
// classification.
func (p *Printer) PrintClassification(c *pipeline.ConnectOutput) {
	if c == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Type:     %s\n", c.QueryType))
	if c.CompanyName != "" {
		sb.WriteString(fmt.Sprintf("Company:  %s\n", c.CompanyName))
	}
	if c.JobTitle != "" {
		sb.WriteString(fmt.Sprintf("Role:     %s\n", c.JobTitle))
	}
	if len(c.ExtractedSkills) > 0 {
		sb.WriteString("\n")
		printList(&sb, "Extracted Skills:", c.ExtractedSkills, maxItemsToShow)
	}

	p.printBox("QUERY CLASSIFICATION", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintEmployerProfile outputs the synthesized employer research.
func (p *Printer) PrintEmployerProfile(r *pipeline.ResearchOutput) {
	if r == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Data quality: %s\n\n", r.DataQuality))

	summary := r.EmployerSummary
	if len(summary) > 150 {
		summary = summary[:147] + "..."
	}
	sb.WriteString(summary + "\n\n")

	printList(&sb, "Requirements:", r.IdentifiedRequirements, maxItemsToShow)
	printList(&sb, "Tech Stack:", r.TechStack, 3)
	printList(&sb, "Culture Signals:", r.CultureSignals, 3)

	p.printBox("EMPLOYER PROFILE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSkepticalReview outputs the adversarial review results.
func (p *Printer) PrintSkepticalReview(s *pipeline.SkepticOutput) {
	if s == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Risk assessment: %s\n\n", s.RiskAssessment))
	printList(&sb, "Genuine Strengths:", s.GenuineStrengths, maxItemsToShow)
	printList(&sb, "Genuine Gaps:", s.GenuineGaps, maxItemsToShow)
	printList(&sb, "Transferable Skills:", s.TransferableSkills, 3)

	p.printBox("SKEPTICAL REVIEW", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintMatchReport outputs the requirement-by-requirement match with the
// recomputed score.
func (p *Printer) PrintMatchReport(m *pipeline.MatchOutput) {
	if m == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Overall match score: %.2f\n\n", m.OverallMatchScore))

	if len(m.MatchedRequirements) > 0 {
		sb.WriteString("Matched:\n")
		count := min(len(m.MatchedRequirements), maxItemsToShow)
		for i := 0; i < count; i++ {
			req := m.MatchedRequirements[i]
			name := req.Requirement
			if len(name) > 36 {
				name = name[:33] + "..."
			}
			sb.WriteString(fmt.Sprintf("  ✓ %s (%.2f)\n", name, req.Confidence))
		}
		if len(m.MatchedRequirements) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(m.MatchedRequirements)-maxItemsToShow))
		}
		sb.WriteString("\n")
	}

	printList(&sb, "Unmatched:", m.UnmatchedRequirements, maxItemsToShow)

	p.printBox("SKILLS MATCH", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintProcessingErrors outputs the degradations recorded during the run.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProcessingErrors(errs []string) {
	if len(errs) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "✅ NO PROCESSING ERRORS")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run degraded %d time(s):\n\n", len(errs)))
	for i, e := range errs {
		if len(e) > 50 {
			e = e[:47] + "..."
		}
		sb.WriteString(fmt.Sprintf("⚠ %s\n", e))
		if i < len(errs)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("PROCESSING ERRORS", sb.String())
}

// PrintState outputs every populated phase result in pipeline order.
func (p *Printer) PrintState(s *pipeline.State) {
	if s == nil {
		return
	}
	p.PrintClassification(s.Connect)
	p.PrintEmployerProfile(s.Research)
	p.PrintSkepticalReview(s.Skeptic)
	p.PrintMatchReport(s.Match)
	p.PrintProcessingErrors(s.ProcessingErrors)
}

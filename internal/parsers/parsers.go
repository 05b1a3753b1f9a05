// Package parsers implements the small text grammars the pipeline depends on:
// tagged plan blocks, subagent output markers, and bibliography sections.
// Every parser reports "not found" explicitly; fallback policy belongs to the
// caller, never to the parser.
package parsers

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/fathomlabs/orchestrator/internal/models"
)

var (
	taskPattern       = regexp.MustCompile(`(?s)<task>(.*?)</task>`)
	rationalePattern  = regexp.MustCompile(`(?s)<rationale>(.*?)</rationale>`)
	summaryPattern    = regexp.MustCompile(`(?is)##?\s*Summary:?\s*(.+?)(?:\n##|\n\n##|$)`)
	confidencePattern = regexp.MustCompile(`(?is)##?\s*Confidence.*?:\s*(high|medium|low)`)
	urlPattern        = regexp.MustCompile(`https?://[A-Za-z0-9$\-_@.&+!*(),%/:~#=?]+`)

	bibliographyHeading = regexp.MustCompile(`(?is)(?:Bibliography|Sources|References):?\s*\n(.+)`)
	bibliographyEntry   = regexp.MustCompile(`^\[(\d+)\]\s*(.*)`)
	urlLinePattern      = regexp.MustCompile(`URL:\s*(.+?)(?:\n|$)`)
	accessedLinePattern = regexp.MustCompile(`Accessed:\s*(.+?)(?:\n|$)`)
)

// PlanOutline is the raw parsed form of a decomposition response.
type PlanOutline struct {
	Tasks          []string
	Rationale      string
	RationaleFound bool
}

// ParsePlan extracts all <task> blocks in document order and the first
// <rationale> block. A missing rationale is signaled, not substituted.
func ParsePlan(content string) PlanOutline {
	var out PlanOutline
	for _, m := range taskPattern.FindAllStringSubmatch(content, -1) {
		task := strings.TrimSpace(m[1])
		if task != "" {
			out.Tasks = append(out.Tasks, task)
		}
	}
	if m := rationalePattern.FindStringSubmatch(content); m != nil {
		out.Rationale = strings.TrimSpace(m[1])
		out.RationaleFound = true
	}
	return out
}

// ExtractSummary finds the "## Summary" marker section. The boolean reports
// whether the marker was present.
func ExtractSummary(text string) (string, bool) {
	if m := summaryPattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return "", false
}

// FirstParagraph returns the first non-empty paragraph, truncated to maxLen
// runes. Used as the summary of last resort.
func FirstParagraph(text string, maxLen int) string {
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			return truncate(p, maxLen)
		}
	}
	return truncate(strings.TrimSpace(text), maxLen)
}

func truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}

// ExtractConfidence pattern-matches the confidence marker, case-insensitive,
// first match wins. The boolean reports whether a marker was present.
func ExtractConfidence(text string) (models.Confidence, bool) {
	if m := confidencePattern.FindStringSubmatch(text); m != nil {
		return models.Confidence(strings.ToLower(m[1])), true
	}
	return "", false
}

// ExtractURLs pattern-matches URLs out of free text, deduplicated in
// first-seen order.
func ExtractURLs(text string) []string {
	seen := make(map[string]bool)
	var urls []string
	for _, u := range urlPattern.FindAllString(text, -1) {
		if !seen[u] {
			seen[u] = true
			urls = append(urls, u)
		}
	}
	return urls
}

// ParseBibliography looks for a bibliography section (case-insensitive heading
// match) and parses its numbered entries. An entry starts at a line of the
// form "[N] ..." and runs until the next such line. Each entry is expected to
// carry a URL line and an accessed-date line; the entry's leading text,
// excluding the URL label, is the title, falling back to the URL when no
// separate title is present. Returns found=false when no section heading
// matches or no entry parses; a parse miss is the caller's fallback trigger,
// never an error. Entry indices are taken from the generated text as-is.
func ParseBibliography(text string) ([]models.Citation, bool) {
	section := bibliographyHeading.FindStringSubmatch(text)
	if section == nil {
		return nil, false
	}

	var citations []models.Citation
	var index int
	var body []string
	inEntry := false

	flush := func() {
		if !inEntry {
			return
		}
		if c, ok := parseBibliographyEntry(index, strings.TrimSpace(strings.Join(body, "\n"))); ok {
			citations = append(citations, c)
		}
		body = body[:0]
		inEntry = false
	}

	for _, line := range strings.Split(section[1], "\n") {
		if m := bibliographyEntry.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			flush()
			if n, err := strconv.Atoi(m[1]); err == nil {
				index = n
				inEntry = true
				body = append(body, m[2])
			}
			continue
		}
		if inEntry {
			body = append(body, line)
		}
	}
	flush()

	if len(citations) == 0 {
		return nil, false
	}
	return citations, true
}

func parseBibliographyEntry(index int, body string) (models.Citation, bool) {
	if body == "" {
		return models.Citation{}, false
	}

	url := ""
	if um := urlLinePattern.FindStringSubmatch(body); um != nil {
		url = strings.TrimSpace(um[1])
	}

	title := strings.TrimSpace(strings.ReplaceAll(strings.SplitN(body, "\n", 2)[0], "URL:", ""))

	accessed := ""
	if am := accessedLinePattern.FindStringSubmatch(body); am != nil {
		accessed = strings.TrimSpace(am[1])
	}

	if strings.HasPrefix(title, "http") && url != "" {
		title = url
	}
	if url == "" {
		url = title
	}
	if url == "" {
		return models.Citation{}, false
	}

	return models.Citation{
		Index:        index,
		Title:        title,
		URL:          url,
		AccessedDate: accessed,
	}, true
}

package assistant

import (
	"regexp"
	"strings"
)

// DefaultIssueType is used when the text names no issue type
const DefaultIssueType = "Task"

// TicketDraft holds the ticket fields pulled out of one utterance
type TicketDraft struct {
	ProjectKey  string
	Summary     string
	Description string
	IssueType   string
	Assignee    string
}

// Missing names the required fields that are still empty, in display order.
func (d TicketDraft) Missing() []string {
	var missing []string
	if d.ProjectKey == "" {
		missing = append(missing, "project key")
	}
	if d.Summary == "" {
		missing = append(missing, "summary")
	}
	if d.Description == "" {
		missing = append(missing, "description")
	}
	return missing
}

// StatusFilter narrows a search by workflow state
type StatusFilter int

const (
	StatusAny StatusFilter = iota
	StatusOpen
)

// SearchSpec holds the search parameters pulled out of one utterance.
// A non-empty RawQuery is used verbatim and the other fields are ignored.
type SearchSpec struct {
	RawQuery  string
	Project   string
	IssueType string
	Assignee  string
	FreeText  string
	Status    StatusFilter
}

// DefaultJQL is the query used when a search names nothing to filter on
const DefaultJQL = "order by created DESC"

// JQL renders the spec. Clause order is project, issuetype, assignee,
// free text, status.
func (s SearchSpec) JQL() string {
	if s.RawQuery != "" {
		return s.RawQuery
	}

	var clauses []string
	if s.Project != "" {
		clauses = append(clauses, "project = "+s.Project)
	}
	if s.IssueType != "" {
		clauses = append(clauses, "issuetype = "+s.IssueType)
	}
	if s.Assignee != "" {
		clauses = append(clauses, `assignee = "`+escapeJQL(s.Assignee)+`"`)
	}
	if s.FreeText != "" {
		clauses = append(clauses, `text ~ "`+escapeJQL(s.FreeText)+`"`)
	}
	if s.Status == StatusOpen {
		clauses = append(clauses, "status != 'Done' AND status != 'Closed'")
	}

	if len(clauses) == 0 {
		return DefaultJQL
	}
	return strings.Join(clauses, " AND ")
}

func escapeJQL(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

// quoted matches a "..." '...' or “...” value. The closing quote must end a
// word so apostrophes inside a single-quoted value survive.
const quoted = `(?:"(.+?)"|'(.+?)'|“(.+?)”)` + quoteEnd

const quoteEnd = `(?:[\s,.;:!?)]|$)`

// rule is one entry of an ordered extraction table. The first rule whose
// pattern matches wins; the value is the first non-empty capture group.
type rule struct {
	name    string
	pattern *regexp.Regexp
	stop    *regexp.Regexp // optional; trims an unquoted value at the next clause
}

func firstMatch(rules []rule, text string) string {
	for _, r := range rules {
		if m := r.pattern.FindStringSubmatch(text); m != nil {
			for _, g := range m[1:] {
				if r.stop != nil {
					if loc := r.stop.FindStringIndex(g); loc != nil {
						g = g[:loc[0]]
					}
				}
				if g = strings.TrimSpace(g); g != "" {
					return g
				}
			}
		}
	}
	return ""
}

var projectRules = []rule{
	{"project-assign", regexp.MustCompile(`(?i)\bproject\s*[=:]\s*["']?((?-i:[A-Z][A-Z0-9]*))\b`), nil},
	{"project-key", regexp.MustCompile(`(?i)\bproject\s+key\s+["']?((?-i:[A-Z][A-Z0-9]*))\b`), nil},
	{"project", regexp.MustCompile(`(?i)\bproject\s+["']?((?-i:[A-Z][A-Z0-9]*))\b`), nil},
	{"in", regexp.MustCompile(`(?i)\bin\s+(?:the\s+)?["']?((?-i:[A-Z][A-Z0-9]*))\b`), nil},
}

var (
	summaryStop     = regexp.MustCompile(`(?i)\s+(?:(?:and|with)\s+)?(?:a\s+|the\s+)?(?:description\b|assign(?:ed)?\s+(?:it\s+)?to\b|in\s+project\b|in\s+(?-i:[A-Z][A-Z0-9]*\b)|project\s*[=:])`)
	descriptionStop = regexp.MustCompile(`(?i)\s+(?:and\s+)?(?:assign(?:ed)?\s+(?:it\s+)?to\b|in\s+project\b|project\s*[=:])`)
	freeTextStop    = regexp.MustCompile(`(?i)\s+(?:in|for|by|from|project|assigned|assign|that|which|and)\b`)
)

var summaryRules = []rule{
	{"quoted", regexp.MustCompile(`(?i)\b(?:titled|title|summary|called|named)\s*[=:]?\s*` + quoted), nil},
	{"bare", regexp.MustCompile(`(?i)\b(?:titled|title|summary)\b\s*[=:]?\s*([^,.;]+)`), summaryStop},
}

var descriptionRules = []rule{
	{"quoted", regexp.MustCompile(`(?i)\bdescription\s*[=:]?\s*` + quoted), nil},
	{"bare", regexp.MustCompile(`(?i)\bdescription\b\s*[=:]?\s*([^,.;]+)`), descriptionStop},
}

// issueTypeRules run before the keyword scan.
var issueTypeRules = []rule{
	{"marker", regexp.MustCompile(`(?i)\b(?:issue\s*)?type\s*[=:]\s*["']?([A-Za-z]+)`), nil},
	{"create-phrase", regexp.MustCompile(`(?i)\b(?:create|add)\s+(?:a\s+|an\s+)?(?:new\s+)?(bug|task|story|epic|improvement)\b`), nil},
}

var issueTypeKeywords = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"Bug", regexp.MustCompile(`(?i)\bbugs?\b`)},
	{"Task", regexp.MustCompile(`(?i)\btasks?\b`)},
	{"Story", regexp.MustCompile(`(?i)\bstor(?:y|ies)\b`)},
	{"Epic", regexp.MustCompile(`(?i)\bepics?\b`)},
}

const personName = `((?-i:[A-Z][a-z][A-Za-z'-]*(?:\s+[A-Z][a-z][A-Za-z'-]*)?))`

var assigneeRules = []rule{
	{"assign-to", regexp.MustCompile(`(?i)\bassign(?:ed)?\s+(?:it\s+)?to\s+` + personName), nil},
}

// searchAssigneeRules add the looser phrasings used when filtering.
var searchAssigneeRules = append(append([]rule{}, assigneeRules...),
	rule{"by-from", regexp.MustCompile(`(?i)\b(?:by|from)\s+` + personName), nil},
)

var rawQueryRule = regexp.MustCompile(`(?is)(?:using\s+)?query:\s*(.+)$`)

var freeTextRules = []rule{
	{"quoted", regexp.MustCompile(`(?i)\b(?:contain(?:s|ing)?|about|related\s+to|with)\s+` + quoted), nil},
	{"bare", regexp.MustCompile(`(?i)\b(?:contain(?:s|ing)?|about|related\s+to|with)\s+([^"'“.,;?!]+)`), freeTextStop},
}

var (
	openKeyword = regexp.MustCompile(`(?i)\bopen\b`)
	quotedSpan  = regexp.MustCompile(`("(?:.+?)"|'(?:.+?)'|“(?:.+?)”)` + quoteEnd)
	innerSpace  = regexp.MustCompile(`\s`)
)

// maskQuoted blanks quoted spans that contain whitespace, so words inside a
// title or description are not read as markers. Single-token quoted values
// such as 'KAN' stay visible. A span closes where a quoted value does, so an
// apostrophe inside it does not end it.
func maskQuoted(text string) string {
	var b strings.Builder
	last := 0
	for _, loc := range quotedSpan.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[2], loc[3]
		if !innerSpace.MatchString(text[start:end]) {
			continue
		}
		b.WriteString(text[last:start])
		b.WriteString(strings.Repeat(" ", end-start))
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}

func extractProject(masked string) string {
	return firstMatch(projectRules, masked)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	return strings.ToUpper(lower[:1]) + lower[1:]
}

// extractIssueType returns the explicit or keyword-inferred issue type, or
// "" when the text names none.
func extractIssueType(masked string) string {
	if v := firstMatch(issueTypeRules, masked); v != "" {
		return titleCase(v)
	}
	for _, kw := range issueTypeKeywords {
		if kw.pattern.MatchString(masked) {
			return kw.name
		}
	}
	return ""
}

// ExtractTicketFields reads ticket fields out of free text. It is a pure
// function of its input.
func ExtractTicketFields(text string) TicketDraft {
	masked := maskQuoted(text)

	draft := TicketDraft{
		ProjectKey:  extractProject(masked),
		Summary:     firstMatch(summaryRules, text),
		Description: firstMatch(descriptionRules, text),
		IssueType:   extractIssueType(masked),
		Assignee:    firstMatch(assigneeRules, masked),
	}
	if draft.IssueType == "" {
		draft.IssueType = DefaultIssueType
	}
	if draft.Summary != "" && draft.Description == "" {
		draft.Description = "This " + strings.ToLower(draft.IssueType) + " requires attention. Please see the summary for details."
	}
	return draft
}

// ExtractSearchFields reads search parameters out of free text. A query
// introduced by "query:" short-circuits everything else.
func ExtractSearchFields(text string) SearchSpec {
	if m := rawQueryRule.FindStringSubmatch(text); m != nil {
		if q := strings.TrimSpace(m[1]); q != "" {
			return SearchSpec{RawQuery: q}
		}
	}

	masked := maskQuoted(text)
	spec := SearchSpec{
		Project:   extractProject(masked),
		IssueType: extractIssueType(masked),
		Assignee:  firstMatch(searchAssigneeRules, masked),
		FreeText:  firstMatch(freeTextRules, text),
	}
	if openKeyword.MatchString(masked) {
		spec.Status = StatusOpen
	}
	return spec
}

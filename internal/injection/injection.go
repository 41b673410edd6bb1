// Package injection classifies sanitized question text against an ordered
// rule set of adversarial-instruction patterns.
package injection

import "regexp"

// Category labels a family of adversarial patterns.
type Category string

const (
	CategoryInstructionOverride Category = "instruction_override"
	CategorySystemPrompt        Category = "system_prompt_manipulation"
	CategoryRoleReassignment    Category = "role_reassignment"
	CategoryJailbreak           Category = "jailbreak"
	CategoryPromptExtraction    Category = "prompt_extraction"
	CategoryCodeExecution       Category = "code_execution"
	CategoryExfiltration        Category = "exfiltration"
)

// Rule pairs a compiled pattern with its category. Rules are evaluated in
// declaration order and the first match wins, so the reported category is a
// function of the ordering below, not of match position in the text.
type Rule struct {
	ID       string
	Category Category
	Pattern  *regexp.Regexp
}

// Result reports whether the text tripped a rule.
type Result struct {
	Blocked   bool
	Category  Category
	PatternID string
}

// rules is the fixed priority order. Instruction overrides are checked
// before URL/exfiltration markers so an override smuggled inside a
// URL-bearing message is attributed to the more dangerous category.
var rules = []Rule{
	{"override.ignore_previous", CategoryInstructionOverride, regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above|earlier)\s+instructions`)},
	{"override.disregard_prior", CategoryInstructionOverride, regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|above|earlier)`)},
	{"override.forget_previous", CategoryInstructionOverride, regexp.MustCompile(`(?i)forget\s+(all\s+)?(previous|prior|your)\s+(instructions|rules|guidelines)`)},
	{"override.new_instructions", CategoryInstructionOverride, regexp.MustCompile(`(?i)your\s+new\s+instructions\s+are`)},

	{"sysprompt.role_marker", CategorySystemPrompt, regexp.MustCompile(`(?i)(^|\W)(system|assistant)\s*:`)},
	{"sysprompt.bracket_tag", CategorySystemPrompt, regexp.MustCompile(`(?i)[\[<]\s*(/?\s*)?(system|sys|inst)\s*[\]>]`)},

	{"role.you_are_now", CategoryRoleReassignment, regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|the)\b`)},
	{"role.pretend", CategoryRoleReassignment, regexp.MustCompile(`(?i)pretend\s+(to\s+be|you\s+are)`)},
	{"role.act_as", CategoryRoleReassignment, regexp.MustCompile(`(?i)\bact\s+as\s+(a|an|the|if)\b`)},
	{"role.roleplay", CategoryRoleReassignment, regexp.MustCompile(`(?i)\broleplay\s+as\b`)},

	{"jailbreak.dan", CategoryJailbreak, regexp.MustCompile(`(?i)\b(dan|aim|stan|dude)\s+mode\b`)},
	{"jailbreak.developer_mode", CategoryJailbreak, regexp.MustCompile(`(?i)developer\s+mode`)},
	{"jailbreak.do_anything_now", CategoryJailbreak, regexp.MustCompile(`(?i)do\s+anything\s+now`)},
	{"jailbreak.no_restrictions", CategoryJailbreak, regexp.MustCompile(`(?i)(without|no|free\s+of)\s+(any\s+)?(restrictions|limitations|filters)`)},

	{"extraction.instructions", CategoryPromptExtraction, regexp.MustCompile(`(?i)what\s+(are|were)\s+your\s+(instructions|rules|guidelines)`)},
	{"extraction.show_prompt", CategoryPromptExtraction, regexp.MustCompile(`(?i)(show|tell|give)\s+me\s+your\s+(system\s+)?prompt`)},
	{"extraction.repeat_system", CategoryPromptExtraction, regexp.MustCompile(`(?i)repeat\s+your\s+(system\s+)?(message|prompt|instructions)`)},
	{"extraction.reveal", CategoryPromptExtraction, regexp.MustCompile(`(?i)reveal\s+your\s+(system\s+)?(prompt|instructions|configuration)`)},

	{"exec.fenced_script", CategoryCodeExecution, regexp.MustCompile("(?i)```\\s*(sh|bash|shell|python|javascript|powershell)")},
	{"exec.exec_call", CategoryCodeExecution, regexp.MustCompile(`(?i)\bexec\s*\(`)},
	{"exec.eval_call", CategoryCodeExecution, regexp.MustCompile(`(?i)\beval\s*\(`)},

	{"exfil.send_to", CategoryExfiltration, regexp.MustCompile(`(?i)send\s+(it|this|them|the\s+\w+)\s+to\b`)},
	{"exfil.url", CategoryExfiltration, regexp.MustCompile(`(?i)\b(https?|ftp|file)://`)},
}

// Detector scans text against the fixed rule set.
type Detector struct {
	rules []Rule
}

// NewDetector returns a detector backed by the package rule set.
func NewDetector() *Detector {
	return &Detector{rules: rules}
}

// Rules exposes the ordered rule set so the priority order is a visible,
// testable artifact.
func (d *Detector) Rules() []Rule {
	out := make([]Rule, len(d.rules))
	copy(out, d.rules)
	return out
}

// Detect scans sanitized text and short-circuits on the first matching rule.
func (d *Detector) Detect(text string) Result {
	for _, r := range d.rules {
		if r.Pattern.MatchString(text) {
			return Result{Blocked: true, Category: r.Category, PatternID: r.ID}
		}
	}
	return Result{}
}

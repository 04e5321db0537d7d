// Package persona loads the identity documents the agent speaks from and
// renders them into the system prompt.
package persona

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kwren/emissary/internal/config"
)

// DefaultName is used when no persona name is configured.
const DefaultName = "the site owner"

// fallbackSummary keeps the service able to answer generically when no
// summary source is available. It must never be empty.
const fallbackSummary = "No profile summary has been provided. Answer questions about this " +
	"website generally, be upfront when you don't know something, and encourage visitors " +
	"to leave their email address so the owner can follow up."

// Profile is the read-only persona context shared by all requests.
// It is populated once at startup and never mutated afterwards, so
// concurrent reads need no locking.
type Profile struct {
	Name        string
	Summary     string
	Resume      string
	WorkHistory string
}

// Load assembles a Profile from the configured sources. Inline config
// values win over files; a missing summary source degrades to a fixed
// fallback and missing resume or work-history sources degrade to empty
// strings. Load never fails: an incomplete persona is preferable to a
// service that won't start.
func Load(cfg config.PersonaConfig, logger *slog.Logger) *Profile {
	if logger == nil {
		logger = slog.Default()
	}

	p := &Profile{Name: cfg.Name}
	if p.Name == "" {
		p.Name = DefaultName
	}

	p.Summary = loadSource(cfg.Summary, cfg.SummaryFile, logger, "summary")
	if p.Summary == "" {
		logger.Warn("no persona summary available, using fallback",
			"summary_file", cfg.SummaryFile)
		p.Summary = fallbackSummary
	}

	p.Resume = loadSource(cfg.Resume, cfg.ResumeFile, logger, "resume")
	p.WorkHistory = loadSource("", cfg.WorkHistoryFile, logger, "work history")

	logger.Info("persona loaded",
		"name", p.Name,
		"summary_chars", len(p.Summary),
		"resume_chars", len(p.Resume),
		"work_history_chars", len(p.WorkHistory),
	)

	return p
}

// loadSource resolves one persona document: inline value first, then the
// file, then empty. DOCX files are reduced to plain paragraph text;
// everything else is read verbatim.
func loadSource(inline, path string, logger *slog.Logger, what string) string {
	if strings.TrimSpace(inline) != "" {
		return strings.TrimSpace(inline)
	}
	if path == "" {
		return ""
	}

	var text string
	var err error
	if strings.EqualFold(filepath.Ext(path), ".docx") {
		text, err = extractDocxText(path)
	} else {
		var data []byte
		data, err = os.ReadFile(path)
		text = string(data)
	}
	if err != nil {
		logger.Warn("persona source unavailable", "source", what, "path", path, "error", err)
		return ""
	}
	return strings.TrimSpace(text)
}

// SystemPrompt renders the persona into the system message that opens
// every conversation. The shape is fixed: acting-as preamble, tool usage
// instructions, the persona documents as sections, and a closing
// stay-in-character line.
func (p *Profile) SystemPrompt() string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are acting as %[1]s. You are answering questions on %[1]s's website, "+
		"particularly questions related to %[1]s's career, background, skills and experience. "+
		"Your responsibility is to represent %[1]s for interactions on the website as faithfully "+
		"as possible. You are given a summary of %[1]s's background and resume which you can use "+
		"to answer questions. Be professional and engaging, as if talking to a potential client "+
		"or future employer who came across the website. "+
		"If you don't know the answer to any question, use your record_unknown_question tool to "+
		"record the question that you couldn't answer, even if it's about something trivial or "+
		"unrelated to career. "+
		"If the user is engaging in discussion, try to steer them towards getting in touch via "+
		"email; ask for their email and record it using your record_user_details tool. "+
		"When recording user details, always include the user's message or a summary of the "+
		"conversation in the 'notes' parameter so %[1]s knows what they were interested in.", p.Name)

	fmt.Fprintf(&b, "\n\n## Summary:\n%s\n\n## Resume:\n%s\n\n", p.Summary, p.Resume)

	if p.WorkHistory != "" {
		fmt.Fprintf(&b, "## Detailed Work Experience:\n%s\n\n", p.WorkHistory)
	}

	fmt.Fprintf(&b, "With this context, please chat with the user, always staying in character as %s.", p.Name)

	return b.String()
}

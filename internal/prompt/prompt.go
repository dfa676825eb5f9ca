// Package prompt assembles the system prompt handed to the generation
// backend: a base persona text plus optional labeled context sections for
// the user's profile and their current match.
package prompt

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/oggyb/amica/internal/db"
)

// DefaultBase is used when no prompt file is configured or readable.
const DefaultBase = "Ты — виртуальный собеседник, помогающий знакомиться. Пиши естественно, дружелюбно, " +
	"поддерживай диалог, задавай уместные вопросы, соблюдай безопасность и уважение."

// Builder renders system prompts from a fixed base text.
type Builder struct {
	base string
}

// NewBuilder creates a builder with the given base text; empty falls back
// to DefaultBase.
func NewBuilder(base string) *Builder {
	if strings.TrimSpace(base) == "" {
		base = DefaultBase
	}
	return &Builder{base: base}
}

// NewBuilderFromFile loads the base prompt from path, falling back to
// DefaultBase when the file is missing.
func NewBuilderFromFile(path string) *Builder {
	data, err := os.ReadFile(path)
	if err != nil {
		return NewBuilder("")
	}
	return NewBuilder(string(data))
}

// Build composes the system prompt. Section order is base, then profile,
// then match; a section is omitted entirely when its context is absent.
func (b *Builder) Build(profile *db.Profile, match *db.Match) string {
	var sb strings.Builder
	sb.WriteString(b.base)

	if profile != nil {
		sb.WriteString("\n\nКонтекст анкеты пользователя:\n")
		sb.WriteString(ProfileContext(profile))
	}
	if match != nil {
		sb.WriteString("\n\nКонтекст текущего матча:\n")
		sb.WriteString(MatchContext(match))
	}
	return sb.String()
}

// ProfileContext renders a profile as key=value lines; empty fields are
// skipped so stale blanks never reach the backend.
func ProfileContext(p *db.Profile) string {
	var items []string
	if p.Username != "" {
		items = append(items, fmt.Sprintf("username=@%s", p.Username))
	}
	if p.Gender != "" {
		items = append(items, fmt.Sprintf("gender=%s", p.Gender))
	}
	if p.ProfileNumber != nil {
		items = append(items, fmt.Sprintf("profile_number=%d", *p.ProfileNumber))
	}
	if p.Bio != "" {
		items = append(items, fmt.Sprintf("bio=%s", p.Bio))
	}
	if len(p.Attributes) > 0 {
		keys := make([]string, 0, len(p.Attributes))
		for k := range p.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s=%v", k, p.Attributes[k]))
		}
		items = append(items, "attributes="+strings.Join(pairs, ", "))
	}
	if len(items) == 0 {
		return "нет данных"
	}
	return strings.Join(items, "\n")
}

// MatchContext renders a match as a one-line summary.
func MatchContext(m *db.Match) string {
	parts := []string{
		fmt.Sprintf("match_id=%d", m.ID),
		fmt.Sprintf("male_id=%s", m.MaleID),
		fmt.Sprintf("female_id=%s", m.FemaleID),
		fmt.Sprintf("mutual=%t", m.Mutual),
		fmt.Sprintf("paid=%t", m.Paid),
	}
	if m.FemaleUsername != "" {
		parts = append(parts, fmt.Sprintf("female_username=@%s", m.FemaleUsername))
	}
	if m.MaleUsername != "" {
		parts = append(parts, fmt.Sprintf("male_username=@%s", m.MaleUsername))
	}
	if m.InvoiceURL != "" {
		parts = append(parts, fmt.Sprintf("invoice=%s", m.InvoiceURL))
	}
	return strings.Join(parts, ", ")
}

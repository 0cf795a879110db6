// Package commitmsg generates and parses synthetic commit
// messages that carry dataset annotations.
package commitmsg

import (
	"log/slog"
	"strings"
)

const (
	begin = "--- synthetic annotations begin ---"
	end   = "--- synthetic annotations end ---"

	keyService   = "Service-Id"
	keyComponent = "Component-Id"
	keyAPI       = "Changed-Api"
	keyDoc       = "Doc-Change"
)

// Annotations are the catalogue attributes attached to a
// synthetic commit.
type Annotations struct {
	Services   []string `json:"service_ids"   yaml:"services"`
	Components []string `json:"component_ids" yaml:"components"`
	APIs       []string `json:"changed_apis"  yaml:"apis"`
	DocChange  bool     `json:"is_doc_change" yaml:"doc_change"`
}

// IsZero reports whether no annotation is set.
func (a Annotations) IsZero() bool {
	return len(a.Services) == 0 &&
		len(a.Components) == 0 &&
		len(a.APIs) == 0 &&
		!a.DocChange
}

// Message is a parsed synthetic commit message.
type Message struct {
	Subject     string
	Summary     string
	Annotations Annotations
}

// Generate renders subject, an optional summary paragraph
// and the annotations block between begin/end markers.
func Generate(
	subject string,
	summary string,
	ann Annotations,
) string {
	var sb strings.Builder

	sb.WriteString(strings.TrimSpace(subject))
	sb.WriteByte('\n')

	if s := strings.TrimSpace(summary); s != "" {
		sb.WriteByte('\n')
		sb.WriteString(s)
		sb.WriteByte('\n')
	}

	if ann.IsZero() {
		return sb.String()
	}

	sb.WriteByte('\n')
	sb.WriteString(begin)
	sb.WriteByte('\n')

	writeAll(&sb, keyService, ann.Services)
	writeAll(&sb, keyComponent, ann.Components)
	writeAll(&sb, keyAPI, ann.APIs)

	if ann.DocChange {
		sb.WriteString(keyDoc + ": true\n")
	}

	sb.WriteString(end)
	sb.WriteByte('\n')

	return sb.String()
}

// Parse splits msg into subject, summary and annotations.
// An annotations block without end marker is ignored.
func Parse(msg string) Message {
	lines := strings.Split(
		strings.TrimRight(msg, "\n"), "\n",
	)

	var (
		out     Message
		summary []string
		ann     Annotations
		inBlock bool
		closed  bool
		opened  bool
	)

	out.Subject = strings.TrimSpace(lines[0])

	for _, line := range lines[1:] {
		switch line {
		case begin:
			inBlock = true
			opened = true
		case end:
			inBlock = false
			closed = true
		default:
			if inBlock {
				parseTrailer(&ann, line)
			} else if !opened {
				summary = append(summary, line)
			}
		}
	}

	out.Summary = strings.TrimSpace(strings.Join(summary, "\n"))

	if opened && !closed {
		slog.Warn(
			"unable to find end marker in commit message",
			"subject", out.Subject,
		)

		return out
	}

	out.Annotations = ann

	return out
}

func writeAll(sb *strings.Builder, key string, values []string) {
	for _, v := range values {
		sb.WriteString(key)
		sb.WriteString(": ")
		sb.WriteString(v)
		sb.WriteByte('\n')
	}
}

func parseTrailer(ann *Annotations, line string) {
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return
	}

	value = strings.TrimSpace(value)

	switch strings.TrimSpace(key) {
	case keyService:
		ann.Services = append(ann.Services, value)
	case keyComponent:
		ann.Components = append(ann.Components, value)
	case keyAPI:
		ann.APIs = append(ann.APIs, value)
	case keyDoc:
		ann.DocChange = value == "true"
	default:
		// unknown trailers are dropped
	}
}

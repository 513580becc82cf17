// Package narration turns an extracted document into the ordered sequence
// of speech and pause steps that make up the narrated output.
package narration

import (
	"fmt"
	"strings"

	"github.com/book-expert/narration-service/internal/core"
)

// Narration label formats. The resulting order of speech and pause steps
// is a hard contract: reordering changes the narrated output.
const (
	titleFormat   = "Title: %s."
	abstractLabel = "Abstract."
	sectionFormat = "Section: %s."
)

// StepKind distinguishes speech from silence.
type StepKind int

const (
	// StepSpeak synthesizes Text into audio.
	StepSpeak StepKind = iota
	// StepPause inserts one fixed silence gap.
	StepPause
)

// Step is one unit of the narration plan.
type Step struct {
	Kind StepKind
	Text string
}

// Plan builds the narration steps for a document:
//
//	title present    -> speak "Title: {title}.", pause
//	abstract present -> speak "Abstract.", pause, speak abstract, pause
//	each section     -> speak "Section: {heading}." and pause when the
//	                    heading is present, speak the body when present,
//	                    then one unconditional pause for the boundary
//
// Presence means non-whitespace; empty chunks contribute no step but do
// not disturb the surrounding gaps.
func Plan(doc *core.Document) []Step {
	var steps []Step

	if present(doc.Title) {
		steps = append(steps,
			Step{Kind: StepSpeak, Text: fmt.Sprintf(titleFormat, doc.Title)},
			Step{Kind: StepPause, Text: ""},
		)
	}

	if present(doc.Abstract) {
		steps = append(steps,
			Step{Kind: StepSpeak, Text: abstractLabel},
			Step{Kind: StepPause, Text: ""},
			Step{Kind: StepSpeak, Text: doc.Abstract},
			Step{Kind: StepPause, Text: ""},
		)
	}

	for _, section := range doc.Sections {
		if present(section.Heading) {
			steps = append(steps,
				Step{Kind: StepSpeak, Text: fmt.Sprintf(sectionFormat, section.Heading)},
				Step{Kind: StepPause, Text: ""},
			)
		}

		if present(section.Body) {
			steps = append(steps, Step{Kind: StepSpeak, Text: section.Body})
		}

		// Section boundary gap, even when the body was empty.
		steps = append(steps, Step{Kind: StepPause, Text: ""})
	}

	return steps
}

func present(text string) bool {
	return strings.TrimSpace(text) != ""
}

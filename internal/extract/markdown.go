package extract

import (
	"strings"
	"unicode/utf8"
)

// Markdown markers recognized by the local parser.
const (
	titleMarker   = "# "
	headingMarker = "## "
	abstractName  = "abstract"
)

type parsedDocument struct {
	title    string
	abstract string
	sections []parsedSection
}

type parsedSection struct {
	heading string
	body    string
}

// parseMarkdown splits markdown or plain text into title, abstract, and
// sections. The first level-one heading becomes the title, a level-two
// "Abstract" heading becomes the abstract, and every other level-two
// heading starts a section. Text with no markers at all becomes a single
// heading-less section, so plain-text uploads still narrate.
func parseMarkdown(text string) parsedDocument {
	var (
		doc     parsedDocument
		heading string
		body    []string
		started bool
	)

	flush := func() {
		content := strings.TrimSpace(strings.Join(body, "\n"))
		body = body[:0]

		if !started {
			return
		}

		if strings.EqualFold(heading, abstractName) {
			doc.abstract = content

			return
		}

		if heading == "" && content == "" {
			// Blank preamble between the title and the first heading.
			return
		}

		doc.sections = append(doc.sections, parsedSection{heading: heading, body: content})
	}

	for line := range strings.Lines(text) {
		line = strings.TrimRight(line, "\r\n")

		switch {
		case strings.HasPrefix(line, titleMarker) && doc.title == "" && !started:
			doc.title = strings.TrimSpace(strings.TrimPrefix(line, titleMarker))
		case strings.HasPrefix(line, headingMarker):
			flush()

			heading = strings.TrimSpace(strings.TrimPrefix(line, headingMarker))
			started = true
		default:
			if !started && strings.TrimSpace(line) != "" {
				started = true
			}

			if started {
				body = append(body, line)
			}
		}
	}

	flush()

	return doc
}

func validText(data []byte) bool {
	return utf8.Valid(data)
}

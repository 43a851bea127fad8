package web

import (
	"embed"
	"html/template"
	"strings"

	"github.com/Yates-Labs/storyteller/internal/illustrate"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"blocks":   storyBlocks,
	"imageSrc": imageSrc,
}

// storyBlock is one rendered piece of a story: a heading, a rule or a paragraph.
type storyBlock struct {
	Heading   string
	Paragraph string
	Rule      bool
}

// storyBlocks splits generated text on blank lines and recognises the
// chapter separators written by story.AppendChapter.
func storyBlocks(text string) []storyBlock {
	var blocks []storyBlock
	for _, part := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		part = strings.TrimSpace(part)
		switch {
		case part == "":
			continue
		case part == "---":
			blocks = append(blocks, storyBlock{Rule: true})
		case strings.HasPrefix(part, "#"):
			heading, rest, _ := strings.Cut(part, "\n")
			blocks = append(blocks, storyBlock{Heading: strings.TrimSpace(strings.TrimLeft(heading, "#"))})
			if rest = strings.TrimSpace(rest); rest != "" {
				blocks = append(blocks, storyBlock{Paragraph: rest})
			}
		default:
			blocks = append(blocks, storyBlock{Paragraph: part})
		}
	}
	return blocks
}

// imageSrc marks the illustration source as safe. It is either a URL returned
// by the image API or a data URI built from its bytes.
func imageSrc(img *illustrate.Image) template.URL {
	return template.URL(img.Src())
}

package story

import (
	"fmt"
	"strings"
)

const masterPrompt = `You are a masterful storyteller creating an engaging bedtime story for a child.
If the age of the child is mentioned in the input, adapt the story to suit.
If no age is mentioned, assume the child is around 8 years old.

STORY REQUIREMENTS:
- Write a complete story that's 8-12 paragraphs long (aim for about 800-1200 words)
- The story should be gentle, positive, funny, engaging, and adventurous
- Include a clear beginning, middle with multiple events/challenges, and satisfying ending

STORY STRUCTURE - Choose ONE of these varied formats:
1. Quest Adventure: Character goes on a journey with 3-4 different challenges/discoveries
2. Mystery Story: Character discovers something puzzling and solves it through multiple clues
3. Friendship Tale: Character meets new friends and they have several adventures together
4. Magic Discovery: Character finds something magical that leads to multiple magical experiences
5. Problem-Solving Story: Character faces a problem that requires several creative attempts to solve
6. Exploration Adventure: Character explores a new place and has multiple discoveries/encounters

VARIETY ELEMENTS - Include 2-3 of these to make each story unique:
- Talking animals with distinct personalities
- A magical object or ability
- A helpful mentor figure
- A silly misunderstanding that gets resolved
- A creative invention or solution
- A celebration or festival
- Weather that affects the adventure
- A map, riddle, or puzzle to solve
- An unexpected ally
- A cozy hideout or special place

PACING:
- Spend 2-3 paragraphs setting up the character and situation
- Include 4-6 paragraphs of main adventure with multiple events
- Use 2-3 paragraphs for a satisfying conclusion that ties everything together
- Add sensory details (what characters see, hear, smell, feel) to make scenes vivid
- Include dialogue to bring characters to life

Here is what the user gave you to try and use in the story.
Don't feel like you need to use all of it, but weave in what you can naturally.

`

const chapterPrompt = `You are a masterful storyteller continuing an engaging bedtime story for a child.
You will be given an existing story and need to create the next chapter that continues the adventure.

CHAPTER REQUIREMENTS:
- Write a new chapter that's 6-10 paragraphs long (aim for about 600-1000 words)
- The chapter should feel like a natural continuation of the existing story
- Maintain the same tone, characters, and world established in the original story
- The chapter should be gentle, positive, engaging, and adventurous
- Include new events, discoveries, or challenges that build on what came before
- End with either resolution or a gentle cliffhanger that could lead to another chapter

CONTINUITY GUIDELINES:
- Keep the same main characters and their personalities
- Reference events from the previous story/chapters
- Maintain the same magical or realistic world rules established
- Keep the same age-appropriate tone and complexity
- Build on relationships and locations already introduced

CHAPTER STRUCTURE:
- Start by briefly connecting to where the previous story left off
- Introduce 2-3 new events, challenges, or discoveries
- Show character growth or new aspects of familiar characters
- Include sensory details and dialogue to bring scenes to life
- End with a satisfying conclusion or gentle transition to potential future adventures

Here is the existing story that you need to continue:

`

const imageSummaryPrompt = `Based on the following story, create a brief description for an image that would be perfect to accompany this story.
The image should be child-friendly and capture the main scene or feeling of the story.
Keep the description under 200 characters and focus on visual elements that would delight a 6-12 year old (not toddler).
Do not include any text or words in the image.
Do not include any children in the picture, but instead focus on characters and elements of the story so they can imagine themselves in it.

Story:
`

// chapterHeading marks every chapter after the first in a combined story.
const chapterHeading = "## Chapter"

// chapterSeparator sits between the chapters of a combined story.
const chapterSeparator = "\n\n---\n\n"

// maxImageDescription caps the scene description sent to the image API.
const maxImageDescription = 400

// AssemblePrompt builds the full story prompt from a request.
func AssemblePrompt(req Request) (string, error) {
	if req.IsEmpty() {
		return "", ErrEmptyPrompt
	}

	var b strings.Builder
	b.WriteString(masterPrompt)

	writeField(&b, "Names", req.Names)
	writeField(&b, "Favourite things", req.Things)
	writeField(&b, "Topic", req.Topic)
	if p := strings.TrimSpace(req.Prompt); p != "" {
		b.WriteString(fmt.Sprintf("Ideas: %s\n", p))
	}

	return b.String(), nil
}

func writeField(b *strings.Builder, label, value string) {
	if v := strings.TrimSpace(value); v != "" {
		b.WriteString(fmt.Sprintf("%s: %s\n", label, v))
	}
}

// AssembleChapterPrompt builds the prompt asking for the next chapter.
func AssembleChapterPrompt(existing string) (string, error) {
	if strings.TrimSpace(existing) == "" {
		return "", ErrEmptyStory
	}
	return chapterPrompt + existing, nil
}

// AssembleImagePrompt builds the prompt asking for a short scene description.
// Only the opening story of a multi-chapter story is used.
func AssembleImagePrompt(story string) string {
	first, _, _ := strings.Cut(story, chapterSeparator+chapterHeading+" ")
	return imageSummaryPrompt + strings.TrimSpace(first)
}

// NextChapterNumber returns the number of the chapter that follows story.
// The opening story is chapter 1 and carries no heading.
func NextChapterNumber(story string) int {
	return strings.Count(story, chapterHeading) + 2
}

// AppendChapter joins a new chapter onto an existing story.
func AppendChapter(existing, chapter string) string {
	n := NextChapterNumber(existing)
	return fmt.Sprintf("%s%s%s %d\n\n%s", strings.TrimRight(existing, "\n"), chapterSeparator, chapterHeading, n, strings.TrimSpace(chapter))
}

// cleanImageDescription trims quotes and caps the description length.
func cleanImageDescription(desc string) string {
	desc = strings.Trim(strings.TrimSpace(desc), `"'`)
	if r := []rune(desc); len(r) > maxImageDescription {
		desc = string(r[:maxImageDescription])
	}
	return desc
}

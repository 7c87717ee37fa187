package provider

import (
	"fmt"

	"github.com/anime-shed/comicvault-grader/pkg/models"
)

const userInstruction = "Grade this comic with 0.5-10.0 subgrades. The first image is the FRONT cover, the second is the BACK cover."

const systemPromptTemplate = `You are a professional comic book grader with years of CGC-style experience.
Inspect the FRONT and BACK cover images for:

- spine ticks, both color-breaking and non-color-breaking
- creases, bends and folds
- blunted or rounded corners
- surface gloss loss, scuffs, scratches and stains
- color vibrancy, fading and discoloration
- centering and print alignment
- signs of restoration such as color touch, glue, trimming or pressing artifacts

%s

Reply with JSON only, no commentary, using exactly these keys:

{
  "corners": number,
  "spine": number,
  "surface": number,
  "centering": number,
  "color": number,
  "restoration_suspected": boolean,
  "pressing_benefit": "none" | "low" | "medium" | "high",
  "page_color": "white" | "off-white" | "cream" | "tan" | "brittle",
  "notes": "short description of the key defects and overall condition"
}`

// PostureInstruction is the sentence that steers a grading pass
func PostureInstruction(posture models.Posture) string {
	if posture == models.PostureStrict {
		return "Be slightly strict in scoring."
	}
	return "Be slightly lenient but honest."
}

// SystemPrompt builds the system message for one grading pass
func SystemPrompt(posture models.Posture) string {
	return fmt.Sprintf(systemPromptTemplate, PostureInstruction(posture))
}

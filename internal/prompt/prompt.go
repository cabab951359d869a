package prompt

import (
	"fmt"

	"github.com/example/describer/internal/wordlimit"
)

// System is the fixed system instruction sent with every request.
const System = "You are an assistant that writes short, structured, accessible image " +
	"descriptions for people who cannot see the image. " +
	"Always start with a 'Picture Type' line and respect the word limit."

const instructions = `
You will see an image. Follow this approach strictly:

#Approach

1. Begin your answer with a line in this exact format: **Picture Type:** <short type, e.g. "Car picture", "Baby picture", "Food picture">.
2. After that, write a short 1–2 sentence explanation of the overall picture.
3. Then explain the picture in **Markdown format** using descriptive language.
4. Keep the entire response under **%d words**, and never exceed **%d words** in any case. HARD LIMIT.
5. Format the description so it is easily scannable (for example, bullets with bold labels, short lines).
6. Use **only** what is visible in the provided image. Do not invent or guess hidden details.
7. Output **only** the description itself (starting with the “Picture Type” line). Do not repeat these instructions or add extra commentary.
`

// Build renders the user instruction for a word budget the caller has
// already clamped.
func Build(maxWords int) string {
	return fmt.Sprintf(instructions, maxWords, wordlimit.Ceiling)
}

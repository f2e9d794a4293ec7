package orchestrator

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/hupe1980/storymesh/core"
	"github.com/hupe1980/storymesh/internal/util"
)

// Phrases rendered when a synthesis section has nothing to report.
const (
	NoMemoriesText  = "No specific memories relevant to current situation."
	NoReactionsText = "No specific character reactions available."
)

var synthesisSystem = util.MustParse("synthesis_system", `You are a skilled narrative writer specializing in {{.Genre}} fiction.
Your task is to craft the next segment of an interactive story based on the user's input
and the guidance provided by the story's planning notes.

Story Theme: {{.Theme}}
Story Setting: {{.Setting}}

Write 2-3 paragraphs continuing the story based on the user's input.
Incorporate character reactions, maintain world consistency, and follow the suggested narrative direction.

Write in the second person perspective (using "you").
The text should be engaging, descriptive, and end with a situation that invites further action.`)

var synthesisUser = util.MustParse("synthesis_user", `USER'S CHOICE:
{{.UserInput}}

NARRATIVE DIRECTION:
Selected Direction: {{.Direction.SelectedDirection}}
Pacing: {{.Direction.PacingAssessment}}
Tension Level: {{.Direction.TensionLevel}}

WORLD CONSISTENCY CHECK:
Physically Allowed: {{.World.PhysicsAllowed}}
World Effects: {{if .World.WorldEffects}}{{join ", " .World.WorldEffects}}{{else}}None{{end}}
Issues to Address: {{if .World.ConsistencyIssues}}{{join ", " .World.ConsistencyIssues}}{{else}}None{{end}}

RELEVANT MEMORIES:
{{if .Memories}}{{range .Memories}}- {{.Description}} (Relevance: {{.RelevanceScore}})
{{end}}{{else}}{{.NoMemories}}
{{end}}
CHARACTER REACTIONS:
{{if .Reactions}}{{range .Reactions}}{{.Name}}:
- Action: {{.Action}}
{{if .Dialogue}}- Dialogue: "{{.Dialogue}}"
{{end}}{{if .Emotions}}- Emotions: {{.Emotions}}
{{end}}{{end}}{{else}}{{.NoReactions}}
{{end}}
Continue the story based on this information.`)

var introductionSystem = util.MustParse("introduction_system", `You are a creative {{default "science fiction" .Genre}} writer crafting an interactive story.`)

var introductionUser = util.MustParse("introduction_user", `Write the opening scene of an interactive {{default "science fiction" .Genre}} story with the following details:
- Genre: {{.Genre}}
- Theme: {{.Theme}}
- Setting: {{.Setting}}

The introduction should be 2-3 paragraphs, set the scene vividly, and end with an intriguing situation
that invites the reader to make a decision about what happens next.

Write in second person perspective (using "you") to make it immersive.`)

func renderSynthesisSystem(story *core.Story) (string, error) {
	return util.Execute(synthesisSystem, story)
}

func renderSynthesisUser(in synthesisInput) (string, error) {
	return util.Execute(synthesisUser, in)
}

// reactionView is one character's reaction as rendered into the synthesis prompt.
type reactionView struct {
	Name     string
	Action   string
	Dialogue string
	Emotions string
}

func formatEmotions(emotions map[string]float64) string {
	parts := make([]string, 0, len(emotions))
	for _, k := range slices.Sorted(maps.Keys(emotions)) {
		parts = append(parts, fmt.Sprintf("%s: %v", k, emotions[k]))
	}
	return strings.Join(parts, ", ")
}

package stimulus

import "github.com/verte-zerg/cogni/internal/model"

// Rule is an active task rule for the switcher: the player clicks when the
// stimulus matches and holds otherwise.
type Rule struct {
	Name   string
	Prompt string
	Match  func(model.SwitchStimulus) bool
}

// Rules lists every defined task rule. Levels unlock a prefix of this list.
var Rules = []Rule{
	{
		Name:   "color",
		Prompt: "Click if the object is red or blue",
		Match: func(s model.SwitchStimulus) bool {
			return s.Color == "red" || s.Color == "blue"
		},
	},
	{
		Name:   "shape",
		Prompt: "Click if the object is a circle or a square",
		Match: func(s model.SwitchStimulus) bool {
			return s.Shape == "circle" || s.Shape == "square"
		},
	},
	{
		Name:   "size",
		Prompt: "Click if the object is large",
		Match: func(s model.SwitchStimulus) bool {
			return s.Size == "large"
		},
	},
	{
		Name:   "number",
		Prompt: "Click if the number is even",
		Match: func(s model.SwitchStimulus) bool {
			return s.Number%2 == 0
		},
	},
	{
		Name:   "position",
		Prompt: "Click if the object is in the top half",
		Match: func(s model.SwitchStimulus) bool {
			return s.Position < 2
		},
	},
}

// Package card implements the interactive acceptance widget behind a
// Valentine's card: an escalating "sadness" counter, a randomized placer for
// the evading "No" control, and a one-shot acceptance gate that fires the SMS
// notification to the sender.
//
// Nothing in this package knows about HTTP or terminals. UI layers hold a
// *Widget, feed it engagement and accept events, and re-render from the View
// it returns.
package card

// MaxLevel is the highest engagement level. Further engagements are counted
// as MaxLevel.
const MaxLevel = 5

// Mood is the display state derived from an engagement level.
type Mood struct {
	Level      int    `json:"level"`
	Expression string `json:"expression"` // emoji shown as the face
	Mouth      string `json:"mouth"`      // animation class hint for the view
	Prompt     string `json:"prompt"`
}

// moods is indexed by level; one entry per level 0..MaxLevel.
var moods = [MaxLevel + 1]Mood{
	{Level: 0, Expression: "😊", Mouth: "happy", Prompt: "Please say yes! 😊"},
	{Level: 1, Expression: "😐", Mouth: "neutral", Prompt: "Are you sure? 😐"},
	{Level: 2, Expression: "😔", Mouth: "sad", Prompt: "I'm getting sad... 😔"},
	{Level: 3, Expression: "😢", Mouth: "sadder", Prompt: "Please reconsider... 😢"},
	{Level: 4, Expression: "😭", Mouth: "saddest", Prompt: "My heart is breaking... 😭"},
	{Level: 5, Expression: "💔", Mouth: "broken", Prompt: "You've broken my heart... 💔"},
}

// MoodFor returns the mood for level, clamping out-of-range levels to the
// ends of the table.
func MoodFor(level int) Mood {
	switch {
	case level < 0:
		return moods[0]
	case level > MaxLevel:
		return moods[MaxLevel]
	default:
		return moods[level]
	}
}

// Escalation counts engagements with the decline control. The zero value is
// ready to use at level 0. It is not safe for concurrent use; Widget guards it.
type Escalation struct {
	level int
}

// Engage records one engagement and returns the resulting mood.
func (e *Escalation) Engage() Mood {
	if e.level < MaxLevel {
		e.level++
	}
	return MoodFor(e.level)
}

// Level returns the current engagement level.
func (e *Escalation) Level() int { return e.level }

// Mood returns the mood for the current level without changing it.
func (e *Escalation) Mood() Mood { return MoodFor(e.level) }

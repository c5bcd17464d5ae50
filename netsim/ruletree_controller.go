package netsim

import (
	"math"

	"flowforge/flow"
	"flowforge/quantities"
	"flowforge/ruletree"
)

// RuleTreeController queries a trained RuleTree for the action governing
// its flow's current observation point on every ack, and applies it to the
// window and intersend delay. meter must be the same flow.Meter the
// WindowedSender records sends/acks into — RuleTreeController only reads
// it, never owns it, so it always observes the up-to-date point at ack
// time (the sender records the ack before invoking AckReceived).
type RuleTreeController struct {
	Tree  ruletree.RuleTree
	meter *flow.Meter
}

// NewRuleTreeController returns a controller that looks up actions in tree
// using the live observation point from meter.
func NewRuleTreeController(tree ruletree.RuleTree, meter *flow.Meter) *RuleTreeController {
	return &RuleTreeController{Tree: tree, meter: meter}
}

func (c *RuleTreeController) InitialSettings() LossyWindowSettings {
	return LossyWindowSettings{
		Window:         1,
		IntersendDelay: quantities.Seconds(defaultIntersendDelaySeconds),
	}
}

func (c *RuleTreeController) AckReceived(current *LossyWindowSettings, sentTime, receivedTime quantities.Time) {
	action, ok := c.Tree.Action(c.meter.Point())
	if !ok {
		// Outside the trained domain: leave settings unchanged rather than
		// guess.
		return
	}
	newWindow := math.Floor(float64(current.Window)*action.WindowMultiplier) + float64(action.WindowIncrement)
	if newWindow < 1 {
		newWindow = 1
	}
	current.Window = uint32(newWindow)
	current.IntersendDelay = action.IntersendDelay
}

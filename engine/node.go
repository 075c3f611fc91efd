package engine

// NodeType is the closed set of node kinds a Flow graph may contain.
//
// The interpreter dispatches on this discriminant; each value pairs with
// exactly one concrete NodeConfig implementation that carries its
// type-specific fields (see node_config.go).
type NodeType string

const (
	NodeTrigger     NodeType = "trigger"
	NodeButtonPress NodeType = "button_press"
	NodeAction      NodeType = "action"
	NodeCondition   NodeType = "condition"
	NodeBranch      NodeType = "branch"
	NodeDelay       NodeType = "delay"

	NodePlayerChoice          NodeType = "player_choice"
	NodeSimpleAB              NodeType = "simple_ab"
	NodeInput                 NodeType = "input"
	NodeRandomNumber          NodeType = "random_number"
	NodeCapacityAIMessage     NodeType = "capacity_ai_message"
	NodeCapacityPlayerMessage NodeType = "capacity_player_message"
	NodePauseResume           NodeType = "pause_resume"

	NodePrizeWheel      NodeType = "prize_wheel"
	NodeDiceRoll        NodeType = "dice_roll"
	NodeCoinFlip        NodeType = "coin_flip"
	NodeRPS             NodeType = "rps"
	NodeTimerChallenge  NodeType = "timer_challenge"
	NodeNumberGuess     NodeType = "number_guess"
	NodeSlotMachine     NodeType = "slot_machine"
	NodeCardDraw        NodeType = "card_draw"
	NodeSimonChallenge  NodeType = "simon_challenge"
	NodeReflexChallenge NodeType = "reflex_challenge"
)

// challengeNodeTypes names every node type that shares the generic
// challenge lifecycle (pre-message, pending-op registration, result routing
// by outcome handle).
var challengeNodeTypes = map[NodeType]bool{
	NodePrizeWheel:      true,
	NodeDiceRoll:        true,
	NodeCoinFlip:        true,
	NodeRPS:             true,
	NodeTimerChallenge:  true,
	NodeNumberGuess:     true,
	NodeSlotMachine:     true,
	NodeCardDraw:        true,
	NodeSimonChallenge:  true,
	NodeReflexChallenge: true,
}

// IsChallenge reports whether t follows the shared challenge node lifecycle.
func (t NodeType) IsChallenge() bool { return challengeNodeTypes[t] }

// NodeConfig is the tagged-variant payload carried by a Node. Each NodeType
// pairs with exactly one concrete implementation below.
type NodeConfig interface {
	NodeType() NodeType
}

// Node is a single vertex in a Flow graph: an identity, a type discriminant,
// and a type-specific configuration record.
type Node struct {
	ID     string
	Type   NodeType
	Config NodeConfig
}

// Edge connects two nodes. Handle drives routing out of the source node:
// "true-N"/"false" for conditions, "branch-N" for branches, "immediate"/
// "completion" for deferred-completion nodes, "source-pause"/"source-resume"
// for pause_resume, or an arbitrary choice/challenge outcome id. An empty
// Handle means "the node's only/default outgoing edge".
type Edge struct {
	From   string
	To     string
	Handle string
}

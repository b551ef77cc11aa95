package conversation

type State int

const (
	StateInit State = iota
	StateSegmenting
	StateProcessingTurns
	StateAssembling
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateSegmenting:
		return "segmenting"
	case StateProcessingTurns:
		return "processing_turns"
	case StateAssembling:
		return "assembling"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// TurnStage tracks the progress of a single turn.
type TurnStage int

const (
	StageExtracting TurnStage = iota
	StageIdentifying
	StageTranscribing
	StageRecorded
)

func (s TurnStage) String() string {
	switch s {
	case StageExtracting:
		return "extracting"
	case StageIdentifying:
		return "identifying"
	case StageTranscribing:
		return "transcribing"
	case StageRecorded:
		return "recorded"
	default:
		return "unknown"
	}
}

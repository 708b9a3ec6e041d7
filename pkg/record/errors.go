package record

import "errors"

var (
	ErrTypeDataMismatch      = errors.New("record: type keys and values differ in length")
	ErrUnknownTaskType       = errors.New("record: unknown task type")
	ErrUnknownPriority       = errors.New("record: unknown priority")
	ErrSubtaskCycle          = errors.New("record: subtask would become its own ancestor")
	ErrNilSubtask            = errors.New("record: nil subtask")
	ErrSubtaskOwned          = errors.New("record: task is already a subtask")
	ErrSubtaskDepth          = errors.New("record: subtasks nested too deeply")
	ErrInvalidAdvancedRepeat = errors.New("record: invalid advanced repeat phrase")
	ErrMissingDisplayName    = errors.New("record: custom action needs an app display name")
)

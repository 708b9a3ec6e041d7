package record

import (
	"fmt"
	"strings"
)

// TaskType is the semantic variant of a task. Codes are part of the archive
// format and must never be renumbered.
type TaskType uint8

const (
	TypeNormal TaskType = iota
	TypeProject
	TypeCallContact
	TypeSMSContact
	TypeEmailContact
	TypeVisitLocation
	TypeURL
	TypeChecklist
	TypeCustom // custom actions, see Task.SetCustomAction
)

func (t TaskType) String() string {
	switch t {
	case TypeNormal:
		return "normal"
	case TypeProject:
		return "project"
	case TypeCallContact:
		return "call-contact"
	case TypeSMSContact:
		return "sms-contact"
	case TypeEmailContact:
		return "email-contact"
	case TypeVisitLocation:
		return "visit-location"
	case TypeURL:
		return "url"
	case TypeChecklist:
		return "checklist"
	case TypeCustom:
		return "custom"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Valid reports whether t is one of the known task types.
func (t TaskType) Valid() bool { return t <= TypeCustom }

// UsesTypeData reports whether consumers read type keys/values for t.
func (t TaskType) UsesTypeData() bool {
	switch t {
	case TypeCallContact, TypeSMSContact, TypeEmailContact, TypeVisitLocation, TypeURL, TypeCustom:
		return true
	default:
		return false
	}
}

// HasSubtasks reports whether consumers import subtasks for t.
func (t TaskType) HasSubtasks() bool { return t == TypeProject || t == TypeChecklist }

// ParseTaskType maps the String form back to a TaskType.
func ParseTaskType(s string) (TaskType, error) {
	for t := TypeNormal; t <= TypeCustom; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return TypeNormal, fmt.Errorf("%w: %q", ErrUnknownTaskType, s)
}

// Priority of a task. Codes start at 1 to match the host applications.
type Priority uint8

const (
	PriorityHigh Priority = iota + 1
	PriorityMedium
	PriorityLow
	PriorityNone
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "High"
	case PriorityMedium:
		return "Medium"
	case PriorityLow:
		return "Low"
	case PriorityNone:
		return "None"
	default:
		return fmt.Sprintf("Priority(%d)", uint8(p))
	}
}

// Valid reports whether p is a known priority code.
func (p Priority) Valid() bool { return p >= PriorityHigh && p <= PriorityNone }

// ParsePriority accepts the String form, case-insensitively.
func ParsePriority(s string) (Priority, error) {
	for p := PriorityHigh; p <= PriorityNone; p++ {
		if strings.EqualFold(p.String(), strings.TrimSpace(s)) {
			return p, nil
		}
	}
	return PriorityNone, fmt.Errorf("%w: %q", ErrUnknownPriority, s)
}

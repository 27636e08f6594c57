package models

import "strings"

// CourseDraft holds unsaved edits of the management page. Objective edits
// live here until the next explicit update.
type CourseDraft struct {
	Title       string
	Description string
	Objectives  []string
}

// ObjectiveList is an ordered list of learning objectives.
type ObjectiveList []string

// Add returns a copy with the trimmed objective appended. Blank input leaves
// the list unchanged.
func (l ObjectiveList) Add(objective string) ObjectiveList {
	out := l.clone()
	objective = strings.TrimSpace(objective)
	if objective == "" {
		return out
	}
	return append(out, objective)
}

// Remove returns a copy without the element at index. Out of range indexes
// leave the list unchanged.
func (l ObjectiveList) Remove(index int) ObjectiveList {
	if index < 0 || index >= len(l) {
		return l.clone()
	}
	out := make(ObjectiveList, 0, len(l)-1)
	out = append(out, l[:index]...)
	return append(out, l[index+1:]...)
}

func (l ObjectiveList) clone() ObjectiveList {
	out := make(ObjectiveList, len(l))
	copy(out, l)
	return out
}

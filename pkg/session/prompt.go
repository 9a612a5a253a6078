package session

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// PromptSpec assembles the system instruction sent with every dialogue
// context: the persona text plus a situational preamble with the user's
// location and the current wall-clock time.
//
// When PersonaFile is set the file is re-read on every Render, so edits
// made through the control panel apply on the next turn. Persona serves
// as the fallback when the file is unreadable.
type PromptSpec struct {
	Persona     string
	PersonaFile string
	Location    string
	Now         func() time.Time
}

// Render produces the full system instruction.
func (p PromptSpec) Render() string {
	persona := p.Persona
	if p.PersonaFile != "" {
		if data, err := os.ReadFile(p.PersonaFile); err == nil {
			persona = string(data)
		}
	}
	sections := []string{strings.TrimSpace(persona)}

	if p.Location != "" {
		sections = append(sections, fmt.Sprintf("The user's current location is %s.", p.Location))
	}

	now := time.Now()
	if p.Now != nil {
		now = p.Now()
	}
	sections = append(sections, fmt.Sprintf("The current date and time is %s.", now.Format("Monday, 2 January 2006 at 15:04")))

	return strings.Join(sections, "\n\n")
}

package booking

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/botpe-relay/internal/botpe"
	"github.com/wolfman30/botpe-relay/internal/events"
)

// ErrInvalidSelection marks a list reply that does not match the rows last offered.
var ErrInvalidSelection = errors.New("booking: invalid selection")

// InputKind classifies what the user sent.
type InputKind int

const (
	InputOther InputKind = iota
	InputText
	InputListReply
	InputButtonReply
	InputLocation
)

// Input is one inbound user action, already reduced from a webhook item.
type Input struct {
	Kind        InputKind
	Identity    string
	AccountID   string
	ContactName string
	Text        string
	ReplyID     string
	ReplyTitle  string
	Location    *events.Coordinates
	At          time.Time
}

// Action tells the engine what to do with the session after sending the prompt.
type Action int

const (
	ActionNone Action = iota
	ActionSave
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionSave:
		return "save"
	case ActionDelete:
		return "delete"
	}
	return "none"
}

// Prompt is the single outbound message a transition produces.
type Prompt struct {
	Kind PromptKind
	List botpe.ListMessage
	// Body is the location request text.
	Body  string
	CTA   botpe.CTAURLMessage
	Delay time.Duration
}

// Result is the outcome of one transition.
type Result struct {
	Session *Session
	Prompt  *Prompt
	Action  Action
	// Outcome is a short label for logs and metrics.
	Outcome string
	// Err carries recoverable input errors such as ErrInvalidSelection.
	Err error
}

// Booking is the summary of a completed conversation, set on the final Result.
type Booking struct {
	Identity    string
	AccountID   string
	PatientName string
	Department  string
	Hospital    string
	Doctor      string
	Date        string
	TimeSlot    string
	Location    *events.Coordinates
	BookedAt    time.Time
}

// MachineOptions configures trigger and confirmation behavior.
type MachineOptions struct {
	Trigger string
	// TriggerResets lets the trigger restart a session that is mid-flow.
	TriggerResets   bool
	ConfirmationURL string
}

// Typing delays before each prompt.
const (
	delayGreeting     = 1500 * time.Millisecond
	delayLocationAsk  = 1500 * time.Millisecond
	delayHospitals    = 2000 * time.Millisecond
	delayDoctors      = 2000 * time.Millisecond
	delayDates        = 1500 * time.Millisecond
	delaySlots        = 1500 * time.Millisecond
	delayConfirmation = 2000 * time.Millisecond
	delayReprompt     = 800 * time.Millisecond
)

// Machine is the pure booking state machine. It never performs I/O.
type Machine struct {
	catalog *Catalog
	opts    MachineOptions
}

func NewMachine(catalog *Catalog, opts MachineOptions) *Machine {
	if catalog == nil {
		panic("booking: catalog required")
	}
	opts.Trigger = strings.ToLower(strings.TrimSpace(opts.Trigger))
	if opts.Trigger == "" {
		opts.Trigger = "dr1"
	}
	if strings.TrimSpace(opts.ConfirmationURL) == "" {
		opts.ConfirmationURL = "https://botpe.in/"
	}
	return &Machine{catalog: catalog, opts: opts}
}

// IsTrigger reports whether text starts a booking. Only case is ignored; " dr1 " is not a trigger.
func (m *Machine) IsTrigger(text string) bool {
	return strings.EqualFold(text, m.opts.Trigger)
}

// Transition computes the next session and prompt. current may be nil and is never mutated.
func (m *Machine) Transition(current *Session, in Input) Result {
	if in.Kind == InputText && m.IsTrigger(in.Text) && (current == nil || m.opts.TriggerResets) {
		return m.start(in)
	}
	if current == nil {
		return Result{Action: ActionNone, Outcome: "no_session"}
	}
	next := current.Clone()
	next.UpdatedAt = in.At

	switch in.Kind {
	case InputListReply:
		if !current.Stage.AwaitsList() {
			return Result{Action: ActionNone, Outcome: "unexpected_list_reply"}
		}
		return m.selectRow(next, in)
	case InputLocation:
		if !current.Stage.AwaitsLocation() {
			return Result{Action: ActionNone, Outcome: "unexpected_location"}
		}
		return m.receiveLocation(next, in)
	case InputText:
		return m.reprompt(next, "reprompt", nil)
	}
	return Result{Action: ActionNone, Outcome: "ignored"}
}

func (m *Machine) start(in Input) Result {
	full, first := Names(in.ContactName)
	s := &Session{
		Identity:    in.Identity,
		AccountID:   in.AccountID,
		Stage:       StageInitial,
		DisplayName: full,
		FirstName:   first,
		Selections:  map[string]string{},
		StartedAt:   in.At,
		UpdatedAt:   in.At,
	}
	body := fmt.Sprintf("Hello %s! 👋\n\nWelcome to %s. I'm here to help you book a doctor's appointment.\n\nWhich department would you like to consult?",
		full, m.catalog.HospitalName)
	prompt := m.listPrompt(s, m.catalog.HospitalName, body, "Select Department", delayGreeting)
	return Result{Session: s, Prompt: prompt, Action: ActionSave, Outcome: "started"}
}

func (m *Machine) selectRow(s *Session, in Input) Result {
	title, err := m.resolve(s, in.ReplyID)
	if err != nil {
		return m.reprompt(s, "invalid_selection", err)
	}
	step := listStages[s.Stage]
	if _, recorded := s.Selections[step.key]; !recorded {
		if s.Selections == nil {
			s.Selections = map[string]string{}
		}
		s.Selections[step.key] = title
	}
	s.Stage = step.next

	switch s.Stage {
	case StageDepartmentSelected:
		s.Offered = nil
		s.LastPromptKind = PromptLocationRequest
		body := fmt.Sprintf("Great choice, %s! 🏥\n\nTo find the nearest %s specialists, please share your current location.",
			s.FirstName, s.Selections[SelectionDepartment])
		return Result{
			Session: s,
			Prompt:  &Prompt{Kind: PromptLocationRequest, Body: body, Delay: delayLocationAsk},
			Action:  ActionSave,
			Outcome: "advanced",
		}
	case StageHospitalSelected:
		body := fmt.Sprintf("Excellent! 👨‍⚕️\n\nHere are the %s doctors available at %s:",
			s.Selections[SelectionDepartment], s.Selections[SelectionHospital])
		return m.advanceList(s, "Available Doctors", body, "Select Doctor", delayDoctors)
	case StageDoctorSelected:
		body := fmt.Sprintf("Perfect choice! 📅\n\nWhen would you like to book your appointment with %s?",
			s.Selections[SelectionDoctor])
		return m.advanceList(s, "Available Dates", body, "Select Date", delayDates)
	case StageDateSelected:
		body := fmt.Sprintf("Great! ⏰\n\nPlease select your preferred time slot for %s:", s.Selections[SelectionDate])
		return m.advanceList(s, "Available Time Slots", body, "Select Time", delaySlots)
	}
	return m.confirm(s, in)
}

func (m *Machine) receiveLocation(s *Session, in Input) Result {
	if in.Location != nil {
		loc := *in.Location
		s.Location = &loc
	}
	s.Stage = StageLocationReceived
	body := fmt.Sprintf("Perfect! 📍\n\nHere are the nearest %s hospitals with %s specialists:",
		m.catalog.HospitalName, s.Selections[SelectionDepartment])
	return m.advanceList(s, "Nearby Hospitals", body, "Select Hospital", delayHospitals)
}

func (m *Machine) confirm(s *Session, in Input) Result {
	body := fmt.Sprintf("🎉 Appointment Confirmed!\n\n*Patient:* %s\n*Department:* %s\n*Hospital:* %s\n*Doctor:* %s\n*Date:* %s\n*Time:* %s\n\nYour appointment has been booked successfully! Click below to view details and download your appointment slip.",
		s.DisplayName,
		s.Selections[SelectionDepartment],
		s.Selections[SelectionHospital],
		s.Selections[SelectionDoctor],
		s.Selections[SelectionDate],
		s.Selections[SelectionTimeSlot],
	)
	s.Offered = nil
	s.LastPromptKind = PromptCTA
	return Result{
		Session: s,
		Prompt: &Prompt{
			Kind: PromptCTA,
			CTA: botpe.CTAURLMessage{
				Body:        body,
				DisplayText: "View Appointment",
				URL:         m.opts.ConfirmationURL,
			},
			Delay: delayConfirmation,
		},
		Action:  ActionDelete,
		Outcome: "confirmed",
	}
}

// Summary returns the booking captured by a confirmed session.
func (s *Session) Summary(at time.Time) Booking {
	return Booking{
		Identity:    s.Identity,
		AccountID:   s.AccountID,
		PatientName: s.DisplayName,
		Department:  s.Selections[SelectionDepartment],
		Hospital:    s.Selections[SelectionHospital],
		Doctor:      s.Selections[SelectionDoctor],
		Date:        s.Selections[SelectionDate],
		TimeSlot:    s.Selections[SelectionTimeSlot],
		Location:    s.Location,
		BookedAt:    at,
	}
}

func (m *Machine) advanceList(s *Session, header, body, button string, delay time.Duration) Result {
	return Result{
		Session: s,
		Prompt:  m.listPrompt(s, header, body, button, delay),
		Action:  ActionSave,
		Outcome: "advanced",
	}
}

// reprompt re-sends the prompt the stage is waiting on, prefixed with a correction.
func (m *Machine) reprompt(s *Session, outcome string, err error) Result {
	if s.LastPromptKind == PromptLocationRequest || s.Stage.AwaitsLocation() {
		s.LastPromptKind = PromptLocationRequest
		body := fmt.Sprintf("%s, please share your location using the button below so I can find the nearest hospitals for you. 📍", s.FirstName)
		return Result{
			Session: s,
			Prompt:  &Prompt{Kind: PromptLocationRequest, Body: body, Delay: delayReprompt},
			Action:  ActionSave,
			Outcome: outcome,
			Err:     err,
		}
	}
	prefix := fmt.Sprintf("%s, please select from the options below:\n\n", s.FirstName)
	var header, body, button string
	switch s.Stage {
	case StageInitial:
		header, body, button = m.catalog.HospitalName, "Which department would you like to consult?", "Select Department"
	case StageLocationReceived:
		header, body, button = "Nearby Hospitals", "Here are the nearest hospitals:", "Select Hospital"
	case StageHospitalSelected:
		header, body, button = "Available Doctors", "Here are the available doctors:", "Select Doctor"
	case StageDoctorSelected:
		header, body, button = "Available Dates", "Please select a date:", "Select Date"
	case StageDateSelected:
		header, body, button = "Available Time Slots", "Please select a time slot:", "Select Time"
	default:
		return Result{Action: ActionNone, Outcome: "ignored", Err: err}
	}
	return Result{
		Session: s,
		Prompt:  m.listPrompt(s, header, prefix+body, button, delayReprompt),
		Action:  ActionSave,
		Outcome: outcome,
		Err:     err,
	}
}

// listPrompt builds the list for the session's current stage and snapshots its rows.
func (m *Machine) listPrompt(s *Session, header, body, button string, delay time.Duration) *Prompt {
	sections, offered := rows(m.catalog.ItemsFor(s.Stage))
	s.Offered = offered
	s.LastPromptKind = PromptList
	return &Prompt{
		Kind: PromptList,
		List: botpe.ListMessage{
			Header:     botpe.Clip(header, botpe.MaxHeaderText),
			Body:       body,
			ButtonText: botpe.Clip(button, botpe.MaxListButtonText),
			Sections:   sections,
		},
		Delay: delay,
	}
}

// resolve maps a reply id to the title offered in the last list.
func (m *Machine) resolve(s *Session, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: empty id", ErrInvalidSelection)
	}
	if title, ok := s.Offered[id]; ok {
		return title, nil
	}
	return "", fmt.Errorf("%w: %q not offered at %s", ErrInvalidSelection, id, s.Stage)
}

package booking

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/botpe-relay/internal/events"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := LoadCatalog("")
	require.NoError(t, err)
	return c
}

func newTestMachine(t *testing.T, resets bool) *Machine {
	t.Helper()
	return NewMachine(testCatalog(t), MachineOptions{Trigger: "DR1", TriggerResets: resets, ConfirmationURL: "https://botpe.in/"})
}

var testNow = time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)

func textInput(text string) Input {
	return Input{Kind: InputText, Identity: "919876543210", AccountID: "secondary", ContactName: "Asha Kumar", Text: text, At: testNow}
}

func listReply(id string) Input {
	return Input{Kind: InputListReply, Identity: "919876543210", AccountID: "secondary", ReplyID: id, At: testNow}
}

func locationInput() Input {
	return Input{Kind: InputLocation, Identity: "919876543210", Location: &events.Coordinates{Latitude: 12.97, Longitude: 77.59}, At: testNow}
}

func TestTriggerStartsSession(t *testing.T) {
	m := newTestMachine(t, true)
	res := m.Transition(nil, textInput("Dr1"))

	require.Equal(t, ActionSave, res.Action)
	require.NotNil(t, res.Session)
	assert.Equal(t, StageInitial, res.Session.Stage)
	assert.Equal(t, "Asha Kumar", res.Session.DisplayName)
	assert.Equal(t, "Asha", res.Session.FirstName)
	assert.Equal(t, PromptList, res.Session.LastPromptKind)

	require.NotNil(t, res.Prompt)
	assert.Equal(t, PromptList, res.Prompt.Kind)
	assert.Equal(t, 1500*time.Millisecond, res.Prompt.Delay)
	list := res.Prompt.List
	assert.Equal(t, "CarePoint Hospitals", list.Header)
	assert.Equal(t, "Select Department", list.ButtonText)
	assert.True(t, strings.HasPrefix(list.Body, "Hello Asha Kumar! 👋\n\nWelcome to CarePoint Hospitals."))
	require.Len(t, list.Sections, 1)

	departments := testCatalog(t).Departments
	require.Len(t, list.Sections[0].Rows, len(departments))
	for i, row := range list.Sections[0].Rows {
		assert.Equal(t, departments[i].Title, row.Title)
		assert.Equal(t, departments[i].Subtitle, row.Description)
	}
}

func TestTriggerWithoutContactName(t *testing.T) {
	m := newTestMachine(t, true)
	in := textInput("dr1")
	in.ContactName = ""
	res := m.Transition(nil, in)
	assert.Equal(t, "there", res.Session.FirstName)
	assert.True(t, strings.HasPrefix(res.Prompt.List.Body, "Hello there!"))
}

func TestTriggerMatchesExactTokenIgnoringCase(t *testing.T) {
	m := newTestMachine(t, true)
	assert.True(t, m.IsTrigger("dr1"))
	assert.True(t, m.IsTrigger("DR1"))
	for _, text := range []string{" dr1 ", "dr1\n", "dr 1", "dr12", ""} {
		assert.False(t, m.IsTrigger(text), "%q", text)
		res := m.Transition(nil, textInput(text))
		assert.Equal(t, ActionNone, res.Action, "%q", text)
		assert.Nil(t, res.Session, "%q", text)
	}
}

func TestNoSessionIgnoresNonTrigger(t *testing.T) {
	m := newTestMachine(t, true)
	for _, in := range []Input{textInput("hello"), listReply("0"), locationInput()} {
		res := m.Transition(nil, in)
		assert.Equal(t, ActionNone, res.Action)
		assert.Nil(t, res.Prompt)
	}
}

func TestLinearProgression(t *testing.T) {
	m := newTestMachine(t, true)
	catalog := testCatalog(t)

	res := m.Transition(nil, textInput("dr1"))
	s := res.Session

	steps := []struct {
		in      Input
		stage   Stage
		key     string
		want    string
		prompt  PromptKind
		header  string
		button  string
		delayMs int
	}{
		{listReply("1"), StageDepartmentSelected, SelectionDepartment, catalog.Departments[1].Title, PromptLocationRequest, "", "", 1500},
		{locationInput(), StageLocationReceived, "", "", PromptList, "Nearby Hospitals", "Select Hospital", 2000},
		{listReply("0"), StageHospitalSelected, SelectionHospital, catalog.Locations[0].Title, PromptList, "Available Doctors", "Select Doctor", 2000},
		{listReply("2"), StageDoctorSelected, SelectionDoctor, catalog.Doctors[2].Title, PromptList, "Available Dates", "Select Date", 1500},
		{listReply("3"), StageDateSelected, SelectionDate, catalog.Dates[3].Title, PromptList, "Available Time Slots", "Select Time", 1500},
	}
	for _, step := range steps {
		before := s.Clone()
		res = m.Transition(s, step.in)
		require.Equal(t, ActionSave, res.Action, "stage %s", step.stage)
		assert.Equal(t, before, s, "transition must not mutate the current session")

		s = res.Session
		assert.Equal(t, step.stage, s.Stage)
		assert.Equal(t, step.prompt, res.Prompt.Kind)
		assert.Equal(t, time.Duration(step.delayMs)*time.Millisecond, res.Prompt.Delay)
		if step.key != "" {
			assert.Equal(t, step.want, s.Selections[step.key])
		}
		for k, v := range before.Selections {
			assert.Equal(t, v, s.Selections[k], "selection %s must not change", k)
		}
		if step.prompt == PromptList {
			assert.Equal(t, step.header, res.Prompt.List.Header)
			assert.Equal(t, step.button, res.Prompt.List.ButtonText)
		}
	}

	assert.Equal(t, 12.97, s.Location.Latitude)
	assert.Contains(t, steps[0].want, "Orthopedics")

	res = m.Transition(s, listReply("4"))
	require.Equal(t, ActionDelete, res.Action)
	assert.Equal(t, "confirmed", res.Outcome)
	require.Equal(t, PromptCTA, res.Prompt.Kind)
	assert.Equal(t, "View Appointment", res.Prompt.CTA.DisplayText)
	assert.Equal(t, "https://botpe.in/", res.Prompt.CTA.URL)
	body := res.Prompt.CTA.Body
	assert.True(t, strings.HasPrefix(body, "🎉 Appointment Confirmed!\n\n*Patient:* Asha Kumar\n*Department:* Orthopedics"))
	assert.Contains(t, body, "*Time:* "+catalog.TimeSlots[4].Title)

	summary := res.Session.Summary(testNow)
	assert.Equal(t, catalog.Doctors[2].Title, summary.Doctor)
	assert.Equal(t, catalog.TimeSlots[4].Title, summary.TimeSlot)
}

func TestInvalidTextReprompts(t *testing.T) {
	m := newTestMachine(t, true)
	s := m.Transition(nil, textInput("dr1")).Session

	res := m.Transition(s, textInput("cardiology please"))
	require.Equal(t, ActionSave, res.Action)
	assert.Equal(t, StageInitial, res.Session.Stage)
	assert.Equal(t, PromptList, res.Prompt.Kind)
	assert.Equal(t, 800*time.Millisecond, res.Prompt.Delay)
	assert.Equal(t, "Asha, please select from the options below:\n\nWhich department would you like to consult?", res.Prompt.List.Body)
	assert.Equal(t, "CarePoint Hospitals", res.Prompt.List.Header)

	s = m.Transition(s, listReply("0")).Session
	res = m.Transition(s, textInput("here"))
	assert.Equal(t, StageDepartmentSelected, res.Session.Stage)
	assert.Equal(t, PromptLocationRequest, res.Prompt.Kind)
	assert.Equal(t, "Asha, please share your location using the button below so I can find the nearest hospitals for you. 📍", res.Prompt.Body)
}

func TestRepromptBodiesPerStage(t *testing.T) {
	m := newTestMachine(t, true)
	s := m.Transition(nil, textInput("dr1")).Session
	s = m.Transition(s, listReply("0")).Session
	s = m.Transition(s, locationInput()).Session

	want := []string{
		"Here are the nearest hospitals:",
		"Here are the available doctors:",
		"Please select a date:",
		"Please select a time slot:",
	}
	for i, body := range want {
		res := m.Transition(s, textInput("?"))
		assert.Equal(t, "Asha, please select from the options below:\n\n"+body, res.Prompt.List.Body)
		assert.Equal(t, s.Stage, res.Session.Stage)
		if i < len(want)-1 {
			s = m.Transition(s, listReply("0")).Session
		}
	}
}

func TestInvalidSelectionReprompts(t *testing.T) {
	m := newTestMachine(t, true)
	s := m.Transition(nil, textInput("dr1")).Session

	for _, id := range []string{"99", "-1", "abc", ""} {
		res := m.Transition(s, listReply(id))
		require.Equal(t, ActionSave, res.Action, "id %q", id)
		assert.True(t, errors.Is(res.Err, ErrInvalidSelection))
		assert.Equal(t, "invalid_selection", res.Outcome)
		assert.Equal(t, StageInitial, res.Session.Stage)
		assert.Empty(t, res.Session.Selections)
		assert.Equal(t, PromptList, res.Prompt.Kind)
	}
}

func TestUnexpectedInputsIgnored(t *testing.T) {
	m := newTestMachine(t, true)
	s := m.Transition(nil, textInput("dr1")).Session

	res := m.Transition(s, locationInput())
	assert.Equal(t, ActionNone, res.Action)
	assert.Equal(t, "unexpected_location", res.Outcome)

	res = m.Transition(s, Input{Kind: InputButtonReply, Identity: s.Identity, ReplyID: "0"})
	assert.Equal(t, ActionNone, res.Action)

	s = m.Transition(s, listReply("0")).Session
	res = m.Transition(s, listReply("0"))
	assert.Equal(t, ActionNone, res.Action)
	assert.Equal(t, "unexpected_list_reply", res.Outcome)

	res = m.Transition(s, Input{Kind: InputOther, Identity: s.Identity})
	assert.Equal(t, ActionNone, res.Action)
}

func TestTriggerMidFlowPolicy(t *testing.T) {
	resetting := newTestMachine(t, true)
	s := resetting.Transition(nil, textInput("dr1")).Session
	s = resetting.Transition(s, listReply("2")).Session

	res := resetting.Transition(s, textInput("dr1"))
	assert.Equal(t, "started", res.Outcome)
	assert.Equal(t, StageInitial, res.Session.Stage)
	assert.Empty(t, res.Session.Selections)

	keeping := newTestMachine(t, false)
	s = keeping.Transition(nil, textInput("dr1")).Session
	s = keeping.Transition(s, listReply("2")).Session

	res = keeping.Transition(s, textInput("dr1"))
	assert.Equal(t, "reprompt", res.Outcome)
	assert.Equal(t, StageDepartmentSelected, res.Session.Stage)
	assert.Equal(t, PromptLocationRequest, res.Prompt.Kind)
}

func TestNames(t *testing.T) {
	full, first := Names("  Ravi   Shankar ")
	assert.Equal(t, "Ravi   Shankar", full)
	assert.Equal(t, "Ravi", first)
	full, first = Names("")
	assert.Equal(t, "there", full)
	assert.Equal(t, "there", first)
}

package booking

// Stage is a point in the linear booking conversation.
type Stage string

const (
	StageInitial            Stage = "INITIAL"
	StageDepartmentSelected Stage = "DEPARTMENT_SELECTED"
	StageLocationReceived   Stage = "LOCATION_RECEIVED"
	StageHospitalSelected   Stage = "HOSPITAL_SELECTED"
	StageDoctorSelected     Stage = "DOCTOR_SELECTED"
	StageDateSelected       Stage = "DATE_SELECTED"
	// StageSlotSelected is terminal and never stored.
	StageSlotSelected Stage = "SLOT_SELECTED"
)

// Selection keys recorded in Session.Selections.
const (
	SelectionDepartment = "department"
	SelectionHospital   = "hospital"
	SelectionDoctor     = "doctor"
	SelectionDate       = "date"
	SelectionTimeSlot   = "time_slot"
)

// listStage describes a stage that waits on a list reply.
type listStage struct {
	// key is the selection recorded when the reply arrives.
	key  string
	next Stage
}

var listStages = map[Stage]listStage{
	StageInitial:          {key: SelectionDepartment, next: StageDepartmentSelected},
	StageLocationReceived: {key: SelectionHospital, next: StageHospitalSelected},
	StageHospitalSelected: {key: SelectionDoctor, next: StageDoctorSelected},
	StageDoctorSelected:   {key: SelectionDate, next: StageDateSelected},
	StageDateSelected:     {key: SelectionTimeSlot, next: StageSlotSelected},
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	switch s {
	case StageInitial, StageDepartmentSelected, StageLocationReceived,
		StageHospitalSelected, StageDoctorSelected, StageDateSelected, StageSlotSelected:
		return true
	}
	return false
}

// AwaitsList reports whether the stage expects a list reply.
func (s Stage) AwaitsList() bool {
	_, ok := listStages[s]
	return ok
}

// AwaitsLocation reports whether the stage expects a shared location.
func (s Stage) AwaitsLocation() bool {
	return s == StageDepartmentSelected
}

package wizard

import (
	"context"
	"fmt"
)

// GenericFailureMessage is shown to the user when a collaborator call fails.
const GenericFailureMessage = "We could not reach the server. Please try again, or contact support if the problem persists."

// Student is a beneficiary of a client as listed by the directory.
type Student struct {
	ID         string `json:"id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	GradeLevel string `json:"grade_level,omitempty"`
}

// Subject is an entry of the subject catalog.
type Subject struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Directory lists the students attached to a client.
type Directory interface {
	Beneficiaries(ctx context.Context, clientID string) ([]Student, error)
}

// Catalog lists the subjects that can be taught.
type Catalog interface {
	ListSubjects(ctx context.Context) ([]Subject, error)
}

// Settlements persists a submitted settlement note and returns its id.
type Settlements interface {
	SubmitSettlement(ctx context.Context, payload Payload) (string, error)
}

// CollaboratorError reports a failed call to a directory, catalog or settlement
// service. The wizard state is left untouched when one is returned.
type CollaboratorError struct {
	Op      string
	Message string
	Err     error
}

func collaboratorError(op string, err error) *CollaboratorError {
	return &CollaboratorError{Op: op, Message: GenericFailureMessage, Err: err}
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// UserMessage is the message to present instead of the underlying error.
func (e *CollaboratorError) UserMessage() string {
	if e.Message == "" {
		return GenericFailureMessage
	}
	return e.Message
}

// LoadStudents fetches the students of the selected client and keeps them as the
// selectable list of Step 2. Without a selected client the list is empty.
func (m *Machine) LoadStudents(ctx context.Context, dir Directory) ([]Student, error) {
	clientID := m.state.Step1.ClientID
	if clientID == "" {
		m.students = nil
		return nil, nil
	}

	students, err := dir.Beneficiaries(ctx, clientID)
	if err != nil {
		return nil, collaboratorError("list beneficiaries", err)
	}
	m.students = append([]Student(nil), students...)
	return append([]Student(nil), students...), nil
}

// LoadSubjects fetches the subject catalog used for selection and classification.
func (m *Machine) LoadSubjects(ctx context.Context, cat Catalog) ([]Subject, error) {
	subjects, err := cat.ListSubjects(ctx)
	if err != nil {
		return nil, collaboratorError("list subjects", err)
	}
	m.subjects = append([]Subject(nil), subjects...)
	return append([]Subject(nil), subjects...), nil
}

// Students returns the selectable students loaded by LoadStudents.
func (m *Machine) Students() []Student {
	return append([]Student(nil), m.students...)
}

// Subjects returns the catalog loaded by LoadSubjects.
func (m *Machine) Subjects() []Subject {
	return append([]Subject(nil), m.subjects...)
}

package homework

import "maps"

// Response field names as sent by the review API.
const (
	FieldHomeworks    = "homeworks"
	FieldCurrentDate  = "current_date"
	FieldHomeworkName = "homework_name"
	FieldStatus       = "status"
)

// Status is a review status code.
type Status string

const (
	StatusApproved  Status = "approved"
	StatusReviewing Status = "reviewing"
	StatusRejected  Status = "rejected"
)

// MessageTemplate formats a status change notification: name, then verdict.
const MessageTemplate = `Изменился статус проверки работы "%s" - %s`

var defaultVerdicts = map[Status]string{
	StatusApproved:  "Работа проверена: ревьюеру всё понравилось. Ура!",
	StatusReviewing: "Работа взята на проверку ревьюером.",
	StatusRejected:  "Работа проверена: у ревьюера есть замечания.",
}

// DefaultVerdicts returns a copy of the fixed verdict table.
func DefaultVerdicts() map[Status]string {
	return maps.Clone(defaultVerdicts)
}

// Homework is one record from the homeworks list.
type Homework struct {
	Name   string
	Status Status
}

func recordFrom(m map[string]any) Homework {
	name, _ := m[FieldHomeworkName].(string)
	status, _ := m[FieldStatus].(string)
	return Homework{Name: name, Status: Status(status)}
}

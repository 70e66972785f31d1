package homework

import (
	"fmt"
	"maps"

	logx "hwbot/pkg/logx"
)

// Translator turns a homework record into the notification text.
// The verdict table is fixed at construction.
type Translator struct {
	log      logx.Logger
	verdicts map[Status]string
}

// NewTranslator copies verdicts; nil or empty means DefaultVerdicts.
func NewTranslator(verdicts map[Status]string, log logx.Logger) *Translator {
	if log.IsZero() {
		log = logx.Nop()
	}
	if len(verdicts) == 0 {
		verdicts = defaultVerdicts
	}
	return &Translator{log: log, verdicts: maps.Clone(verdicts)}
}

// Verdict returns the fixed text for a status code.
func (t *Translator) Verdict(s Status) (string, bool) {
	v, ok := t.verdicts[s]
	return v, ok
}

// ParseStatus builds the message for hw. Callers must only pass a record when
// the homeworks list is non-empty; nil is reported as a domain failure.
func (t *Translator) ParseStatus(hw *Homework) (string, error) {
	const op = "parse status"

	if hw == nil {
		t.log.Error("homework record is empty")
		return "", Wrap(KindDomain, op, ErrEmptyRecord)
	}
	if hw.Name == "" {
		t.log.Error("homework name is empty", logx.String(FieldHomeworkName, hw.Name))
		return "", Wrap(KindDomain, op, missing(FieldHomeworkName))
	}
	verdict, ok := t.verdicts[hw.Status]
	if !ok {
		t.log.Error("unknown homework status", logx.String(FieldStatus, string(hw.Status)))
		return "", Wrap(KindDomain, op, fmt.Errorf("%w %q", ErrUnknownStatus, hw.Status))
	}
	return fmt.Sprintf(MessageTemplate, hw.Name, verdict), nil
}

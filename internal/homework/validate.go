package homework

import (
	"fmt"
	"math"

	json "github.com/goccy/go-json"

	logx "hwbot/pkg/logx"
)

// Validator checks the shape of a decoded API response.
type Validator struct {
	log logx.Logger
}

func NewValidator(log logx.Logger) *Validator {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Validator{log: log}
}

// CheckResponse confirms body is a mapping holding both the homeworks list and
// the current-date marker, and returns the (possibly empty) list.
func (v *Validator) CheckResponse(body any) ([]Homework, error) {
	const op = "check response"

	m, ok := body.(map[string]any)
	if !ok {
		v.log.Error("response is not a mapping", logx.String("type", fmt.Sprintf("%T", body)))
		return nil, Wrap(KindShape, op, fmt.Errorf("response %w (got %T)", ErrNotMapping, body))
	}

	raw, hasList := m[FieldHomeworks]
	_, hasDate := m[FieldCurrentDate]
	switch {
	case !hasList:
		v.log.Error("unexpected api response", logx.String("missing", FieldHomeworks))
		return nil, Wrap(KindShape, op, missing(FieldHomeworks))
	case !hasDate:
		v.log.Error("unexpected api response", logx.String("missing", FieldCurrentDate))
		return nil, Wrap(KindShape, op, missing(FieldCurrentDate))
	}

	list, ok := raw.([]any)
	if !ok {
		v.log.Error("homeworks is not a list", logx.String("type", fmt.Sprintf("%T", raw)))
		return nil, Wrap(KindShape, op, ErrNotList)
	}

	out := make([]Homework, 0, len(list))
	for i, item := range list {
		rec, ok := item.(map[string]any)
		if !ok {
			v.log.Error("homework record is not a mapping", logx.Int("index", i), logx.String("type", fmt.Sprintf("%T", item)))
			return nil, Wrap(KindShape, op, fmt.Errorf("homeworks[%d] %w", i, ErrNotMapping))
		}
		out = append(out, recordFrom(rec))
	}
	return out, nil
}

// CurrentDate reads the server-side current-date marker (unix seconds).
func (v *Validator) CurrentDate(body any) (int64, error) {
	const op = "current date"

	m, ok := body.(map[string]any)
	if !ok {
		return 0, Wrap(KindShape, op, fmt.Errorf("response %w (got %T)", ErrNotMapping, body))
	}
	raw, ok := m[FieldCurrentDate]
	if !ok {
		v.log.Error("unexpected api response", logx.String("missing", FieldCurrentDate))
		return 0, Wrap(KindShape, op, missing(FieldCurrentDate))
	}

	ts, ok := toInt64(raw)
	if !ok {
		v.log.Error("current_date is not an integer", logx.Any("value", raw))
		return 0, Wrap(KindShape, op, ErrNotInteger)
	}
	return ts, nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

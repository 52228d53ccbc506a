package stream

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"support-chat/internal/domain"
)

var (
	ErrMalformedLine = errors.New("malformed event line")
	ErrInvalidEvent  = errors.New("invalid event shape")
)

// ParseEvent interpreta una linea como un objeto {"type": ..., "data": ...}.
// Los tipos desconocidos se devuelven sin error; el fold los ignora.
func ParseEvent(line string) (domain.Event, error) {
	if !gjson.Valid(line) {
		return domain.Event{}, ErrMalformedLine
	}
	root := gjson.Parse(line)
	if !root.IsObject() {
		return domain.Event{}, fmt.Errorf("%w: not an object", ErrInvalidEvent)
	}

	typ := root.Get("type")
	if typ.Type != gjson.String {
		return domain.Event{}, fmt.Errorf("%w: type must be a string", ErrInvalidEvent)
	}
	ev := domain.Event{Type: domain.EventType(typ.Str)}
	if !ev.Type.CarriesData() {
		return ev, nil
	}

	data := root.Get("data")
	switch data.Type {
	case gjson.String:
		ev.Data = data.Str
	case gjson.Null:
		// ausente o null
	default:
		return domain.Event{}, fmt.Errorf("%w: data for %q must be a string", ErrInvalidEvent, ev.Type)
	}
	return ev, nil
}

// EncodeEvent serializa un evento como una linea NDJSON terminada en '\n'.
func EncodeEvent(ev domain.Event) ([]byte, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return append(b, '\n'), nil
}

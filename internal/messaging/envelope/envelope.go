// Package envelope unwraps CloudEvents carried by Kafka records, in either
// structured or binary content mode.
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"
)

const (
	// ContentTypeStructured marks a record whose value is a JSON CloudEvent.
	ContentTypeStructured = "application/cloudevents+json"

	headerContentType = "content-type"
	headerPrefix      = "ce_"
)

// Mode is the CloudEvents content mode of a record.
type Mode int

const (
	ModeStructured Mode = iota
	ModeBinary
)

func (m Mode) String() string {
	if m == ModeBinary {
		return "binary"
	}
	return "structured"
}

// Header is one record header.
type Header struct {
	Key   string
	Value []byte
}

// Message is the transport-neutral view of a Kafka record.
type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers []Header
}

// Header returns the first header matching key, ignoring case.
func (m Message) Header(key string) (string, bool) {
	for _, h := range m.Headers {
		if strings.EqualFold(h.Key, key) {
			return string(h.Value), true
		}
	}
	return "", false
}

// Envelope is the part of a CloudEvent the deserializer needs.
type Envelope struct {
	ID          string
	Source      string
	Type        string
	Subject     string
	Time        time.Time
	ContentType string
	Payload     []byte
	Mode        Mode
}

// Unwrap extracts the payload and type name from msg. A record carrying a
// foreign content type, or a well formed event without a data content type or
// data, yields an *Error; a record that claims to be a CloudEvent but does not
// parse yields a *MalformedError.
func Unwrap(msg Message) (*Envelope, error) {
	if ct, ok := foreignContentType(msg); ok {
		return nil, &Error{Err: fmt.Errorf("%w: %q", ErrUnsupportedContentType, ct)}
	}
	e, mode, err := parse(msg)
	if err != nil {
		return nil, &MalformedError{Err: err}
	}
	if err := e.Validate(); err != nil {
		return nil, &MalformedError{Err: err}
	}

	env := &Envelope{
		ID:          e.ID(),
		Source:      e.Source(),
		Type:        e.Type(),
		Subject:     e.Subject(),
		Time:        e.Time(),
		ContentType: e.DataContentType(),
		Payload:     e.Data(),
		Mode:        mode,
	}
	switch {
	case env.ContentType == "":
		return nil, &Error{ID: env.ID, Type: env.Type, Err: ErrNoContentType}
	case len(env.Payload) == 0:
		return nil, &Error{ID: env.ID, Type: env.Type, Err: ErrNoData}
	}
	return env, nil
}

func parse(msg Message) (event.Event, Mode, error) {
	if _, ok := msg.Header(headerPrefix + "specversion"); ok {
		e, err := fromHeaders(msg)
		return e, ModeBinary, err
	}

	var e event.Event
	if err := json.Unmarshal(msg.Value, &e); err != nil {
		return event.Event{}, ModeStructured, fmt.Errorf("unmarshal structured event: %w", err)
	}
	return e, ModeStructured, nil
}

// foreignContentType reports the content type of a structured-mode record
// that does not carry the CloudEvents marker. Binary-mode records and records
// without a content-type header are not foreign.
func foreignContentType(msg Message) (string, bool) {
	if _, ok := msg.Header(headerPrefix + "specversion"); ok {
		return "", false
	}
	ct, ok := msg.Header(headerContentType)
	if !ok || strings.HasPrefix(strings.ToLower(strings.TrimSpace(ct)), ContentTypeStructured) {
		return "", false
	}
	return ct, true
}

func fromHeaders(msg Message) (event.Event, error) {
	specVersion, _ := msg.Header(headerPrefix + "specversion")
	e := event.New(specVersion)

	for _, h := range msg.Headers {
		name, ok := cutPrefixFold(h.Key, headerPrefix)
		if !ok {
			continue
		}
		value := string(h.Value)
		switch strings.ToLower(name) {
		case "specversion":
		case "id":
			e.SetID(value)
		case "source":
			e.SetSource(value)
		case "type":
			e.SetType(value)
		case "subject":
			e.SetSubject(value)
		case "time":
			ts, err := time.Parse(time.RFC3339Nano, value)
			if err != nil {
				return event.Event{}, fmt.Errorf("parse ce_time: %w", err)
			}
			e.SetTime(ts)
		}
	}

	ct, _ := msg.Header(headerContentType)
	if ct == "" {
		return e, nil
	}
	if err := e.SetData(ct, msg.Value); err != nil {
		return event.Event{}, fmt.Errorf("set data: %w", err)
	}
	return e, nil
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return "", false
	}
	return s[len(prefix):], true
}

// Structured renders e as a structured-mode record value.
func Structured(topic string, key []byte, e event.Event) (Message, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return Message{}, fmt.Errorf("marshal event: %w", err)
	}
	return Message{
		Topic:   topic,
		Key:     key,
		Value:   value,
		Headers: []Header{{Key: headerContentType, Value: []byte(ContentTypeStructured)}},
	}, nil
}

// Binary renders e in binary mode: attributes as ce_ headers, data as value.
func Binary(topic string, key []byte, e event.Event) Message {
	headers := []Header{
		{Key: headerPrefix + "specversion", Value: []byte(e.SpecVersion())},
		{Key: headerPrefix + "id", Value: []byte(e.ID())},
		{Key: headerPrefix + "source", Value: []byte(e.Source())},
		{Key: headerPrefix + "type", Value: []byte(e.Type())},
	}
	if s := e.Subject(); s != "" {
		headers = append(headers, Header{Key: headerPrefix + "subject", Value: []byte(s)})
	}
	if t := e.Time(); !t.IsZero() {
		headers = append(headers, Header{Key: headerPrefix + "time", Value: []byte(t.Format(time.RFC3339Nano))})
	}
	if ct := e.DataContentType(); ct != "" {
		headers = append(headers, Header{Key: headerContentType, Value: []byte(ct)})
	}
	return Message{Topic: topic, Key: key, Value: e.Data(), Headers: headers}
}

var (
	ErrNoContentType = errors.New("event has no data content type")
	ErrNoData        = errors.New("event has no data")

	ErrUnsupportedContentType = errors.New("content type is not a CloudEvents marker")
)

// Error reports an event that carries nothing to deserialize. Callers treat
// it as an empty result rather than a failure.
type Error struct {
	ID   string
	Type string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("event %s (%s): %v", e.ID, e.Type, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// MalformedError reports a record that is not a valid CloudEvent.
type MalformedError struct {
	Err error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed envelope: %v", e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

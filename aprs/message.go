// Package aprs implements the TNC2 text form of APRS packets carried inside
// LoRa frames: "SOURCE>DESTINATION[,PATH...]:BODY".
package aprs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoSource = errors.New("aprs: missing source separator '>'")
	ErrNoBody   = errors.New("aprs: missing body separator ':'")
)

// Type is the APRS data type identifier, the first byte of the body.
type Type byte

const (
	TypeUnknown             Type = 0
	TypePositionNoMessaging Type = '!'
	TypePositionMessaging   Type = '='
	TypePositionTimestamp   Type = '/'
	TypePositionTimeMsg     Type = '@'
	TypeMessage             Type = ':'
	TypeStatus              Type = '>'
	TypeObject              Type = ';'
	TypeItem                Type = ')'
	TypeTelemetry           Type = 'T'
	TypeMicE                Type = '`'
	TypeMicEOld             Type = '\''
)

func (t Type) String() string {
	switch t {
	case TypePositionNoMessaging, TypePositionMessaging, TypePositionTimestamp, TypePositionTimeMsg:
		return "Position"
	case TypeMessage:
		return "Message"
	case TypeStatus:
		return "Status"
	case TypeObject:
		return "Object"
	case TypeItem:
		return "Item"
	case TypeTelemetry:
		return "Telemetry"
	case TypeMicE, TypeMicEOld:
		return "Mic-E"
	default:
		return "Unknown"
	}
}

// Message is one decoded APRS packet.
type Message struct {
	Source      string
	Destination string
	Path        []string
	Body        string
}

// Decode parses the TNC2 text form.
func Decode(s string) (*Message, error) {
	m := &Message{}
	if err := m.Decode(s); err != nil {
		return nil, err
	}
	return m, nil
}

// Decode parses the TNC2 text form into m.
func (m *Message) Decode(s string) error {
	header, body, ok := strings.Cut(s, ":")
	if !ok {
		return ErrNoBody
	}
	src, rest, ok := strings.Cut(header, ">")
	if !ok {
		return ErrNoSource
	}
	parts := strings.Split(rest, ",")
	m.Source = src
	m.Destination = parts[0]
	m.Path = nil
	if len(parts) > 1 {
		m.Path = append(m.Path, parts[1:]...)
	}
	m.Body = body
	return nil
}

// Type returns the data type identifier of the body.
func (m *Message) Type() Type {
	if m.Body == "" {
		return TypeUnknown
	}
	return Type(m.Body[0])
}

// Encode returns the TNC2 text form.
func (m *Message) Encode() string {
	var b strings.Builder
	b.WriteString(m.Source)
	b.WriteByte('>')
	b.WriteString(m.Destination)
	for _, p := range m.Path {
		b.WriteByte(',')
		b.WriteString(p)
	}
	b.WriteByte(':')
	b.WriteString(m.Body)
	return b.String()
}

func (m *Message) String() string {
	return fmt.Sprintf("Source: %s, Destination: %s, Path: %s, Type: %s, Data: %s",
		m.Source, m.Destination, strings.Join(m.Path, ","), m.Type(), m.Body)
}

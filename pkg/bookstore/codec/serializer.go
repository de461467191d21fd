// Package codec serializes domain events to a versioned JSON envelope and
// back. The bus runs every event through a Serialize/Deserialize round trip
// before dispatch, so schema regressions fail the publish instead of
// reaching handlers.
package codec

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/domain"
)

// Supported schema version range. Events outside it are rejected on both
// encode and decode.
const (
	SupportedVersionMin = 1
	SupportedVersionMax = domain.SchemaVersion
)

// previewLimit bounds how much raw input a DecodeError may carry.
const previewLimit = 100

// Envelope is the persisted/serialized shape of an event.
type Envelope struct {
	EventType string          `json:"event_type"`
	EventData json.RawMessage `json:"event_data"`
}

// Serialize encodes an event into its JSON envelope. It validates the
// schema version and required fields before encoding and checks the
// envelope shape after.
func Serialize(evt domain.Event) ([]byte, error) {
	if err := checkVersion(evt.Meta().EventVersion); err != nil {
		return nil, err
	}
	if err := validateEvent(evt); err != nil {
		return nil, err
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return nil, &EncodeError{EventType: evt.EventType(), Err: err}
	}
	out, err := json.Marshal(Envelope{EventType: evt.EventType(), EventData: data})
	if err != nil {
		return nil, &EncodeError{EventType: evt.EventType(), Err: err}
	}

	if err := checkEnvelopeShape(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Deserialize decodes a JSON envelope back into a domain event. The schema
// version is read from the envelope before the full payload is decoded.
func Deserialize(data []byte) (domain.Event, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, &DecodeError{Reason: "input is empty", InputPreview: preview(data)}
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &DecodeError{Reason: "invalid JSON", InputPreview: preview(data), Err: err}
	}
	if env.EventType == "" {
		return nil, &MissingFieldError{EventType: "envelope", Field: "event_type"}
	}
	if len(env.EventData) == 0 {
		return nil, &MissingFieldError{EventType: env.EventType, Field: "event_data"}
	}

	var peek struct {
		Metadata struct {
			EventVersion int `json:"event_version"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal(env.EventData, &peek); err != nil {
		return nil, &DecodeError{Reason: "invalid event data", InputPreview: preview(env.EventData), Err: err}
	}
	if err := checkVersion(peek.Metadata.EventVersion); err != nil {
		return nil, err
	}

	decoder, ok := decoders[env.EventType]
	if !ok {
		return nil, &UnsupportedEventTypeError{EventType: env.EventType}
	}
	evt, err := decoder(env.EventData)
	if err != nil {
		return nil, &DecodeError{Reason: "payload does not match " + env.EventType, InputPreview: preview(env.EventData), Err: err}
	}

	if err := validateEvent(evt); err != nil {
		return nil, err
	}
	return evt, nil
}

var decoders = map[string]func([]byte) (domain.Event, error){
	domain.EventTypeOrderConfirmed:             decodeAs[domain.OrderConfirmed],
	domain.EventTypeOrderCancelled:             decodeAs[domain.OrderCancelled],
	domain.EventTypeOrderShipped:               decodeAs[domain.OrderShipped],
	domain.EventTypeOrderDelivered:             decodeAs[domain.OrderDelivered],
	domain.EventTypeInventoryReserved:          decodeAs[domain.InventoryReserved],
	domain.EventTypeInventoryReleased:          decodeAs[domain.InventoryReleased],
	domain.EventTypeInventoryReservationFailed: decodeAs[domain.InventoryReservationFailed],
	domain.EventTypeShippingFailed:             decodeAs[domain.ShippingFailed],
	domain.EventTypeDeliveryFailed:             decodeAs[domain.DeliveryFailed],
	domain.EventTypeSagaCompensationStarted:    decodeAs[domain.SagaCompensationStarted],
	domain.EventTypeSagaCompensationCompleted:  decodeAs[domain.SagaCompensationCompleted],
}

func decodeAs[E domain.Event](data []byte) (domain.Event, error) {
	var evt E
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, err
	}
	return evt, nil
}

func checkVersion(version int) error {
	if version < SupportedVersionMin || version > SupportedVersionMax {
		return &UnsupportedSchemaVersionError{Version: version, Min: SupportedVersionMin, Max: SupportedVersionMax}
	}
	return nil
}

// validateEvent enforces the metadata invariants and per-variant required
// fields shared by encode and decode.
func validateEvent(evt domain.Event) error {
	meta := evt.Meta()
	if meta.EventID == uuid.Nil {
		return &MissingFieldError{EventType: evt.EventType(), Field: "metadata.event_id"}
	}
	if meta.CorrelationID == uuid.Nil {
		return &MissingFieldError{EventType: evt.EventType(), Field: "metadata.correlation_id"}
	}

	switch e := evt.(type) {
	case domain.OrderConfirmed:
		if e.OrderID.IsNil() {
			return &MissingFieldError{EventType: e.EventType(), Field: "order_id"}
		}
		if e.CustomerID.IsNil() {
			return &MissingFieldError{EventType: e.EventType(), Field: "customer_id"}
		}
	case domain.InventoryReserved:
		if len(e.OrderLines) == 0 {
			return &InvalidFieldError{EventType: e.EventType(), Field: "order_lines", Reason: "must contain at least one line"}
		}
	}
	return nil
}

func checkEnvelopeShape(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return &EnvelopeError{Reason: "output is not a JSON object"}
	}
	for _, field := range []string{"event_type", "event_data"} {
		if _, ok := fields[field]; !ok {
			return &EnvelopeError{Reason: "missing " + field}
		}
	}
	return nil
}

func preview(data []byte) string {
	runes := []rune(string(data))
	if len(runes) <= previewLimit {
		return string(runes)
	}
	return string(runes[:previewLimit-3]) + "..."
}

package core

import "sync"

type EventContext struct {
	// 128 bytes
	Data struct {
		I64 [2]int64
		U64 [2]uint64
		F64 [2]float64

		I32 [4]int32
		U32 [4]uint32
		F32 [4]float32

		I16 [8]int16
		U16 [8]uint16

		I8 [16]int8
		U8 [16]uint8

		C [16]string
	}
}

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode int

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01

	// The OS window exists and has a usable surface handle.
	/* Context usage:
	 * u64 window_handle = data.data.u64[0];
	 */
	EVENT_CODE_WINDOW_CREATED SystemEventCode = 0x02

	// One paint request. Fired once per message-pump iteration; each one
	// drives exactly one frame through the pipeline.
	EVENT_CODE_PAINT SystemEventCode = 0x03

	// The OS window is going away. Triggers the shutdown sequence.
	EVENT_CODE_WINDOW_DESTROYED SystemEventCode = 0x04

	// Resized/resolution changed from the OS. Observed and logged only;
	// the swapchain is never recreated in this design.
	/* Context usage:
	 * u16 width = data.data.u16[0];
	 * u16 height = data.data.u16[1];
	 */
	EVENT_CODE_RESIZED SystemEventCode = 0x05

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

// This should be more than enough codes...
const MAX_MESSAGE_CODES = 16384

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

type eventCodeEntry struct {
	events []*registeredEvent
}

// State structure.
type eventSystemState struct {
	// Lookup table for event codes.
	registered [MAX_MESSAGE_CODES]eventCodeEntry
}

/**
 * Event system internal state.
 */
var onceEvent sync.Once
var isInitialized bool = false
var eventState *eventSystemState = nil

// Should return true if handled.
type FnOnEvent func(code SystemEventCode, sender interface{}, listenerInst interface{}, data EventContext) bool

func EventSystemInitialize() bool {
	if isInitialized {
		return false
	}
	onceEvent.Do(func() {
		eventState = &eventSystemState{}
	})
	isInitialized = true
	return true
}

func EventSystemShutdown() error {
	// Free the events arrays. Any objects pointed to should be destroyed on
	// their own.
	for i := 0; i < MAX_MESSAGE_CODES; i++ {
		if len(eventState.registered[i].events) != 0 {
			eventState.registered[i].events = nil
		}
	}
	isInitialized = false
	return nil
}

// EventRegister registers to listen for events sent with the provided code.
// Duplicate listener/callback combos are not registered again and cause this
// to return false.
func EventRegister(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	if !isInitialized {
		return false
	}
	registeredCount := len(eventState.registered[code].events)
	for i := 0; i < registeredCount; i++ {
		if eventState.registered[code].events[i].listener == listener {
			LogWarn("duplicate event registration for code %d", code)
			return false
		}
	}
	// If at this point, no duplicate was found. Proceed with registration.
	event := &registeredEvent{
		listener: listener,
		callback: onEvent,
	}
	eventState.registered[code].events = append(eventState.registered[code].events, event)
	return true
}

// EventUnregister stops listening for events sent with the provided code. If
// no matching registration is found, this function returns false.
func EventUnregister(code SystemEventCode, listener interface{}) bool {
	if !isInitialized {
		return false
	}

	// On nothing is registered for the code, boot out.
	entries := eventState.registered[code].events
	if len(entries) == 0 {
		return false
	}

	for i := 0; i < len(entries); i++ {
		if entries[i].listener == listener {
			eventState.registered[code].events = append(entries[:i], entries[i+1:]...)
			return true
		}
	}
	// Not found.
	return false
}

// EventFire fires an event to listeners of the given code. If an event
// handler returns true, the event is considered handled and is not passed on
// to any more listeners.
func EventFire(code SystemEventCode, sender interface{}, context EventContext) bool {
	if !isInitialized {
		return false
	}
	// If nothing is registered for the code, boot out.
	if len(eventState.registered[code].events) == 0 {
		return false
	}
	registeredCount := len(eventState.registered[code].events)
	for i := 0; i < registeredCount; i++ {
		e := eventState.registered[code].events[i]
		if e.callback(code, sender, e.listener, context) {
			// Message has been handled, do not send to other listeners.
			return true
		}
	}
	// Not found.
	return false
}

package model

import "time"

// TopicTimerChanged names the broadcast topic for timer start/stop.
const TopicTimerChanged = "timer-changed"

// SyncAction identifies what happened to the running timer.
type SyncAction string

const (
	SyncStart SyncAction = "start"
	SyncStop  SyncAction = "stop"
)

// SyncMessage is broadcast after a successful start or stop. Stop
// messages carry no record; receivers re-pull state from the gateway.
type SyncMessage struct {
	Action SyncAction
	Record *TimerRecord
	Origin string
}

// IdleEvent reports a detected idle episode. LastActivity is the
// activity stamp at detection time.
type IdleEvent struct {
	IdleSeconds  int64
	DetectedAt   time.Time
	LastActivity time.Time
}

// ActivityKind is the input that produced an activity sample.
type ActivityKind string

const (
	ActivityPointerMove ActivityKind = "pointer_move"
	ActivityKeyPress    ActivityKind = "key_press"
	ActivityClick       ActivityKind = "click"
	ActivityScroll      ActivityKind = "scroll"
	ActivitySystem      ActivityKind = "system"
)

// Activity is one qualifying user input.
type Activity struct {
	Kind ActivityKind
	At   time.Time
}

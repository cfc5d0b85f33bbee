package models

import "time"

// ActionKind represents the kind of a queued mutating action.
// The set is closed: replay handlers are registered per kind and unknown
// kinds are rejected at enqueue time instead of failing during replay.
type ActionKind string

const (
	ActionCalendarEventCreate ActionKind = "calendar_event_create" // создание события календаря
	ActionCalendarEventUpdate ActionKind = "calendar_event_update" // изменение события календаря
	ActionCalendarEventDelete ActionKind = "calendar_event_delete" // удаление события календаря
	ActionTaskCreate          ActionKind = "task_create"           // создание задачи
	ActionTaskComplete        ActionKind = "task_complete"         // отметка задачи выполненной
	ActionHabitTick           ActionKind = "habit_tick"            // отметка привычки за день
	ActionNoteAppend          ActionKind = "note_append"           // добавление заметки в общее пространство
	ActionFileDelete          ActionKind = "file_delete"           // удаление файла
	ActionMemberInvite        ActionKind = "member_invite"         // приглашение участника в пространство
)

// actionTraits описывает офлайн-политику для каждого вида действия
type actionTraits struct {
	allowedOffline bool // можно ли ставить действие в офлайн-очередь
	destructive    bool // удаляет ли действие данные безвозвратно
}

// Разрешаем в офлайне только append-only и обратимые действия.
// Удаления и многошаговые зависимые действия выполняются только онлайн.
var actionKinds = map[ActionKind]actionTraits{
	ActionCalendarEventCreate: {allowedOffline: true},
	ActionCalendarEventUpdate: {allowedOffline: true},
	ActionCalendarEventDelete: {destructive: true},
	ActionTaskCreate:          {allowedOffline: true},
	ActionTaskComplete:        {allowedOffline: true},
	ActionHabitTick:           {allowedOffline: true},
	ActionNoteAppend:          {allowedOffline: true},
	ActionFileDelete:          {destructive: true},
	ActionMemberInvite:        {},
}

// Valid reports whether the kind belongs to the closed set
func (k ActionKind) Valid() bool {
	_, ok := actionKinds[k]
	return ok
}

// AllowedOffline reports whether an action of this kind may be queued
// while offline
func (k ActionKind) AllowedOffline() bool {
	return actionKinds[k].allowedOffline
}

// Destructive reports whether an action of this kind irreversibly
// removes data
func (k ActionKind) Destructive() bool {
	return actionKinds[k].destructive
}

// QueuedAction represents a mutating operation recorded while offline.
// Created at enqueue time, removed by the sync replayer on success;
// RetryCount grows on failed replay attempts, nothing else ever mutates it.
type QueuedAction struct {
	EnqueuedAt time.Time      `json:"enqueued_at"` // время постановки в очередь
	Payload    map[string]any `json:"payload"`     // параметры операции
	ID         string         `json:"id"`          // UUID действия
	Kind       ActionKind     `json:"kind"`        // вид действия
	RetryCount uint           `json:"retry_count"` // число неудачных попыток replay
}
